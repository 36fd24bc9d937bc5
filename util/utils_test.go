package util

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRandomUint32(t *testing.T) {
	c := qt.New(t)
	for i := 0; i < 200; i++ {
		v, err := RandomUint32(1, 1000)
		c.Assert(err, qt.IsNil)
		c.Assert(v >= 1 && v <= 1000, qt.IsTrue, qt.Commentf("value %d out of range", v))
	}
	v, err := RandomUint32(7, 7)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, uint32(7))

	_, err = RandomUint32(10, 1)
	c.Assert(err, qt.ErrorMatches, "invalid range.*")
}

func TestTrimHex(t *testing.T) {
	qt.Assert(t, TrimHex("0xabcd"), qt.Equals, "abcd")
	qt.Assert(t, TrimHex("0Xabcd"), qt.Equals, "abcd")
	qt.Assert(t, TrimHex("abcd"), qt.Equals, "abcd")
	qt.Assert(t, TrimHex("0"), qt.Equals, "0")
}
