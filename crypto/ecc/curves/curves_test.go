package curves

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestGroupLaw(t *testing.T) {
	for _, curveType := range Curves() {
		t.Run(curveType, func(t *testing.T) {
			c := qt.New(t)
			p, err := New(curveType)
			c.Assert(err, qt.IsNil)
			c.Assert(p.Type(), qt.Equals, curveType)

			zero := p.New()
			g := p.New()
			g.SetGenerator()

			// g + (-g) = 0
			neg := p.New()
			neg.Neg(g)
			sum := p.New()
			sum.Add(g, neg)
			c.Assert(sum.Equal(zero), qt.IsTrue)

			// 2g + 3g = 5g
			a, b, five := p.New(), p.New(), p.New()
			a.ScalarBaseMult(big.NewInt(2))
			b.ScalarMult(g, big.NewInt(3))
			five.ScalarBaseMult(big.NewInt(5))
			sum.Add(a, b)
			c.Assert(sum.Equal(five), qt.IsTrue)

			// order * g = 0
			o := p.New()
			o.ScalarBaseMult(p.Order())
			c.Assert(o.Equal(zero), qt.IsTrue)
		})
	}
}

func TestMarshal(t *testing.T) {
	for _, curveType := range Curves() {
		t.Run(curveType, func(t *testing.T) {
			c := qt.New(t)
			p, err := New(curveType)
			c.Assert(err, qt.IsNil)
			p.ScalarBaseMult(big.NewInt(1234567))

			data := p.Marshal()
			c.Assert(data, qt.HasLen, p.MarshalSize())
			decoded := p.New()
			c.Assert(decoded.Unmarshal(data), qt.IsNil)
			c.Assert(decoded.Equal(p), qt.IsTrue)

			jdata, err := json.Marshal(p)
			c.Assert(err, qt.IsNil)
			fromJSON := p.New()
			c.Assert(json.Unmarshal(jdata, fromJSON), qt.IsNil)
			c.Assert(fromJSON.Equal(p), qt.IsTrue)

			x, y := p.Point()
			c.Assert(p.New().SetPoint(x, y).Equal(p), qt.IsTrue)
		})
	}
}

func TestUnsupported(t *testing.T) {
	c := qt.New(t)
	_, err := New("secp256k1")
	c.Assert(err, qt.ErrorMatches, "unsupported curve type: secp256k1")
	c.Assert(IsValid(CurveTypeBabyJubJubGnark), qt.IsTrue)
	c.Assert(IsValid("secp256k1"), qt.IsFalse)
}
