package elgamal

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/confidential-counter/crypto/ecc/curves"
)

func TestGenerateKey(t *testing.T) {
	for _, curveType := range curves.Curves() {
		curve, err := curves.New(curveType)
		qt.Assert(t, err, qt.IsNil)

		publicKey, privateKey, err := GenerateKey(curve)
		qt.Assert(t, err, qt.IsNil)
		qt.Assert(t, privateKey.Sign(), qt.Equals, 1)

		testPoint := curve.New()
		testPoint.SetGenerator()
		testPoint.ScalarMult(testPoint, privateKey)
		qt.Assert(t, testPoint.Equal(publicKey), qt.IsTrue, qt.Commentf("curve %s", curveType))
	}
}

func TestEncryptDecrypt(t *testing.T) {
	for _, curveType := range curves.Curves() {
		curve, err := curves.New(curveType)
		qt.Assert(t, err, qt.IsNil)
		publicKey, privateKey, err := GenerateKey(curve)
		qt.Assert(t, err, qt.IsNil)

		for _, m := range []uint64{0, 1, 42, 999, 1000} {
			msg := new(big.Int).SetUint64(m)
			c1, c2, k, err := Encrypt(publicKey, msg)
			qt.Assert(t, err, qt.IsNil)
			qt.Assert(t, CheckK(c1, k), qt.IsTrue)

			M, recovered, err := Decrypt(publicKey, privateKey, c1, c2, 1000)
			qt.Assert(t, err, qt.IsNil)
			qt.Assert(t, recovered.Uint64(), qt.Equals, m)

			testPoint := curve.New()
			testPoint.ScalarBaseMult(msg)
			qt.Assert(t, testPoint.Equal(M), qt.IsTrue)
		}
	}
}

func TestEncryptDoesNotModifyMessage(t *testing.T) {
	curve, err := curves.New(curves.CurveTypeBN254)
	qt.Assert(t, err, qt.IsNil)
	publicKey, _, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	msg := new(big.Int).Add(curve.Order(), big.NewInt(5))
	_, _, err = EncryptWithK(publicKey, msg, big.NewInt(3))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, msg.Cmp(curve.Order()), qt.Equals, 1)
}

func TestDecryptOutOfRange(t *testing.T) {
	curve, err := curves.New(curves.CurveTypeBN254)
	qt.Assert(t, err, qt.IsNil)
	publicKey, privateKey, err := GenerateKey(curve)
	qt.Assert(t, err, qt.IsNil)

	c1, c2, _, err := Encrypt(publicKey, big.NewInt(500))
	qt.Assert(t, err, qt.IsNil)
	_, _, err = Decrypt(publicKey, privateKey, c1, c2, 100)
	qt.Assert(t, err, qt.ErrorMatches, ".*out of the decryptable range.*")
}

func TestBabyStepTableIsCached(t *testing.T) {
	curve, err := curves.New(curves.CurveTypeBabyJubJub)
	qt.Assert(t, err, qt.IsNil)
	G := curve.New()
	G.SetGenerator()

	first := tableFor(G, 17)
	second := tableFor(G, 17)
	qt.Assert(t, first == second, qt.IsTrue)
	qt.Assert(t, len(first.steps), qt.Equals, 17)
}
