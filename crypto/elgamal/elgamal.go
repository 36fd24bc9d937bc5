// Package elgamal implements additively homomorphic EC-ElGamal over the
// curves of crypto/ecc. Messages are encoded as m*G, so decryption solves a
// bounded discrete logarithm with baby-step giant-step.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/vocdoni/confidential-counter/crypto/ecc"
)

// DefaultMaxMessage is the largest plaintext Decrypt searches for when the
// caller does not provide a bound. It covers the full uint32 range.
const DefaultMaxMessage = math.MaxUint32

// RandK returns a random non zero scalar for the curve of the given point.
func RandK(curve ecc.Point) (*big.Int, error) {
	k, err := rand.Int(rand.Reader, curve.Order())
	if err != nil {
		return nil, fmt.Errorf("failed to generate random k: %w", err)
	}
	if k.Sign() == 0 {
		k.SetUint64(1)
	}
	return k, nil
}

// Encrypt encrypts msg under publicKey with a fresh random k and returns
// the two ciphertext points and the k used.
func Encrypt(publicKey ecc.Point, msg *big.Int) (ecc.Point, ecc.Point, *big.Int, error) {
	k, err := RandK(publicKey)
	if err != nil {
		return nil, nil, nil, err
	}
	c1, c2, err := EncryptWithK(publicKey, msg, k)
	if err != nil {
		return nil, nil, nil, err
	}
	return c1, c2, k, nil
}

// EncryptWithK encrypts msg under pubKey using the provided randomness k.
// C1 = k*G and C2 = msg*G + k*pubKey. msg is not modified.
func EncryptWithK(pubKey ecc.Point, msg, k *big.Int) (ecc.Point, ecc.Point, error) {
	if msg == nil || k == nil {
		return nil, nil, fmt.Errorf("nil message or randomness")
	}
	m := new(big.Int).Mod(msg, pubKey.Order())
	c1 := pubKey.New()
	c1.ScalarBaseMult(k)
	s := pubKey.New()
	s.ScalarMult(pubKey, k)
	mG := pubKey.New()
	mG.ScalarBaseMult(m)
	c2 := pubKey.New()
	c2.Add(mG, s)
	return c1, c2, nil
}

// GenerateKey generates a new public/private ElGamal key pair on the curve
// of the given point.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	d, err := rand.Int(rand.Reader, curve.Order())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	if d.Sign() == 0 {
		d = big.NewInt(1)
	}
	publicKey = curve.New()
	publicKey.ScalarBaseMult(d)
	return publicKey, d, nil
}

// Decrypt decrypts (c1, c2) with privateKey. It returns M = c2 - d*c1 and
// the scalar m such that M = m*G, searched in [0, maxMessage]. A zero
// maxMessage means DefaultMaxMessage.
func Decrypt(publicKey ecc.Point, privateKey *big.Int, c1, c2 ecc.Point, maxMessage uint64) (M ecc.Point, message *big.Int, err error) {
	dC1 := c2.New()
	dC1.ScalarMult(c1, privateKey)
	dC1.Neg(dC1)

	M = c2.New()
	M.Add(c2, dC1)

	G := publicKey.New()
	G.SetGenerator()
	if maxMessage == 0 {
		maxMessage = DefaultMaxMessage
	}
	message, err = BabyStepGiantStepECC(M, G, maxMessage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find discrete log: %w", err)
	}
	return M, message, nil
}

// babyStepTable maps the encoding of j*G to j for j in [0, size).
type babyStepTable struct {
	size  uint64
	steps map[string]uint64
}

// tables caches baby-step tables per curve type and table size.
var tables sync.Map

func tableFor(G ecc.Point, size uint64) *babyStepTable {
	key := fmt.Sprintf("%s/%d", G.Type(), size)
	if t, ok := tables.Load(key); ok {
		return t.(*babyStepTable)
	}
	t := &babyStepTable{size: size, steps: make(map[string]uint64, size)}
	step := G.New()
	step.SetZero()
	for j := uint64(0); j < size; j++ {
		t.steps[string(step.Marshal())] = j
		step.Add(step, G)
	}
	actual, _ := tables.LoadOrStore(key, t)
	return actual.(*babyStepTable)
}

// BabyStepGiantStepECC solves M = x*G for x in [0, maxMessage] using the
// baby-step giant-step algorithm. The baby-step table is built once per
// curve and bound and reused by later calls.
func BabyStepGiantStepECC(M, G ecc.Point, maxMessage uint64) (*big.Int, error) {
	mSqrt := uint64(math.Sqrt(float64(maxMessage))) + 1
	table := tableFor(G, mSqrt)

	// c = -(mSqrt*G)
	c := G.New()
	c.ScalarMult(G, new(big.Int).SetUint64(mSqrt))
	c.Neg(c)

	giantStep := M.New()
	giantStep.Set(M)
	for i := uint64(0); i <= mSqrt; i++ {
		if j, found := table.steps[string(giantStep.Marshal())]; found {
			x := i*mSqrt + j
			if x > maxMessage {
				break
			}
			return new(big.Int).SetUint64(x), nil
		}
		giantStep.Add(giantStep, c)
	}
	return nil, fmt.Errorf("message is out of the decryptable range [0, %d]", maxMessage)
}

// CheckK reports whether c1 == k*G, that is whether k was the randomness
// used to produce a ciphertext with first component c1.
func CheckK(c1 ecc.Point, k *big.Int) bool {
	kG := c1.New()
	kG.ScalarBaseMult(k)
	return kG.Equal(c1)
}
