package elgamal

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/confidential-counter/crypto/ecc"
)

// Ciphertext is an ElGamal encrypted message. Adding two ciphertexts under
// the same key yields an encryption of the sum of their messages.
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext creates a new Ciphertext on the same curve as the given
// point, holding the encryption of zero with k = 0 (both points identity).
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// Encrypt encrypts message under publicKey and stores the result in z.
// The randomness k can be provided or nil to generate a new one.
func (z *Ciphertext) Encrypt(message *big.Int, publicKey ecc.Point, k *big.Int) (*Ciphertext, error) {
	var err error
	if k == nil {
		if k, err = RandK(publicKey); err != nil {
			return nil, fmt.Errorf("elgamal encryption failed: %w", err)
		}
	}
	c1, c2, err := EncryptWithK(publicKey, message, k)
	if err != nil {
		return nil, fmt.Errorf("elgamal encryption failed: %w", err)
	}
	z.C1 = c1
	z.C2 = c2
	return z, nil
}

// Add adds x and y and stores the result in z, which is also returned.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.SafeAdd(x.C1, y.C1)
	z.C2.SafeAdd(x.C2, y.C2)
	return z
}

// Decrypt returns the plaintext of z, searched in [0, maxMessage].
func (z *Ciphertext) Decrypt(publicKey ecc.Point, privateKey *big.Int, maxMessage uint64) (*big.Int, error) {
	_, m, err := Decrypt(publicKey, privateKey, z.C1, z.C2, maxMessage)
	return m, err
}

// Marshal returns C1 || C2 in the fixed size encoding of the curve.
func (z *Ciphertext) Marshal() []byte {
	buf := make([]byte, 0, 2*z.C1.MarshalSize())
	buf = append(buf, z.C1.Marshal()...)
	return append(buf, z.C2.Marshal()...)
}

// Unmarshal decodes the output of Marshal. z must have been created with
// NewCiphertext on the right curve.
func (z *Ciphertext) Unmarshal(data []byte) error {
	size := z.C1.MarshalSize()
	if len(data) != 2*size {
		return fmt.Errorf("invalid ciphertext length: got %d bytes, expected %d bytes", len(data), 2*size)
	}
	if err := z.C1.Unmarshal(data[:size]); err != nil {
		return fmt.Errorf("invalid c1: %w", err)
	}
	if err := z.C2.Unmarshal(data[size:]); err != nil {
		return fmt.Errorf("invalid c2: %w", err)
	}
	return nil
}

// String returns a string representation of the Ciphertext.
func (z *Ciphertext) String() string {
	if z == nil || z.C1 == nil || z.C2 == nil {
		return "{C1: nil, C2: nil}"
	}
	return fmt.Sprintf("{C1: %s, C2: %s}", z.C1.String(), z.C2.String())
}
