package ethereum

import (
	"encoding/hex"
	"testing"

	qt "github.com/frankban/quicktest"
)

// known key and its personal_sign signature of "hello"
const (
	vectorKey       = "fad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a19"
	vectorSignature = "a0d0ebc374d2a4d6357eaca3da2f5f3ff547c3560008206bc234f9032a866ace6279ffb4093fb39c8bbc39021f6a5c36ef0e813c8c94f325a53f4f395a5c82de01"
)

func TestKeyImport(t *testing.T) {
	c := qt.New(t)

	generated := NewSignKeys()
	c.Assert(generated.Generate(), qt.IsNil)
	pub, priv := generated.HexString()

	imported := NewSignKeys()
	c.Assert(imported.AddHexKey("0x"+priv), qt.IsNil)
	importedPub, importedPriv := imported.HexString()
	c.Assert(importedPub, qt.Equals, pub)
	c.Assert(importedPriv, qt.Equals, priv)
	c.Assert(imported.Address(), qt.Equals, generated.Address())

	c.Assert(NewSignKeys().AddHexKey("zz"), qt.IsNotNil)
	_, err := NewSignKeys().SignEthereum([]byte("no key"))
	c.Assert(err, qt.ErrorMatches, "no private key available")
}

func TestSignKnownVector(t *testing.T) {
	c := qt.New(t)
	keys := NewSignKeys()
	c.Assert(keys.AddHexKey(vectorKey), qt.IsNil)

	signature, err := keys.SignEthereum([]byte("hello"))
	c.Assert(err, qt.IsNil)
	c.Assert(hex.EncodeToString(signature), qt.Equals, vectorSignature)

	signer, err := AddrFromSignature([]byte("hello"), signature)
	c.Assert(err, qt.IsNil)
	c.Assert(signer, qt.Equals, keys.Address())
}

func TestAddrFromPublicKey(t *testing.T) {
	c := qt.New(t)
	keys := NewSignKeys()
	c.Assert(keys.Generate(), qt.IsNil)

	addr, err := AddrFromPublicKey(keys.PublicKey())
	c.Assert(err, qt.IsNil)
	c.Assert(addr.String(), qt.Equals, keys.AddressString())

	_, err = AddrFromPublicKey([]byte{1, 2, 3})
	c.Assert(err, qt.ErrorMatches, "invalid public key length 3")
}

func TestWalletStyleRecoveryID(t *testing.T) {
	c := qt.New(t)

	s := NewSignKeys()
	c.Assert(s.Generate(), qt.IsNil)
	msg := []byte("11155111:0x0000000000000000000000000000000000000001:add:0:10")
	signature, err := s.SignEthereum(msg)
	c.Assert(err, qt.IsNil)

	signature[64] += 27
	addr, err := AddrFromSignature(msg, signature)
	c.Assert(err, qt.IsNil)
	c.Assert(addr, qt.Equals, s.Address())

	_, err = AddrFromSignature(msg, signature[:64])
	c.Assert(err, qt.ErrorIs, ErrInvalidSignature)

	// a different message recovers a different signer
	other, err := AddrFromSignature([]byte("tampered"), signature)
	c.Assert(err, qt.IsNil)
	c.Assert(other, qt.Not(qt.Equals), s.Address())
}
