package storage

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

// encMode is the deterministic CBOR encoding used for every artifact.
var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	return encMode.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// contributionKey is contract || epoch || account.
func contributionKey(contract common.Address, epoch uint64, account common.Address) []byte {
	key := make([]byte, 0, 2*common.AddressLength+8)
	key = append(key, contract.Bytes()...)
	key = binary.BigEndian.AppendUint64(key, epoch)
	return append(key, account.Bytes()...)
}

// epochKey is contract || epoch, the prefix of every contribution of an epoch.
func epochKey(contract common.Address, epoch uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), contract.Bytes()...), epoch)
}

// eventKey is contract || seq.
func eventKey(contract common.Address, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), contract.Bytes()...), seq)
}
