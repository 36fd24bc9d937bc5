package storage

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/types"
)

// CounterState is the persisted state of a deployed counter.
type CounterState struct {
	Address  common.Address `json:"address" cbor:"1,keyasint"`
	Owner    common.Address `json:"owner" cbor:"2,keyasint"`
	Total    uint32         `json:"publicTotal" cbor:"3,keyasint"`
	Register uint32         `json:"register" cbor:"4,keyasint"`
	Epoch    uint64         `json:"epoch" cbor:"5,keyasint"`
	TxCount  uint64         `json:"txCount" cbor:"6,keyasint"`
	// Curve, PublicKey and PrivateKey hold the ElGamal key of the counter.
	Curve      string         `json:"curve" cbor:"7,keyasint"`
	PublicKey  types.HexBytes `json:"publicKey" cbor:"8,keyasint"`
	PrivateKey types.HexBytes `json:"-" cbor:"9,keyasint"`
	// EncryptedTotal is the marshaled ciphertext of the total.
	EncryptedTotal types.HexBytes `json:"encryptedTotal" cbor:"10,keyasint"`
	DeployedAt     int64          `json:"deployedAt" cbor:"11,keyasint"`
	DeployTx       common.Hash    `json:"deployTx" cbor:"12,keyasint"`
}

// Contribution is the amount added by an account to a counter during one
// epoch, in plaintext and encrypted.
type Contribution struct {
	Contract  common.Address `json:"contract" cbor:"1,keyasint"`
	Epoch     uint64         `json:"epoch" cbor:"2,keyasint"`
	Account   common.Address `json:"account" cbor:"3,keyasint"`
	Amount    uint32         `json:"amount" cbor:"4,keyasint"`
	Encrypted types.HexBytes `json:"encrypted" cbor:"5,keyasint"`
}

// Event names.
const (
	EventCounterIncremented = "CounterIncremented"
	EventRandomValueAdded   = "RandomValueAdded"
	EventCounterReset       = "CounterReset"
	EventThresholdChecked   = "ThresholdChecked"
	EventMaxValueComputed   = "MaxValueComputed"
)

// Event is a log entry emitted by a counter. Only the fields relevant to
// the event name are set.
type Event struct {
	Contract    common.Address `json:"contract" cbor:"1,keyasint"`
	Seq         uint64         `json:"seq" cbor:"2,keyasint"`
	Name        string         `json:"name" cbor:"3,keyasint"`
	TxHash      common.Hash    `json:"txHash" cbor:"4,keyasint"`
	User        common.Address `json:"user" cbor:"5,keyasint"`
	PublicTotal uint32         `json:"publicTotal,omitempty" cbor:"6,keyasint,omitempty"`
	Threshold   uint32         `json:"threshold,omitempty" cbor:"7,keyasint,omitempty"`
	Result      bool           `json:"result,omitempty" cbor:"8,keyasint,omitempty"`
	Value       uint32         `json:"value,omitempty" cbor:"9,keyasint,omitempty"`
	Max         uint32         `json:"max,omitempty" cbor:"10,keyasint,omitempty"`
	// BlockNumber is set for events mirrored from a chain.
	BlockNumber uint64 `json:"blockNumber,omitempty" cbor:"11,keyasint,omitempty"`
	Time        int64  `json:"time" cbor:"12,keyasint"`
}

// Receipt is the record of an executed state changing call.
type Receipt struct {
	TxHash   common.Hash    `json:"txHash" cbor:"1,keyasint"`
	Contract common.Address `json:"contract" cbor:"2,keyasint"`
	From     common.Address `json:"from" cbor:"3,keyasint"`
	Method   string         `json:"method" cbor:"4,keyasint"`
	Events   []*Event       `json:"events" cbor:"5,keyasint"`
	Time     int64          `json:"time" cbor:"6,keyasint"`
}
