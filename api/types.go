package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/storage"
	"github.com/vocdoni/confidential-counter/storage/trees"
	"github.com/vocdoni/confidential-counter/types"
)

// Info is the response to an info request.
type Info struct {
	ChainID   uint64           `json:"chainId"`
	Network   string           `json:"network"`
	Contracts []common.Address `json:"contracts"`
}

// CallRequest is the body of every signed request. The caller is the
// account recovered from Signature over the payload built by
// SignaturePayload.
type CallRequest struct {
	Nonce     uint64         `json:"nonce"`
	Args      []uint32       `json:"args,omitempty" validate:"max=2"`
	Signature types.HexBytes `json:"signature" validate:"required,len=65"`
}

// Contract describes a deployed counter.
type Contract struct {
	Address     common.Address `json:"address"`
	Owner       common.Address `json:"owner"`
	Network     string         `json:"network"`
	ChainID     uint64         `json:"chainId"`
	DeployedAt  int64          `json:"deployedAt"`
	DeployTx    common.Hash    `json:"deployTx"`
	Curve       string         `json:"curve"`
	PublicKey   types.HexBytes `json:"publicKey"`
	StateRoot   types.HexBytes `json:"stateRoot"`
	Epoch       uint64         `json:"epoch"`
	PublicTotal uint32         `json:"publicTotal"`
}

// Deployment is the response to a deploy request.
type Deployment struct {
	Contract *Contract        `json:"contract"`
	Receipt  *storage.Receipt `json:"receipt"`
}

// Total is the response to a public total request.
type Total struct {
	Total uint32 `json:"total"`
}

// Contribution is the response to a contribution request.
type Contribution struct {
	Account common.Address `json:"account"`
	Amount  uint32         `json:"amount"`
}

// Encrypted holds a marshaled ElGamal ciphertext (C1 || C2).
type Encrypted struct {
	Curve      string         `json:"curve"`
	Ciphertext types.HexBytes `json:"ciphertext"`
}

// ContributionProof is a merkle proof of a contribution against the
// current contribution root.
type ContributionProof = trees.Proof

// CallResult is the response to a signed state changing call. Value is set
// by calls returning a number, Result by the threshold check.
type CallResult struct {
	Receipt *storage.Receipt `json:"receipt"`
	Value   *uint32          `json:"value,omitempty"`
	Result  *bool            `json:"result,omitempty"`
}

// Decrypted is the response to a decryption request.
type Decrypted struct {
	Value uint32 `json:"value"`
}

// Conditional is the response to a conditional operation request.
type Conditional struct {
	Result uint32 `json:"result"`
}

// Events is a page of the event log of a counter.
type Events struct {
	Events []*storage.Event `json:"events"`
	Next   uint64           `json:"next"`
}

// Nonce is the next request nonce expected from an account.
type Nonce struct {
	Account common.Address `json:"account"`
	Nonce   uint64         `json:"nonce"`
}
