// Package deployment reads and writes the deployment record shared by the
// deploy tooling, the node and the CLI.
package deployment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMismatch is returned by Verify when the record does not describe the
// live contract.
var ErrMismatch = errors.New("deployment record does not match the contract")

// Record is the persisted description of a deployed counter.
type Record struct {
	ContractAddress common.Address `json:"contractAddress"`
	Network         string         `json:"network"`
	DeployedAt      time.Time      `json:"deployedAt"`
	Owner           common.Address `json:"owner"`
	ChainID         uint64         `json:"chainId,omitempty"`
	ContractName    string         `json:"contractName,omitempty"`
	Features        []string       `json:"features,omitempty"`
}

// UnmarshalJSON also accepts the "address" key some deploy scripts write
// instead of "contractAddress".
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	aux := struct {
		*plain
		Address *common.Address `json:"address"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.ContractAddress == (common.Address{}) && aux.Address != nil {
		r.ContractAddress = *aux.Address
	}
	return nil
}

// Save writes the record to path as indented JSON, creating the parent
// directory if needed. The file is replaced atomically.
func (r *Record) Save(path string) error {
	if r.ContractAddress == (common.Address{}) {
		return fmt.Errorf("empty contract address")
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a record from path.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := &Record{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("invalid deployment record %s: %w", path, err)
	}
	if r.ContractAddress == (common.Address{}) {
		return nil, fmt.Errorf("deployment record %s has no contract address", path)
	}
	return r, nil
}

// ContractAddress returns address if it is set, or the contract address of
// the record stored at path otherwise.
func ContractAddress(address, path string) (common.Address, error) {
	if address != "" {
		if !common.IsHexAddress(address) {
			return common.Address{}, fmt.Errorf("invalid contract address %q", address)
		}
		return common.HexToAddress(address), nil
	}
	r, err := Load(path)
	if err != nil {
		return common.Address{}, fmt.Errorf("no contract address given and no deployment record: %w", err)
	}
	return r.ContractAddress, nil
}

// Inspector is the subset of a counter binding needed to verify a record.
type Inspector interface {
	Owner(ctx context.Context) (common.Address, error)
	Contract() common.Address
}

// Verify checks that the record describes the contract behind in: same
// address and same owner.
func (r *Record) Verify(ctx context.Context, in Inspector) error {
	if in.Contract() != r.ContractAddress {
		return fmt.Errorf("%w: address %s, record has %s", ErrMismatch, in.Contract().Hex(), r.ContractAddress.Hex())
	}
	owner, err := in.Owner(ctx)
	if err != nil {
		return fmt.Errorf("cannot read contract owner: %w", err)
	}
	if owner != r.Owner {
		return fmt.Errorf("%w: owner %s, record has %s", ErrMismatch, owner.Hex(), r.Owner.Hex())
	}
	return nil
}

// String returns a short human readable description.
func (r *Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s owned by %s", r.ContractAddress.Hex(), r.Network, r.Owner.Hex())
	if !r.DeployedAt.IsZero() {
		fmt.Fprintf(&b, " (deployed %s)", r.DeployedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}
