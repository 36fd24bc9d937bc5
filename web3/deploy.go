package web3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/log"
)

// Artifact is the subset of a Hardhat compilation artifact needed to
// deploy a contract.
type Artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads a Hardhat artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a := &Artifact{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", path, err)
	}
	if len(common.FromHex(a.Bytecode)) == 0 {
		return nil, fmt.Errorf("artifact %s has no bytecode", path)
	}
	return a, nil
}

// Deploy deploys the artifact with the configured account, waits for it to
// be mined and binds the new contract. The artifact ABI must be compatible
// with CounterABI.
func (c *Contracts) Deploy(ctx context.Context, artifact *Artifact) (common.Address, common.Hash, error) {
	parsed, err := abi.JSON(bytes.NewReader(artifact.ABI))
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("invalid artifact ABI: %w", err)
	}
	if _, ok := parsed.Methods["addToCounter"]; !ok {
		return common.Address{}, common.Hash{}, fmt.Errorf("artifact %q is not a counter contract", artifact.ContractName)
	}
	opts, err := c.authTransactOpts(ctx)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	address, tx, _, err := bind.DeployContract(opts, parsed, common.FromHex(artifact.Bytecode), c.cli)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("deploy: %w", asRevert(err))
	}
	log.Infow("deploying counter", "address", address.Hex(), "tx", tx.Hash().Hex())
	if _, err := bind.WaitDeployed(ctx, c.cli, tx); err != nil {
		return common.Address{}, tx.Hash(), fmt.Errorf("waiting for deployment: %w", err)
	}
	c.Bind(address)
	return address, tx.Hash(), nil
}
