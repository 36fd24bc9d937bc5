package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/config"
	"github.com/vocdoni/confidential-counter/deployment"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
	"github.com/vocdoni/confidential-counter/web3"
)

const contractName = "ConfidentialCounter"

var features = []string{
	"Encrypted total and contributions (EC-ElGamal)",
	"Random additions",
	"Threshold checks",
	"Max value computation",
	"Encrypted register operations (add, sub, mul)",
	"Selective decryption",
}

// deploy deploys a new counter and writes the deployment record. With
// --chain the contract is deployed from a Hardhat artifact.
func deploy(ctx context.Context, e *env, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TxTimeout)
	defer cancel()

	rec := &deployment.Record{
		Network:      e.cfg.Network,
		ChainID:      e.cfg.ChainID,
		DeployedAt:   time.Now().UTC(),
		ContractName: contractName,
		Features:     features,
	}
	if e.cfg.Chain {
		if len(args) != 1 {
			return fmt.Errorf("usage: counterctl --chain deploy <artifact.json>")
		}
		artifact, err := web3.LoadArtifact(args[0])
		if err != nil {
			return err
		}
		contracts, err := e.chain(true)
		if err != nil {
			return err
		}
		address, txHash, err := contracts.Deploy(ctx, artifact)
		if err != nil {
			return err
		}
		log.Infow("counter deployed", "address", address.Hex(), "tx", txHash.Hex())
		rec.ContractAddress = address
		rec.Owner = contracts.Account()
		if artifact.ContractName != "" {
			rec.ContractName = artifact.ContractName
		}
	} else {
		keys, err := e.signer(true)
		if err != nil {
			return err
		}
		cli, err := e.node()
		if err != nil {
			return err
		}
		d, err := cli.Deploy(ctx, keys)
		if err != nil {
			return err
		}
		rec.ContractAddress = d.Contract.Address
		rec.Owner = d.Contract.Owner
		rec.ChainID = d.Contract.ChainID
	}
	if err := rec.Save(e.cfg.DeploymentFile); err != nil {
		return fmt.Errorf("counter deployed at %s but the record could not be written: %w", rec.ContractAddress.Hex(), err)
	}
	fmt.Fprintf(e.out, "deployed %s\n", rec)
	fmt.Fprintf(e.out, "deployment record written to %s\n", e.cfg.DeploymentFile)
	if network, ok := config.NetworkByChainID(rec.ChainID); ok {
		if url := network.ExplorerURL(rec.ContractAddress.Hex()); url != "" {
			fmt.Fprintf(e.out, "explorer: %s\n", url)
		}
	}
	return nil
}

// verify checks the deployment record against the live counter.
func verify(ctx context.Context, e *env, _ []string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TxTimeout)
	defer cancel()

	rec, err := deployment.Load(e.cfg.DeploymentFile)
	if err != nil {
		return err
	}
	if e.cfg.Chain && rec.ChainID != 0 && rec.ChainID != e.cfg.ChainID {
		return fmt.Errorf("%w: record is for chain %d, configured chain is %d", deployment.ErrMismatch, rec.ChainID, e.cfg.ChainID)
	}
	backend, err := e.backend(rec.ContractAddress, false)
	if err != nil {
		return err
	}
	if err := rec.Verify(ctx, backend); err != nil {
		return err
	}
	total, err := backend.PublicTotal(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "verified %s\npublic total: %d\n", rec, total)
	return nil
}

func add(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: counterctl add <value>")
	}
	value, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid value %q", args[0])
	}
	o, err := e.orchestrator(true)
	if err != nil {
		return err
	}
	return e.report(o.Add(ctx, uint32(value)))
}

func random(ctx context.Context, e *env, _ []string) error {
	o, err := e.orchestrator(true)
	if err != nil {
		return err
	}
	return e.report(o.AddRandom(ctx))
}

func reset(ctx context.Context, e *env, _ []string) error {
	o, err := e.orchestrator(true)
	if err != nil {
		return err
	}
	return e.report(o.Reset(ctx))
}

func total(ctx context.Context, e *env, _ []string) error {
	o, err := e.orchestrator(false)
	if err != nil {
		return err
	}
	return e.report(o.Refresh(ctx))
}

func decrypt(ctx context.Context, e *env, _ []string) error {
	o, err := e.orchestrator(true)
	if err != nil {
		return err
	}
	return e.report(o.DecryptMine(ctx))
}

// contribution prints the plaintext contribution of an account, the
// configured one by default.
func contribution(ctx context.Context, e *env, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TxTimeout)
	defer cancel()

	address, err := e.contract()
	if err != nil {
		return err
	}
	backend, err := e.backend(address, false)
	if err != nil {
		return err
	}
	account := backend.Account()
	if len(args) > 0 {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid account %q", args[0])
		}
		account = common.HexToAddress(args[0])
	}
	v, err := backend.UserContribution(ctx, account)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "contribution of %s: %d\n", account.Hex(), v)
	return nil
}

// events prints the event log as JSON lines, starting at the given event
// sequence number or, with --chain, block number.
func events(ctx context.Context, e *env, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TxTimeout)
	defer cancel()

	var from uint64
	if len(args) > 0 {
		var err error
		if from, err = strconv.ParseUint(args[0], 10, 64); err != nil {
			return fmt.Errorf("invalid start %q", args[0])
		}
	}
	address, err := e.contract()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(e.out)
	emit := func(evs []*storage.Event) error {
		for _, ev := range evs {
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
		return nil
	}

	if e.cfg.Chain {
		contracts, err := e.chain(false)
		if err != nil {
			return err
		}
		contracts.Bind(address)
		head, err := contracts.Client().BlockNumber(ctx)
		if err != nil {
			return err
		}
		evs, err := contracts.Events(ctx, from, head)
		if err != nil {
			return err
		}
		return emit(evs)
	}

	cli, err := e.node()
	if err != nil {
		return err
	}
	for {
		page, err := cli.Events(ctx, address, from, 0)
		if err != nil {
			return err
		}
		if len(page.Events) == 0 {
			return nil
		}
		if err := emit(page.Events); err != nil {
			return err
		}
		from = page.Next
	}
}
