package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/api/client"
	"github.com/vocdoni/confidential-counter/config"
	"github.com/vocdoni/confidential-counter/crypto/ethereum"
	"github.com/vocdoni/confidential-counter/deployment"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/service"
	"github.com/vocdoni/confidential-counter/web3"
)

var errNoPrivateKey = fmt.Errorf("a private key is required (--privkey or %s)", config.EnvPrivateKey)

// env builds the backends of a command from the configuration.
type env struct {
	cfg *config.Config
	out io.Writer
}

func newEnv(cfg *config.Config) *env {
	return &env{cfg: cfg, out: os.Stdout}
}

// signer returns the configured keys. Commands that only read get a
// throwaway key when none is configured.
func (e *env) signer(required bool) (*ethereum.SignKeys, error) {
	keys := ethereum.NewSignKeys()
	if e.cfg.PrivateKey == "" {
		if required {
			return nil, errNoPrivateKey
		}
		return keys, keys.Generate()
	}
	if err := keys.AddHexKey(e.cfg.PrivateKey); err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return keys, nil
}

// contract returns the counter address from --contract or the deployment
// record.
func (e *env) contract() (common.Address, error) {
	return deployment.ContractAddress(e.cfg.ContractAddress, e.cfg.DeploymentFile)
}

func (e *env) node() (*client.HTTPclient, error) {
	cli, err := client.New(e.cfg.NodeURL)
	if err != nil {
		return nil, fmt.Errorf("cannot reach the counter node at %s: %w", e.cfg.NodeURL, err)
	}
	return cli, nil
}

// chain connects to the network endpoints, with the configured account if
// any.
func (e *env) chain(signed bool) (*web3.Contracts, error) {
	contracts, err := web3.New(e.cfg.ChainID, e.cfg.RPCs...)
	if err != nil {
		return nil, err
	}
	switch {
	case e.cfg.PrivateKey != "":
		if err := contracts.SetAccountPrivateKey(e.cfg.PrivateKey); err != nil {
			return nil, err
		}
	case signed:
		return nil, errNoPrivateKey
	}
	return contracts, nil
}

// backend returns the counter at address, driven through the node API or,
// with --chain, through the contract binding.
func (e *env) backend(address common.Address, signed bool) (service.CounterBackend, error) {
	if e.cfg.Chain {
		contracts, err := e.chain(signed)
		if err != nil {
			return nil, err
		}
		contracts.Bind(address)
		return contracts, nil
	}
	keys, err := e.signer(signed)
	if err != nil {
		return nil, err
	}
	cli, err := e.node()
	if err != nil {
		return nil, err
	}
	log.Debugw("using counter node", "url", e.cfg.NodeURL, "account", keys.Address().Hex())
	return cli.Session(keys, address), nil
}

// orchestrator returns an orchestrator over the configured counter.
func (e *env) orchestrator(signed bool) (*service.Orchestrator, error) {
	address, err := e.contract()
	if err != nil {
		return nil, err
	}
	backend, err := e.backend(address, signed)
	if err != nil {
		return nil, err
	}
	return service.NewOrchestrator(backend, e.cfg.TxTimeout), nil
}

// report prints a status, returning an error for failed actions.
func (e *env) report(st service.Status) error {
	if st.Kind == service.StatusError {
		return fmt.Errorf("%s error: %s", st.Class, st.Message)
	}
	fmt.Fprintln(e.out, st.Message)
	if st.TxHash != (common.Hash{}) {
		fmt.Fprintf(e.out, "transaction: %s\n", st.TxHash.Hex())
	}
	fmt.Fprintf(e.out, "public total: %d\n", st.Total)
	fmt.Fprintf(e.out, "contribution of %s: %d\n", st.Account.Hex(), st.Contribution)
	return nil
}
