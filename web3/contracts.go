// Package web3 binds the counter to a ConfidentialCounter contract deployed
// on an EVM chain.
package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/util"
	"github.com/vocdoni/confidential-counter/web3/rpc"
)

const (
	// receiptPollInterval is the delay between receipt lookups in WaitTx.
	receiptPollInterval = 2 * time.Second
	// txOptsTimeout bounds the calls needed to prepare a transaction.
	txOptsTimeout = 10 * time.Second
)

// Contracts contains the binding to a deployed counter contract.
type Contracts struct {
	ChainID  uint64
	contract common.Address
	counter  *bind.BoundContract
	web3pool *rpc.Web3Pool
	cli      *rpc.Client
	privKey  *ecdsa.PrivateKey
	account  common.Address
}

// New connects to the given web3 endpoints. Every endpoint must serve the
// same chain and, if expectedChainID is not zero, that chain must be
// expectedChainID; ErrWrongNetwork is returned otherwise.
func New(expectedChainID uint64, web3rpcs ...string) (*Contracts, error) {
	if len(web3rpcs) == 0 {
		return nil, fmt.Errorf("no web3 endpoints")
	}
	w3pool := rpc.NewWeb3Pool()
	var chainID uint64
	for _, uri := range web3rpcs {
		id, err := w3pool.AddEndpoint(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to add web3 endpoint: %w", err)
		}
		if expectedChainID != 0 && id != expectedChainID {
			return nil, fmt.Errorf("%w: %s serves chain %d, expected %d", ErrWrongNetwork, uri, id, expectedChainID)
		}
		if chainID != 0 && id != chainID {
			return nil, fmt.Errorf("%w: %s serves chain %d, other endpoints serve %d", ErrWrongNetwork, uri, id, chainID)
		}
		chainID = id
	}
	cli, err := w3pool.Client(chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &Contracts{
		ChainID:  chainID,
		web3pool: w3pool,
		cli:      cli,
	}, nil
}

// Bind sets the counter contract address used by the rest of the methods.
func (c *Contracts) Bind(contract common.Address) {
	c.contract = contract
	c.counter = bind.NewBoundContract(contract, counterABI, c.cli, c.cli, c.cli)
}

// SetAccountPrivateKey sets the private key to be used for signing transactions.
func (c *Contracts) SetAccountPrivateKey(hexPrivKey string) error {
	var err error
	c.privKey, err = crypto.HexToECDSA(util.TrimHex(hexPrivKey))
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	c.account = crypto.PubkeyToAddress(c.privKey.PublicKey)
	return nil
}

// Account returns the address of the account used to sign transactions.
func (c *Contracts) Account() common.Address {
	return c.account
}

// Contract returns the bound counter address.
func (c *Contracts) Contract() common.Address {
	return c.contract
}

// Client returns the backend of the binding.
func (c *Contracts) Client() *rpc.Client {
	return c.cli
}

// Web3Pool returns the endpoint pool of the binding.
func (c *Contracts) Web3Pool() *rpc.Web3Pool {
	return c.web3pool
}

func (c *Contracts) bound() (*bind.BoundContract, error) {
	if c.counter == nil {
		return nil, fmt.Errorf("no counter contract bound")
	}
	return c.counter, nil
}

// authTransactOpts helper method creates the transact options with the
// configured private key. It sets the nonce and the gas tip cap; the gas
// limit is estimated by the binding, which also surfaces reverts before
// anything is sent.
func (c *Contracts) authTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if c.privKey == nil {
		return nil, fmt.Errorf("no private key set")
	}
	auth, err := bind.NewKeyedTransactorWithChainID(c.privKey, new(big.Int).SetUint64(c.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	tctx, cancel := context.WithTimeout(ctx, txOptsTimeout)
	defer cancel()
	log.Debugw("getting nonce", "address", c.account.Hex())
	nonce, err := c.cli.PendingNonceAt(tctx, c.account)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	if auth.GasTipCap, err = c.cli.SuggestGasTipCap(tctx); err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	auth.Context = ctx
	return auth, nil
}

// transact sends a transaction calling method and returns its hash.
func (c *Contracts) transact(ctx context.Context, method string, params ...any) (common.Hash, error) {
	bc, err := c.bound()
	if err != nil {
		return common.Hash{}, err
	}
	opts, err := c.authTransactOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := bc.Transact(opts, method, params...)
	if err != nil {
		return common.Hash{}, asRevert(fmt.Errorf("%s: %w", method, err))
	}
	log.Infow("transaction sent", "method", method, "hash", tx.Hash().Hex(), "contract", c.contract.Hex())
	return tx.Hash(), nil
}

// call runs a read only call of method and returns its single output.
func call[T any](ctx context.Context, c *Contracts, method string, params ...any) (T, error) {
	var zero T
	bc, err := c.bound()
	if err != nil {
		return zero, err
	}
	var out []any
	opts := &bind.CallOpts{Context: ctx, From: c.account}
	if err := bc.Call(opts, &out, method, params...); err != nil {
		return zero, asRevert(fmt.Errorf("%s: %w", method, err))
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%s: unexpected outputs %d", method, len(out))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return v, nil
}

func (c *Contracts) AddToCounter(ctx context.Context, value uint32) (common.Hash, error) {
	return c.transact(ctx, "addToCounter", value)
}

func (c *Contracts) AddRandomToCounter(ctx context.Context) (common.Hash, error) {
	return c.transact(ctx, "addRandomToCounter")
}

func (c *Contracts) ResetCounter(ctx context.Context) (common.Hash, error) {
	return c.transact(ctx, "resetCounter")
}

func (c *Contracts) IsCounterAboveThreshold(ctx context.Context, threshold uint32) (common.Hash, error) {
	return c.transact(ctx, "isCounterAboveThreshold", threshold)
}

func (c *Contracts) GetMaxValue(ctx context.Context, value uint32) (common.Hash, error) {
	return c.transact(ctx, "getMaxValue", value)
}

func (c *Contracts) PerformEncryptedOperation(ctx context.Context, op uint8, value uint32) (common.Hash, error) {
	return c.transact(ctx, "performEncryptedOperation", op, value)
}

func (c *Contracts) ConditionalOperation(ctx context.Context, cond bool, ifTrue, ifFalse uint32) (uint32, error) {
	return call[uint32](ctx, c, "conditionalOperation", cond, ifTrue, ifFalse)
}

func (c *Contracts) PublicTotal(ctx context.Context) (uint32, error) {
	return call[uint32](ctx, c, "getPublicTotal")
}

func (c *Contracts) UserContribution(ctx context.Context, account common.Address) (uint32, error) {
	return call[uint32](ctx, c, "getUserContribution", account)
}

// DecryptMyContribution calls decryptMyContribution as the configured
// account.
func (c *Contracts) DecryptMyContribution(ctx context.Context) (uint32, error) {
	return call[uint32](ctx, c, "decryptMyContribution")
}

func (c *Contracts) EncryptedCounter(ctx context.Context) ([]byte, error) {
	return call[[]byte](ctx, c, "getEncryptedCounter")
}

func (c *Contracts) EncryptedUserContribution(ctx context.Context, account common.Address) ([]byte, error) {
	return call[[]byte](ctx, c, "getEncryptedUserContribution", account)
}

func (c *Contracts) Owner(ctx context.Context) (common.Address, error) {
	return call[common.Address](ctx, c, "owner")
}

// WaitTx waits until the transaction is mined. A mined transaction with a
// failed status is returned as a revert.
func (c *Contracts) WaitTx(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.cli.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return &counter.RevertError{Reason: fmt.Sprintf("transaction %s failed", hash.Hex())}
			}
			log.Debugw("transaction mined", "hash", hash.Hex(), "block", receipt.BlockNumber.Uint64())
			return nil
		case !errors.Is(err, ethereum.NotFound):
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for transaction %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
