// Package counter implements the confidential counter: an owner gated
// accumulator with a public total, per account contributions and
// EC-ElGamal encrypted views of both. Every deployed counter lives in the
// node storage and is addressed like a contract.
package counter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/confidential-counter/crypto/ecc/curves"
	"github.com/vocdoni/confidential-counter/crypto/elgamal"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
	"github.com/vocdoni/confidential-counter/util"
)

const (
	// MinValue and MaxValue bound the amount accepted by AddToCounter.
	MinValue = 1
	MaxValue = 1000
)

// RandomSource returns a value in [MinValue, MaxValue].
type RandomSource func() (uint32, error)

// DefaultRandomSource draws a uniformly distributed value from crypto/rand.
func DefaultRandomSource() (uint32, error) {
	return util.RandomUint32(MinValue, MaxValue)
}

// Option configures a Registry.
type Option func(*Registry)

// WithCurve sets the curve used for the encryption keys of new counters.
func WithCurve(curveType string) Option {
	return func(r *Registry) { r.curve = curveType }
}

// WithMaxDecryptable bounds the plaintext searched when decrypting.
func WithMaxDecryptable(max uint64) Option {
	return func(r *Registry) { r.maxDecryptable = max }
}

// WithRandomSource replaces the source used by AddRandomToCounter.
func WithRandomSource(src RandomSource) Option {
	return func(r *Registry) { r.random = src }
}

// WithClock replaces the time source used for receipts and events.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry owns every counter deployed on a storage instance.
type Registry struct {
	st             *storage.Storage
	broker         *Broker
	curve          string
	maxDecryptable uint64
	random         RandomSource
	now            func() time.Time

	mu       sync.Mutex
	counters map[common.Address]*Counter
	deployMu sync.Mutex
}

// NewRegistry returns a Registry over st.
func NewRegistry(st *storage.Storage, opts ...Option) *Registry {
	r := &Registry{
		st:             st,
		broker:         NewBroker(),
		curve:          curves.DefaultCurve,
		maxDecryptable: elgamal.DefaultMaxMessage,
		random:         DefaultRandomSource,
		now:            time.Now,
		counters:       make(map[common.Address]*Counter),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Storage returns the underlying storage.
func (r *Registry) Storage() *storage.Storage {
	return r.st
}

// Broker returns the event broker of the registry.
func (r *Registry) Broker() *Broker {
	return r.broker
}

// Deploy creates a new counter owned by deployer. The address is derived
// from the deployer and its deployment nonce, as contract creation does on
// Ethereum, so every deployment gets fresh and independent state.
func (r *Registry) Deploy(deployer common.Address) (*Counter, *storage.Receipt, error) {
	if !curves.IsValid(r.curve) {
		return nil, nil, fmt.Errorf("unsupported curve %q", r.curve)
	}
	r.deployMu.Lock()
	defer r.deployMu.Unlock()

	nonce, err := r.st.DeployNonce(deployer)
	if err != nil {
		return nil, nil, fmt.Errorf("read deploy nonce: %w", err)
	}
	address := ethcrypto.CreateAddress(deployer, nonce)

	curve, err := curves.New(r.curve)
	if err != nil {
		return nil, nil, err
	}
	pubKey, privKey, err := elgamal.GenerateKey(curve)
	if err != nil {
		return nil, nil, fmt.Errorf("generate encryption key: %w", err)
	}
	now := r.now()
	txHash := ethcrypto.Keccak256Hash(deployer.Bytes(), binary.BigEndian.AppendUint64(nil, nonce), []byte("constructor"))
	state := &storage.CounterState{
		Address:        address,
		Owner:          deployer,
		Curve:          r.curve,
		PublicKey:      pubKey.Marshal(),
		PrivateKey:     privKey.Bytes(),
		EncryptedTotal: elgamal.NewCiphertext(curve).Marshal(),
		DeployedAt:     now.Unix(),
		DeployTx:       txHash,
	}
	receipt := &storage.Receipt{
		TxHash:   txHash,
		Contract: address,
		From:     deployer,
		Method:   "constructor",
		Time:     now.Unix(),
	}
	if err := r.st.NewCounter(deployer, state, receipt); err != nil {
		return nil, nil, err
	}
	log.Infow("counter deployed", "address", address.Hex(), "owner", deployer.Hex(), "curve", r.curve)
	c, err := r.Counter(address)
	if err != nil {
		return nil, nil, err
	}
	return c, receipt, nil
}

// Counter returns the counter deployed at address.
func (r *Registry) Counter(address common.Address) (*Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[address]; ok {
		return c, nil
	}
	state, err := r.st.Counter(address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCounterNotFound, address.Hex())
		}
		return nil, err
	}
	curve, err := curves.New(state.Curve)
	if err != nil {
		return nil, err
	}
	pubKey := curve.New()
	if err := pubKey.Unmarshal(state.PublicKey); err != nil {
		return nil, fmt.Errorf("invalid public key of counter %s: %w", address.Hex(), err)
	}
	c := &Counter{
		reg:     r,
		address: address,
		owner:   state.Owner,
		pubKey:  pubKey,
		privKey: new(big.Int).SetBytes(state.PrivateKey),
	}
	r.counters[address] = c
	return c, nil
}

// List returns the addresses of every deployed counter.
func (r *Registry) List() ([]common.Address, error) {
	return r.st.ListCounters()
}

// Receipt returns the receipt of a transaction executed by any counter.
func (r *Registry) Receipt(txHash common.Hash) (*storage.Receipt, error) {
	rc, err := r.st.Receipt(txHash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txHash.Hex())
	}
	return rc, err
}
