package service

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/storage"
	"github.com/vocdoni/confidential-counter/web3"
)

// MockContracts implements a mock version of web3.Contracts for testing: a
// plaintext counter that mines every transaction in its own block.
type MockContracts struct {
	mu       sync.Mutex
	account  common.Address
	owner    common.Address
	contract common.Address
	total    uint32
	contribs map[common.Address]uint32
	block    uint64
	events   []*storage.Event
	mined    map[common.Hash]bool

	// SubmitErr, if set, is returned by every transaction submission.
	SubmitErr error
	// HangWaits makes WaitTx block until its context is done.
	HangWaits bool
	// OnWait, if set, is called when WaitTx starts.
	OnWait func()
}

// NewMockContracts returns a mock counter owned by owner, used as account.
func NewMockContracts(account, owner common.Address) *MockContracts {
	return &MockContracts{
		account:  account,
		owner:    owner,
		contract: ethcrypto.CreateAddress(owner, 0),
		contribs: make(map[common.Address]uint32),
		mined:    make(map[common.Hash]bool),
	}
}

func (m *MockContracts) Account() common.Address  { return m.account }
func (m *MockContracts) Contract() common.Address { return m.contract }

// mine records a transaction emitting ev.
func (m *MockContracts) mine(method string, ev *storage.Event) common.Hash {
	m.block++
	hash := ethcrypto.Keccak256Hash([]byte(method), m.contract.Bytes(), binary.BigEndian.AppendUint64(nil, m.block))
	m.mined[hash] = true
	if ev != nil {
		ev.Contract = m.contract
		ev.TxHash = hash
		ev.BlockNumber = m.block
		m.events = append(m.events, ev)
	}
	return hash
}

func (m *MockContracts) add(value uint32, name string) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return common.Hash{}, m.SubmitErr
	}
	if value < counter.MinValue || value > counter.MaxValue {
		return common.Hash{}, &counter.RevertError{Reason: counter.ReasonValueOutOfRange}
	}
	m.total += value
	m.contribs[m.account] += value
	ev := &storage.Event{Name: name, User: m.account, PublicTotal: m.total}
	if name == storage.EventRandomValueAdded {
		ev.Value = value
	}
	return m.mine(name, ev), nil
}

func (m *MockContracts) AddToCounter(_ context.Context, value uint32) (common.Hash, error) {
	return m.add(value, storage.EventCounterIncremented)
}

func (m *MockContracts) AddRandomToCounter(_ context.Context) (common.Hash, error) {
	return m.add(7, storage.EventRandomValueAdded)
}

func (m *MockContracts) ResetCounter(_ context.Context) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return common.Hash{}, m.SubmitErr
	}
	if m.account != m.owner {
		return common.Hash{}, &counter.RevertError{Reason: counter.ReasonOnlyOwner}
	}
	m.total = 0
	m.contribs = make(map[common.Address]uint32)
	return m.mine("reset", &storage.Event{Name: storage.EventCounterReset, User: m.account}), nil
}

func (m *MockContracts) WaitTx(ctx context.Context, txHash common.Hash) error {
	if m.OnWait != nil {
		m.OnWait()
	}
	if m.HangWaits {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mined[txHash] {
		return counter.ErrTxNotFound
	}
	return nil
}

func (m *MockContracts) PublicTotal(_ context.Context) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, nil
}

func (m *MockContracts) UserContribution(_ context.Context, account common.Address) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contribs[account], nil
}

func (m *MockContracts) DecryptMyContribution(ctx context.Context) (uint32, error) {
	return m.UserContribution(ctx, m.account)
}

func (m *MockContracts) Owner(_ context.Context) (common.Address, error) {
	return m.owner, nil
}

// MonitorEventsByPolling sends the events mined since fromBlock every
// interval.
func (m *MockContracts) MonitorEventsByPolling(ctx context.Context, fromBlock uint64, interval time.Duration) (<-chan *web3.EventBatch, error) {
	ch := make(chan *web3.EventBatch)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		next := fromBlock
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			m.mu.Lock()
			batch := &web3.EventBatch{ToBlock: m.block}
			for _, ev := range m.events {
				if ev.BlockNumber >= next {
					cp := *ev
					batch.Events = append(batch.Events, &cp)
				}
			}
			m.mu.Unlock()
			if batch.ToBlock < next {
				continue
			}
			select {
			case ch <- batch:
				next = batch.ToBlock + 1
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
