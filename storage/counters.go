package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Counter returns the state of the counter deployed at address. It returns
// ErrNotFound if there is no such counter.
func (s *Storage) Counter(address common.Address) (*CounterState, error) {
	st := &CounterState{}
	if err := s.getArtifact(counterPrefix, address.Bytes(), st); err != nil {
		return nil, err
	}
	return st, nil
}

// ListCounters returns the addresses of every counter deployed on the node.
func (s *Storage) ListCounters() ([]common.Address, error) {
	keys, err := s.listArtifacts(counterPrefix)
	if err != nil {
		return nil, err
	}
	addrs := make([]common.Address, 0, len(keys))
	for _, k := range keys {
		addrs = append(addrs, common.BytesToAddress(k))
	}
	return addrs, nil
}

// DeployNonce returns the number of counters deployed by account.
func (s *Storage) DeployNonce(account common.Address) (uint64, error) {
	return getUint64(prefixeddb.NewPrefixedReader(s.db, deployNoncePrefix), account.Bytes())
}

// NewCounter stores the initial state of a counter deployed by deployer and
// increments the deployer's deploy nonce, atomically. The receipt of the
// deployment is stored as well.
func (s *Storage) NewCounter(deployer common.Address, state *CounterState, receipt *Receipt) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if _, err := s.Counter(state.Address); err == nil {
		return fmt.Errorf("counter %s: %w", state.Address.Hex(), ErrAlreadyExists)
	}
	nonce, err := s.DeployNonce(deployer)
	if err != nil {
		return err
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := setArtifactWithTx(prefixeddb.NewPrefixedWriteTx(wTx, counterPrefix), state.Address.Bytes(), state); err != nil {
		return err
	}
	if err := setUint64(prefixeddb.NewPrefixedWriteTx(wTx, deployNoncePrefix), deployer.Bytes(), nonce+1); err != nil {
		return err
	}
	if receipt != nil {
		if err := setArtifactWithTx(prefixeddb.NewPrefixedWriteTx(wTx, receiptPrefix), receipt.TxHash.Bytes(), receipt); err != nil {
			return err
		}
	}
	return wTx.Commit()
}
