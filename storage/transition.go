package storage

import (
	"errors"
	"fmt"

	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage/trees"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Transition is the set of changes produced by one state changing call on a
// counter.
type Transition struct {
	State         *CounterState
	Contributions []*Contribution
	Events        []*Event
	Receipt       *Receipt
}

// Commit writes a transition within a single write transaction: either
// every change is persisted or none is. Event sequence numbers are
// assigned here, and the receipt gets the stored events.
func (s *Storage) Commit(t *Transition) error {
	if t == nil || t.State == nil {
		return fmt.Errorf("nil transition")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	contract := t.State.Address
	var tree *trees.TreeRef
	if len(t.Contributions) > 0 {
		var err error
		if tree, err = s.trees.Open(contract, t.State.Epoch); err != nil {
			return fmt.Errorf("open contribution tree: %w", err)
		}
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()

	if err := setArtifactWithTx(prefixeddb.NewPrefixedWriteTx(wTx, counterPrefix), contract.Bytes(), t.State); err != nil {
		return fmt.Errorf("write counter state: %w", err)
	}
	cbTx := prefixeddb.NewPrefixedWriteTx(wTx, contributionPrefix)
	for _, cb := range t.Contributions {
		if cb.Contract != contract || cb.Epoch != t.State.Epoch {
			return fmt.Errorf("contribution of %s does not belong to %s epoch %d", cb.Account.Hex(), contract.Hex(), t.State.Epoch)
		}
		key := contributionKey(contract, cb.Epoch, cb.Account)
		_, err := cbTx.Get(key)
		exists := err == nil
		if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
			return err
		}
		if err := setArtifactWithTx(cbTx, key, cb); err != nil {
			return fmt.Errorf("write contribution: %w", err)
		}
		if err := tree.SetWithTx(wTx, cb.Account, cb.Amount, exists); err != nil {
			return fmt.Errorf("update contribution tree: %w", err)
		}
	}
	if err := appendEventsWithTx(wTx, contract, t.Events); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	if t.Receipt != nil {
		t.Receipt.Events = t.Events
		if err := setArtifactWithTx(prefixeddb.NewPrefixedWriteTx(wTx, receiptPrefix), t.Receipt.TxHash.Bytes(), t.Receipt); err != nil {
			return fmt.Errorf("write receipt: %w", err)
		}
	}
	if err := wTx.Commit(); err != nil {
		return err
	}
	if tree != nil {
		if err := s.trees.Refresh(tree); err != nil {
			log.Warnw("could not refresh contribution tree root", "contract", contract.Hex(), "error", err.Error())
		}
	}
	return nil
}

// ContributionTree returns the contribution tree of the current epoch of a
// counter for reading. An epoch without contributions yields an empty tree
// that is not persisted.
func (s *Storage) ContributionTree(state *CounterState) (*trees.TreeRef, error) {
	return s.trees.View(state.Address, state.Epoch)
}
