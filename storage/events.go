package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/log"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// Events returns up to limit events of contract with sequence number >= from,
// in emission order. A limit <= 0 returns every event.
func (s *Storage) Events(contract common.Address, from uint64, limit int) ([]*Event, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, eventPrefix)
	res := []*Event{}
	if err := rd.Iterate(contract.Bytes(), func(_, v []byte) bool {
		ev := &Event{}
		if err := decodeArtifact(v, ev); err != nil {
			log.Warnw("failed to decode event", "contract", contract.Hex(), "error", err.Error())
			return true
		}
		if ev.Seq < from {
			return true
		}
		res = append(res, ev)
		return limit <= 0 || len(res) < limit
	}); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return res, nil
}

// NextEventSeq returns the sequence number the next event of contract gets.
func (s *Storage) NextEventSeq(contract common.Address) (uint64, error) {
	return getUint64(prefixeddb.NewPrefixedReader(s.db, eventSeqPrefix), contract.Bytes())
}

// appendEventsWithTx assigns sequence numbers to events and writes them.
func appendEventsWithTx(wTx db.WriteTx, contract common.Address, events []*Event) error {
	if len(events) == 0 {
		return nil
	}
	seqTx := prefixeddb.NewPrefixedWriteTx(wTx, eventSeqPrefix)
	seq, err := getUint64(seqTx, contract.Bytes())
	if err != nil {
		return err
	}
	evTx := prefixeddb.NewPrefixedWriteTx(wTx, eventPrefix)
	for _, ev := range events {
		ev.Contract = contract
		ev.Seq = seq
		if err := setArtifactWithTx(evTx, eventKey(contract, seq), ev); err != nil {
			return err
		}
		seq++
	}
	return setUint64(seqTx, contract.Bytes(), seq)
}

// AppendChainEvents stores events mirrored from a chain for contract and
// records block as the last block synced.
func (s *Storage) AppendChainEvents(contract common.Address, block uint64, events []*Event) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := appendEventsWithTx(wTx, contract, events); err != nil {
		return err
	}
	if err := setUint64(prefixeddb.NewPrefixedWriteTx(wTx, syncedBlockPrefix), contract.Bytes(), block); err != nil {
		return err
	}
	return wTx.Commit()
}

// LastSyncedBlock returns the last chain block mirrored for contract, or 0.
func (s *Storage) LastSyncedBlock(contract common.Address) (uint64, error) {
	return getUint64(prefixeddb.NewPrefixedReader(s.db, syncedBlockPrefix), contract.Bytes())
}
