// Package storage keeps the state of every counter hosted by the node in a
// prefixed key-value store. Artifacts are CBOR encoded. The following
// prefixes are used:
//   - 'ct/' for counter states
//   - 'cb/' for contributions (per counter, epoch and account)
//   - 'ev/' for events (per counter, by sequence number)
//   - 'es/' for the next event sequence number of each counter
//   - 'rc/' for transaction receipts
//   - 'n/' for account request nonces
//   - 'dn/' for account deployment nonces
//   - 'sb/' for the last chain block mirrored for a contract
//   - 'tr/' (and 'trr/', 'trx/') for the contribution trees
//
// A counter state transition (state, contributions, events, receipt and
// tree leaves) is committed within a single write transaction.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage/trees"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	counterPrefix      = []byte("ct/")
	contributionPrefix = []byte("cb/")
	eventPrefix        = []byte("ev/")
	eventSeqPrefix     = []byte("es/")
	receiptPrefix      = []byte("rc/")
	noncePrefix        = []byte("n/")
	deployNoncePrefix  = []byte("dn/")
	syncedBlockPrefix  = []byte("sb/")
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNonceMismatch is returned when a request nonce is not the expected one.
	ErrNonceMismatch = errors.New("nonce mismatch")
	// ErrAlreadyExists is returned when creating an artifact that exists.
	ErrAlreadyExists = errors.New("already exists")
)

// Storage wraps the node database.
type Storage struct {
	db    db.Database
	trees *trees.TreeDB
	// globalLock serialises read-modify-write sequences across keys.
	globalLock sync.Mutex
}

// New creates a new Storage instance.
func New(database db.Database) *Storage {
	return &Storage{
		db:    database,
		trees: trees.NewTreeDB(database),
	}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing storage", "error", err.Error())
	}
}

// Trees returns the contribution tree database.
func (s *Storage) Trees() *trees.TreeDB {
	return s.trees
}

// getArtifact decodes the artifact stored under prefix+key into out.
// Returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	return decodeArtifact(data, out)
}

// setArtifact encodes and stores an artifact under prefix+key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	defer wTx.Discard()
	if err := setArtifactWithTx(wTx, key, artifact); err != nil {
		return err
	}
	return wTx.Commit()
}

func setArtifactWithTx(wTx db.WriteTx, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return wTx.Set(key, data)
}

// listArtifacts returns the keys (without the prefix) stored below prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, append([]byte(nil), k...))
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}

// getUint64 reads a big endian counter, returning 0 if it does not exist.
func getUint64(r db.Reader, key []byte) (uint64, error) {
	v, err := r.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("invalid counter value length %d", len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

func setUint64(wTx db.WriteTx, key []byte, v uint64) error {
	return wTx.Set(key, binary.BigEndian.AppendUint64(nil, v))
}
