// Package trees keeps one sparse merkle tree per counter and epoch. Leaves
// map a 20 byte account address to its 32 byte contribution amount, so any
// contribution can be proven against a published root.
package trees

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/confidential-counter/log"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	treeDBprefix          = "tr/"
	treeDBreferencePrefix = "trr/"
	treeDBrootPrefix      = "trx/"

	// MaxLevels allows a full 160 bit address as leaf key.
	MaxLevels = 160
	// ValueLen is the size of the amount stored in every leaf.
	ValueLen = 32
)

var (
	// ErrTreeNotFound is returned when a tree is not found in the database.
	ErrTreeNotFound = fmt.Errorf("contribution tree not found in the local database")
	// ErrKeyNotFound is returned when a key is not found in the merkle tree.
	ErrKeyNotFound = fmt.Errorf("key not found")

	defaultHashFunction = arbo.HashFunctionSha256

	// treeNamespace derives deterministic tree IDs from (contract, epoch).
	treeNamespace = uuid.MustParse("6f1c3c52-8d59-4b8e-9a57-2f3c0f6f3c11")
)

// TreeID returns the identifier of the contribution tree of a contract for
// the given epoch.
func TreeID(contract common.Address, epoch uint64) uuid.UUID {
	buf := make([]byte, 0, common.AddressLength+8)
	buf = append(buf, contract.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, epoch)
	return uuid.NewSHA1(treeNamespace, buf)
}

// rootKey converts a root to its canonical hexadecimal string.
func rootKey(root []byte) string {
	return hex.EncodeToString(root)
}

// TreeDB is a persistent database of contribution trees. It keeps the
// loaded trees in memory and an index from root to tree, so proofs can be
// served for any root ever published.
type TreeDB struct {
	mu        sync.RWMutex
	db        db.Database
	loaded    map[uuid.UUID]*TreeRef
	rootIndex map[string]uuid.UUID
}

// NewTreeDB creates a new TreeDB over the given database.
func NewTreeDB(database db.Database) *TreeDB {
	return &TreeDB{
		db:        database,
		loaded:    make(map[uuid.UUID]*TreeRef),
		rootIndex: make(map[string]uuid.UUID),
	}
}

// Open returns the tree of contract for epoch, creating it if it does not
// exist yet.
func (c *TreeDB) Open(contract common.Address, epoch uint64) (*TreeRef, error) {
	id := TreeID(contract, epoch)
	ref, err := c.load(id)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, ErrTreeNotFound) {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ref, ok := c.loaded[id]; ok {
		return ref, nil
	}
	ref = &TreeRef{
		ID:        id,
		Contract:  contract,
		Epoch:     epoch,
		MaxLevels: MaxLevels,
		HashType:  string(defaultHashFunction.Type()),
		Created:   time.Now(),
	}
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(c.db, treePrefix(id)),
		MaxLevels:    MaxLevels,
		HashFunction: defaultHashFunction,
	})
	if err != nil {
		return nil, err
	}
	ref.tree = tree
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	ref.currentRoot = root
	if err := c.writeReference(ref); err != nil {
		return nil, err
	}
	c.loaded[id] = ref
	return ref, nil
}

// View returns the tree of contract for epoch without creating it. A tree
// never written to is served as an empty in-memory tree, so reads leave
// the database untouched.
func (c *TreeDB) View(contract common.Address, epoch uint64) (*TreeRef, error) {
	if c.Exists(contract, epoch) {
		return c.Open(contract, epoch)
	}
	tree, err := arbo.NewTree(arbo.Config{
		Database:     memdb.New(),
		MaxLevels:    MaxLevels,
		HashFunction: defaultHashFunction,
	})
	if err != nil {
		return nil, err
	}
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	return &TreeRef{
		ID:          TreeID(contract, epoch),
		Contract:    contract,
		Epoch:       epoch,
		MaxLevels:   MaxLevels,
		HashType:    string(defaultHashFunction.Type()),
		Created:     time.Now(),
		currentRoot: root,
		tree:        tree,
	}, nil
}

// load returns a tree from memory or from the persistent database.
func (c *TreeDB) load(id uuid.UUID) (*TreeRef, error) {
	c.mu.RLock()
	if ref, ok := c.loaded[id]; ok {
		c.mu.RUnlock()
		return ref, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if ref, ok := c.loaded[id]; ok {
		return ref, nil
	}
	b, err := c.db.Get(referenceKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTreeNotFound, id)
		}
		return nil, err
	}
	var ref TreeRef
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&ref); err != nil {
		return nil, err
	}
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(c.db, treePrefix(id)),
		MaxLevels:    ref.MaxLevels,
		HashFunction: defaultHashFunction,
	})
	if err != nil {
		return nil, err
	}
	ref.tree = tree
	if ref.currentRoot, err = tree.Root(); err != nil {
		return nil, err
	}
	c.loaded[id] = &ref
	return &ref, nil
}

// Exists returns true if the tree of contract for epoch exists.
func (c *TreeDB) Exists(contract common.Address, epoch uint64) bool {
	id := TreeID(contract, epoch)
	c.mu.RLock()
	_, ok := c.loaded[id]
	c.mu.RUnlock()
	if ok {
		return true
	}
	_, err := c.db.Get(referenceKey(id))
	return err == nil
}

// Refresh re-reads the root of a tree after its leaves were written within
// an external transaction and indexes it.
func (c *TreeDB) Refresh(ref *TreeRef) error {
	ref.treeMu.Lock()
	root, err := ref.tree.Root()
	if err != nil {
		ref.treeMu.Unlock()
		return err
	}
	changed := !bytes.Equal(root, ref.currentRoot)
	ref.currentRoot = root
	ref.treeMu.Unlock()
	if !changed {
		return nil
	}
	return c.indexRoot(ref.ID, root)
}

func (c *TreeDB) indexRoot(id uuid.UUID, root []byte) error {
	c.mu.Lock()
	c.rootIndex[rootKey(root)] = id
	c.mu.Unlock()
	wtx := c.db.WriteTx()
	defer wtx.Discard()
	if err := wtx.Set(append([]byte(treeDBrootPrefix), root...), id[:]); err != nil {
		return err
	}
	return wtx.Commit()
}

// treeByRoot finds the tree that published root.
func (c *TreeDB) treeByRoot(root []byte) (*TreeRef, error) {
	c.mu.RLock()
	id, ok := c.rootIndex[rootKey(root)]
	c.mu.RUnlock()
	if !ok {
		b, err := c.db.Get(append([]byte(treeDBrootPrefix), root...))
		if err != nil {
			return nil, fmt.Errorf("no contribution tree found with root %x", root)
		}
		copy(id[:], b)
	}
	return c.load(id)
}

// ProofByRoot generates a merkle proof of leafKey in the tree that
// published root. The root must be the current root of that tree.
func (c *TreeDB) ProofByRoot(root, leafKey []byte) (*Proof, error) {
	ref, err := c.treeByRoot(root)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(ref.Root(), root) {
		return nil, fmt.Errorf("root %x is no longer current for tree %s", root, ref.ID)
	}
	return ref.Proof(leafKey)
}

// Del removes a tree and all its nodes from the database.
func (c *TreeDB) Del(contract common.Address, epoch uint64) error {
	id := TreeID(contract, epoch)
	wtx := c.db.WriteTx()
	if err := wtx.Delete(referenceKey(id)); err != nil {
		wtx.Discard()
		return err
	}
	if err := wtx.Commit(); err != nil {
		return err
	}
	c.mu.Lock()
	if ref, ok := c.loaded[id]; ok {
		delete(c.rootIndex, rootKey(ref.currentRoot))
		delete(c.loaded, id)
	}
	c.mu.Unlock()

	if _, err := deleteTreeFromDatabase(c.db, treePrefix(id)); err != nil {
		log.Warnw("error deleting contribution tree", "id", id.String(), "err", err)
		return err
	}
	return nil
}

// writeReference writes a tree reference to the database.
func (c *TreeDB) writeReference(ref *TreeRef) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ref); err != nil {
		return err
	}
	wtx := c.db.WriteTx()
	defer wtx.Discard()
	if err := wtx.Set(referenceKey(ref.ID), buf.Bytes()); err != nil {
		return err
	}
	return wtx.Commit()
}

// deleteTreeFromDatabase removes all keys below prefix.
func deleteTreeFromDatabase(kv db.Database, prefix []byte) (int, error) {
	database := prefixeddb.NewPrefixedDatabase(kv, prefix)
	var keys [][]byte
	if err := database.Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, bytes.Clone(k))
		return true
	}); err != nil {
		return 0, err
	}
	wtx := database.WriteTx()
	defer wtx.Discard()
	for _, k := range keys {
		if err := wtx.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(keys), wtx.Commit()
}

func treePrefix(id uuid.UUID) []byte {
	return append([]byte(treeDBprefix), id[:]...)
}

func referenceKey(id uuid.UUID) []byte {
	return append([]byte(treeDBreferencePrefix), id[:]...)
}
