package trees

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	contractA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	contractB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	alice     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob       = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// setLeaf writes a leaf in its own transaction and refreshes the root.
func setLeaf(t *testing.T, database db.Database, tdb *TreeDB, ref *TreeRef, account common.Address, amount uint32, exists bool) {
	t.Helper()
	wtx := database.WriteTx()
	defer wtx.Discard()
	qt.Assert(t, ref.SetWithTx(wtx, account, amount, exists), qt.IsNil)
	qt.Assert(t, wtx.Commit(), qt.IsNil)
	qt.Assert(t, tdb.Refresh(ref), qt.IsNil)
}

func TestTreeIDIsDeterministic(t *testing.T) {
	c := qt.New(t)
	c.Assert(TreeID(contractA, 0), qt.Equals, TreeID(contractA, 0))
	c.Assert(TreeID(contractA, 0), qt.Not(qt.Equals), TreeID(contractA, 1))
	c.Assert(TreeID(contractA, 0), qt.Not(qt.Equals), TreeID(contractB, 0))
}

func TestOpenReturnsSamePointer(t *testing.T) {
	t.Parallel()
	tdb := NewTreeDB(metadb.NewTest(t))
	c := qt.New(t)

	c.Assert(tdb.Exists(contractA, 0), qt.IsFalse)
	ref1, err := tdb.Open(contractA, 0)
	c.Assert(err, qt.IsNil)
	ref2, err := tdb.Open(contractA, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(ref1, qt.Equals, ref2)
	c.Assert(tdb.Exists(contractA, 0), qt.IsTrue)
}

func TestConcurrentOpen(t *testing.T) {
	tdb := NewTreeDB(metadb.NewTest(t))
	const numGoroutines = 20
	var wg sync.WaitGroup
	refs := make(chan *TreeRef, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := tdb.Open(contractA, 3)
			if err != nil {
				t.Errorf("open: %v", err)
				return
			}
			refs <- ref
		}()
	}
	wg.Wait()
	close(refs)
	var first *TreeRef
	for r := range refs {
		if first == nil {
			first = r
		}
		qt.Assert(t, r, qt.Equals, first)
	}
}

func TestProofs(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	database := metadb.NewTest(t)
	tdb := NewTreeDB(database)
	ref, err := tdb.Open(contractA, 0)
	c.Assert(err, qt.IsNil)
	emptyRoot := ref.Root()

	setLeaf(t, database, tdb, ref, alice, 10, false)
	setLeaf(t, database, tdb, ref, bob, 5, false)
	c.Assert(ref.Size(), qt.Equals, 2)
	c.Assert(ref.Root(), qt.Not(qt.DeepEquals), emptyRoot)

	proof, err := tdb.ProofByRoot(ref.Root(), alice.Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Exists, qt.IsTrue)
	c.Assert(proof.Amount, qt.Equals, uint32(10))
	c.Assert(VerifyProof(proof.Key, proof.Value, proof.Root, proof.Siblings), qt.IsTrue)

	// a tampered amount does not verify
	c.Assert(VerifyProof(proof.Key, LeafValue(11), proof.Root, proof.Siblings), qt.IsFalse)

	// updating a leaf changes the root and old roots are not served
	oldRoot := ref.Root()
	setLeaf(t, database, tdb, ref, alice, 25, true)
	proof, err = ref.Proof(alice.Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Amount, qt.Equals, uint32(25))
	_, err = tdb.ProofByRoot(oldRoot, alice.Bytes())
	c.Assert(err, qt.ErrorMatches, ".*no longer current.*")

	_, err = tdb.ProofByRoot([]byte("deadbeef"), alice.Bytes())
	c.Assert(err, qt.ErrorMatches, "no contribution tree found.*")
}

func TestPersistenceAcrossInstances(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	database := metadb.NewTest(t)
	tdb1 := NewTreeDB(database)
	ref1, err := tdb1.Open(contractB, 2)
	c.Assert(err, qt.IsNil)
	setLeaf(t, database, tdb1, ref1, bob, 7, false)

	tdb2 := NewTreeDB(database)
	proof, err := tdb2.ProofByRoot(ref1.Root(), bob.Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Amount, qt.Equals, uint32(7))
}

func TestDiscardedTransactionLeavesTreeUntouched(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	database := metadb.NewTest(t)
	tdb := NewTreeDB(database)
	ref, err := tdb.Open(contractA, 0)
	c.Assert(err, qt.IsNil)
	root := ref.Root()

	wtx := database.WriteTx()
	c.Assert(ref.SetWithTx(wtx, alice, 3, false), qt.IsNil)
	wtx.Discard()
	c.Assert(tdb.Refresh(ref), qt.IsNil)
	c.Assert(ref.Root(), qt.DeepEquals, root)
	c.Assert(ref.Size(), qt.Equals, 0)
}

func TestDel(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	database := metadb.NewTest(t)
	tdb := NewTreeDB(database)
	ref, err := tdb.Open(contractA, 1)
	c.Assert(err, qt.IsNil)
	setLeaf(t, database, tdb, ref, alice, 1, false)

	c.Assert(tdb.Del(contractA, 1), qt.IsNil)
	c.Assert(tdb.Exists(contractA, 1), qt.IsFalse)
}

func TestViewDoesNotCreate(t *testing.T) {
	t.Parallel()
	tdb := NewTreeDB(metadb.NewTest(t))
	c := qt.New(t)

	view, err := tdb.View(contractA, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(tdb.Exists(contractA, 3), qt.IsFalse)
	proof, err := view.Proof(contractB.Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Exists, qt.IsFalse)

	// an empty view has the root of a freshly created tree
	ref, err := tdb.Open(contractA, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(view.Root(), qt.DeepEquals, ref.Root())
	again, err := tdb.View(contractA, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.Equals, ref)
}
