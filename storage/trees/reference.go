package trees

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/confidential-counter/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// TreeRef is a reference to a contribution tree. All accesses to the
// underlying tree and its current root are protected by treeMu.
type TreeRef struct {
	ID          uuid.UUID
	Contract    common.Address
	Epoch       uint64
	MaxLevels   int
	HashType    string
	Created     time.Time
	currentRoot []byte
	tree        *arbo.Tree
	treeMu      sync.Mutex
}

// Proof is an inclusion (or exclusion) proof of a contribution.
type Proof struct {
	Root     types.HexBytes `json:"root"`
	Key      types.HexBytes `json:"key"`
	Value    types.HexBytes `json:"value"`
	Siblings types.HexBytes `json:"siblings"`
	Amount   uint32         `json:"amount"`
	Exists   bool           `json:"exists"`
}

// LeafValue encodes a contribution amount as a leaf value.
func LeafValue(amount uint32) []byte {
	return arbo.BigIntToBytes(ValueLen, new(big.Int).SetUint64(uint64(amount)))
}

// Root safely returns the current merkle tree root.
func (tr *TreeRef) Root() []byte {
	tr.treeMu.Lock()
	defer tr.treeMu.Unlock()
	return append([]byte(nil), tr.currentRoot...)
}

// Size safely returns the number of leaves in the merkle tree.
func (tr *TreeRef) Size() int {
	tr.treeMu.Lock()
	defer tr.treeMu.Unlock()
	size, err := tr.tree.GetNLeafs()
	if err != nil {
		return 0
	}
	return size
}

// SetWithTx adds or updates the leaf of account within wTx, which must be
// a transaction over the database the TreeDB was created with. The root is
// not refreshed until TreeDB.Refresh is called after commit.
func (tr *TreeRef) SetWithTx(wTx db.WriteTx, account common.Address, amount uint32, exists bool) error {
	tr.treeMu.Lock()
	defer tr.treeMu.Unlock()
	tx := prefixeddb.NewPrefixedWriteTx(wTx, treePrefix(tr.ID))
	if exists {
		return tr.tree.UpdateWithTx(tx, account.Bytes(), LeafValue(amount))
	}
	return tr.tree.AddWithTx(tx, account.Bytes(), LeafValue(amount))
}

// Proof generates a merkle proof for account against the current root.
func (tr *TreeRef) Proof(account []byte) (*Proof, error) {
	tr.treeMu.Lock()
	defer tr.treeMu.Unlock()
	key, value, siblings, exists, err := tr.tree.GenProof(account)
	if err != nil {
		return nil, err
	}
	p := &Proof{
		Root:     append([]byte(nil), tr.currentRoot...),
		Key:      key,
		Value:    value,
		Siblings: siblings,
		Exists:   exists,
	}
	if exists {
		p.Amount = uint32(arbo.BytesToBigInt(value).Uint64())
	}
	return p, nil
}

// VerifyProof checks an inclusion proof of key/value against root.
func VerifyProof(key, value, root, siblings []byte) bool {
	valid, err := arbo.CheckProof(defaultHashFunction, key, value, root, siblings)
	if err != nil {
		return false
	}
	return valid
}
