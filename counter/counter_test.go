package counter

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/confidential-counter/crypto/ecc/curves"
	"github.com/vocdoni/confidential-counter/crypto/elgamal"
	"github.com/vocdoni/confidential-counter/storage"
	"github.com/vocdoni/confidential-counter/storage/trees"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	userA    = common.HexToAddress("0x000000000000000000000000000000000000000a")
	userB    = common.HexToAddress("0x000000000000000000000000000000000000000b")
)

func newRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	opts = append([]Option{WithMaxDecryptable(10_000)}, opts...)
	return NewRegistry(storage.New(metadb.NewTest(t)), opts...)
}

func deploy(t *testing.T, r *Registry) *Counter {
	t.Helper()
	c, _, err := r.Deploy(deployer)
	qt.Assert(t, err, qt.IsNil)
	return c
}

func TestDeploy(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t)

	ctr, receipt, err := r.Deploy(deployer)
	c.Assert(err, qt.IsNil)
	c.Assert(ctr.Owner(), qt.Equals, deployer)
	c.Assert(ctr.Address(), qt.Equals, ethcrypto.CreateAddress(deployer, 0))
	c.Assert(receipt.Method, qt.Equals, "constructor")

	total, err := ctr.PublicTotal()
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint32(0))

	// the owner can decrypt the fresh encrypted total
	dec, err := ctr.DecryptCounter(deployer)
	c.Assert(err, qt.IsNil)
	c.Assert(dec, qt.Equals, uint32(0))

	_, err = r.Counter(common.HexToAddress("0x01"))
	c.Assert(err, qt.ErrorIs, ErrCounterNotFound)
}

func TestNonOwnerResetReverts(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t)
	ctr := deploy(t, r)

	_, err := ctr.AddToCounter(userA, 10)
	c.Assert(err, qt.IsNil)

	_, err = ctr.ResetCounter(userA)
	reason, ok := RevertReason(err)
	c.Assert(ok, qt.IsTrue)
	c.Assert(reason, qt.Equals, "Only the owner can call this function")
	c.Assert(err, qt.ErrorMatches, "execution reverted: Only the owner can call this function")

	// nothing changed
	total, err := ctr.PublicTotal()
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint32(10))

	_, err = ctr.ResetCounter(deployer)
	c.Assert(err, qt.IsNil)
	total, err = ctr.PublicTotal()
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint32(0))

	// resets can be repeated
	_, err = ctr.ResetCounter(deployer)
	c.Assert(err, qt.IsNil)
}

func TestTwoAccountsAdd(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t)
	ctr := deploy(t, r)

	_, err := ctr.AddToCounter(userA, 10)
	c.Assert(err, qt.IsNil)
	_, err = ctr.AddToCounter(userB, 5)
	c.Assert(err, qt.IsNil)

	total, err := ctr.PublicTotal()
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint32(15))
	a, err := ctr.UserContribution(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(a, qt.Equals, uint32(10))
	b, err := ctr.UserContribution(userB)
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.Equals, uint32(5))

	// encrypted views follow the plaintext ones
	decA, err := ctr.DecryptMyContribution(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(decA, qt.Equals, uint32(10))
	decTotal, err := ctr.DecryptCounter(deployer)
	c.Assert(err, qt.IsNil)
	c.Assert(decTotal, qt.Equals, uint32(15))
	_, err = ctr.DecryptCounter(userA)
	c.Assert(IsRevert(err), qt.IsTrue)
}

func TestValueRange(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t)
	ctr := deploy(t, r)

	for _, v := range []uint32{0, 1001, math.MaxUint32} {
		_, err := ctr.AddToCounter(userA, v)
		reason, ok := RevertReason(err)
		c.Assert(ok, qt.IsTrue)
		c.Assert(reason, qt.Equals, ReasonValueOutOfRange)
	}
	for _, v := range []uint32{1, 1000} {
		_, err := ctr.AddToCounter(userA, v)
		c.Assert(err, qt.IsNil)
	}
	total, err := ctr.PublicTotal()
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint32(1001))
}

func TestSumOfContributionsInvariant(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t)
	ctr := deploy(t, r)

	accounts := []common.Address{userA, userB, deployer}
	values := []uint32{3, 999, 17, 1, 250, 42, 1000, 7}
	for i, v := range values {
		_, err := ctr.AddToCounter(accounts[i%len(accounts)], v)
		c.Assert(err, qt.IsNil)

		st, err := ctr.State()
		c.Assert(err, qt.IsNil)
		cbs, err := r.Storage().Contributions(ctr.Address(), st.Epoch)
		c.Assert(err, qt.IsNil)
		var sum uint32
		for _, cb := range cbs {
			sum += cb.Amount
		}
		c.Assert(sum, qt.Equals, st.Total)
	}

	// after a reset, previous contributions are orphaned
	_, err := ctr.ResetCounter(deployer)
	c.Assert(err, qt.IsNil)
	a, err := ctr.UserContribution(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(a, qt.Equals, uint32(0))
	dec, err := ctr.DecryptMyContribution(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(dec, qt.Equals, uint32(0))

	_, err = ctr.AddToCounter(userA, 4)
	c.Assert(err, qt.IsNil)
	a, err = ctr.UserContribution(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(a, qt.Equals, uint32(4))
}

func TestTotalWrapsInLockStep(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t)
	ctr := deploy(t, r)

	// seed a total and a contribution just below 2^32
	near := uint32(math.MaxUint32 - 5)
	enc, err := elgamal.NewCiphertext(ctr.PublicKey()).Encrypt(new(big.Int).SetUint64(uint64(near)), ctr.PublicKey(), nil)
	c.Assert(err, qt.IsNil)
	st, err := ctr.State()
	c.Assert(err, qt.IsNil)
	st.Total = near
	st.EncryptedTotal = enc.Marshal()
	c.Assert(r.Storage().Commit(&storage.Transition{
		State: st,
		Contributions: []*storage.Contribution{{
			Contract:  ctr.Address(),
			Epoch:     st.Epoch,
			Account:   userA,
			Amount:    near,
			Encrypted: enc.Marshal(),
		}},
	}), qt.IsNil)

	_, err = ctr.AddToCounter(userA, 10)
	c.Assert(err, qt.IsNil)
	_, err = ctr.AddToCounter(userB, 5)
	c.Assert(err, qt.IsNil)

	total, err := ctr.PublicTotal()
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint32(9))
	dec, err := ctr.DecryptCounter(deployer)
	c.Assert(err, qt.IsNil)
	c.Assert(dec, qt.Equals, total)

	mine, err := ctr.DecryptMyContribution(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(mine, qt.Equals, uint32(4))
	plain, err := ctr.UserContribution(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(plain, qt.Equals, mine)

	st, err = ctr.State()
	c.Assert(err, qt.IsNil)
	cbs, err := r.Storage().Contributions(ctr.Address(), st.Epoch)
	c.Assert(err, qt.IsNil)
	var sum uint32
	for _, cb := range cbs {
		sum += cb.Amount
	}
	c.Assert(sum, qt.Equals, total)
}

func TestIndependentDeployments(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t)
	first := deploy(t, r)
	second := deploy(t, r)
	c.Assert(first.Address(), qt.Not(qt.Equals), second.Address())

	_, err := first.AddToCounter(userA, 10)
	c.Assert(err, qt.IsNil)
	total, err := second.PublicTotal()
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint32(0))
	cb, err := second.UserContribution(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(cb, qt.Equals, uint32(0))

	list, err := r.List()
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 2)
}

func TestRandomAdd(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t, WithRandomSource(func() (uint32, error) { return 77, nil }))
	ctr := deploy(t, r)

	receipt, err := ctr.AddRandomToCounter(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Events, qt.HasLen, 1)
	ev := receipt.Events[0]
	c.Assert(ev.Name, qt.Equals, storage.EventRandomValueAdded)
	c.Assert(ev.Value, qt.Equals, uint32(77))
	c.Assert(ev.PublicTotal, qt.Equals, uint32(77))

	// the default source stays in range
	r2 := newRegistry(t)
	ctr2 := deploy(t, r2)
	for i := 0; i < 5; i++ {
		_, err := ctr2.AddRandomToCounter(userB)
		c.Assert(err, qt.IsNil)
	}
	total, err := ctr2.PublicTotal()
	c.Assert(err, qt.IsNil)
	c.Assert(total >= 5 && total <= 5000, qt.IsTrue)
}

func TestHelpers(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t)
	ctr := deploy(t, r)
	_, err := ctr.AddToCounter(userA, 100)
	c.Assert(err, qt.IsNil)

	above, receipt, err := ctr.IsCounterAboveThreshold(userB, 50)
	c.Assert(err, qt.IsNil)
	c.Assert(above, qt.IsTrue)
	c.Assert(receipt.Events[0].Name, qt.Equals, storage.EventThresholdChecked)
	c.Assert(receipt.Events[0].Result, qt.IsTrue)
	above, _, err = ctr.IsCounterAboveThreshold(userB, 100)
	c.Assert(err, qt.IsNil)
	c.Assert(above, qt.IsFalse)

	m, receipt, err := ctr.GetMaxValue(userB, 30)
	c.Assert(err, qt.IsNil)
	c.Assert(m, qt.Equals, uint32(100))
	c.Assert(receipt.Events[0].Max, qt.Equals, uint32(100))
	m, _, err = ctr.GetMaxValue(userB, 300)
	c.Assert(err, qt.IsNil)
	c.Assert(m, qt.Equals, uint32(300))

	reg, _, err := ctr.PerformEncryptedOperation(userA, OpAdd, 7)
	c.Assert(err, qt.IsNil)
	c.Assert(reg, qt.Equals, uint32(7))
	reg, _, err = ctr.PerformEncryptedOperation(userA, OpMul, 6)
	c.Assert(err, qt.IsNil)
	c.Assert(reg, qt.Equals, uint32(42))
	reg, _, err = ctr.PerformEncryptedOperation(userA, OpSub, 43)
	c.Assert(err, qt.IsNil)
	c.Assert(reg, qt.Equals, uint32(math.MaxUint32))
	_, _, err = ctr.PerformEncryptedOperation(userA, 3, 1)
	reason, _ := RevertReason(err)
	c.Assert(reason, qt.Equals, ReasonInvalidOperation)

	// the register never touches the total
	total, err := ctr.PublicTotal()
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, uint32(100))

	c.Assert(ConditionalOperation(true, 10, 5), qt.Equals, uint32(10))
	c.Assert(ConditionalOperation(false, 10, 5), qt.Equals, uint32(15))
}

func TestEventsAndReceipts(t *testing.T) {
	c := qt.New(t)
	now := time.Unix(1700000000, 0)
	r := newRegistry(t, WithClock(func() time.Time { return now }))
	ctr := deploy(t, r)

	sub := r.Broker().Subscribe(ctr.Address())
	defer sub.Close()

	receipt, err := ctr.AddToCounter(userA, 10)
	c.Assert(err, qt.IsNil)
	_, err = ctr.ResetCounter(deployer)
	c.Assert(err, qt.IsNil)

	got, err := r.Receipt(receipt.TxHash)
	c.Assert(err, qt.IsNil)
	c.Assert(got.From, qt.Equals, userA)
	c.Assert(got.Time, qt.Equals, now.Unix())
	_, err = r.Receipt(common.HexToHash("0xdead"))
	c.Assert(err, qt.ErrorIs, ErrTxNotFound)

	events, err := ctr.Events(0, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(events, qt.HasLen, 2)
	c.Assert(events[0].Name, qt.Equals, storage.EventCounterIncremented)
	c.Assert(events[0].PublicTotal, qt.Equals, uint32(10))
	c.Assert(events[1].Name, qt.Equals, storage.EventCounterReset)
	c.Assert(events[1].User, qt.Equals, deployer)

	for _, name := range []string{storage.EventCounterIncremented, storage.EventCounterReset} {
		select {
		case ev := <-sub.C:
			c.Assert(ev.Name, qt.Equals, name)
		case <-time.After(time.Second):
			c.Fatal("timeout waiting for event")
		}
	}
}

func TestContributionProof(t *testing.T) {
	c := qt.New(t)
	r := newRegistry(t, WithCurve(curves.CurveTypeBabyJubJub))
	ctr := deploy(t, r)

	_, err := ctr.AddToCounter(userA, 10)
	c.Assert(err, qt.IsNil)
	_, err = ctr.AddToCounter(userB, 5)
	c.Assert(err, qt.IsNil)

	root, err := ctr.StateRoot()
	c.Assert(err, qt.IsNil)
	proof, err := ctr.ContributionProof(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Exists, qt.IsTrue)
	c.Assert(proof.Amount, qt.Equals, uint32(10))
	c.Assert([]byte(proof.Root), qt.DeepEquals, root)
	c.Assert(trees.VerifyProof(proof.Key, proof.Value, proof.Root, proof.Siblings), qt.IsTrue)

	dec, err := ctr.DecryptMyContribution(userB)
	c.Assert(err, qt.IsNil)
	c.Assert(dec, qt.Equals, uint32(5))

	// reading the fresh epoch after a reset does not create its tree
	_, err = ctr.ResetCounter(deployer)
	c.Assert(err, qt.IsNil)
	st, err := ctr.State()
	c.Assert(err, qt.IsNil)
	emptyRoot, err := ctr.StateRoot()
	c.Assert(err, qt.IsNil)
	c.Assert(emptyRoot, qt.Not(qt.DeepEquals), root)
	proof, err = ctr.ContributionProof(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Exists, qt.IsFalse)
	c.Assert(r.Storage().Trees().Exists(ctr.Address(), st.Epoch), qt.IsFalse)
}

func TestReloadFromStorage(t *testing.T) {
	c := qt.New(t)
	st := storage.New(metadb.NewTest(t))
	r1 := NewRegistry(st, WithMaxDecryptable(1000))
	ctr, _, err := r1.Deploy(deployer)
	c.Assert(err, qt.IsNil)
	_, err = ctr.AddToCounter(userA, 33)
	c.Assert(err, qt.IsNil)

	r2 := NewRegistry(st, WithMaxDecryptable(1000))
	reloaded, err := r2.Counter(ctr.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(reloaded.Owner(), qt.Equals, deployer)
	dec, err := reloaded.DecryptMyContribution(userA)
	c.Assert(err, qt.IsNil)
	c.Assert(dec, qt.Equals, uint32(33))

	// the next deployment of the same account gets a new address
	next, _, err := r2.Deploy(deployer)
	c.Assert(err, qt.IsNil)
	c.Assert(next.Address(), qt.Equals, ethcrypto.CreateAddress(deployer, 1))
}
