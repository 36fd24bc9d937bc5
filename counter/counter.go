package counter

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/confidential-counter/crypto/ecc"
	"github.com/vocdoni/confidential-counter/crypto/elgamal"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
	"github.com/vocdoni/confidential-counter/storage/trees"
)

// Operation codes accepted by PerformEncryptedOperation.
const (
	OpAdd uint8 = iota
	OpSub
	OpMul
)

// Counter is a deployed counter instance. Calls on a counter are
// serialised; different counters never share state.
type Counter struct {
	reg     *Registry
	address common.Address
	owner   common.Address
	pubKey  ecc.Point
	privKey *big.Int
	mu      sync.Mutex
}

// call accumulates the effects of a state changing call until commit.
type call struct {
	state         *storage.CounterState
	caller        common.Address
	hash          common.Hash
	contributions []*storage.Contribution
	events        []*storage.Event
}

func (cl *call) emit(ev *storage.Event) {
	ev.TxHash = cl.hash
	cl.events = append(cl.events, ev)
}

// Address returns the address of the counter.
func (c *Counter) Address() common.Address {
	return c.address
}

// Owner returns the address allowed to reset the counter.
func (c *Counter) Owner() common.Address {
	return c.owner
}

// PublicKey returns the encryption key of the counter.
func (c *Counter) PublicKey() ecc.Point {
	return c.pubKey
}

// State returns a copy of the persisted state.
func (c *Counter) State() (*storage.CounterState, error) {
	return c.reg.st.Counter(c.address)
}

// txHash identifies a call by contract, caller, transaction count, method
// and arguments.
func (c *Counter) txHash(caller common.Address, txCount uint64, method string, args ...uint32) common.Hash {
	buf := make([]byte, 0, 4*len(args))
	for _, a := range args {
		buf = binary.BigEndian.AppendUint32(buf, a)
	}
	return ethcrypto.Keccak256Hash(c.address.Bytes(), caller.Bytes(),
		binary.BigEndian.AppendUint64(nil, txCount), []byte(method), buf)
}

// execute runs fn as a transaction of caller. If fn returns an error the
// state is left untouched; otherwise every effect is committed at once and
// the events are published.
func (c *Counter) execute(caller common.Address, method string, args []uint32, fn func(cl *call) error) (*storage.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.reg.st.Counter(c.address)
	if err != nil {
		return nil, err
	}
	cl := &call{
		state:  state,
		caller: caller,
		hash:   c.txHash(caller, state.TxCount, method, args...),
	}
	if err := fn(cl); err != nil {
		log.Debugw("call reverted", "contract", c.address.Hex(), "method", method, "caller", caller.Hex(), "error", err.Error())
		return nil, err
	}
	now := c.reg.now().Unix()
	for _, ev := range cl.events {
		ev.Time = now
	}
	state.TxCount++
	receipt := &storage.Receipt{
		TxHash:   cl.hash,
		Contract: c.address,
		From:     caller,
		Method:   method,
		Time:     now,
	}
	if err := c.reg.st.Commit(&storage.Transition{
		State:         state,
		Contributions: cl.contributions,
		Events:        cl.events,
		Receipt:       receipt,
	}); err != nil {
		return nil, fmt.Errorf("commit %s: %w", method, err)
	}
	c.reg.broker.Publish(cl.events...)
	log.Debugw("call executed", "contract", c.address.Hex(), "method", method, "caller", caller.Hex(), "tx", cl.hash.Hex())
	return receipt, nil
}

// ciphertext decodes a marshaled ciphertext of this counter; an empty
// input is the encryption of zero.
func (c *Counter) ciphertext(data []byte) (*elgamal.Ciphertext, error) {
	ct := elgamal.NewCiphertext(c.pubKey)
	if len(data) == 0 {
		return ct, nil
	}
	if err := ct.Unmarshal(data); err != nil {
		return nil, err
	}
	return ct, nil
}

// accumulate adds value to the total and to the caller's contribution,
// both in plaintext and homomorphically in the encrypted views.
func (c *Counter) accumulate(cl *call, value uint32) error {
	cb, err := c.reg.st.Contribution(c.address, cl.state.Epoch, cl.caller)
	if err != nil {
		return err
	}
	encValue, err := c.encrypt(value)
	if err != nil {
		return err
	}
	encTotal, err := c.ciphertext(cl.state.EncryptedTotal)
	if err != nil {
		return fmt.Errorf("invalid encrypted total: %w", err)
	}
	encContribution, err := c.ciphertext(cb.Encrypted)
	if err != nil {
		return fmt.Errorf("invalid encrypted contribution: %w", err)
	}
	if encTotal, cl.state.Total, err = c.add(encTotal, cl.state.Total, value, encValue); err != nil {
		return err
	}
	if encContribution, cb.Amount, err = c.add(encContribution, cb.Amount, value, encValue); err != nil {
		return err
	}
	cl.state.EncryptedTotal = encTotal.Marshal()
	cb.Encrypted = encContribution.Marshal()
	cl.contributions = append(cl.contributions, cb)
	return nil
}

func (c *Counter) encrypt(value uint32) (*elgamal.Ciphertext, error) {
	return elgamal.NewCiphertext(c.pubKey).Encrypt(new(big.Int).SetUint64(uint64(value)), c.pubKey, nil)
}

// add returns ct+encValue and plain+value. Plaintexts wrap at 2^32; on
// wrap the ciphertext is replaced by a fresh encryption of the wrapped sum,
// since the group order is far above 2^32.
func (c *Counter) add(ct *elgamal.Ciphertext, plain, value uint32, encValue *elgamal.Ciphertext) (*elgamal.Ciphertext, uint32, error) {
	sum := plain + value
	if sum >= plain {
		return ct.Add(ct, encValue), sum, nil
	}
	fresh, err := c.encrypt(sum)
	if err != nil {
		return nil, 0, err
	}
	return fresh, sum, nil
}

func checkValue(value uint32) error {
	if value < MinValue || value > MaxValue {
		return revert(ReasonValueOutOfRange)
	}
	return nil
}

// AddToCounter adds value, which must be in [MinValue, MaxValue], to the
// total and to the caller's contribution.
func (c *Counter) AddToCounter(caller common.Address, value uint32) (*storage.Receipt, error) {
	return c.execute(caller, "addToCounter", []uint32{value}, func(cl *call) error {
		if err := checkValue(value); err != nil {
			return err
		}
		if err := c.accumulate(cl, value); err != nil {
			return err
		}
		cl.emit(&storage.Event{Name: storage.EventCounterIncremented, User: caller, PublicTotal: cl.state.Total})
		return nil
	})
}

// AddRandomToCounter adds a value drawn from the registry random source.
// The value added is reported in the Value field of the event.
func (c *Counter) AddRandomToCounter(caller common.Address) (*storage.Receipt, error) {
	return c.execute(caller, "addRandomToCounter", nil, func(cl *call) error {
		value, err := c.reg.random()
		if err != nil {
			return fmt.Errorf("random source: %w", err)
		}
		if err := checkValue(value); err != nil {
			return err
		}
		if err := c.accumulate(cl, value); err != nil {
			return err
		}
		cl.emit(&storage.Event{Name: storage.EventRandomValueAdded, User: caller, PublicTotal: cl.state.Total, Value: value})
		return nil
	})
}

// ResetCounter zeroes the total, the encrypted total and the operation
// register and starts a new epoch, so previous contributions read as zero.
// Only the owner can reset.
func (c *Counter) ResetCounter(caller common.Address) (*storage.Receipt, error) {
	return c.execute(caller, "resetCounter", nil, func(cl *call) error {
		if caller != cl.state.Owner {
			return revert(ReasonOnlyOwner)
		}
		cl.state.Total = 0
		cl.state.Register = 0
		cl.state.Epoch++
		cl.state.EncryptedTotal = elgamal.NewCiphertext(c.pubKey).Marshal()
		cl.emit(&storage.Event{Name: storage.EventCounterReset, User: caller})
		return nil
	})
}

// IsCounterAboveThreshold reports whether the total is strictly greater
// than threshold and logs the check.
func (c *Counter) IsCounterAboveThreshold(caller common.Address, threshold uint32) (bool, *storage.Receipt, error) {
	var result bool
	receipt, err := c.execute(caller, "isCounterAboveThreshold", []uint32{threshold}, func(cl *call) error {
		result = cl.state.Total > threshold
		cl.emit(&storage.Event{Name: storage.EventThresholdChecked, User: caller, Threshold: threshold, Result: result})
		return nil
	})
	return result, receipt, err
}

// GetMaxValue returns the maximum of the total and value and logs it.
func (c *Counter) GetMaxValue(caller common.Address, value uint32) (uint32, *storage.Receipt, error) {
	var maxValue uint32
	receipt, err := c.execute(caller, "getMaxValue", []uint32{value}, func(cl *call) error {
		maxValue = cl.state.Total
		if value > maxValue {
			maxValue = value
		}
		cl.emit(&storage.Event{Name: storage.EventMaxValueComputed, User: caller, Value: value, Max: maxValue})
		return nil
	})
	return maxValue, receipt, err
}

// PerformEncryptedOperation applies op with value to the operation
// register and returns the new register. Arithmetic wraps at 32 bits.
func (c *Counter) PerformEncryptedOperation(caller common.Address, op uint8, value uint32) (uint32, *storage.Receipt, error) {
	var register uint32
	receipt, err := c.execute(caller, "performEncryptedOperation", []uint32{uint32(op), value}, func(cl *call) error {
		switch op {
		case OpAdd:
			cl.state.Register += value
		case OpSub:
			cl.state.Register -= value
		case OpMul:
			cl.state.Register *= value
		default:
			return revert(ReasonInvalidOperation)
		}
		register = cl.state.Register
		return nil
	})
	return register, receipt, err
}

// ConditionalOperation returns ifTrue when cond holds and ifTrue+ifFalse
// otherwise.
func ConditionalOperation(cond bool, ifTrue, ifFalse uint32) uint32 {
	if cond {
		return ifTrue
	}
	return ifTrue + ifFalse
}

// PublicTotal returns the plaintext total.
func (c *Counter) PublicTotal() (uint32, error) {
	st, err := c.State()
	if err != nil {
		return 0, err
	}
	return st.Total, nil
}

// UserContribution returns the contribution of account in the current epoch.
func (c *Counter) UserContribution(account common.Address) (uint32, error) {
	cb, err := c.contribution(account)
	if err != nil {
		return 0, err
	}
	return cb.Amount, nil
}

func (c *Counter) contribution(account common.Address) (*storage.Contribution, error) {
	st, err := c.State()
	if err != nil {
		return nil, err
	}
	return c.reg.st.Contribution(c.address, st.Epoch, account)
}

// EncryptedCounter returns the encrypted total.
func (c *Counter) EncryptedCounter() (*elgamal.Ciphertext, error) {
	st, err := c.State()
	if err != nil {
		return nil, err
	}
	return c.ciphertext(st.EncryptedTotal)
}

// EncryptedUserContribution returns the encrypted contribution of account.
func (c *Counter) EncryptedUserContribution(account common.Address) (*elgamal.Ciphertext, error) {
	cb, err := c.contribution(account)
	if err != nil {
		return nil, err
	}
	return c.ciphertext(cb.Encrypted)
}

// DecryptMyContribution decrypts the encrypted contribution of caller.
func (c *Counter) DecryptMyContribution(caller common.Address) (uint32, error) {
	ct, err := c.EncryptedUserContribution(caller)
	if err != nil {
		return 0, err
	}
	return c.decrypt(ct)
}

// DecryptCounter decrypts the encrypted total. Only the owner can decrypt it.
func (c *Counter) DecryptCounter(caller common.Address) (uint32, error) {
	if caller != c.owner {
		return 0, revert(ReasonOnlyOwner)
	}
	ct, err := c.EncryptedCounter()
	if err != nil {
		return 0, err
	}
	return c.decrypt(ct)
}

func (c *Counter) decrypt(ct *elgamal.Ciphertext) (uint32, error) {
	m, err := ct.Decrypt(c.pubKey, c.privKey, c.reg.maxDecryptable)
	if err != nil {
		return 0, err
	}
	if !m.IsUint64() || m.Uint64() > uint64(^uint32(0)) {
		return 0, fmt.Errorf("decrypted value %s overflows uint32", m)
	}
	return uint32(m.Uint64()), nil
}

// Events returns up to limit events with sequence number >= from.
func (c *Counter) Events(from uint64, limit int) ([]*storage.Event, error) {
	return c.reg.st.Events(c.address, from, limit)
}

// ContributionProof returns a merkle proof of the current contribution of
// account against the contribution root.
func (c *Counter) ContributionProof(account common.Address) (*trees.Proof, error) {
	st, err := c.State()
	if err != nil {
		return nil, err
	}
	tree, err := c.reg.st.ContributionTree(st)
	if err != nil {
		return nil, err
	}
	return tree.Proof(account.Bytes())
}

// StateRoot returns the root of the contribution tree of the current epoch.
func (c *Counter) StateRoot() ([]byte, error) {
	st, err := c.State()
	if err != nil {
		return nil, err
	}
	tree, err := c.reg.st.ContributionTree(st)
	if err != nil {
		return nil, err
	}
	return tree.Root(), nil
}
