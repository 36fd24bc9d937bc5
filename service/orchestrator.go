package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/web3"
)

// DefaultActionTimeout bounds a whole action: submission, confirmation and
// refresh.
const DefaultActionTimeout = 60 * time.Second

// StatusKind is the kind of a Status.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// ErrorClass classifies the errors reported in a Status.
type ErrorClass string

const (
	ErrorNone       ErrorClass = ""
	ErrorValidation ErrorClass = "validation"
	ErrorRevert     ErrorClass = "revert"
	ErrorProvider   ErrorClass = "provider"
)

var (
	// ErrBusy is returned when an action is requested while another one
	// is still in flight.
	ErrBusy = errors.New("another transaction is in progress")
	// ErrInvalidValue is returned for amounts outside [counter.MinValue, counter.MaxValue].
	ErrInvalidValue = fmt.Errorf("please enter a value between %d and %d", counter.MinValue, counter.MaxValue)
)

// Status is the outcome of an action, ready to be shown to a user.
type Status struct {
	Kind         StatusKind     `json:"kind"`
	Class        ErrorClass     `json:"class,omitempty"`
	Message      string         `json:"message"`
	TxHash       common.Hash    `json:"txHash,omitempty"`
	Total        uint32         `json:"total"`
	Contribution uint32         `json:"contribution"`
	Account      common.Address `json:"account"`
	Err          error          `json:"-"`
}

// Orchestrator drives the transaction workflow of one account against a
// counter backend: validate, submit, wait for the confirmation and refresh
// the displayed values. Only one action runs at a time.
type Orchestrator struct {
	backend CounterBackend
	timeout time.Duration

	busy sync.Mutex
	mu   sync.Mutex
	last Status
}

// NewOrchestrator returns an orchestrator over backend. A zero timeout
// uses DefaultActionTimeout.
func NewOrchestrator(backend CounterBackend, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	return &Orchestrator{
		backend: backend,
		timeout: timeout,
		last:    Status{Kind: StatusInfo, Message: "ready", Account: backend.Account()},
	}
}

// Last returns the status of the last action.
func (o *Orchestrator) Last() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Classify returns the class of an action error.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, ErrInvalidValue), errors.Is(err, ErrBusy):
		return ErrorValidation
	case counter.IsRevert(err):
		return ErrorRevert
	default:
		return ErrorProvider
	}
}

// run executes an action under the busy guard and the action timeout. The
// submit function returns the transaction hash to wait for.
func (o *Orchestrator) run(ctx context.Context, name string, submit func(ctx context.Context) (common.Hash, error)) Status {
	if !o.busy.TryLock() {
		return o.fail(name, common.Hash{}, ErrBusy)
	}
	defer o.busy.Unlock()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	log.Infow("submitting transaction", "action", name, "account", o.backend.Account().Hex())
	txHash, err := submit(ctx)
	if err != nil {
		return o.fail(name, common.Hash{}, err)
	}
	if err := o.backend.WaitTx(ctx, txHash); err != nil {
		return o.fail(name, txHash, err)
	}
	st, err := o.refresh(ctx)
	if err != nil {
		return o.fail(name, txHash, fmt.Errorf("transaction confirmed but refresh failed: %w", err))
	}
	st.Kind = StatusSuccess
	st.TxHash = txHash
	st.Message = fmt.Sprintf("%s confirmed", name)
	log.Infow("transaction confirmed", "action", name, "tx", txHash.Hex(), "total", st.Total)
	o.setLast(st)
	return st
}

func (o *Orchestrator) fail(name string, txHash common.Hash, err error) Status {
	class := Classify(err)
	msg := err.Error()
	if reason, ok := counter.RevertReason(err); ok {
		msg = reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("%s timed out: %v", name, err)
	}
	if errors.Is(err, web3.ErrWrongNetwork) {
		msg = "please switch to the configured network: " + err.Error()
	}
	log.Warnw("action failed", "action", name, "class", string(class), "error", err.Error())
	st := Status{
		Kind:    StatusError,
		Class:   class,
		Message: msg,
		TxHash:  txHash,
		Account: o.backend.Account(),
		Err:     err,
	}
	// a refused action leaves the last status untouched
	if !errors.Is(err, ErrBusy) {
		prev := o.Last()
		st.Total, st.Contribution = prev.Total, prev.Contribution
		o.setLast(st)
	}
	return st
}

func (o *Orchestrator) setLast(st Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = st
}

// refresh reads the public total and the contribution of the account.
func (o *Orchestrator) refresh(ctx context.Context) (Status, error) {
	total, err := o.backend.PublicTotal(ctx)
	if err != nil {
		return Status{}, err
	}
	contribution, err := o.backend.UserContribution(ctx, o.backend.Account())
	if err != nil {
		return Status{}, err
	}
	return Status{Account: o.backend.Account(), Total: total, Contribution: contribution}, nil
}

// Refresh reads the current values without submitting anything.
func (o *Orchestrator) Refresh(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	st, err := o.refresh(ctx)
	if err != nil {
		return o.fail("refresh", common.Hash{}, err)
	}
	st.Kind = StatusInfo
	st.Message = "refreshed"
	o.setLast(st)
	return st
}

// Add validates value and adds it to the counter.
func (o *Orchestrator) Add(ctx context.Context, value uint32) Status {
	if value < counter.MinValue || value > counter.MaxValue {
		return o.fail("add", common.Hash{}, fmt.Errorf("%w, got %d", ErrInvalidValue, value))
	}
	return o.run(ctx, "add", func(ctx context.Context) (common.Hash, error) {
		return o.backend.AddToCounter(ctx, value)
	})
}

// AddRandom adds a random value to the counter.
func (o *Orchestrator) AddRandom(ctx context.Context) Status {
	return o.run(ctx, "random add", o.backend.AddRandomToCounter)
}

// Reset resets the counter. Only the owner succeeds; the owner check is
// left to the counter so the revert reason reaches the status.
func (o *Orchestrator) Reset(ctx context.Context) Status {
	return o.run(ctx, "reset", o.backend.ResetCounter)
}

// DecryptMine decrypts the contribution of the account. The value is
// returned in Status.Contribution. Like transactions, it is refused while
// another action is in progress.
func (o *Orchestrator) DecryptMine(ctx context.Context) Status {
	if !o.busy.TryLock() {
		return o.fail("decrypt", common.Hash{}, ErrBusy)
	}
	defer o.busy.Unlock()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	v, err := o.backend.DecryptMyContribution(ctx)
	if err != nil {
		return o.fail("decrypt", common.Hash{}, err)
	}
	st := o.Last()
	st.Kind = StatusSuccess
	st.Class = ErrorNone
	st.Err = nil
	st.TxHash = common.Hash{}
	st.Contribution = v
	st.Message = fmt.Sprintf("your contribution is %d", v)
	o.setLast(st)
	return st
}
