package counter

import (
	"errors"
	"fmt"
)

// Revert reasons returned by the counter.
const (
	ReasonOnlyOwner        = "Only the owner can call this function"
	ReasonValueOutOfRange  = "Value must be between 1 and 1000"
	ReasonInvalidOperation = "Invalid operation"
)

var (
	// ErrCounterNotFound is returned when no counter is deployed at an address.
	ErrCounterNotFound = errors.New("counter not found")
	// ErrTxNotFound is returned when a transaction hash is unknown.
	ErrTxNotFound = errors.New("transaction not found")
)

// RevertError is returned when a call is rejected by the counter logic.
// No state is changed by a reverted call.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}

func revert(reason string) error {
	return &RevertError{Reason: reason}
}

// RevertReason returns the revert reason of err, if err is a revert.
func RevertReason(err error) (string, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
