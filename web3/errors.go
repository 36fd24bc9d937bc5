package web3

import (
	"errors"
	"strings"

	"github.com/vocdoni/confidential-counter/counter"
)

// ErrWrongNetwork is returned when a web3 endpoint serves another chain
// than the configured one.
var ErrWrongNetwork = errors.New("web3 endpoint is connected to the wrong network")

const revertMarker = "execution reverted"

// asRevert converts a node error carrying a revert reason into a
// *counter.RevertError. Other errors are returned as they are.
func asRevert(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	i := strings.Index(msg, revertMarker)
	if i < 0 {
		return err
	}
	reason := strings.TrimPrefix(msg[i+len(revertMarker):], ":")
	return &counter.RevertError{Reason: strings.TrimSpace(reason)}
}
