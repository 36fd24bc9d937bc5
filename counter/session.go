package counter

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Session binds a counter to a caller account, so it can be driven with
// the same calls as a counter deployed on a chain. Local transactions are
// final once the call returns.
type Session struct {
	counter *Counter
	account common.Address
}

// Session returns a session of account on c.
func (c *Counter) Session(account common.Address) *Session {
	return &Session{counter: c, account: account}
}

// Account returns the caller account of the session.
func (s *Session) Account() common.Address {
	return s.account
}

// Contract returns the counter address.
func (s *Session) Contract() common.Address {
	return s.counter.address
}

func (s *Session) AddToCounter(ctx context.Context, value uint32) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	rc, err := s.counter.AddToCounter(s.account, value)
	if err != nil {
		return common.Hash{}, err
	}
	return rc.TxHash, nil
}

func (s *Session) AddRandomToCounter(ctx context.Context) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	rc, err := s.counter.AddRandomToCounter(s.account)
	if err != nil {
		return common.Hash{}, err
	}
	return rc.TxHash, nil
}

func (s *Session) ResetCounter(ctx context.Context) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	rc, err := s.counter.ResetCounter(s.account)
	if err != nil {
		return common.Hash{}, err
	}
	return rc.TxHash, nil
}

// WaitTx returns nil once the transaction has a receipt.
func (s *Session) WaitTx(ctx context.Context, txHash common.Hash) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.counter.reg.Receipt(txHash)
	return err
}

func (s *Session) PublicTotal(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.counter.PublicTotal()
}

func (s *Session) UserContribution(ctx context.Context, account common.Address) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.counter.UserContribution(account)
}

func (s *Session) DecryptMyContribution(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.counter.DecryptMyContribution(s.account)
}

func (s *Session) Owner(ctx context.Context) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	return s.counter.Owner(), nil
}

// IsRevert reports whether err is a counter revert.
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}
