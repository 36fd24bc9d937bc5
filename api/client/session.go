package client

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/api"
	"github.com/vocdoni/confidential-counter/crypto/ethereum"
)

// receiptPollInterval is the delay between receipt lookups in WaitTx.
const receiptPollInterval = 250 * time.Millisecond

// CounterSession drives one counter on a node as the account of keys.
type CounterSession struct {
	cli      *HTTPclient
	keys     *ethereum.SignKeys
	contract common.Address
}

// Session returns a CounterSession of keys on contract.
func (c *HTTPclient) Session(keys *ethereum.SignKeys, contract common.Address) *CounterSession {
	return &CounterSession{cli: c, keys: keys, contract: contract}
}

// Account returns the caller account of the session.
func (s *CounterSession) Account() common.Address {
	return s.keys.Address()
}

// Contract returns the counter address.
func (s *CounterSession) Contract() common.Address {
	return s.contract
}

func (s *CounterSession) submit(ctx context.Context, method string, args ...uint32) (common.Hash, error) {
	res, err := s.cli.Call(ctx, s.keys, s.contract, method, args...)
	if err != nil {
		return common.Hash{}, err
	}
	return res.Receipt.TxHash, nil
}

func (s *CounterSession) AddToCounter(ctx context.Context, value uint32) (common.Hash, error) {
	return s.submit(ctx, api.MethodAdd, value)
}

func (s *CounterSession) AddRandomToCounter(ctx context.Context) (common.Hash, error) {
	return s.submit(ctx, api.MethodRandom)
}

func (s *CounterSession) ResetCounter(ctx context.Context) (common.Hash, error) {
	return s.submit(ctx, api.MethodReset)
}

// WaitTx polls the node until the transaction receipt is available.
func (s *CounterSession) WaitTx(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		_, err := s.cli.Receipt(ctx, txHash)
		if err == nil {
			return nil
		}
		if !IsCode(err, api.ErrTxNotFound.Code) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-ticker.C:
		}
	}
}

func (s *CounterSession) PublicTotal(ctx context.Context) (uint32, error) {
	return s.cli.PublicTotal(ctx, s.contract)
}

func (s *CounterSession) UserContribution(ctx context.Context, account common.Address) (uint32, error) {
	return s.cli.UserContribution(ctx, s.contract, account)
}

func (s *CounterSession) DecryptMyContribution(ctx context.Context) (uint32, error) {
	return s.cli.Decrypt(ctx, s.keys, s.contract, false)
}

func (s *CounterSession) Owner(ctx context.Context) (common.Address, error) {
	info, err := s.cli.Contract(ctx, s.contract)
	if err != nil {
		return common.Address{}, err
	}
	return info.Owner, nil
}
