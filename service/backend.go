package service

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/web3"
)

// CounterBackend is a counter driven by one account. It is implemented by
// local sessions (counter.Session), node API sessions
// (client.CounterSession) and chain bindings (web3.Contracts).
type CounterBackend interface {
	Account() common.Address
	Contract() common.Address
	AddToCounter(ctx context.Context, value uint32) (common.Hash, error)
	AddRandomToCounter(ctx context.Context) (common.Hash, error)
	ResetCounter(ctx context.Context) (common.Hash, error)
	WaitTx(ctx context.Context, txHash common.Hash) error
	PublicTotal(ctx context.Context) (uint32, error)
	UserContribution(ctx context.Context, account common.Address) (uint32, error)
	DecryptMyContribution(ctx context.Context) (uint32, error)
	Owner(ctx context.Context) (common.Address, error)
}

// EventSource provides the events of a counter deployed on a chain.
type EventSource interface {
	Contract() common.Address
	MonitorEventsByPolling(ctx context.Context, fromBlock uint64, interval time.Duration) (<-chan *web3.EventBatch, error)
}
