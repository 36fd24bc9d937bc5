package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
	"github.com/vocdoni/confidential-counter/web3"
)

// EventMonitor represents a service that mirrors the events of a counter
// deployed on a chain into the node storage, and forwards them to the
// event subscribers.
type EventMonitor struct {
	source   EventSource
	storage  *storage.Storage
	broker   *counter.Broker
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewEventMonitor creates a new EventMonitor service. The broker is
// optional.
func NewEventMonitor(source EventSource, stg *storage.Storage, broker *counter.Broker, interval time.Duration) *EventMonitor {
	return &EventMonitor{
		source:   source,
		storage:  stg,
		broker:   broker,
		interval: interval,
	}
}

// Start begins monitoring after the last synced block. It returns an error
// if the service is already running or if it fails to start monitoring.
func (em *EventMonitor) Start(ctx context.Context) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if em.cancel != nil {
		return fmt.Errorf("service already running")
	}
	contract := em.source.Contract()
	from, err := em.storage.LastSyncedBlock(contract)
	if err != nil {
		return fmt.Errorf("cannot read last synced block: %w", err)
	}
	if from > 0 {
		from++
	}

	ctx, cancel := context.WithCancel(ctx)
	batches, err := em.source.MonitorEventsByPolling(ctx, from, em.interval)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start event monitoring: %w", err)
	}
	em.cancel = cancel
	em.done = make(chan struct{})
	log.Infow("event monitor started", "contract", contract.Hex(), "fromBlock", from)
	go em.monitorEvents(ctx, batches, em.done)
	return nil
}

// Stop halts the monitoring service and waits for it to finish.
func (em *EventMonitor) Stop() {
	em.mu.Lock()
	defer em.mu.Unlock()

	if em.cancel != nil {
		em.cancel()
		<-em.done
		em.cancel = nil
	}
}

func (em *EventMonitor) monitorEvents(ctx context.Context, batches <-chan *web3.EventBatch, done chan struct{}) {
	defer close(done)
	contract := em.source.Contract()
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				return
			}
			if err := em.storage.AppendChainEvents(contract, batch.ToBlock, batch.Events); err != nil {
				log.Warnw("failed to store chain events", "contract", contract.Hex(), "block", batch.ToBlock, "error", err.Error())
				continue
			}
			if len(batch.Events) > 0 {
				log.Debugw("chain events mirrored", "contract", contract.Hex(), "count", len(batch.Events), "block", batch.ToBlock)
			}
			if em.broker != nil {
				em.broker.Publish(batch.Events...)
			}
		}
	}
}
