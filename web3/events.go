package web3

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
)

// maxBlockRange bounds the block range of a single log query, most public
// providers reject larger ones.
const maxBlockRange = 5000

// DecodeEvent decodes a log of the counter contract.
func DecodeEvent(l types.Log) (*storage.Event, error) {
	if len(l.Topics) < 2 {
		return nil, fmt.Errorf("unexpected log with %d topics", len(l.Topics))
	}
	abiEvent, err := counterABI.EventByID(l.Topics[0])
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := abiEvent.Inputs.NonIndexed().UnpackIntoMap(fields, l.Data); err != nil {
		return nil, fmt.Errorf("cannot unpack %s: %w", abiEvent.Name, err)
	}
	ev := &storage.Event{
		Contract:    l.Address,
		Name:        abiEvent.Name,
		TxHash:      l.TxHash,
		User:        common.BytesToAddress(l.Topics[1].Bytes()),
		BlockNumber: l.BlockNumber,
	}
	if v, ok := fields["publicTotal"].(uint32); ok {
		ev.PublicTotal = v
	}
	if v, ok := fields["threshold"].(uint32); ok {
		ev.Threshold = v
	}
	if v, ok := fields["result"].(bool); ok {
		ev.Result = v
	}
	if v, ok := fields["value"].(uint32); ok {
		ev.Value = v
	}
	if v, ok := fields["maxValue"].(uint32); ok {
		ev.Max = v
	}
	return ev, nil
}

// Events returns the decoded events of the counter between the blocks
// from and to, both included.
func (c *Contracts) Events(ctx context.Context, from, to uint64) ([]*storage.Event, error) {
	if c.counter == nil {
		return nil, fmt.Errorf("no counter contract bound")
	}
	var events []*storage.Event
	for start := from; start <= to; start += maxBlockRange {
		end := min(start+maxBlockRange-1, to)
		logs, err := c.cli.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: []common.Address{c.contract},
		})
		if err != nil {
			return nil, fmt.Errorf("filter logs [%d, %d]: %w", start, end, err)
		}
		for _, l := range logs {
			ev, err := DecodeEvent(l)
			if err != nil {
				log.Warnw("skipping undecodable log", "tx", l.TxHash.Hex(), "error", err.Error())
				continue
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

// EventBatch is a set of events found up to a block.
type EventBatch struct {
	ToBlock uint64
	Events  []*storage.Event
}

// MonitorEventsByPolling polls the chain every interval for new counter
// events, starting at fromBlock. A batch is sent for every polled range,
// even if empty, so the receiver can track the synced block. The channel is
// closed when ctx is done.
func (c *Contracts) MonitorEventsByPolling(ctx context.Context, fromBlock uint64, interval time.Duration) (<-chan *EventBatch, error) {
	if c.counter == nil {
		return nil, fmt.Errorf("no counter contract bound")
	}
	ch := make(chan *EventBatch)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		next := fromBlock
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			head, err := c.cli.BlockNumber(ctx)
			if err != nil {
				log.Warnw("cannot get block number", "error", err.Error())
				continue
			}
			if head < next {
				continue
			}
			events, err := c.Events(ctx, next, head)
			if err != nil {
				log.Warnw("cannot get counter events", "from", next, "to", head, "error", err.Error())
				continue
			}
			select {
			case ch <- &EventBatch{ToBlock: head, Events: events}:
				next = head + 1
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
