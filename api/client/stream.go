package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/vocdoni/confidential-counter/api"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
)

// SubscribeEvents opens the event stream of a counter. If from is not nil
// the stored events starting at *from are received first. The returned
// channel is closed when ctx is done or the connection drops.
func (c *HTTPclient) SubscribeEvents(ctx context.Context, contract common.Address, from *uint64) (<-chan *storage.Event, error) {
	u := *c.host
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = contractEndpoint(api.EventsStreamEndpoint, contract)
	if from != nil {
		u.RawQuery = "from=" + strconv.FormatUint(*from, 10)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("cannot open event stream: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("cannot open event stream: %w", err)
	}
	ch := make(chan *storage.Event)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			ev := &storage.Event{}
			if err := conn.ReadJSON(ev); err != nil {
				if ctx.Err() == nil {
					log.Debugw("event stream closed", "contract", contract.Hex(), "error", err.Error())
				}
				return
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
