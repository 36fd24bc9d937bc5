package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vocdoni/confidential-counter/log"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// eventStream upgrades the request to a websocket and writes every event
// the contract emits as a JSON message. With the from query parameter the
// stored events starting at that sequence number are sent first.
// GET /contracts/{address}/events/ws?from=0
func (a *API) eventStream(w http.ResponseWriter, r *http.Request) {
	contract, ok := a.eventContract(w, r)
	if !ok {
		return
	}
	replay := r.URL.Query().Has("from")
	from, err := uintQuery(r, "from", 64, 0)
	if err != nil {
		ErrMalformedParam.Withf("from: %v", err).Write(w)
		return
	}

	// subscribe before reading the stored events so nothing is lost in between
	sub := a.registry.Broker().Subscribe(contract)
	defer sub.Close()

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgradeError already replied
		log.Warnw("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()
	log.Debugw("event stream opened", "contract", contract.Hex(), "subscription", sub.ID.String())

	write := func(v any) error {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(v)
	}

	next := uint64(0)
	if replay {
		events, err := a.storage.Events(contract, from, 0)
		if err != nil {
			log.Warnw("cannot replay events", "contract", contract.Hex(), "error", err.Error())
			return
		}
		for _, ev := range events {
			if err := write(ev); err != nil {
				return
			}
			next = ev.Seq + 1
		}
	}

	// the read loop handles control frames and detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.Seq < next {
				continue
			}
			if err := write(ev); err != nil {
				log.Debugw("event stream write failed", "subscription", sub.ID.String(), "error", err.Error())
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-a.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteWait))
			return
		case <-r.Context().Done():
			return
		}
	}
}

// upgradeError replies to a failed websocket handshake in the API error
// format, keeping the status chosen by the upgrader.
func upgradeError(w http.ResponseWriter, _ *http.Request, status int, reason error) {
	e := ErrWebsocketUpgrade.WithErr(reason)
	e.HTTPstatus = status
	e.Write(w)
}
