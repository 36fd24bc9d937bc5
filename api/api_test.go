package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/confidential-counter/api"
	"github.com/vocdoni/confidential-counter/api/client"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/crypto/ethereum"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
	"go.vocdoni.io/dvote/db/metadb"
)

const testChainID = 31337

func init() {
	log.Init(log.LogLevelDebug, "stdout", nil)
}

// setupAPI starts an API server over a fresh storage and returns a client
// connected to it.
func setupAPI(t *testing.T, opts ...counter.Option) (*api.API, *client.HTTPclient) {
	t.Helper()
	opts = append([]counter.Option{counter.WithMaxDecryptable(100_000)}, opts...)
	return startAPI(t, counter.NewRegistry(storage.New(metadb.NewTest(t)), opts...))
}

func startAPI(t *testing.T, reg *counter.Registry) (*api.API, *client.HTTPclient) {
	t.Helper()
	a, err := api.New(&api.APIConfig{
		Host:     "127.0.0.1",
		Port:     0,
		Registry: reg,
		ChainID:  testChainID,
		Network:  "hardhat",
	})
	qt.Assert(t, err, qt.IsNil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(ctx)
	})
	cli, err := client.New(fmt.Sprintf("http://%s", a.Addr().String()))
	qt.Assert(t, err, qt.IsNil)
	return a, cli
}

func newSigner(t *testing.T) *ethereum.SignKeys {
	t.Helper()
	signer := ethereum.NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)
	return signer
}

func TestCounterLifecycle(t *testing.T) {
	c := qt.New(t)
	_, cli := setupAPI(t)
	ctx := context.Background()
	owner, user := newSigner(t), newSigner(t)

	info, err := cli.Info(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(info.ChainID, qt.Equals, uint64(testChainID))
	c.Assert(info.Contracts, qt.HasLen, 0)

	d, err := cli.Deploy(ctx, owner)
	c.Assert(err, qt.IsNil)
	c.Assert(d.Contract.Owner, qt.Equals, owner.Address())
	c.Assert(d.Contract.Network, qt.Equals, "hardhat")
	contract := d.Contract.Address

	t.Run("add", func(t *testing.T) {
		c := qt.New(t)
		res, err := cli.Call(ctx, user, contract, api.MethodAdd, 42)
		c.Assert(err, qt.IsNil)
		c.Assert(res.Receipt.From, qt.Equals, user.Address())
		c.Assert(res.Receipt.Events, qt.HasLen, 1)
		c.Assert(res.Receipt.Events[0].Name, qt.Equals, storage.EventCounterIncremented)

		total, err := cli.PublicTotal(ctx, contract)
		c.Assert(err, qt.IsNil)
		c.Assert(total, qt.Equals, uint32(42))
		amount, err := cli.UserContribution(ctx, contract, user.Address())
		c.Assert(err, qt.IsNil)
		c.Assert(amount, qt.Equals, uint32(42))

		dec, err := cli.Decrypt(ctx, user, contract, false)
		c.Assert(err, qt.IsNil)
		c.Assert(dec, qt.Equals, uint32(42))

		rc, err := cli.Receipt(ctx, res.Receipt.TxHash)
		c.Assert(err, qt.IsNil)
		c.Assert(rc.Method, qt.Equals, api.MethodAdd)
	})

	t.Run("out of range value reverts", func(t *testing.T) {
		c := qt.New(t)
		_, err := cli.Call(ctx, user, contract, api.MethodAdd, 1001)
		reason, ok := counter.RevertReason(err)
		c.Assert(ok, qt.IsTrue, qt.Commentf("error: %v", err))
		c.Assert(reason, qt.Equals, counter.ReasonValueOutOfRange)
	})

	t.Run("helpers", func(t *testing.T) {
		c := qt.New(t)
		res, err := cli.Call(ctx, user, contract, api.MethodThreshold, 10)
		c.Assert(err, qt.IsNil)
		c.Assert(*res.Result, qt.IsTrue)

		res, err = cli.Call(ctx, user, contract, api.MethodMax, 100)
		c.Assert(err, qt.IsNil)
		c.Assert(*res.Value, qt.Equals, uint32(100))

		res, err = cli.Call(ctx, user, contract, api.MethodOperation, uint32(counter.OpAdd), 7)
		c.Assert(err, qt.IsNil)
		c.Assert(*res.Value, qt.Equals, uint32(7))

		_, err = cli.Call(ctx, user, contract, api.MethodOperation, 300, 7)
		reason, ok := counter.RevertReason(err)
		c.Assert(ok, qt.IsTrue)
		c.Assert(reason, qt.Equals, counter.ReasonInvalidOperation)

		v, err := cli.Conditional(ctx, contract, false, 3, 4)
		c.Assert(err, qt.IsNil)
		c.Assert(v, qt.Equals, uint32(7))
	})

	t.Run("reset", func(t *testing.T) {
		c := qt.New(t)
		_, err := cli.Call(ctx, user, contract, api.MethodReset)
		reason, ok := counter.RevertReason(err)
		c.Assert(ok, qt.IsTrue)
		c.Assert(reason, qt.Equals, counter.ReasonOnlyOwner)

		_, err = cli.Decrypt(ctx, user, contract, true)
		c.Assert(counter.IsRevert(err), qt.IsTrue)

		_, err = cli.Call(ctx, owner, contract, api.MethodReset)
		c.Assert(err, qt.IsNil)
		total, err := cli.PublicTotal(ctx, contract)
		c.Assert(err, qt.IsNil)
		c.Assert(total, qt.Equals, uint32(0))
		dec, err := cli.Decrypt(ctx, owner, contract, true)
		c.Assert(err, qt.IsNil)
		c.Assert(dec, qt.Equals, uint32(0))
	})

	t.Run("events", func(t *testing.T) {
		c := qt.New(t)
		page, err := cli.Events(ctx, contract, 0, 2)
		c.Assert(err, qt.IsNil)
		c.Assert(page.Events, qt.HasLen, 2)
		c.Assert(page.Next, qt.Equals, uint64(2))
		rest, err := cli.Events(ctx, contract, page.Next, 0)
		c.Assert(err, qt.IsNil)
		c.Assert(rest.Events[len(rest.Events)-1].Name, qt.Equals, storage.EventCounterReset)
	})
}

func TestSignedRequestReplay(t *testing.T) {
	c := qt.New(t)
	_, cli := setupAPI(t)
	ctx := context.Background()
	owner := newSigner(t)

	d, err := cli.Deploy(ctx, owner)
	c.Assert(err, qt.IsNil)
	contract := d.Contract.Address

	nonce, err := cli.Nonce(ctx, owner.Address())
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(1))

	req, err := api.NewCallRequest(owner, testChainID, contract, api.MethodAdd, nonce, 5)
	c.Assert(err, qt.IsNil)
	path := fmt.Sprintf("/contracts/%s/add", contract.Hex())

	body, status, err := cli.Request(ctx, http.MethodPost, req, nil, path)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("response body %s", body))

	body, status, err = cli.Request(ctx, http.MethodPost, req, nil, path)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, api.ErrInvalidNonce.HTTPstatus)
	c.Assert(string(body), qt.Contains, fmt.Sprint(api.ErrInvalidNonce.Code))

	// a request signed for another chain recovers another address, whose
	// nonce does not match
	other, err := api.NewCallRequest(owner, 1, contract, api.MethodAdd, nonce+1, 5)
	c.Assert(err, qt.IsNil)
	_, status, err = cli.Request(ctx, http.MethodPost, other, nil, path)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, api.ErrInvalidNonce.HTTPstatus)

	// wrong argument count
	bad, err := api.NewCallRequest(owner, testChainID, contract, api.MethodAdd, nonce+1)
	c.Assert(err, qt.IsNil)
	body, status, err = cli.Request(ctx, http.MethodPost, bad, nil, path)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	c.Assert(string(body), qt.Contains, fmt.Sprint(api.ErrInvalidArguments.Code))
}

func TestNotFound(t *testing.T) {
	c := qt.New(t)
	_, cli := setupAPI(t)
	ctx := context.Background()

	_, err := cli.PublicTotal(ctx, common.HexToAddress("0x01"))
	c.Assert(client.IsCode(err, api.ErrContractNotFound.Code), qt.IsTrue, qt.Commentf("error: %v", err))

	_, err = cli.Receipt(ctx, common.HexToHash("0x01"))
	c.Assert(client.IsCode(err, api.ErrTxNotFound.Code), qt.IsTrue)

	_, status, err := cli.Request(ctx, http.MethodGet, nil, nil, "/contracts/notanaddress/total")
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
}

func TestEventStream(t *testing.T) {
	c := qt.New(t)
	_, cli := setupAPI(t, counter.WithRandomSource(func() (uint32, error) { return 9, nil }))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	owner := newSigner(t)

	d, err := cli.Deploy(ctx, owner)
	c.Assert(err, qt.IsNil)
	contract := d.Contract.Address
	_, err = cli.Call(ctx, owner, contract, api.MethodAdd, 3)
	c.Assert(err, qt.IsNil)

	from := uint64(0)
	events, err := cli.SubscribeEvents(ctx, contract, &from)
	c.Assert(err, qt.IsNil)

	// the stored event is replayed
	ev := <-events
	c.Assert(ev.Name, qt.Equals, storage.EventCounterIncremented)
	c.Assert(ev.PublicTotal, qt.Equals, uint32(3))

	_, err = cli.Call(ctx, owner, contract, api.MethodRandom)
	c.Assert(err, qt.IsNil)
	select {
	case ev = <-events:
		c.Assert(ev.Name, qt.Equals, storage.EventRandomValueAdded)
		c.Assert(ev.Value, qt.Equals, uint32(9))
		c.Assert(ev.PublicTotal, qt.Equals, uint32(12))
	case <-ctx.Done():
		c.Fatal("timeout waiting for the live event")
	}

	// a plain GET is not a websocket handshake
	wsPath := strings.Replace(api.EventsStreamEndpoint, "{"+api.ContractURLParam+"}", contract.Hex(), 1)
	data, status, err := cli.Request(ctx, client.HTTPGET, nil, nil, wsPath)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest)
	apiErr := &client.Error{}
	c.Assert(json.Unmarshal(data, apiErr), qt.IsNil)
	c.Assert(apiErr.Code, qt.Equals, api.ErrWebsocketUpgrade.Code)
}

func TestMirroredEvents(t *testing.T) {
	c := qt.New(t)
	st := storage.New(metadb.NewTest(t))
	_, cli := startAPI(t, counter.NewRegistry(st))
	ctx := context.Background()
	contract := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	// unknown until the node mirrors a block of the contract
	_, err := cli.Events(ctx, contract, 0, 0)
	c.Assert(client.IsCode(err, api.ErrContractNotFound.Code), qt.IsTrue, qt.Commentf("error: %v", err))

	c.Assert(st.AppendChainEvents(contract, 12, []*storage.Event{
		{Name: storage.EventCounterIncremented, PublicTotal: 5, BlockNumber: 12},
	}), qt.IsNil)
	events, err := cli.Events(ctx, contract, 0, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(events.Events, qt.HasLen, 1)
	c.Assert(events.Events[0].PublicTotal, qt.Equals, uint32(5))
	c.Assert(events.Next, qt.Equals, uint64(1))

	// counter reads stay limited to local counters
	_, err = cli.PublicTotal(ctx, contract)
	c.Assert(client.IsCode(err, api.ErrContractNotFound.Code), qt.IsTrue)
}
