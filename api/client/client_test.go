package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/confidential-counter/api"
	"github.com/vocdoni/confidential-counter/counter"
)

func TestEndpoint(t *testing.T) {
	c := qt.New(t)
	contract := common.HexToAddress("0x3d0b39c0239329955b9F0E8791dF9Aa84133c861")
	user := common.HexToAddress("0x0a")
	c.Assert(contractEndpoint(api.TotalEndpoint, contract), qt.Equals,
		"/contracts/0x3d0b39c0239329955b9F0E8791dF9Aa84133c861/total")
	c.Assert(userEndpoint(api.ContributionProofEndpoint, contract, user), qt.Equals,
		"/contracts/0x3d0b39c0239329955b9F0E8791dF9Aa84133c861/contributions/"+user.Hex()+"/proof")
}

func TestDecodeError(t *testing.T) {
	c := qt.New(t)

	err := decodeError(http.StatusBadRequest, []byte(`{"error":"execution reverted: Invalid operation","code":40010}`))
	reason, ok := counter.RevertReason(err)
	c.Assert(ok, qt.IsTrue)
	c.Assert(reason, qt.Equals, counter.ReasonInvalidOperation)

	err = decodeError(http.StatusNotFound, []byte(`{"error":"contract not found: 0x01","code":40007}`))
	c.Assert(IsCode(err, api.ErrContractNotFound.Code), qt.IsTrue)
	c.Assert(counter.IsRevert(err), qt.IsFalse)

	err = decodeError(http.StatusBadGateway, []byte("bad gateway"))
	c.Assert(err, qt.ErrorMatches, `API error: 502 \(bad gateway\)`)
}

func TestOnlyGetIsRetried(t *testing.T) {
	c := qt.New(t)

	var gets, posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits := &gets
		if r.Method == http.MethodPost {
			hits = &posts
		}
		if hits.Add(1) == 1 {
			// drop the connection without an answer
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	host, err := url.Parse(srv.URL)
	c.Assert(err, qt.IsNil)
	cli := &HTTPclient{c: srv.Client(), host: host, retries: DefaultRetries}
	ctx := context.Background()

	_, _, err = cli.Request(ctx, HTTPPOST, map[string]int{"nonce": 0}, nil, api.ContractsEndpoint)
	c.Assert(err, qt.IsNotNil)
	c.Assert(posts.Load(), qt.Equals, int32(1))

	_, status, err := cli.Request(ctx, HTTPGET, nil, nil, api.PingEndpoint)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(gets.Load(), qt.Equals, int32(2))
}

func TestChainIDFetchedOnce(t *testing.T) {
	c := qt.New(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chainId":11155111,"network":"sepolia"}`))
	}))
	t.Cleanup(srv.Close)
	host, err := url.Parse(srv.URL)
	c.Assert(err, qt.IsNil)
	cli := &HTTPclient{c: srv.Client(), host: host, retries: 1}

	var wg sync.WaitGroup
	ids := make([]uint64, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], _ = cli.ChainID(context.Background())
		}()
	}
	wg.Wait()
	for _, id := range ids {
		c.Assert(id, qt.Equals, uint64(11155111))
	}
	c.Assert(hits.Load(), qt.Equals, int32(1))
}
