package rpc

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestWeb3Iterator(t *testing.T) {
	c := qt.New(t)
	a := &Web3Endpoint{ChainID: 1, URI: "http://a"}
	b := &Web3Endpoint{ChainID: 1, URI: "http://b"}
	it := NewWeb3Iterator(a)
	it.Add(b)

	e, err := it.Next()
	c.Assert(err, qt.IsNil)
	c.Assert(e.URI, qt.Equals, "http://a")

	it.Disable("http://a")
	c.Assert(it.Available(), qt.Equals, 1)
	c.Assert(it.Disabled(), qt.Equals, 1)
	e, err = it.Next()
	c.Assert(err, qt.IsNil)
	c.Assert(e.URI, qt.Equals, "http://b")

	// once every endpoint failed they are all tried again
	it.Disable("http://b")
	e, err = it.Next()
	c.Assert(err, qt.IsNil)
	c.Assert(e.URI, qt.Equals, "http://a")
	c.Assert(it.Available(), qt.Equals, 2)

	_, err = NewWeb3Iterator().Next()
	c.Assert(err, qt.ErrorMatches, "no endpoints")
}

func TestPoolWithoutEndpoints(t *testing.T) {
	c := qt.New(t)
	pool := NewWeb3Pool()
	_, err := pool.Client(1)
	c.Assert(err, qt.ErrorMatches, ".*no endpoint found for chainID 1")
	c.Assert(pool.NumberOfEndpoints(1, false), qt.Equals, 0)
}
