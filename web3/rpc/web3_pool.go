// Package rpc pools web3 endpoints by chain ID. A Client built from the
// pool implements the go-ethereum bind backends for one chain and moves to
// the next endpoint of that chain when a call fails. Once every endpoint of
// a chain has failed they are all given another chance.
package rpc

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/confidential-counter/log"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxWeb3ClientRetries bounds the dial attempts of a new endpoint.
	DefaultMaxWeb3ClientRetries = 5
	// checkWeb3EndpointsTimeout bounds the probing of a new endpoint.
	checkWeb3EndpointsTimeout = 10 * time.Second
	// unsupportedTxMsg is returned by nodes that hold a transaction of a
	// type their client cannot decode, which still proves they have it.
	unsupportedTxMsg = "transaction type not supported"
)

var notFoundRgx = regexp.MustCompile(`not\s[be\s|]*found`)

// Web3Pool groups the endpoints added to it by the chain they serve.
type Web3Pool struct {
	mu        sync.RWMutex
	endpoints map[uint64]*Web3Iterator
}

// NewWeb3Pool returns an empty pool.
func NewWeb3Pool() *Web3Pool {
	return &Web3Pool{endpoints: make(map[uint64]*Web3Iterator)}
}

// AddEndpoint dials uri, asks for its chain ID and adds it to the pool.
// It returns the chain ID served by the endpoint.
func (p *Web3Pool) AddEndpoint(uri string) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkWeb3EndpointsTimeout)
	defer cancel()
	endpoint, err := dialEndpoint(ctx, uri)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if it, ok := p.endpoints[endpoint.ChainID]; ok {
		it.Add(endpoint)
	} else {
		p.endpoints[endpoint.ChainID] = NewWeb3Iterator(endpoint)
	}
	log.Infow("web3 endpoint added", "chainID", endpoint.ChainID, "uri", uri, "archive", endpoint.IsArchive)
	return endpoint.ChainID, nil
}

func (p *Web3Pool) iterator(chainID uint64) (*Web3Iterator, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	it, ok := p.endpoints[chainID]
	return it, ok
}

// Endpoint returns the next available endpoint of chainID.
func (p *Web3Pool) Endpoint(chainID uint64) (*Web3Endpoint, error) {
	it, ok := p.iterator(chainID)
	if !ok {
		return nil, fmt.Errorf("no endpoint found for chainID %d", chainID)
	}
	return it.Next()
}

// DisableEndpoint flags the endpoint uri of chainID as failed.
func (p *Web3Pool) DisableEndpoint(chainID uint64, uri string) {
	if it, ok := p.iterator(chainID); ok {
		it.Disable(uri)
	}
}

// NumberOfEndpoints counts the endpoints of chainID, only the available
// ones if onlyAvailable is set.
func (p *Web3Pool) NumberOfEndpoints(chainID uint64, onlyAvailable bool) int {
	it, ok := p.iterator(chainID)
	if !ok {
		return 0
	}
	if onlyAvailable {
		return it.Available()
	}
	return it.Available() + it.Disabled()
}

// Client returns a failover client over the endpoints of chainID.
func (p *Web3Pool) Client(chainID uint64) (*Client, error) {
	if _, err := p.Endpoint(chainID); err != nil {
		return nil, fmt.Errorf("error getting endpoint for chainID %d: %w", chainID, err)
	}
	return &Client{w3p: p, chainID: chainID}, nil
}

// CurrentBlockNumbers returns the head block of every chain in the pool,
// keyed by chain ID. Chains are queried concurrently.
func (p *Web3Pool) CurrentBlockNumbers(ctx context.Context) (map[uint64]uint64, error) {
	p.mu.RLock()
	chainIDs := make([]uint64, 0, len(p.endpoints))
	for chainID := range p.endpoints {
		chainIDs = append(chainIDs, chainID)
	}
	p.mu.RUnlock()

	var mu sync.Mutex
	heads := make(map[uint64]uint64, len(chainIDs))
	g, gctx := errgroup.WithContext(ctx)
	for _, chainID := range chainIDs {
		g.Go(func() error {
			cli, err := p.Client(chainID)
			if err != nil {
				return err
			}
			head, err := cli.BlockNumber(gctx)
			if err != nil {
				return fmt.Errorf("error getting block number for chainID %d: %w", chainID, err)
			}
			mu.Lock()
			heads[chainID] = head
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return heads, nil
}

// dialEndpoint dials uri and describes the endpoint behind it.
func dialEndpoint(ctx context.Context, uri string) (*Web3Endpoint, error) {
	var (
		client *ethclient.Client
		err    error
	)
	for range DefaultMaxWeb3ClientRetries {
		if client, err = ethclient.DialContext(ctx, uri); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error dialing web3 provider uri '%s': %w", uri, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("error getting the chainID from the web3 provider '%s': %w", uri, err)
	}
	archive, err := isArchiveNode(ctx, client)
	if err != nil {
		log.Debugw("cannot check if the web3 provider is an archive node", "uri", uri, "error", err.Error())
	}
	return &Web3Endpoint{
		ChainID:   chainID.Uint64(),
		URI:       uri,
		IsArchive: archive,
		client:    client,
	}, nil
}

// isArchiveNode reports whether the node still serves the transactions of
// block 1, which pruned nodes drop.
func isArchiveNode(ctx context.Context, client *ethclient.Client) (bool, error) {
	block, err := client.BlockByNumber(ctx, big.NewInt(1))
	if err != nil {
		if strings.Contains(err.Error(), unsupportedTxMsg) {
			return true, nil
		}
		return false, fmt.Errorf("error getting block 1: %w", err)
	}
	_, err = client.TransactionCount(ctx, block.Hash())
	switch {
	case err == nil:
		return true, nil
	case notFoundRgx.MatchString(err.Error()):
		return false, nil
	case strings.Contains(err.Error(), unsupportedTxMsg):
		return true, nil
	default:
		return false, fmt.Errorf("error getting transactions of block 1: %w", err)
	}
}
