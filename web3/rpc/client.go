package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/vocdoni/confidential-counter/log"
)

// Client is a bind.ContractBackend and bind.DeployBackend over the
// endpoints of one chain in a Web3Pool. Calls failing at the transport
// level are retried on the next endpoint; errors returned by the node
// itself (reverts, bad nonces) are not.
type Client struct {
	w3p     *Web3Pool
	chainID uint64
}

// retry runs fn against the endpoints of the chain until one answers.
func retry[T any](c *Client, fn func(*ethclient.Client) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	attempts := max(c.w3p.NumberOfEndpoints(c.chainID, false), 1)
	for i := 0; i < attempts; i++ {
		endpoint, err := c.w3p.Endpoint(c.chainID)
		if err != nil {
			return zero, err
		}
		res, err := fn(endpoint.client)
		if err == nil {
			return res, nil
		}
		var rpcErr gethrpc.Error
		if errors.As(err, &rpcErr) || errors.Is(err, ethereum.NotFound) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		log.Warnw("web3 endpoint failed, switching", "chainID", c.chainID, "uri", endpoint.URI, "error", err.Error())
		c.w3p.DisableEndpoint(c.chainID, endpoint.URI)
		lastErr = err
	}
	return zero, fmt.Errorf("all endpoints of chain %d failed: %w", c.chainID, lastErr)
}

// ChainID returns the chain ID of the client.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return retry(c, func(cli *ethclient.Client) ([]byte, error) { return cli.CodeAt(ctx, account, blockNumber) })
}

func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return retry(c, func(cli *ethclient.Client) ([]byte, error) { return cli.CallContract(ctx, call, blockNumber) })
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return retry(c, func(cli *ethclient.Client) (*types.Header, error) { return cli.HeaderByNumber(ctx, number) })
}

func (c *Client) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return retry(c, func(cli *ethclient.Client) ([]byte, error) { return cli.PendingCodeAt(ctx, account) })
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return retry(c, func(cli *ethclient.Client) (uint64, error) { return cli.PendingNonceAt(ctx, account) })
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return retry(c, func(cli *ethclient.Client) (*big.Int, error) { return cli.SuggestGasPrice(ctx) })
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return retry(c, func(cli *ethclient.Client) (*big.Int, error) { return cli.SuggestGasTipCap(ctx) })
}

func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return retry(c, func(cli *ethclient.Client) (uint64, error) { return cli.EstimateGas(ctx, call) })
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := retry(c, func(cli *ethclient.Client) (struct{}, error) { return struct{}{}, cli.SendTransaction(ctx, tx) })
	return err
}

func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return retry(c, func(cli *ethclient.Client) ([]types.Log, error) { return cli.FilterLogs(ctx, query) })
}

func (c *Client) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return retry(c, func(cli *ethclient.Client) (ethereum.Subscription, error) {
		return cli.SubscribeFilterLogs(ctx, query, ch)
	})
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return retry(c, func(cli *ethclient.Client) (*types.Receipt, error) { return cli.TransactionReceipt(ctx, txHash) })
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return retry(c, func(cli *ethclient.Client) (uint64, error) { return cli.BlockNumber(ctx) })
}
