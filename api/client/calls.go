package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/api"
	"github.com/vocdoni/confidential-counter/crypto/ethereum"
	"github.com/vocdoni/confidential-counter/storage"
)

// endpoint fills the URL parameters of an endpoint template. kv holds
// parameter name and value pairs.
func endpoint(tpl string, kv ...string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		tpl = strings.ReplaceAll(tpl, "{"+kv[i]+"}", kv[i+1])
	}
	return tpl
}

func contractEndpoint(tpl string, contract common.Address) string {
	return endpoint(tpl, api.ContractURLParam, contract.Hex())
}

func userEndpoint(tpl string, contract, user common.Address) string {
	return endpoint(tpl, api.ContractURLParam, contract.Hex(), api.UserURLParam, user.Hex())
}

// Info returns the node info.
func (c *HTTPclient) Info(ctx context.Context) (*api.Info, error) {
	info := &api.Info{}
	if err := c.do(ctx, HTTPGET, nil, nil, info, api.InfoEndpoint); err != nil {
		return nil, err
	}
	return info, nil
}

// ChainID returns the chain ID of the node, which is part of every signed
// request. It is fetched once.
func (c *HTTPclient) ChainID(ctx context.Context) (uint64, error) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()
	if c.chainID != nil {
		return *c.chainID, nil
	}
	info, err := c.Info(ctx)
	if err != nil {
		return 0, err
	}
	c.chainID = &info.ChainID
	return info.ChainID, nil
}

// Nonce returns the next request nonce of account.
func (c *HTTPclient) Nonce(ctx context.Context, account common.Address) (uint64, error) {
	n := &api.Nonce{}
	if err := c.do(ctx, HTTPGET, nil, nil, n, endpoint(api.NonceEndpoint, api.AccountURLParam, account.Hex())); err != nil {
		return 0, err
	}
	return n.Nonce, nil
}

// signedRequest builds a request of method signed by keys with its next
// nonce.
func (c *HTTPclient) signedRequest(ctx context.Context, keys *ethereum.SignKeys, contract common.Address,
	method string, args ...uint32,
) (*api.CallRequest, error) {
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := c.Nonce(ctx, keys.Address())
	if err != nil {
		return nil, err
	}
	return api.NewCallRequest(keys, chainID, contract, method, nonce, args...)
}

// Deploy deploys a new counter owned by keys.
func (c *HTTPclient) Deploy(ctx context.Context, keys *ethereum.SignKeys) (*api.Deployment, error) {
	req, err := c.signedRequest(ctx, keys, common.Address{}, api.MethodDeploy)
	if err != nil {
		return nil, err
	}
	d := &api.Deployment{}
	if err := c.do(ctx, HTTPPOST, req, nil, d, api.ContractsEndpoint); err != nil {
		return nil, err
	}
	return d, nil
}

// Contract returns the description of a counter.
func (c *HTTPclient) Contract(ctx context.Context, contract common.Address) (*api.Contract, error) {
	info := &api.Contract{}
	if err := c.do(ctx, HTTPGET, nil, nil, info, contractEndpoint(api.ContractEndpoint, contract)); err != nil {
		return nil, err
	}
	return info, nil
}

// PublicTotal returns the public total of a counter.
func (c *HTTPclient) PublicTotal(ctx context.Context, contract common.Address) (uint32, error) {
	t := &api.Total{}
	if err := c.do(ctx, HTTPGET, nil, nil, t, contractEndpoint(api.TotalEndpoint, contract)); err != nil {
		return 0, err
	}
	return t.Total, nil
}

// EncryptedTotal returns the encrypted total of a counter.
func (c *HTTPclient) EncryptedTotal(ctx context.Context, contract common.Address) (*api.Encrypted, error) {
	e := &api.Encrypted{}
	if err := c.do(ctx, HTTPGET, nil, nil, e, contractEndpoint(api.EncryptedTotalEndpoint, contract)); err != nil {
		return nil, err
	}
	return e, nil
}

// UserContribution returns the contribution of user to a counter.
func (c *HTTPclient) UserContribution(ctx context.Context, contract, user common.Address) (uint32, error) {
	cb := &api.Contribution{}
	if err := c.do(ctx, HTTPGET, nil, nil, cb, userEndpoint(api.ContributionEndpoint, contract, user)); err != nil {
		return 0, err
	}
	return cb.Amount, nil
}

// EncryptedContribution returns the encrypted contribution of user.
func (c *HTTPclient) EncryptedContribution(ctx context.Context, contract, user common.Address) (*api.Encrypted, error) {
	e := &api.Encrypted{}
	if err := c.do(ctx, HTTPGET, nil, nil, e, userEndpoint(api.EncryptedContributionEndpoint, contract, user)); err != nil {
		return nil, err
	}
	return e, nil
}

// ContributionProof returns the merkle proof of the contribution of user.
func (c *HTTPclient) ContributionProof(ctx context.Context, contract, user common.Address) (*api.ContributionProof, error) {
	p := &api.ContributionProof{}
	if err := c.do(ctx, HTTPGET, nil, nil, p, userEndpoint(api.ContributionProofEndpoint, contract, user)); err != nil {
		return nil, err
	}
	return p, nil
}

var methodEndpoints = map[string]string{
	api.MethodAdd:          api.AddEndpoint,
	api.MethodRandom:       api.RandomEndpoint,
	api.MethodReset:        api.ResetEndpoint,
	api.MethodThreshold:    api.ThresholdEndpoint,
	api.MethodMax:          api.MaxEndpoint,
	api.MethodOperation:    api.OperationEndpoint,
	api.MethodDecrypt:      api.DecryptEndpoint,
	api.MethodDecryptTotal: api.DecryptTotalEndpoint,
}

// Call executes a signed state changing method on a counter.
func (c *HTTPclient) Call(ctx context.Context, keys *ethereum.SignKeys, contract common.Address,
	method string, args ...uint32,
) (*api.CallResult, error) {
	tpl, ok := methodEndpoints[method]
	if !ok || method == api.MethodDecrypt || method == api.MethodDecryptTotal {
		return nil, fmt.Errorf("unknown method %q", method)
	}
	req, err := c.signedRequest(ctx, keys, contract, method, args...)
	if err != nil {
		return nil, err
	}
	res := &api.CallResult{}
	if err := c.do(ctx, HTTPPOST, req, nil, res, contractEndpoint(tpl, contract)); err != nil {
		return nil, err
	}
	return res, nil
}

// Decrypt decrypts the contribution of keys, or the total when total is
// set (owner only).
func (c *HTTPclient) Decrypt(ctx context.Context, keys *ethereum.SignKeys, contract common.Address, total bool) (uint32, error) {
	method := api.MethodDecrypt
	if total {
		method = api.MethodDecryptTotal
	}
	req, err := c.signedRequest(ctx, keys, contract, method)
	if err != nil {
		return 0, err
	}
	d := &api.Decrypted{}
	if err := c.do(ctx, HTTPPOST, req, nil, d, contractEndpoint(methodEndpoints[method], contract)); err != nil {
		return 0, err
	}
	return d.Value, nil
}

// Conditional evaluates the conditional operation on the node.
func (c *HTTPclient) Conditional(ctx context.Context, contract common.Address, cond bool, ifTrue, ifFalse uint32) (uint32, error) {
	res := &api.Conditional{}
	params := []string{
		"cond", strconv.FormatBool(cond),
		"ifTrue", strconv.FormatUint(uint64(ifTrue), 10),
		"ifFalse", strconv.FormatUint(uint64(ifFalse), 10),
	}
	if err := c.do(ctx, HTTPGET, nil, params, res, contractEndpoint(api.ConditionalEndpoint, contract)); err != nil {
		return 0, err
	}
	return res.Result, nil
}

// Events returns a page of the event log of a counter. A limit <= 0 uses
// the server default.
func (c *HTTPclient) Events(ctx context.Context, contract common.Address, from uint64, limit int) (*api.Events, error) {
	ev := &api.Events{}
	params := []string{"from", strconv.FormatUint(from, 10)}
	if limit > 0 {
		params = append(params, "limit", strconv.Itoa(limit))
	}
	if err := c.do(ctx, HTTPGET, nil, params, ev, contractEndpoint(api.EventsEndpoint, contract)); err != nil {
		return nil, err
	}
	return ev, nil
}

// Receipt returns the receipt of a transaction.
func (c *HTTPclient) Receipt(ctx context.Context, txHash common.Hash) (*storage.Receipt, error) {
	rc := &storage.Receipt{}
	if err := c.do(ctx, HTTPGET, nil, nil, rc, endpoint(api.ReceiptEndpoint, api.ReceiptURLParam, txHash.Hex())); err != nil {
		return nil, err
	}
	return rc, nil
}
