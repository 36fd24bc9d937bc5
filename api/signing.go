package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/crypto/ethereum"
)

// SignaturePayload returns the message signed by the caller of method:
// "<chainId>:<contract>:<method>:<nonce>:<args>", with the contract in
// lower case hex and the arguments comma separated. Deploy requests use
// the zero address as contract.
func SignaturePayload(chainID uint64, contract common.Address, method string, nonce uint64, args []uint32) []byte {
	strArgs := make([]string, len(args))
	for i, a := range args {
		strArgs[i] = strconv.FormatUint(uint64(a), 10)
	}
	return []byte(fmt.Sprintf("%d:%s:%s:%d:%s",
		chainID, strings.ToLower(contract.Hex()), method, nonce, strings.Join(strArgs, ",")))
}

// NewCallRequest builds a signed request for method.
func NewCallRequest(keys *ethereum.SignKeys, chainID uint64, contract common.Address,
	method string, nonce uint64, args ...uint32,
) (*CallRequest, error) {
	sig, err := keys.SignEthereum(SignaturePayload(chainID, contract, method, nonce, args))
	if err != nil {
		return nil, err
	}
	return &CallRequest{Nonce: nonce, Args: args, Signature: sig}, nil
}

// Caller recovers the account that signed req for method on contract.
func (req *CallRequest) Caller(chainID uint64, contract common.Address, method string) (common.Address, error) {
	return ethereum.AddrFromSignature(SignaturePayload(chainID, contract, method, req.Nonce, req.Args), req.Signature)
}
