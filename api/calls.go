package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
)

// maxBodySize bounds the size of signed request bodies.
const maxBodySize = 1 << 16

// authenticate decodes the signed request of method on contract, recovers
// the caller and consumes its nonce. On failure the error response is
// written and ok is false.
func (a *API) authenticate(w http.ResponseWriter, r *http.Request, contract common.Address, method string,
) (caller common.Address, args []uint32, ok bool) {
	req := &CallRequest{}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return common.Address{}, nil, false
	}
	if err := a.validate.Struct(req); err != nil {
		ErrValidationFailed.WithErr(err).Write(w)
		return common.Address{}, nil, false
	}
	if want := methodArgs[method]; len(req.Args) != want {
		ErrInvalidArguments.Withf("%s takes %d, got %d", method, want, len(req.Args)).Write(w)
		return common.Address{}, nil, false
	}
	caller, err := req.Caller(a.chainID, contract, method)
	if err != nil {
		ErrInvalidSignature.WithErr(err).Write(w)
		return common.Address{}, nil, false
	}
	if err := a.storage.ConsumeNonce(caller, req.Nonce); err != nil {
		if errors.Is(err, storage.ErrNonceMismatch) {
			ErrInvalidNonce.WithErr(err).Write(w)
		} else {
			ErrStorageFailure.WithErr(err).Write(w)
		}
		return common.Address{}, nil, false
	}
	log.Debugw("authenticated request", "method", method, "caller", caller.Hex(), "nonce", req.Nonce)
	return caller, req.Args, true
}

// call returns the handler of a signed state changing method
// POST /contracts/{address}/{add,random,reset,threshold,max,operation}
func (a *API) call(method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := a.loadCounter(w, r)
		if !ok {
			return
		}
		caller, args, ok := a.authenticate(w, r, c.Address(), method)
		if !ok {
			return
		}
		res := &CallResult{}
		var err error
		switch method {
		case MethodAdd:
			res.Receipt, err = c.AddToCounter(caller, args[0])
		case MethodRandom:
			res.Receipt, err = c.AddRandomToCounter(caller)
		case MethodReset:
			res.Receipt, err = c.ResetCounter(caller)
		case MethodThreshold:
			var above bool
			above, res.Receipt, err = c.IsCounterAboveThreshold(caller, args[0])
			res.Result = &above
		case MethodMax:
			var v uint32
			v, res.Receipt, err = c.GetMaxValue(caller, args[0])
			res.Value = &v
		case MethodOperation:
			// out of range opcodes are still submitted, the counter rejects them
			op := uint8(min(args[0], math.MaxUint8))
			var v uint32
			v, res.Receipt, err = c.PerformEncryptedOperation(caller, op, args[1])
			res.Value = &v
		default:
			ErrResourceNotFound.With(method).Write(w)
			return
		}
		if err != nil {
			writeCounterError(w, err)
			return
		}
		httpWriteJSON(w, res)
	}
}

// decrypt returns the handler of the signed decryption methods
// POST /contracts/{address}/decrypt
// POST /contracts/{address}/decrypt/total
func (a *API) decrypt(method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := a.loadCounter(w, r)
		if !ok {
			return
		}
		caller, _, ok := a.authenticate(w, r, c.Address(), method)
		if !ok {
			return
		}
		var (
			value uint32
			err   error
		)
		if method == MethodDecryptTotal {
			value, err = c.DecryptCounter(caller)
		} else {
			value, err = c.DecryptMyContribution(caller)
		}
		if err != nil {
			if counter.IsRevert(err) {
				writeCounterError(w, err)
			} else {
				ErrDecryptionFailed.WithErr(err).Write(w)
			}
			return
		}
		httpWriteJSON(w, &Decrypted{Value: value})
	}
}
