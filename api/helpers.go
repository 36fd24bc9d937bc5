package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// addressParam parses the address held by the URL parameter name.
func addressParam(r *http.Request, name string) (common.Address, bool) {
	s := chi.URLParam(r, name)
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// uintQuery parses an optional unsigned query parameter. def is returned
// when the parameter is missing.
func uintQuery(r *http.Request, name string, bits int, def uint64) (uint64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	return strconv.ParseUint(s, 10, bits)
}

// loadCounter resolves the counter of the request, writing the error
// response if it cannot.
func (a *API) loadCounter(w http.ResponseWriter, r *http.Request) (*counter.Counter, bool) {
	address, ok := addressParam(r, ContractURLParam)
	if !ok {
		ErrMalformedAddress.With(chi.URLParam(r, ContractURLParam)).Write(w)
		return nil, false
	}
	c, err := a.registry.Counter(address)
	if err != nil {
		writeCounterError(w, err)
		return nil, false
	}
	return c, true
}

// eventContract resolves the contract of an event log request: a local
// counter or a chain contract whose events the node mirrors.
func (a *API) eventContract(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	address, ok := addressParam(r, ContractURLParam)
	if !ok {
		ErrMalformedAddress.With(chi.URLParam(r, ContractURLParam)).Write(w)
		return common.Address{}, false
	}
	if _, err := a.registry.Counter(address); err == nil {
		return address, true
	} else if !errors.Is(err, counter.ErrCounterNotFound) {
		writeCounterError(w, err)
		return common.Address{}, false
	}
	block, err := a.storage.LastSyncedBlock(address)
	if err != nil {
		ErrStorageFailure.WithErr(err).Write(w)
		return common.Address{}, false
	}
	if block == 0 {
		ErrContractNotFound.With(address.Hex()).Write(w)
		return common.Address{}, false
	}
	return address, true
}

// writeCounterError maps an error returned by the counter package to the
// API error table.
func writeCounterError(w http.ResponseWriter, err error) {
	if reason, ok := counter.RevertReason(err); ok {
		ErrExecutionReverted.With(reason).Write(w)
		return
	}
	switch {
	case errors.Is(err, counter.ErrCounterNotFound):
		ErrContractNotFound.WithErr(err).Write(w)
	case errors.Is(err, counter.ErrTxNotFound):
		ErrTxNotFound.WithErr(err).Write(w)
	case errors.Is(err, storage.ErrNonceMismatch):
		ErrInvalidNonce.WithErr(err).Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}
