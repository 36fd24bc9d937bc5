package api

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/crypto/elgamal"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

// info returns the chain the node is bound to and the deployed counters
// GET /info
func (a *API) info(w http.ResponseWriter, r *http.Request) {
	contracts, err := a.registry.List()
	if err != nil {
		ErrStorageFailure.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &Info{ChainID: a.chainID, Network: a.network, Contracts: contracts})
}

// contractInfo builds the description of c.
func (a *API) contractInfo(c *counter.Counter) (*Contract, error) {
	st, err := c.State()
	if err != nil {
		return nil, err
	}
	root, err := c.StateRoot()
	if err != nil {
		return nil, err
	}
	return &Contract{
		Address:     st.Address,
		Owner:       st.Owner,
		Network:     a.network,
		ChainID:     a.chainID,
		DeployedAt:  st.DeployedAt,
		DeployTx:    st.DeployTx,
		Curve:       st.Curve,
		PublicKey:   st.PublicKey,
		StateRoot:   root,
		Epoch:       st.Epoch,
		PublicTotal: st.Total,
	}, nil
}

// deploy creates a new counter owned by the signer of the request
// POST /contracts
func (a *API) deploy(w http.ResponseWriter, r *http.Request) {
	caller, _, ok := a.authenticate(w, r, common.Address{}, MethodDeploy)
	if !ok {
		return
	}
	c, receipt, err := a.registry.Deploy(caller)
	if err != nil {
		writeCounterError(w, err)
		return
	}
	info, err := a.contractInfo(c)
	if err != nil {
		writeCounterError(w, err)
		return
	}
	httpWriteJSON(w, &Deployment{Contract: info, Receipt: receipt})
}

// contract returns the description of a counter
// GET /contracts/{address}
func (a *API) contract(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCounter(w, r)
	if !ok {
		return
	}
	info, err := a.contractInfo(c)
	if err != nil {
		writeCounterError(w, err)
		return
	}
	httpWriteJSON(w, info)
}

// GET /contracts/{address}/total
func (a *API) publicTotal(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCounter(w, r)
	if !ok {
		return
	}
	total, err := c.PublicTotal()
	if err != nil {
		writeCounterError(w, err)
		return
	}
	httpWriteJSON(w, &Total{Total: total})
}

func writeCiphertext(w http.ResponseWriter, c *counter.Counter, ct *elgamal.Ciphertext) {
	httpWriteJSON(w, &Encrypted{Curve: c.PublicKey().Type(), Ciphertext: ct.Marshal()})
}

// GET /contracts/{address}/encrypted
func (a *API) encryptedTotal(w http.ResponseWriter, r *http.Request) {
	c, ok := a.loadCounter(w, r)
	if !ok {
		return
	}
	ct, err := c.EncryptedCounter()
	if err != nil {
		writeCounterError(w, err)
		return
	}
	writeCiphertext(w, c, ct)
}

// loadUser resolves the counter and the contributor of the request.
func (a *API) loadUser(w http.ResponseWriter, r *http.Request) (*counter.Counter, common.Address, bool) {
	c, ok := a.loadCounter(w, r)
	if !ok {
		return nil, common.Address{}, false
	}
	user, ok := addressParam(r, UserURLParam)
	if !ok {
		ErrMalformedAddress.With(chi.URLParam(r, UserURLParam)).Write(w)
		return nil, common.Address{}, false
	}
	return c, user, true
}

// GET /contracts/{address}/contributions/{user}
func (a *API) contribution(w http.ResponseWriter, r *http.Request) {
	c, user, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	amount, err := c.UserContribution(user)
	if err != nil {
		writeCounterError(w, err)
		return
	}
	httpWriteJSON(w, &Contribution{Account: user, Amount: amount})
}

// GET /contracts/{address}/contributions/{user}/encrypted
func (a *API) encryptedContribution(w http.ResponseWriter, r *http.Request) {
	c, user, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	ct, err := c.EncryptedUserContribution(user)
	if err != nil {
		writeCounterError(w, err)
		return
	}
	writeCiphertext(w, c, ct)
}

// GET /contracts/{address}/contributions/{user}/proof
func (a *API) contributionProof(w http.ResponseWriter, r *http.Request) {
	c, user, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	proof, err := c.ContributionProof(user)
	if err != nil {
		writeCounterError(w, err)
		return
	}
	httpWriteJSON(w, proof)
}

// conditional evaluates the conditional operation, no state is involved
// GET /contracts/{address}/conditional?cond=true&ifTrue=1&ifFalse=2
func (a *API) conditional(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.loadCounter(w, r); !ok {
		return
	}
	cond, err := strconv.ParseBool(r.URL.Query().Get("cond"))
	if err != nil {
		ErrMalformedParam.Withf("cond: %v", err).Write(w)
		return
	}
	ifTrue, err := uintQuery(r, "ifTrue", 32, 0)
	if err != nil {
		ErrMalformedParam.Withf("ifTrue: %v", err).Write(w)
		return
	}
	ifFalse, err := uintQuery(r, "ifFalse", 32, 0)
	if err != nil {
		ErrMalformedParam.Withf("ifFalse: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &Conditional{Result: counter.ConditionalOperation(cond, uint32(ifTrue), uint32(ifFalse))})
}

// events returns a page of the event log of a counter
// GET /contracts/{address}/events?from=0&limit=100
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	contract, ok := a.eventContract(w, r)
	if !ok {
		return
	}
	from, err := uintQuery(r, "from", 64, 0)
	if err != nil {
		ErrMalformedParam.Withf("from: %v", err).Write(w)
		return
	}
	limit, err := uintQuery(r, "limit", 32, defaultEventsLimit)
	if err != nil || limit == 0 {
		ErrMalformedParam.Withf("limit: %q", r.URL.Query().Get("limit")).Write(w)
		return
	}
	events, err := a.storage.Events(contract, from, int(min(limit, maxEventsLimit)))
	if err != nil {
		ErrStorageFailure.WithErr(err).Write(w)
		return
	}
	next := from
	if len(events) > 0 {
		next = events[len(events)-1].Seq + 1
	}
	httpWriteJSON(w, &Events{Events: events, Next: next})
}

// GET /receipts/{hash}
func (a *API) receipt(w http.ResponseWriter, r *http.Request) {
	s := chi.URLParam(r, ReceiptURLParam)
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		ErrMalformedTxHash.With(s).Write(w)
		return
	}
	rc, err := a.registry.Receipt(common.BytesToHash(b))
	if err != nil {
		writeCounterError(w, err)
		return
	}
	httpWriteJSON(w, rc)
}

// GET /accounts/{account}/nonce
func (a *API) nonce(w http.ResponseWriter, r *http.Request) {
	account, ok := addressParam(r, AccountURLParam)
	if !ok {
		ErrMalformedAddress.With(chi.URLParam(r, AccountURLParam)).Write(w)
		return
	}
	n, err := a.storage.Nonce(account)
	if err != nil {
		ErrStorageFailure.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &Nonce{Account: account, Nonce: n})
}
