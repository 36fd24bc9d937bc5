package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
// ChainID and Network identify the chain the counters are bound to and are
// part of every signed request.
type APIConfig struct {
	Host     string
	Port     int
	Registry *counter.Registry
	ChainID  uint64
	Network  string
}

// API type represents the API HTTP server of the counter node.
type API struct {
	router   *chi.Mux
	registry *counter.Registry
	storage  *storage.Storage
	chainID  uint64
	network  string
	validate *validator.Validate
	upgrader websocket.Upgrader

	server    *http.Server
	listener  net.Listener
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new API instance with the given configuration and starts
// serving on the configured host and port. Port 0 picks a free port, see
// Addr.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Registry == nil {
		return nil, fmt.Errorf("missing counter registry")
	}
	a := &API{
		registry: conf.Registry,
		storage:  conf.Registry.Storage(),
		chainID:  conf.ChainID,
		network:  conf.Network,
		validate: validator.New(),
		done:     make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
			Error:           upgradeError,
		},
	}

	// Initialize router
	a.initRouter()

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s:%d: %w", conf.Host, conf.Port, err)
	}
	a.listener = ln
	a.server = &http.Server{Handler: a.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infow("starting API server", "address", ln.Addr().String(), "chainID", a.chainID)
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw(err, "API server stopped")
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server listens on.
func (a *API) Addr() net.Addr {
	return a.listener.Addr()
}

// Close gracefully shuts the server down and ends the open event streams.
func (a *API) Close(ctx context.Context) error {
	a.closeOnce.Do(func() { close(a.done) })
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the API handlers on r.
func (a *API) registerHandlers(r chi.Router) {
	handlers := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, PingEndpoint, func(w http.ResponseWriter, r *http.Request) { httpWriteOK(w) }},
		{http.MethodGet, InfoEndpoint, a.info},
		{http.MethodPost, ContractsEndpoint, a.deploy},
		{http.MethodGet, ContractEndpoint, a.contract},
		{http.MethodGet, TotalEndpoint, a.publicTotal},
		{http.MethodGet, EncryptedTotalEndpoint, a.encryptedTotal},
		{http.MethodGet, ContributionEndpoint, a.contribution},
		{http.MethodGet, EncryptedContributionEndpoint, a.encryptedContribution},
		{http.MethodGet, ContributionProofEndpoint, a.contributionProof},
		{http.MethodPost, AddEndpoint, a.call(MethodAdd)},
		{http.MethodPost, RandomEndpoint, a.call(MethodRandom)},
		{http.MethodPost, ResetEndpoint, a.call(MethodReset)},
		{http.MethodPost, ThresholdEndpoint, a.call(MethodThreshold)},
		{http.MethodPost, MaxEndpoint, a.call(MethodMax)},
		{http.MethodPost, OperationEndpoint, a.call(MethodOperation)},
		{http.MethodGet, ConditionalEndpoint, a.conditional},
		{http.MethodPost, DecryptEndpoint, a.decrypt(MethodDecrypt)},
		{http.MethodPost, DecryptTotalEndpoint, a.decrypt(MethodDecryptTotal)},
		{http.MethodGet, EventsEndpoint, a.events},
		{http.MethodGet, ReceiptEndpoint, a.receipt},
		{http.MethodGet, NonceEndpoint, a.nonce},
	}
	for _, h := range handlers {
		log.Debugw("register handler", "endpoint", h.path, "method", h.method)
		r.Method(h.method, h.path, h.handler)
	}
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)

	// Event streams are long lived and stay out of the throttle and
	// timeout middlewares.
	log.Debugw("register handler", "endpoint", EventsStreamEndpoint, "method", "GET")
	a.router.Get(EventsStreamEndpoint, a.eventStream)

	a.router.Group(func(r chi.Router) {
		r.Use(middleware.Throttle(100))
		r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
		r.Use(middleware.Timeout(45 * time.Second))
		a.registerHandlers(r)
	})
}
