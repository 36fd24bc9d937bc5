package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vocdoni/confidential-counter/api"
	"github.com/vocdoni/confidential-counter/counter"
)

// shutdownTimeout bounds the graceful shutdown of the API server.
const shutdownTimeout = 10 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	registry *counter.Registry
	api      *api.API
	mu       sync.Mutex
	host     string
	port     int
	chainID  uint64
	network  string
}

// NewAPI creates a new APIService instance.
func NewAPI(registry *counter.Registry, host string, port int, chainID uint64, network string) *APIService {
	return &APIService{
		registry: registry,
		host:     host,
		port:     port,
		chainID:  chainID,
		network:  network,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(_ context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api != nil {
		return fmt.Errorf("service already running")
	}
	a, err := api.New(&api.APIConfig{
		Host:     as.host,
		Port:     as.port,
		Registry: as.registry,
		ChainID:  as.chainID,
		Network:  as.network,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api = a
	return nil
}

// Stop halts the API server. The registry storage is left open.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = as.api.Close(ctx)
		as.api = nil
	}
}

// Addr returns the address the API server listens on, or nil if it is not
// running.
func (as *APIService) Addr() net.Addr {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api == nil {
		return nil
	}
	return as.api.Addr()
}
