// Command counterd runs a counter node: the HTTP API over the local
// counters and, with --chain, a monitor mirroring the events of the counter
// deployed on the configured network.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/confidential-counter/config"
	"github.com/vocdoni/confidential-counter/counter"
	"github.com/vocdoni/confidential-counter/deployment"
	"github.com/vocdoni/confidential-counter/log"
	"github.com/vocdoni/confidential-counter/service"
	"github.com/vocdoni/confidential-counter/storage"
	"github.com/vocdoni/confidential-counter/web3"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"golang.org/x/sync/errgroup"
)

// headReportInterval is how often the chain head is logged with --chain.
const headReportInterval = time.Minute

func main() {
	cfg, _, err := config.Load("counterd", os.Args[1:], ".env")
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Init(cfg.LogLevel, cfg.LogOutput, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
	log.Info("counter node stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	database, err := metadb.New(db.TypePebble, filepath.Join(cfg.DataDir, "db"))
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	registry := counter.NewRegistry(stg,
		counter.WithCurve(cfg.Curve),
		counter.WithMaxDecryptable(cfg.MaxDecryptable),
	)

	apiService := service.NewAPI(registry, cfg.Host, cfg.Port, cfg.ChainID, cfg.Network)
	if err := apiService.Start(ctx); err != nil {
		return err
	}
	defer apiService.Stop()
	log.Infow("counter node started",
		"api", apiService.Addr().String(),
		"network", cfg.Network,
		"chainID", cfg.ChainID,
		"datadir", cfg.DataDir)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Chain {
		contracts, err := bindChain(cfg)
		if err != nil {
			return err
		}
		monitor := service.NewEventMonitor(contracts, stg, registry.Broker(), cfg.MonitorInterval)
		if err := monitor.Start(gctx); err != nil {
			return err
		}
		defer monitor.Stop()
		g.Go(func() error {
			reportHeads(gctx, contracts)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

// bindChain connects to the network RPCs and binds the counter contract
// given by --contract or by the deployment record.
func bindChain(cfg *config.Config) (*web3.Contracts, error) {
	address, err := deployment.ContractAddress(cfg.ContractAddress, cfg.DeploymentFile)
	if err != nil {
		return nil, err
	}
	contracts, err := web3.New(cfg.ChainID, cfg.RPCs...)
	if err != nil {
		return nil, err
	}
	contracts.Bind(address)
	log.Infow("counter contract bound", "address", address.Hex(), "chainID", contracts.ChainID)
	return contracts, nil
}

func reportHeads(ctx context.Context, contracts *web3.Contracts) {
	ticker := time.NewTicker(headReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		heads, err := contracts.Web3Pool().CurrentBlockNumbers(ctx)
		if err != nil {
			log.Warnw("cannot read chain head", "error", err.Error())
			continue
		}
		for chainID, block := range heads {
			log.Infow("chain head", "chainID", chainID, "block", block)
		}
	}
}
