// Command counterctl drives a counter from the command line, either through
// a counter node API or, with --chain, directly against the contract
// deployed on the configured network.
//
//	counterctl [flags] deploy [artifact.json]
//	counterctl [flags] verify
//	counterctl [flags] add <value>
//	counterctl [flags] random|reset|total|decrypt
//	counterctl [flags] contribution [account]
//	counterctl [flags] events [from]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"github.com/vocdoni/confidential-counter/config"
	"github.com/vocdoni/confidential-counter/log"
)

type command func(ctx context.Context, env *env, args []string) error

var commands = map[string]command{
	"deploy":       deploy,
	"verify":       verify,
	"add":          add,
	"random":       random,
	"reset":        reset,
	"total":        total,
	"contribution": contribution,
	"decrypt":      decrypt,
	"events":       events,
}

func main() {
	cfg, fs, err := config.Load("counterctl", os.Args[1:], ".env")
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Init(cfg.LogLevel, "stderr", nil)

	args := fs.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: counterctl [flags] deploy|verify|add|random|reset|total|contribution|decrypt|events")
		fs.PrintDefaults()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd(ctx, newEnv(cfg), args[1:]); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
