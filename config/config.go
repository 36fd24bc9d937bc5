// Package config loads the node and CLI configuration from flags,
// environment variables and an optional .env file, in that order of
// precedence, and validates it.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"github.com/vocdoni/confidential-counter/util"
)

// Environment variables.
const (
	EnvSepoliaRPC      = "SEPOLIA_RPC_URL"
	EnvPrivateKey      = "PRIVATE_KEY"
	EnvContractAddress = "CONTRACT_ADDRESS"
	envPrefix          = "COUNTER_"
)

// Config holds every setting of the node and the CLI.
type Config struct {
	Network         string        `validate:"required,oneof=sepolia fhenix localhost hardhat"`
	ChainID         uint64        `validate:"required"`
	RPCs            []string      `validate:"dive,url"`
	PrivateKey      string        `validate:"omitempty,hexadecimal,privkey"`
	ContractAddress string        `validate:"omitempty,eth_addr"`
	DeploymentFile  string        `validate:"required"`
	Host            string        `validate:"required"`
	Port            int           `validate:"min=0,max=65535"`
	DataDir         string        `validate:"required"`
	LogLevel        string        `validate:"oneof=debug info warn error fatal"`
	LogOutput       string        `validate:"required"`
	Curve           string        `validate:"oneof=bn254 bjj_iden3 bjj_gnark"`
	MaxDecryptable  uint64        `validate:"gt=0"`
	TxTimeout       time.Duration `validate:"gt=0"`
	MonitorInterval time.Duration `validate:"gt=0"`
	// Chain binds the node to the counter deployed on Network instead of
	// hosting local counters only.
	Chain bool
	// NodeURL is the API endpoint used by the CLI.
	NodeURL string `validate:"omitempty,url"`
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Network:         DefaultNetwork,
		DeploymentFile:  "contract-info.json",
		Host:            "0.0.0.0",
		Port:            9090,
		DataDir:         filepath.Join(home, ".counterd"),
		LogLevel:        "info",
		LogOutput:       "stdout",
		Curve:           "bn254",
		MaxDecryptable:  math.MaxUint32,
		TxTimeout:       60 * time.Second,
		MonitorInterval: 5 * time.Second,
		NodeURL:         "http://127.0.0.1:9090",
	}
}

// Load builds the configuration from args, the environment and envFile.
// A missing envFile is not an error. Flags not given on the command line
// take their value from the COUNTER_<FLAG> environment variable (dashes
// become underscores), then from the defaults.
func Load(name string, args []string, envFile string) (*Config, *flag.FlagSet, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("cannot load %s: %w", envFile, err)
		}
	}
	cfg := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVarP(&cfg.Network, "network", "n", cfg.Network, "network name (sepolia, fhenix, localhost)")
	fs.StringSliceVar(&cfg.RPCs, "rpc", nil, "web3 RPC endpoints (defaults to the network ones)")
	fs.StringVar(&cfg.PrivateKey, "privkey", "", "hex encoded private key of the account")
	fs.StringVar(&cfg.ContractAddress, "contract", "", "counter contract address")
	fs.StringVar(&cfg.DeploymentFile, "deployment", cfg.DeploymentFile, "deployment record file")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "API listen host")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "API listen port")
	fs.StringVarP(&cfg.DataDir, "datadir", "d", cfg.DataDir, "data directory")
	fs.StringVarP(&cfg.LogLevel, "loglevel", "l", cfg.LogLevel, "log level (debug, info, warn, error, fatal)")
	fs.StringVar(&cfg.LogOutput, "logoutput", cfg.LogOutput, "log output (stdout, stderr or a file path)")
	fs.StringVar(&cfg.Curve, "curve", cfg.Curve, "curve of the encryption keys (bn254, bjj_iden3, bjj_gnark)")
	fs.Uint64Var(&cfg.MaxDecryptable, "maxdecryptable", cfg.MaxDecryptable, "largest plaintext searched when decrypting")
	fs.DurationVar(&cfg.TxTimeout, "txtimeout", cfg.TxTimeout, "deadline of each transaction workflow")
	fs.DurationVar(&cfg.MonitorInterval, "monitorinterval", cfg.MonitorInterval, "chain event polling interval")
	fs.BoolVar(&cfg.Chain, "chain", false, "use the contract deployed on the network")
	fs.StringVar(&cfg.NodeURL, "node", cfg.NodeURL, "counter node API URL")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := applyEnv(fs); err != nil {
		return nil, nil, err
	}

	network, err := NetworkByName(cfg.Network)
	if err != nil {
		return nil, nil, err
	}
	cfg.ChainID = network.ChainID
	if len(cfg.RPCs) == 0 {
		cfg.RPCs = append([]string(nil), network.RPCs...)
		if url := os.Getenv(EnvSepoliaRPC); url != "" && network.Name == "sepolia" {
			cfg.RPCs = append([]string{url}, cfg.RPCs...)
		}
	}
	if cfg.PrivateKey == "" {
		cfg.PrivateKey = os.Getenv(EnvPrivateKey)
	}
	if cfg.ContractAddress == "" {
		cfg.ContractAddress = os.Getenv(EnvContractAddress)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs, nil
}

// applyEnv sets every flag not changed on the command line from its
// COUNTER_ environment variable.
func applyEnv(fs *flag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *flag.Flag) {
		if f.Changed {
			return
		}
		env := envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := os.LookupEnv(env); ok {
			if err := fs.Set(f.Name, v); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", env, err))
			}
		}
	})
	return errors.Join(errs...)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("privkey", func(fl validator.FieldLevel) bool {
		return len(util.TrimHex(fl.Field().String())) == 64
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("field '%s' failed validation '%s'", e.Field(), e.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
		}
		return err
	}
	return nil
}

// Addr returns the host:port the API listens on.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
