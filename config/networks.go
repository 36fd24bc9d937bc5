package config

import (
	"fmt"
	"strings"
)

// Network describes an EVM chain a counter can be bound to.
type Network struct {
	Name     string
	ChainID  uint64
	RPCs     []string
	Explorer string
}

const DefaultNetwork = "sepolia"

var sepoliaRPCs = []string{
	"https://eth-sepolia.public.blastapi.io",
	"https://sepolia.gateway.tenderly.co",
	"https://rpc.ankr.com/eth_sepolia",
	"https://1rpc.io/sepolia",
	"https://eth-sepolia-public.unifra.io",
	"https://rpc.sepolia.ethpandaops.io",
	"https://rpc-sepolia.rockx.com",
	"wss://sepolia.drpc.org",
	"wss://sepolia.gateway.tenderly.co",
}

// Networks lists the known networks by name. hardhat is an alias of
// localhost.
var Networks = map[string]Network{
	"sepolia": {
		Name:     "sepolia",
		ChainID:  11155111,
		RPCs:     sepoliaRPCs,
		Explorer: "https://sepolia.etherscan.io/address/",
	},
	"fhenix": {
		Name:     "fhenix",
		ChainID:  42069,
		RPCs:     []string{"https://api.testnet.fhenix.zone:7747"},
		Explorer: "https://testnet.fhenix.zone/address/",
	},
	"localhost": {
		Name:    "localhost",
		ChainID: 31337,
		RPCs:    []string{"http://127.0.0.1:8545"},
	},
	"hardhat": {
		Name:    "localhost",
		ChainID: 31337,
		RPCs:    []string{"http://127.0.0.1:8545"},
	},
}

// NetworkByName returns the network with the given name (case insensitive).
func NetworkByName(name string) (Network, error) {
	n, ok := Networks[strings.ToLower(name)]
	if !ok {
		return Network{}, fmt.Errorf("unknown network %q", name)
	}
	return n, nil
}

// NetworkByChainID returns the network with the given chain ID.
func NetworkByChainID(chainID uint64) (Network, bool) {
	for _, name := range []string{"sepolia", "fhenix", "localhost"} {
		if n := Networks[name]; n.ChainID == chainID {
			return n, true
		}
	}
	return Network{}, false
}

// ExplorerURL returns the block explorer page of address, if the network
// has an explorer.
func (n Network) ExplorerURL(address string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + address
}
