package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrChainNotFound is returned when a network is not in the registry.
var ErrChainNotFound = errors.New("network not found")

// ErrMissingAPIKey is returned when a hosted network is used without its
// provider key.
var ErrMissingAPIKey = errors.New("missing RPC provider API key")

// Network holds the metadata for one deployment target.
type Network struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	ChainID     int64  `json:"chain_id"`
	// RPCURL is either a fixed URL or a template with one %s for the
	// Alchemy API key.
	RPCURL      string `json:"rpc_url"`
	Explorer    string `json:"explorer,omitempty"`
	ExplorerAPI string `json:"explorer_api,omitempty"`
	Testnet     bool   `json:"testnet"`
	// Deprecated networks still resolve but warn on use.
	Deprecated bool `json:"deprecated,omitempty"`
}

// Registry is the network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

// NewRegistry returns the registry of every known network.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks: networks,
		byName:   make(map[string]*Network, len(networks)),
		byID:     make(map[int64]*Network, len(networks)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// GetByName finds a network by its slug name (e.g. "goerli", "mainnet").
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, name)
	}
	return n, nil
}

// GetByChainID finds a network by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: chain id %d", ErrChainNotFound, id)
	}
	return n, nil
}

// Names returns the network slugs in registry order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.networks))
	for i, n := range r.networks {
		out[i] = n.Name
	}
	return out
}

// NeedsAPIKey reports whether the RPC URL is a provider template.
func (n *Network) NeedsAPIKey() bool {
	return strings.Contains(n.RPCURL, "%s")
}

// RPC returns the endpoint URL, filling in apiKey when the network is hosted.
func (n *Network) RPC(apiKey string) (string, error) {
	if !n.NeedsAPIKey() {
		return n.RPCURL, nil
	}
	if apiKey == "" {
		return "", fmt.Errorf("%w: set %s_ALCHEMY_API_KEY", ErrMissingAPIKey, n.EnvPrefix())
	}
	return fmt.Sprintf(n.RPCURL, apiKey), nil
}

// EnvPrefix is the prefix of the network's environment variables, e.g.
// GOERLI for GOERLI_PRIVATE_KEY.
func (n *Network) EnvPrefix() string {
	return strings.ToUpper(n.Name)
}

// TxURL returns the explorer page of a transaction, or "" when the network
// has no explorer.
func (n *Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/tx/" + hash
}

// AddressURL returns the explorer page of an address or contract.
func (n *Network) AddressURL(addr string) string {
	if n.Explorer == "" {
		return ""
	}
	return n.Explorer + "/address/" + addr
}

// IsLocal reports whether the network is a local development node.
func (n *Network) IsLocal() bool {
	return n.ChainID == 31337
}

func allNetworks() []Network {
	return []Network{
		{
			Name: "mainnet", DisplayName: "Ethereum Mainnet", ChainID: 1,
			RPCURL:      "https://eth-mainnet.g.alchemy.com/v2/%s",
			Explorer:    "https://etherscan.io",
			ExplorerAPI: "https://api.etherscan.io/api",
		},
		{
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111, Testnet: true,
			RPCURL:      "https://eth-sepolia.g.alchemy.com/v2/%s",
			Explorer:    "https://sepolia.etherscan.io",
			ExplorerAPI: "https://api-sepolia.etherscan.io/api",
		},
		{
			Name: "goerli", DisplayName: "Goerli", ChainID: 5, Testnet: true, Deprecated: true,
			RPCURL:      "https://eth-goerli.alchemyapi.io/v2/%s",
			Explorer:    "https://goerli.etherscan.io",
			ExplorerAPI: "https://api-goerli.etherscan.io/api",
		},
		{
			Name: "rinkeby", DisplayName: "Rinkeby", ChainID: 4, Testnet: true, Deprecated: true,
			RPCURL:      "https://eth-rinkeby.alchemyapi.io/v2/%s",
			Explorer:    "https://rinkeby.etherscan.io",
			ExplorerAPI: "https://api-rinkeby.etherscan.io/api",
		},
		{
			Name: "localhost", DisplayName: "Localhost", ChainID: 31337, Testnet: true,
			RPCURL: "http://127.0.0.1:8545",
		},
	}
}
