// Package networks holds the fixed set of explorer targets a contract can be
// verified on.
package networks

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrUnsupportedNetwork is returned for any network name outside the registry.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// Network names
const (
	Sepolia = "sepolia"
	Celo    = "celo"
)

// Network is a Blockscout explorer target
type Network struct {
	Name        string // "sepolia", "celo"
	DisplayName string // "Celo Sepolia", "Celo Mainnet"
	ChainID     int
	ExplorerURL string // base URL, no trailing slash

	// JSON-RPC endpoint for on-chain checks; RPCEnv overrides it
	RPCURL string
	RPCEnv string

	// Environment keys holding the deployed addresses for this network
	ImplementationEnv string
	ProxyEnv          string
}

// VerificationURL returns the flattened-code verification endpoint for address
func (n Network) VerificationURL(address string) string {
	return fmt.Sprintf("%s/api/v2/smart-contracts/%s/verification/via/flattened-code",
		n.ExplorerURL, url.PathEscape(address))
}

// AddressURL returns the explorer page for address
func (n Network) AddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", n.ExplorerURL, url.PathEscape(address))
}

// ContractCodeURL returns the explorer page where manual verification starts
func (n Network) ContractCodeURL(address string) string {
	return n.AddressURL(address) + "?tab=contract_code"
}

// Registry holds the supported networks
type Registry struct {
	networks map[string]Network
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		networks: make(map[string]Network),
	}
}

// DefaultRegistry returns a registry with the Celo Blockscout explorers
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Network{
		Name:              Sepolia,
		DisplayName:       "Celo Sepolia",
		ChainID:           11142220,
		ExplorerURL:       "https://celo-sepolia.blockscout.com",
		RPCURL:            "https://celo-sepolia-rpc.publicnode.com",
		RPCEnv:            "SEPOLIA_RPC_URL",
		ImplementationEnv: "SEPOLIA_IMPLEMENTATION_ADDRESS",
		ProxyEnv:          "SEPOLIA_PROXY_ADDRESS",
	})
	r.Register(Network{
		Name:              Celo,
		DisplayName:       "Celo Mainnet",
		ChainID:           42220,
		ExplorerURL:       "https://celo.blockscout.com",
		RPCURL:            "https://forno.celo.org",
		RPCEnv:            "CELO_RPC_URL",
		ImplementationEnv: "IMPLEMENTATION_ADDRESS",
		ProxyEnv:          "PROXY_ADDRESS",
	})
	return r
}

// Register adds a network to the registry
func (r *Registry) Register(n Network) {
	n.ExplorerURL = strings.TrimRight(n.ExplorerURL, "/")
	r.networks[n.Name] = n
}

// Get retrieves a network by name
func (r *Registry) Get(name string) (Network, bool) {
	n, ok := r.networks[name]
	return n, ok
}

// Lookup retrieves a network by name, failing with ErrUnsupportedNetwork
func (r *Registry) Lookup(name string) (Network, error) {
	n, ok := r.networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedNetwork, name, strings.Join(r.Names(), ", "))
	}
	return n, nil
}

// OverrideExplorer replaces the explorer base URL of a registered network.
// Used for self-hosted explorers; the set of names stays fixed.
func (r *Registry) OverrideExplorer(name, explorerURL string) error {
	n, err := r.Lookup(name)
	if err != nil {
		return err
	}
	u, err := url.Parse(explorerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid explorer URL %q for %s", explorerURL, name)
	}
	n.ExplorerURL = explorerURL
	r.Register(n)
	return nil
}

// Names returns the registered network names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all registered networks, sorted by name
func (r *Registry) List() []Network {
	list := make([]Network, 0, len(r.networks))
	for _, name := range r.Names() {
		list = append(list, r.networks[name])
	}
	return list
}
