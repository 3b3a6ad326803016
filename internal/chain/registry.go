package chain

import (
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// EtherscanV2API is the unified multichain endpoint of the Etherscan family.
const EtherscanV2API = "https://api.etherscan.io/v2/api"

// Descriptor holds the static metadata for one network. Mainnets and their
// testnets are separate entries keyed by chain id.
type Descriptor struct {
	ChainID        int64    `json:"chain_id"`
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	NativeCurrency string   `json:"native_currency"`
	RPCURL         string   `json:"rpc_url"`
	FallbackRPCs   []string `json:"fallback_rpcs,omitempty"`
	ExplorerURL    string   `json:"explorer_url"`
	ExplorerAPIURL string   `json:"explorer_api_url"`
	ExplorerName   string   `json:"explorer_name"`
	SupportsENS    bool     `json:"supports_ens"`
	Testnet        bool     `json:"testnet"`
}

// RPCs returns the primary endpoint followed by the fallbacks.
func (d *Descriptor) RPCs() []string {
	return append([]string{d.RPCURL}, d.FallbackRPCs...)
}

// AddressURL links to the explorer page of address.
func (d *Descriptor) AddressURL(address string) string {
	if d.ExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(d.ExplorerURL, "/") + "/address/" + address
}

// TxURL links to the explorer page of a transaction.
func (d *Descriptor) TxURL(hash string) string {
	if d.ExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(d.ExplorerURL, "/") + "/tx/" + hash
}

// Registry is the chain registry. It is built once and never mutated.
type Registry struct {
	chains []Descriptor
	bySlug map[string]*Descriptor
	byID   map[int64]*Descriptor
}

// NewRegistry creates the registry of all supported networks.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		bySlug: make(map[string]*Descriptor, len(chains)),
		byID:   make(map[int64]*Descriptor, len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.bySlug[c.Slug] = c
		r.byID[c.ChainID] = c
	}
	return r
}

// All returns every chain in the registry, ordered by chain id.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.chains))
	copy(out, r.chains)
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// Get finds a chain by its numeric chain id.
func (r *Registry) Get(id int64) (*Descriptor, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetBySlug finds a chain by slug (e.g. "base", "sepolia").
func (r *Registry) GetBySlug(slug string) (*Descriptor, error) {
	c, ok := r.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// Lookup accepts either a numeric chain id or a slug.
func (r *Registry) Lookup(idOrSlug string) (*Descriptor, error) {
	if id, err := strconv.ParseInt(strings.TrimSpace(idOrSlug), 10, 64); err == nil {
		return r.Get(id)
	}
	return r.GetBySlug(idOrSlug)
}

// ExplorerAPIHosts returns the distinct hosts of every explorer API.
func (r *Registry) ExplorerAPIHosts() []string {
	seen := map[string]bool{}
	var hosts []string
	for _, c := range r.chains {
		u, err := url.Parse(c.ExplorerAPIURL)
		if err != nil || u.Host == "" || seen[u.Host] {
			continue
		}
		seen[u.Host] = true
		hosts = append(hosts, u.Host)
	}
	sort.Strings(hosts)
	return hosts
}

// --- chain data ---

func etherscanFamily(id int64, slug, name, currency, explorer, explorerName string, rpcs ...string) Descriptor {
	return Descriptor{
		ChainID: id, Slug: slug, Name: name, NativeCurrency: currency,
		RPCURL: rpcs[0], FallbackRPCs: rpcs[1:],
		ExplorerURL: explorer, ExplorerAPIURL: EtherscanV2API, ExplorerName: explorerName,
	}
}

func blockscout(id int64, slug, name, currency, explorer string, rpcs ...string) Descriptor {
	return Descriptor{
		ChainID: id, Slug: slug, Name: name, NativeCurrency: currency,
		RPCURL: rpcs[0], FallbackRPCs: rpcs[1:],
		ExplorerURL: explorer, ExplorerAPIURL: strings.TrimRight(explorer, "/") + "/api",
		ExplorerName: "Blockscout",
	}
}

func testnet(d Descriptor) Descriptor {
	d.Testnet = true
	return d
}

func withENS(d Descriptor) Descriptor {
	d.SupportsENS = true
	return d
}

func allChains() []Descriptor {
	return []Descriptor{
		withENS(etherscanFamily(1, "ethereum", "Ethereum", "ETH", "https://etherscan.io", "Etherscan",
			"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com")),
		withENS(testnet(etherscanFamily(11155111, "sepolia", "Sepolia", "ETH", "https://sepolia.etherscan.io", "Etherscan",
			"https://ethereum-sepolia-rpc.publicnode.com", "https://sepolia.gateway.tenderly.co"))),
		etherscanFamily(8453, "base", "Base", "ETH", "https://basescan.org", "BaseScan",
			"https://mainnet.base.org", "https://base.llamarpc.com"),
		testnet(etherscanFamily(84532, "base-sepolia", "Base Sepolia", "ETH", "https://sepolia.basescan.org", "BaseScan",
			"https://sepolia.base.org")),
		etherscanFamily(137, "polygon", "Polygon", "POL", "https://polygonscan.com", "PolygonScan",
			"https://polygon-bor-rpc.publicnode.com", "https://polygon-pokt.nodies.app"),
		testnet(etherscanFamily(80002, "amoy", "Polygon Amoy", "POL", "https://amoy.polygonscan.com", "PolygonScan",
			"https://rpc-amoy.polygon.technology")),
		etherscanFamily(42161, "arbitrum", "Arbitrum One", "ETH", "https://arbiscan.io", "Arbiscan",
			"https://arb1.arbitrum.io/rpc", "https://arbitrum.llamarpc.com"),
		testnet(etherscanFamily(421614, "arbitrum-sepolia", "Arbitrum Sepolia", "ETH", "https://sepolia.arbiscan.io", "Arbiscan",
			"https://sepolia-rollup.arbitrum.io/rpc")),
		etherscanFamily(10, "optimism", "OP Mainnet", "ETH", "https://optimistic.etherscan.io", "Etherscan",
			"https://mainnet.optimism.io", "https://optimism.llamarpc.com"),
		testnet(etherscanFamily(11155420, "optimism-sepolia", "OP Sepolia", "ETH", "https://sepolia-optimism.etherscan.io", "Etherscan",
			"https://sepolia.optimism.io")),
		etherscanFamily(56, "bnb", "BNB Smart Chain", "BNB", "https://bscscan.com", "BscScan",
			"https://bsc-dataseed.binance.org", "https://bsc-rpc.publicnode.com"),
		testnet(etherscanFamily(97, "bnb-testnet", "BNB Testnet", "tBNB", "https://testnet.bscscan.com", "BscScan",
			"https://data-seed-prebsc-1-s1.binance.org:8545")),
		etherscanFamily(43114, "avalanche", "Avalanche C-Chain", "AVAX", "https://snowtrace.io", "Snowtrace",
			"https://api.avax.network/ext/bc/C/rpc", "https://avalanche-c-chain-rpc.publicnode.com"),
		testnet(etherscanFamily(43113, "fuji", "Avalanche Fuji", "AVAX", "https://testnet.snowtrace.io", "Snowtrace",
			"https://api.avax-test.network/ext/bc/C/rpc")),
		etherscanFamily(59144, "linea", "Linea", "ETH", "https://lineascan.build", "LineaScan",
			"https://rpc.linea.build", "https://linea-rpc.publicnode.com"),
		etherscanFamily(534352, "scroll", "Scroll", "ETH", "https://scrollscan.com", "ScrollScan",
			"https://rpc.scroll.io", "https://scroll-rpc.publicnode.com"),
		etherscanFamily(100, "gnosis", "Gnosis", "xDAI", "https://gnosisscan.io", "GnosisScan",
			"https://rpc.gnosischain.com", "https://gnosis-rpc.publicnode.com"),
		etherscanFamily(81457, "blast", "Blast", "ETH", "https://blastscan.io", "BlastScan",
			"https://rpc.blast.io", "https://blast-rpc.publicnode.com"),
		etherscanFamily(42220, "celo", "Celo", "CELO", "https://celoscan.io", "CeloScan",
			"https://forno.celo.org", "https://celo-rpc.publicnode.com"),
		etherscanFamily(5000, "mantle", "Mantle", "MNT", "https://mantlescan.xyz", "MantleScan",
			"https://rpc.mantle.xyz", "https://mantle-rpc.publicnode.com"),
		blockscout(324, "zksync", "zkSync Era", "ETH", "https://zksync.blockscout.com",
			"https://mainnet.era.zksync.io", "https://zksync-era-rpc.publicnode.com"),
		blockscout(34443, "mode", "Mode", "ETH", "https://explorer.mode.network",
			"https://mainnet.mode.network"),
	}
}
