package config

import "time"

// Config holds all w3studio configuration. Values come from config.json and
// are overridden by W3STUDIO_* environment variables.
type Config struct {
	DefaultChain string `json:"default_chain"   envconfig:"DEFAULT_CHAIN"`
	RPCAlgorithm string `json:"rpc_algorithm"   envconfig:"RPC_ALGORITHM"` // "fastest" | "round-robin" | "failover"
	// CustomRPCs replaces the built-in endpoints of a chain, keyed by slug.
	CustomRPCs map[string][]string `json:"custom_rpcs" ignored:"true"`

	// ExplorerAPIKey is a fallback for the keychain-held credential.
	ExplorerAPIKey string `json:"explorer_api_key,omitempty" envconfig:"EXPLORER_API_KEY"`
	SourcifyURL    string `json:"sourcify_url,omitempty"     envconfig:"SOURCIFY_URL"`
	// ProxyURL routes provider requests through a running `w3studio serve`.
	ProxyURL string `json:"proxy_url,omitempty" envconfig:"PROXY_URL"`

	FollowBeacon    bool   `json:"follow_beacon"               envconfig:"FOLLOW_BEACON"`
	AuditPolicyFile string `json:"audit_policy_file,omitempty" envconfig:"AUDIT_POLICY_FILE"`
	CacheSizeMB     int    `json:"cache_size_mb"               envconfig:"CACHE_SIZE_MB"`
	CacheTTL        int    `json:"cache_ttl"                   envconfig:"CACHE_TTL"` // seconds

	LogLevel  string `json:"log_level,omitempty"  envconfig:"LOG_LEVEL"`
	LogFormat string `json:"log_format,omitempty" envconfig:"LOG_FORMAT"` // "text" | "json"

	AI AIConfig `json:"ai" envconfig:"AI"`

	// internal: config dir path used for Save()
	configDir string
}

// AIConfig points the deep audit at an OpenAI-compatible endpoint. The key
// itself lives in the keychain.
type AIConfig struct {
	Endpoint string `json:"endpoint,omitempty" envconfig:"ENDPOINT"`
	Model    string `json:"model,omitempty"    envconfig:"MODEL"`
}

// ServeConfig configures `w3studio serve`. It is read from a YAML file and
// W3STUDIO_SERVE_* variables.
type ServeConfig struct {
	Addr          string        `yaml:"addr"          envconfig:"ADDR"`
	ProxyCacheMB  int           `yaml:"proxyCacheMB"  envconfig:"PROXY_CACHE_MB"`
	ProxyCacheTTL time.Duration `yaml:"proxyCacheTTL" envconfig:"PROXY_CACHE_TTL"`
	RateLimit     float64       `yaml:"rateLimit"     envconfig:"RATE_LIMIT"`
	RateBurst     int           `yaml:"rateBurst"     envconfig:"RATE_BURST"`
	ProxyCount    int           `yaml:"proxyCount"    envconfig:"PROXY_COUNT"`
	ReadTimeout   time.Duration `yaml:"readTimeout"   envconfig:"READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"  envconfig:"WRITE_TIMEOUT"`
	// ExtraHosts are allowed proxy upstreams beyond the explorer and
	// Sourcify hosts.
	ExtraHosts []string `yaml:"extraHosts" envconfig:"EXTRA_HOSTS"`
	// ProxyMaxEntryKB is the largest upstream body the proxy cache admits.
	ProxyMaxEntryKB int `yaml:"proxyMaxEntryKB" envconfig:"PROXY_MAX_ENTRY_KB"`
}
