package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultChain     = "ethereum"
	defaultAlgorithm = "fastest"
	defaultCacheMB   = 16
	defaultCacheTTL  = 600

	envPrefix      = "W3STUDIO"
	configFile     = "config.json"
	walletsFile    = "wallets.json"
	sessionFile    = "session.json"
	serveFile      = "serve.yaml"
	defaultAIModel = "gpt-4o-mini"
)

// Load reads config from dir (or creates defaults) and applies environment
// overrides. dir defaults to ~/.w3studio.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".w3studio")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	return cfg, nil
}

// Save writes the config to disk. Environment overrides active at load time
// are written too.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chain, url string) error {
	rpcs := c.CustomRPCs[chain]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = slices.Delete(rpcs, idx, idx+1)
	if len(c.CustomRPCs[chain]) == 0 {
		delete(c.CustomRPCs, chain)
	}
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[chain]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the wallet metadata file.
func (c *Config) WalletsPath() string { return filepath.Join(c.configDir, walletsFile) }

// SessionPath is the session-scoped settings file.
func (c *Config) SessionPath() string { return filepath.Join(c.configDir, sessionFile) }

// CacheTTLDuration returns CacheTTL as a duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// LoadServe reads the serve settings from path, or from serve.yaml in the
// config dir when path is empty, then applies W3STUDIO_SERVE_* overrides.
// A missing file yields defaults.
func (c *Config) LoadServe(path string) (*ServeConfig, error) {
	sc := &ServeConfig{
		Addr:          "127.0.0.1:8787",
		ProxyCacheMB:  32,
		ProxyCacheTTL: 5 * time.Minute,
		RateLimit:     5,
		RateBurst:     20,
		// Multi-file verified sources run to a few hundred KB.
		ProxyMaxEntryKB: 256,
	}
	explicit := path != ""
	if !explicit {
		path = filepath.Join(c.configDir, serveFile)
	}
	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("opening serve config: %w", err)
	default:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(sc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := envconfig.Process(envPrefix+"_SERVE", sc); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return sc, nil
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		DefaultChain: defaultChain,
		RPCAlgorithm: defaultAlgorithm,
		CacheSizeMB:  defaultCacheMB,
		CacheTTL:     defaultCacheTTL,
		LogLevel:     "warn",
		LogFormat:    "text",
		AI:           AIConfig{Model: defaultAIModel},
		CustomRPCs:   make(map[string][]string),
		configDir:    dir,
	}
}
