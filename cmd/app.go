package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"

	"github.com/Mohsinsiddi/w3studio/internal/audit"
	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/config"
	"github.com/Mohsinsiddi/w3studio/internal/contract"
	"github.com/Mohsinsiddi/w3studio/internal/rpc"
	"github.com/Mohsinsiddi/w3studio/internal/settings"
	"github.com/Mohsinsiddi/w3studio/internal/source"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
	"github.com/Mohsinsiddi/w3studio/internal/ui"
	"github.com/Mohsinsiddi/w3studio/internal/wallet"
)

var errNoTarget = errors.New("no contract given and none loaded yet; run `w3studio load <address>` first")

// app is the wiring shared by the contract commands.
type app struct {
	chains   *chain.Registry
	settings *settings.Settings
	dialer   *rpc.Dialer
	studio   *studio.Studio
}

var ring keyring.Keyring

// openSecrets returns the keychain-backed store, opening the keychain on
// first use.
func openSecrets() (settings.Store, error) {
	if ring == nil {
		r, err := settings.OpenKeyring(filepath.Join(cfg.Dir(), "keyring"))
		if err != nil {
			return nil, err
		}
		ring = r
	}
	return settings.NewKeyringStore(ring, settings.KeychainService), nil
}

// newSettings combines the session file with the keychain. Without a
// keychain, credentials fall back to config and env.
func newSettings() *settings.Settings {
	var persistent settings.Store
	secrets, err := openSecrets()
	if err != nil {
		log.WithError(err).Warn("keychain unavailable; using config credentials only")
	} else {
		persistent = secrets
	}
	return settings.New(settings.NewFileStore(cfg.SessionPath()), persistent)
}

// credential reads key from settings, then falls back.
func credential(s *settings.Settings, key, fallback string) string {
	if v := s.String(key); v != "" {
		return v
	}
	return fallback
}

// newFetcher picks the provider transport: through a running proxy when
// configured, direct otherwise.
func newFetcher(explorerKey string) source.Fetcher {
	if cfg.ProxyURL != "" {
		return source.NewProxyFetcher(cfg.ProxyURL)
	}
	return source.NewDirectFetcher(explorerKey)
}

func newResolver(chains *chain.Registry, f source.Fetcher) *source.Resolver {
	return source.NewResolver(
		source.NewSourcify(cfg.SourcifyURL, f),
		source.NewExplorer(chains, f),
		source.WithCache(cfg.CacheSizeMB, cfg.CacheTTLDuration()),
		source.WithLogger(log),
	)
}

// rpcOverrides keys the configured custom RPCs by chain id.
func rpcOverrides(chains *chain.Registry) map[int64][]string {
	out := make(map[int64][]string, len(cfg.CustomRPCs))
	for key, urls := range cfg.CustomRPCs {
		d, err := chains.Lookup(key)
		if err != nil {
			log.WithField("chain", key).Warn("ignoring RPC override for unknown chain")
			continue
		}
		out[d.ChainID] = urls
	}
	return out
}

func newScanner() (*audit.Scanner, error) {
	if cfg.AuditPolicyFile == "" {
		return audit.NewScanner(nil), nil
	}
	p, err := audit.LoadPolicy(cfg.AuditPolicyFile)
	if err != nil {
		return nil, fmt.Errorf("loading audit policy: %w", err)
	}
	return audit.NewScanner(p), nil
}

func newApp() (*app, error) {
	chains := chain.NewRegistry()
	sets := newSettings()
	scanner, err := newScanner()
	if err != nil {
		return nil, err
	}
	dialer := rpc.NewDialer(rpc.ParseAlgorithm(cfg.RPCAlgorithm), rpcOverrides(chains), log)
	resolver := newResolver(chains, newFetcher(credential(sets, settings.KeyExplorerAPIKey, cfg.ExplorerAPIKey)))

	st := studio.New(chains, resolver, studioDial(dialer), studio.Options{
		FollowBeacon: cfg.FollowBeacon,
		Scanner:      scanner,
		LastContract: sets,
		Logger:       log,
	})
	return &app{chains: chains, settings: sets, dialer: dialer, studio: st}, nil
}

func studioDial(d *rpc.Dialer) studio.DialFunc {
	return func(ctx context.Context, desc *chain.Descriptor) (studio.Client, error) {
		c, err := d.Client(ctx, desc)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// currentChain resolves --chain or the configured default.
func (a *app) currentChain() (*chain.Descriptor, error) {
	d, err := a.chains.Lookup(cfg.DefaultChain)
	if err != nil {
		return nil, fmt.Errorf("%w: %q (see `w3studio chains`)", err, cfg.DefaultChain)
	}
	return d, nil
}

// target picks the contract for a command: the positional argument on the
// current chain, else the last loaded contract (on its own chain unless
// --chain was given). The last contract's descriptor rides along so
// follow-up commands skip the providers.
func (a *app) target(args []string) (studio.LoadRequest, error) {
	req, err := a.targetAddress(args)
	if err != nil || abiFlag == "" {
		return req, err
	}
	req.ABI, req.ABIName, err = suppliedABI(abiFlag)
	return req, err
}

// suppliedABI reads --abi: a built-in interface id, else a file.
func suppliedABI(ref string) ([]contract.ABIEntry, string, error) {
	if iface, ok := contract.GetInterface(strings.ToLower(ref)); ok {
		return iface.ABI, iface.Name, nil
	}
	abi, err := contract.LoadFromArtifact(ref)
	if err != nil {
		ids := make([]string, 0)
		for _, i := range contract.AllInterfaces() {
			ids = append(ids, i.ID)
		}
		return nil, "", fmt.Errorf("--abi %q: %w (built-ins: %s)", ref, err, strings.Join(ids, ", "))
	}
	name := strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
	return abi, name, nil
}

func (a *app) targetAddress(args []string) (studio.LoadRequest, error) {
	if len(args) > 0 && args[0] != "" {
		d, err := a.currentChain()
		if err != nil {
			return studio.LoadRequest{}, err
		}
		return studio.LoadRequest{ChainID: d.ChainID, Target: args[0]}, nil
	}
	lc, err := a.settings.LastContract()
	if err != nil {
		return studio.LoadRequest{}, err
	}
	if lc == nil {
		return studio.LoadRequest{}, errNoTarget
	}
	req := studio.LoadRequest{ChainID: lc.ChainID, Target: lc.Address, Cached: lc.Descriptor}
	if chainFlag != "" {
		d, err := a.currentChain()
		if err != nil {
			return studio.LoadRequest{}, err
		}
		req.ChainID = d.ChainID
	}
	return req, nil
}

// load runs the pipeline behind a spinner.
func (a *app) load(ctx context.Context, req studio.LoadRequest) (*studio.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, config.LoadTimeout)
	defer cancel()

	var sess *studio.Session
	run := func() error {
		var err error
		sess, err = a.studio.Load(ctx, req)
		return err
	}
	if jsonOut {
		return sess, run()
	}
	err := ui.Spin("Loading "+req.Target+"…", run)
	return sess, err
}

func newWalletManager() (*wallet.Manager, error) {
	secrets, err := openSecrets()
	if err != nil {
		return nil, fmt.Errorf("wallet keys need the keychain: %w", err)
	}
	return wallet.NewManager(secrets, wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath()))), nil
}

// signer returns the named wallet, or the default one.
func (a *app) signer(name string) (*wallet.Local, error) {
	mgr, err := newWalletManager()
	if err != nil {
		return nil, err
	}
	var acct *wallet.Account
	if name != "" {
		acct, err = mgr.Get(name)
	} else {
		acct, err = mgr.Default()
	}
	if err != nil {
		return nil, err
	}
	return wallet.NewLocal(mgr, acct, func(ctx context.Context, chainID int64) (wallet.Backend, error) {
		d, err := a.chains.Get(chainID)
		if err != nil {
			return nil, err
		}
		c, err := a.dialer.Client(ctx, d)
		if err != nil {
			return nil, err
		}
		return c, nil
	}), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func userError(err error) string {
	return source.UserMessage(err)
}
