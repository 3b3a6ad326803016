package cmd

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/rpc"
	"github.com/Mohsinsiddi/w3studio/internal/settings"
	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration and credentials",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		if shown.ExplorerAPIKey != "" {
			shown.ExplorerAPIKey = maskSecret(shown.ExplorerAPIKey)
		}
		data, err := json.MarshalIndent(shown, "", "  ")
		if err != nil {
			return err
		}
		if jsonOut {
			fmt.Println(string(data))
			return nil
		}
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Println(string(data))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))

		if secrets, err := openSecrets(); err == nil {
			for _, k := range []string{settings.KeyExplorerAPIKey, settings.KeyAIAPIKey} {
				state := ui.Meta("not set")
				if v, err := secrets.Get(k); err == nil && v != "" {
					state = ui.StyleSuccess.Render("stored " + maskSecret(v))
				}
				fmt.Printf("  %-18s %s\n", k, state)
			}
		}
		return nil
	},
}

// configSetters are the plain values `config set` accepts.
var configSetters = map[string]func(string) error{
	"default-chain": func(v string) error {
		d, err := chain.NewRegistry().Lookup(v)
		if err != nil {
			return fmt.Errorf("%w: %q", err, v)
		}
		cfg.DefaultChain = d.Slug
		return nil
	},
	"rpc-algorithm": func(v string) error {
		if rpc.ParseAlgorithm(v) != rpc.Algorithm(v) {
			return fmt.Errorf("unknown algorithm %q; use fastest, round-robin or failover", v)
		}
		cfg.RPCAlgorithm = v
		return nil
	},
	"sourcify-url": func(v string) error { cfg.SourcifyURL = v; return nil },
	"proxy-url":    func(v string) error { cfg.ProxyURL = v; return nil },
	"follow-beacon": func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("follow-beacon takes true or false")
		}
		cfg.FollowBeacon = b
		return nil
	},
	"audit-policy": func(v string) error { cfg.AuditPolicyFile = v; return nil },
	"cache-ttl": func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("cache-ttl takes whole seconds")
		}
		cfg.CacheTTL = n
		return nil
	},
	"log-level":   func(v string) error { cfg.LogLevel = v; return nil },
	"log-format":  func(v string) error { cfg.LogFormat = v; return nil },
	"ai-endpoint": func(v string) error { cfg.AI.Endpoint = v; return nil },
	"ai-model":    func(v string) error { cfg.AI.Model = v; return nil },
}

func configKeys() string {
	return strings.Join(slices.Sorted(maps.Keys(configSetters)), ", ")
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a configuration value",
	Long: `Set a configuration value. Keys:
  default-chain, rpc-algorithm, sourcify-url, proxy-url, follow-beacon,
  audit-policy, cache-ttl, log-level, log-format, ai-endpoint, ai-model

default-chain without a value opens a picker.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		set, ok := configSetters[key]
		if !ok {
			return fmt.Errorf("unknown key %q; valid keys: %s", key, configKeys())
		}
		value := ""
		switch {
		case len(args) == 2:
			value = args[1]
		case key == "default-chain":
			v, err := ui.PickItem("Default chain", ui.ChainItems(chain.NewRegistry().All()))
			if err != nil || v == "" {
				return err
			}
			value = v
		default:
			return fmt.Errorf("%s needs a value", key)
		}
		if err := set(value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", key, value)))
		return nil
	},
}

// credentialKeys maps the set-key names to settings keys.
var credentialKeys = map[string]string{
	"explorer": settings.KeyExplorerAPIKey,
	"ai":       settings.KeyAIAPIKey,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <explorer|ai> [key]",
	Short: "Store an API key in the OS keychain",
	Long: `Store the explorer or AI service key in the OS keychain. Without a key
argument it is read from the terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, ok := credentialKeys[args[0]]
		if !ok {
			return fmt.Errorf("unknown credential %q; use explorer or ai", args[0])
		}
		value := ""
		if len(args) == 2 {
			value = args[1]
		} else {
			v, err := readSecret("API key: ")
			if err != nil {
				return err
			}
			value = v
		}
		if value == "" {
			return fmt.Errorf("empty key")
		}
		secrets, err := openSecrets()
		if err != nil {
			return fmt.Errorf("keychain unavailable: %w", err)
		}
		s := settings.New(settings.NewMemoryStore(), secrets)
		if err := s.Set(settings.Persistent, name, value); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s key stored in keychain (%s)", args[0], maskSecret(value))))
		return nil
	},
}

var configClearSessionCmd = &cobra.Command{
	Use:   "clear-session",
	Short: "Forget the last loaded contract and other session values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settings.New(settings.NewFileStore(cfg.SessionPath()), nil)
		if err := s.Clear(settings.Session); err != nil {
			return err
		}
		fmt.Println(ui.Success("Session cleared."))
		return nil
	},
}

var configSetRPCCmd = &cobra.Command{
	Use:   "set-rpc <chain> <url>",
	Short: "Add a custom RPC for a chain",
	Long: `Add a custom RPC endpoint. Custom endpoints replace the built-in ones
for that chain.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := chain.NewRegistry().Lookup(args[0])
		if err != nil {
			return fmt.Errorf("%w: %q", err, args[0])
		}
		if err := cfg.AddRPC(d.Slug, args[1]); err != nil {
			fmt.Println(ui.Warn(err.Error()))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC added for %s: %s", d.Name, args[1])))
		return nil
	},
}

var configRemoveRPCCmd = &cobra.Command{
	Use:   "remove-rpc <chain> <url>",
	Short: "Remove a custom RPC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := chain.NewRegistry().Lookup(args[0])
		if err != nil {
			return fmt.Errorf("%w: %q", err, args[0])
		}
		if err := cfg.RemoveRPC(d.Slug, args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC removed for %s", d.Name)))
		return nil
	},
}

// maskSecret keeps the first and last four characters.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func init() {
	configCmd.AddCommand(configListCmd, configSetCmd, configSetKeyCmd, configClearSessionCmd, configSetRPCCmd, configRemoveRPCCmd)
}
