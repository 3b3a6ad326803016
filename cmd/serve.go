package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/logging"
	"github.com/Mohsinsiddi/w3studio/internal/rpc"
	"github.com/Mohsinsiddi/w3studio/internal/server"
	"github.com/Mohsinsiddi/w3studio/internal/settings"
	"github.com/Mohsinsiddi/w3studio/internal/source"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

var serveFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and credential-injecting proxy",
	Long: `Serve the contract API and a proxy for explorer and Sourcify requests.
The proxy adds the server's explorer key, so clients never hold it.

Settings come from serve.yaml in the config dir (or --file) and
W3STUDIO_SERVE_* variables. Point a CLI at the proxy with:
  W3STUDIO_PROXY_URL=http://127.0.0.1:8787 w3studio load …`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The CLI default of warn hides the server's request logs.
		if logLevel == "" && !verbose && cfg.LogLevel == "warn" {
			l, err := logging.Init("info", cfg.LogFormat)
			if err != nil {
				return err
			}
			log = l
		}
		sc, err := cfg.LoadServe(serveFile)
		if err != nil {
			return err
		}

		chains := chain.NewRegistry()
		sets := newSettings()
		upstream := source.NewDirectFetcher(credential(sets, settings.KeyExplorerAPIKey, cfg.ExplorerAPIKey))
		sourcify := source.NewSourcify(cfg.SourcifyURL, upstream)
		resolver := source.NewResolver(
			sourcify,
			source.NewExplorer(chains, upstream),
			source.WithCache(cfg.CacheSizeMB, cfg.CacheTTLDuration()),
			source.WithLogger(log),
		)
		scanner, err := newScanner()
		if err != nil {
			return err
		}
		dialer := rpc.NewDialer(rpc.ParseAlgorithm(cfg.RPCAlgorithm), rpcOverrides(chains), log)
		st := studio.New(chains, resolver, studioDial(dialer), studio.Options{
			FollowBeacon: cfg.FollowBeacon,
			Scanner:      scanner,
			Logger:       log,
		})

		hosts := append(chains.ExplorerAPIHosts(), sourcify.Host())
		hosts = append(hosts, sc.ExtraHosts...)

		srv := server.New(server.Config{
			Addr:          sc.Addr,
			AllowedHosts:  hosts,
			ProxyCacheMB:  sc.ProxyCacheMB,
			ProxyCacheTTL: sc.ProxyCacheTTL,
			ProxyMaxEntry: sc.ProxyMaxEntryKB << 10,
			RateLimit:     sc.RateLimit,
			RateBurst:     sc.RateBurst,
			ProxyCount:    sc.ProxyCount,
			ReadTimeout:   sc.ReadTimeout,
			WriteTimeout:  sc.WriteTimeout,
		}, st, upstream, log)

		fmt.Println(ui.Success("Serving on http://" + sc.Addr))
		fmt.Println(ui.Meta(fmt.Sprintf("  proxy allows %d upstream hosts · Ctrl+C to stop", len(hosts))))
		return srv.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveFile, "file", "f", "", "serve config file (default: <config>/serve.yaml)")
}
