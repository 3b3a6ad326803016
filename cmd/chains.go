package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/w3studio/internal/chain"
	"github.com/Mohsinsiddi/w3studio/internal/config"
	"github.com/Mohsinsiddi/w3studio/internal/rpc"
	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

var (
	chainsPing     bool
	chainsTestnets bool
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List supported networks",
	Long: `List the networks contracts can be loaded from. --ping checks each
chain's endpoints and shows the one the configured algorithm selects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chains := chain.NewRegistry()
		var list []chain.Descriptor
		for _, d := range chains.All() {
			if d.Testnet && !chainsTestnets {
				continue
			}
			list = append(list, d)
		}

		var selected map[int64]string
		if chainsPing {
			dialer := rpc.NewDialer(rpc.ParseAlgorithm(cfg.RPCAlgorithm), rpcOverrides(chains), log)
			ping := func() error {
				selected = pingChains(cmd.Context(), dialer, list)
				return nil
			}
			if jsonOut {
				_ = ping()
			} else if err := ui.Spin(fmt.Sprintf("Pinging %d chains…", len(list)), ping); err != nil {
				return err
			}
		}

		if jsonOut {
			type row struct {
				chain.Descriptor
				SelectedRPC string `json:"selected_rpc,omitempty"`
			}
			out := make([]row, len(list))
			for i, d := range list {
				out[i] = row{d, selected[d.ChainID]}
			}
			return printJSON(out)
		}

		cols := []ui.Column{
			{Title: "ID", Width: 9, Right: true},
			{Title: "Slug", Width: 18},
			{Title: "Name", Width: 22},
			{Title: "Explorer", Width: 14},
		}
		if chainsPing {
			cols = append(cols, ui.Column{Title: "RPC", Width: 42})
		}
		t := ui.NewTable(cols)
		for _, d := range list {
			name := d.Name
			if d.Slug == cfg.DefaultChain || fmt.Sprint(d.ChainID) == cfg.DefaultChain {
				name = ui.StyleSuccess.Render(name + " ✓")
			}
			r := ui.Row{fmt.Sprint(d.ChainID), ui.Val(d.Slug), name, ui.Meta(d.ExplorerName)}
			if chainsPing {
				u, ok := selected[d.ChainID]
				if !ok {
					u = ui.StyleError.Render("unreachable")
				}
				r = append(r, u)
			}
			t.AddRow(r)
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d chains · default %s", len(list), cfg.DefaultChain)))
		return nil
	},
}

// pingChains selects an endpoint for every chain in parallel. Unreachable
// chains are missing from the result.
func pingChains(ctx context.Context, dialer *rpc.Dialer, list []chain.Descriptor) map[int64]string {
	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()

	var mu sync.Mutex
	out := make(map[int64]string, len(list))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range list {
		d := &list[i]
		g.Go(func() error {
			u, err := dialer.URL(ctx, d)
			if err != nil {
				log.WithError(err).WithField("chain", d.Slug).Debug("no endpoint")
				return nil
			}
			mu.Lock()
			out[d.ChainID] = u
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func init() {
	chainsCmd.Flags().BoolVar(&chainsPing, "ping", false, "ping endpoints and show the selected RPC")
	chainsCmd.Flags().BoolVar(&chainsTestnets, "testnets", true, "include testnets")
}
