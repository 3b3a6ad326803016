package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/config"
	"github.com/Mohsinsiddi/w3studio/internal/ens"
	"github.com/Mohsinsiddi/w3studio/internal/proxy"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

var proxyFollowBeacon bool

var proxyCmd = &cobra.Command{
	Use:   "proxy [address|ens]",
	Short: "Detect whether a contract is a proxy",
	Long: `Read the well-known proxy storage slots of a contract, then try
implementation(). No explorer or Sourcify request is made.

Examples:
  w3studio proxy 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48
  w3studio proxy --follow-beacon 0x…`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		req, err := a.target(args)
		if err != nil {
			return err
		}
		d, err := a.chains.Get(req.ChainID)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.LoadTimeout)
		defer cancel()
		client, err := a.dialer.Client(ctx, d)
		if err != nil {
			return err
		}

		address := req.Target
		if ens.IsName(address) {
			if !d.SupportsENS {
				return fmt.Errorf("%w: ENS is not available on %s", studio.ErrInvalidAddress, d.Name)
			}
			address, err = ens.Resolve(ctx, client, address)
			if err != nil {
				return err
			}
		} else if !common.IsHexAddress(address) {
			return fmt.Errorf("%w: %q", studio.ErrInvalidAddress, address)
		}

		det := proxy.NewDetector(client, log)
		var info proxy.Info
		detect := func() error {
			info = det.Detect(ctx, address)
			return nil
		}
		if jsonOut {
			_ = detect()
		} else if err := ui.Spin("Reading proxy slots…", detect); err != nil {
			return err
		}

		beacon := ""
		if info.Pattern == proxy.PatternBeaconSlot && (proxyFollowBeacon || cfg.FollowBeacon) {
			beacon = info.Implementation
			if impl := det.ResolveBeacon(ctx, beacon); impl != "" {
				info.Implementation = impl
			}
		}

		if jsonOut {
			return printJSON(struct {
				Address string `json:"address"`
				ChainID int64  `json:"chain_id"`
				proxy.Info
				Beacon string `json:"beacon,omitempty"`
			}{address, d.ChainID, info, beacon})
		}

		if !info.IsProxy {
			fmt.Println(ui.Info(fmt.Sprintf("%s on %s is not a recognised proxy", ui.Addr(address), d.Name)))
			return nil
		}
		pairs := [][2]string{
			{"Address", address},
			{"Chain", d.Name},
			{"Pattern", string(info.Pattern)},
		}
		if beacon != "" {
			pairs = append(pairs, [2]string{"Beacon", beacon})
		}
		label := "Implementation"
		if info.Pattern == proxy.PatternBeaconSlot && beacon == "" {
			label = "Beacon"
		}
		pairs = append(pairs, [2]string{label, info.Implementation})
		if url := d.AddressURL(info.Implementation); url != "" {
			pairs = append(pairs, [2]string{"Explorer", url})
		}
		fmt.Println(ui.KeyValueBlock("Proxy detected", pairs))
		return nil
	},
}

func init() {
	proxyCmd.Flags().BoolVar(&proxyFollowBeacon, "follow-beacon", false, "resolve beacon proxies to the beacon's implementation")
}
