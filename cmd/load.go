package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

var loadCmd = &cobra.Command{
	Use:   "load [address|ens]",
	Short: "Load a contract: detect proxies, fetch the ABI, scan for risks",
	Long: `Load a deployed contract and remember it for follow-up commands.

The ABI comes from Sourcify first and the chain explorer second. When the
address is a proxy, the implementation's ABI is used instead of the proxy's
own. ENS names are accepted on chains that support them.

Examples:
  w3studio load 0x6B175474E89094C44Da98b954EedeAC495271d0F
  w3studio load vitalik.eth
  w3studio load 0x8335… --chain base`,
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
		sess, err := a.load(cmd.Context(), req)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(sess)
		}
		fmt.Println(ui.SessionSummary(sess))
		fmt.Println(ui.Hint("List functions with: w3studio functions --interactive"))
		return nil
	},
}
