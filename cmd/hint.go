package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/ui"
	"github.com/Mohsinsiddi/w3studio/internal/units"
)

var hintDecimals int

var hintCmd = &cobra.Command{
	Use:   "hint <name> <type>",
	Short: "Show how a parameter will be entered and converted",
	Long: `Infer the display unit of a parameter from its name and Solidity type.

Examples:
  w3studio hint amount uint256 --decimals 6   # token amount
  w3studio hint deadline uint256              # date / time
  w3studio hint feeBps uint16                 # percent
  w3studio hint role bytes32                  # text or hex`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		h := units.Infer(args[0], args[1])
		if cmd.Flags().Changed("decimals") {
			h = h.WithDecimals(hintDecimals)
		}
		if jsonOut {
			return printJSON(h)
		}
		fmt.Println(ui.ParamHint(h))
		return nil
	},
}

func init() {
	hintCmd.Flags().IntVar(&hintDecimals, "decimals", 18, "token decimals for amount parameters")
}
