package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/ui"
	"github.com/Mohsinsiddi/w3studio/internal/units"
)

var (
	convertDecimals int
	convertReverse  bool
)

// convertKinds maps a kind name to the hint category it converts with.
var convertKinds = map[string]units.Category{
	"token":   units.CategoryTokenDecimal,
	"ether":   units.CategoryEther,
	"eth":     units.CategoryEther,
	"gwei":    units.CategoryGwei,
	"wei":     units.CategoryWei,
	"percent": units.CategoryBasisPoints,
	"bps":     units.CategoryBasisPoints,
	"time":    units.CategoryUnixTimestamp,
	"date":    units.CategoryUnixTimestamp,
	"text":    units.CategoryBytes32Text,
}

var convertCmd = &cobra.Command{
	Use:   "convert <kind> <value>",
	Short: "Convert between display values and on-chain integers",
	Long: `Convert a display value to the raw on-chain argument, or back with --reverse.

Kinds: token, ether, gwei, wei, percent (basis points), time, text (bytes32)

Examples:
  w3studio convert token 1.5 --decimals 6       # → 1500000
  w3studio convert ether 0.01                   # → 10000000000000000
  w3studio convert percent 1.25                 # → 125
  w3studio convert time 2030-01-01T00:00:00Z    # → 1893456000
  w3studio convert text MINTER_ROLE             # → 0x4d49…
  w3studio convert token 1500000 --decimals 6 --reverse`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := convertValue(args[0], args[1], convertDecimals, convertReverse)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(map[string]string{"input": args[1], "output": out})
		}
		dir := "Display → Raw"
		if convertReverse {
			dir = "Raw → Display"
		}
		fmt.Println(ui.KeyValueBlock(dir, [][2]string{
			{"Kind", strings.ToLower(args[0])},
			{"Input", ui.Val(args[1])},
			{"Output", ui.Val(out)},
		}))
		return nil
	},
}

// convertValue converts value as a parameter of the given kind.
func convertValue(kind, value string, decimals int, reverse bool) (string, error) {
	cat, ok := convertKinds[strings.ToLower(kind)]
	if !ok {
		return "", fmt.Errorf("unknown kind %q; use token, ether, gwei, wei, percent, time or text", kind)
	}
	h := units.ParamHint{Name: kind, Type: "uint256", Category: cat}
	if cat == units.CategoryBytes32Text {
		h.Type = "bytes32"
	}
	if cat == units.CategoryTokenDecimal {
		h = h.WithDecimals(decimals)
	}
	if reverse {
		return h.FromRaw(value, "")
	}
	return h.ToRaw(value, "")
}

func init() {
	convertCmd.Flags().IntVar(&convertDecimals, "decimals", 18, "token decimals for the token kind")
	convertCmd.Flags().BoolVarP(&convertReverse, "reverse", "r", false, "convert a raw value to its display form")
}
