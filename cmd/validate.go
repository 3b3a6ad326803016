package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/ui"
	"github.com/Mohsinsiddi/w3studio/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <type> <value>",
	Short: "Check a value against a Solidity type",
	Long: `Validate input for an ABI parameter without touching the network.

Array values may be JSON ("[1,2]") or comma-separated ("1,2").

Examples:
  w3studio validate address 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
  w3studio validate uint8 256
  w3studio validate "address[]" "0xabc…,0xdef…"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		solType, value := args[0], args[1]
		if strings.HasSuffix(strings.TrimSpace(solType), "]") {
			norm, err := validate.NormalizeArray(solType, value)
			if err != nil {
				return err
			}
			value = norm
		}
		if err := validate.Value(solType, value); err != nil {
			return err
		}
		if value != args[1] {
			fmt.Println(ui.Success(fmt.Sprintf("valid %s: %s", solType, value)))
		} else {
			fmt.Println(ui.Success("valid " + solType))
		}
		return nil
	},
}
