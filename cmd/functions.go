package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/studio"
	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

var functionsInteractive bool

var functionsCmd = &cobra.Command{
	Use:   "functions [address|ens]",
	Short: "List read and write functions of a contract",
	Long: `List the functions of a contract, reads first. Dangerous privileged
functions (ownership, upgrades, admin, emergency) are flagged.

With --interactive, browse the functions, pick one, enter its arguments
with unit hints, and simulate the call.`,
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
			return printJSON(sess.Functions)
		}
		if !functionsInteractive {
			fmt.Println(ui.FunctionTable(sess))
			return nil
		}

		picked, err := ui.RunStudio(ui.NewStudioModel(sess))
		if err != nil {
			return err
		}
		if picked == nil {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		call := studio.Call{Signature: picked.Sig}
		for _, p := range picked.Inputs {
			label := p.Name
			if label == "" {
				label = p.Type
			}
			hint := p.Label
			if p.Example != "" {
				hint += ", e.g. " + p.Example
			}
			call.Args = append(call.Args, ui.Prompt(label, hint))
		}
		if picked.Payable {
			call.Value = ui.Prompt("value", "native amount in ether, blank for 0")
		}

		res, err := a.studio.Simulate(cmd.Context(), sess, call)
		if err != nil {
			return err
		}
		fmt.Println(ui.SimulationResult(res))
		if picked.IsWrite && res.Success {
			fmt.Println(ui.Hint(fmt.Sprintf("Send it with: w3studio send %q %s", picked.Sig, quoteArgs(call.Args))))
		}
		return nil
	},
}

func init() {
	functionsCmd.Flags().BoolVarP(&functionsInteractive, "interactive", "i", false, "browse functions and simulate one")
}
