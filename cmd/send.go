package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3studio/internal/config"
	"github.com/Mohsinsiddi/w3studio/internal/studio"
	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

var (
	sendFlags  callFlags
	sendWallet string
	sendYes    bool
)

var sendCmd = &cobra.Command{
	Use:   "send <function> [args...]",
	Short: "Sign and send a write function call",
	Long: `Send a transaction calling a write function of the loaded contract.

The call is simulated first. Privileged functions (ownership transfer,
upgrades, admin changes, emergency withdrawals) require typing CONFIRM
exactly; --yes does not skip that.

Examples:
  w3studio send "transfer(address,uint256)" 0xabc… 1.5
  w3studio send deposit --value 0.1 --wallet deployer`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		w, err := a.signer(sendWallet)
		if err != nil {
			return err
		}
		req, err := a.target(sendFlags.target())
		if err != nil {
			return err
		}
		sess, err := a.load(cmd.Context(), req)
		if err != nil {
			return err
		}

		call := sendFlags.call(args)
		accounts, err := w.Accounts(cmd.Context())
		if err != nil {
			return err
		}
		call.From = accounts[0]

		fn, err := sess.Functions.Find(call.Signature)
		if err != nil {
			return err
		}
		if fn.Entry.IsReadFunction() {
			return fmt.Errorf("%w: use `w3studio simulate %s`", studio.ErrReadOnly, fn.Signature)
		}

		sim, err := a.studio.Simulate(cmd.Context(), sess, call)
		if err != nil {
			return err
		}
		fmt.Println(ui.SimulationResult(sim))
		if !sim.Success && !ui.ConfirmDanger("The simulation reverted. Send anyway?") {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		confirmation := ""
		switch {
		case fn.Dangerous:
			confirmation = ui.AskToken(fmt.Sprintf("%s is a privileged function on %s.\nIt can change who controls this contract or its funds.", fn.Signature, sess.Address), studio.ConfirmationToken)
		case !sendYes && !ui.Confirm(fmt.Sprintf("Send %s from %s on %s?", fn.Signature, ui.TruncateAddr(call.From), sess.Chain.Name)):
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.TxConfirmTimeout)
		defer cancel()
		var res *studio.SendResult
		err = ui.Spin("Waiting for the receipt…", func() error {
			var err error
			res, err = a.studio.Send(ctx, sess, call, confirmation, w)
			return err
		})
		if res != nil {
			if jsonOut {
				if perr := printJSON(res); perr != nil {
					return perr
				}
			} else {
				fmt.Println(ui.SendResult(res))
			}
		}
		return err
	},
}

func init() {
	sendFlags.register(sendCmd)
	sendCmd.Flags().StringVarP(&sendWallet, "wallet", "w", "", "wallet name (default: the default wallet)")
	sendCmd.Flags().BoolVarP(&sendYes, "yes", "y", false, "skip the confirmation for non-privileged functions")
}
