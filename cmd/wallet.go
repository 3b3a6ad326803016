package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Mohsinsiddi/w3studio/internal/ui"
)

var walletKeyFlag string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage signing wallets",
	Long: `Signing wallets back the send command. Private keys are stored in the
OS keychain; only names and addresses are written to wallets.json.`,
}

var walletImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import a private key",
	Long: `Import a hex private key under a name. Without --key the key is read
from the terminal without echo.

The first wallet imported becomes the default.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		key := walletKeyFlag
		if key == "" {
			key, err = readSecret("Private key: ")
			if err != nil {
				return err
			}
		}
		acct, err := mgr.Import(name, key)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q imported: %s", name, ui.Addr(acct.Address))))
		if !acct.IsDefault {
			fmt.Println(ui.Hint("Set as default with: w3studio wallet use " + name))
		}
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		accounts, err := mgr.List()
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(accounts)
		}
		if len(accounts) == 0 {
			fmt.Println(ui.Info("No wallets yet."))
			fmt.Println(ui.Hint("Import one with: w3studio wallet import deployer"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 44},
			{Title: "Added", Width: 12},
			{Title: "Default", Width: 8},
		})
		for _, a := range accounts {
			def := ""
			if a.IsDefault {
				def = ui.StyleSuccess.Render("✓")
			}
			t.AddRow(ui.Row{ui.Val(a.Name), ui.Addr(a.Address), ui.Meta(addedOn(a.CreatedAt)), def})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d wallet(s)", len(accounts))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !ui.ConfirmDanger(fmt.Sprintf("Remove wallet %q and delete its key?", name)) {
			fmt.Println(ui.Meta("Cancelled."))
			return nil
		}
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		if err := mgr.Remove(name); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Set the default wallet",
	Long:  "Set the default signing wallet. Without a name, pick one interactively.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newWalletManager()
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		} else {
			accounts, err := mgr.List()
			if err != nil {
				return err
			}
			name, err = ui.PickItem("Default wallet", ui.AccountItems(accounts))
			if err != nil {
				return err
			}
			if name == "" {
				return nil
			}
		}
		if err := mgr.SetDefault(name); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Default wallet set to %q", name)))
		return nil
	},
}

// addedOn trims an RFC 3339 timestamp to its date.
func addedOn(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

// readSecret reads a line from the terminal without echo, or a plain line
// when stdin is not a terminal.
func readSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ui.Prompt(strings.TrimSuffix(label, ": "), ""), nil
	}
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading key: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func init() {
	walletImportCmd.Flags().StringVar(&walletKeyFlag, "key", "", "hex private key (prompted when omitted)")
	walletCmd.AddCommand(walletImportCmd, walletListCmd, walletRemoveCmd, walletUseCmd)
}
