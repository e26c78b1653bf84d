// Command vault is the CLI of the local secret vault daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/and161185/localvault/internal/ui"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprint(os.Stderr, ui.EnsureNewline(ui.Fail()+" "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "vault",
		Short:         "Manage secrets in the local encrypted vault",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file")
	root.PersistentFlags().StringVar(&a.socket, "socket", "", "daemon socket (default from config)")

	root.AddCommand(
		newStatusCmd(a),
		newInitCmd(a),
		newUnlockCmd(a),
		newRecoverCmd(a),
		newLockCmd(a),
		newDestroyCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newUpdateCmd(a),
		newRemoveCmd(a),
		newActivateCmd(a),
		newDeactivateCmd(a),
		newDeactivateAllCmd(a),
	)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root
}
