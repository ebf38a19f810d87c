package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgpkg "github.com/qm4/keyfetch/internal/config"
)

var switchCmd = &cobra.Command{
	Use:       "switch on|off --scope <scope>",
	Short:     "Enable or disable automatic scanning for a scope",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		if scope == "" {
			return fmt.Errorf("--scope is required")
		}

		on := args[0] == "on"
		state := cfgpkg.LoadState()
		state.SetEnabled(scope, on)
		if err := cfgpkg.SaveState(state); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "scope %s: %s\n", scope, args[0])
		return nil
	},
}

func init() {
	switchCmd.Flags().String("scope", "", "Scope to switch")
	rootCmd.AddCommand(switchCmd)
}
