package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cfgpkg "github.com/qm4/keyfetch/internal/config"
	"github.com/qm4/keyfetch/internal/linkscan"
	"github.com/qm4/keyfetch/internal/selectors"
)

var flagScope string

var scanCmd = &cobra.Command{
	Use:   "scan <text...>",
	Short: "Find a key link in message text and retrieve its code",
	Long: `Scan searches free text for the first link on a known key host and
retrieves it. With --scope, nothing happens unless the scope was enabled
with "keyfetch switch on".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagScope != "" && !cfgpkg.LoadState().Enabled(flagScope) {
			log.Debug().Str("scope", flagScope).Msg("Scope disabled, skipping")
			return nil
		}

		text := strings.Join(args, " ")
		link := linkscan.Find(text, selectors.Get().LinkDomains)
		if link == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "no key link found")
			return nil
		}

		return retrieve(cmd.Context(), cmd.OutOrStdout(), link)
	},
}

func init() {
	scanCmd.Flags().StringVar(&flagScope, "scope", "", "Only act if this scope is switched on")
	rootCmd.AddCommand(scanCmd)
}
