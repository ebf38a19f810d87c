package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/qm4/keyfetch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and manage default config",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print current config as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := json.MarshalIndent(globalCfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		value := args[1]

		switch key {
		case "user_agent":
			globalCfg.UserAgent = value
		case "challenge_base":
			globalCfg.ChallengeBase = value
		case "log_level":
			globalCfg.LogLevel = value
		case "footer":
			globalCfg.Footer = value
		case "timeout":
			parsed, err := strconv.Atoi(value)
			if err != nil || parsed < 1 {
				return fmt.Errorf("invalid timeout for %s: %q", key, value)
			}
			globalCfg.Timeout = parsed
		case "variation":
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil || parsed < 0 || parsed > 1 {
				return fmt.Errorf("invalid variation for %s: %q", key, value)
			}
			globalCfg.Variation = parsed
		case "verbose", "import_cookies":
			parsed, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid bool for %s: %q", key, value)
			}
			if key == "verbose" {
				globalCfg.Verbose = parsed
			} else {
				globalCfg.ImportCookies = parsed
			}
		default:
			return fmt.Errorf("unsupported config key: %s", key)
		}

		if err := cfgpkg.Save(globalCfg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "set %s=%s\n", key, value)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cfgpkg.FilePath())
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
