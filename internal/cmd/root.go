package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/qm4/keyfetch/internal/challenge"
	"github.com/qm4/keyfetch/internal/config"
	"github.com/qm4/keyfetch/internal/cookies"
	"github.com/qm4/keyfetch/internal/httpclient"
	"github.com/qm4/keyfetch/internal/pipeline"
)

var (
	globalCfg         *config.Config
	flagVerbose       bool
	flagImportCookies bool
)

var rootCmd = &cobra.Command{
	Use:   "keyfetch",
	Short: "Fetch redemption codes from challenge-gated key pages",
	Long: `keyfetch resolves a key link, clears the puzzle challenge in front of
the key page if one is served, and prints the code found on the page.

Usage:
  keyfetch get "https://auth.platorelay.com/a?d=..."
  keyfetch scan --scope my-group "message text containing a link"
  keyfetch switch on --scope my-group
  keyfetch config show`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		globalCfg = config.Load()
		if flagVerbose {
			globalCfg.Verbose = true
		}
		setupLogging(cmd.ErrOrStderr(), globalCfg.LogLevel, globalCfg.Verbose)
		globalCfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flagImportCookies, "import-cookies", false, "Seed the session with browser cookies for the target host")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupLogging configures zerolog based on the log level.
func setupLogging(w io.Writer, level string, verbose bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	})
}

// requestTimeout returns the configured per-request timeout.
func requestTimeout() time.Duration {
	return time.Duration(globalCfg.Timeout) * time.Second
}

// newRetriever builds a pipeline from the loaded config.
func newRetriever() *pipeline.Retriever {
	timeout := requestTimeout()
	bypasser := challenge.New(challenge.Config{
		BaseURL:   globalCfg.ChallengeBase,
		Timeout:   timeout,
		Variation: globalCfg.Variation,
	})

	opts := pipeline.Options{
		UserAgent: globalCfg.UserAgent,
		Timeout:   timeout,
	}
	if flagImportCookies || globalCfg.ImportCookies {
		opts.Prepare = func(ctx context.Context, sess *httpclient.Session, target string) {
			cookies.Seed(ctx, sess, target)
		}
	}
	return pipeline.New(bypasser, opts)
}

// retrieve runs one retrieval and prints its outcome to out.
func retrieve(ctx context.Context, out io.Writer, raw string) error {
	res := newRetriever().Retrieve(ctx, raw)

	fmt.Fprintf(out, "target: %s\n", res.Target)
	if !res.OK() {
		return errors.New(res.Message())
	}

	if res.Challenged {
		fmt.Fprintln(out, "challenge: detected and cleared")
	}

	fmt.Fprintf(out, "code: %s\n", res.Code)
	fmt.Fprintf(out, "elapsed: %.2fs\n", res.Elapsed.Seconds())
	if globalCfg.Footer != "" {
		fmt.Fprintln(out, globalCfg.Footer)
	}
	return nil
}
