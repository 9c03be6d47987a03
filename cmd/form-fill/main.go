// Command form-fill answers survey forms from the terminal.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/logging"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

var (
	// Set by the root PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "form-fill",
	Short: "Answer survey forms with a text-generation service",
	Long: `form-fill extracts the questions of a survey form, asks a text-generation
service for each answer and writes the answers back into the page.

Saved pages (.html) are read from --dir and written next to the input.
Live Google Forms are opened in Chrome with --url.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromFlagSet(cmd.Flags())
		if err != nil {
			return err
		}
		if version != "dev" {
			cfg.Version = version
		}

		// Only warnings reach the terminal unless a level was asked for
		level := cfg.LogLevel
		if !cmd.Flags().Changed("loglevel") {
			level = "warn"
		}
		logger, err = logging.New(level, false)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Version needs no configuration
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Form Fill\n")
		fmt.Fprintf(out, "Version: %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Git Commit: %s\n", gitCommit)
		fmt.Fprintf(out, "Built with: %s\n", runtime.Version())
	},
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags(), config.DefaultConfig())
	rootCmd.AddCommand(fillCmd, extractCmd, settingsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
