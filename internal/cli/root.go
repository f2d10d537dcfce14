// Package cli provides the command-line interface for scry.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-srs/internal/app"
	"github.com/phrazzld/scry-srs/internal/config"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool

	// clock is the reference time for every command.
	clock = time.Now
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "scry",
	Short: "Spaced-repetition scheduling service",
	Long: `Scry schedules flashcard reviews with the FSRS memory model.

It serves the scheduling engine over HTTP and MCP, and exposes the same
operations on the command line for scripting and inspection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./scry.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(cardCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(heatmapCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration and applies the --verbose override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if verbose {
		cfg.Server.LogLevel = "debug"
	}
	return cfg, nil
}

// openApp loads configuration, sets up logging on logOut and wires the
// application. The caller closes the returned App.
func openApp(cmd *cobra.Command, logOut io.Writer) (*app.App, context.Context, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.SetupWithWriter(cfg.Server, logOut)
	if err != nil {
		return nil, nil, err
	}
	ctx := logger.WithLogger(cmd.Context(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	a.Version = Version
	a.Clock = clock
	log.Debug("configuration loaded",
		slog.String("driver", cfg.Database.Driver),
		slog.String("config_file", cfgFile))
	return a, ctx, nil
}
