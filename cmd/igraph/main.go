package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/issuegraph/internal/config"
	"github.com/alfredjeanlab/issuegraph/internal/ui"
)

var (
	verbose     bool
	profileName string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "igraph",
	Short:         "Draw dependency graphs of tracker issues",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := applyProfile(cfg, profileName); err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		ui.Init(os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log walk progress at debug level")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "profile to use instead of the active one")

	rootCmd.AddGroup(
		&cobra.Group{ID: "graph", Title: "Graph Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)

	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, ui.RenderError("Error:"), err)
		os.Exit(1)
	}
}
