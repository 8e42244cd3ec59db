// Package main is the entry point for the scholar CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/scholar/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfgFile   string
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "scholar",
	Short: "Search academic results pages and export paper metadata",
	Long: `scholar queries an academic search engine with a boolean keyword query,
walks its result pages politely and collects title, authors, year, citation
count, DOI, URL and abstract for each paper. Results can be listed, exported
to CSV, XLSX, JSON, YAML or BibTeX, and kept in a run store for later export.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		l, closer, err := config.NewLogger(c.Logging)
		if err != nil {
			return err
		}
		cfg, logger, logCloser = c, l, closer
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./scholar.yaml or ~/.config/scholar/scholar.yaml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
