package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"growth-mcp/internal/assistant"
	"growth-mcp/internal/config"
	"growth-mcp/internal/logging"
	"growth-mcp/internal/mcp"
	"growth-mcp/internal/reference"
	"growth-mcp/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
	table   *reference.Table
)

var rootCmd = &cobra.Command{
	Use:   "growth-mcp",
	Short: "Growth-MCP tracks child growth percentiles in a conversation",
	Long: `An MCP Server that turns classified chat turns (sex, age, height, weight) into
LMS percentile scores against a WHO-derived reference, keeps a short history per user
and projects height and weight 12 months ahead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		table, err = loadReference(cfg)
		if err != nil {
			return err
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Int("referenceEntries", table.Len()).
			Msg("Growth-MCP starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a := assistant.New(table, store.NewMemoryStore(), assistant.Options{MermaidCharts: cfg.EnableMermaidCharts})
		server, err := mcp.NewServer(a, Version)
		if err != nil {
			return err
		}
		return server.Start(ctx)
	},
}

func loadReference(cfg *config.AppConfig) (*reference.Table, error) {
	if cfg.ReferenceTablePath == "" {
		t, err := reference.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load embedded reference table: %w", err)
		}
		return t, nil
	}

	t, err := reference.Load(cfg.ReferenceTablePath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.ReferenceTablePath).Int("entries", t.Len()).Msg("Loaded reference table from file")
	return t, nil
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(newReplayCmd(), newPercentileCmd())
}
