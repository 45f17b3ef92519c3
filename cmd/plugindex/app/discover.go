package app

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/plugindex/plugindex/internal/github"
	"github.com/plugindex/plugindex/internal/pipeline"
	"github.com/plugindex/plugindex/internal/reconciler"
	"github.com/plugindex/plugindex/internal/validator"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one discovery pass over GitHub",
	Long: `Search GitHub for marketplace descriptors, validate the candidates, and
reconcile the results into the stored registry collections.

Manually curated entries are never removed by discovery. Use --dry-run to
see what a run would change without persisting anything.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().Int("limit", 0, "Cap the number of candidate repositories processed (0 = no cap)")
	discoverCmd.Flags().Bool("dry-run", false, "Run the full pipeline but persist nothing")
	discoverCmd.Flags().BoolP("verbose", "v", false, "Include extraction diagnostics in the report")
	discoverCmd.Flags().StringP("output", "o", "text", "Report format (text or json)")
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logr.FromContextOrDiscard(ctx)

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output != "text" && output != "json" {
		return fmt.Errorf("unsupported output format: %s", output)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	clientOpts := []github.Option{}
	if cfg.GitHub.Token != "" {
		clientOpts = append(clientOpts, github.WithToken(cfg.GitHub.Token))
	} else {
		logger.Info("No GitHub token configured, using anonymous rate limits")
	}
	if cfg.GitHub.BaseURL != "" {
		clientOpts = append(clientOpts, github.WithBaseURL(cfg.GitHub.BaseURL))
	}
	client := github.NewClient(clientOpts...)

	v, err := validator.New(client, validator.WithConcurrency(cfg.Discovery.Concurrency))
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}

	runner := pipeline.NewRunner(client, v, reconciler.New(st))

	logger.Info("Starting discovery run",
		"limit", limit, "dryRun", dryRun, "storage", cfg.Storage.Type)

	report, err := runner.Run(ctx, pipeline.Options{
		Limit:   limit,
		DryRun:  dryRun,
		Verbose: verbose,
	})
	if err != nil {
		return fmt.Errorf("discovery run failed: %w", err)
	}

	if output == "json" {
		return report.WriteJSON(os.Stdout)
	}
	return report.WriteText(os.Stdout)
}
