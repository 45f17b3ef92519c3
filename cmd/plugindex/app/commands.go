// Package app provides the command line interface for plugindex.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plugindex/plugindex/internal/config"
	"github.com/plugindex/plugindex/internal/store"
	"github.com/plugindex/plugindex/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "plugindex",
	DisableAutoGenTag: true,
	Short:             "Plugin marketplace discovery and registry",
	Long: `plugindex discovers Claude Code plugin marketplaces published on GitHub,
validates their descriptors, and maintains a registry of marketplaces and
the plugins they contain.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML)")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding config flag: %v\n", err)
	}

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// loadConfig reads the configuration named by the --config flag, falling
// back to defaults plus environment overrides when the flag is unset.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newStore builds the persistence backend selected by the configuration.
// The returned cleanup releases backend resources and is safe to call once.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Storage.Type {
	case config.StorageTypeGCS:
		gcs, err := store.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GCS store: %w", err)
		}
		return gcs, func() {
			if err := gcs.Close(); err != nil {
				logr.FromContextOrDiscard(ctx).Error(err, "Failed to close GCS store")
			}
		}, nil
	default:
		if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return store.NewFileStore(cfg.Storage.Path), func() {}, nil
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format version info: %w", err)
			}
			fmt.Println(string(output))
			return nil
		}

		fmt.Printf("plugindex %s (commit %s, built %s, %s, %s)\n",
			info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}
