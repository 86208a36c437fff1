// Package cli provides the command-line interface for distill.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/distillkb/distill/internal/config"
	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/extract"
	"github.com/distillkb/distill/internal/insight"
	"github.com/distillkb/distill/internal/llm"
	"github.com/distillkb/distill/internal/service"
	"github.com/distillkb/distill/internal/storage"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	owner   string

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "Knowledge capture and distillation pipeline",
	Long: `Distill captures raw material (notes, web pages, documents, images),
extracts its text, distills it into structured insights with an AI model,
and makes everything searchable via hybrid keyword + vector retrieval.

Captures land in a PENDING inbox and are processed asynchronously; each
item ends DONE or ERROR so you always know what happened to it.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if owner != "" {
			cfg.Owner = owner
		}

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// getService builds the pipeline service. Missing AI backends degrade
// rather than fail: a nil chat model means offline fallbacks, a missing
// embedder means keyword-only search.
func getService(ctx context.Context) (*service.Service, error) {
	chat, err := llm.NewChat(ctx, cfg)
	if err != nil {
		chat = nil
	}

	embedder, err := llm.NewEmbedder(ctx, cfg)
	if err != nil {
		embedder = llm.NoEmbedder{Dim: cfg.EmbedDimension}
	}

	blobs, err := storage.NewFSStore(cfg.BlobRoot)
	if err != nil {
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	extractor := extract.New(chat, blobs, nil)
	generator := insight.NewGenerator(chat, cfg.GenerateMaxChars, nil)

	return service.New(dbClient, extractor, generator, embedder, service.Options{
		StaleWindow: cfg.StaleWindow,
	}), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "", "owner scope (defaults to DISTILL_OWNER)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(relatedCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statsCmd)
}

// bareID accepts either a bare record ID or the table:id form printed in
// command output and returns the bare ID.
func bareID(arg, table string) string {
	return strings.TrimPrefix(arg, table+":")
}
