package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database schema",
	Long: `Create the tables and indexes distill needs, including the HNSW
vector index sized to the configured embedding dimension.

Every command initializes the schema on connect, so this exists mainly
for provisioning a fresh database explicitly. Changing the embedding
dimension later invalidates stored embeddings; reprocess items to
re-embed them.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	// Schema init already ran in PersistentPreRunE; reaching here means it
	// succeeded.
	fmt.Printf("Schema initialized (embedding dimension %d).\n", cfg.EmbedDimension)
	return nil
}
