package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"supportbot/config"
	"supportbot/internal/adapter/qdrant"
	"supportbot/internal/adapter/store"
	"supportbot/internal/domain"
)

var (
	mirrorHost       string
	mirrorPort       int
	mirrorCollection string
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Export the vector store to a Qdrant collection",
	Long: `Copy every chunk and embedding of the snapshot into a Qdrant collection.
The collection is created with cosine distance when it does not exist.
Repeated exports overwrite points instead of duplicating them.

Examples:
  supportbot mirror
  supportbot mirror --host qdrant.internal --collection able-support`,
	Args: cobra.NoArgs,
	RunE: runMirror,
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
	mirrorCmd.Flags().StringVar(&mirrorHost, "host", "", "Qdrant host (default from config)")
	mirrorCmd.Flags().IntVar(&mirrorPort, "port", 0, "Qdrant gRPC port (default from config)")
	mirrorCmd.Flags().StringVar(&mirrorCollection, "collection", "", "collection name (default from config)")
}

func runMirror(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	// The snapshot is read as stored; no embedder calls are made.
	st, err := store.Load(cfg.Data.SnapshotFile, snapshotModel{name: cfg.Embedding.Model}, logger)
	if err != nil {
		return fmt.Errorf("failed to load vector store: %w", err)
	}
	if st.Len() == 0 {
		return fmt.Errorf("vector store is empty. Run 'supportbot index' first")
	}

	mc := qdrant.Config{
		Host:       cfg.Mirror.Host,
		Port:       cfg.Mirror.Port,
		APIKey:     config.Credential(cfg.Mirror.APIKeyEnv),
		Collection: cfg.Mirror.Collection,
		UseTLS:     cfg.Mirror.UseTLS,
	}
	if mirrorHost != "" {
		mc.Host = mirrorHost
	}
	if mirrorPort > 0 {
		mc.Port = mirrorPort
	}
	if mirrorCollection != "" {
		mc.Collection = mirrorCollection
	}

	m, err := qdrant.NewMirror(mc, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	written, err := m.Export(cmd.Context(), st.Chunks(), st.Embeddings())
	if err != nil {
		return fmt.Errorf("mirror failed: %w", err)
	}

	fmt.Printf("Mirrored %d of %d documents to %s:%d/%s\n", written, st.Len(), mc.Host, mc.Port, mc.Collection)
	return nil
}

// snapshotModel stands in for the embedder of a store that is only read.
type snapshotModel struct {
	name string
}

func (m snapshotModel) EmbedDocuments(_ context.Context, texts []string) []domain.Embedding {
	return make([]domain.Embedding, len(texts))
}

func (m snapshotModel) EmbedQuery(context.Context, string) domain.Embedding {
	return nil
}

func (m snapshotModel) Dimension() int {
	return 0
}

func (m snapshotModel) ModelName() string {
	return m.name
}
