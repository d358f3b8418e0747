package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"supportbot/internal/domain"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the chunks closest to a query",
	Long: `Search the vector store by cosine similarity.

Examples:
  supportbot query -q "how do I contact support"
  supportbot query -q "pricing" --top-k 5 --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	st, _, err := openStore(cmd.Context(), cfg, embedder, false)
	if err != nil {
		return err
	}
	if st.Len() == 0 {
		return fmt.Errorf("vector store is empty. Run 'supportbot prepare' and 'supportbot index' first")
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	results := st.Search(cmd.Context(), queryText, topK)

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (%s, score: %.3f) ---\n", i+1,
			r.Chunk.Metadata.String(domain.MetaSource), r.Chunk.Metadata.String(domain.MetaType), r.Score)
		text := r.Chunk.Content
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}
