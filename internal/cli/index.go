package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed processed chunks into the vector store",
	Long: `Embed the processed-data file and persist the vector store snapshot.

An existing snapshot built with the configured embedding model is reused.
A snapshot from another model, an unknown format or a corrupt file is
rebuilt from the processed data.

Examples:
  supportbot index           # Load or build the store
  supportbot index --force   # Always rebuild`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "rebuild even if a valid snapshot exists")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	embedder.OnProgress(func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	})

	start := time.Now()
	st, result, err := openStore(cmd.Context(), cfg, embedder, indexForce)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	switch {
	case result.Loaded:
		fmt.Printf("Vector store is up to date (%d documents)\n", result.Documents)
	case result.Rebuilt:
		fmt.Printf("\nVector store rebuilt (%s):\n", result.Reason)
	default:
		fmt.Printf("\nVector store created:\n")
	}
	if !result.Loaded {
		if result.Prepared != "" {
			fmt.Printf("  Prepared:  %s data -> %s\n", result.Prepared, cfg.Data.ProcessedFile)
		}
		fmt.Printf("  Documents: %d\n", result.Documents)
		fmt.Printf("  Dimension: %d\n", st.Dimension())
		fmt.Printf("  Model:     %s\n", st.ModelName())
		fmt.Printf("  Took:      %s\n", formatDuration(time.Since(start)))
	}

	fmt.Printf("\nSnapshot stored at: %s\n", cfg.Data.SnapshotFile)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
