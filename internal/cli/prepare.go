package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Turn raw company content into processed chunks",
	Long: `Load raw content and write the processed-data file used by index.

Sources are tried in order: data.raw_dir (markdown, text and scraped JSON
files), data.raw_file (scraped JSON), then the built-in company data.

Examples:
  supportbot prepare
  supportbot prepare --config ./supportbot.yaml`,
	Args: cobra.NoArgs,
	RunE: runPrepare,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	result, err := newPreparer(cfg).Prepare()
	if err != nil {
		return fmt.Errorf("prepare failed: %w", err)
	}

	fmt.Printf("Prepare complete:\n")
	fmt.Printf("  Source:    %s\n", result.Origin)
	fmt.Printf("  Sections:  %d\n", result.Sections)
	fmt.Printf("  Documents: %d\n", result.Documents)
	fmt.Printf("  Chunks:    %d\n", len(result.Chunks))
	fmt.Printf("\nProcessed data stored at: %s\n", result.OutputFile)
	return nil
}
