package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var promptQuery string

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the system prompt for a question",
	Long: `Render the system prompt the chat model would receive for a question,
including the retrieved context, without calling the model.

Examples:
  supportbot prompt -q "where is the company located"`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuery, "query", "q", "", "question to build the prompt for (required)")
	promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	bot, err := newChatbot(cmd, GetConfig())
	if err != nil {
		return err
	}

	prompt, err := bot.SystemPrompt(cmd.Context(), promptQuery)
	if err != nil {
		return fmt.Errorf("failed to render prompt: %w", err)
	}
	fmt.Println(prompt)
	return nil
}
