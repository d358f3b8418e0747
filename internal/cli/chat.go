package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"supportbot/config"
	"supportbot/internal/domain"
	"supportbot/internal/usecase"
)

var (
	chatOnce    bool
	chatQuery   string
	chatJSON    bool
	chatSources bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the support bot",
	Long: `Start an interactive support conversation.

Answers are grounded in the chunks most similar to each question. Without a
chat provider key the bot answers from a built-in keyword table.

Commands inside the chat:
  /reset   start a new conversation
  /exit    quit

Examples:
  supportbot chat
  supportbot chat --once -q "what services do you offer" --json`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatOnce, "once", false, "answer a single question and exit")
	chatCmd.Flags().StringVarP(&chatQuery, "query", "q", "", "question for --once")
	chatCmd.Flags().BoolVar(&chatJSON, "json", false, "output the --once reply as JSON")
	chatCmd.Flags().BoolVar(&chatSources, "sources", false, "print the sources of each answer")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	if chatOnce && strings.TrimSpace(chatQuery) == "" {
		return fmt.Errorf("--once requires a question (-q)")
	}

	bot, err := newChatbot(cmd, cfg)
	if err != nil {
		return err
	}

	if chatOnce {
		reply := bot.Respond(ctx, chatQuery)
		if chatJSON {
			output, _ := json.MarshalIndent(reply, "", "  ")
			fmt.Println(string(output))
			return nil
		}
		fmt.Println(reply.Answer)
		return nil
	}

	return chatLoop(cmd, bot, os.Stdin, cmd.OutOrStdout())
}

// newChatbot wires the retriever and chat model. Only the chat model may be
// missing; an empty store just yields empty context.
func newChatbot(cmd *cobra.Command, cfg *config.Config) (*usecase.Chatbot, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	st, _, err := openStore(cmd.Context(), cfg, embedder, false)
	if err != nil {
		return nil, err
	}
	if st.Len() == 0 {
		logger.Warn("vector store is empty, answering without context", "path", cfg.Data.SnapshotFile)
	}

	model, err := newChatModel(cfg)
	if err != nil {
		return nil, err
	}

	return usecase.NewChatbot(newRetriever(cfg, st), model, usecase.ChatbotConfig{
		Company:       cfg.Chat.Company,
		HistoryBudget: cfg.Chat.HistoryBudget,
		ContextBudget: cfg.Chat.ContextBudget,
	}, logger)
}

func chatLoop(cmd *cobra.Command, bot *usecase.Chatbot, in io.Reader, out io.Writer) error {
	styles := defaultChatStyles()
	cfg := GetConfig()

	fmt.Fprintln(out, styles.Title.Render(fmt.Sprintf("%s support", cfg.Chat.Company)))
	fmt.Fprintln(out, styles.Help.Render("Ask a question. /reset starts over, /exit quits."))
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, styles.Prompt.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			bot.Reset()
			fmt.Fprintln(out, styles.Help.Render("Started a new conversation."))
			fmt.Fprintln(out)
			continue
		}

		reply := bot.Respond(cmd.Context(), line)

		style := styles.Answer
		if reply.Fallback {
			style = styles.Fallback
		}
		fmt.Fprintln(out, style.Render(reply.Answer))

		if chatSources {
			for _, src := range reply.Sources {
				fmt.Fprintln(out, styles.Source.Render(fmt.Sprintf("- %s (%s)",
					src.Metadata.String(domain.MetaSource), src.Metadata.String(domain.MetaSection))))
			}
		}
		fmt.Fprintln(out)
	}
}
