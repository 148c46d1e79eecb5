package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raqdev/docq-go/internal/agent"
	"github.com/raqdev/docq-go/internal/logging"
	"github.com/raqdev/docq-go/internal/provider"
)

// NewAskCmd constructs the `docq ask` command, which sends a single natural
// language question to the agent and streams the answer to stdout.
func NewAskCmd() *cobra.Command {
	var session string
	var noSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against the ingested document corpus",
		Long: `Ask the DocQ agent a natural language question.

The agent first retrieves matching passages from the ingested corpus; when
the best match scores below the ROUTER_THRESHOLD, web search results are
added as fallback evidence. Sources are listed after the answer.

Examples:
  docq ask "what is our data retention policy?"
  docq ask --session onboarding "and who approves exceptions?"
  ROUTER_THRESHOLD=0.8 docq ask "summarise the NDA template"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			retriever, closeRetriever, err := buildRetriever(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeRetriever()

			web, err := buildWebSearch(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			queryRouter, err := buildRouter(retriever, web)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			historyStore, closeHistory := openHistory(log)
			defer closeHistory()

			docAgent, err := agent.New(ctx, &agent.Config{
				ChatModel: chatModel,
				Router:    queryRouter,
				Tools:     buildTools(retriever, web),
				History:   historyStore,
			})
			if err != nil {
				return fmt.Errorf("ask: failed to initialise agent: %w", err)
			}

			question := strings.Join(args, " ")

			result, err := docAgent.Query(ctx, session, question, os.Stdout)
			if err != nil {
				return err //nolint:wrapcheck // CLI entry point — error goes directly to cobra
			}
			fmt.Println()

			if !noSources && len(result.Citations) > 0 && !agent.IsNotFound(result.Answer) {
				fmt.Println("\nSources:")
				for _, c := range result.Citations {
					if c.Title != "" {
						fmt.Printf("  [%d] %s — %s (%s)\n", c.Index, c.Title, c.Source, c.Origin)
					} else {
						fmt.Printf("  [%d] %s (%s)\n", c.Index, c.Source, c.Origin)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Conversation session name for multi-turn context")
	cmd.Flags().BoolVar(&noSources, "no-sources", false, "Suppress the source list after the answer")

	return cmd
}
