package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/grounded-chat/internal/client"
)

func newAskCommand(api func() API) *cobra.Command {
	var (
		threadID   string
		documentID string
		web        bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question grounded in your documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := api().Chat(cmd.Context(), client.ChatRequest{
				Message:         strings.Join(args, " "),
				ThreadID:        threadID,
				DocumentID:      documentID,
				EnableWebSearch: web,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.AssistantText)
			if len(resp.Sources) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Sources:")
				for _, src := range resp.Sources {
					fmt.Fprintf(out, "  - %s\n", src)
				}
			}
			fmt.Fprintf(out, "\nthread: %s\n", resp.ThreadID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "Continue an existing thread")
	cmd.Flags().StringVarP(&documentID, "document", "d", "", "Restrict retrieval to one document")
	cmd.Flags().BoolVarP(&web, "web", "w", true, "Search the web as well as documents (--web=false to disable)")
	return cmd
}

func newSearchCommand(api func() API) *cobra.Command {
	var (
		minScore float64
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Show the passages a question would retrieve",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.SearchRequest{Query: strings.Join(args, " ")}
			if cmd.Flags().Changed("min-score") {
				req.MinScore = &minScore
			}
			if cmd.Flags().Changed("limit") {
				req.MaxChunks = &limit
			}
			resp, err := api().Search(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(resp.Items) == 0 {
				fmt.Fprintln(out, "No relevant passages found.")
				return nil
			}
			for i, item := range resp.Items {
				fmt.Fprintf(out, "[%d] %s (score %.2f)\n", i+1, item.Source, item.Score)
				fmt.Fprintf(out, "    %s\n", snippet(item.Text, 200))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum relevance (0..1)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum passages")
	return cmd
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
