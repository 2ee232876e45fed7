package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newThreadsCommand(api func() API) *cobra.Command {
	var skip, limit int

	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Browse and manage conversation threads",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List threads, most recently active first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := api().ListThreads(cmd.Context(), skip, limit)
			if err != nil {
				return fmt.Errorf("list threads: %w", err)
			}
			if len(page.Threads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No threads.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tMESSAGES\tUPDATED")
			for _, th := range page.Threads {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", th.ID, th.Title, th.MessageCount, humanize.Time(th.UpdatedAt))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if page.Pagination.HasMore {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d shown; use --skip %d for more\n", len(page.Threads), page.Pagination.Total, skip+len(page.Threads))
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a thread's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := api().ThreadMessages(cmd.Context(), args[0], skip, limit)
			if err != nil {
				return fmt.Errorf("show thread: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n\n", page.Thread.Title)
			for _, msg := range page.Messages {
				fmt.Fprintf(cmd.OutOrStdout(), "%s> %s\n", msg.Role, msg.Content)
				if len(msg.SourceDocuments) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "   sources: %s\n", strings.Join(msg.SourceDocuments, ", "))
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	for _, c := range []*cobra.Command{list, show} {
		c.Flags().IntVar(&skip, "skip", 0, "Items to skip")
		c.Flags().IntVarP(&limit, "limit", "n", 20, "Page size (1..100)")
	}

	rename := &cobra.Command{
		Use:   "rename [id] [title]",
		Short: "Rename a thread",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, err := api().RenameThread(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return fmt.Errorf("rename thread: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", th.ID, th.Title)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a thread and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := api().DeleteThread(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete thread: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%d messages)\n", args[0], n)
			return nil
		},
	}

	cmd.AddCommand(list, show, rename, remove)
	return cmd
}
