package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newUploadCommand(api func() API) *cobra.Command {
	return &cobra.Command{
		Use:   "upload [file...]",
		Short: "Upload and index documents (PDF, TXT, DOCX, MD)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				info, _ := f.Stat()
				doc, err := api().Upload(cmd.Context(), filepath.Base(path), f)
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("upload %s: %w", path, err)
				}
				size := "?"
				if info != nil {
					size = humanize.IBytes(uint64(info.Size()))
				}
				fmt.Fprintf(out, "%s  %s (%s, %d chunks)\n", doc.ID, doc.Filename, size, doc.ChunkCount)
			}
			return nil
		},
	}
}

func newDocumentsCommand(api func() API) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage indexed documents",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs, err := api().ListDocuments(cmd.Context())
			if err != nil {
				return fmt.Errorf("list documents: %w", err)
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILENAME\tTYPE\tCHUNKS\tUPLOADED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Filename, d.FileType, d.ChunkCount, humanize.Time(d.UploadedAt))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a document and its indexed chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api().DeleteDocument(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete document: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}
