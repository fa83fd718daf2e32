package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var list bool
	var page int
	var perPage int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Enqueue images that have no alt text",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				result, err := store.NoAltPage(cmd.Context(), page, perPage)
				if err != nil {
					return err
				}
				if len(result.Images) == 0 {
					fmt.Fprintln(out, "Every image has alt text.")
					return nil
				}
				rows := make([][]string, 0, len(result.Images))
				for _, img := range result.Images {
					status := string(img.QueueStatus)
					if status == "" {
						status = "not queued"
					}
					rows = append(rows, []string{
						strconv.FormatInt(img.ImageID, 10),
						truncateCell(img.Title, 32),
						truncateCell(img.SourceURL, 56),
						status,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"IMAGE", "TITLE", "URL", "QUEUE"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				fmt.Fprintf(out, "%d image(s) without alt text\n", result.Total)
				return nil
			}

			count, err := store.EnqueueMissing(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Enqueued %d image(s) without alt text\n", count)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum images to enqueue")
	cmd.Flags().BoolVar(&list, "list", false, "List images without alt text instead of enqueueing")
	cmd.Flags().IntVar(&page, "page", 1, "Page number for --list")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "Rows per page for --list")
	return cmd
}
