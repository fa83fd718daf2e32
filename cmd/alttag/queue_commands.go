package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"alttag/internal/processor"
	"alttag/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the captioning queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRequeueCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	for _, action := range []string{"approve", "reject", "skip", "process"} {
		queueCmd.AddCommand(newQueueActionCommand(ctx, action))
	}

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var viewFlag string
	var statusFlag string
	var page int
	var perPage int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue rows by view",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			view, ok := queue.ParseView(viewFlag)
			if !ok {
				return fmt.Errorf("invalid view %q (use active or history)", viewFlag)
			}
			var status queue.Status
			if strings.TrimSpace(statusFlag) != "" {
				status, ok = queue.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("invalid status %q (one of: %s)", statusFlag, statusNames())
				}
			}

			result, err := store.ListPage(cmd.Context(), page, perPage, view, status)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Jobs) == 0 {
				fmt.Fprintf(out, "No %s queue rows.\n", view)
				return nil
			}

			rows := make([][]string, 0, len(result.Jobs))
			for _, job := range result.Jobs {
				rows = append(rows, []string{
					strconv.FormatInt(job.ID, 10),
					strconv.FormatInt(job.ImageID, 10),
					string(job.Status),
					formatConfidence(job.Confidence),
					strconv.Itoa(job.Attempts),
					truncateCell(coalesce(job.FinalAlt, job.SuggestedAlt), 48),
					truncateCell(coalesce(job.ErrorCode, "-"), 24),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "IMAGE", "STATUS", "CONF", "TRIES", "ALT TEXT", "ERROR"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "Page %d of %d rows (%d per page)\n", result.Page, result.Total, result.PerPage)
			return nil
		},
	}

	cmd.Flags().StringVar(&viewFlag, "view", "active", "View to list (active or history)")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Narrow the view to a single status")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "Rows per page")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			counts, err := store.ActiveStatusCounts(cmd.Context())
			if err != nil {
				return err
			}
			noAlt, err := store.CountNoAlt(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"STATUS", "COUNT"},
				[][]string{
					{"queued", strconv.Itoa(counts.Queued)},
					{"processing", strconv.Itoa(counts.Processing)},
					{"generated", strconv.Itoa(counts.Generated)},
					{"failed", strconv.Itoa(counts.Failed)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Active rows: %d\n", counts.Total())
			fmt.Fprintf(out, "Images without alt text: %d\n", noAlt)

			if counts.Failed > 0 {
				latest, err := store.LatestFailed(cmd.Context())
				if err != nil {
					return err
				}
				if latest != nil {
					fmt.Fprintf(out, "Latest failure (row %d, image %d): %s: %s\n",
						latest.ID, latest.ImageID, latest.ErrorCode, latest.ErrorMessage)
				}
			}
			return nil
		},
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var parentID int64

	cmd := &cobra.Command{
		Use:   "add <image-id>",
		Short: "Enqueue an image for captioning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			imageStore, err := ctx.imageStore()
			if err != nil {
				return err
			}
			img, err := imageStore.GetByID(cmd.Context(), imageID)
			if err != nil {
				return err
			}
			if img == nil {
				return fmt.Errorf("image %d not found", imageID)
			}

			created, err := store.Enqueue(cmd.Context(), imageID, parentID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "Image %d queued for captioning\n", imageID)
			} else {
				fmt.Fprintf(out, "Image %d is already in the queue\n", imageID)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&parentID, "parent", 0, "Containing page or article id")
	return cmd
}

func newQueueRequeueCommand(ctx *commandContext) *cobra.Command {
	var parentID int64

	cmd := &cobra.Command{
		Use:   "requeue <image-id>",
		Short: "Reset an image's queue row back to queued",
		Long:  "Resets the row for the image fully back to queued, clearing generation results, errors, and attempts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			if err := store.Requeue(cmd.Context(), imageID, parentID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Image %d requeued\n", imageID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&parentID, "parent", 0, "Containing page or article id")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <image-id>",
		Short: "Remove an image's queue rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			removed, err := store.DeleteByImage(cmd.Context(), imageID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d queue row(s) for image %d\n", removed, imageID)
			return nil
		},
	}
}

func newQueueActionCommand(ctx *commandContext, action string) *cobra.Command {
	var altText string

	short := map[string]string{
		"approve": "Approve a suggestion and commit it as live alt text",
		"reject":  "Reject a row and clear the image's alt text",
		"skip":    "Skip a row and clear the image's alt text",
		"process": "Regenerate a suggestion for one row",
	}[action]

	cmd := &cobra.Command{
		Use:   action + " <row-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, err := parseID(args[0])
			if err != nil {
				return err
			}
			parsed, err := processor.ParseAction(action)
			if err != nil {
				return err
			}
			proc, err := ctx.newProcessor(nil)
			if err != nil {
				return err
			}
			if err := proc.Apply(cmd.Context(), parsed, rowID, altText); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Row %d: %s applied\n", rowID, action)
			return nil
		},
	}

	if action == "approve" {
		cmd.Flags().StringVar(&altText, "alt", "", "Override the stored suggestion with this text")
	}
	return cmd
}

func statusNames() string {
	statuses := queue.AllStatuses()
	names := make([]string, 0, len(statuses))
	for _, status := range statuses {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}

func formatConfidence(value float64) string {
	if value == 0 {
		return "-"
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncateCell(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}
