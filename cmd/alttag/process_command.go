package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"alttag/internal/queue"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run one captioning batch now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.queueStore()
			if err != nil {
				return err
			}
			proc, err := ctx.newProcessor(nil)
			if err != nil {
				return err
			}

			batch := limit
			if batch <= 0 {
				batch = cfg.Processing.BatchSize
			}

			before, err := store.ActiveStatusCounts(cmd.Context())
			if err != nil {
				return err
			}

			processed, err := proc.ProcessBatch(cmd.Context(), batch)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if processed > 0 {
				fmt.Fprintf(out, "Processed %d job(s)\n", processed)
				return nil
			}

			after, err := store.ActiveStatusCounts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Processed 0 jobs")
			fmt.Fprint(out, zeroProcessedDiagnostic(cmd, store, before, after))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Batch size override (defaults to the configured batch size)")
	return cmd
}

// zeroProcessedDiagnostic explains an empty batch from the status-count
// delta and the most recent failure, so an operator can tell apart "queue
// drained", "everything skipped", and "provider is broken".
func zeroProcessedDiagnostic(cmd *cobra.Command, store *queue.Store, before, after queue.StatusCounts) string {
	switch {
	case before.Total() == 0:
		return "The queue is empty. Run `alttag backfill` to enqueue images without alt text.\n"
	case before.Queued > 0 && after.Queued < before.Queued && after.Failed == before.Failed:
		return "Claimed jobs were skipped; the images already have alt text and overwriting is disabled.\n"
	case after.Failed > before.Failed:
		detail := ""
		if latest, err := store.LatestFailed(cmd.Context()); err == nil && latest != nil {
			detail = fmt.Sprintf(" Latest failure (row %d): %s: %s", latest.ID, latest.ErrorCode, latest.ErrorMessage)
		}
		return "Every claimed job failed." + detail + "\n"
	case before.Queued == 0 && before.Failed == 0:
		return "No claimable jobs; remaining rows are processing or awaiting review.\n"
	default:
		return "No jobs were claimable; locked rows become eligible again after the stale-lock window.\n"
	}
}
