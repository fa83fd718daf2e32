package processor

import (
	"context"
	"fmt"

	"alttag/internal/logging"
	"alttag/internal/queue"
)

// Action is a reviewer's decision on one queue row.
type Action int

const (
	// ActionApprove commits the suggestion (or supplied text) as live alt
	// text and finalizes the row as approved.
	ActionApprove Action = iota
	// ActionReject finalizes as rejected and zeroes the image's alt text
	// without generation.
	ActionReject
	// ActionSkip finalizes as skipped and zeroes the image's alt text.
	ActionSkip
	// ActionProcess regenerates a suggestion for review. A generated row
	// is first force-failed with a manual reprocess marker so it becomes
	// eligible again.
	ActionProcess
)

// ParseAction decodes an action keyword at the boundary.
func ParseAction(value string) (Action, error) {
	switch value {
	case "approve":
		return ActionApprove, nil
	case "reject":
		return ActionReject, nil
	case "skip":
		return ActionSkip, nil
	case "process":
		return ActionProcess, nil
	}
	return 0, fmt.Errorf("processor: unknown action %q", value)
}

func (a Action) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionReject:
		return "reject"
	case ActionSkip:
		return "skip"
	case ActionProcess:
		return "process"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Apply executes one reviewer action against a queue row. For approve, an
// empty alt argument falls back to the row's stored suggestion.
func (p *Processor) Apply(ctx context.Context, action Action, jobID int64, alt string) error {
	job, err := p.queue.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %d: %w", jobID, err)
	}
	if job == nil {
		return fmt.Errorf("queue row %d not found", jobID)
	}

	if err := p.applyAction(ctx, action, job, alt); err != nil {
		return err
	}
	p.logger.Info("review action applied",
		logging.Any("action", action),
		logging.Int64("job_id", jobID),
		logging.Int64("image_id", job.ImageID))
	return nil
}

func (p *Processor) applyAction(ctx context.Context, action Action, job *queue.Job, alt string) error {
	jobID := job.ID
	switch action {
	case ActionApprove:
		if alt == "" {
			alt = job.SuggestedAlt
		}
		ok, err := p.ApproveRow(ctx, jobID, alt)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("approval failed for row %d: alt text is empty after normalization", jobID)
		}
		return nil
	case ActionReject:
		if err := p.images.ClearAlt(ctx, job.ImageID); err != nil {
			return fmt.Errorf("clear alt for image %d: %w", job.ImageID, err)
		}
		return p.queue.MarkFinal(ctx, jobID, queue.StatusRejected, "")
	case ActionSkip:
		if err := p.images.ClearAlt(ctx, job.ImageID); err != nil {
			return fmt.Errorf("clear alt for image %d: %w", job.ImageID, err)
		}
		return p.queue.MarkFinal(ctx, jobID, queue.StatusSkipped, "")
	case ActionProcess:
		if job.Status == queue.StatusGenerated {
			if err := p.queue.MarkFailed(ctx, jobID, CodeManualReprocess, "manual reprocess requested"); err != nil {
				return err
			}
		}
		ok, err := p.ProcessImageForReview(ctx, job.ImageID)
		if err != nil {
			return err
		}
		if !ok {
			latest, lookupErr := p.queue.GetByID(ctx, jobID)
			if lookupErr == nil && latest != nil && latest.ErrorMessage != "" {
				return fmt.Errorf("processing failed for row %d: %s", jobID, latest.ErrorMessage)
			}
			return fmt.Errorf("processing failed for row %d", jobID)
		}
		return nil
	}
	return fmt.Errorf("processor: unknown action %q", action)
}
