package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"alttag/internal/alttext"
	"alttag/internal/config"
	"alttag/internal/images"
	"alttag/internal/logging"
	"alttag/internal/queue"
	"alttag/internal/services"
	"alttag/internal/services/captioner"
)

// Error codes recorded by the processor itself, as opposed to codes coming
// from the provider client.
const (
	CodeMissingImageURL = "missing_image_url"
	CodeBadAltOutput    = "bad_alt_output"
	CodeManualReprocess = "manual_reprocess"
)

// CaptionProvider generates a caption for one image. Satisfied by
// *captioner.Client; tests substitute fakes.
type CaptionProvider interface {
	GenerateCaption(ctx context.Context, req captioner.Request) (captioner.Result, error)
}

// Processor drives claimed jobs through caption generation, the quality
// gate, and the approval policy. It never mutates queue rows directly;
// every transition goes through the queue store.
type Processor struct {
	cfg      *config.Config
	queue    *queue.Store
	images   *images.Store
	provider CaptionProvider
	logger   *slog.Logger
}

// New wires a processor from its collaborators.
func New(cfg *config.Config, queueStore *queue.Store, imageStore *images.Store, provider CaptionProvider, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		cfg:      cfg,
		queue:    queueStore,
		images:   imageStore,
		provider: provider,
		logger:   logger,
	}
}

// ProcessBatch claims up to limit jobs and runs each to an outcome. One
// job's failure never aborts the rest; failures are persisted on the row
// and the batch continues. Returns the number of jobs that reached at
// least the generated state. Skips and pre-generation failures do not
// count.
func (p *Processor) ProcessBatch(ctx context.Context, limit int) (int, error) {
	if _, ok := services.BatchIDFromContext(ctx); !ok {
		ctx = services.WithBatchID(ctx, "")
	}
	jobs, err := p.queue.Claim(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("claim jobs: %w", err)
	}

	processed := 0
	for _, job := range jobs {
		jobCtx := services.WithImageID(services.WithJobID(ctx, job.ID), job.ImageID)
		ok, err := p.processJob(jobCtx, job)
		if err != nil {
			// Storage-level failure; the job keeps its processing lock
			// and will be reclaimed after the stale window.
			attrs := append(correlationAttrs(jobCtx), logging.Error(err))
			p.logger.Error("job processing aborted", logging.Args(attrs...)...)
			continue
		}
		if ok {
			processed++
		}
	}
	return processed, nil
}

// processJob runs one claimed job to an outcome. The bool reports whether
// the job reached generated; the error reports storage failures only.
func (p *Processor) processJob(ctx context.Context, job *queue.Job) (bool, error) {
	img, err := p.images.GetByID(ctx, job.ImageID)
	if err != nil {
		return false, fmt.Errorf("load image %d: %w", job.ImageID, err)
	}
	if img == nil {
		return false, p.queue.MarkFailed(ctx, job.ID, CodeMissingImageURL, "image record not found")
	}

	if !p.cfg.Processing.OverwriteExisting && img.AltText != "" {
		if err := p.queue.MarkFinal(ctx, job.ID, queue.StatusSkipped, ""); err != nil {
			return false, err
		}
		return false, nil
	}

	if img.SourceURL == "" {
		return false, p.queue.MarkFailed(ctx, job.ID, CodeMissingImageURL, "image URL not found")
	}

	result, err := p.provider.GenerateCaption(ctx, captioner.Request{
		ImageURL:        img.SourceURL,
		FilePath:        img.FilePath,
		MimeType:        img.MimeType,
		AttachmentTitle: img.Title,
		PostTitle:       img.ParentTitle,
	})
	if err != nil {
		code, message := providerFailure(err)
		attrs := append(correlationAttrs(ctx), logging.String("error_code", code))
		p.logger.Warn("caption generation failed", logging.Args(attrs...)...)
		return false, p.queue.MarkFailed(ctx, job.ID, code, message)
	}

	altText := alttext.Normalize(result.Caption)
	if !alttext.IsUsable(altText) {
		return false, p.queue.MarkFailed(ctx, job.ID, CodeBadAltOutput, "generated alt text did not pass quality checks")
	}

	if err := p.queue.MarkGenerated(ctx, job.ID, result.Raw, altText, result.Confidence); err != nil {
		return false, err
	}

	if !p.cfg.Processing.RequireReview && result.Confidence >= p.cfg.Processing.MinConfidence {
		if _, err := p.ApproveRow(ctx, job.ID, altText); err != nil {
			return true, err
		}
	}
	return true, nil
}

// ProcessImageForReview generates a suggestion for one image on demand and
// flags the image as awaiting manual review. The job must be queued or
// failed; generated and finalized rows are refused so re-generation always
// goes through the explicit reprocess path. Returns false on any failure,
// with the detail retrievable from the job's error fields.
func (p *Processor) ProcessImageForReview(ctx context.Context, imageID int64) (bool, error) {
	job, err := p.queue.GetByImage(ctx, imageID)
	if err != nil {
		return false, fmt.Errorf("load job for image %d: %w", imageID, err)
	}
	if job == nil {
		return false, nil
	}
	if !queue.IsClaimable(job.Status) {
		return false, nil
	}

	img, err := p.images.GetByID(ctx, imageID)
	if err != nil {
		return false, fmt.Errorf("load image %d: %w", imageID, err)
	}
	if img == nil || img.SourceURL == "" {
		if err := p.queue.MarkFailed(ctx, job.ID, CodeMissingImageURL, "image URL not found"); err != nil {
			return false, err
		}
		return false, nil
	}

	result, err := p.provider.GenerateCaption(ctx, captioner.Request{
		ImageURL:        img.SourceURL,
		FilePath:        img.FilePath,
		MimeType:        img.MimeType,
		AttachmentTitle: img.Title,
		PostTitle:       img.ParentTitle,
	})
	if err != nil {
		code, message := providerFailure(err)
		if err := p.queue.MarkFailed(ctx, job.ID, code, message); err != nil {
			return false, err
		}
		return false, nil
	}

	altText := alttext.Normalize(result.Caption)
	if !alttext.IsUsable(altText) {
		if err := p.queue.MarkFailed(ctx, job.ID, CodeBadAltOutput, "generated alt text did not pass quality checks"); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := p.queue.MarkGenerated(ctx, job.ID, result.Raw, altText, result.Confidence); err != nil {
		return false, err
	}
	if err := p.images.SetReviewRequired(ctx, imageID, true); err != nil {
		return false, err
	}
	return true, nil
}

// ApproveRow commits alt text to the image and finalizes the job as
// approved. Both automatic confidence-gated approval and manual review
// approval funnel through here; it is the only path by which generated
// text becomes live alt text. Normalization that yields an empty string
// fails without mutating anything.
func (p *Processor) ApproveRow(ctx context.Context, jobID int64, altText string) (bool, error) {
	job, err := p.queue.GetByID(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("load job %d: %w", jobID, err)
	}
	if job == nil {
		return false, nil
	}

	normalized := alttext.Normalize(altText)
	if normalized == "" {
		return false, nil
	}

	if err := p.images.SetAlt(ctx, job.ImageID, normalized, job.Provider, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("write alt text for image %d: %w", job.ImageID, err)
	}
	if err := p.queue.MarkFinal(ctx, jobID, queue.StatusApproved, normalized); err != nil {
		return false, err
	}
	p.logger.Info("alt text approved",
		logging.Int64("job_id", jobID),
		logging.Int64("image_id", job.ImageID),
		logging.Float64("confidence", job.Confidence),
		logging.String("alt_text", normalized))
	return true, nil
}

// providerFailure maps a provider error to a persistable code and message.
func providerFailure(err error) (string, string) {
	var provErr *captioner.Error
	if errors.As(err, &provErr) {
		return provErr.Code, provErr.Message
	}
	return "provider_error", err.Error()
}

// correlationAttrs pulls the batch, job, and image identifiers carried on
// the context into log attributes.
func correlationAttrs(ctx context.Context) []logging.Attr {
	attrs := make([]logging.Attr, 0, 3)
	if batchID, ok := services.BatchIDFromContext(ctx); ok {
		attrs = append(attrs, logging.String("batch_id", batchID))
	}
	if jobID, ok := services.JobIDFromContext(ctx); ok {
		attrs = append(attrs, logging.Int64("job_id", jobID))
	}
	if imageID, ok := services.ImageIDFromContext(ctx); ok {
		attrs = append(attrs, logging.Int64("image_id", imageID))
	}
	return attrs
}
