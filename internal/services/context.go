package services

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	batchIDKey contextKey = "batch_id"
	jobIDKey   contextKey = "job_id"
	imageIDKey contextKey = "image_id"
)

// WithBatchID annotates context with a correlation identifier for one batch
// run. An empty id gets a fresh UUID.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch correlation identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJobID annotates context with the queue row identifier.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the queue row identifier if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(jobIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithImageID annotates context with the image identifier.
func WithImageID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, imageIDKey, id)
}

// ImageIDFromContext extracts the image identifier if present.
func ImageIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(imageIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}
