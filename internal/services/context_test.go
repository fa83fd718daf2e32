package services_test

import (
	"context"
	"testing"

	"alttag/internal/services"
)

func TestBatchIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.BatchIDFromContext(ctx); ok {
		t.Fatal("unexpected batch id on empty context")
	}

	ctx = services.WithBatchID(ctx, "batch-7")
	if id, ok := services.BatchIDFromContext(ctx); !ok || id != "batch-7" {
		t.Fatalf("batch id = %q, %v", id, ok)
	}

	generated := services.WithBatchID(context.Background(), "")
	if id, ok := services.BatchIDFromContext(generated); !ok || id == "" {
		t.Fatalf("empty id should generate a UUID, got %q, %v", id, ok)
	}
}

func TestJobAndImageIDs(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 12)
	ctx = services.WithImageID(ctx, 34)

	if id, ok := services.JobIDFromContext(ctx); !ok || id != 12 {
		t.Fatalf("job id = %d, %v", id, ok)
	}
	if id, ok := services.ImageIDFromContext(ctx); !ok || id != 34 {
		t.Fatalf("image id = %d, %v", id, ok)
	}
	if _, ok := services.JobIDFromContext(context.Background()); ok {
		t.Fatal("unexpected job id on empty context")
	}
}
