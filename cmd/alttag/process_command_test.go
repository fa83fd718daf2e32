package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"alttag/internal/images"
	"alttag/internal/queue"
	"alttag/internal/testsupport"
)

func TestZeroProcessedDiagnostic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	store := queue.NewStore(db, 15*time.Minute)
	imageStore := images.NewStore(db)
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	empty := queue.StatusCounts{}
	if got := zeroProcessedDiagnostic(cmd, store, empty, empty); !strings.Contains(got, "queue is empty") {
		t.Fatalf("empty-queue diagnostic = %q", got)
	}

	skipped := zeroProcessedDiagnostic(cmd, store,
		queue.StatusCounts{Queued: 3},
		queue.StatusCounts{Queued: 0})
	if !strings.Contains(skipped, "skipped") {
		t.Fatalf("skip diagnostic = %q", skipped)
	}

	img := testsupport.NewImage(t, imageStore, images.NewImage{})
	job := testsupport.MustEnqueue(t, store, img.ID)
	if err := store.MarkFailed(context.Background(), job.ID, "network_error", "connection refused"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	failedMsg := zeroProcessedDiagnostic(cmd, store,
		queue.StatusCounts{Queued: 1},
		queue.StatusCounts{Failed: 1})
	if !strings.Contains(failedMsg, "network_error") || !strings.Contains(failedMsg, "connection refused") {
		t.Fatalf("failure diagnostic = %q", failedMsg)
	}

	idle := zeroProcessedDiagnostic(cmd, store,
		queue.StatusCounts{Generated: 2},
		queue.StatusCounts{Generated: 2})
	if !strings.Contains(idle, "awaiting review") {
		t.Fatalf("idle diagnostic = %q", idle)
	}
}

func TestQueueHelperFormatting(t *testing.T) {
	if _, err := parseID("0"); err == nil {
		t.Fatal("parseID should reject zero")
	}
	if _, err := parseID("abc"); err == nil {
		t.Fatal("parseID should reject non-numeric input")
	}
	if id, err := parseID(" 42 "); err != nil || id != 42 {
		t.Fatalf("parseID(42) = %d, %v", id, err)
	}

	if got := formatConfidence(0); got != "-" {
		t.Fatalf("formatConfidence(0) = %q", got)
	}
	if got := formatConfidence(0.85); got != "0.85" {
		t.Fatalf("formatConfidence(0.85) = %q", got)
	}

	if got := truncateCell("short", 10); got != "short" {
		t.Fatalf("truncateCell short = %q", got)
	}
	if got := truncateCell("a long queue suggestion", 8); len([]rune(got)) != 8 {
		t.Fatalf("truncateCell length = %d (%q)", len([]rune(got)), got)
	}

	if got := maskToken(""); got != "(not set)" {
		t.Fatalf("maskToken empty = %q", got)
	}
	if got := maskToken("abcdefghijkl"); strings.Contains(got, "efgh") {
		t.Fatalf("maskToken leaked middle: %q", got)
	}
}
