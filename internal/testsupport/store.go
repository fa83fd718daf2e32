package testsupport

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"alttag/internal/config"
	"alttag/internal/images"
	"alttag/internal/queue"
	"alttag/internal/storage"
)

// MustOpenDB opens the shared database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *sql.DB {
	t.Helper()

	db, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// NewImage inserts a library image for tests using the provided store.
func NewImage(t testing.TB, store *images.Store, img images.NewImage) *images.Image {
	t.Helper()

	if img.SourceURL == "" && img.FilePath == "" {
		img.SourceURL = "https://pics.test/sample.jpg"
	}
	created, err := store.Add(context.Background(), img)
	if err != nil {
		t.Fatalf("images.Add: %v", err)
	}
	return created
}

// BackdateLock rewrites a job's lock timestamp directly, bypassing the
// store, so tests can simulate stale claims.
func BackdateLock(t testing.TB, db *sql.DB, jobID int64, lockedAt time.Time) {
	t.Helper()

	res, err := db.Exec(
		`UPDATE queue_jobs SET locked_at = ? WHERE id = ?`,
		lockedAt.UTC().Format("2006-01-02 15:04:05.000000000"),
		jobID,
	)
	if err != nil {
		t.Fatalf("backdate lock: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		t.Fatalf("rows affected: %v", err)
	}
	if affected != 1 {
		t.Fatalf("backdate lock touched %d rows, want 1", affected)
	}
}

// BackdateUpdated rewrites a job's updated_at timestamp so tests can control
// claim ordering.
func BackdateUpdated(t testing.TB, db *sql.DB, jobID int64, updatedAt time.Time) {
	t.Helper()

	res, err := db.Exec(
		`UPDATE queue_jobs SET updated_at = ? WHERE id = ?`,
		updatedAt.UTC().Format("2006-01-02 15:04:05.000000000"),
		jobID,
	)
	if err != nil {
		t.Fatalf("backdate updated_at: %v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		t.Fatalf("rows affected: %v", err)
	}
	if affected != 1 {
		t.Fatalf("backdate updated_at touched %d rows, want 1", affected)
	}
}

// MustEnqueue creates a queued job for tests and returns the stored row.
func MustEnqueue(t testing.TB, store *queue.Store, imageID int64) *queue.Job {
	t.Helper()

	if _, err := store.Enqueue(context.Background(), imageID, 0); err != nil {
		t.Fatalf("queue.Enqueue: %v", err)
	}
	job, err := store.GetByImage(context.Background(), imageID)
	if err != nil {
		t.Fatalf("queue.GetByImage: %v", err)
	}
	if job == nil {
		t.Fatalf("queue.GetByImage: job missing for image %d", imageID)
	}
	return job
}
