package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates a job id that does not exist.
var ErrNotFound = errors.New("queue: job not found")

// Store is the sole mutator of queue rows. All status transitions and the
// atomic claim go through it.
type Store struct {
	db        *sql.DB
	staleLock time.Duration
}

// NewStore wraps an open database. staleLock is the age past which a
// processing lock is considered abandoned and the row claimable again.
func NewStore(db *sql.DB, staleLock time.Duration) *Store {
	if staleLock <= 0 {
		staleLock = 15 * time.Minute
	}
	return &Store{db: db, staleLock: staleLock}
}

// Enqueue inserts a new queued job for the image unless one already exists
// for (image, provider). Returns true when a row was inserted.
func (s *Store) Enqueue(ctx context.Context, imageID, parentID int64) (bool, error) {
	if imageID <= 0 {
		return false, errors.New("queue: image id required")
	}
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_jobs (image_id, parent_id, status, provider, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (image_id, provider) DO NOTHING`,
		imageID,
		nullableID(parentID),
		StatusQueued,
		DefaultProvider,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue image %d: %w", imageID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Requeue inserts a queued job or fully resets an existing one back to
// queued, clearing every generation field so the image is captioned from
// scratch.
func (s *Store) Requeue(ctx context.Context, imageID, parentID int64) error {
	if imageID <= 0 {
		return errors.New("queue: image id required")
	}
	now := formatTime(time.Now().UTC())
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_jobs (image_id, parent_id, status, provider, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (image_id, provider) DO UPDATE SET
             status = excluded.status,
             parent_id = excluded.parent_id,
             raw_response = NULL,
             suggested_alt = '',
             final_alt = '',
             confidence = 0,
             error_code = '',
             error_message = '',
             attempts = 0,
             locked_at = NULL,
             lock_token = NULL,
             updated_at = excluded.updated_at`,
		imageID,
		nullableID(parentID),
		StatusQueued,
		DefaultProvider,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("requeue image %d: %w", imageID, err)
	}
	return nil
}

// EnqueueMissing enqueues images that currently have empty alt text,
// newest first, up to limit (clamped to 1..1000). Images that already have a
// queue row are left untouched. Returns the number of rows inserted.
func (s *Store) EnqueueMissing(ctx context.Context, limit int) (int, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, parent_id FROM images WHERE alt_text = '' ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return 0, fmt.Errorf("scan images without alt: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		imageID  int64
		parentID int64
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		var parent sql.NullInt64
		if err := rows.Scan(&c.imageID, &parent); err != nil {
			return 0, err
		}
		c.parentID = parent.Int64
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, c := range candidates {
		created, err := s.Enqueue(ctx, c.imageID, c.parentID)
		if err != nil {
			return count, err
		}
		if created {
			count++
		}
	}
	return count, nil
}

// Claim atomically transitions up to limit eligible jobs to processing and
// returns their snapshots. Eligible jobs are queued or failed, or carry a
// processing lock older than the stale threshold (abandoned by a crashed
// worker). Oldest updated_at first, so failures rotate to the back of the
// line. The whole claim is a single UPDATE; concurrent claimers can never
// obtain the same row.
func (s *Store) Claim(ctx context.Context, limit int) ([]*Job, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}

	now := time.Now().UTC()
	token := uuid.NewString()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_jobs
         SET status = ?, locked_at = ?, lock_token = ?, updated_at = ?
         WHERE id IN (
             SELECT id FROM queue_jobs
             WHERE (status IN (?, ?) AND (locked_at IS NULL OR locked_at < ?))
                OR (status = ? AND locked_at IS NOT NULL AND locked_at < ?)
             ORDER BY updated_at ASC
             LIMIT ?
         )`,
		StatusProcessing,
		formatTime(now),
		token,
		formatTime(now),
		StatusQueued,
		StatusFailed,
		formatTime(now.Add(-s.staleLock)),
		StatusProcessing,
		formatTime(now.Add(-s.staleLock)),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM queue_jobs WHERE lock_token = ? ORDER BY id`,
		token,
	)
	if err != nil {
		return nil, fmt.Errorf("load claimed jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkGenerated records a successful generation: raw provider payload,
// normalized suggestion, clamped confidence. Error fields and the lock are
// cleared.
func (s *Store) MarkGenerated(ctx context.Context, id int64, raw, suggestedAlt string, confidence float64) error {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_jobs
         SET status = ?, raw_response = ?, suggested_alt = ?, confidence = ?,
             error_code = '', error_message = '', locked_at = NULL, lock_token = NULL, updated_at = ?
         WHERE id = ?`,
		StatusGenerated,
		raw,
		suggestedAlt,
		confidence,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark generated: %w", err)
	}
	return requireAffected(res)
}

// MarkFailed records a failure and releases the lock. Attempts only ever
// increases; there is no retry cutoff, a failed job stays claimable until
// finalized.
func (s *Store) MarkFailed(ctx context.Context, id int64, code, message string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_jobs
         SET status = ?, attempts = attempts + 1, error_code = ?, error_message = ?,
             locked_at = NULL, lock_token = NULL, updated_at = ?
         WHERE id = ?`,
		StatusFailed,
		code,
		message,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireAffected(res)
}

// MarkFinal performs the terminal transition. Only approved, rejected, and
// skipped are accepted; anything else is a caller bug.
func (s *Store) MarkFinal(ctx context.Context, id int64, status Status, finalAlt string) error {
	if !IsFinal(status) {
		return fmt.Errorf("queue: invalid final status %q", status)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE queue_jobs
         SET status = ?, final_alt = ?, locked_at = NULL, lock_token = NULL, updated_at = ?
         WHERE id = ?`,
		status,
		finalAlt,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark final: %w", err)
	}
	return requireAffected(res)
}

// DeleteByImage removes all queue rows for an image. Used when the image is
// removed from the library.
func (s *Store) DeleteByImage(ctx context.Context, imageID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_jobs WHERE image_id = ?`, imageID)
	if err != nil {
		return 0, fmt.Errorf("delete by image: %w", err)
	}
	return res.RowsAffected()
}

// Purge removes every queue row.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_jobs`)
	if err != nil {
		return 0, fmt.Errorf("purge queue: %w", err)
	}
	return res.RowsAffected()
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
