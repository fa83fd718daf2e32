package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetByID fetches a job by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM queue_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetByImage fetches the job for an image under the default provider.
// Returns nil when absent.
func (s *Store) GetByImage(ctx context.Context, imageID int64) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM queue_jobs WHERE image_id = ? AND provider = ? LIMIT 1`,
		imageID,
		DefaultProvider,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by image: %w", err)
	}
	return job, nil
}

// ListPage returns one page of jobs within a view, most recently updated
// first. An optional status narrows the view to a single status; the status
// must belong to the view.
func (s *Store) ListPage(ctx context.Context, page, perPage int, view View, status Status) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > 100 {
		perPage = 100
	}

	statuses := activeStatuses
	if view == ViewHistory {
		statuses = finalStatuses
	}
	if status != "" {
		found := false
		for _, candidate := range statuses {
			if candidate == status {
				found = true
				break
			}
		}
		if !found {
			return Page{}, fmt.Errorf("queue: status %q not in view %q", status, view)
		}
		statuses = []Status{status}
	}

	placeholders := makePlaceholders(len(statuses))
	args := make([]any, 0, len(statuses)+2)
	for _, st := range statuses {
		args = append(args, st)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM queue_jobs WHERE status IN (` + placeholders + `)`
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count jobs: %w", err)
	}

	args = append(args, perPage, (page-1)*perPage)
	query := `SELECT ` + jobColumns + ` FROM queue_jobs WHERE status IN (` + placeholders + `)
        ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	result := Page{Page: page, PerPage: perPage, Total: total}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return Page{}, err
		}
		result.Jobs = append(result.Jobs, job)
	}
	return result, rows.Err()
}

// ActiveStatusCounts aggregates job counts across the active statuses.
func (s *Store) ActiveStatusCounts(ctx context.Context) (StatusCounts, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(1) FROM queue_jobs WHERE status IN (?, ?, ?, ?) GROUP BY status`,
		StatusQueued,
		StatusProcessing,
		StatusGenerated,
		StatusFailed,
	)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return StatusCounts{}, err
		}
		switch status {
		case StatusQueued:
			counts.Queued = count
		case StatusProcessing:
			counts.Processing = count
		case StatusGenerated:
			counts.Generated = count
		case StatusFailed:
			counts.Failed = count
		}
	}
	return counts, rows.Err()
}

// Stats returns a count of jobs grouped by status, across all statuses.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// LatestFailed returns the most recently updated failed job, or nil.
// Used to surface a provider diagnostic when a batch processes nothing.
func (s *Store) LatestFailed(ctx context.Context) (*Job, error) {
	return s.latestWithStatuses(ctx, StatusFailed)
}

// LatestActive returns the most recently updated job in the active view,
// or nil.
func (s *Store) LatestActive(ctx context.Context) (*Job, error) {
	return s.latestWithStatuses(ctx, activeStatuses...)
}

func (s *Store) latestWithStatuses(ctx context.Context, statuses ...Status) (*Job, error) {
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM queue_jobs WHERE status IN (`+placeholders+`) ORDER BY updated_at DESC LIMIT 1`,
		args...,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest job: %w", err)
	}
	return job, nil
}

// CountNoAlt returns the number of images currently lacking alt text,
// regardless of queue membership.
func (s *Store) CountNoAlt(ctx context.Context) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE alt_text = ''`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count images without alt: %w", err)
	}
	return total, nil
}

// NoAltPage returns one page of images lacking alt text, newest first, each
// annotated with its queue status when a job exists.
func (s *Store) NoAltPage(ctx context.Context, page, perPage int) (NoAltPageResult, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > 100 {
		perPage = 100
	}

	total, err := s.CountNoAlt(ctx)
	if err != nil {
		return NoAltPageResult{}, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT i.id, i.title, i.source_url, COALESCE(q.status, '')
         FROM images i
         LEFT JOIN queue_jobs q ON (q.image_id = i.id AND q.provider = ?)
         WHERE i.alt_text = ''
         ORDER BY i.id DESC
         LIMIT ? OFFSET ?`,
		DefaultProvider,
		perPage,
		(page-1)*perPage,
	)
	if err != nil {
		return NoAltPageResult{}, fmt.Errorf("list images without alt: %w", err)
	}
	defer rows.Close()

	result := NoAltPageResult{Page: page, PerPage: perPage, Total: total}
	for rows.Next() {
		var img NoAltImage
		var statusStr string
		if err := rows.Scan(&img.ImageID, &img.Title, &img.SourceURL, &statusStr); err != nil {
			return NoAltPageResult{}, err
		}
		img.QueueStatus = Status(strings.TrimSpace(statusStr))
		result.Images = append(result.Images, img)
	}
	return result, rows.Err()
}
