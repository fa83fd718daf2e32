package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, image_id, parent_id, status, provider, raw_response, suggested_alt, final_alt, confidence, error_code, error_message, attempts, locked_at, lock_token, created_at, updated_at"

// timeLayout is fixed-width UTC so lexicographic comparison in SQL matches
// chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		imageID      int64
		parentID     sql.NullInt64
		statusStr    string
		provider     string
		rawResponse  sql.NullString
		suggestedAlt string
		finalAlt     string
		confidence   float64
		errorCode    string
		errorMessage string
		attempts     int
		lockedRaw    sql.NullString
		lockToken    sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&imageID,
		&parentID,
		&statusStr,
		&provider,
		&rawResponse,
		&suggestedAlt,
		&finalAlt,
		&confidence,
		&errorCode,
		&errorMessage,
		&attempts,
		&lockedRaw,
		&lockToken,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		ImageID:      imageID,
		ParentID:     parentID.Int64,
		Status:       Status(statusStr),
		Provider:     provider,
		RawResponse:  rawResponse.String,
		SuggestedAlt: suggestedAlt,
		FinalAlt:     finalAlt,
		Confidence:   confidence,
		ErrorCode:    errorCode,
		ErrorMessage: errorMessage,
		Attempts:     attempts,
		LockToken:    lockToken.String,
	}
	if lockedRaw.Valid {
		if locked, err := parseTime(lockedRaw.String); err == nil {
			job.LockedAt = &locked
		}
	}
	if created, err := parseTime(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTime(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableID(value int64) any {
	if value <= 0 {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
