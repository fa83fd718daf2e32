package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNotFound indicates an image id that does not exist.
var ErrNotFound = errors.New("images: image not found")

// Image is one library entry. Alt metadata carries provenance so callers can
// tell generated text from manually entered text.
type Image struct {
	ID             int64
	SourceURL      string
	FilePath       string
	MimeType       string
	Title          string
	ParentID       int64
	ParentTitle    string
	AltText        string
	AltSource      string
	AltGeneratedAt *time.Time
	ReviewRequired bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Store manages the image library table.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// NewImage describes an image to add to the library.
type NewImage struct {
	SourceURL   string
	FilePath    string
	MimeType    string
	Title       string
	ParentID    int64
	ParentTitle string
	AltText     string
}

// Add inserts an image. A missing title is derived from the URL or file
// path basename.
func (s *Store) Add(ctx context.Context, img NewImage) (*Image, error) {
	if strings.TrimSpace(img.SourceURL) == "" && strings.TrimSpace(img.FilePath) == "" {
		return nil, errors.New("images: source url or file path required")
	}
	title := strings.TrimSpace(img.Title)
	if title == "" {
		title = deriveTitle(firstNonEmpty(img.FilePath, img.SourceURL))
	}

	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO images (source_url, file_path, mime_type, title, parent_id, parent_title, alt_text, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(img.SourceURL),
		nullableString(img.FilePath),
		strings.TrimSpace(img.MimeType),
		title,
		nullableID(img.ParentID),
		strings.TrimSpace(img.ParentTitle),
		strings.TrimSpace(img.AltText),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an image by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Image, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id = ?`, id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	return img, nil
}

// SetAlt commits alt text to an image along with provenance metadata and
// clears the review flag. This is the single write path for live alt text.
func (s *Store) SetAlt(ctx context.Context, id int64, alt, source string, generatedAt time.Time) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE images
         SET alt_text = ?, alt_source = ?, alt_generated_at = ?, review_required = 0, updated_at = ?
         WHERE id = ?`,
		alt,
		source,
		formatTime(generatedAt),
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set alt: %w", err)
	}
	return requireAffected(res)
}

// ClearAlt zeroes an image's alt text and review flag. Used by reject and
// skip actions.
func (s *Store) ClearAlt(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE images SET alt_text = '', review_required = 0, updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("clear alt: %w", err)
	}
	return requireAffected(res)
}

// SetReviewRequired flags or clears the awaiting-manual-review marker.
func (s *Store) SetReviewRequired(ctx context.Context, id int64, required bool) error {
	value := 0
	if required {
		value = 1
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE images SET review_required = ?, updated_at = ? WHERE id = ?`,
		value,
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set review required: %w", err)
	}
	return requireAffected(res)
}

// Delete removes an image from the library.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete image: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearProvenance wipes generation provenance and review flags from every
// image while leaving alt text in place. Used by the purge command.
func (s *Store) ClearProvenance(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE images SET alt_source = '', alt_generated_at = NULL, review_required = 0, updated_at = ?`,
		formatTime(time.Now().UTC()),
	)
	if err != nil {
		return 0, fmt.Errorf("clear provenance: %w", err)
	}
	return res.RowsAffected()
}

const imageColumns = "id, source_url, file_path, mime_type, title, parent_id, parent_title, alt_text, alt_source, alt_generated_at, review_required, created_at, updated_at"

const timeLayout = "2006-01-02 15:04:05.000000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func scanImage(scanner interface{ Scan(dest ...any) error }) (*Image, error) {
	var (
		id          int64
		sourceURL   string
		filePath    sql.NullString
		mimeType    string
		title       string
		parentID    sql.NullInt64
		parentTitle string
		altText     string
		altSource   string
		generatedAt sql.NullString
		review      int
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&id,
		&sourceURL,
		&filePath,
		&mimeType,
		&title,
		&parentID,
		&parentTitle,
		&altText,
		&altSource,
		&generatedAt,
		&review,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	img := &Image{
		ID:             id,
		SourceURL:      sourceURL,
		FilePath:       filePath.String,
		MimeType:       mimeType,
		Title:          title,
		ParentID:       parentID.Int64,
		ParentTitle:    parentTitle,
		AltText:        altText,
		AltSource:      altSource,
		ReviewRequired: review != 0,
	}
	if generatedAt.Valid {
		if t, err := parseTime(generatedAt.String); err == nil {
			img.AltGeneratedAt = &t
		}
	}
	if created, err := parseTime(createdRaw); err == nil {
		img.CreatedAt = created
	}
	if updated, err := parseTime(updatedRaw); err == nil {
		img.UpdatedAt = updated
	}
	return img, nil
}

func nullableString(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func nullableID(value int64) any {
	if value <= 0 {
		return nil
	}
	return value
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func deriveTitle(source string) string {
	base := filepath.Base(strings.TrimSpace(source))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled Image"
	}
	return cases.Title(language.Und).String(title)
}
