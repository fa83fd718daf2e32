package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusGenerated  Status = "generated"
	StatusFailed     Status = "failed"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusSkipped    Status = "skipped"
)

// DefaultProvider is the captioning backend identifier. The column exists
// for extensibility but the system ships with a single backend.
const DefaultProvider = "worker"

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusGenerated,
	StatusFailed,
	StatusApproved,
	StatusRejected,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// claimableStatuses are the only statuses Claim will pick up.
var claimableStatuses = []Status{StatusQueued, StatusFailed}

// activeStatuses make up the "active" queue view; the rest are history.
var activeStatuses = []Status{StatusQueued, StatusProcessing, StatusGenerated, StatusFailed}

var finalStatuses = []Status{StatusApproved, StatusRejected, StatusSkipped}

// View selects a logical slice of the queue for listing.
type View string

const (
	ViewActive  View = "active"
	ViewHistory View = "history"
)

// ParseView converts a string into a known View.
func ParseView(value string) (View, bool) {
	switch View(strings.ToLower(strings.TrimSpace(value))) {
	case ViewActive:
		return ViewActive, true
	case ViewHistory:
		return ViewHistory, true
	}
	return "", false
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsFinal reports whether a status is terminal.
func IsFinal(status Status) bool {
	for _, s := range finalStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsClaimable reports whether Claim may pick up a job in this status.
func IsClaimable(status Status) bool {
	for _, s := range claimableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Job is one queue row tracking the captioning lifecycle of one image for
// one provider.
type Job struct {
	ID           int64
	ImageID      int64
	ParentID     int64
	Status       Status
	Provider     string
	RawResponse  string
	SuggestedAlt string
	FinalAlt     string
	Confidence   float64
	ErrorCode    string
	ErrorMessage string
	Attempts     int
	LockedAt     *time.Time
	LockToken    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the job is still in the working set.
func (j Job) IsActive() bool {
	for _, s := range activeStatuses {
		if s == j.Status {
			return true
		}
	}
	return false
}

// Page is one slice of a paginated listing.
type Page struct {
	Total   int
	Page    int
	PerPage int
	Jobs    []*Job
}

// NoAltImage describes an image without alt text, annotated with its queue
// status when a job exists.
type NoAltImage struct {
	ImageID     int64
	Title       string
	SourceURL   string
	QueueStatus Status
}

// NoAltPageResult is one slice of the images-without-alt scan.
type NoAltPageResult struct {
	Total   int
	Page    int
	PerPage int
	Images  []NoAltImage
}

// StatusCounts aggregates job counts for the active statuses.
type StatusCounts struct {
	Queued     int
	Processing int
	Generated  int
	Failed     int
}

// Total returns the number of jobs across all active statuses.
func (c StatusCounts) Total() int {
	return c.Queued + c.Processing + c.Generated + c.Failed
}
