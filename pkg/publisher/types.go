package publisher

import (
	"time"

	"github.com/holon-run/conventional-review/pkg/review"
)

// Status is the outcome of a run's publishing step.
type Status string

const (
	// StatusPublished means one review was created
	StatusPublished Status = "published"
	// StatusSkipped means no comment survived, so nothing was posted
	StatusSkipped Status = "skipped"
	// StatusDryRun means publishing was disabled
	StatusDryRun Status = "dry_run"
	// StatusFailed means the review submission was rejected
	StatusFailed Status = "failed"
)

// Result describes what a run posted, or would have posted.
type Result struct {
	PullRequest review.PullRequest `json:"pull_request"`
	Status      Status             `json:"status"`

	// ReviewID and URL identify the created review when Status is published
	ReviewID int64  `json:"review_id,omitempty"`
	URL      string `json:"url,omitempty"`
	CommitID string `json:"commit_id,omitempty"`

	Comments []review.Comment `json:"comments"`

	// Files is the number of diff files sent to the model
	Files int `json:"files"`
	// Dropped is the number of tool calls that did not become comments
	Dropped int `json:"dropped"`

	PublishedAt time.Time `json:"published_at"`

	// Error holds the failure message when Status is failed
	Error string `json:"error,omitempty"`
}

// PublishFailedError wraps any failure to submit the review.
type PublishFailedError struct {
	PullRequest review.PullRequest
	Err         error
}

func (e *PublishFailedError) Error() string {
	return "failed to publish review to " + e.PullRequest.String() + ": " + e.Err.Error()
}

func (e *PublishFailedError) Unwrap() error {
	return e.Err
}
