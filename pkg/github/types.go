package github

import "time"

// PRInfo contains basic pull request information
type PRInfo struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	State      string    `json:"state"`
	URL        string    `json:"url"`
	DiffURL    string    `json:"diff_url"`
	BaseRef    string    `json:"base_ref"`
	HeadRef    string    `json:"head_ref"`
	BaseSHA    string    `json:"base_sha"`
	HeadSHA    string    `json:"head_sha"`
	Author     string    `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Repository string    `json:"repository"`
}

// ReviewComment is one inline comment of a review submission
type ReviewComment struct {
	Path string `json:"path"`
	Body string `json:"body"`
	Line int    `json:"line"`
	Side string `json:"side"`
}

// NewReview is a pull request review submission
type NewReview struct {
	// CommitID pins the review to a commit; empty means the PR head
	CommitID string
	// Body is the optional top-level review text
	Body     string
	Comments []ReviewComment
}

// ReviewInfo describes a created review
type ReviewInfo struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	State       string    `json:"state"`
	CommitID    string    `json:"commit_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}
