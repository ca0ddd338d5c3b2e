// Package review holds the domain types shared by the review pipeline:
// the pull request being reviewed and the line-anchored comments posted to it.
package review

import (
	"fmt"
	"strings"
)

// Side identifies which version of a file a comment anchors to.
type Side string

const (
	// SideLeft is the pre-change version (deleted lines)
	SideLeft Side = "LEFT"
	// SideRight is the post-change version (context and added lines)
	SideRight Side = "RIGHT"
)

// ParseSide converts a model-supplied side into a Side.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SideLeft):
		return SideLeft, nil
	case string(SideRight):
		return SideRight, nil
	default:
		return "", fmt.Errorf("invalid side %q (expected LEFT or RIGHT)", s)
	}
}

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

// Comment is a single inline review comment.
type Comment struct {
	Body string `json:"body" validate:"required"`
	Path string `json:"path" validate:"required"`
	Line int    `json:"line" validate:"gt=0"`
	Side Side   `json:"side" validate:"oneof=LEFT RIGHT"`
}

// String returns a short location label such as "pkg/foo.go:12 (RIGHT)".
func (c Comment) String() string {
	return fmt.Sprintf("%s:%d (%s)", c.Path, c.Line, c.Side)
}

// PullRequest identifies the pull request a review is posted to.
// It is resolved once per run and never modified.
type PullRequest struct {
	Owner  string `json:"owner" validate:"required"`
	Repo   string `json:"repo" validate:"required"`
	Number int    `json:"pull_number" validate:"gt=0"`

	// HeadSHA pins the review to a commit when set.
	HeadSHA string `json:"head_sha,omitempty"`
}

// FullName returns "owner/repo".
func (p PullRequest) FullName() string {
	return fmt.Sprintf("%s/%s", p.Owner, p.Repo)
}

// String returns "owner/repo#number".
func (p PullRequest) String() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Number)
}
