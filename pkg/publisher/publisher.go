// Package publisher posts the comments of a run as one pull request review.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/holon-run/conventional-review/pkg/github"
	"github.com/holon-run/conventional-review/pkg/log"
	"github.com/holon-run/conventional-review/pkg/review"
)

// ReviewCreator is the part of the GitHub client the publisher needs.
type ReviewCreator interface {
	CreateReview(ctx context.Context, owner, repo string, prNumber int, review github.NewReview) (*github.ReviewInfo, error)
}

// Publisher submits reviews through a ReviewCreator.
type Publisher struct {
	client ReviewCreator
	now    func() time.Time
}

// New creates a publisher backed by client.
func New(client ReviewCreator) *Publisher {
	return &Publisher{client: client, now: time.Now}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that pr is addressable and every comment is well formed.
func Validate(pr review.PullRequest, comments []review.Comment) error {
	if err := validate.Struct(pr); err != nil {
		return fmt.Errorf("invalid pull request %s: %w", pr, err)
	}
	if len(comments) == 0 {
		return errors.New("no comments to publish")
	}
	for i, c := range comments {
		if err := validate.Struct(c); err != nil {
			return fmt.Errorf("invalid comment %d (%s): %w", i, c, err)
		}
	}
	return nil
}

// Publish creates exactly one COMMENT review on pr carrying all comments.
// It makes a single attempt; any failure is a *PublishFailedError.
func (p *Publisher) Publish(ctx context.Context, pr review.PullRequest, comments []review.Comment) (Result, error) {
	result := Result{
		PullRequest: pr,
		Comments:    comments,
		CommitID:    pr.HeadSHA,
	}

	fail := func(err error) (Result, error) {
		result.Status = StatusFailed
		result.Error = err.Error()
		return result, &PublishFailedError{PullRequest: pr, Err: err}
	}

	if err := Validate(pr, comments); err != nil {
		return fail(err)
	}

	draft := github.NewReview{
		CommitID: pr.HeadSHA,
		Comments: make([]github.ReviewComment, 0, len(comments)),
	}
	for _, c := range comments {
		draft.Comments = append(draft.Comments, github.ReviewComment{
			Path: c.Path,
			Body: c.Body,
			Line: c.Line,
			Side: string(c.Side),
		})
	}

	log.Info("publishing review", "pr", pr.String(), "comments", len(comments))

	info, err := p.client.CreateReview(ctx, pr.Owner, pr.Repo, pr.Number, draft)
	if err != nil {
		return fail(err)
	}

	result.Status = StatusPublished
	result.ReviewID = info.ID
	result.URL = info.URL
	if info.CommitID != "" {
		result.CommitID = info.CommitID
	}
	result.PublishedAt = info.SubmittedAt
	if result.PublishedAt.IsZero() {
		result.PublishedAt = p.now()
	}

	log.Info("review published", "pr", pr.String(), "review_id", info.ID, "url", info.URL)
	return result, nil
}
