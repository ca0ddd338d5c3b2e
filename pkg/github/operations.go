package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v68/github"
)

// ReviewEventComment submits a review without approving or requesting changes
const ReviewEventComment = "COMMENT"

// FetchDiff downloads the unified diff behind diffURL.
//
// diffURL is usually the pull request's diff_url from the event payload. It
// may be absolute or relative to the API base URL.
func (c *Client) FetchDiff(ctx context.Context, diffURL string) (string, error) {
	target, err := c.resolve(diffURL)
	if err != nil {
		return "", err
	}

	req, err := c.NewRequest(ctx, "GET", target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", diffMediaType)

	resp, err := c.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch diff: %w", err)
	}

	body, err := resp.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read diff response: %w", err)
	}
	return string(body), nil
}

// FetchPRDiff fetches the unified diff for a PR through the pulls API
func (c *Client) FetchPRDiff(ctx context.Context, owner, repo string, prNumber int) (string, error) {
	diff, _, err := c.GitHubClient().PullRequests.GetRaw(ctx, owner, repo, prNumber, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("failed to fetch PR diff: %w", fromGitHubError(err))
	}
	return diff, nil
}

// FetchPRInfo fetches pull request metadata
func (c *Client) FetchPRInfo(ctx context.Context, owner, repo string, prNumber int) (*PRInfo, error) {
	pr, _, err := c.GitHubClient().PullRequests.Get(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PR info: %w", fromGitHubError(err))
	}
	return convertFromGitHubPR(pr), nil
}

func convertFromGitHubPR(pr *github.PullRequest) *PRInfo {
	info := &PRInfo{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		State:     pr.GetState(),
		URL:       pr.GetHTMLURL(),
		DiffURL:   pr.GetDiffURL(),
		Author:    pr.GetUser().GetLogin(),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}

	if pr.Base != nil {
		info.BaseRef = pr.Base.GetRef()
		info.BaseSHA = pr.Base.GetSHA()
		info.Repository = pr.Base.GetRepo().GetFullName()
	}
	if pr.Head != nil {
		info.HeadRef = pr.Head.GetRef()
		info.HeadSHA = pr.Head.GetSHA()
	}

	return info
}

// CreateReview submits one COMMENT review carrying every comment in review.
func (c *Client) CreateReview(ctx context.Context, owner, repo string, prNumber int, review NewReview) (*ReviewInfo, error) {
	req := &github.PullRequestReviewRequest{
		Event:    github.Ptr(ReviewEventComment),
		Comments: make([]*github.DraftReviewComment, 0, len(review.Comments)),
	}
	if review.CommitID != "" {
		req.CommitID = github.Ptr(review.CommitID)
	}
	if review.Body != "" {
		req.Body = github.Ptr(review.Body)
	}
	for _, rc := range review.Comments {
		req.Comments = append(req.Comments, &github.DraftReviewComment{
			Path: github.Ptr(rc.Path),
			Body: github.Ptr(rc.Body),
			Line: github.Ptr(rc.Line),
			Side: github.Ptr(rc.Side),
		})
	}

	created, _, err := c.GitHubClient().PullRequests.CreateReview(ctx, owner, repo, prNumber, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", fromGitHubError(err))
	}

	return &ReviewInfo{
		ID:          created.GetID(),
		URL:         created.GetHTMLURL(),
		State:       created.GetState(),
		CommitID:    created.GetCommitID(),
		SubmittedAt: created.GetSubmittedAt().Time,
	}, nil
}

// resolve makes a relative diff URL absolute against the API base URL.
func (c *Client) resolve(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid diff URL %q: %w", raw, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	ref.Path = strings.TrimPrefix(ref.Path, "/")

	base := c.baseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
