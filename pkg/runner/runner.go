// Package runner drives one review run: fetch the diff, review each eligible
// file with the model, then publish every surviving comment as one review.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/holon-run/conventional-review/pkg/config"
	"github.com/holon-run/conventional-review/pkg/diff"
	"github.com/holon-run/conventional-review/pkg/github"
	"github.com/holon-run/conventional-review/pkg/llm"
	"github.com/holon-run/conventional-review/pkg/log"
	"github.com/holon-run/conventional-review/pkg/publisher"
	"github.com/holon-run/conventional-review/pkg/reconcile"
	"github.com/holon-run/conventional-review/pkg/review"
)

// Source reads pull request data from the hosting service
type Source interface {
	// FetchDiff downloads the unified diff at diffURL
	FetchDiff(ctx context.Context, diffURL string) (string, error)
	// FetchPRDiff downloads the diff through the pulls API
	FetchPRDiff(ctx context.Context, owner, repo string, prNumber int) (string, error)
	FetchPRInfo(ctx context.Context, owner, repo string, prNumber int) (*github.PRInfo, error)
}

// PromptBuilder renders the prompt for one file
type PromptBuilder interface {
	Build(file diff.File, conventions string) (string, error)
}

// Requester asks the model for review comments
type Requester interface {
	Request(ctx context.Context, prompt, model string) ([]llm.ToolCall, error)
}

// Publisher posts the review
type Publisher interface {
	Publish(ctx context.Context, pr review.PullRequest, comments []review.Comment) (publisher.Result, error)
}

// FetchError wraps a failure to read the diff or pull request metadata.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Config holds the per-run inputs
type Config struct {
	PullRequest review.PullRequest
	// DiffURL is empty when the diff should be read through the pulls API
	DiffURL      string
	Model        string
	ExcludePaths []string
	Conventions  string
	// MaxFiles caps the number of files sent to the model; 0 means all
	MaxFiles  int
	DryRun    bool
	OutputDir string
}

// Runner encapsulates the collaborators of a run
type Runner struct {
	source    Source
	prompts   PromptBuilder
	requester Requester
	publisher Publisher
	now       func() time.Time
}

// New creates a Runner
func New(source Source, prompts PromptBuilder, requester Requester, pub Publisher) *Runner {
	return &Runner{
		source:    source,
		prompts:   prompts,
		requester: requester,
		publisher: pub,
		now:       time.Now,
	}
}

// Run executes the pipeline once.
//
// Files are processed sequentially in diff order, one model request each.
// The review is published at most once, after every file. When no comment
// survives, publishing is skipped instead of posting an empty review, which
// GitHub rejects for COMMENT reviews. Any returned error is fatal for the run.
func (r *Runner) Run(ctx context.Context, cfg Config) (publisher.Result, error) {
	result := publisher.Result{
		PullRequest: cfg.PullRequest,
		CommitID:    cfg.PullRequest.HeadSHA,
		Comments:    []review.Comment{},
	}

	matcher, err := diff.NewMatcher(cfg.ExcludePaths)
	if err != nil {
		return result, &config.ConfigurationError{Input: config.InputExcludePaths, Err: err}
	}

	if cfg.PullRequest.HeadSHA == "" {
		pr, err := r.resolveHead(ctx, cfg.PullRequest)
		if err != nil {
			return result, err
		}
		cfg.PullRequest = pr
		result.PullRequest = pr
		result.CommitID = pr.HeadSHA
	}

	raw, err := r.fetchDiff(ctx, cfg)
	if err != nil {
		return result, err
	}

	parsed, err := diff.Parse(raw)
	if err != nil {
		return result, err
	}
	files := diff.Filter(parsed, matcher)
	log.Info("diff normalized", "files", len(parsed), "eligible", len(files), "excluded", len(parsed)-len(files))

	if cfg.MaxFiles > 0 && len(files) > cfg.MaxFiles {
		log.Info("limiting reviewed files", "max_files", cfg.MaxFiles, "skipped", len(files)-cfg.MaxFiles)
		files = files[:cfg.MaxFiles]
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		kept, dropped, err := r.reviewFile(ctx, cfg, file)
		if err != nil {
			return result, err
		}
		result.Files++
		result.Dropped += dropped
		result.Comments = append(result.Comments, kept...)
	}

	switch {
	case len(result.Comments) == 0:
		result.Status = publisher.StatusSkipped
		result.PublishedAt = r.now()
		log.Info("no comments to publish", "pr", cfg.PullRequest.String(), "files", result.Files, "dropped", result.Dropped)

	case cfg.DryRun:
		result.Status = publisher.StatusDryRun
		result.PublishedAt = r.now()
		for _, c := range result.Comments {
			log.Info("dry run comment", "location", c.String(), "body", c.Body)
		}
		log.Info("dry run, review not published", "pr", cfg.PullRequest.String(), "comments", len(result.Comments))

	default:
		published, err := r.publisher.Publish(ctx, cfg.PullRequest, result.Comments)
		published.Files = result.Files
		published.Dropped = result.Dropped
		result = published
		if err != nil {
			r.writeResult(cfg.OutputDir, result)
			return result, err
		}
	}

	r.writeResult(cfg.OutputDir, result)
	return result, nil
}

// resolveHead looks up the head commit so the review stays pinned to the
// commit that was reviewed.
func (r *Runner) resolveHead(ctx context.Context, pr review.PullRequest) (review.PullRequest, error) {
	info, err := r.source.FetchPRInfo(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return pr, &FetchError{URL: pullsPath(pr), Err: err}
	}
	pr.HeadSHA = info.HeadSHA
	log.Info("resolved head commit", "pr", pr.String(), "head_sha", pr.HeadSHA, "state", info.State)
	return pr, nil
}

func (r *Runner) fetchDiff(ctx context.Context, cfg Config) (string, error) {
	if cfg.DiffURL == "" {
		log.Info("fetching diff through the pulls API", "pr", cfg.PullRequest.String())
		raw, err := r.source.FetchPRDiff(ctx, cfg.PullRequest.Owner, cfg.PullRequest.Repo, cfg.PullRequest.Number)
		if err != nil {
			return "", &FetchError{URL: pullsPath(cfg.PullRequest), Err: err}
		}
		return raw, nil
	}

	log.Info("fetching diff", "pr", cfg.PullRequest.String(), "url", cfg.DiffURL)
	raw, err := r.source.FetchDiff(ctx, cfg.DiffURL)
	if err != nil {
		return "", &FetchError{URL: cfg.DiffURL, Err: err}
	}
	return raw, nil
}

func pullsPath(pr review.PullRequest) string {
	return fmt.Sprintf("repos/%s/%s/pulls/%d", pr.Owner, pr.Repo, pr.Number)
}

func (r *Runner) reviewFile(ctx context.Context, cfg Config, file diff.File) ([]review.Comment, int, error) {
	prompt, err := r.prompts.Build(file, cfg.Conventions)
	if err != nil {
		return nil, 0, err
	}

	log.Info("requesting review", "path", file.Path, "model", cfg.Model, "prompt_bytes", len(prompt))
	calls, err := r.requester.Request(ctx, prompt, cfg.Model)
	if err != nil {
		return nil, 0, err
	}

	kept, dropped := reconcile.Filter(file, reconcile.ReconcileAll(calls))
	log.Info("file reviewed", "path", file.Path, "tool_calls", len(calls), "kept", len(kept), "dropped", len(dropped))
	return kept, len(dropped), nil
}

// writeResult persists the result artifact. The artifact is auxiliary, so a
// write failure is logged and does not change the run's outcome.
func (r *Runner) writeResult(dir string, result publisher.Result) {
	if dir == "" {
		return
	}
	if err := publisher.WriteResult(dir, result); err != nil {
		log.Warn("failed to write review result", "dir", dir, "error", err)
		return
	}
	log.Debug("review result written", "dir", dir, "file", publisher.ResultFile)
}
