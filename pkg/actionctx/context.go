// Package actionctx resolves which pull request a run reviews.
//
// Inside GitHub Actions the pull request comes from the webhook payload at
// GITHUB_EVENT_PATH. Explicit overrides win over the payload, so the same
// binary also works from workflow_dispatch jobs and local shells.
package actionctx

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v68/github"

	"github.com/holon-run/conventional-review/pkg/config"
	"github.com/holon-run/conventional-review/pkg/log"
	"github.com/holon-run/conventional-review/pkg/review"
)

const (
	// EventPathEnv points at the JSON webhook payload of the triggering event
	EventPathEnv = "GITHUB_EVENT_PATH"
	// EventNameEnv names the triggering event
	EventNameEnv = "GITHUB_EVENT_NAME"
	// RepositoryEnv holds "owner/repo"
	RepositoryEnv = "GITHUB_REPOSITORY"
)

// Context is the source-control context of one run.
type Context struct {
	PullRequest review.PullRequest
	// DiffURL is where the unified diff is downloaded from. Empty means the
	// diff is read through the pulls API.
	DiffURL string
	// EventName is the triggering event, empty outside Actions
	EventName string
}

// Overrides are explicit values that take precedence over the event payload.
type Overrides struct {
	// PullRequest is a reference such as "owner/repo#12", a PR URL or "12"
	PullRequest string
	Owner       string
	Repo        string
	HeadSHA     string
	DiffURL     string
}

// Load builds the run context from the environment and overrides.
// getenv defaults to os.Getenv. An unresolvable pull request is a
// *config.ConfigurationError.
func Load(getenv func(string) string, ov Overrides) (*Context, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	c := &Context{EventName: getenv(EventNameEnv)}

	if path := getenv(EventPathEnv); path != "" {
		if err := c.readEvent(path); err != nil {
			return nil, &config.ConfigurationError{Input: EventPathEnv, Err: err}
		}
	}

	if repo := strings.TrimSpace(getenv(RepositoryEnv)); repo != "" && (c.PullRequest.Owner == "" || c.PullRequest.Repo == "") {
		owner, name, err := SplitRepository(repo)
		if err != nil {
			return nil, &config.ConfigurationError{Input: RepositoryEnv, Err: err}
		}
		c.PullRequest.Owner, c.PullRequest.Repo = owner, name
	}

	if err := c.apply(ov); err != nil {
		return nil, err
	}

	pr := c.PullRequest
	switch {
	case pr.Owner == "" || pr.Repo == "":
		return nil, &config.ConfigurationError{Input: "repo", Err: fmt.Errorf("repository is unknown: set %s or pass --repo owner/repo", RepositoryEnv)}
	case pr.Number <= 0:
		return nil, &config.ConfigurationError{Input: "pr", Err: errors.New("pull request number is unknown: run on a pull_request event or pass --pr")}
	}

	log.Debug("resolved pull request", "pr", pr.String(), "event", c.EventName, "diff_url", c.DiffURL)
	return c, nil
}

func (c *Context) readEvent(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read event payload: %w", err)
	}

	var event github.PullRequestEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to parse event payload %s: %w", path, err)
	}

	if repo := event.GetRepo(); repo != nil {
		c.PullRequest.Owner = repo.GetOwner().GetLogin()
		c.PullRequest.Repo = repo.GetName()
	}

	pr := event.GetPullRequest()
	if pr == nil {
		log.Debug("event payload has no pull_request", "event", c.EventName)
		return nil
	}

	c.PullRequest.Number = pr.GetNumber()
	if c.PullRequest.Number == 0 {
		c.PullRequest.Number = event.GetNumber()
	}
	c.PullRequest.HeadSHA = pr.GetHead().GetSHA()
	c.DiffURL = pr.GetDiffURL()
	return nil
}

func (c *Context) apply(ov Overrides) error {
	if ov.PullRequest != "" {
		defaultRepo := ""
		if c.PullRequest.Owner != "" && c.PullRequest.Repo != "" {
			defaultRepo = c.PullRequest.FullName()
		}
		if owner, name, err := SplitRepository(ov.Repo); err == nil {
			defaultRepo = owner + "/" + name
		} else if ov.Owner != "" && ov.Repo != "" {
			defaultRepo = ov.Owner + "/" + ov.Repo
		}
		ref, err := ParsePullRequestRef(ov.PullRequest, defaultRepo)
		if err != nil {
			return &config.ConfigurationError{Input: "pr", Err: err}
		}
		c.retarget(ref)
	}

	if ov.Owner != "" || ov.Repo != "" {
		ref := c.PullRequest
		if ov.Owner != "" {
			ref.Owner = ov.Owner
		}
		if ov.Repo != "" {
			owner, name, err := SplitRepository(ov.Repo)
			if err == nil {
				ref.Owner, ref.Repo = owner, name
			} else {
				ref.Repo = ov.Repo
			}
		}
		c.retarget(ref)
	}

	if ov.HeadSHA != "" {
		c.PullRequest.HeadSHA = ov.HeadSHA
	}
	if ov.DiffURL != "" {
		c.DiffURL = ov.DiffURL
	}
	return nil
}

// retarget switches to another pull request. The event's head SHA and diff
// URL belong to the old one and are discarded.
func (c *Context) retarget(pr review.PullRequest) {
	if pr.Owner == c.PullRequest.Owner && pr.Repo == c.PullRequest.Repo && pr.Number == c.PullRequest.Number {
		return
	}
	pr.HeadSHA = ""
	c.PullRequest = pr
	c.DiffURL = ""
}

// SplitRepository splits "owner/repo".
func SplitRepository(s string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q (expected owner/repo)", s)
	}
	return parts[0], parts[1], nil
}
