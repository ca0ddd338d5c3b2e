package actionctx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/holon-run/conventional-review/pkg/config"
	"github.com/holon-run/conventional-review/pkg/review"
)

const pullRequestEvent = `{
  "action": "synchronize",
  "number": 42,
  "pull_request": {
    "number": 42,
    "diff_url": "https://github.com/octo/app/pull/42.diff",
    "head": {"sha": "6dcb09b5b57875f334f61aebed695e2e4193db5e", "ref": "feature"},
    "base": {"sha": "aaaaaaa", "ref": "main"}
  },
  "repository": {
    "name": "app",
    "full_name": "octo/app",
    "owner": {"login": "octo"}
  }
}`

func writeEvent(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func envMap(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func TestLoad_PullRequestEvent(t *testing.T) {
	path := writeEvent(t, pullRequestEvent)

	c, err := Load(envMap(map[string]string{
		EventPathEnv:  path,
		EventNameEnv:  "pull_request",
		RepositoryEnv: "someone/else",
	}), Overrides{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := review.PullRequest{Owner: "octo", Repo: "app", Number: 42, HeadSHA: "6dcb09b5b57875f334f61aebed695e2e4193db5e"}
	if c.PullRequest != want {
		t.Errorf("PullRequest = %+v, want %+v", c.PullRequest, want)
	}
	if c.DiffURL != "https://github.com/octo/app/pull/42.diff" {
		t.Errorf("DiffURL = %q", c.DiffURL)
	}
	if c.EventName != "pull_request" {
		t.Errorf("EventName = %q", c.EventName)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeEvent(t, pullRequestEvent)
	env := envMap(map[string]string{EventPathEnv: path})

	t.Run("diff URL only", func(t *testing.T) {
		c, err := Load(env, Overrides{DiffURL: "https://example.test/custom.diff"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if c.DiffURL != "https://example.test/custom.diff" {
			t.Errorf("DiffURL = %q", c.DiffURL)
		}
		if c.PullRequest.HeadSHA == "" {
			t.Error("HeadSHA from the event should be kept")
		}
	})

	t.Run("other pull request drops event data", func(t *testing.T) {
		c, err := Load(env, Overrides{PullRequest: "7"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		want := review.PullRequest{Owner: "octo", Repo: "app", Number: 7}
		if c.PullRequest != want {
			t.Errorf("PullRequest = %+v, want %+v", c.PullRequest, want)
		}
		if c.DiffURL != "" {
			t.Errorf("DiffURL = %q, want empty", c.DiffURL)
		}
	})

	t.Run("same pull request keeps event data", func(t *testing.T) {
		c, err := Load(env, Overrides{PullRequest: "#42"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if c.DiffURL != "https://github.com/octo/app/pull/42.diff" || c.PullRequest.HeadSHA == "" {
			t.Errorf("unexpected context: %+v", c)
		}
	})

	t.Run("reference and sha", func(t *testing.T) {
		c, err := Load(envMap(nil), Overrides{PullRequest: "https://github.com/acme/tool/pull/3", HeadSHA: "deadbeef"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		want := review.PullRequest{Owner: "acme", Repo: "tool", Number: 3, HeadSHA: "deadbeef"}
		if c.PullRequest != want {
			t.Errorf("PullRequest = %+v, want %+v", c.PullRequest, want)
		}
	})

	t.Run("bare number with repo flag", func(t *testing.T) {
		c, err := Load(envMap(nil), Overrides{PullRequest: "12", Repo: "owner/repo"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		want := review.PullRequest{Owner: "owner", Repo: "repo", Number: 12}
		if c.PullRequest != want {
			t.Errorf("PullRequest = %+v, want %+v", c.PullRequest, want)
		}
	})

	t.Run("bare number with owner and repo flags", func(t *testing.T) {
		c, err := Load(envMap(nil), Overrides{PullRequest: "#4", Owner: "acme", Repo: "tool"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if c.PullRequest.FullName() != "acme/tool" || c.PullRequest.Number != 4 {
			t.Errorf("PullRequest = %+v", c.PullRequest)
		}
	})

	t.Run("repo flag in owner/repo form", func(t *testing.T) {
		c, err := Load(envMap(nil), Overrides{PullRequest: "9", Repo: "acme/tool"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if c.PullRequest.FullName() != "acme/tool" || c.PullRequest.Number != 9 {
			t.Errorf("PullRequest = %+v", c.PullRequest)
		}
	})
}

func TestLoad_RepositoryFallback(t *testing.T) {
	path := writeEvent(t, `{"action": "opened", "pull_request": {"number": 5}}`)

	c, err := Load(envMap(map[string]string{
		EventPathEnv:  path,
		RepositoryEnv: "octo/app",
	}), Overrides{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.PullRequest.FullName() != "octo/app" || c.PullRequest.Number != 5 {
		t.Errorf("PullRequest = %+v", c.PullRequest)
	}
	if c.DiffURL != "" {
		t.Errorf("DiffURL = %q, want empty", c.DiffURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		ov        Overrides
		wantInput string
	}{
		{
			name:      "nothing set",
			env:       map[string]string{},
			wantInput: "repo",
		},
		{
			name:      "push event without pull request",
			env:       map[string]string{EventPathEnv: writeEvent(t, `{"ref": "refs/heads/main"}`), RepositoryEnv: "octo/app"},
			wantInput: "pr",
		},
		{
			name:      "missing payload file",
			env:       map[string]string{EventPathEnv: filepath.Join(t.TempDir(), "missing.json")},
			wantInput: EventPathEnv,
		},
		{
			name:      "broken payload",
			env:       map[string]string{EventPathEnv: writeEvent(t, `{"pull_request": `)},
			wantInput: EventPathEnv,
		},
		{
			name:      "bad repository variable",
			env:       map[string]string{RepositoryEnv: "just-a-name"},
			wantInput: RepositoryEnv,
		},
		{
			name:      "bad reference",
			env:       map[string]string{RepositoryEnv: "octo/app"},
			ov:        Overrides{PullRequest: "octo/app!12"},
			wantInput: "pr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(envMap(tt.env), tt.ov)
			if err == nil {
				t.Fatal("expected error")
			}
			var cfgErr *config.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *config.ConfigurationError, got %T: %v", err, err)
			}
			if cfgErr.Input != tt.wantInput {
				t.Errorf("Input = %q, want %q", cfgErr.Input, tt.wantInput)
			}
		})
	}
}
