package github

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	vcr "gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// RecorderModeEnv switches NewRecorder between replaying and recording
const RecorderModeEnv = "CONVENTIONAL_REVIEW_VCR_MODE"

// NewRecorder creates a go-vcr recorder backed by testdata/fixtures/<name>.yaml.
//
// Fixtures are replayed by default. With CONVENTIONAL_REVIEW_VCR_MODE=record
// real requests are made and the cassette is overwritten:
//
//	CONVENTIONAL_REVIEW_VCR_MODE=record GITHUB_TOKEN=... go test ./pkg/github/...
//
// Authorization headers are never written to cassettes.
func NewRecorder(t testing.TB, name string) (*Recorder, error) {
	t.Helper()

	// go-vcr appends ".yaml"
	fixturePath := filepath.Join("testdata", "fixtures", name)

	mode := vcr.ModeReplaying
	if os.Getenv(RecorderModeEnv) == "record" {
		mode = vcr.ModeRecording
	}

	r, err := vcr.NewAsMode(fixturePath, mode, nil)
	if err != nil {
		if errors.Is(err, cassette.ErrCassetteNotFound) {
			return nil, fmt.Errorf("cassette %q not found: %w", fixturePath, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}

	r.AddSaveFilter(func(i *cassette.Interaction) error {
		delete(i.Request.Headers, "Authorization")
		return nil
	})

	return &Recorder{recorder: r, mode: mode}, nil
}

// Recorder wraps a go-vcr recorder
type Recorder struct {
	recorder *vcr.Recorder
	mode     vcr.Mode
}

// Stop flushes the cassette when recording
func (r *Recorder) Stop() error {
	if r.recorder == nil {
		return nil
	}
	if err := r.recorder.Stop(); err != nil {
		return fmt.Errorf("failed to stop recorder: %w", err)
	}
	return nil
}

// IsRecording returns true if we're in record mode
func (r *Recorder) IsRecording() bool {
	return r.mode == vcr.ModeRecording
}

// HTTPClient returns an HTTP client configured to use the recorder
func (r *Recorder) HTTPClient() *http.Client {
	return &http.Client{Transport: r.recorder}
}

// Client builds a GitHub client whose traffic goes through the recorder.
func (r *Recorder) Client(token string, opts ...ClientOption) *Client {
	opts = append(opts, WithHTTPClient(r.HTTPClient()))
	return NewClient(token, opts...)
}
