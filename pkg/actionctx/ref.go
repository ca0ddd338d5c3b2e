package actionctx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/holon-run/conventional-review/pkg/review"
)

var (
	prURLPattern    = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)/pull/(\d+)(?:/.*)?$`)
	shortRefPattern = regexp.MustCompile(`^([^/\s]+)/([^/#\s]+)#(\d+)$`)
	numericPattern  = regexp.MustCompile(`^#?(\d+)$`)
)

// ParsePullRequestRef parses a pull request reference.
// Supported formats:
//   - https://github.com/<owner>/<repo>/pull/<n>
//   - <owner>/<repo>#<n>
//   - #<n> or <n>, which require defaultRepo ("owner/repo")
func ParsePullRequestRef(ref, defaultRepo string) (review.PullRequest, error) {
	ref = strings.TrimSpace(ref)

	if m := prURLPattern.FindStringSubmatch(ref); m != nil {
		return newRef(m[1], m[2], m[3])
	}
	if m := shortRefPattern.FindStringSubmatch(ref); m != nil {
		return newRef(m[1], m[2], m[3])
	}

	m := numericPattern.FindStringSubmatch(ref)
	if m == nil {
		return review.PullRequest{}, fmt.Errorf("invalid pull request reference %q (supported: PR URL, owner/repo#123, or #123 with a repository)", ref)
	}
	if defaultRepo == "" {
		return review.PullRequest{}, fmt.Errorf("reference %q needs a repository (e.g. --repo owner/repo)", ref)
	}
	owner, repo, err := SplitRepository(defaultRepo)
	if err != nil {
		return review.PullRequest{}, err
	}
	return newRef(owner, repo, m[1])
}

func newRef(owner, repo, number string) (review.PullRequest, error) {
	n, err := strconv.Atoi(number)
	if err != nil || n <= 0 {
		return review.PullRequest{}, fmt.Errorf("invalid pull request number %q", number)
	}
	return review.PullRequest{Owner: owner, Repo: repo, Number: n}, nil
}
