package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the default GitHub API base URL
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second

	// diffMediaType asks GitHub for a unified diff instead of JSON
	diffMediaType = "application/vnd.github.v3.diff"
)

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for the GitHub API
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets a custom HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// Client talks to the GitHub REST API.
//
// Raw downloads such as diff URLs go through NewRequest/Do; everything else
// uses the lazily built go-github client returned by GitHubClient. Requests
// are sent once: the client never retries.
type Client struct {
	token        string
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	githubClient *github.Client
	mu           sync.Mutex
}

// NewClient creates a new GitHub API client with the given token
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.httpClient.Timeout == 0 {
		c.httpClient.Timeout = c.timeout
	}

	return c
}

// GitHubClient returns the underlying go-github client (lazy-loaded)
func (c *Client) GitHubClient() *github.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.githubClient != nil {
		return c.githubClient
	}

	// oauth2 wraps the transport of the client stored in the context,
	// which keeps custom and recording transports in the chain.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = c.httpClient.Timeout
	c.githubClient = github.NewClient(tc)

	if c.baseURL != DefaultBaseURL && c.baseURL != "" {
		baseURL := c.baseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		if parsed, err := url.Parse(baseURL); err == nil {
			c.githubClient.BaseURL = parsed
		}
	}
	return c.githubClient
}

// NewRequest creates a new HTTP request with proper authentication
func (c *Client) NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)
	return req, nil
}

// Do sends req once. Non-2xx responses are returned as *APIError.
func (c *Client) Do(req *http.Request) (*ClientResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, parseErrorResponse(resp.StatusCode, resp.Header, body)
	}

	return &ClientResponse{Response: resp}, nil
}

// setHeaders sets common headers for GitHub API requests
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
}

// ClientResponse wraps an HTTP response with additional methods
type ClientResponse struct {
	*http.Response
	closeOnce sync.Once
}

// ReadAll reads the entire response body
func (r *ClientResponse) ReadAll() ([]byte, error) {
	defer r.Close()
	return io.ReadAll(r.Response.Body)
}

// Close closes the response body (idempotent)
func (r *ClientResponse) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.Response != nil && r.Response.Body != nil {
			err = r.Response.Body.Close()
		}
	})
	return err
}
