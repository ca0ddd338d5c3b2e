package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"
)

// APIError represents a GitHub API error response
type APIError struct {
	StatusCode int
	Message    string
	Errors     []APIErrorDetail `json:"errors,omitempty"`
	// RateLimited is set when the response reported an exhausted quota
	RateLimited bool
}

// APIErrorDetail represents individual error details from GitHub
type APIErrorDetail struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Error returns the error message
func (e *APIError) Error() string {
	msg := fmt.Sprintf("GitHub API error (status %d)", e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	for _, d := range e.Errors {
		switch {
		case d.Message != "":
			msg += "; " + d.Message
		case d.Field != "":
			msg += fmt.Sprintf("; %s.%s %s", d.Resource, d.Field, d.Code)
		}
	}
	return msg
}

// IsRateLimitError returns true if the error is a rate limit error
func IsRateLimitError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests ||
		(apiErr.StatusCode == http.StatusForbidden && apiErr.RateLimited)
}

// IsNotFoundError returns true if the error is a not found error
func IsNotFoundError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsAuthenticationError returns true if the error is an authentication error
func IsAuthenticationError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || IsRateLimitError(err) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized ||
		apiErr.StatusCode == http.StatusForbidden
}

// parseErrorResponse parses an error response from GitHub
func parseErrorResponse(statusCode int, header http.Header, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode:  statusCode,
		RateLimited: header.Get("X-RateLimit-Remaining") == "0",
	}

	var githubErr struct {
		Message string           `json:"message"`
		Errors  []APIErrorDetail `json:"errors"`
	}
	if err := json.Unmarshal(body, &githubErr); err == nil {
		apiErr.Message = githubErr.Message
		apiErr.Errors = githubErr.Errors
	} else {
		apiErr.Message = string(body)
	}

	return apiErr
}

// fromGitHubError converts go-github failures into *APIError so callers can
// classify them the same way as raw requests. Other errors pass through.
func fromGitHubError(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		apiErr := &APIError{Message: rateErr.Message, RateLimited: true, StatusCode: http.StatusForbidden}
		if rateErr.Response != nil {
			apiErr.StatusCode = rateErr.Response.StatusCode
		}
		return apiErr
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		apiErr := &APIError{Message: abuseErr.Message, RateLimited: true, StatusCode: http.StatusForbidden}
		if abuseErr.Response != nil {
			apiErr.StatusCode = abuseErr.Response.StatusCode
		}
		return apiErr
	}

	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) {
		return err
	}

	apiErr := &APIError{Message: ghErr.Message}
	if ghErr.Response != nil {
		apiErr.StatusCode = ghErr.Response.StatusCode
		apiErr.RateLimited = ghErr.Response.Header.Get("X-RateLimit-Remaining") == "0"
	}
	for _, e := range ghErr.Errors {
		apiErr.Errors = append(apiErr.Errors, APIErrorDetail{
			Resource: e.Resource,
			Field:    e.Field,
			Code:     e.Code,
			Message:  e.Message,
		})
	}
	return apiErr
}
