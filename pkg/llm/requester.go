// Package llm asks a chat-completion model for review comments through a
// single structured tool and returns the raw tool invocations it emits.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/holon-run/conventional-review/pkg/log"
)

const (
	// DefaultModel is used when no model is configured
	DefaultModel = "gpt-4o"

	// ToolName is the only callable exposed to the model
	ToolName = "post_review_comment"
)

// ToolCall is one raw, unvalidated tool invocation from a model response.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatClient is the subset of the OpenAI client the requester uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ModelRequestError wraps any failure returned by the model provider.
type ModelRequestError struct {
	Model string
	// StatusCode is the provider's HTTP status when one was reported
	StatusCode int
	Err        error
}

func (e *ModelRequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model request to %s failed (status %d): %v", e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("model request to %s failed: %v", e.Model, e.Err)
}

func (e *ModelRequestError) Unwrap() error {
	return e.Err
}

// Requester sends one prompt per call to the model.
type Requester struct {
	client ChatClient
}

// Option configures the OpenAI client built by NewOpenAIRequester.
type Option func(*openai.ClientConfig)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(cfg *openai.ClientConfig) {
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
	}
}

// NewRequester wraps an existing chat client.
func NewRequester(client ChatClient) *Requester {
	return &Requester{client: client}
}

// NewOpenAIRequester builds a requester backed by the OpenAI API.
func NewOpenAIRequester(apiKey string, opts ...Option) *Requester {
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewRequester(openai.NewClientWithConfig(cfg))
}

// Request sends prompt as the only user message and returns the tool calls of
// the first choice. A response without tool calls yields an empty slice.
func (r *Requester) Request(ctx context.Context, prompt, model string) ([]ToolCall, error) {
	if model == "" {
		model = DefaultModel
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Tools:      []openai.Tool{ReviewCommentTool()},
		ToolChoice: "auto",
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapError(model, err)
	}

	if len(resp.Choices) == 0 {
		log.Warn("model response has no choices", "model", model, "id", resp.ID)
		return []ToolCall{}, nil
	}

	msg := resp.Choices[0].Message
	calls := make([]ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	log.Debug("model response received",
		"model", model,
		"tool_calls", len(calls),
		"finish_reason", string(resp.Choices[0].FinishReason),
		"total_tokens", resp.Usage.TotalTokens,
	)
	return calls, nil
}

// ReviewCommentTool returns the tool definition offered to the model.
func ReviewCommentTool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        ToolName,
			Description: "Post one inline review comment on a line of the diff.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"line": {
						Type:        jsonschema.Integer,
						Description: "Line number shown at the start of the diff line being commented on.",
					},
					"comment": {
						Type:        jsonschema.String,
						Description: "The review comment text.",
					},
					"side": {
						Type:        jsonschema.String,
						Enum:        []string{"LEFT", "RIGHT"},
						Description: "LEFT for removed lines, RIGHT for context or added lines.",
					},
				},
				Required: []string{"line", "comment", "side"},
			},
		},
	}
}

func wrapError(model string, err error) error {
	reqErr := &ModelRequestError{Model: model, Err: err}

	var apiErr *openai.APIError
	var httpErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		reqErr.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &httpErr):
		reqErr.StatusCode = httpErr.HTTPStatusCode
	}
	return reqErr
}
