// Package openai provides a model.Model implementation backed by the OpenAI
// Chat Completions API. Because Groq exposes an OpenAI-compatible endpoint,
// the same adapter serves both providers via a base URL override.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hupe1980/convosim/core"
	"github.com/hupe1980/convosim/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GroqBaseURL is the OpenAI-compatible endpoint served by Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// Options configure the OpenAI model adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	// BaseURL overrides the API endpoint (e.g. GroqBaseURL).
	BaseURL string
	// Provider labels the backend in Info and errors; defaults to "openai".
	Provider string
}

// WithGroq points the adapter at Groq's OpenAI-compatible endpoint.
func WithGroq() func(o *Options) {
	return func(o *Options) {
		o.BaseURL = GroqBaseURL
		o.Provider = "groq"
	}
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		Provider:            "openai",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		Provider:            "openai",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	params := m.buildParams(req)

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, m.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &core.InvalidResponseError{Provider: m.opts.Provider, Reason: "no choices returned"}
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return nil, &core.InvalidResponseError{Provider: m.opts.Provider, Reason: "empty completion content"}
	}

	return &model.Response{
		Text: text,
		Metadata: map[string]string{
			"finish_reason": string(resp.Choices[0].FinishReason),
		},
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// buildParams assembles the Chat Completion parameters from the normalized request.
func (m *Model) buildParams(req model.Request) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)

	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	temperature := m.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
}

// wrapError maps SDK errors into the core taxonomy. 429 responses become
// RateLimitedError with the server's Retry-After hint when present.
func (m *Model) wrapError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
		return &core.RateLimitedError{
			Provider:   m.opts.Provider,
			RetryAfter: retryAfterHint(apierr.Response),
			Err:        err,
		}
	}

	return &core.ProviderError{Provider: m.opts.Provider, Err: err}
}

func retryAfterHint(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: m.opts.Provider}
}
