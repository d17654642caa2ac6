package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/civic-lens/internal/domain/ai"
	"github.com/bryanwahyu/civic-lens/internal/domain/report"
	"github.com/bryanwahyu/civic-lens/internal/metrics"
)

const (
	DefaultBaseURL = "https://ai.gateway.lovable.dev/v1"
	DefaultModel   = "google/gemini-2.5-flash"
	defaultTimeout = 30 * time.Second
)

// Options configures the gateway client. APIKey may be empty; every call then
// fails with ai.ErrMissingCredential. MaxTokens <= 0 sends no token cap.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to an OpenAI-compatible chat completions endpoint.
// It makes exactly one attempt per call.
type Client struct {
	api       *openai.Client
	apiKey    string
	model     string
	maxTokens int
	timeout   time.Duration
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	c := &Client{
		api:       openai.NewClientWithConfig(cfg),
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	return c
}

// Model returns the model used when a request leaves it empty.
func (c *Client) Model() string { return c.model }

// CheckConfig reports ai.ErrMissingCredential when no API key was configured.
func (c *Client) CheckConfig() error {
	if c.apiKey == "" {
		return ai.ErrMissingCredential
	}
	return nil
}

func (c *Client) Complete(ctx context.Context, in ai.InferenceRequest) (string, error) {
	if err := c.CheckConfig(); err != nil {
		return "", err
	}
	model := in.Model
	if model == "" {
		model = c.model
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toChatMessages(in.Messages),
		Temperature: in.Temperature,
	}
	if c.maxTokens > 0 {
		// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
		if isReasoningModel(model) {
			req.MaxCompletionTokens = c.maxTokens
		} else {
			req.MaxTokens = c.maxTokens
		}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		err = translateError(err)
		metrics.ObserveProvider(model, resultLabel(err), time.Since(start))
		var pe *ai.ProviderError
		if errors.As(err, &pe) {
			log.Warn().Int("status", pe.StatusCode).Str("model", model).Msg("ai gateway returned error status")
			log.Debug().Str("body", pe.Body).Msg("ai gateway error body")
		} else {
			log.Warn().Err(err).Str("model", model).Msg("ai gateway request failed")
		}
		return "", err
	}
	metrics.ObserveProvider(model, "ok", time.Since(start))

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: provider returned no choices", report.ErrResponseParse)
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5")
}

func toChatMessages(msgs []ai.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := openai.ChatCompletionMessage{Role: string(m.Role)}
		if !m.IsMultipart() {
			cm.Content = m.Text
			out = append(out, cm)
			continue
		}
		for _, p := range m.Parts {
			switch p.Type {
			case ai.PartImage:
				cm.MultiContent = append(cm.MultiContent, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: p.ImageURL},
				})
			default:
				cm.MultiContent = append(cm.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: p.Text,
				})
			}
		}
		out = append(out, cm)
	}
	return out
}

// translateError turns go-openai status errors into *ai.ProviderError.
// Anything without a status (dial, timeout, cancel) is wrapped as a transport failure.
func translateError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &ai.ProviderError{StatusCode: reqErr.HTTPStatusCode, Body: string(reqErr.Body)}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &ai.ProviderError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	return fmt.Errorf("%w: %w", ai.ErrTransport, err)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ai.ErrQuotaExceeded):
		return "quota_exceeded"
	case ai.StatusOf(err) > 0:
		return "error_status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transport_error"
	}
}
