package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/civic-lens/internal/domain/ai"
)

type fakeGateway struct {
	srv   *httptest.Server
	hits  atomic.Int32
	last  atomic.Value // map[string]any
	auth  atomic.Value // string
	reply func(w http.ResponseWriter)
}

func newFakeGateway(t *testing.T, reply func(w http.ResponseWriter)) *fakeGateway {
	t.Helper()
	g := &fakeGateway{reply: reply}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.hits.Add(1)
		g.auth.Store(r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		g.last.Store(payload)
		g.reply(w)
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func completion(content string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   DefaultModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}
}

func status(code int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}

func textRequest() ai.InferenceRequest {
	return ai.InferenceRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Text: "classify"},
			{Role: ai.RoleUser, Text: "pothole on Main St"},
		},
		Temperature: 0.3,
	}
}

func TestCompleteSuccess(t *testing.T) {
	g := newFakeGateway(t, completion(`{"issue_type":"pothole"}`))
	c := NewClient(Options{APIKey: "secret", BaseURL: g.srv.URL})

	out, err := c.Complete(context.Background(), textRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"issue_type":"pothole"}`, out)
	assert.Equal(t, int32(1), g.hits.Load())
	assert.Equal(t, "Bearer secret", g.auth.Load())

	payload := g.last.Load().(map[string]any)
	assert.Equal(t, DefaultModel, payload["model"])
	assert.InDelta(t, 0.3, payload["temperature"], 1e-6)
	assert.NotContains(t, payload, "max_tokens")
	assert.NotContains(t, payload, "max_completion_tokens")
	msgs := payload["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "pothole on Main St", msgs[1].(map[string]any)["content"])
}

func TestCompleteTokenCap(t *testing.T) {
	g := newFakeGateway(t, completion("{}"))

	c := NewClient(Options{APIKey: "secret", BaseURL: g.srv.URL, MaxTokens: 4096})
	_, err := c.Complete(context.Background(), textRequest())
	require.NoError(t, err)
	payload := g.last.Load().(map[string]any)
	assert.InDelta(t, 4096, payload["max_tokens"], 0)
	assert.NotContains(t, payload, "max_completion_tokens")

	c = NewClient(Options{APIKey: "secret", BaseURL: g.srv.URL, Model: "o3-mini", MaxTokens: 4096})
	req := textRequest()
	req.Temperature = 1
	_, err = c.Complete(context.Background(), req)
	require.NoError(t, err)
	payload = g.last.Load().(map[string]any)
	assert.InDelta(t, 4096, payload["max_completion_tokens"], 0)
	assert.NotContains(t, payload, "max_tokens")
}

func TestCompleteImageParts(t *testing.T) {
	g := newFakeGateway(t, completion("{}"))
	c := NewClient(Options{APIKey: "secret", BaseURL: g.srv.URL, Model: "vision-model"})

	_, err := c.Complete(context.Background(), ai.InferenceRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Text: "look"},
			{Role: ai.RoleUser, Parts: []ai.Part{
				{Type: ai.PartImage, ImageURL: "https://img.example/p.jpg"},
				{Type: ai.PartText, Text: "analyze"},
			}},
		},
		Temperature: 0.3,
	})
	require.NoError(t, err)

	payload := g.last.Load().(map[string]any)
	assert.Equal(t, "vision-model", payload["model"])
	user := payload["messages"].([]any)[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	img := parts[0].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Equal(t, "https://img.example/p.jpg", img["image_url"].(map[string]any)["url"])
	assert.Equal(t, "text", parts[1].(map[string]any)["type"])
}

func TestCompleteMissingCredential(t *testing.T) {
	g := newFakeGateway(t, completion("{}"))
	c := NewClient(Options{BaseURL: g.srv.URL})

	assert.ErrorIs(t, c.CheckConfig(), ai.ErrMissingCredential)
	_, err := c.Complete(context.Background(), textRequest())
	assert.ErrorIs(t, err, ai.ErrMissingCredential)
	assert.Equal(t, int32(0), g.hits.Load())
}

func TestCompleteStatusErrors(t *testing.T) {
	cases := []struct {
		name   string
		code   int
		body   string
		target error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, ai.ErrRateLimited},
		{"credits", http.StatusPaymentRequired, `{"error":{"message":"no credits"}}`, ai.ErrQuotaExceeded},
		{"plain text body", http.StatusTooManyRequests, `too many`, ai.ErrRateLimited},
		{"server error", http.StatusBadGateway, `upstream down`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newFakeGateway(t, status(tc.code, tc.body))
			c := NewClient(Options{APIKey: "secret", BaseURL: g.srv.URL})

			_, err := c.Complete(context.Background(), textRequest())
			require.Error(t, err)
			assert.Equal(t, tc.code, ai.StatusOf(err))
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			} else {
				assert.False(t, errors.Is(err, ai.ErrRateLimited) || errors.Is(err, ai.ErrQuotaExceeded))
			}
			assert.Equal(t, int32(1), g.hits.Load(), "exactly one attempt")
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	g := newFakeGateway(t, func(w http.ResponseWriter) {
		time.Sleep(200 * time.Millisecond)
		completion("{}")(w)
	})
	c := NewClient(Options{APIKey: "secret", BaseURL: g.srv.URL, Timeout: 20 * time.Millisecond})

	_, err := c.Complete(context.Background(), textRequest())
	require.Error(t, err)
	assert.Equal(t, 0, ai.StatusOf(err))
	assert.ErrorIs(t, err, ai.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompleteCallerCancel(t *testing.T) {
	g := newFakeGateway(t, completion("{}"))
	c := NewClient(Options{APIKey: "secret", BaseURL: g.srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, textRequest())
	assert.ErrorIs(t, err, context.Canceled)
}
