package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalysis "github.com/bryanwahyu/civic-lens/internal/application/analysis"
	"github.com/bryanwahyu/civic-lens/internal/infra/ai/openai"
)

type provider struct {
	srv  *httptest.Server
	hits atomic.Int32
}

// newProvider fakes the AI gateway: it answers every call with code and body.
func newProvider(t *testing.T, code int, body string) *provider {
	t.Helper()
	p := &provider{}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func reply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func newTestRouter(apiKey string, p *provider) http.Handler {
	client := openai.NewClient(openai.Options{APIKey: apiKey, BaseURL: p.srv.URL})
	svc := &appanalysis.Service{Client: client, Model: client.Model()}
	return NewRouter(svc, nil)
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return rec, out
}

func TestPreflightBrowser(t *testing.T) {
	p := newProvider(t, http.StatusOK, reply("{}"))
	h := newTestRouter("key", p)

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "authorization, content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "authorization")
	assert.Equal(t, int32(0), p.hits.Load())
}

func TestPreflightBare(t *testing.T) {
	p := newProvider(t, http.StatusOK, reply("{}"))
	h := newTestRouter("key", p)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/anything", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "x-client-info")
	assert.Equal(t, int32(0), p.hits.Load())
}

func TestAnalyzeSuccess(t *testing.T) {
	p := newProvider(t, http.StatusOK, reply(`Sure! {"issue_type":"pothole","location":"Main St","confidence":0.92} Thanks.`))
	h := newTestRouter("key", p)

	rec, out := post(t, h, `{"inputType":"text","content":"Big pothole on Main St"}`+"\n")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, map[string]any{"issue_type": "pothole", "location": "Main St", "confidence": 0.92}, out)
	assert.Equal(t, int32(1), p.hits.Load())
}

func TestAnalyzeImage(t *testing.T) {
	p := newProvider(t, http.StatusOK, reply(`{"issue_type":"broken streetlight","location":"","confidence":0.85}`))
	h := newTestRouter("key", p)

	rec, out := post(t, h, `{"inputType":"image","content":"https://img.example/lamp.jpg"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "broken streetlight", out["issue_type"])
	assert.Equal(t, "Location not identified", out["location"])
}

func TestAnalyzeErrors(t *testing.T) {
	cases := []struct {
		name     string
		apiKey   string
		status   int
		body     string
		request  string
		wantCode int
		wantMsg  string
		wantHits int32
	}{
		{"rate limited", "key", 429, `{"error":{"message":"slow"}}`, `{"inputType":"text","content":"x"}`, 429, MsgRateLimited, 1},
		{"credits depleted", "key", 402, `payment required`, `{"inputType":"text","content":"x"}`, 402, MsgQuotaExceeded, 1},
		{"other provider status", "key", 503, `{"error":{"message":"overloaded"}}`, `{"inputType":"image","content":"https://x/y.png"}`, 500, MsgProviderError, 1},
		{"unparseable reply", "key", 200, reply("no idea, sorry"), `{"inputType":"text","content":"x"}`, 500, MsgParseError, 1},
		{"invalid input kind", "key", 200, reply("{}"), `{"inputType":"audio","content":"x"}`, 500, MsgInvalidInput, 0},
		{"missing credential", "", 200, reply("{}"), `{"inputType":"text","content":"x"}`, 500, MsgMissingCredential, 0},
		{"missing credential wins over bad kind", "", 200, reply("{}"), `{"inputType":"audio","content":"x"}`, 500, MsgMissingCredential, 0},
		{"malformed body", "key", 200, reply("{}"), `{"inputType":`, 500, MsgInvalidBody, 0},
		{"trailing garbage", "key", 200, reply("{}"), `{"inputType":"text","content":"x"} trailing-garbage`, 500, MsgInvalidBody, 0},
		{"second object", "key", 200, reply("{}"), `{"inputType":"text","content":"x"}{}`, 500, MsgInvalidBody, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newProvider(t, tc.status, tc.body)
			h := newTestRouter(tc.apiKey, p)

			rec, out := post(t, h, tc.request)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, map[string]any{"error": tc.wantMsg}, out)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tc.wantHits, p.hits.Load())
		})
	}
}

func TestAnalyzeMissingCredentialEveryRequest(t *testing.T) {
	p := newProvider(t, http.StatusOK, reply("{}"))
	h := newTestRouter("", p)

	for i := 0; i < 3; i++ {
		rec, out := post(t, h, `{"inputType":"image","content":"https://x/y.png"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, MsgMissingCredential, out["error"])
	}
	assert.Equal(t, int32(0), p.hits.Load())
}

func TestHistoryWithoutStore(t *testing.T) {
	p := newProvider(t, http.StatusOK, reply("{}"))
	h := newTestRouter("key", p)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyses?page=2&page_size=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	p := newProvider(t, http.StatusOK, reply("{}"))
	h := newTestRouter("key", p)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
