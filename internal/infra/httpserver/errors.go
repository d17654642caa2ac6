package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/civic-lens/internal/domain/ai"
	"github.com/bryanwahyu/civic-lens/internal/domain/report"
)

// Messages returned in the error envelope.
const (
	MsgMissingCredential = "AI gateway API key is not configured"
	MsgInvalidInput      = "Invalid input type"
	MsgInvalidBody       = "Invalid request body"
	MsgRateLimited       = "Rate limit exceeded. Please try again later."
	MsgQuotaExceeded     = "AI credits depleted. Please add credits to continue."
	MsgProviderError     = "AI gateway error"
	MsgParseError        = "Failed to parse AI response"
	MsgRequestFailed     = "AI gateway request failed"
	MsgInternal          = "Internal server error"
)

var errInvalidBody = errors.New("invalid request body")

type errorEnvelope struct {
	Error string `json:"error"`
}

// classify maps a pipeline error to the externally visible status and message.
// Order matters: credential and input checks come before provider status checks.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ai.ErrMissingCredential):
		return http.StatusInternalServerError, MsgMissingCredential
	case errors.Is(err, report.ErrInvalidInput):
		return http.StatusInternalServerError, MsgInvalidInput
	case errors.Is(err, errInvalidBody):
		return http.StatusInternalServerError, MsgInvalidBody
	case errors.Is(err, ai.ErrRateLimited):
		return http.StatusTooManyRequests, MsgRateLimited
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusPaymentRequired, MsgQuotaExceeded
	case ai.StatusOf(err) > 0:
		return http.StatusInternalServerError, MsgProviderError
	case errors.Is(err, report.ErrResponseParse):
		return http.StatusInternalServerError, MsgParseError
	case errors.Is(err, ai.ErrTransport):
		return http.StatusInternalServerError, MsgRequestFailed
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := classify(err)
	log.Error().Err(err).Int("status", code).Str("path", r.URL.Path).Msg("request failed")
	writeJSON(w, code, errorEnvelope{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
