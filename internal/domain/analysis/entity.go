package analysis

import "time"

// AnalysisID identifier type
type AnalysisID string

// Outcome of one pipeline run.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeConfigError   Outcome = "config_error"
	OutcomeInvalidInput  Outcome = "invalid_input"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
	OutcomeProviderError Outcome = "provider_error"
	OutcomeParseError    Outcome = "parse_error"
	OutcomeFailed        Outcome = "failed"
)

// Analysis is the audit row written for every /analyze call.
// Result fields are empty unless Outcome is success.
type Analysis struct {
	ID             AnalysisID `json:"id"`
	InputKind      string     `json:"input_kind"`
	Model          string     `json:"model"`
	IssueType      string     `json:"issue_type,omitempty"`
	Location       string     `json:"location,omitempty"`
	Confidence     float64    `json:"confidence"`
	Outcome        Outcome    `json:"outcome"`
	ProviderStatus int        `json:"provider_status,omitempty"`
	TranscriptURL  string     `json:"transcript_url,omitempty"`
	DurationMS     int64      `json:"duration_ms"`
	CreatedAt      time.Time  `json:"created_at"`
}
