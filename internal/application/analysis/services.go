package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bryanwahyu/civic-lens/internal/application"
	"github.com/bryanwahyu/civic-lens/internal/domain/ai"
	domain "github.com/bryanwahyu/civic-lens/internal/domain/analysis"
	"github.com/bryanwahyu/civic-lens/internal/domain/report"
	"github.com/bryanwahyu/civic-lens/internal/infra/ai/prompt"
	"github.com/bryanwahyu/civic-lens/internal/metrics"
)

// DefaultTemperature keeps extraction deterministic.
const DefaultTemperature float32 = 0.3

const auditTimeout = 3 * time.Second

// Service runs the analyze pipeline: prompt -> provider -> extract.
// It holds no per-request state and is safe for concurrent use.
// Repo and Transcripts are optional; when nil, nothing is persisted.
type Service struct {
	Client      ai.Client
	Model       string
	Temperature float32
	Repo        domain.Repository
	Transcripts domain.TranscriptStore
	Clock       application.Clock
}

// Analyze classifies one submission. Errors are the domain sentinels / *ai.ProviderError
// so the gateway can map them to a status.
func (s *Service) Analyze(ctx context.Context, req report.AnalysisRequest) (report.AnalysisResult, error) {
	start := s.now()
	rec := &domain.Analysis{
		ID:        domain.AnalysisID(uuid.New().String()),
		InputKind: string(req.Kind),
		Model:     s.Model,
		CreatedAt: start,
	}
	log.Info().Str("id", string(rec.ID)).Str("input_kind", rec.InputKind).Msg("received analysis request")

	res, reply, err := s.run(ctx, req)

	rec.DurationMS = s.now().Sub(start).Milliseconds()
	rec.Outcome = OutcomeOf(err)
	rec.ProviderStatus = ai.StatusOf(err)
	if err == nil {
		rec.IssueType = res.IssueType
		rec.Location = res.Location
		rec.Confidence = res.Confidence
	}
	metrics.IncAnalysis(labelKind(req.Kind), string(rec.Outcome))
	s.audit(ctx, rec, reply)

	if err != nil {
		return report.AnalysisResult{}, err
	}
	log.Info().Str("id", string(rec.ID)).Str("issue_type", res.IssueType).Float64("confidence", res.Confidence).Msg("analysis complete")
	return res, nil
}

func (s *Service) run(ctx context.Context, req report.AnalysisRequest) (report.AnalysisResult, string, error) {
	if cc, ok := s.Client.(ai.ConfigChecker); ok {
		if err := cc.CheckConfig(); err != nil {
			return report.AnalysisResult{}, "", err
		}
	}
	msgs, err := prompt.Build(req)
	if err != nil {
		return report.AnalysisResult{}, "", err
	}

	temp := s.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	reply, err := s.Client.Complete(ctx, ai.InferenceRequest{
		Model:       s.Model,
		Messages:    msgs,
		Temperature: temp,
	})
	if err != nil {
		return report.AnalysisResult{}, "", err
	}

	res, err := report.ExtractValid(reply)
	if err != nil {
		log.Warn().Err(err).Msg("could not parse ai response")
		log.Debug().Str("reply", reply).Msg("unparsed ai response")
		return report.AnalysisResult{}, reply, err
	}
	return res, reply, nil
}

// History returns a page of audited analyses, newest first.
func (s *Service) History(ctx context.Context, page, pageSize int) ([]*domain.Analysis, error) {
	if s.Repo == nil {
		return []*domain.Analysis{}, nil
	}
	list, err := s.Repo.Paginate(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.Analysis{}
	}
	return list, nil
}

// audit archives the transcript and saves the record. Failures are logged only;
// the caller's response never depends on them.
func (s *Service) audit(ctx context.Context, rec *domain.Analysis, reply string) {
	if s.Repo == nil && s.Transcripts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if s.Transcripts != nil && reply != "" {
		url, err := s.Transcripts.PutTranscript(ctx, transcriptKey(rec), transcriptJSON(rec, reply))
		if err != nil {
			log.Error().Err(err).Str("id", string(rec.ID)).Msg("archive transcript failed")
		} else {
			rec.TranscriptURL = url
		}
	}
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, rec); err != nil {
			log.Error().Err(err).Str("id", string(rec.ID)).Msg("save analysis failed")
		}
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

// OutcomeOf maps a pipeline error onto the audit outcome.
func OutcomeOf(err error) domain.Outcome {
	switch {
	case err == nil:
		return domain.OutcomeSuccess
	case errors.Is(err, ai.ErrMissingCredential):
		return domain.OutcomeConfigError
	case errors.Is(err, report.ErrInvalidInput):
		return domain.OutcomeInvalidInput
	case errors.Is(err, ai.ErrRateLimited):
		return domain.OutcomeRateLimited
	case errors.Is(err, ai.ErrQuotaExceeded):
		return domain.OutcomeQuotaExceeded
	case ai.StatusOf(err) > 0:
		return domain.OutcomeProviderError
	case errors.Is(err, report.ErrResponseParse):
		return domain.OutcomeParseError
	default:
		return domain.OutcomeFailed
	}
}

func transcriptKey(rec *domain.Analysis) string {
	return fmt.Sprintf("transcripts/%s/%s.json", rec.CreatedAt.Format("2006/01/02"), rec.ID)
}

func transcriptJSON(rec *domain.Analysis, reply string) []byte {
	b, _ := json.Marshal(map[string]any{
		"id":         rec.ID,
		"model":      rec.Model,
		"input_kind": rec.InputKind,
		"outcome":    rec.Outcome,
		"reply":      reply,
		"created_at": rec.CreatedAt,
	})
	return b
}

// labelKind bounds metric label cardinality to known kinds.
func labelKind(k report.InputKind) string {
	switch k {
	case report.InputText, report.InputImage:
		return string(k)
	}
	return "other"
}
