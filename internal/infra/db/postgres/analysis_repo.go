package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/civic-lens/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// EnsureSchema creates the audit table when missing.
func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS civic_analyses (
  id              TEXT PRIMARY KEY,
  input_kind      VARCHAR(32)  NOT NULL,
  model           VARCHAR(128) NOT NULL,
  issue_type      VARCHAR(255) NOT NULL DEFAULT '',
  location        VARCHAR(512) NOT NULL DEFAULT '',
  confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
  outcome         VARCHAR(32)  NOT NULL,
  provider_status INTEGER      NOT NULL DEFAULT 0,
  transcript_url  TEXT         NOT NULL DEFAULT '',
  duration_ms     BIGINT       NOT NULL DEFAULT 0,
  created_at      TIMESTAMPTZ  NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_civic_analyses_created ON civic_analyses (created_at DESC);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// Save inserts or updates an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO civic_analyses
  (id, input_kind, model, issue_type, location, confidence, outcome,
   provider_status, transcript_url, duration_ms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  outcome=EXCLUDED.outcome,
  issue_type=EXCLUDED.issue_type,
  location=EXCLUDED.location,
  confidence=EXCLUDED.confidence,
  provider_status=EXCLUDED.provider_status,
  transcript_url=EXCLUDED.transcript_url,
  duration_ms=EXCLUDED.duration_ms;
`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		a.ID,
		clip(stringOrDash(a.InputKind), 32),
		clip(stringOrDash(a.Model), 128),
		clip(a.IssueType, 255),
		clip(a.Location, 512),
		a.Confidence,
		stringOrDash(string(a.Outcome)),
		a.ProviderStatus,
		a.TranscriptURL,
		a.DurationMS,
		createdAt,
	)
	return err
}

// Paginate returns a page of analysis records ordered by created_at desc
func (r *AnalysisRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Analysis, error) {
	if page <= 0 { page = 1 }
	if pageSize <= 0 { pageSize = 20 }
	offset := (page - 1) * pageSize

	const q = `
SELECT id, input_kind, model, issue_type, location, confidence, outcome,
       provider_status, transcript_url, duration_ms, created_at
FROM civic_analyses
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil { return nil, err }
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		var a domain.Analysis
		if err := rows.Scan(&a.ID, &a.InputKind, &a.Model, &a.IssueType, &a.Location, &a.Confidence,
			&a.Outcome, &a.ProviderStatus, &a.TranscriptURL, &a.DurationMS, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
