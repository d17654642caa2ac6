package mysql

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
  id              VARCHAR(36)  NOT NULL PRIMARY KEY,
  input_kind      VARCHAR(32)  NOT NULL,
  model           VARCHAR(128) NOT NULL,
  issue_type      VARCHAR(255) NOT NULL DEFAULT '',
  location        VARCHAR(512) NOT NULL DEFAULT '',
  confidence      DOUBLE       NOT NULL DEFAULT 0,
  outcome         VARCHAR(32)  NOT NULL,
  provider_status INT          NOT NULL DEFAULT 0,
  transcript_url  VARCHAR(1024) NOT NULL DEFAULT '',
  duration_ms     BIGINT       NOT NULL DEFAULT 0,
  created_at      DATETIME(3)  NOT NULL,
  KEY idx_civic_analyses_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

// Save inserts an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO civic_analyses
  (id, input_kind, model, issue_type, location, confidence, outcome,
   provider_status, transcript_url, duration_ms, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  outcome=VALUES(outcome), issue_type=VALUES(issue_type), location=VALUES(location),
  confidence=VALUES(confidence), provider_status=VALUES(provider_status),
  transcript_url=VALUES(transcript_url), duration_ms=VALUES(duration_ms);
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
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, input_kind, model, issue_type, location, confidence, outcome,
       provider_status, transcript_url, duration_ms, created_at
FROM civic_analyses
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, pageSize, offset)
	if err != nil {
		return nil, err
	}
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
