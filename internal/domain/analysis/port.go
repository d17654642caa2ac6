package analysis

import "context"

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Paginate(ctx context.Context, page, pageSize int) ([]*Analysis, error)
}

// TranscriptStore archives the raw provider reply of an analysis and returns its URL.
type TranscriptStore interface {
	PutTranscript(ctx context.Context, key string, data []byte) (string, error)
}
