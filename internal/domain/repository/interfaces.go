package repository

import (
	"context"

	"sentinel-bfsi/internal/domain/entity"
)

// Normalizer masks personal data and normalizes the raw query. A masking
// failure must return entity.ErrNormalization.
type Normalizer interface {
	Normalize(ctx context.Context, raw, sessionID string) (entity.SanitizedQuery, error)
}

// Retriever returns knowledge-base candidates. No results is an empty slice,
// not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query entity.SanitizedQuery) ([]entity.CandidateMatch, error)
}

// Generator is the Tier 2 model call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*entity.Generation, error)
}

// Synthesizer is the Tier 3 call. ok is false when the policy corpus has no
// passage above its relevance floor.
type Synthesizer interface {
	SynthesizeOrEscalate(ctx context.Context, query entity.SanitizedQuery) (text string, ok bool, err error)
}

// PassageStore searches the structured policy corpus.
type PassageStore interface {
	SearchPassages(ctx context.Context, vector []float32, minScore float32, limit uint64) ([]entity.Passage, error)
}

// CandidateStore searches the knowledge-base collection.
type CandidateStore interface {
	SearchCandidates(ctx context.Context, vector []float32, limit uint64) ([]entity.CandidateMatch, error)
}

type UnsafeClassifier interface {
	ClassifyUnsafe(text string) bool
}

type AuditSink interface {
	Record(ctx context.Context, rec entity.AuditRecord) error
}

type SessionLimiter interface {
	Allow(ctx context.Context, sessionID string) (bool, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CategoryExtractor guesses a category tag for a masked query. Empty means
// unknown.
type CategoryExtractor interface {
	ExtractCategory(ctx context.Context, maskedText string) string
}
