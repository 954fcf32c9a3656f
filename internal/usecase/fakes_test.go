package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/usecase/safety"
)

const (
	testEscalation = "I'll connect you with a specialist. For your exact details, please log in to our mobile app or internet banking, or contact customer care."
	testRefusal    = "I cannot process this request. Please contact customer care."
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeGenerator struct {
	text          string
	deterministic bool
	err           error
	block         bool // wait for ctx to end

	calls      atomic.Int32
	lastPrompt atomic.Value
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (*entity.Generation, error) {
	f.calls.Add(1)
	f.lastPrompt.Store(prompt)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Generation{Text: f.text, Deterministic: f.deterministic, Model: "fake"}, nil
}

func (f *fakeGenerator) prompt() string {
	p, _ := f.lastPrompt.Load().(string)
	return p
}

type fakeSynth struct {
	text  string
	ok    bool
	err   error
	block bool

	calls atomic.Int32
}

func (f *fakeSynth) SynthesizeOrEscalate(ctx context.Context, _ entity.SanitizedQuery) (string, bool, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return "", false, ctx.Err()
	}
	return f.text, f.ok, f.err
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f fakeEmbedder) CreateEmbedding(context.Context, string) ([]float32, error) {
	return f.vector, f.err
}

type fakePassages struct {
	passages []entity.Passage
	err      error

	gotMin   float32
	gotLimit uint64
}

func (f *fakePassages) SearchPassages(_ context.Context, _ []float32, minScore float32, limit uint64) ([]entity.Passage, error) {
	f.gotMin, f.gotLimit = minScore, limit
	return f.passages, f.err
}

type fakeCandidates struct {
	matches []entity.CandidateMatch
	err     error
}

func (f fakeCandidates) SearchCandidates(context.Context, []float32, uint64) ([]entity.CandidateMatch, error) {
	return f.matches, f.err
}

type fakeNormalizer struct {
	query entity.SanitizedQuery
	err   error
}

func (f fakeNormalizer) Normalize(_ context.Context, raw, sessionID string) (entity.SanitizedQuery, error) {
	if f.err != nil {
		return entity.SanitizedQuery{}, f.err
	}
	q := f.query
	if q.Text == "" {
		q.Text = raw
	}
	q.SessionID = sessionID
	return q, nil
}

type fakeRetriever struct {
	matches []entity.CandidateMatch
	err     error
}

func (f fakeRetriever) Retrieve(context.Context, entity.SanitizedQuery) ([]entity.CandidateMatch, error) {
	return f.matches, f.err
}

type fakeLimiter struct {
	allow bool
	err   error
}

func (f fakeLimiter) Allow(context.Context, string) (bool, error) { return f.allow, f.err }

type memoryAudit struct {
	mu      sync.Mutex
	records []entity.AuditRecord
	err     error
}

func (m *memoryAudit) Record(_ context.Context, rec entity.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func (m *memoryAudit) all() []entity.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.AuditRecord(nil), m.records...)
}

func candidate(id string, score float64, answer, category string) entity.CandidateMatch {
	return entity.CandidateMatch{
		Score: score,
		Entry: entity.KnowledgeEntry{ID: id, Answer: answer, Category: category, UpdatedAt: fixedNow},
	}
}

func newTestRouter(t *testing.T, gen *fakeGenerator, synth *fakeSynth) *Router {
	t.Helper()
	r, err := NewRouter(
		safety.NewGate(safety.NewPatternClassifier()),
		NewGenerationTier(NewGuardedGenerator(gen, 0), DefaultInstructions(), 0.75),
		NewRetrievalTier(synth),
		RouterPolicy{
			Tier2Timeout:   time.Second,
			Tier3Timeout:   time.Second,
			EscalationText: testEscalation,
			RefusalText:    testRefusal,
		},
	)
	require.NoError(t, err)
	return r.WithClock(func() time.Time { return fixedNow }).WithIDs(func() string { return "req-1" })
}

func outcomes(d entity.Decision) []string {
	out := make([]string, 0, len(d.Attempts))
	for _, a := range d.Attempts {
		out = append(out, a.Tier.String()+":"+string(a.Outcome))
	}
	return out
}
