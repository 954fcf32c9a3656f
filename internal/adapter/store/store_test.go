package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"sentinel-bfsi/internal/domain/entity"
)

var recordedAt = time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC)

func sampleRecord(id string, reason entity.ReasonCode) entity.AuditRecord {
	return entity.AuditRecord{
		RequestID: id,
		SessionID: "sess-1",
		Timestamp: recordedAt,
		Status:    entity.AuditCompleted,
		Decision: entity.Decision{
			Tier:       entity.TierEscalation,
			Reason:     reason,
			Confidence: 0.6,
			Category:   "emi_details",
			Attempts: []entity.TierAttempt{
				{Tier: entity.TierExact, Outcome: entity.OutcomeSkipped},
				{Tier: entity.TierGenerated, Outcome: entity.OutcomeRejected, Violation: entity.ViolationNumericClaim},
				{Tier: entity.TierEscalation, Outcome: entity.OutcomeSelected},
			},
			Verdict: entity.Clean(),
		},
		Verdict: entity.SafetyVerdict{
			Violation: true,
			Category:  entity.ViolationNumericClaim,
			RuleID:    "currency_symbol",
			Excerpt:   "₹4,500",
		},
		Response: entity.ResponseMeta{Reason: reason, Category: "emi_details", SchemaVersion: 1, TextLength: 42},
	}
}

func openAudit(t *testing.T) *SQLiteAudit {
	t.Helper()
	s, err := NewSQLiteAudit(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteAuditRecordAndGet(t *testing.T) {
	s := openAudit(t)
	ctx := context.Background()
	rec := sampleRecord("req-1", entity.ReasonEscalated)

	require.NoError(t, s.Record(ctx, rec))

	got, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, rec.Status, got.Status)
	assert.True(t, rec.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, rec.Decision, got.Decision)
	assert.Equal(t, rec.Verdict, got.Verdict)
	assert.Equal(t, rec.Response, got.Response)
}

func TestSQLiteAuditIsWriteOnce(t *testing.T) {
	s := openAudit(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, sampleRecord("req-1", entity.ReasonEscalated)))

	// Same id twice is rejected.
	assert.Error(t, s.Record(ctx, sampleRecord("req-1", entity.ReasonRetrieved)))

	_, err := s.db.ExecContext(ctx, `UPDATE audit_records SET reason = 'EXACT_MATCH' WHERE request_id = 'req-1'`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write-once")

	_, err = s.db.ExecContext(ctx, `DELETE FROM audit_records WHERE request_id = 'req-1'`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write-once")

	got, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonEscalated, got.Decision.Reason)
}

func TestSQLiteAuditMigrateIdempotent(t *testing.T) {
	s := openAudit(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestSQLiteAuditCountByReason(t *testing.T) {
	s := openAudit(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, sampleRecord("a", entity.ReasonEscalated)))
	require.NoError(t, s.Record(ctx, sampleRecord("b", entity.ReasonEscalated)))
	require.NoError(t, s.Record(ctx, sampleRecord("c", entity.ReasonExactMatch)))

	counts, err := s.CountByReason(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[entity.ReasonCode]int{entity.ReasonEscalated: 2, entity.ReasonExactMatch: 1}, counts)
}

func TestSQLiteAuditGetMissing(t *testing.T) {
	s := openAudit(t)
	_, err := s.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestMemoryLimiter(t *testing.T) {
	m := NewMemoryLimiter(2, time.Minute)
	now := recordedAt
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := m.Allow(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := m.Allow(ctx, "s1")
	assert.False(t, ok, "third request in the window is refused")

	ok, _ = m.Allow(ctx, "s2")
	assert.True(t, ok, "sessions are limited independently")

	now = now.Add(30 * time.Second)
	ok, _ = m.Allow(ctx, "s1")
	assert.True(t, ok, "one token refills every window/limit")
}

func TestMemoryLimiterEvictsIdleSessions(t *testing.T) {
	m := NewMemoryLimiter(1, time.Second)
	now := recordedAt
	m.now = func() time.Time { return now }

	for i := 0; i < 10000; i++ {
		m.sessions[string(rune('a'+i%26))+time.Duration(i).String()] = &sessionBucket{lastSeen: now.Add(-time.Hour)}
	}
	_, _ = m.Allow(context.Background(), "fresh")
	assert.Len(t, m.sessions, 1)
}

func TestRedisLimiterKeyIsPerWindow(t *testing.T) {
	r := NewRedisLimiter(nil, 10, time.Minute)
	now := time.Unix(600, 0)
	r.now = func() time.Time { return now }

	k1 := r.key("sess")
	now = now.Add(59 * time.Second)
	assert.Equal(t, k1, r.key("sess"))
	now = now.Add(time.Second)
	assert.NotEqual(t, k1, r.key("sess"))
	assert.Equal(t, "ratelimit:sess:11", r.key("sess"))
}

func TestRedisLimiterUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	_, err := NewRedisLimiter(client, 10, time.Minute).Allow(context.Background(), "s")
	assert.Error(t, err)
}

func TestLogAuditAndFanout(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	failing := sinkFunc(func(context.Context, entity.AuditRecord) error { return errors.New("disk full") })

	fan := FanoutAudit{failing, NewLogAudit(zap.New(core))}
	err := fan.Record(context.Background(), sampleRecord("req-9", entity.ReasonEscalated))
	assert.EqualError(t, err, "disk full")

	// The log sink still ran after the first sink failed.
	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "NUMERIC_CLAIM", fields["violation"])
	_, hasExcerpt := fields["excerpt"]
	assert.False(t, hasExcerpt)
}

type sinkFunc func(context.Context, entity.AuditRecord) error

func (f sinkFunc) Record(ctx context.Context, rec entity.AuditRecord) error { return f(ctx, rec) }

func TestPointIDIsStable(t *testing.T) {
	a := PointID("emi_due")
	assert.Equal(t, a, PointID("emi_due"))
	assert.NotEqual(t, a, PointID("emi_due2"))
	assert.Len(t, a, 36)
}
