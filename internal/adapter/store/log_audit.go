package store

import (
	"context"

	"go.uber.org/zap"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/domain/repository"
)

// LogAudit writes audit records to the structured log. The excerpt is left
// out; it belongs in durable storage only.
type LogAudit struct {
	log *zap.Logger
}

func NewLogAudit(log *zap.Logger) *LogAudit {
	return &LogAudit{log: log.Named("audit")}
}

func (l *LogAudit) Record(_ context.Context, rec entity.AuditRecord) error {
	l.log.Info("audit",
		zap.String("request_id", rec.RequestID),
		zap.String("session_id", rec.SessionID),
		zap.Time("timestamp", rec.Timestamp),
		zap.String("status", string(rec.Status)),
		zap.String("tier", rec.Decision.Tier.String()),
		zap.String("reason", string(rec.Decision.Reason)),
		zap.Float64("confidence", rec.Decision.Confidence),
		zap.String("category", rec.Decision.Category),
		zap.Any("attempts", rec.Decision.Attempts),
		zap.String("violation", string(rec.Verdict.Category)),
		zap.String("rule", rec.Verdict.RuleID),
		zap.Bool("is_generated", rec.Response.IsGenerated),
	)
	return nil
}

// FanoutAudit records to every sink and returns the first error.
type FanoutAudit []repository.AuditSink

func (f FanoutAudit) Record(ctx context.Context, rec entity.AuditRecord) error {
	var first error
	for _, s := range f {
		if err := s.Record(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
