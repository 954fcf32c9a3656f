package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/domain/repository"
	"sentinel-bfsi/internal/usecase/formatter"
)

// Orchestrator is the caller-facing pipeline: normalize, limit, retrieve,
// route, audit.
type Orchestrator struct {
	normalizer repository.Normalizer
	limiter    repository.SessionLimiter
	retriever  repository.Retriever
	router     *Router
	audit      repository.AuditSink
	thresholds entity.ThresholdConfig

	auditTimeout time.Duration
	inflight     sync.WaitGroup
}

func NewOrchestrator(n repository.Normalizer, l repository.SessionLimiter, rt repository.Retriever, router *Router, audit repository.AuditSink, thresholds entity.ThresholdConfig) *Orchestrator {
	return &Orchestrator{
		normalizer:   n,
		limiter:      l,
		retriever:    rt,
		router:       router,
		audit:        audit,
		thresholds:   thresholds.Clone(),
		auditTimeout: 5 * time.Second,
	}
}

// HandleQuery returns either a response or entity.ErrServiceUnavailable.
// Every other fault is absorbed into the routed response.
func (u *Orchestrator) HandleQuery(ctx context.Context, raw, sessionID string) (formatter.Response, error) {
	log := zap.L().With(zap.String("session_id", sessionID))

	// 1. Mask and normalize
	query, err := u.normalizer.Normalize(ctx, raw, sessionID)
	if err != nil {
		if errors.Is(err, entity.ErrInputRejected) {
			log.Info("query refused by input validation", zap.Error(err))
			return u.refuse(entity.SanitizedQuery{SessionID: sessionID}, err), nil
		}
		log.Error("normalization failed, rejecting request", zap.Error(err))
		return formatter.Response{}, entity.ErrServiceUnavailable
	}

	// 2. Session rate limit
	if u.limiter != nil {
		allowed, err := u.limiter.Allow(ctx, sessionID)
		if err != nil {
			log.Warn("session limiter unavailable, allowing request", zap.Error(err))
		} else if !allowed {
			return u.refuse(query, entity.ErrRateLimitExceeded), nil
		}
	}

	// 3. Candidate retrieval
	candidates, err := u.retriever.Retrieve(ctx, query)
	if err != nil {
		log.Warn("retriever unavailable, routing with no candidates", zap.Error(err))
		candidates = nil
	}

	// 4. Route
	resp, rec := u.router.Resolve(ctx, query, candidates, u.thresholds)

	// 5. Background: audit (best effort)
	u.record(rec)
	return resp, nil
}

func (u *Orchestrator) refuse(query entity.SanitizedQuery, cause error) formatter.Response {
	resp, rec := u.router.Refuse(query, cause)
	u.record(rec)
	return resp
}

func (u *Orchestrator) record(rec entity.AuditRecord) {
	if u.audit == nil {
		return
	}
	u.inflight.Add(1)
	go func() {
		defer u.inflight.Done()
		// The request context may already be gone; audit gets its own deadline.
		bgCtx, cancel := context.WithTimeout(context.Background(), u.auditTimeout)
		defer cancel()
		if err := u.audit.Record(bgCtx, rec); err != nil {
			zap.L().Warn("audit record dropped",
				zap.String("request_id", rec.RequestID),
				zap.String("status", string(rec.Status)),
				zap.Error(err))
		}
	}()
}

// Drain waits for in-flight audit writes. Call it on shutdown.
func (u *Orchestrator) Drain() {
	u.inflight.Wait()
}
