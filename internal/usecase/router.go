package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/usecase/formatter"
)

const defaultCategory = "general"

// Validator is the safety gate as seen by the router.
type Validator interface {
	Validate(text, category string) entity.SafetyVerdict
}

// RouterPolicy holds the fixed, non-threshold parts of routing.
type RouterPolicy struct {
	Tier2Timeout   time.Duration
	Tier3Timeout   time.Duration
	EscalationText string
	RefusalText    string
}

type routeState int

const (
	evaluatingTier1 routeState = iota
	evaluatingTier2
	evaluatingTier3
	escalated
	done
)

// Router owns tier selection and the cascade. It keeps no per-request state
// and is safe for concurrent use.
type Router struct {
	gate       Validator
	exact      TierExecutor
	generation TierExecutor
	retrieval  TierExecutor
	policy     RouterPolicy

	newID func() string
	now   func() time.Time
}

// NewRouter checks that the fixed escalation and refusal texts pass the gate;
// the escalation path must never be able to fail at request time.
func NewRouter(gate Validator, generation, retrieval TierExecutor, policy RouterPolicy) (*Router, error) {
	for name, text := range map[string]string{"escalation": policy.EscalationText, "refusal": policy.RefusalText} {
		if text == "" {
			return nil, eris.Wrapf(entity.ErrConfigInvalid, "router: %s text is empty", name)
		}
		if v := gate.Validate(text, defaultCategory); v.Violation {
			return nil, eris.Wrapf(entity.ErrConfigInvalid, "router: %s text fails safety rule %s", name, v.RuleID)
		}
	}
	return &Router{
		gate:       gate,
		exact:      ExactLookup{},
		generation: generation,
		retrieval:  retrieval,
		policy:     policy,
		newID:      uuid.NewString,
		now:        time.Now,
	}, nil
}

// WithClock sets the audit clock for testing.
func (r *Router) WithClock(now func() time.Time) *Router {
	r.now = now
	return r
}

// WithIDs sets the request id source for testing.
func (r *Router) WithIDs(f func() string) *Router {
	r.newID = f
	return r
}

// resolution accumulates one request's path through the state machine.
type resolution struct {
	decision  entity.Decision
	text      string
	blocking  entity.SafetyVerdict
	cancelled bool
}

func (res *resolution) record(tier entity.Tier, outcome entity.AttemptOutcome, fault string, violation entity.ViolationCategory) {
	res.decision.Attempts = append(res.decision.Attempts, entity.TierAttempt{
		Tier:      tier,
		Outcome:   outcome,
		Fault:     fault,
		Violation: violation,
	})
}

// Resolve routes one query. Every path ends in a formatted response; internal
// faults surface only as the escalation response and the audit chain.
func (r *Router) Resolve(ctx context.Context, query entity.SanitizedQuery, candidates []entity.CandidateMatch, cfg entity.ThresholdConfig) (formatter.Response, entity.AuditRecord) {
	ordered := entity.SortCandidates(candidates)
	best := entity.TopScore(ordered)
	category := categoryFor(query, ordered)
	band := cfg.For(category)
	in := TierInput{Query: query, Candidates: ordered, Category: category}

	res := &resolution{
		decision: entity.Decision{Confidence: best, Category: category},
		blocking: entity.Clean(),
	}

	state := evaluatingTier1
	for state != done {
		switch state {
		case evaluatingTier1:
			if len(ordered) == 0 || best < band.Tier1Min {
				res.record(entity.TierExact, entity.OutcomeSkipped, "", "")
				if best >= band.Tier2Min {
					state = evaluatingTier2
				} else {
					res.record(entity.TierGenerated, entity.OutcomeSkipped, "", "")
					state = evaluatingTier3
				}
				continue
			}
			state = r.step(ctx, res, r.exact, in, 0, entity.ReasonExactMatch, evaluatingTier2)
		case evaluatingTier2:
			state = r.step(ctx, res, r.generation, in, r.policy.Tier2Timeout, entity.ReasonGenerated, evaluatingTier3)
		case evaluatingTier3:
			state = r.step(ctx, res, r.retrieval, in, r.policy.Tier3Timeout, entity.ReasonRetrieved, escalated)
		case escalated:
			res.text = r.policy.EscalationText
			res.decision.Tier = entity.TierEscalation
			res.decision.Reason = entity.ReasonEscalated
			res.decision.Verdict = entity.Clean()
			res.record(entity.TierEscalation, entity.OutcomeSelected, "", "")
			state = done
		}
	}

	resp := formatter.Format(res.text, res.decision)

	status := entity.AuditCompleted
	if res.cancelled {
		status = entity.AuditCancelled
	}
	rec := entity.AuditRecord{
		RequestID: r.newID(),
		SessionID: query.SessionID,
		Timestamp: r.now().UTC(),
		Status:    status,
		Decision:  res.decision,
		Verdict:   res.blocking,
		Response:  resp.Meta(),
	}

	zap.L().Info("query routed",
		zap.String("request_id", rec.RequestID),
		zap.String("reason", string(res.decision.Reason)),
		zap.String("tier", res.decision.Tier.String()),
		zap.String("category", category),
		zap.Float64("confidence", best),
		zap.Int("attempts", len(res.decision.Attempts)),
		zap.Bool("cancelled", res.cancelled),
	)
	return resp, rec
}

// step attempts one tier once. On success it finalizes the decision and
// returns done; on any failure it records why and returns next.
func (r *Router) step(ctx context.Context, res *resolution, exec TierExecutor, in TierInput, timeout time.Duration, reason entity.ReasonCode, next routeState) routeState {
	if exec == nil {
		res.record(tierOf(reason), entity.OutcomeFailed, "not_configured", "")
		return next
	}
	if ctx.Err() != nil {
		res.cancelled = true
		res.record(exec.Tier(), entity.OutcomeFailed, "cancelled", "")
		return escalated
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	text, err := exec.Attempt(callCtx, in)
	if err != nil {
		fault := faultCode(err)
		if ctx.Err() != nil {
			res.cancelled = true
			fault = "cancelled"
		}
		res.record(exec.Tier(), entity.OutcomeFailed, fault, "")
		zap.L().Warn("tier attempt failed, cascading",
			zap.String("tier", exec.Tier().String()),
			zap.String("fault", fault),
			zap.Error(err),
		)
		if res.cancelled {
			return escalated
		}
		return next
	}

	verdict := r.gate.Validate(text, in.Category)
	if verdict.Violation {
		res.blocking = verdict
		res.record(exec.Tier(), entity.OutcomeRejected, "", verdict.Category)
		zap.L().Warn("safety gate rejected tier output, cascading",
			zap.String("tier", exec.Tier().String()),
			zap.String("violation", string(verdict.Category)),
			zap.String("rule", verdict.RuleID),
			zap.Error(eris.Wrapf(entity.ErrSafetyViolation, "%s", verdict.Category)),
		)
		return next
	}

	res.text = text
	res.decision.Tier = exec.Tier()
	res.decision.Reason = reason
	res.decision.Verdict = verdict
	res.record(exec.Tier(), entity.OutcomeSelected, "", "")
	return done
}

// Refuse builds the fixed refusal for input the pipeline will not route
// (rejected by input validation or over the session limit).
func (r *Router) Refuse(query entity.SanitizedQuery, cause error) (formatter.Response, entity.AuditRecord) {
	decision := entity.Decision{
		Tier:     entity.TierNone,
		Reason:   entity.ReasonRefused,
		Category: defaultCategory,
		Verdict:  entity.Clean(),
		Attempts: []entity.TierAttempt{{Tier: entity.TierNone, Outcome: entity.OutcomeSelected, Fault: faultCode(cause)}},
	}
	resp := formatter.Format(r.policy.RefusalText, decision)
	rec := entity.AuditRecord{
		RequestID: r.newID(),
		SessionID: query.SessionID,
		Timestamp: r.now().UTC(),
		Status:    entity.AuditRejected,
		Decision:  decision,
		Verdict:   entity.Clean(),
		Response:  resp.Meta(),
	}
	return resp, rec
}

func categoryFor(query entity.SanitizedQuery, ordered []entity.CandidateMatch) string {
	if len(ordered) > 0 && ordered[0].Entry.Category != "" {
		return ordered[0].Entry.Category
	}
	if query.Category != "" {
		return query.Category
	}
	return defaultCategory
}

func tierOf(reason entity.ReasonCode) entity.Tier {
	switch reason {
	case entity.ReasonExactMatch:
		return entity.TierExact
	case entity.ReasonGenerated:
		return entity.TierGenerated
	case entity.ReasonRetrieved:
		return entity.TierRetrieved
	default:
		return entity.TierNone
	}
}

// faultCode maps an error to a stable audit code. Messages are not used so
// that identical routing produces identical decisions.
func faultCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, entity.ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, entity.ErrNonDeterministic):
		return "non_deterministic"
	case errors.Is(err, entity.ErrRetrievalExhausted):
		return "retrieval_exhausted"
	case errors.Is(err, entity.ErrGenerationFault):
		return "generation_fault"
	case errors.Is(err, entity.ErrInputRejected):
		return "input_rejected"
	case errors.Is(err, entity.ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "executor_error"
	}
}
