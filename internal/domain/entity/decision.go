package entity

type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierGenerated
	TierRetrieved
	TierEscalation
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "tier1"
	case TierGenerated:
		return "tier2"
	case TierRetrieved:
		return "tier3"
	case TierEscalation:
		return "escalation"
	default:
		return "none"
	}
}

type ReasonCode string

const (
	ReasonExactMatch ReasonCode = "EXACT_MATCH"
	ReasonGenerated  ReasonCode = "GENERATED"
	ReasonRetrieved  ReasonCode = "RETRIEVED"
	ReasonEscalated  ReasonCode = "ESCALATED"
	ReasonRefused    ReasonCode = "REFUSED"
)

// Generated reports whether a reason code denotes model-produced text.
func (r ReasonCode) Generated() bool {
	return r == ReasonGenerated || r == ReasonRetrieved
}

type AttemptOutcome string

const (
	OutcomeSelected AttemptOutcome = "selected"
	OutcomeSkipped  AttemptOutcome = "skipped"  // score band did not reach the tier
	OutcomeFailed   AttemptOutcome = "failed"   // executor error, timeout or config fault
	OutcomeRejected AttemptOutcome = "rejected" // safety gate violation
)

// TierAttempt is one link of the audit chain.
type TierAttempt struct {
	Tier      Tier              `json:"tier"`
	Outcome   AttemptOutcome    `json:"outcome"`
	Fault     string            `json:"fault,omitempty"`
	Violation ViolationCategory `json:"violation,omitempty"`
}

// Decision is the router's verdict for one request.
type Decision struct {
	Tier       Tier          `json:"tier"`
	Reason     ReasonCode    `json:"reason"`
	Confidence float64       `json:"confidence"`
	Category   string        `json:"category"`
	Attempts   []TierAttempt `json:"attempts"`
	Verdict    SafetyVerdict `json:"verdict"`
}
