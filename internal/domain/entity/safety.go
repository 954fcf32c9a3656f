package entity

type ViolationCategory string

const (
	ViolationNone                 ViolationCategory = "NONE"
	ViolationNumericClaim         ViolationCategory = "NUMERIC_CLAIM"
	ViolationPersonalizedDecision ViolationCategory = "PERSONALIZED_DECISION"
	ViolationUnsafeContent        ViolationCategory = "UNSAFE_CONTENT"
)

// SafetyVerdict is the gate's finding for one text. Excerpt is for the audit
// trail only and must never be shown to the user.
type SafetyVerdict struct {
	Violation bool              `json:"violation"`
	Category  ViolationCategory `json:"category"`
	RuleID    string            `json:"rule_id,omitempty"`
	Excerpt   string            `json:"excerpt,omitempty"`
}

// Clean is the verdict for text that passed every rule.
func Clean() SafetyVerdict {
	return SafetyVerdict{Category: ViolationNone}
}
