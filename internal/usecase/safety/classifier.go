package safety

import "sentinel-bfsi/internal/domain/entity"

const negationPattern = `\b(?:never|not|don't|do\s+not|won't|will\s+not)\b`

// UnsafeRules covers content outside the BFSI numeric and personalization
// concerns: distress, fraud solicitation, abuse and leaked identifiers.
func UnsafeRules() []Rule {
	return []Rule{
		{ID: "distress", Category: entity.ViolationUnsafeContent, CaseInsensitive: true,
			Pattern: `\b(?:suicide|kill\s+(?:myself|yourself)|end\s+(?:my|your)\s+life|self[-\s]harm|hurt\s+yourself|no\s+way\s+out|give\s+up|hopeless)\b`},
		{ID: "credential_solicitation", Category: entity.ViolationUnsafeContent, CaseInsensitive: true, Unless: negationPattern,
			Pattern: `\b(?:send|share|tell|give|provide)\s+(?:us\s+|me\s+)?(?:your\s+)?(?:otp|pin|cvv|password|passcode)\b`},
		{ID: "account_verification", Category: entity.ViolationUnsafeContent, CaseInsensitive: true, Unless: negationPattern,
			Pattern: `\bverify\b.*\baccount\b.*\bdetails\b`},
		{ID: "lottery_scam", Category: entity.ViolationUnsafeContent, CaseInsensitive: true,
			Pattern: `\b(?:winner|won)\b.*\blottery\b`},
		{ID: "urgent_transfer", Category: entity.ViolationUnsafeContent, CaseInsensitive: true,
			Pattern: `\btransfer\b.*\bmoney\b.*\burgent(?:ly)?\b`},
		{ID: "abuse", Category: entity.ViolationUnsafeContent, CaseInsensitive: true,
			Pattern: `\b(?:idiot|stupid|moron|shut\s+up)\b`},
		{ID: "leak_pan", Category: entity.ViolationUnsafeContent,
			Pattern: `\b[A-Z]{5}\d{4}[A-Z]\b`},
		{ID: "leak_aadhaar", Category: entity.ViolationUnsafeContent,
			Pattern: `\b\d{4}\s\d{4}\s\d{4}\b`},
		{ID: "leak_account_number", Category: entity.ViolationUnsafeContent,
			Pattern: `\b\d{9,18}\b`},
		{ID: "leak_email", Category: entity.ViolationUnsafeContent,
			Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`},
		{ID: "leak_phone", Category: entity.ViolationUnsafeContent,
			Pattern: `\b[6-9]\d{9}\b`},
	}
}

// PatternClassifier is the in-process UnsafeClassifier. It is deterministic,
// which keeps Gate.Validate deterministic as a whole.
type PatternClassifier struct {
	rules []compiledRule
}

func NewPatternClassifier() *PatternClassifier {
	rules, err := compileRules(UnsafeRules())
	if err != nil {
		panic(err)
	}
	return &PatternClassifier{rules: rules}
}

func (c *PatternClassifier) ClassifyUnsafe(text string) bool {
	_, ok := c.Match(text)
	return ok
}

// Match returns the id of the first rule that fired.
func (c *PatternClassifier) Match(text string) (string, bool) {
	for _, r := range c.rules {
		if _, ok := r.match(text); ok {
			return r.ID, true
		}
	}
	return "", false
}
