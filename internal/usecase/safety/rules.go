package safety

import (
	"regexp"

	"github.com/rotisserie/eris"

	"sentinel-bfsi/internal/domain/entity"
)

// Rule is one row of the gate's ordered rule table. Unless, when set, is
// checked against the sentence containing the match; a hit there means the
// statement is qualified and the match is ignored.
type Rule struct {
	ID              string
	Category        entity.ViolationCategory
	Pattern         string
	Unless          string
	CaseInsensitive bool
	// Categories restricts the rule to these query categories. Empty applies
	// it to all.
	Categories []string
}

type compiledRule struct {
	Rule
	re     *regexp.Regexp
	unless *regexp.Regexp
	scope  map[string]struct{}
}

// hedgePattern only accepts modal or conditional qualifiers of the outcome
// itself; temporal words like "once" or "when" do not make a decision generic.
const hedgePattern = `\b(?:may|might|could|subject\s+to|typically|generally|usually|normally|depend(?:s|ing)?\s+on|if\s+(?:you|your)|unless|provided\s+(?:that|you|your))\b`

// DefaultRules is the BFSI rule table, in evaluation order. Numeric claims
// come first, personalized decisions second.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "currency_symbol", Category: entity.ViolationNumericClaim, CaseInsensitive: true,
			Pattern: `(?:₹|\$|€|£|\brs\.?|\binr|\busd|\beur|\bgbp)\s*\d[\d,]*(?:\.\d+)?`},
		{ID: "currency_suffix", Category: entity.ViolationNumericClaim, CaseInsensitive: true,
			Pattern: `\b\d[\d,]*(?:\.\d+)?\s*(?:rupees?|dollars?|euros?|pounds?|lakhs?|lacs?|crores?|inr|usd)\b`},
		{ID: "percentage", Category: entity.ViolationNumericClaim, CaseInsensitive: true,
			Pattern: `\d+(?:\.\d+)?\s*(?:%|percent\b|per\s+cent\b)`},
		{ID: "computed_value", Category: entity.ViolationNumericClaim, CaseInsensitive: true,
			Pattern: `\b(?:emi|interest(?:\s+rate)?|rate(?:\s+of\s+interest)?|balance|premium|outstanding(?:\s+amount)?|amount\s+(?:due|payable)|instal?l?ments?|loan\s+amount|credit\s+limit|penalty|late\s+fee|charges?)(?:\s+\w+){0,4}?(?:\s+(?:is|are|will\s+be|would\s+be|comes\s+to|amounts\s+to|works\s+out\s+to|of)|\s*[:=])\s*(?:about|around|approximately|approx\.?|roughly|only|just|nearly)?\s*[₹$€£]?\s*\d`},

		{ID: "eligibility_outcome", Category: entity.ViolationPersonalizedDecision, CaseInsensitive: true, Unless: hedgePattern,
			Pattern: `\byou(?:'re|\s+are|'ve\s+been|\s+have\s+been|\s+were|\s+got)\s+(?:not\s+|now\s+|definitely\s+|already\s+|successfully\s+)?(?:eligible|ineligible|approved|pre-?approved|rejected|denied|declined|disqualified|qualified|sanctioned)\b`},
		{ID: "qualification", Category: entity.ViolationPersonalizedDecision, CaseInsensitive: true, Unless: hedgePattern,
			Pattern: `\byou\s+(?:(?:do\s+not|don't|does\s+not|now|also|still|easily|clearly)\s+)?qualify\b`},
		{ID: "account_outcome", Category: entity.ViolationPersonalizedDecision, CaseInsensitive: true, Unless: hedgePattern,
			Pattern: `\byour(?:\s+\w+){0,2}?\s+(?:loan|application|claim|request|account|card|limit\s+increase)\s+(?:has\s+been|is|was|will\s+be|got)\s+(?:approved|rejected|denied|declined|sanctioned|blocked|frozen|closed|cancelled|successful|unsuccessful)\b`},
		{ID: "future_outcome", Category: entity.ViolationPersonalizedDecision, CaseInsensitive: true, Unless: hedgePattern,
			Pattern: `\byou\s+(?:will|would|can|cannot|can't|won't|will\s+not)\s+(?:get|be|receive)\s+(?:approved|eligible|rejected|denied|sanctioned|the\s+loan|a\s+loan)\b`},
		{ID: "investment_advice", Category: entity.ViolationPersonalizedDecision, CaseInsensitive: true,
			Pattern: `\b(?:you\s+should\s+(?:invest|buy|sell)|i\s+recommend\s+(?:buying|investing|selling)|guaranteed\s+returns?|sure\s+profit|you\s+must\s+buy|best\s+investment)\b`},
		{ID: "legal_advice", Category: entity.ViolationPersonalizedDecision, CaseInsensitive: true,
			Pattern: `\b(?:you\s+should\s+sue|file\s+a\s+(?:case|lawsuit)|legal\s+action\s+against|you\s+have\s+the\s+right\s+to)\b`},
		{ID: "assured_sanction", Category: entity.ViolationPersonalizedDecision, CaseInsensitive: true,
			Categories: []string{"loan_eligibility", "loan_application_status"},
			Pattern:    `\b(?:guaranteed|assured|instant)\s+(?:approval|sanction|disbursal)\b`},
	}
}

func compileRules(defs []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(defs))
	for _, d := range defs {
		re, err := compilePattern(d.Pattern, d.CaseInsensitive)
		if err != nil {
			return nil, eris.Wrapf(err, "safety: compile rule %s", d.ID)
		}
		cr := compiledRule{Rule: d, re: re}
		if d.Unless != "" {
			cr.unless, err = compilePattern(d.Unless, true)
			if err != nil {
				return nil, eris.Wrapf(err, "safety: compile unless for rule %s", d.ID)
			}
		}
		if len(d.Categories) > 0 {
			cr.scope = make(map[string]struct{}, len(d.Categories))
			for _, c := range d.Categories {
				cr.scope[c] = struct{}{}
			}
		}
		out = append(out, cr)
	}
	return out, nil
}

func compilePattern(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	if caseInsensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

func (r compiledRule) appliesTo(category string) bool {
	if r.scope == nil {
		return true
	}
	_, ok := r.scope[category]
	return ok
}

// match returns the first unqualified match of the rule in text.
func (r compiledRule) match(text string) (string, bool) {
	for _, loc := range r.re.FindAllStringIndex(text, -1) {
		if r.unless != nil && r.unless.MatchString(sentenceAround(text, loc[0], loc[1])) {
			continue
		}
		return text[loc[0]:loc[1]], true
	}
	return "", false
}

func sentenceAround(text string, start, end int) string {
	from := start
	for from > 0 && !isSentenceEnd(text[from-1]) {
		from--
	}
	to := end
	for to < len(text) && !isSentenceEnd(text[to]) {
		to++
	}
	return text[from:to]
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?' || b == '\n' || b == ';'
}
