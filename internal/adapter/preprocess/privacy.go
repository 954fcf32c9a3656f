package preprocess

import (
	"regexp"
	"strings"
)

type maskStrategy int

const (
	maskFull maskStrategy = iota
	maskLast4
	maskDomainOnly
)

type piiPattern struct {
	kind     string
	re       *regexp.Regexp
	strategy maskStrategy
}

// Specific identifiers run before generic digit runs so a PAN or card number
// is not half-masked as an account number.
var piiPatterns = []piiPattern{
	{kind: "pan_card", re: regexp.MustCompile(`(?i)\b[A-Z]{5}\d{4}[A-Z]\b`), strategy: maskFull},
	{kind: "credit_card", re: regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`), strategy: maskLast4},
	{kind: "aadhaar", re: regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`), strategy: maskFull},
	{kind: "phone", re: regexp.MustCompile(`(?:\+91[\s-]?)?\b[6-9]\d{9}\b`), strategy: maskLast4},
	{kind: "email", re: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), strategy: maskDomainOnly},
	{kind: "account_number", re: regexp.MustCompile(`\b\d{9,18}\b`), strategy: maskLast4},
}

const maskChar = '*'

// maskPII replaces every detected identifier and reports the kinds found, in
// pattern order.
func maskPII(text string) (string, []string) {
	var kinds []string
	for _, p := range piiPatterns {
		found := false
		text = p.re.ReplaceAllStringFunc(text, func(m string) string {
			found = true
			return applyMask(m, p.strategy)
		})
		if found {
			kinds = append(kinds, p.kind)
		}
	}
	return text, kinds
}

// residualPII reports whether any pattern still matches after masking.
func residualPII(text string) (string, bool) {
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			return p.kind, true
		}
	}
	return "", false
}

func applyMask(value string, strategy maskStrategy) string {
	switch strategy {
	case maskLast4:
		digits := 0
		for _, r := range value {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		var b strings.Builder
		seen := 0
		for _, r := range value {
			if r >= '0' && r <= '9' {
				seen++
				if digits > 4 && seen <= digits-4 {
					b.WriteRune(maskChar)
					continue
				}
				if digits <= 4 {
					b.WriteRune(maskChar)
					continue
				}
			}
			b.WriteRune(r)
		}
		return b.String()
	case maskDomainOnly:
		user, domain, ok := strings.Cut(value, "@")
		if !ok || user == "" {
			return strings.Repeat(string(maskChar), len(value))
		}
		return strings.Repeat(string(maskChar), len(user)) + "@" + domain
	default:
		return strings.Repeat(string(maskChar), len([]rune(value)))
	}
}
