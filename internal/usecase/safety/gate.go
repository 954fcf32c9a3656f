// Package safety holds the deterministic compliance gate every candidate
// response passes before it can be formatted.
package safety

import (
	"unicode/utf8"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/domain/repository"
)

const maxExcerpt = 80

// Gate evaluates the rule table in order; the first match wins. It holds no
// mutable state and is safe for concurrent use.
type Gate struct {
	rules      []compiledRule
	classifier repository.UnsafeClassifier
}

// NewGate builds a gate over DefaultRules.
func NewGate(classifier repository.UnsafeClassifier) *Gate {
	g, err := NewGateWithRules(DefaultRules(), classifier)
	if err != nil {
		// DefaultRules is a compile-time table; a bad pattern is a bug.
		panic(err)
	}
	return g
}

func NewGateWithRules(defs []Rule, classifier repository.UnsafeClassifier) (*Gate, error) {
	rules, err := compileRules(defs)
	if err != nil {
		return nil, err
	}
	return &Gate{rules: rules, classifier: classifier}, nil
}

// Validate never rewrites text. A violating verdict means the whole text is
// discarded by the caller.
func (g *Gate) Validate(text, category string) entity.SafetyVerdict {
	for _, r := range g.rules {
		if !r.appliesTo(category) {
			continue
		}
		if excerpt, ok := r.match(text); ok {
			return entity.SafetyVerdict{
				Violation: true,
				Category:  r.Category,
				RuleID:    r.ID,
				Excerpt:   truncate(excerpt),
			}
		}
	}
	if g.classifier != nil && g.classifier.ClassifyUnsafe(text) {
		return entity.SafetyVerdict{
			Violation: true,
			Category:  entity.ViolationUnsafeContent,
			RuleID:    "unsafe_classifier",
		}
	}
	return entity.Clean()
}

// RuleIDs lists the table in evaluation order.
func (g *Gate) RuleIDs() []string {
	ids := make([]string, 0, len(g.rules))
	for _, r := range g.rules {
		ids = append(ids, r.ID)
	}
	return ids
}

func truncate(s string) string {
	if len(s) <= maxExcerpt {
		return s
	}
	cut := maxExcerpt
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
