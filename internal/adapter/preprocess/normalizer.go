// Package preprocess is the query normalizer: input validation, personal-data
// masking and text normalization.
package preprocess

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/domain/repository"
)

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous\s+)?instructions?`),
	regexp.MustCompile(`(?i)disregard\s+(?:the\s+)?system`),
	regexp.MustCompile(`(?i)you\s+are\s+now\b`),
}

var contractions = []struct{ from, to string }{
	{"won't", "will not"},
	{"can't", "cannot"},
	{"n't", " not"},
	{"'re", " are"},
	{"'ve", " have"},
	{"'ll", " will"},
	{"what's", "what is"},
}

var spaces = regexp.MustCompile(`\s+`)

type Config struct {
	MinLength int
	MaxLength int
}

type Normalizer struct {
	cfg       Config
	extractor repository.CategoryExtractor
}

// NewNormalizer builds a normalizer. extractor may be nil.
func NewNormalizer(cfg Config, extractor repository.CategoryExtractor) *Normalizer {
	if cfg.MinLength <= 0 {
		cfg.MinLength = 1
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 1000
	}
	return &Normalizer{cfg: cfg, extractor: extractor}
}

func (n *Normalizer) Normalize(ctx context.Context, raw, sessionID string) (entity.SanitizedQuery, error) {
	if err := n.validate(raw); err != nil {
		return entity.SanitizedQuery{}, err
	}

	// Compatibility folding turns full-width digits and letters into ASCII
	// so the masks and injection patterns see them.
	folded := norm.NFKC.String(raw)
	if err := checkInjection(folded); err != nil {
		return entity.SanitizedQuery{}, err
	}

	masked, kinds := maskPII(folded)
	if kind, ok := residualPII(masked); ok {
		return entity.SanitizedQuery{}, eris.Wrapf(entity.ErrNormalization, "preprocess: %s survived masking", kind)
	}

	text := normalizeText(masked)
	if text == "" {
		return entity.SanitizedQuery{}, eris.Wrap(entity.ErrInputRejected, "preprocess: empty after normalization")
	}

	tags := make([]string, 0, len(kinds))
	for _, k := range kinds {
		tags = append(tags, "pii:"+k)
	}

	q := entity.SanitizedQuery{Text: text, Tags: tags, SessionID: sessionID}
	if n.extractor != nil {
		q.Category = n.extractor.ExtractCategory(ctx, text)
	}
	return q, nil
}

func (n *Normalizer) validate(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return eris.Wrap(entity.ErrInputRejected, "preprocess: empty input")
	}
	if !utf8.ValidString(raw) {
		return eris.Wrap(entity.ErrInputRejected, "preprocess: invalid utf-8")
	}
	length := utf8.RuneCountInString(trimmed)
	if length < n.cfg.MinLength {
		return eris.Wrap(entity.ErrInputRejected, "preprocess: input too short")
	}
	if length > n.cfg.MaxLength {
		return eris.Wrap(entity.ErrInputRejected, "preprocess: input too long")
	}
	return nil
}

func checkInjection(text string) error {
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			return eris.Wrap(entity.ErrInputRejected, "preprocess: injection attempt")
		}
	}
	return nil
}

func normalizeText(text string) string {
	lower := strings.ToLower(text)
	for _, c := range contractions {
		lower = strings.ReplaceAll(lower, c.from, c.to)
	}
	return strings.TrimSpace(spaces.ReplaceAllString(lower, " "))
}
