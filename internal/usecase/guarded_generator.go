package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/domain/repository"
)

const (
	minOutputChars = 10
	// Generic phrases only fail short outputs; a longer answer that happens
	// to contain one still carries content.
	genericOutputChars = 50
)

var genericPhrases = []string{
	"i don't know",
	"i do not know",
	"i'm not sure",
	"i am not sure",
	"i cannot help",
	"i can't help",
	"as an ai",
	"no information available",
	"unable to answer",
}

// GuardedGenerator wraps the Tier 2 model call. It never retries: a second
// sample of the same prompt is not the answer the first call was audited for.
// Timeouts come from the caller's context.
type GuardedGenerator struct {
	primary        repository.Generator
	maxOutputChars int
}

func NewGuardedGenerator(primary repository.Generator, maxOutputChars int) *GuardedGenerator {
	if maxOutputChars <= 0 {
		maxOutputChars = 500
	}
	return &GuardedGenerator{primary: primary, maxOutputChars: maxOutputChars}
}

// Generate classifies every failure into ErrGenerationTimeout,
// ErrNonDeterministic or ErrGenerationFault.
func (g *GuardedGenerator) Generate(ctx context.Context, prompt string) (*entity.Generation, error) {
	gen, err := g.primary.Generate(ctx, prompt)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, eris.Wrap(entity.ErrGenerationTimeout, err.Error())
		}
		return nil, eris.Wrap(entity.ErrGenerationFault, err.Error())
	}
	if gen == nil {
		return nil, eris.Wrap(entity.ErrGenerationFault, "generator returned no result")
	}
	if !gen.Deterministic {
		zap.L().Warn("generator decoding is not deterministic, discarding output",
			zap.String("model", gen.Model))
		return nil, entity.ErrNonDeterministic
	}

	text := strings.TrimSpace(gen.Text)
	if text == "" {
		return nil, eris.Wrap(entity.ErrGenerationFault, "empty output")
	}
	n := utf8.RuneCountInString(text)
	if n < minOutputChars {
		return nil, eris.Wrapf(entity.ErrGenerationFault, "output too short (%d < %d)", n, minOutputChars)
	}
	if n > g.maxOutputChars {
		return nil, eris.Wrapf(entity.ErrGenerationFault, "output too long (%d > %d)", n, g.maxOutputChars)
	}
	if n < genericOutputChars && isGeneric(text) {
		return nil, eris.Wrap(entity.ErrGenerationFault, "generic output")
	}

	out := *gen
	out.Text = text
	return &out, nil
}

func isGeneric(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range genericPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline") || strings.Contains(msg, "timeout")
}
