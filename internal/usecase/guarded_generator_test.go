package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-bfsi/internal/domain/entity"
)

func TestGuardedGeneratorSuccessTrims(t *testing.T) {
	g := NewGuardedGenerator(&fakeGenerator{text: "  Visit the app.\n", deterministic: true}, 0)

	gen, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Visit the app.", gen.Text)
	assert.True(t, gen.Deterministic)
}

func TestGuardedGeneratorClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
		want error
	}{
		{"fault", &fakeGenerator{err: errors.New("500 internal")}, entity.ErrGenerationFault},
		{"timeout message", &fakeGenerator{err: errors.New("rpc error: DeadlineExceeded: timeout")}, entity.ErrGenerationTimeout},
		{"non deterministic", &fakeGenerator{text: "ok", deterministic: false}, entity.ErrNonDeterministic},
		{"empty", &fakeGenerator{text: "   ", deterministic: true}, entity.ErrGenerationFault},
		{"too long", &fakeGenerator{text: strings.Repeat("a", 501), deterministic: true}, entity.ErrGenerationFault},
		{"too short", &fakeGenerator{text: " Yes. ", deterministic: true}, entity.ErrGenerationFault},
		{"generic", &fakeGenerator{text: "I'm not sure about that.", deterministic: true}, entity.ErrGenerationFault},
		{"generic upper case", &fakeGenerator{text: "As an AI, I cannot say.", deterministic: true}, entity.ErrGenerationFault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGuardedGenerator(tt.gen, 500).Generate(context.Background(), "p")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGuardedGeneratorDeadline(t *testing.T) {
	gen := &fakeGenerator{block: true}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewGuardedGenerator(gen, 0).Generate(ctx, "p")
	assert.ErrorIs(t, err, entity.ErrGenerationTimeout)
}

func TestGuardedGeneratorNeverRetries(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("unavailable")}
	_, err := NewGuardedGenerator(gen, 0).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestGuardedGeneratorCountsRunes(t *testing.T) {
	// 500 multi-byte runes are within a 500 character budget.
	gen := &fakeGenerator{text: strings.Repeat("é", 500), deterministic: true}
	_, err := NewGuardedGenerator(gen, 500).Generate(context.Background(), "p")
	assert.NoError(t, err)
}

func TestGuardedGeneratorLongAnswerWithGenericPhrasePasses(t *testing.T) {
	text := "I'm not sure which branch you mean, but every branch accepts address change requests with proof."
	gen := &fakeGenerator{text: text, deterministic: true}
	out, err := NewGuardedGenerator(gen, 500).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, text, out.Text)
}
