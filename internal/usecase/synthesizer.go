package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/domain/repository"
)

const (
	policyPreamble = "Based on our policy documents:"
	policyClosing  = "For more details, please visit our website or contact customer care."
)

type SynthesizerConfig struct {
	MinScore         float32
	TopK             uint64
	MaxContextLength int
}

// PolicySynthesizer answers from the structured policy corpus. It quotes
// passages; it does not generate.
type PolicySynthesizer struct {
	embedder repository.Embedder
	passages repository.PassageStore
	cfg      SynthesizerConfig
}

func NewPolicySynthesizer(emb repository.Embedder, store repository.PassageStore, cfg SynthesizerConfig) *PolicySynthesizer {
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	if cfg.MaxContextLength <= 0 {
		cfg.MaxContextLength = 1200
	}
	return &PolicySynthesizer{embedder: emb, passages: store, cfg: cfg}
}

func (s *PolicySynthesizer) SynthesizeOrEscalate(ctx context.Context, query entity.SanitizedQuery) (string, bool, error) {
	vector, err := s.embedder.CreateEmbedding(ctx, query.Text)
	if err != nil {
		return "", false, eris.Wrap(err, "synthesizer: embed query")
	}

	found, err := s.passages.SearchPassages(ctx, vector, s.cfg.MinScore, s.cfg.TopK)
	if err != nil {
		return "", false, eris.Wrap(err, "synthesizer: search passages")
	}

	var relevant []entity.Passage
	for _, p := range found {
		if p.Score >= float64(s.cfg.MinScore) && strings.TrimSpace(p.Text) != "" {
			relevant = append(relevant, p)
		}
	}
	if len(relevant) == 0 {
		return "", false, nil
	}

	body := AssembleContext(relevant, s.cfg.MaxContextLength)
	if body == "" {
		return "", false, nil
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", policyPreamble, body, policyClosing), true, nil
}

// AssembleContext joins passages as "[Source: name]" blocks in the given
// order until maxLength would be exceeded.
func AssembleContext(passages []entity.Passage, maxLength int) string {
	var parts []string
	used := 0
	for _, p := range passages {
		source := p.Source
		if source == "" {
			source = "Unknown"
		}
		block := fmt.Sprintf("[Source: %s]\n%s\n", source, strings.TrimSpace(p.Text))
		if used+len(block) > maxLength {
			break
		}
		parts = append(parts, block)
		used += len(block)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
