package client

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"sentinel-bfsi/internal/domain/entity"
)

// GeminiClient is the Tier 2 generator. Decoding defaults to greedy
// (temperature 0, top-k 1, fixed seed); Generate reports whether the
// configuration actually in use is deterministic.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	topK        float32
	seed        int32
	maxTokens   int32
}

func NewGeminiClientFromClient(c *genai.Client, model string) *GeminiClient {
	return &GeminiClient{
		client:      c,
		model:       model,
		temperature: 0,
		topK:        1,
		seed:        42,
		maxTokens:   256,
	}
}

// WithSampling overrides decoding. Anything other than temperature 0 with
// top-k 1 is reported as non-deterministic.
func (g *GeminiClient) WithSampling(temperature, topK float32, maxTokens int32) *GeminiClient {
	g.temperature = temperature
	g.topK = topK
	if maxTokens > 0 {
		g.maxTokens = maxTokens
	}
	return g
}

func (g *GeminiClient) Deterministic() bool {
	return g.temperature == 0 && g.topK == 1
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (*entity.Generation, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		TopK:            genai.Ptr(g.topK),
		Seed:            genai.Ptr(g.seed),
		CandidateCount:  1,
		MaxOutputTokens: g.maxTokens,
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	gen := &entity.Generation{
		Text:          result.Text(),
		Deterministic: g.Deterministic(),
		Model:         g.model,
	}
	if result.UsageMetadata != nil {
		gen.TokenCount = int(result.UsageMetadata.TotalTokenCount)
	}
	return gen, nil
}
