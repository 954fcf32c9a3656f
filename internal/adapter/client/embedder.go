package client

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

type Embedder struct {
	client *genai.Client
	model  string // e.g., "text-embedding-004"
	dim    int32
}

func NewEmbedderFromClient(c *genai.Client, model string, dim int32) *Embedder {
	return &Embedder{
		client: c,
		model:  model,
		dim:    dim,
	}
}

// CreateEmbedding embeds a query for similarity search.
func (e *Embedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, "RETRIEVAL_QUERY", []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CreateDocumentEmbeddings embeds corpus texts in one call; used by the indexer.
func (e *Embedder) CreateDocumentEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, "RETRIEVAL_DOCUMENT", texts)
}

func (e *Embedder) embed(ctx context.Context, task string, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}
	cfg := &genai.EmbedContentConfig{TaskType: task}
	if e.dim > 0 {
		cfg.OutputDimensionality = genai.Ptr(e.dim)
	}
	res, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "embedder: embed content")
	}
	if len(res.Embeddings) != len(texts) {
		return nil, eris.Errorf("embedder: got %d embeddings for %d inputs", len(res.Embeddings), len(texts))
	}
	out := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
