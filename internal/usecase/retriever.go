package usecase

import (
	"context"

	"github.com/rotisserie/eris"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/domain/repository"
)

// KnowledgeRetriever embeds the masked query and searches the knowledge base.
type KnowledgeRetriever struct {
	embedder repository.Embedder
	store    repository.CandidateStore
	limit    uint64
}

func NewKnowledgeRetriever(emb repository.Embedder, store repository.CandidateStore, limit uint64) *KnowledgeRetriever {
	if limit == 0 {
		limit = 5
	}
	return &KnowledgeRetriever{embedder: emb, store: store, limit: limit}
}

func (k *KnowledgeRetriever) Retrieve(ctx context.Context, query entity.SanitizedQuery) ([]entity.CandidateMatch, error) {
	vector, err := k.embedder.CreateEmbedding(ctx, query.Text)
	if err != nil {
		return nil, eris.Wrap(entity.ErrRetrieverUnavailable, "embedding generation failed: "+err.Error())
	}
	matches, err := k.store.SearchCandidates(ctx, vector, k.limit)
	if err != nil {
		return nil, eris.Wrap(entity.ErrRetrieverUnavailable, "knowledge search failed: "+err.Error())
	}
	return entity.SortCandidates(matches), nil
}
