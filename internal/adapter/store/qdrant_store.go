package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sentinel-bfsi/internal/domain/entity"
)

// QdrantStore wraps one collection. The server uses two: the knowledge base
// (candidate answers) and the policy corpus (Tier 3 passages).
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
}

func NewQdrantStore(client *qdrant.Client, collectionName string) *QdrantStore {
	return &QdrantStore{
		client:         client,
		collectionName: collectionName,
	}
}

func (s *QdrantStore) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		st, ok := status.FromError(err)
		if !ok || st.Code() != codes.NotFound {
			return eris.Wrapf(err, "qdrant: get collection %s", s.collectionName)
		}
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return eris.Wrapf(err, "qdrant: create collection %s", s.collectionName)
		}
	}

	// Category index keeps per-category maintenance queries cheap.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collectionName,
		FieldName:      "category",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		// Log but don't fail if index already exists
		zap.L().Warn("qdrant: could not create category index (might already exist)",
			zap.String("collection", s.collectionName), zap.Error(err))
	}
	return nil
}

func (s *QdrantStore) query(ctx context.Context, vector []float32, limit uint64, threshold *float32) ([]*qdrant.ScoredPoint, error) {
	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: threshold,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "qdrant: query %s", s.collectionName)
	}
	return res, nil
}

// SearchCandidates returns knowledge-base matches in Qdrant's score order.
// The router re-sorts them with the deterministic tie-break.
func (s *QdrantStore) SearchCandidates(ctx context.Context, vector []float32, limit uint64) ([]entity.CandidateMatch, error) {
	hits, err := s.query(ctx, vector, limit, nil)
	if err != nil {
		return nil, err
	}
	out := make([]entity.CandidateMatch, 0, len(hits))
	for _, hit := range hits {
		p := hit.Payload
		out = append(out, entity.CandidateMatch{
			Score: float64(hit.Score),
			Entry: entity.KnowledgeEntry{
				ID:          p["entry_id"].GetStringValue(),
				Answer:      p["answer"].GetStringValue(),
				Instruction: p["instruction"].GetStringValue(),
				Category:    p["category"].GetStringValue(),
				UpdatedAt:   time.Unix(p["updated_at"].GetIntegerValue(), 0).UTC(),
			},
		})
	}
	return out, nil
}

// SearchPassages returns policy passages at or above minScore.
func (s *QdrantStore) SearchPassages(ctx context.Context, vector []float32, minScore float32, limit uint64) ([]entity.Passage, error) {
	hits, err := s.query(ctx, vector, limit, &minScore)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Passage, 0, len(hits))
	for _, hit := range hits {
		out = append(out, entity.Passage{
			Text:   hit.Payload["text"].GetStringValue(),
			Source: hit.Payload["source"].GetStringValue(),
			Score:  float64(hit.Score),
		})
	}
	return out, nil
}

// UpsertEntries indexes knowledge entries keyed by the text that was embedded
// (usually the sample question). Point ids derive from entry ids, so
// re-indexing overwrites instead of duplicating.
func (s *QdrantStore) UpsertEntries(ctx context.Context, entries []entity.KnowledgeEntry, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return eris.Errorf("qdrant: %d entries but %d vectors", len(entries), len(vectors))
	}
	points := make([]*qdrant.PointStruct, 0, len(entries))
	for i, e := range entries {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(e.ID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"entry_id":    e.ID,
				"answer":      e.Answer,
				"instruction": e.Instruction,
				"category":    e.Category,
				"updated_at":  e.UpdatedAt.Unix(),
			}),
		})
	}
	return s.upsert(ctx, points)
}

// UpsertPassages indexes policy chunks. id must be stable per chunk.
func (s *QdrantStore) UpsertPassages(ctx context.Context, ids []string, passages []entity.Passage, vectors [][]float32) error {
	if len(passages) != len(vectors) || len(ids) != len(passages) {
		return eris.Errorf("qdrant: %d ids, %d passages, %d vectors", len(ids), len(passages), len(vectors))
	}
	points := make([]*qdrant.PointStruct, 0, len(passages))
	for i, p := range passages {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(ids[i])),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":   p.Text,
				"source": p.Source,
			}),
		})
	}
	return s.upsert(ctx, points)
}

func (s *QdrantStore) upsert(ctx context.Context, points []*qdrant.PointStruct) error {
	if len(points) == 0 {
		return nil
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	return eris.Wrapf(err, "qdrant: upsert %d points into %s", len(points), s.collectionName)
}

// PointID maps an arbitrary stable key to a UUID accepted by Qdrant.
func PointID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("sentinel-bfsi:"+key)).String()
}
