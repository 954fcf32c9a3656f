package entity

import (
	"math"
	"sort"
	"time"
)

// SanitizedQuery is the masked, normalized form of a user query. It is built
// once per request by the normalizer and read-only afterwards.
type SanitizedQuery struct {
	Text      string   `json:"text"`
	Tags      []string `json:"tags,omitempty"` // detected entity tags, e.g. "pii:pan_card"
	SessionID string   `json:"session_id"`
	Category  string   `json:"category,omitempty"` // optional hint from the category extractor
}

// KnowledgeEntry is one pre-approved answer in the knowledge base.
type KnowledgeEntry struct {
	ID          string    `json:"id"`
	Answer      string    `json:"answer"`
	Instruction string    `json:"instruction"`
	Category    string    `json:"category"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CandidateMatch struct {
	Score float64        `json:"score"`
	Entry KnowledgeEntry `json:"entry"`
}

// SortCandidates returns a copy ordered by score (desc), then entry recency
// (newest first), then entry id (asc). Candidates whose score is not a finite
// value in [0,1] are dropped.
func SortCandidates(in []CandidateMatch) []CandidateMatch {
	out := make([]CandidateMatch, 0, len(in))
	for _, c := range in {
		if score, ok := normalizeScore(c.Score); ok {
			c.Score = score
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Entry.UpdatedAt.Equal(b.Entry.UpdatedAt) {
			return a.Entry.UpdatedAt.After(b.Entry.UpdatedAt)
		}
		return a.Entry.ID < b.Entry.ID
	})
	return out
}

// TopScore is the best score of an ordered candidate list, 0 when empty.
func TopScore(ordered []CandidateMatch) float64 {
	if len(ordered) == 0 {
		return 0
	}
	return ordered[0].Score
}

// Float32 cosine scores of identical vectors can land just above 1.
const scoreTolerance = 1e-6

func normalizeScore(s float64) (float64, bool) {
	switch {
	case math.IsNaN(s) || s < 0 || s > 1+scoreTolerance:
		return 0, false
	case s > 1:
		return 1, true
	}
	return s, true
}
