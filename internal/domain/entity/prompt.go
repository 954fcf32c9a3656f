package entity

// QueryRequest is the inbound body of the delivery layer.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// Generation is what a Tier 2 generator returns. Deterministic must reflect
// the decoding configuration actually used for this call.
type Generation struct {
	Text          string `json:"text"`
	Deterministic bool   `json:"deterministic"`
	Model         string `json:"model"`
	TokenCount    int    `json:"token_count"`
}

// Passage is a policy-corpus chunk returned by Tier 3 retrieval.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}
