package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiExtractor tags a masked query with one of a fixed set of categories.
// It only ever sees masked text.
type GeminiExtractor struct {
	client     *genai.Client
	model      string
	categories map[string]struct{}
	listing    string
}

func NewGeminiExtractor(client *genai.Client, model string, categories []string) *GeminiExtractor {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)
	return &GeminiExtractor{client: client, model: model, categories: set, listing: strings.Join(sorted, ", ")}
}

// ExtractCategory returns "" whenever the model fails or answers outside the
// known set.
func (e *GeminiExtractor) ExtractCategory(ctx context.Context, maskedText string) string {
	// We use a System Prompt to force JSON output
	instruction := fmt.Sprintf(`Classify the customer banking query into exactly one category.
Allowed categories: %s.
Respond ONLY with a JSON object {"category": "<category>"}. If none fits, use "unknown". Do not explain.`, e.listing)

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(instruction+"\nQuery: "+maskedText), cfg)
	if err != nil {
		zap.L().Debug("category extraction failed", zap.Error(err))
		return ""
	}

	var out struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(resp.Text()), &out); err != nil {
		return ""
	}
	category := strings.TrimSpace(strings.ToLower(out.Category))
	if _, ok := e.categories[category]; !ok {
		return ""
	}
	return category
}
