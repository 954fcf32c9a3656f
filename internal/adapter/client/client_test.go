package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// fakeGemini answers generateContent with text and embed calls with one
// vector per request.
func fakeGemini(t *testing.T, text string) (*genai.Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.add(string(body))
		w.Header().Set("Content-Type", "application/json")

		if strings.Contains(r.URL.Path, "mbed") {
			var req struct {
				Requests []json.RawMessage `json:"requests"`
			}
			_ = json.Unmarshal(body, &req)
			embeddings := make([]map[string]any, max(len(req.Requests), 1))
			for i := range embeddings {
				embeddings[i] = map[string]any{"values": []float32{0.1, 0.2, 0.3}}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
			}},
			"usageMetadata": map[string]any{"totalTokenCount": 17},
		})
	}))
	t.Cleanup(srv.Close)

	c, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	return c, rec
}

type recorded struct {
	mu     sync.Mutex
	bodies []string
}

func (r *recorded) add(b string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bodies = append(r.bodies, b)
}

func (r *recorded) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bodies...)
}

func TestGeminiClientDeterminism(t *testing.T) {
	g := NewGeminiClientFromClient(nil, "m")
	assert.True(t, g.Deterministic())

	g.WithSampling(0.7, 40, 0)
	assert.False(t, g.Deterministic())
	assert.Equal(t, int32(256), g.maxTokens)

	g.WithSampling(0, 1, 128)
	assert.True(t, g.Deterministic())
	assert.Equal(t, int32(128), g.maxTokens)
}

func TestGeminiClientGenerate(t *testing.T) {
	c, bodies := fakeGemini(t, "You can pay EMI from the app.")
	g := NewGeminiClientFromClient(c, "gemini-test")

	gen, err := g.Generate(context.Background(), "Provide EMI details\nInput: emi")
	require.NoError(t, err)
	assert.Equal(t, "You can pay EMI from the app.", gen.Text)
	assert.True(t, gen.Deterministic)
	assert.Equal(t, "gemini-test", gen.Model)
	assert.Equal(t, 17, gen.TokenCount)

	sent := bodies.all()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], `"temperature":0`)
	assert.Contains(t, sent[0], `"seed":42`)
}

func TestGeminiExtractor(t *testing.T) {
	c, _ := fakeGemini(t, `{"category": "Account_Locked"}`)
	e := NewGeminiExtractor(c, "gemini-test", []string{"account_locked", "emi_details"})
	assert.Equal(t, "account_locked", e.ExtractCategory(context.Background(), "i am locked out"))

	c, _ = fakeGemini(t, `{"category": "crypto_trading"}`)
	e = NewGeminiExtractor(c, "gemini-test", []string{"account_locked"})
	assert.Empty(t, e.ExtractCategory(context.Background(), "buy bitcoin"))

	c, _ = fakeGemini(t, `not json`)
	e = NewGeminiExtractor(c, "gemini-test", []string{"account_locked"})
	assert.Empty(t, e.ExtractCategory(context.Background(), "x"))
}

func TestEmbedder(t *testing.T) {
	c, _ := fakeGemini(t, "")
	e := NewEmbedderFromClient(c, "text-embedding-test", 3)

	v, err := e.CreateEmbedding(context.Background(), "emi due date")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
}
