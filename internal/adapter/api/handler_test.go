package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/usecase/formatter"
)

type stubPipeline struct {
	resp formatter.Response
	err  error

	gotRaw, gotSession string
	hadDeadline        bool
}

func (s *stubPipeline) HandleQuery(ctx context.Context, raw, sessionID string) (formatter.Response, error) {
	s.gotRaw, s.gotSession = raw, sessionID
	_, s.hadDeadline = ctx.Deadline()
	return s.resp, s.err
}

func newApp(p *stubPipeline, timeout time.Duration) *fiber.App {
	app := fiber.New()
	SetupRouter(app, NewPromptHandler(p, timeout), HealthInfo{Version: "test", Env: "ci"})
	return app
}

func post(t *testing.T, app *fiber.App, body string) (int, map[string]any, map[string]string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	headers := map[string]string{
		"tier":   resp.Header.Get("X-Sentinel-Tier"),
		"reason": resp.Header.Get("X-Sentinel-Reason"),
	}
	return resp.StatusCode, out, headers
}

func TestHandleQueryOK(t *testing.T) {
	p := &stubPipeline{resp: formatter.Format("Policy text.", entity.Decision{
		Tier: entity.TierRetrieved, Reason: entity.ReasonRetrieved, Category: "emi_details", Verdict: entity.Clean(),
	})}
	app := newApp(p, time.Second)

	status, body, headers := post(t, app, `{"query": "how to pay emi", "session_id": "abc"}`)
	assert.Equal(t, 200, status)
	assert.Equal(t, "Policy text.", body["response"])
	assert.Equal(t, "RETRIEVED", body["reason"])
	assert.Equal(t, true, body["is_generated"])
	assert.Equal(t, "tier3", headers["tier"])
	assert.Equal(t, "RETRIEVED", headers["reason"])

	assert.Equal(t, "how to pay emi", p.gotRaw)
	assert.Equal(t, "abc", p.gotSession)
	assert.True(t, p.hadDeadline)
}

func TestHandleQueryDefaultSession(t *testing.T) {
	p := &stubPipeline{resp: formatter.Format("x", entity.Decision{Reason: entity.ReasonEscalated, Tier: entity.TierEscalation, Verdict: entity.Clean()})}
	app := newApp(p, 0)

	status, _, _ := post(t, app, `{"query": "hi"}`)
	assert.Equal(t, 200, status)
	assert.True(t, strings.HasPrefix(p.gotSession, "anon:"), p.gotSession)
	assert.Greater(t, len(p.gotSession), len("anon:"))
	assert.False(t, p.hadDeadline)
}

func TestHandleQueryBadBody(t *testing.T) {
	app := newApp(&stubPipeline{}, 0)
	status, body, _ := post(t, app, `{not json`)
	assert.Equal(t, 400, status)
	assert.Equal(t, "invalid request body", body["error"])
}

func TestHandleQueryServiceUnavailable(t *testing.T) {
	app := newApp(&stubPipeline{err: entity.ErrServiceUnavailable}, 0)
	status, body, _ := post(t, app, `{"query": "x"}`)
	assert.Equal(t, 503, status)
	assert.Equal(t, "service unavailable", body["error"])
}

func TestHandleQueryInternalError(t *testing.T) {
	app := newApp(&stubPipeline{err: errors.New("boom")}, 0)
	status, _, _ := post(t, app, `{"query": "x"}`)
	assert.Equal(t, 500, status)
}

func TestHealth(t *testing.T) {
	app := newApp(&stubPipeline{}, 0)
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}
