package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentinel-bfsi/internal/domain/entity"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.InDelta(t, 0.85, cfg.Thresholds.Tier1Min, 0.0001)
	assert.InDelta(t, 0.55, cfg.Thresholds.Tier2Min, 0.0001)
	assert.Empty(t, cfg.Thresholds.CategoryOverrides)
	assert.Equal(t, 8*time.Second, cfg.Router.Tier2Timeout)
	assert.Equal(t, 5*time.Second, cfg.Router.Tier3Timeout)
	assert.Equal(t, 500, cfg.Router.MaxOutputChars)
	assert.Equal(t, DefaultEscalationText, cfg.Router.EscalationText)
	assert.Equal(t, DefaultRefusalText, cfg.Router.RefusalText)
	assert.Equal(t, "bfsi_knowledge", cfg.Qdrant.KBCollection)
	assert.Equal(t, uint64(768), cfg.Qdrant.VectorDim)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.InDelta(t, 0.0, cfg.Gemini.Temperature, 0.0001)
	assert.Equal(t, "", cfg.Redis.Addr)
	assert.Equal(t, 30, cfg.Limiter.MaxRequests)
	assert.Equal(t, time.Minute, cfg.Limiter.Window)
	assert.Equal(t, uint64(3), cfg.PolicyCorpus.TopK)
	assert.Equal(t, 1000, cfg.Preprocess.MaxLength)
	assert.Equal(t, 4, cfg.Indexer.Concurrency)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
thresholds:
  tier1_min: 0.9
  tier2_min: 0.6
  category_overrides:
    loan_eligibility:
      tier1_min: 0.95
      tier2_min: 0.7
router:
  tier2_timeout: 2s
redis:
  addr: redis:6379
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 0.9, cfg.Thresholds.Tier1Min, 0.0001)
	assert.Equal(t, 2*time.Second, cfg.Router.Tier2Timeout)
	assert.Equal(t, 5*time.Second, cfg.Router.Tier3Timeout)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)

	pair := cfg.Thresholds.For("loan_eligibility")
	assert.InDelta(t, 0.95, pair.Tier1Min, 0.0001)
	assert.InDelta(t, 0.7, pair.Tier2Min, 0.0001)
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
thresholds:
  tier1_min: 0.5
  tier2_min: 0.6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrConfigInvalid)
}

func TestLoadRejectsBadOverride(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
thresholds:
  category_overrides:
    credit_card:
      tier1_min: 1.2
      tier2_min: 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	_, err := Load()
	assert.ErrorIs(t, err, entity.ErrConfigInvalid)
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SENTINEL_SERVER_PORT", "9090")
	t.Setenv("SENTINEL_LIMITER_MAX_REQUESTS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Limiter.MaxRequests)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("thresholds: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateTimeouts(t *testing.T) {
	cfg := Config{
		Thresholds: entity.DefaultThresholds(),
		Router:     RouterConfig{Tier2Timeout: 0, Tier3Timeout: time.Second},
		Preprocess: PreprocessConfig{MinLength: 1, MaxLength: 10},
	}
	assert.ErrorIs(t, cfg.Validate(), entity.ErrConfigInvalid)

	cfg.Router.Tier2Timeout = time.Second
	assert.NoError(t, cfg.Validate())

	cfg.Server.RequestTimeout = 2 * time.Second
	assert.ErrorIs(t, cfg.Validate(), entity.ErrConfigInvalid, "request bound equal to the tier budgets")

	cfg.Server.RequestTimeout = 3 * time.Second
	assert.NoError(t, cfg.Validate())

	cfg.Preprocess.MaxLength = 0
	assert.ErrorIs(t, cfg.Validate(), entity.ErrConfigInvalid)
}

func TestInitLogger(t *testing.T) {
	orig := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}
