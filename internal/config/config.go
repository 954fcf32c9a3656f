package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sentinel-bfsi/internal/domain/entity"
)

const (
	DefaultEscalationText = "I'll connect you with a specialist. For your exact details, please log in to our mobile app or internet banking, or contact customer care."
	DefaultRefusalText    = "I cannot process this request. Please contact customer care."
)

// Config holds the full gateway configuration.
type Config struct {
	Env          string                 `yaml:"env" mapstructure:"env"`
	Server       ServerConfig           `yaml:"server" mapstructure:"server"`
	Log          LogConfig              `yaml:"log" mapstructure:"log"`
	Thresholds   entity.ThresholdConfig `yaml:"thresholds" mapstructure:"thresholds"`
	Router       RouterConfig           `yaml:"router" mapstructure:"router"`
	Qdrant       QdrantConfig           `yaml:"qdrant" mapstructure:"qdrant"`
	Gemini       GeminiConfig           `yaml:"gemini" mapstructure:"gemini"`
	Redis        RedisConfig            `yaml:"redis" mapstructure:"redis"`
	Limiter      LimiterConfig          `yaml:"limiter" mapstructure:"limiter"`
	Audit        AuditConfig            `yaml:"audit" mapstructure:"audit"`
	PolicyCorpus PolicyCorpusConfig     `yaml:"policy_corpus" mapstructure:"policy_corpus"`
	Preprocess   PreprocessConfig       `yaml:"preprocess" mapstructure:"preprocess"`
	Indexer      IndexerConfig          `yaml:"indexer" mapstructure:"indexer"`
}

type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// RouterConfig covers tier budgets and the fixed response texts.
type RouterConfig struct {
	Tier2Timeout         time.Duration     `yaml:"tier2_timeout" mapstructure:"tier2_timeout"`
	Tier3Timeout         time.Duration     `yaml:"tier3_timeout" mapstructure:"tier3_timeout"`
	RelevanceFloor       float64           `yaml:"relevance_floor" mapstructure:"relevance_floor"`
	MaxOutputChars       int               `yaml:"max_output_chars" mapstructure:"max_output_chars"`
	EscalationText       string            `yaml:"escalation_text" mapstructure:"escalation_text"`
	RefusalText          string            `yaml:"refusal_text" mapstructure:"refusal_text"`
	CategoryInstructions map[string]string `yaml:"category_instructions" mapstructure:"category_instructions"`
}

type QdrantConfig struct {
	Host             string `yaml:"host" mapstructure:"host"`
	Port             int    `yaml:"port" mapstructure:"port"`
	KBCollection     string `yaml:"kb_collection" mapstructure:"kb_collection"`
	PolicyCollection string `yaml:"policy_collection" mapstructure:"policy_collection"`
	VectorDim        uint64 `yaml:"vector_dim" mapstructure:"vector_dim"`
	CandidateLimit   uint64 `yaml:"candidate_limit" mapstructure:"candidate_limit"`
}

type GeminiConfig struct {
	Project        string  `yaml:"project" mapstructure:"project"`
	Location       string  `yaml:"location" mapstructure:"location"`
	Model          string  `yaml:"model" mapstructure:"model"`
	EmbedModel     string  `yaml:"embed_model" mapstructure:"embed_model"`
	ExtractorModel string  `yaml:"extractor_model" mapstructure:"extractor_model"`
	Temperature    float32 `yaml:"temperature" mapstructure:"temperature"`
	TopK           float32 `yaml:"top_k" mapstructure:"top_k"`
	MaxTokens      int32   `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// RedisConfig selects the shared session limiter. An empty Addr falls back to
// the in-process limiter.
type RedisConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

type LimiterConfig struct {
	MaxRequests int           `yaml:"max_requests" mapstructure:"max_requests"`
	Window      time.Duration `yaml:"window" mapstructure:"window"`
}

type AuditConfig struct {
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	LogRecords bool   `yaml:"log_records" mapstructure:"log_records"`
}

type PolicyCorpusConfig struct {
	MinScore         float32 `yaml:"min_score" mapstructure:"min_score"`
	TopK             uint64  `yaml:"top_k" mapstructure:"top_k"`
	MaxContextLength int     `yaml:"max_context_length" mapstructure:"max_context_length"`
}

type PreprocessConfig struct {
	MinLength int `yaml:"min_length" mapstructure:"min_length"`
	MaxLength int `yaml:"max_length" mapstructure:"max_length"`
}

// IndexerConfig drives the offline corpus loader.
type IndexerConfig struct {
	KBDir        string `yaml:"kb_dir" mapstructure:"kb_dir"`
	PolicyDir    string `yaml:"policy_dir" mapstructure:"policy_dir"`
	ChunkSize    int    `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// Load reads configuration from file and environment, then validates the
// routing thresholds. A threshold error wraps entity.ErrConfigInvalid and the
// caller must not start.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("env", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "20s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("thresholds.tier1_min", entity.DefaultTier1Min)
	v.SetDefault("thresholds.tier2_min", entity.DefaultTier2Min)
	v.SetDefault("router.tier2_timeout", "8s")
	v.SetDefault("router.tier3_timeout", "5s")
	v.SetDefault("router.relevance_floor", 0.75)
	v.SetDefault("router.max_output_chars", 500)
	v.SetDefault("router.escalation_text", DefaultEscalationText)
	v.SetDefault("router.refusal_text", DefaultRefusalText)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.kb_collection", "bfsi_knowledge")
	v.SetDefault("qdrant.policy_collection", "bfsi_policies")
	v.SetDefault("qdrant.vector_dim", 768)
	v.SetDefault("qdrant.candidate_limit", 5)
	v.SetDefault("gemini.location", "us-central1")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.embed_model", "text-embedding-004")
	v.SetDefault("gemini.extractor_model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.top_k", 1.0)
	v.SetDefault("gemini.max_tokens", 256)
	v.SetDefault("redis.addr", "")
	v.SetDefault("limiter.max_requests", 30)
	v.SetDefault("limiter.window", "1m")
	v.SetDefault("audit.sqlite_path", "sentinel_audit.db")
	v.SetDefault("audit.log_records", true)
	v.SetDefault("policy_corpus.min_score", 0.6)
	v.SetDefault("policy_corpus.top_k", 3)
	v.SetDefault("policy_corpus.max_context_length", 1200)
	v.SetDefault("preprocess.min_length", 1)
	v.SetDefault("preprocess.max_length", 1000)
	v.SetDefault("indexer.kb_dir", "data/kb")
	v.SetDefault("indexer.policy_dir", "data/policies")
	v.SetDefault("indexer.chunk_size", 800)
	v.SetDefault("indexer.chunk_overlap", 100)
	v.SetDefault("indexer.batch_size", 32)
	v.SetDefault("indexer.concurrency", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects a configuration the router cannot run with.
func (c *Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return eris.Wrap(err, "config: thresholds")
	}
	if c.Router.Tier2Timeout <= 0 || c.Router.Tier3Timeout <= 0 {
		return eris.Wrap(entity.ErrConfigInvalid, "config: tier timeouts must be positive")
	}
	// Zero disables the request bound. Otherwise it must leave room for a
	// full Tier 2 to Tier 3 cascade.
	if rt := c.Server.RequestTimeout; rt > 0 && rt <= c.Router.Tier2Timeout+c.Router.Tier3Timeout {
		return eris.Wrapf(entity.ErrConfigInvalid, "config: server.request_timeout %s must exceed tier2_timeout + tier3_timeout", rt)
	}
	if c.Router.RelevanceFloor < 0 || c.Router.RelevanceFloor > 1 {
		return eris.Wrapf(entity.ErrConfigInvalid, "config: relevance_floor %.3f outside [0,1]", c.Router.RelevanceFloor)
	}
	if c.Preprocess.MaxLength < c.Preprocess.MinLength {
		return eris.Wrap(entity.ErrConfigInvalid, "config: preprocess.max_length below min_length")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
