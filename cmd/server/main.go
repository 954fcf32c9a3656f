package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"sentinel-bfsi/internal/adapter/api"
	"sentinel-bfsi/internal/adapter/client"
	"sentinel-bfsi/internal/adapter/preprocess"
	"sentinel-bfsi/internal/adapter/store"
	"sentinel-bfsi/internal/config"
	"sentinel-bfsi/internal/domain/repository"
	"sentinel-bfsi/internal/usecase"
	"sentinel-bfsi/internal/usecase/safety"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const version = "0.3.0"

func main() {
	if err := godotenv.Load(".env.dev"); err != nil {
		log.Println("Warning: .env.dev file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck

	if err := run(cfg); err != nil {
		zap.L().Fatal("gateway stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Qdrant for knowledge entries and policy passages
	qClient, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Qdrant.Host,
		Port: cfg.Qdrant.Port,
	})
	if err != nil {
		return eris.Wrap(err, "connect to qdrant")
	}
	defer qClient.Close()

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Gemini.Project,
		Location: cfg.Gemini.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return eris.Wrap(err, "init genai client")
	}

	instructions := usecase.DefaultInstructions()
	for category, text := range cfg.Router.CategoryInstructions {
		instructions[category] = text
	}

	model := client.NewGeminiClientFromClient(genaiClient, cfg.Gemini.Model).
		WithSampling(cfg.Gemini.Temperature, cfg.Gemini.TopK, cfg.Gemini.MaxTokens)
	if !model.Deterministic() {
		zap.L().Warn("generator sampling is not deterministic, tier 2 will always cascade",
			zap.Float32("temperature", cfg.Gemini.Temperature),
			zap.Float32("top_k", cfg.Gemini.TopK))
	}
	generator := usecase.NewGuardedGenerator(model, cfg.Router.MaxOutputChars)

	embedder := client.NewEmbedderFromClient(genaiClient, cfg.Gemini.EmbedModel, int32(cfg.Qdrant.VectorDim))
	extractor := client.NewGeminiExtractor(genaiClient, cfg.Gemini.ExtractorModel, categories(instructions))

	kbStore := store.NewQdrantStore(qClient, cfg.Qdrant.KBCollection)
	policyStore := store.NewQdrantStore(qClient, cfg.Qdrant.PolicyCollection)
	for _, s := range []*store.QdrantStore{kbStore, policyStore} {
		if err := s.InitCollection(ctx, cfg.Qdrant.VectorDim); err != nil {
			return eris.Wrap(err, "init qdrant collection")
		}
	}

	// Session limiter: Redis when shared, in-process otherwise
	var limiter repository.SessionLimiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		limiter = store.NewRedisLimiter(rdb, cfg.Limiter.MaxRequests, cfg.Limiter.Window)
	} else {
		limiter = store.NewMemoryLimiter(cfg.Limiter.MaxRequests, cfg.Limiter.Window)
	}

	// Audit: write-once SQLite trail, mirrored to the log
	auditDB, err := store.NewSQLiteAudit(cfg.Audit.SQLitePath)
	if err != nil {
		return eris.Wrap(err, "open audit store")
	}
	defer auditDB.Close()
	if err := auditDB.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate audit store")
	}
	sinks := store.FanoutAudit{auditDB}
	if cfg.Audit.LogRecords {
		sinks = append(sinks, store.NewLogAudit(zap.L()))
	}

	gate := safety.NewGate(safety.NewPatternClassifier())
	synthesizer := usecase.NewPolicySynthesizer(embedder, policyStore, usecase.SynthesizerConfig{
		MinScore:         cfg.PolicyCorpus.MinScore,
		TopK:             cfg.PolicyCorpus.TopK,
		MaxContextLength: cfg.PolicyCorpus.MaxContextLength,
	})

	router, err := usecase.NewRouter(gate,
		usecase.NewGenerationTier(generator, instructions, cfg.Router.RelevanceFloor),
		usecase.NewRetrievalTier(synthesizer),
		usecase.RouterPolicy{
			Tier2Timeout:   cfg.Router.Tier2Timeout,
			Tier3Timeout:   cfg.Router.Tier3Timeout,
			EscalationText: cfg.Router.EscalationText,
			RefusalText:    cfg.Router.RefusalText,
		})
	if err != nil {
		return err
	}

	normalizer := preprocess.NewNormalizer(preprocess.Config{
		MinLength: cfg.Preprocess.MinLength,
		MaxLength: cfg.Preprocess.MaxLength,
	}, extractor)
	retriever := usecase.NewKnowledgeRetriever(embedder, kbStore, cfg.Qdrant.CandidateLimit)

	orchestrator := usecase.NewOrchestrator(normalizer, limiter, retriever, router, sinks, cfg.Thresholds)

	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := embedder.CreateEmbedding(warmCtx, "warmup"); err != nil {
			zap.L().Warn("embedder warm-up failed", zap.Error(err))
		}
		if _, err := generator.Generate(warmCtx, "."); err != nil {
			zap.L().Warn("generator warm-up failed", zap.Error(err))
		}
		zap.L().Info("pre-warm complete")
	}()

	// Initialize API Layer (Delivery Layer)
	app := fiber.New(fiber.Config{
		AppName:               "Sentinel BFSI Gateway",
		DisableStartupMessage: true,
	})
	handler := api.NewPromptHandler(orchestrator, cfg.Server.RequestTimeout)
	api.SetupRouter(app, handler, api.HealthInfo{Version: version, Env: cfg.Env})

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("gateway listening", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Env))
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zap.L().Info("shutting down", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		zap.L().Warn("fiber shutdown", zap.Error(err))
	}
	orchestrator.Drain()
	return nil
}

func categories(instructions map[string]string) []string {
	out := make([]string, 0, len(instructions))
	for k := range instructions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
