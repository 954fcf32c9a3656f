package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/qdrant/go-client/qdrant"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"sentinel-bfsi/internal/adapter/client"
	"sentinel-bfsi/internal/adapter/store"
	"sentinel-bfsi/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sentinel-indexer",
	Short: "Embed and index the knowledge base and policy corpus",
	Long:  "Loads curated answers and policy documents from disk, embeds them and upserts them into the Qdrant collections the gateway reads.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env.dev")

		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// backends is what every subcommand needs to talk to.
type backends struct {
	embedder *client.Embedder
	qdrant   *qdrant.Client
}

func (b *backends) Close() {
	if b.qdrant != nil {
		_ = b.qdrant.Close()
	}
}

func connect(ctx context.Context) (*backends, error) {
	qc, err := qdrant.NewClient(&qdrant.Config{Host: cfg.Qdrant.Host, Port: cfg.Qdrant.Port})
	if err != nil {
		return nil, eris.Wrap(err, "connect to qdrant")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Gemini.Project,
		Location: cfg.Gemini.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		_ = qc.Close()
		return nil, eris.Wrap(err, "init genai client")
	}
	return &backends{
		embedder: client.NewEmbedderFromClient(gc, cfg.Gemini.EmbedModel, int32(cfg.Qdrant.VectorDim)),
		qdrant:   qc,
	}, nil
}

func (b *backends) collection(ctx context.Context, name string) (*store.QdrantStore, error) {
	s := store.NewQdrantStore(b.qdrant, name)
	if err := s.InitCollection(ctx, cfg.Qdrant.VectorDim); err != nil {
		return nil, err
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
