package main

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sentinel-bfsi/internal/adapter/corpus"
	"sentinel-bfsi/internal/domain/entity"
)

var (
	indexDir    string
	indexDryRun bool
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Index curated knowledge-base answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := indexDir
		if dir == "" {
			dir = cfg.Indexer.KBDir
		}
		records, err := corpus.LoadKnowledgeBase(dir)
		if err != nil {
			return err
		}
		entries := make([]entity.KnowledgeEntry, len(records))
		texts := make([]string, len(records))
		for i, r := range records {
			if entries[i], err = r.Entry(); err != nil {
				return err
			}
			texts[i] = r.Input
		}
		zap.L().Info("knowledge base loaded", zap.String("dir", dir), zap.Int("entries", len(entries)))
		if indexDryRun {
			return nil
		}

		ctx := cmd.Context()
		b, err := connect(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		kb, err := b.collection(ctx, cfg.Qdrant.KBCollection)
		if err != nil {
			return err
		}

		n, err := inBatches(ctx, len(entries), cfg.Indexer.BatchSize, cfg.Indexer.Concurrency, func(ctx context.Context, lo, hi int) error {
			vectors, err := b.embedder.CreateDocumentEmbeddings(ctx, texts[lo:hi])
			if err != nil {
				return err
			}
			return kb.UpsertEntries(ctx, entries[lo:hi], vectors)
		})
		zap.L().Info("knowledge base indexed", zap.Int("indexed", n), zap.Int("total", len(entries)))
		return err
	},
}

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Chunk and index policy documents for retrieval",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := indexDir
		if dir == "" {
			dir = cfg.Indexer.PolicyDir
		}
		docs, err := corpus.LoadPolicyDocuments(dir)
		if err != nil {
			return err
		}
		var chunks []corpus.Chunk
		for _, d := range docs {
			chunks = append(chunks, corpus.Split(d, cfg.Indexer.ChunkSize, cfg.Indexer.ChunkOverlap)...)
		}
		zap.L().Info("policy corpus loaded",
			zap.String("dir", dir), zap.Int("documents", len(docs)), zap.Int("chunks", len(chunks)))
		if indexDryRun {
			return nil
		}

		ctx := cmd.Context()
		b, err := connect(ctx)
		if err != nil {
			return err
		}
		defer b.Close()
		policies, err := b.collection(ctx, cfg.Qdrant.PolicyCollection)
		if err != nil {
			return err
		}

		n, err := inBatches(ctx, len(chunks), cfg.Indexer.BatchSize, cfg.Indexer.Concurrency, func(ctx context.Context, lo, hi int) error {
			batch := chunks[lo:hi]
			ids := make([]string, len(batch))
			passages := make([]entity.Passage, len(batch))
			texts := make([]string, len(batch))
			for i, c := range batch {
				ids[i], passages[i], texts[i] = c.ID, c.Passage, c.Passage.Text
			}
			vectors, err := b.embedder.CreateDocumentEmbeddings(ctx, texts)
			if err != nil {
				return err
			}
			return policies.UpsertPassages(ctx, ids, passages, vectors)
		})
		zap.L().Info("policy corpus indexed", zap.Int("indexed", n), zap.Int("total", len(chunks)))
		return err
	},
}

// inBatches runs fn over [0,n) in slices of batchSize with at most
// concurrency slices in flight. It returns how many items were handled
// before the first failure cancelled the rest.
func inBatches(ctx context.Context, n, batchSize, concurrency int, fn func(ctx context.Context, lo, hi int) error) (int, error) {
	if batchSize <= 0 {
		batchSize = 32
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for lo := 0; lo < n; lo += batchSize {
		hi := min(lo+batchSize, n)
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := fn(gctx, lo, hi); err != nil {
				return eris.Wrapf(err, "batch [%d,%d)", lo, hi)
			}
			done.Add(int64(hi - lo))
			return nil
		})
	}
	err := g.Wait()
	return int(done.Load()), err
}

func init() {
	for _, c := range []*cobra.Command{kbCmd, policiesCmd} {
		c.Flags().StringVar(&indexDir, "dir", "", "source directory (defaults to the configured one)")
		c.Flags().BoolVar(&indexDryRun, "dry-run", false, "load and validate without embedding or writing")
		rootCmd.AddCommand(c)
	}
}
