// Package embed implements the embedding client (C1): it turns batches of
// chunk text into vectors through a configured llm.EmbedProvider, with
// sub-batching, bounded concurrency, and retry with backoff, grounded on
// the teacher's EmbeddingService (rag/embed.go) generalized from
// one-chunk-at-a-time to concurrent sub-batches per manifold's errgroup-based
// fan-out (internal/agent/warpp.go's RunWARPP).
package embed

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ragforge/ragforge/internal/llm"
	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

// Settings configures a Client's batching, concurrency, and retry behavior.
type Settings struct {
	BatchSize     int
	Concurrency   int
	MaxRetries    int
	InitialBackoff time.Duration
}

func DefaultSettings() Settings {
	return Settings{BatchSize: 8, Concurrency: 4, MaxRetries: 3, InitialBackoff: 250 * time.Millisecond}
}

// Client wraps an llm.EmbedProvider with the operational behavior the
// ingestion and query-rewriting pipelines need from C1.
type Client struct {
	provider llm.EmbedProvider
	settings Settings
	log      rflog.Logger
}

func New(provider llm.EmbedProvider, settings Settings) *Client {
	if settings.BatchSize <= 0 {
		settings.BatchSize = DefaultSettings().BatchSize
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = DefaultSettings().Concurrency
	}
	if settings.MaxRetries <= 0 {
		settings.MaxRetries = DefaultSettings().MaxRetries
	}
	if settings.InitialBackoff <= 0 {
		settings.InitialBackoff = DefaultSettings().InitialBackoff
	}
	return &Client{provider: provider, settings: settings, log: rflog.Default.With("component", "embed", "provider", provider.Name())}
}

// Embed embeds every text in order, sub-batching and parallelizing calls to
// the underlying provider while preserving input order in the result.
// Every vector's dimension is checked against the provider's declared
// Dimensions(); a mismatch fails the whole call with
// EmbeddingDimensionMismatch rather than silently propagating bad vectors
// downstream into a vector store.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batches := splitBatches(texts, c.settings.BatchSize)
	results := make([][][]float64, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.settings.Concurrency)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			vecs, err := c.embedWithRetry(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = vecs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([][]float64, 0, len(texts))
	for _, r := range results {
		out = append(out, r...)
	}

	expected := c.provider.Dimensions()
	for _, v := range out {
		if expected > 0 && len(v) != expected {
			return nil, rferrors.EmbeddingDimensionMismatch(expected, len(v))
		}
	}
	return out, nil
}

func (c *Client) embedWithRetry(ctx context.Context, batch []string) ([][]float64, error) {
	backoff := c.settings.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= c.settings.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warn("retrying embedding batch", "attempt", attempt, "backoff_ms", backoff.Milliseconds())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(math.Min(float64(backoff*2), float64(30*time.Second)))
		}
		vecs, err := c.provider.Embed(ctx, batch)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
	}
	return nil, rferrors.LLMProvider(c.provider.Name(), c.provider.EmbedModel(), lastErr)
}

func splitBatches(texts []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}
	return batches
}
