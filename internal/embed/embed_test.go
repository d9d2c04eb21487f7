package embed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ragforge/ragforge/internal/rferrors"
)

type fakeProvider struct {
	dim        int
	failTimes  int
	calls      int
	badDimOnce bool
}

func (f *fakeProvider) Name() string       { return "fake" }
func (f *fakeProvider) EmbedModel() string { return "fake-model" }
func (f *fakeProvider) Dimensions() int    { return f.dim }

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.failTimes > 0 {
		f.failTimes--
		return nil, errors.New("transient failure")
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		dim := f.dim
		if f.badDimOnce {
			dim--
			f.badDimOnce = false
		}
		out[i] = make([]float64, dim)
	}
	return out, nil
}

func TestEmbedPreservesOrderAcrossBatches(t *testing.T) {
	p := &fakeProvider{dim: 4}
	c := New(p, Settings{BatchSize: 2, Concurrency: 2, MaxRetries: 1, InitialBackoff: time.Millisecond})
	texts := []string{"a", "b", "c", "d", "e"}
	vecs, err := c.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
}

func TestEmbedRetriesTransientFailures(t *testing.T) {
	p := &fakeProvider{dim: 4, failTimes: 2}
	c := New(p, Settings{BatchSize: 5, Concurrency: 1, MaxRetries: 3, InitialBackoff: time.Millisecond})
	vecs, err := c.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vecs))
	}
}

func TestEmbedFailsAfterRetryBudgetExhausted(t *testing.T) {
	p := &fakeProvider{dim: 4, failTimes: 100}
	c := New(p, Settings{BatchSize: 5, Concurrency: 1, MaxRetries: 2, InitialBackoff: time.Millisecond})
	_, err := c.Embed(context.Background(), []string{"x"})
	if !rferrors.Is(err, rferrors.KindLLMProvider) {
		t.Fatalf("expected llm_provider_error, got %v", err)
	}
}

func TestEmbedDetectsDimensionMismatch(t *testing.T) {
	p := &fakeProvider{dim: 4, badDimOnce: true}
	c := New(p, Settings{BatchSize: 5, Concurrency: 1, MaxRetries: 1, InitialBackoff: time.Millisecond})
	_, err := c.Embed(context.Background(), []string{"x", "y"})
	if !rferrors.Is(err, rferrors.KindEmbeddingDimensionMismatch) {
		t.Fatalf("expected embedding_dimension_mismatch, got %v", err)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	p := &fakeProvider{dim: 4}
	c := New(p, DefaultSettings())
	vecs, err := c.Embed(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Fatalf("expected nil, nil for empty input, got %v, %v", vecs, err)
	}
}
