package rerank

import (
	"testing"

	"github.com/ragforge/ragforge/internal/vectorstore"
)

func scored(ids ...string) []vectorstore.ScoredChunk {
	out := make([]vectorstore.ScoredChunk, len(ids))
	for i, id := range ids {
		out[i] = vectorstore.ScoredChunk{ChunkID: id, Score: float64(len(ids) - i), Chunk: vectorstore.Chunk{ChunkID: id}}
	}
	return out
}

func TestRerankPreservesOrderWhenAlreadyRanked(t *testing.T) {
	r := NewRRFReranker(60)
	out := r.Rerank(scored("a", "b", "c"), 3)
	if len(out) != 3 || out[0].ChunkID != "a" || out[1].ChunkID != "b" || out[2].ChunkID != "c" {
		t.Fatalf("unexpected rerank order: %+v", out)
	}
}

func TestRerankTruncatesToTopK(t *testing.T) {
	r := NewRRFReranker(60)
	out := r.Rerank(scored("a", "b", "c", "d"), 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
}

func TestRerankDefaultsKWhenNonPositive(t *testing.T) {
	r := NewRRFReranker(0)
	if r.k != 60 {
		t.Fatalf("expected default k=60, got %v", r.k)
	}
}

func TestRerankRescoresByRankNotOriginalScore(t *testing.T) {
	r := NewRRFReranker(1)
	in := scored("a", "b")
	out := r.Rerank(in, 2)
	wantFirst := 1.0 / (1.0 + 1.0)
	wantSecond := 1.0 / (2.0 + 1.0)
	if out[0].Score != wantFirst || out[1].Score != wantSecond {
		t.Fatalf("expected rank-based scores %v, %v; got %v, %v", wantFirst, wantSecond, out[0].Score, out[1].Score)
	}
}
