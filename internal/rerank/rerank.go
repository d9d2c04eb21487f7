// Package rerank implements C9's optional reranking step via Reciprocal
// Rank Fusion, adapted from the teacher's rag/reranker.go RRFReranker.
package rerank

import (
	"sort"

	"github.com/ragforge/ragforge/internal/vectorstore"
)

// RRFReranker re-scores a single retrieved list by rank rather than raw
// score, using RRF(d) = 1/(k + rank(d)). The teacher fuses two ranked lists
// (dense/sparse); C9 has one vector-store result list to rerank, so this
// keeps the RRF formula but drops the dual-list fusion weights.
type RRFReranker struct {
	k float64
}

// NewRRFReranker defaults k to 60, the standard value from the RRF paper.
func NewRRFReranker(k float64) *RRFReranker {
	if k <= 0 {
		k = 60
	}
	return &RRFReranker{k: k}
}

// Rerank re-scores results by their rank and truncates to topK.
func (r *RRFReranker) Rerank(results []vectorstore.ScoredChunk, topK int) []vectorstore.ScoredChunk {
	rescored := make([]vectorstore.ScoredChunk, len(results))
	copy(rescored, results)
	for rank := range rescored {
		rescored[rank].Score = 1.0 / (float64(rank+1) + r.k)
	}
	sort.SliceStable(rescored, func(i, j int) bool { return rescored[i].Score > rescored[j].Score })
	if topK > 0 && len(rescored) > topK {
		rescored = rescored[:topK]
	}
	return rescored
}
