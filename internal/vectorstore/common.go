package vectorstore

import (
	"context"
	"strconv"

	"github.com/ragforge/ragforge/internal/rferrors"
)

func unsupportedBackend(name string) error {
	return rferrors.New(rferrors.KindValidation, "unsupported vector store backend", map[string]any{"backend": name})
}

// retrieveViaQuery implements the Retrieve convenience method in terms of a
// backend's own Query, shared by every implementation so the
// embed-then-query sequence is written once.
func retrieveViaQuery(ctx context.Context, store VectorStore, embedder Embedder, name, textQuery string, k int, filters []Filter) ([]ScoredChunk, error) {
	if textQuery == "" {
		return nil, rferrors.InvalidQuery("query text must not be empty")
	}
	vecs, err := embedder.Embed(ctx, []string{textQuery})
	if err != nil {
		return nil, err
	}
	return store.Query(ctx, name, vecs[0], k, filters)
}

const (
	defaultHNSWM              = 8
	defaultHNSWEfConstruction = 64
	embeddingFieldName        = "embedding"
)

// intPtrToString and stringToIntPtr encode the optional chunk.PageNumber/
// ChunkNumber/TableIndex/ImageIndex fields for back-ends whose metadata is a
// string-keyed map (chroma, qdrant, pinecone) as decimal strings, since their
// native schema has no separate integer column. A missing or unparsable
// entry decodes back to nil, same as never set.
func intPtrToString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func stringToIntPtr(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
