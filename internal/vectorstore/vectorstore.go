// Package vectorstore implements the vector-store adapter (C5): one
// VectorStore implementation per back-end, all satisfying the shared
// contract below. The interface shape — a single polymorphic type per
// back-end selected by a Config.Type factory switch — is grounded on the
// teacher's rag/vector_interface.go VectorDB interface and NewVectorDB
// factory, regrown around the specification's chunk-record contract instead
// of Milvus-specific column records.
package vectorstore

import (
	"context"
	"time"
)

// Metric is the distance metric a collection's embedding field is indexed
// with. Cosine is preferred; InnerProduct is the fallback when a back-end
// cannot do cosine natively; L2 is used only when explicitly configured.
type Metric string

const (
	MetricCosine       Metric = "cosine"
	MetricInnerProduct Metric = "inner_product"
	MetricL2           Metric = "l2"
)

// FilterOperator enumerates the shared filter language every back-end
// translates into its native query syntax.
type FilterOperator string

const (
	OpEq  FilterOperator = "eq"
	OpGte FilterOperator = "gte"
	OpLte FilterOperator = "lte"
	OpIn  FilterOperator = "in"
)

// Filter is one clause of the shared filter schema.
type Filter struct {
	Field    string
	Operator FilterOperator
	Value    any
}

// Chunk is the fixed schema every back-end's collection stores, matching
// the specification's field list exactly.
type Chunk struct {
	ChunkID     string
	DocumentID  string
	Text        string
	Embedding   []float64
	SourceID    string
	Source      string
	URL         string
	CreatedAt   time.Time
	Author      string
	PageNumber  *int
	ChunkNumber *int
	TableIndex  *int
	ImageIndex  *int
}

// ScoredChunk is one query result: a chunk plus a "higher is better"
// similarity score, normalized per back-end so callers never need to know
// whether the native API returns distance or similarity.
type ScoredChunk struct {
	ChunkID string
	Score   float64
	Chunk   Chunk
}

// Embedder is the subset of internal/embed.Client that Retrieve needs to
// turn a text query into a vector before delegating to Query.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorStore is the capability set every back-end implements.
type VectorStore interface {
	// CreateCollection is idempotent given {name, dimension, metric}: it
	// succeeds silently if the collection already exists with a matching
	// shape, and creates the fixed chunk schema plus a vector index on
	// embedding (HNSW M=8/efConstruction=64 preferred) otherwise.
	CreateCollection(ctx context.Context, name string, dimension int, metric Metric, extraMetadata map[string]string) error

	// DeleteCollection removes a collection and all its chunks; deleting a
	// collection that doesn't exist is treated as success.
	DeleteCollection(ctx context.Context, name string) error

	// AddChunks upserts the given chunks, keyed by ChunkID, in batches of
	// batchSize where the back-end supports bulk writes. Returns the written
	// chunk ids; a partial failure returns the successfully written ids
	// alongside a DocumentError describing the rest.
	AddChunks(ctx context.Context, name string, chunks []Chunk, batchSize int) ([]string, error)

	// Query returns the k nearest chunks to queryVector, ordered by
	// decreasing score, after applying filters (nil/empty means no filter).
	Query(ctx context.Context, name string, queryVector []float64, k int, filters []Filter) ([]ScoredChunk, error)

	// Retrieve is the text-query convenience form of Query: it embeds
	// textQuery via embedder, then delegates.
	Retrieve(ctx context.Context, embedder Embedder, name, textQuery string, k int, filters []Filter) ([]ScoredChunk, error)

	// DeleteChunks removes the given chunk ids from a collection, returning
	// the count actually deleted.
	DeleteChunks(ctx context.Context, name string, chunkIDs []string) (int, error)

	Close() error
}

// Config selects and parameterizes a back-end, mirroring the teacher's
// rag.Config/NewVectorDB factory shape.
type Config struct {
	Type       string
	Address    string
	APIKey     string
	Timeout    time.Duration
	Parameters map[string]any
}

// New builds the VectorStore named by cfg.Type.
func New(ctx context.Context, cfg Config) (VectorStore, error) {
	switch cfg.Type {
	case "milvus":
		return newMilvusStore(ctx, cfg)
	case "chroma":
		return newChromaStore(ctx, cfg)
	case "weaviate":
		return newWeaviateStore(ctx, cfg)
	case "pinecone":
		return newPineconeStore(ctx, cfg)
	case "elasticsearch":
		return newElasticsearchStore(ctx, cfg)
	case "qdrant":
		return newQdrantStore(ctx, cfg)
	default:
		return nil, unsupportedBackend(cfg.Type)
	}
}
