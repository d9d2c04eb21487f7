package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

// chromaStore stands in for the specification's Chroma back-end using
// philippgille/chromem-go, an embedded Go-native vector store, rather than
// an HTTP client to a standalone ChromaDB server — it is the only "Chroma"
// dependency the teacher ever imported (rag/chromem.go). Because ragforge
// always supplies precomputed embeddings from internal/embed, the
// embedding function chromem requires at construction time is a stub that
// is never actually invoked; chromem cosine-normalizes scores internally,
// so Query's results are passed through unchanged.
type chromaStore struct {
	db          *chromem.DB
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	log         rflog.Logger
}

func newChromaStore(ctx context.Context, cfg Config) (VectorStore, error) {
	var db *chromem.DB
	var err error
	if cfg.Address != "" {
		db, err = chromem.NewPersistentDB(cfg.Address, false)
	} else {
		db = chromem.NewDB()
	}
	if err != nil {
		return nil, rferrors.Wrap(rferrors.KindCollection, "failed to open chromem store", err, nil)
	}
	return &chromaStore{db: db, collections: make(map[string]*chromem.Collection), log: rflog.Default.With("backend", "chroma")}, nil
}

func (c *chromaStore) Close() error { return nil }

func unusedEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("chromem embedding function should never be invoked: ragforge always supplies precomputed vectors")
}

func (c *chromaStore) CreateCollection(ctx context.Context, name string, dimension int, metric Metric, extraMetadata map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.collections[name]; ok {
		return nil
	}
	if existing := c.db.GetCollection(name, unusedEmbeddingFunc); existing != nil {
		c.collections[name] = existing
		return nil
	}
	col, err := c.db.CreateCollection(name, extraMetadata, unusedEmbeddingFunc)
	if err != nil {
		return rferrors.Collection(name, "create_collection", err)
	}
	c.collections[name] = col
	return nil
}

func (c *chromaStore) DeleteCollection(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.db.DeleteCollection(name); err != nil {
		c.log.Debug("delete collection reported error, treating as not-found", "collection", name, "error", err)
	}
	delete(c.collections, name)
	return nil
}

func (c *chromaStore) collection(name string) (*chromem.Collection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	col, ok := c.collections[name]
	if !ok {
		return nil, rferrors.Collection(name, "lookup", fmt.Errorf("collection not created"))
	}
	return col, nil
}

// AddChunks uses chromem's single-shot AddDocument per the specification's
// note that "Chroma uses single-shot add" rather than a bulk API.
func (c *chromaStore) AddChunks(ctx context.Context, name string, chunks []Chunk, batchSize int) ([]string, error) {
	col, err := c.collection(name)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, chunk := range chunks {
		doc := chromem.Document{
			ID:        chunk.ChunkID,
			Content:   chunk.Text,
			Embedding: toFloat32(chunk.Embedding),
			Metadata:  chunkMetadata(chunk),
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return written, rferrors.Document(name, chunkIDs(chunks), err)
		}
		written = append(written, chunk.ChunkID)
	}
	return written, nil
}

func (c *chromaStore) Query(ctx context.Context, name string, queryVector []float64, k int, filters []Filter) ([]ScoredChunk, error) {
	col, err := c.collection(name)
	if err != nil {
		return nil, err
	}
	where := chromaWhere(filters)
	results, err := col.QueryEmbedding(ctx, toFloat32(queryVector), k, where, nil)
	if err != nil {
		return nil, rferrors.Collection(name, "query", err)
	}
	out := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		out = append(out, ScoredChunk{
			ChunkID: r.ID,
			Score:   float64(r.Similarity),
			Chunk:   chunkFromMetadata(r.ID, r.Content, r.Metadata),
		})
	}
	return out, nil
}

func (c *chromaStore) Retrieve(ctx context.Context, embedder Embedder, name, textQuery string, k int, filters []Filter) ([]ScoredChunk, error) {
	return retrieveViaQuery(ctx, c, embedder, name, textQuery, k, filters)
}

func (c *chromaStore) DeleteChunks(ctx context.Context, name string, chunkIDs []string) (int, error) {
	col, err := c.collection(name)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range chunkIDs {
		if err := col.Delete(ctx, nil, nil, id); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

func chunkMetadata(c Chunk) map[string]string {
	m := map[string]string{
		"document_id": c.DocumentID,
		"source_id":   c.SourceID,
		"source":      c.Source,
		"url":         c.URL,
		"author":      c.Author,
	}
	if c.PageNumber != nil {
		m["page_number"] = strconv.Itoa(*c.PageNumber)
	}
	if c.ChunkNumber != nil {
		m["chunk_number"] = strconv.Itoa(*c.ChunkNumber)
	}
	if c.TableIndex != nil {
		m["table_index"] = strconv.Itoa(*c.TableIndex)
	}
	if c.ImageIndex != nil {
		m["image_index"] = strconv.Itoa(*c.ImageIndex)
	}
	return m
}

func chunkFromMetadata(id, text string, m map[string]string) Chunk {
	return Chunk{
		ChunkID:     id,
		Text:        text,
		DocumentID:  m["document_id"],
		SourceID:    m["source_id"],
		Source:      m["source"],
		URL:         m["url"],
		Author:      m["author"],
		PageNumber:  stringToIntPtr(m["page_number"]),
		ChunkNumber: stringToIntPtr(m["chunk_number"]),
		TableIndex:  stringToIntPtr(m["table_index"]),
		ImageIndex:  stringToIntPtr(m["image_index"]),
	}
}

func chromaWhere(filters []Filter) map[string]string {
	if len(filters) == 0 {
		return nil
	}
	where := make(map[string]string, len(filters))
	for _, f := range filters {
		if f.Operator == OpEq {
			where[f.Field] = fmt.Sprint(f.Value)
		}
	}
	return where
}
