package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ragforge/ragforge/internal/chunk"
	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/documents"
	"github.com/ragforge/ragforge/internal/embed"
	"github.com/ragforge/ragforge/internal/vectorstore"
)

type fakeEmbedProvider struct{ dimension int }

func (f fakeEmbedProvider) Name() string       { return "fake" }
func (f fakeEmbedProvider) EmbedModel() string { return "fake-embed" }
func (f fakeEmbedProvider) Dimensions() int    { return f.dimension }
func (f fakeEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = make([]float64, f.dimension)
	}
	return out, nil
}

type fakeVectorStore struct {
	created bool
	written []vectorstore.Chunk
}

func (f *fakeVectorStore) CreateCollection(ctx context.Context, name string, dimension int, metric vectorstore.Metric, extraMetadata map[string]string) error {
	f.created = true
	return nil
}
func (f *fakeVectorStore) DeleteCollection(ctx context.Context, name string) error { return nil }
func (f *fakeVectorStore) AddChunks(ctx context.Context, name string, chunks []vectorstore.Chunk, batchSize int) ([]string, error) {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
		f.written = append(f.written, c)
	}
	return ids, nil
}
func (f *fakeVectorStore) Query(ctx context.Context, name string, queryVector []float64, k int, filters []vectorstore.Filter) ([]vectorstore.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeVectorStore) Retrieve(ctx context.Context, embedder vectorstore.Embedder, name, textQuery string, k int, filters []vectorstore.Filter) ([]vectorstore.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeVectorStore) DeleteChunks(ctx context.Context, name string, chunkIDs []string) (int, error) {
	return 0, nil
}
func (f *fakeVectorStore) Close() error { return nil }

type emptyConfigStore struct{}

func (emptyConfigStore) EntriesByScope(ctx context.Context, scope config.Scope, category config.Category, userID, collectionID string) ([]config.Entry, error) {
	return nil, nil
}

func TestIngestWritesChunksForEachFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("the quick brown fox jumps over the lazy dog"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	counter, err := chunk.NewTikTokenCounter("cl100k_base")
	if err != nil {
		t.Skipf("tiktoken encoding unavailable in this environment: %v", err)
	}
	chunker, err := chunk.New(chunk.StrategyFixed, chunk.Params{MaxChunkSize: 1024, MinChunkSize: 1, Overlap: 0}, counter, nil)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	registry := documents.NewRegistry(chunker, documents.NewImageStore(nil, "", ""))

	store := &fakeVectorStore{}
	embedder := embed.New(fakeEmbedProvider{dimension: 3}, embed.DefaultSettings())
	resolver := config.NewResolver(emptyConfigStore{}, config.DeploymentConfig{})

	pipeline := New(registry, embedder, store, resolver, nil)
	report, err := pipeline.Ingest(context.Background(), "col-1", "user-1", "col-1", 3, vectorstore.MetricCosine, []string{path})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.FilesSucceeded != 1 {
		t.Fatalf("expected 1 file to succeed, got %d (failed=%+v)", report.FilesSucceeded, report.FilesFailed)
	}
	if report.DocumentsWritten != 1 {
		t.Fatalf("expected 1 document written, got %d", report.DocumentsWritten)
	}
	if report.ChunksWritten == 0 {
		t.Fatal("expected at least one chunk written")
	}
	if !store.created {
		t.Fatal("expected CreateCollection to be called")
	}
	if len(store.written) != report.ChunksWritten {
		t.Fatalf("expected store to record all %d written chunks, got %d", report.ChunksWritten, len(store.written))
	}
}

func TestIngestRecordsFailureForUnsupportedFileType(t *testing.T) {
	counter, err := chunk.NewTikTokenCounter("cl100k_base")
	if err != nil {
		t.Skipf("tiktoken encoding unavailable in this environment: %v", err)
	}
	chunker, err := chunk.New(chunk.StrategyFixed, chunk.Params{MaxChunkSize: 1024, MinChunkSize: 1}, counter, nil)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	registry := documents.NewRegistry(chunker, documents.NewImageStore(nil, "", ""))
	store := &fakeVectorStore{}
	embedder := embed.New(fakeEmbedProvider{dimension: 3}, embed.DefaultSettings())
	resolver := config.NewResolver(emptyConfigStore{}, config.DeploymentConfig{})

	pipeline := New(registry, embedder, store, resolver, nil)
	report, err := pipeline.Ingest(context.Background(), "col-1", "user-1", "col-1", 3, vectorstore.MetricCosine, []string{"unsupported.xyz"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.FilesSucceeded != 0 {
		t.Fatalf("expected 0 files to succeed, got %d", report.FilesSucceeded)
	}
	if len(report.FilesFailed) != 1 || report.FilesFailed[0].Stage != "dispatch" {
		t.Fatalf("expected a dispatch-stage failure, got %+v", report.FilesFailed)
	}
}
