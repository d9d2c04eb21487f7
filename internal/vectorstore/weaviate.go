package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/models"

	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

// weaviateStore adapts the fixed chunk schema onto Weaviate classes.
// Weaviate's cosine distance is returned natively by its "certainty"
// metric, which is already "higher is better", so Query passes scores
// through unchanged.
type weaviateStore struct {
	client *weaviate.Client
	log    rflog.Logger
}

func newWeaviateStore(ctx context.Context, cfg Config) (VectorStore, error) {
	host, scheme := splitAddress(cfg.Address)
	wc, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: scheme, AuthConfig: nil})
	if err != nil {
		return nil, rferrors.Wrap(rferrors.KindCollection, "failed to build weaviate client", err, nil)
	}
	return &weaviateStore{client: wc, log: rflog.Default.With("backend", "weaviate")}, nil
}

func (w *weaviateStore) Close() error { return nil }

func (w *weaviateStore) className(name string) string {
	return "Ragforge_" + strings.ReplaceAll(name, "-", "_")
}

func (w *weaviateStore) CreateCollection(ctx context.Context, name string, dimension int, metric Metric, extraMetadata map[string]string) error {
	class := w.className(name)
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
	if err != nil {
		return rferrors.Collection(name, "has_collection", err)
	}
	if exists {
		return nil
	}

	distance := "cosine"
	if metric == MetricInnerProduct {
		distance = "dot"
	} else if metric == MetricL2 {
		distance = "l2-squared"
	}

	classObj := weaviateClassSchema(class, distance, defaultHNSWM, defaultHNSWEfConstruction)
	if err := w.client.Schema().ClassCreator().WithClass(classObj).Do(ctx); err != nil {
		return rferrors.Collection(name, "create_collection", err)
	}
	return nil
}

func (w *weaviateStore) DeleteCollection(ctx context.Context, name string) error {
	if err := w.client.Schema().ClassDeleter().WithClassName(w.className(name)).Do(ctx); err != nil {
		return nil // deleting a missing class is treated as success
	}
	return nil
}

func (w *weaviateStore) AddChunks(ctx context.Context, name string, chunks []Chunk, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	class := w.className(name)
	var written []string
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batcher := w.client.Batch().ObjectsBatcher()
		objs := make([]*models.Object, 0, end-start)
		for _, c := range chunks[start:end] {
			objs = append(objs, weaviateObjectFromChunk(class, c))
		}
		batcher = batcher.WithObjects(objs...)
		if _, err := batcher.Do(ctx); err != nil {
			return written, rferrors.Document(name, chunkIDs(chunks[start:]), err)
		}
		for _, c := range chunks[start:end] {
			written = append(written, c.ChunkID)
		}
	}
	return written, nil
}

func (w *weaviateStore) Query(ctx context.Context, name string, queryVector []float64, k int, fs []Filter) ([]ScoredChunk, error) {
	class := w.className(name)
	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(toFloat32(queryVector))

	fields := []graphql.Field{
		{Name: "chunk_id"}, {Name: "document_id"}, {Name: "text"}, {Name: "source_id"},
		{Name: "source"}, {Name: "url"}, {Name: "author"},
		{Name: "page_number"}, {Name: "chunk_number"}, {Name: "table_index"}, {Name: "image_index"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}, {Name: "id"}}},
	}

	query := w.client.GraphQL().Get().WithClassName(class).WithFields(fields...).
		WithNearVector(nearVector).WithLimit(k)
	if where := weaviateWhere(fs); where != nil {
		query = query.WithWhere(where)
	}

	resp, err := query.Do(ctx)
	if err != nil {
		return nil, rferrors.Collection(name, "query", err)
	}
	if len(resp.Errors) > 0 {
		return nil, rferrors.Collection(name, "query", fmt.Errorf("%v", resp.Errors))
	}
	return parseWeaviateResult(resp, class), nil
}

func (w *weaviateStore) Retrieve(ctx context.Context, embedder Embedder, name, textQuery string, k int, fs []Filter) ([]ScoredChunk, error) {
	return retrieveViaQuery(ctx, w, embedder, name, textQuery, k, fs)
}

func (w *weaviateStore) DeleteChunks(ctx context.Context, name string, chunkIDs []string) (int, error) {
	class := w.className(name)
	count := 0
	for _, id := range chunkIDs {
		if err := w.client.Data().Deleter().WithClassName(class).WithID(id).Do(ctx); err == nil {
			count++
		}
	}
	return count, nil
}

func weaviateWhere(fs []Filter) *filters.WhereBuilder {
	if len(fs) == 0 {
		return nil
	}
	f := fs[0]
	op := filters.Equal
	switch f.Operator {
	case OpGte:
		op = filters.GreaterThanEqual
	case OpLte:
		op = filters.LessThanEqual
	}
	return filters.Where().WithPath([]string{f.Field}).WithOperator(op).WithValueText(fmt.Sprint(f.Value))
}

func splitAddress(address string) (host, scheme string) {
	if strings.HasPrefix(address, "https://") {
		return strings.TrimPrefix(address, "https://"), "https"
	}
	return strings.TrimPrefix(address, "http://"), "http"
}
