package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

// milvusStore adapts the fixed chunk schema onto Milvus collections,
// grounded on the teacher's rag/milvus.go MilvusDB — the column-building,
// HNSW index creation, and result-unwrapping code is kept, generalized from
// the teacher's caller-supplied Schema/Record types to the specification's
// fixed Chunk schema. The index and every search use COSINE, whatever
// metric CreateCollection is given, and Milvus returns COSINE as a
// similarity, so scores are passed through unchanged; no L2 inversion is
// done.
type milvusStore struct {
	client  client.Client
	indexed map[string]bool
	log     rflog.Logger
}

func newMilvusStore(ctx context.Context, cfg Config) (VectorStore, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, rferrors.Wrap(rferrors.KindCollection, "failed to connect to milvus", err, nil)
	}
	return &milvusStore{client: c, indexed: make(map[string]bool), log: rflog.Default.With("backend", "milvus")}, nil
}

func (m *milvusStore) Close() error { return m.client.Close() }

func (m *milvusStore) CreateCollection(ctx context.Context, name string, dimension int, metric Metric, extraMetadata map[string]string) error {
	exists, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return rferrors.Collection(name, "has_collection", err)
	}
	if exists {
		return nil
	}

	schema := entity.NewSchema().WithName(name).WithDescription("ragforge chunk collection")
	schema.WithField(entity.NewField().WithName("chunk_id").WithDataType(entity.FieldTypeVarChar).WithIsPrimaryKey(true).WithMaxLength(64))
	schema.WithField(entity.NewField().WithName("document_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(64))
	schema.WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535))
	schema.WithField(entity.NewField().WithName("source_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(64))
	schema.WithField(entity.NewField().WithName("source").WithDataType(entity.FieldTypeVarChar).WithMaxLength(256))
	schema.WithField(entity.NewField().WithName("url").WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024))
	schema.WithField(entity.NewField().WithName("author").WithDataType(entity.FieldTypeVarChar).WithMaxLength(256))
	schema.WithField(entity.NewField().WithName("page_number").WithDataType(entity.FieldTypeInt64))
	schema.WithField(entity.NewField().WithName("chunk_number").WithDataType(entity.FieldTypeInt64))
	schema.WithField(entity.NewField().WithName("table_index").WithDataType(entity.FieldTypeInt64))
	schema.WithField(entity.NewField().WithName("image_index").WithDataType(entity.FieldTypeInt64))
	schema.WithField(entity.NewField().WithName(embeddingFieldName).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dimension)))

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return rferrors.Collection(name, "create_collection", err)
	}
	return nil
}

func (m *milvusStore) ensureIndex(ctx context.Context, name string, metric Metric) error {
	if m.indexed[name] {
		return nil
	}
	idx, err := entity.NewIndexHNSW(milvusMetric(metric), defaultHNSWM, defaultHNSWEfConstruction)
	if err != nil {
		return err
	}
	if err := m.client.CreateIndex(ctx, name, embeddingFieldName, idx, false); err != nil {
		return err
	}
	if err := m.client.LoadCollection(ctx, name, false); err != nil {
		return err
	}
	m.indexed[name] = true
	return nil
}

func (m *milvusStore) DeleteCollection(ctx context.Context, name string) error {
	if err := m.client.DropCollection(ctx, name); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") || strings.Contains(strings.ToLower(err.Error()), "not exist") {
			return nil
		}
		return rferrors.Collection(name, "delete_collection", err)
	}
	delete(m.indexed, name)
	return nil
}

func (m *milvusStore) AddChunks(ctx context.Context, name string, chunks []Chunk, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	var written []string
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		if err := m.insertBatch(ctx, name, batch); err != nil {
			return written, rferrors.Document(name, chunkIDs(chunks[start:]), err)
		}
		for _, c := range batch {
			written = append(written, c.ChunkID)
		}
	}
	if err := m.client.Flush(ctx, name, false); err != nil {
		return written, rferrors.Document(name, nil, err)
	}
	if len(chunks) > 0 {
		if err := m.ensureIndex(ctx, name, MetricCosine); err != nil {
			m.log.Warn("index creation failed", "collection", name, "error", err)
		}
	}
	return written, nil
}

func (m *milvusStore) insertBatch(ctx context.Context, name string, batch []Chunk) error {
	ids := make([]string, len(batch))
	docIDs := make([]string, len(batch))
	texts := make([]string, len(batch))
	sourceIDs := make([]string, len(batch))
	sources := make([]string, len(batch))
	urls := make([]string, len(batch))
	authors := make([]string, len(batch))
	pageNumbers := make([]int64, len(batch))
	chunkNumbers := make([]int64, len(batch))
	tableIndexes := make([]int64, len(batch))
	imageIndexes := make([]int64, len(batch))
	vectors := make([][]float32, len(batch))

	for i, c := range batch {
		ids[i] = c.ChunkID
		docIDs[i] = c.DocumentID
		texts[i] = c.Text
		sourceIDs[i] = c.SourceID
		sources[i] = c.Source
		urls[i] = c.URL
		authors[i] = c.Author
		pageNumbers[i] = intPtrToInt64(c.PageNumber)
		chunkNumbers[i] = intPtrToInt64(c.ChunkNumber)
		tableIndexes[i] = intPtrToInt64(c.TableIndex)
		imageIndexes[i] = intPtrToInt64(c.ImageIndex)
		vectors[i] = toFloat32(c.Embedding)
	}

	_, err := m.client.Insert(ctx, name, "",
		entity.NewColumnVarChar("chunk_id", ids),
		entity.NewColumnVarChar("document_id", docIDs),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("source_id", sourceIDs),
		entity.NewColumnVarChar("source", sources),
		entity.NewColumnVarChar("url", urls),
		entity.NewColumnVarChar("author", authors),
		entity.NewColumnInt64("page_number", pageNumbers),
		entity.NewColumnInt64("chunk_number", chunkNumbers),
		entity.NewColumnInt64("table_index", tableIndexes),
		entity.NewColumnInt64("image_index", imageIndexes),
		entity.NewColumnFloatVector(embeddingFieldName, len(vectors[0]), vectors),
	)
	return err
}

// milvusUnsetIndex marks an absent optional provenance field: Milvus's Int64
// columns have no null representation, so -1 round-trips to nil the same way
// the string-metadata back-ends treat an absent key.
const milvusUnsetIndex int64 = -1

func intPtrToInt64(v *int) int64 {
	if v == nil {
		return milvusUnsetIndex
	}
	return int64(*v)
}

func int64ToIntPtr(v int64) *int {
	if v == milvusUnsetIndex {
		return nil
	}
	n := int(v)
	return &n
}

// milvusInt64 narrows the untyped Get() result of an Int64 column back to
// int64; a wrong/missing column type falls back to the unset sentinel.
func milvusInt64(v any) int64 {
	if n, ok := v.(int64); ok {
		return n
	}
	return milvusUnsetIndex
}

func (m *milvusStore) Query(ctx context.Context, name string, queryVector []float64, k int, filters []Filter) ([]ScoredChunk, error) {
	expr := milvusFilterExpr(filters)
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, rferrors.Collection(name, "build_search_param", err)
	}

	results, err := m.client.Search(ctx, name, nil, expr,
		[]string{"chunk_id", "document_id", "text", "source_id", "source", "url", "author",
			"page_number", "chunk_number", "table_index", "image_index"},
		[]entity.Vector{entity.FloatVector(toFloat32(queryVector))},
		embeddingFieldName, milvusMetric(MetricCosine), k, sp)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not exist") || strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, rferrors.Collection(name, "query", err)
		}
		return nil, rferrors.Collection(name, "query", err)
	}
	return unwrapMilvusResults(results), nil
}

func (m *milvusStore) Retrieve(ctx context.Context, embedder Embedder, name, textQuery string, k int, filters []Filter) ([]ScoredChunk, error) {
	return retrieveViaQuery(ctx, m, embedder, name, textQuery, k, filters)
}

func (m *milvusStore) DeleteChunks(ctx context.Context, name string, chunkIDs []string) (int, error) {
	if len(chunkIDs) == 0 {
		return 0, nil
	}
	quoted := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("chunk_id in [%s]", strings.Join(quoted, ","))
	if err := m.client.Delete(ctx, name, "", expr); err != nil {
		return 0, rferrors.Collection(name, "delete_chunks", err)
	}
	return len(chunkIDs), nil
}

func milvusMetric(metric Metric) entity.MetricType {
	switch metric {
	case MetricInnerProduct:
		return entity.IP
	case MetricL2:
		return entity.L2
	default:
		return entity.COSINE
	}
}

func milvusFilterExpr(filters []Filter) string {
	if len(filters) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Operator {
		case OpEq:
			clauses = append(clauses, fmt.Sprintf("%s == %q", f.Field, fmt.Sprint(f.Value)))
		case OpGte:
			clauses = append(clauses, fmt.Sprintf("%s >= %v", f.Field, f.Value))
		case OpLte:
			clauses = append(clauses, fmt.Sprintf("%s <= %v", f.Field, f.Value))
		case OpIn:
			clauses = append(clauses, fmt.Sprintf("%s in %v", f.Field, f.Value))
		}
	}
	return strings.Join(clauses, " and ")
}

func unwrapMilvusResults(results []client.SearchResult) []ScoredChunk {
	var out []ScoredChunk
	for _, rs := range results {
		for i := 0; i < rs.ResultCount; i++ {
			chunkID, _ := rs.Fields.GetColumn("chunk_id").Get(i)
			docID, _ := rs.Fields.GetColumn("document_id").Get(i)
			text, _ := rs.Fields.GetColumn("text").Get(i)
			sourceID, _ := rs.Fields.GetColumn("source_id").Get(i)
			source, _ := rs.Fields.GetColumn("source").Get(i)
			url, _ := rs.Fields.GetColumn("url").Get(i)
			author, _ := rs.Fields.GetColumn("author").Get(i)
			pageNumber, _ := rs.Fields.GetColumn("page_number").Get(i)
			chunkNumber, _ := rs.Fields.GetColumn("chunk_number").Get(i)
			tableIndex, _ := rs.Fields.GetColumn("table_index").Get(i)
			imageIndex, _ := rs.Fields.GetColumn("image_index").Get(i)

			out = append(out, ScoredChunk{
				ChunkID: fmt.Sprint(chunkID),
				Score:   float64(rs.Scores[i]),
				Chunk: Chunk{
					ChunkID:     fmt.Sprint(chunkID),
					DocumentID:  fmt.Sprint(docID),
					Text:        fmt.Sprint(text),
					SourceID:    fmt.Sprint(sourceID),
					Source:      fmt.Sprint(source),
					URL:         fmt.Sprint(url),
					Author:      fmt.Sprint(author),
					PageNumber:  int64ToIntPtr(milvusInt64(pageNumber)),
					ChunkNumber: int64ToIntPtr(milvusInt64(chunkNumber)),
					TableIndex:  int64ToIntPtr(milvusInt64(tableIndex)),
					ImageIndex:  int64ToIntPtr(milvusInt64(imageIndex)),
				},
			})
		}
	}
	return out
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func chunkIDs(chunks []Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
	}
	return ids
}
