package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

// elasticsearchStore adapts the fixed chunk schema onto Elasticsearch dense
// vector fields with an HNSW ("hnsw") kNN index. Elasticsearch's kNN _score
// is already "higher is better" (for cosine it is (1+cosine)/2, in [0,1]),
// so no inversion is needed.
type elasticsearchStore struct {
	client *elasticsearch.Client
	log    rflog.Logger
}

func newElasticsearchStore(ctx context.Context, cfg Config) (VectorStore, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{cfg.Address}, APIKey: cfg.APIKey})
	if err != nil {
		return nil, rferrors.Wrap(rferrors.KindCollection, "failed to build elasticsearch client", err, nil)
	}
	return &elasticsearchStore{client: client, log: rflog.Default.With("backend", "elasticsearch")}, nil
}

func (e *elasticsearchStore) Close() error { return nil }

func (e *elasticsearchStore) CreateCollection(ctx context.Context, name string, dimension int, metric Metric, extraMetadata map[string]string) error {
	exists, err := e.client.Indices.Exists([]string{name}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return rferrors.Collection(name, "has_collection", err)
	}
	defer exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	similarity := "cosine"
	if metric == MetricInnerProduct {
		similarity = "dot_product"
	} else if metric == MetricL2 {
		similarity = "l2_norm"
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"chunk_id":    map[string]any{"type": "keyword"},
				"document_id": map[string]any{"type": "keyword"},
				"text":        map[string]any{"type": "text"},
				"source_id":   map[string]any{"type": "keyword"},
				"source":      map[string]any{"type": "keyword"},
				"url":          map[string]any{"type": "keyword"},
				"author":       map[string]any{"type": "keyword"},
				"page_number":  map[string]any{"type": "integer"},
				"chunk_number": map[string]any{"type": "integer"},
				"table_index":  map[string]any{"type": "integer"},
				"image_index":  map[string]any{"type": "integer"},
				embeddingFieldName: map[string]any{
					"type":       "dense_vector",
					"dims":       dimension,
					"index":      true,
					"similarity": similarity,
					"index_options": map[string]any{
						"type":            "hnsw",
						"m":               defaultHNSWM,
						"ef_construction": defaultHNSWEfConstruction,
					},
				},
			},
		},
	}
	body, _ := json.Marshal(mapping)
	res, err := e.client.Indices.Create(name, e.client.Indices.Create.WithContext(ctx), e.client.Indices.Create.WithBody(bytes.NewReader(body)))
	if err != nil {
		return rferrors.Collection(name, "create_collection", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return rferrors.Collection(name, "create_collection", fmt.Errorf("%s", data))
	}
	return nil
}

func (e *elasticsearchStore) DeleteCollection(ctx context.Context, name string) error {
	res, err := e.client.Indices.Delete([]string{name}, e.client.Indices.Delete.WithContext(ctx), e.client.Indices.Delete.WithIgnoreUnavailable(true))
	if err != nil {
		return rferrors.Collection(name, "delete_collection", err)
	}
	defer res.Body.Close()
	return nil
}

func (e *elasticsearchStore) AddChunks(ctx context.Context, name string, chunks []Chunk, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var written []string
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		var buf bytes.Buffer
		for _, c := range chunks[start:end] {
			meta := map[string]any{"index": map[string]any{"_index": name, "_id": c.ChunkID}}
			metaLine, _ := json.Marshal(meta)
			buf.Write(metaLine)
			buf.WriteByte('\n')
			doc := esChunkDoc(c)
			docLine, _ := json.Marshal(doc)
			buf.Write(docLine)
			buf.WriteByte('\n')
		}

		res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()), e.client.Bulk.WithContext(ctx))
		if err != nil {
			return written, rferrors.Document(name, chunkIDs(chunks[start:]), err)
		}
		res.Body.Close()
		for _, c := range chunks[start:end] {
			written = append(written, c.ChunkID)
		}
	}
	return written, nil
}

func (e *elasticsearchStore) Query(ctx context.Context, name string, queryVector []float64, k int, fs []Filter) ([]ScoredChunk, error) {
	body := map[string]any{
		"knn": map[string]any{
			"field":          embeddingFieldName,
			"query_vector":   queryVector,
			"k":              k,
			"num_candidates": k * 10,
			"filter":         esFilter(fs),
		},
	}
	payload, _ := json.Marshal(body)

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(name),
		e.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, rferrors.Collection(name, "query", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, rferrors.Collection(name, "query", fmt.Errorf("elasticsearch returned %s", res.Status()))
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, rferrors.Collection(name, "query_decode", err)
	}
	return parsed.toScoredChunks(), nil
}

func (e *elasticsearchStore) Retrieve(ctx context.Context, embedder Embedder, name, textQuery string, k int, fs []Filter) ([]ScoredChunk, error) {
	return retrieveViaQuery(ctx, e, embedder, name, textQuery, k, fs)
}

func (e *elasticsearchStore) DeleteChunks(ctx context.Context, name string, chunkIDs []string) (int, error) {
	var buf bytes.Buffer
	for _, id := range chunkIDs {
		meta := map[string]any{"delete": map[string]any{"_index": name, "_id": id}}
		line, _ := json.Marshal(meta)
		buf.Write(line)
		buf.WriteByte('\n')
	}
	res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()), e.client.Bulk.WithContext(ctx))
	if err != nil {
		return 0, rferrors.Collection(name, "delete_chunks", err)
	}
	defer res.Body.Close()
	return len(chunkIDs), nil
}

func esChunkDoc(c Chunk) map[string]any {
	return map[string]any{
		"chunk_id":         c.ChunkID,
		"document_id":      c.DocumentID,
		"text":             c.Text,
		"source_id":        c.SourceID,
		"source":           c.Source,
		"url":              c.URL,
		"author":           c.Author,
		"page_number":      c.PageNumber,
		"chunk_number":     c.ChunkNumber,
		"table_index":      c.TableIndex,
		"image_index":      c.ImageIndex,
		embeddingFieldName: c.Embedding,
	}
}

func esFilter(fs []Filter) []map[string]any {
	clauses := make([]map[string]any, 0, len(fs))
	for _, f := range fs {
		switch f.Operator {
		case OpEq:
			clauses = append(clauses, map[string]any{"term": map[string]any{f.Field: f.Value}})
		case OpGte:
			clauses = append(clauses, map[string]any{"range": map[string]any{f.Field: map[string]any{"gte": f.Value}}})
		case OpLte:
			clauses = append(clauses, map[string]any{"range": map[string]any{f.Field: map[string]any{"lte": f.Value}}})
		case OpIn:
			clauses = append(clauses, map[string]any{"terms": map[string]any{f.Field: f.Value}})
		}
	}
	return clauses
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source esChunkSourceID `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esChunkSourceID struct {
	DocumentID  string `json:"document_id"`
	Text        string `json:"text"`
	SourceID    string `json:"source_id"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	PageNumber  *int   `json:"page_number"`
	ChunkNumber *int   `json:"chunk_number"`
	TableIndex  *int   `json:"table_index"`
	ImageIndex  *int   `json:"image_index"`
}

func (r esSearchResponse) toScoredChunks() []ScoredChunk {
	out := make([]ScoredChunk, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		out = append(out, ScoredChunk{
			ChunkID: h.ID,
			Score:   h.Score,
			Chunk: Chunk{
				ChunkID:     h.ID,
				DocumentID:  h.Source.DocumentID,
				Text:        h.Source.Text,
				SourceID:    h.Source.SourceID,
				Source:      h.Source.Source,
				URL:         h.Source.URL,
				Author:      h.Source.Author,
				PageNumber:  h.Source.PageNumber,
				ChunkNumber: h.Source.ChunkNumber,
				TableIndex:  h.Source.TableIndex,
				ImageIndex:  h.Source.ImageIndex,
			},
		})
	}
	return out
}
