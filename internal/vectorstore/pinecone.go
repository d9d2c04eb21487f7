package vectorstore

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"

	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

// pineconeStore adapts the fixed chunk schema onto Pinecone serverless
// indexes. Pinecone's cosine metric already returns similarity in
// [-1,1] with higher being better, so scores pass through unchanged.
type pineconeStore struct {
	client *pinecone.Client
	conns  map[string]*pinecone.IndexConnection
	log    rflog.Logger
}

func newPineconeStore(ctx context.Context, cfg Config) (VectorStore, error) {
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, rferrors.Wrap(rferrors.KindCollection, "failed to build pinecone client", err, nil)
	}
	return &pineconeStore{client: client, conns: make(map[string]*pinecone.IndexConnection), log: rflog.Default.With("backend", "pinecone")}, nil
}

func (p *pineconeStore) Close() error {
	for _, c := range p.conns {
		c.Close()
	}
	return nil
}

func pineconeMetric(metric Metric) pinecone.IndexMetric {
	switch metric {
	case MetricInnerProduct:
		return pinecone.Dotproduct
	case MetricL2:
		return pinecone.Euclidean
	default:
		return pinecone.Cosine
	}
}

func (p *pineconeStore) CreateCollection(ctx context.Context, name string, dimension int, metric Metric, extraMetadata map[string]string) error {
	_, err := p.client.DescribeIndex(ctx, name)
	if err == nil {
		return nil
	}
	dim := int32(dimension)
	_, err = p.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      name,
		Dimension: &dim,
		Metric:    pineconeMetricPtr(pineconeMetric(metric)),
		Cloud:     pinecone.Aws,
		Region:    "us-east-1",
	})
	if err != nil {
		return rferrors.Collection(name, "create_collection", err)
	}
	return nil
}

func pineconeMetricPtr(m pinecone.IndexMetric) *pinecone.IndexMetric { return &m }

func (p *pineconeStore) DeleteCollection(ctx context.Context, name string) error {
	if err := p.client.DeleteIndex(ctx, name); err != nil {
		return rferrors.Collection(name, "delete_collection", err)
	}
	delete(p.conns, name)
	return nil
}

func (p *pineconeStore) indexConn(ctx context.Context, name string) (*pinecone.IndexConnection, error) {
	if conn, ok := p.conns[name]; ok {
		return conn, nil
	}
	desc, err := p.client.DescribeIndex(ctx, name)
	if err != nil {
		return nil, rferrors.Collection(name, "describe_index", err)
	}
	conn, err := p.client.Index(pinecone.NewIndexConnParams{Host: desc.Host})
	if err != nil {
		return nil, rferrors.Collection(name, "connect_index", err)
	}
	p.conns[name] = conn
	return conn, nil
}

func (p *pineconeStore) AddChunks(ctx context.Context, name string, chunks []Chunk, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	conn, err := p.indexConn(ctx, name)
	if err != nil {
		return nil, err
	}

	var written []string
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		vecs := make([]*pinecone.Vector, 0, end-start)
		for _, c := range chunks[start:end] {
			vecs = append(vecs, &pinecone.Vector{
				Id:       c.ChunkID,
				Values:   pineconeFloats(c.Embedding),
				Metadata: pineconeMetadata(c),
			})
		}
		if _, err := conn.UpsertVectors(ctx, vecs); err != nil {
			return written, rferrors.Document(name, chunkIDs(chunks[start:]), err)
		}
		for _, c := range chunks[start:end] {
			written = append(written, c.ChunkID)
		}
	}
	return written, nil
}

func (p *pineconeStore) Query(ctx context.Context, name string, queryVector []float64, k int, fs []Filter) ([]ScoredChunk, error) {
	conn, err := p.indexConn(ctx, name)
	if err != nil {
		return nil, err
	}
	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          pineconeFloats(queryVector),
		TopK:            uint32(k),
		IncludeValues:   false,
		IncludeMetadata: true,
		MetadataFilter:  pineconeFilter(fs),
	})
	if err != nil {
		return nil, rferrors.Collection(name, "query", err)
	}
	out := make([]ScoredChunk, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		out = append(out, ScoredChunk{
			ChunkID: m.Vector.Id,
			Score:   float64(m.Score),
			Chunk:   chunkFromPineconeMetadata(m.Vector.Id, m.Vector.Metadata),
		})
	}
	return out, nil
}

func (p *pineconeStore) Retrieve(ctx context.Context, embedder Embedder, name, textQuery string, k int, fs []Filter) ([]ScoredChunk, error) {
	return retrieveViaQuery(ctx, p, embedder, name, textQuery, k, fs)
}

func (p *pineconeStore) DeleteChunks(ctx context.Context, name string, chunkIDs []string) (int, error) {
	conn, err := p.indexConn(ctx, name)
	if err != nil {
		return 0, err
	}
	if err := conn.DeleteVectorsById(ctx, chunkIDs); err != nil {
		return 0, rferrors.Collection(name, "delete_chunks", err)
	}
	return len(chunkIDs), nil
}

func pineconeFloats(in []float64) []float32 { return toFloat32(in) }

func pineconeMetadata(c Chunk) *pinecone.Metadata {
	fields := map[string]any{
		"document_id": c.DocumentID,
		"text":        c.Text,
		"source_id":   c.SourceID,
		"source":      c.Source,
		"url":         c.URL,
		"author":      c.Author,
	}
	if c.PageNumber != nil {
		fields["page_number"] = intPtrToString(c.PageNumber)
	}
	if c.ChunkNumber != nil {
		fields["chunk_number"] = intPtrToString(c.ChunkNumber)
	}
	if c.TableIndex != nil {
		fields["table_index"] = intPtrToString(c.TableIndex)
	}
	if c.ImageIndex != nil {
		fields["image_index"] = intPtrToString(c.ImageIndex)
	}
	md, _ := pinecone.NewMetadata(fields)
	return md
}

func chunkFromPineconeMetadata(id string, md *pinecone.Metadata) Chunk {
	if md == nil {
		return Chunk{ChunkID: id}
	}
	fields := md.AsMap()
	get := func(k string) string {
		v, _ := fields[k].(string)
		return v
	}
	return Chunk{
		ChunkID:     id,
		DocumentID:  get("document_id"),
		Text:        get("text"),
		SourceID:    get("source_id"),
		Source:      get("source"),
		URL:         get("url"),
		Author:      get("author"),
		PageNumber:  stringToIntPtr(get("page_number")),
		ChunkNumber: stringToIntPtr(get("chunk_number")),
		TableIndex:  stringToIntPtr(get("table_index")),
		ImageIndex:  stringToIntPtr(get("image_index")),
	}
}

func pineconeFilter(fs []Filter) *pinecone.Metadata {
	if len(fs) == 0 {
		return nil
	}
	fields := make(map[string]any, len(fs))
	for _, f := range fs {
		if f.Operator == OpEq {
			fields[fmt.Sprintf("%s", f.Field)] = f.Value
		}
	}
	if len(fields) == 0 {
		return nil
	}
	md, _ := pinecone.NewMetadata(fields)
	return md
}
