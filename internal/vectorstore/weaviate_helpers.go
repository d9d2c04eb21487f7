package vectorstore

import (
	"fmt"

	"github.com/weaviate/weaviate-go-client/v4/weaviate/models"
)

func weaviateClassSchema(class, distance string, m, efConstruction int) *models.Class {
	return &models.Class{
		Class:      class,
		Vectorizer: "none",
		VectorIndexConfig: map[string]any{
			"distance":       distance,
			"maxConnections": m,
			"efConstruction": efConstruction,
		},
		Properties: []*models.Property{
			{Name: "chunk_id", DataType: []string{"text"}},
			{Name: "document_id", DataType: []string{"text"}},
			{Name: "text", DataType: []string{"text"}},
			{Name: "source_id", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "url", DataType: []string{"text"}},
			{Name: "author", DataType: []string{"text"}},
			{Name: "page_number", DataType: []string{"int"}},
			{Name: "chunk_number", DataType: []string{"int"}},
			{Name: "table_index", DataType: []string{"int"}},
			{Name: "image_index", DataType: []string{"int"}},
		},
	}
}

func weaviateObjectFromChunk(class string, c Chunk) *models.Object {
	props := map[string]any{
		"chunk_id":    c.ChunkID,
		"document_id": c.DocumentID,
		"text":        c.Text,
		"source_id":   c.SourceID,
		"source":      c.Source,
		"url":         c.URL,
		"author":      c.Author,
	}
	if c.PageNumber != nil {
		props["page_number"] = *c.PageNumber
	}
	if c.ChunkNumber != nil {
		props["chunk_number"] = *c.ChunkNumber
	}
	if c.TableIndex != nil {
		props["table_index"] = *c.TableIndex
	}
	if c.ImageIndex != nil {
		props["image_index"] = *c.ImageIndex
	}
	return &models.Object{
		Class:      class,
		ID:         mustWeaviateID(c.ChunkID),
		Properties: props,
		Vector:     toFloat32(c.Embedding),
	}
}

// mustWeaviateID Weaviate requires UUID-shaped object ids; ragforge's chunk
// ids are already UUIDs (the document processors generate them with
// uuid.NewString), so the id is passed through unchanged and not validated.
func mustWeaviateID(id string) string { return id }

// weaviateIntProp decodes an optional int property out of a GraphQL result
// row, where numbers always arrive as float64 regardless of the declared
// Weaviate property type.
func weaviateIntProp(v any) *int {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

func parseWeaviateResult(resp *models.GraphQLResponse, class string) []ScoredChunk {
	data, ok := resp.Data["Get"].(map[string]any)
	if !ok {
		return nil
	}
	rows, ok := data[class].([]any)
	if !ok {
		return nil
	}
	out := make([]ScoredChunk, 0, len(rows))
	for _, raw := range rows {
		row, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		additional, _ := row["_additional"].(map[string]any)
		certainty, _ := additional["certainty"].(float64)
		chunkID := fmt.Sprint(row["chunk_id"])
		out = append(out, ScoredChunk{
			ChunkID: chunkID,
			Score:   certainty,
			Chunk: Chunk{
				ChunkID:     chunkID,
				DocumentID:  fmt.Sprint(row["document_id"]),
				Text:        fmt.Sprint(row["text"]),
				SourceID:    fmt.Sprint(row["source_id"]),
				Source:      fmt.Sprint(row["source"]),
				URL:         fmt.Sprint(row["url"]),
				Author:      fmt.Sprint(row["author"]),
				PageNumber:  weaviateIntProp(row["page_number"]),
				ChunkNumber: weaviateIntProp(row["chunk_number"]),
				TableIndex:  weaviateIntProp(row["table_index"]),
				ImageIndex:  weaviateIntProp(row["image_index"]),
			},
		})
	}
	return out
}
