// Package ingest implements C4: orchestrating C3 (format processors) →
// C2 (chunking, already applied by the processor) → C1 (embedding) → C5
// (vector-store upsert) per document, per collection.
package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/documents"
	"github.com/ragforge/ragforge/internal/embed"
	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
	"github.com/ragforge/ragforge/internal/vectorstore"
)

// FileFailure records why one file's ingestion did not complete.
type FileFailure struct {
	File  string
	Stage string
	Cause error
}

// Report is C4's result shape: `{files_succeeded, files_failed[],
// documents_written, chunks_written}`.
type Report struct {
	FilesSucceeded   int
	FilesFailed      []FileFailure
	DocumentsWritten int
	ChunksWritten    int
	FirstError       error
}

// Pipeline wires C3's registry, C1's embedding client, and C5's vector
// store into the C4 orchestration described in §4.4.
type Pipeline struct {
	Registry        *documents.Registry
	Embedder        *embed.Client
	Store           vectorstore.VectorStore
	Resolver        *config.Resolver
	UpsertBatchSize int
	KafkaWriter     *kafka.Writer
	log             rflog.Logger
}

func New(registry *documents.Registry, embedder *embed.Client, store vectorstore.VectorStore, resolver *config.Resolver, kafkaWriter *kafka.Writer) *Pipeline {
	return &Pipeline{
		Registry: registry, Embedder: embedder, Store: store, Resolver: resolver,
		UpsertBatchSize: 100, KafkaWriter: kafkaWriter,
		log: rflog.Default.With("component", "ingest"),
	}
}

// Ingest implements `ingest(collection_id, files) -> IngestionReport`.
func (p *Pipeline) Ingest(ctx context.Context, collectionID, ownerID, collectionName string, dimension int, metric vectorstore.Metric, files []string) (*Report, error) {
	chunkingCfg, err := p.Resolver.Effective(ctx, config.CategoryChunking, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	embedCfg, err := p.Resolver.Effective(ctx, config.CategoryEmbedding, ownerID, collectionID)
	if err != nil {
		return nil, err
	}
	p.log.Info("resolved ingestion config",
		"collection_id", collectionID,
		"chunking_strategy", chunkingCfg["strategy"].Value,
		"embedding_model", embedCfg["model"].Value,
	)

	if err := p.Store.CreateCollection(ctx, collectionName, dimension, metric, nil); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := p.ingestFile(ctx, collectionName, file, report); err != nil {
			if report.FirstError == nil {
				report.FirstError = err
			}
			continue
		}
		report.FilesSucceeded++
	}
	return report, nil
}

func (p *Pipeline) ingestFile(ctx context.Context, collectionName, file string, report *Report) error {
	processor, err := p.Registry.For(file)
	if err != nil {
		report.FilesFailed = append(report.FilesFailed, FileFailure{File: file, Stage: "dispatch", Cause: err})
		return err
	}

	documentID := uuid.NewString()
	stream, err := processor.Process(file, documentID)
	if err != nil {
		report.FilesFailed = append(report.FilesFailed, FileFailure{File: file, Stage: "process", Cause: err})
		return err
	}

	var fileErr error
	for item := range stream {
		if item.Err != nil {
			fileErr = item.Err
			report.FilesFailed = append(report.FilesFailed, FileFailure{File: file, Stage: "process", Cause: item.Err})
			continue
		}
		if err := p.ingestDocument(ctx, collectionName, item.Document, report); err != nil {
			fileErr = err
			report.FilesFailed = append(report.FilesFailed, FileFailure{File: file, Stage: "upsert", Cause: err})
			continue
		}
		report.DocumentsWritten++
	}

	p.publishReport(ctx, file, documentID, fileErr)
	return fileErr
}

// ingestDocument embeds and upserts one document's chunks in
// UpsertBatchSize-sized batches, preserving processor-assigned order within
// the batch even though the upsert wire call itself need not preserve it
// (ordering is carried in chunk_number metadata).
func (p *Pipeline) ingestDocument(ctx context.Context, collectionName string, doc documents.Document, report *Report) error {
	for start := 0; start < len(doc.Chunks); start += p.UpsertBatchSize {
		end := start + p.UpsertBatchSize
		if end > len(doc.Chunks) {
			end = len(doc.Chunks)
		}
		batch := doc.Chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := p.Embedder.Embed(ctx, texts)
		if err != nil {
			return rferrors.DocumentProcessing(doc.DocumentID, "embedding", err)
		}

		records := make([]vectorstore.Chunk, len(batch))
		for i, c := range batch {
			records[i] = toVectorStoreChunk(doc, c, vectors[i])
		}
		written, err := p.Store.AddChunks(ctx, collectionName, records, p.UpsertBatchSize)
		if err != nil {
			return err
		}
		report.ChunksWritten += len(written)
	}
	return nil
}

func toVectorStoreChunk(doc documents.Document, c documents.Chunk, embedding []float64) vectorstore.Chunk {
	page := c.PageNumber
	chunkNum := c.ChunkNumber
	record := vectorstore.Chunk{
		ChunkID:     c.ChunkID,
		DocumentID:  doc.DocumentID,
		Text:        c.Text,
		Embedding:   embedding,
		Source:      filepath.Base(doc.Metadata.SourcePath),
		URL:         doc.Metadata.SourceURL,
		CreatedAt:   time.Now(),
		Author:      doc.Metadata.Author,
		PageNumber:  &page,
		ChunkNumber: &chunkNum,
	}
	if c.Kind == documents.ChunkTable {
		idx := c.TableIndex
		record.TableIndex = &idx
	}
	if c.Kind == documents.ChunkImage {
		idx := c.ImageIndex
		record.ImageIndex = &idx
	}
	return record
}

// publishReport emits an at-least-once audit event per file whose processor
// stream was opened (files rejected at dispatch or by Process get none), per
// SPEC_FULL.md's kafka wiring — failures are logged, not propagated, since
// the ingestion report itself is the source of truth for the caller.
func (p *Pipeline) publishReport(ctx context.Context, file, documentID string, fileErr error) {
	if p.KafkaWriter == nil {
		return
	}
	status := "succeeded"
	if fileErr != nil {
		status = "failed"
	}
	payload := []byte(`{"file":"` + file + `","document_id":"` + documentID + `","status":"` + status + `"}`)
	if err := p.KafkaWriter.WriteMessages(ctx, kafka.Message{Key: []byte(documentID), Value: payload}); err != nil {
		p.log.Warn("failed to publish ingestion report event", "file", file, "error", err)
	}
}
