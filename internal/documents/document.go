// Package documents implements the format processors (C3): one variant per
// supported file extension, each yielding a lazy stream of Document values
// whose chunks are produced by internal/chunk. The Document/Metadata shape
// and the page/worksheet-per-value emission rule are grounded on the
// teacher's rag/parse.go Document and Parser, generalized from "one
// Document per file" to "one Document per page/worksheet" per the
// specification.
package documents

import "time"

// Metadata describes whole-document properties extracted once per file.
type Metadata struct {
	Title        string
	Author       string
	CreatedAt    time.Time
	ModifiedAt   time.Time
	TotalPages   int
	SourceID     string
	SourcePath   string
	SourceURL    string
}

// Document is one logical unit emitted by a processor: a PDF page, an XLSX
// worksheet, or (for TXT/DOCX) the whole file.
type Document struct {
	DocumentID string
	PageNumber int // 0 when the format has no page concept
	Metadata   Metadata
	Chunks     []Chunk
}

// ChunkKind distinguishes the three chunk shapes format processors emit,
// per the specification's "text blocks, then tables, then images" order.
type ChunkKind string

const (
	ChunkText  ChunkKind = "text"
	ChunkTable ChunkKind = "table"
	ChunkImage ChunkKind = "image"
)

// Chunk is a single processor-emitted unit of content, carrying enough
// positional metadata for the vector-store adapter's schema (C5).
type Chunk struct {
	ChunkID     string
	Kind        ChunkKind
	Text        string
	PageNumber  int
	ChunkNumber int
	TableIndex  int
	ImageIndex  int
}

// Processor is the capability every format variant implements: process one
// file, identified by document_id, into a lazy sequence of Document values.
// Implementations push onto the returned channel from a goroutine and close
// it when done; an element with a non-nil Err reports a failure, and a
// processor may keep sending elements after it (XLSX does, per worksheet).
type Processor interface {
	Process(filePath, documentID string) (<-chan DocumentOrError, error)
}

// DocumentOrError is one element of a Processor's lazy stream.
type DocumentOrError struct {
	Document Document
	Err      error
}
