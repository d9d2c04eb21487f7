package documents

import (
	"path/filepath"
	"strings"

	"github.com/ragforge/ragforge/internal/chunk"
	"github.com/ragforge/ragforge/internal/rferrors"
)

// Registry dispatches a file to its matching Processor by extension, the
// "format processors (C3)" capability the ingestion pipeline (C4) consumes.
type Registry struct {
	processors map[string]Processor
}

// NewRegistry builds the default registry: TXT, PDF, DOCX, and XLSX, all
// sharing one chunk.Chunker configured per the collection's resolved
// CHUNKING settings.
func NewRegistry(chunker *chunk.Chunker, images *ImageStore) *Registry {
	return &Registry{processors: map[string]Processor{
		".txt":  &TXTProcessor{Chunker: chunker},
		".pdf":  NewPDFProcessor(chunker, images),
		".docx": &DOCXProcessor{Chunker: chunker},
		".xlsx": &XLSXProcessor{Chunker: chunker},
	}}
}

// For resolves the processor for a file path by extension.
func (r *Registry) For(filePath string) (Processor, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	p, ok := r.processors[ext]
	if !ok {
		return nil, rferrors.UnsupportedFileType(filePath, ext)
	}
	return p, nil
}
