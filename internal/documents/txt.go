package documents

import (
	"os"

	"github.com/google/uuid"

	"github.com/ragforge/ragforge/internal/chunk"
	"github.com/ragforge/ragforge/internal/rferrors"
)

// TXTProcessor implements Processor for plain text files: one Document per
// file, grounded on the teacher's TextParser (rag/parse.go) but delegating
// chunking to C2 instead of returning a single opaque Content string.
type TXTProcessor struct {
	Chunker *chunk.Chunker
}

func (p *TXTProcessor) Process(filePath, documentID string) (<-chan DocumentOrError, error) {
	out := make(chan DocumentOrError, 1)
	go func() {
		defer close(out)
		data, err := os.ReadFile(filePath)
		if err != nil {
			out <- DocumentOrError{Err: rferrors.DocumentProcessing(documentID, "read", err)}
			return
		}
		pieces, err := p.Chunker.Chunk(string(data))
		if err != nil {
			out <- DocumentOrError{Err: rferrors.DocumentProcessing(documentID, "chunk", err)}
			return
		}
		chunks := make([]Chunk, len(pieces))
		for i, text := range pieces {
			chunks[i] = Chunk{ChunkID: uuid.NewString(), Kind: ChunkText, Text: text, ChunkNumber: i}
		}
		out <- DocumentOrError{Document: Document{
			DocumentID: documentID,
			Metadata:   Metadata{SourcePath: filePath, TotalPages: 1},
			Chunks:     chunks,
		}}
	}()
	return out, nil
}
