package documents

import (
	"github.com/google/uuid"
	"github.com/nguyenthenguyen/docx"

	"github.com/ragforge/ragforge/internal/chunk"
	"github.com/ragforge/ragforge/internal/rferrors"
)

// DOCXProcessor implements Processor for Word documents: one Document per
// file, same as TXTProcessor, since DOCX has no native page boundary that
// survives extraction without a rendering engine.
type DOCXProcessor struct {
	Chunker *chunk.Chunker
}

func (p *DOCXProcessor) Process(filePath, documentID string) (<-chan DocumentOrError, error) {
	out := make(chan DocumentOrError, 1)
	go func() {
		defer close(out)

		r, err := docx.ReadDocxFile(filePath)
		if err != nil {
			out <- DocumentOrError{Err: rferrors.DocumentProcessing(documentID, "open", err)}
			return
		}
		defer r.Close()

		text := r.Editable().GetContent()
		pieces, err := p.Chunker.Chunk(text)
		if err != nil {
			out <- DocumentOrError{Err: rferrors.DocumentProcessing(documentID, "chunk", err)}
			return
		}

		chunks := make([]Chunk, len(pieces))
		for i, t := range pieces {
			chunks[i] = Chunk{ChunkID: uuid.NewString(), Kind: ChunkText, Text: t, ChunkNumber: i}
		}
		out <- DocumentOrError{Document: Document{
			DocumentID: documentID,
			Metadata:   Metadata{SourcePath: filePath, TotalPages: 1},
			Chunks:     chunks,
		}}
	}()
	return out, nil
}
