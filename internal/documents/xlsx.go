package documents

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qax-os/excelize/v2"

	"github.com/ragforge/ragforge/internal/chunk"
	"github.com/ragforge/ragforge/internal/rferrors"
)

// XLSXProcessor implements Processor for spreadsheets: one Document per
// worksheet, per the specification's "per page/section" emission rule, whose
// rows are rendered into a single table chunk (cells joined with " | ").
// No text chunks are emitted, and the Chunker is not applied to worksheet
// content.
type XLSXProcessor struct {
	Chunker *chunk.Chunker
}

func (p *XLSXProcessor) Process(filePath, documentID string) (<-chan DocumentOrError, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, rferrors.DocumentProcessing(documentID, "open", err)
	}

	sheets := f.GetSheetList()
	out := make(chan DocumentOrError, len(sheets))

	go func() {
		defer close(out)
		defer f.Close()

		succeeded := 0
		for idx, sheet := range sheets {
			doc, err := p.processSheet(f, sheet, idx, documentID)
			if err != nil {
				out <- DocumentOrError{Err: rferrors.DocumentProcessing(documentID, fmt.Sprintf("sheet:%s", sheet), err)}
				continue
			}
			out <- DocumentOrError{Document: *doc}
			succeeded++
		}
		if succeeded == 0 && len(sheets) > 0 {
			out <- DocumentOrError{Err: rferrors.DocumentProcessing(documentID, "all_sheets", fmt.Errorf("every worksheet failed to process"))}
		}
	}()

	return out, nil
}

func (p *XLSXProcessor) processSheet(f *excelize.File, sheet string, idx int, documentID string) (*Document, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}

	chunks := []Chunk{{
		ChunkID:     uuid.NewString(),
		Kind:        ChunkTable,
		Text:        strings.TrimSpace(b.String()),
		PageNumber:  idx,
		ChunkNumber: 0,
		TableIndex:  0,
	}}

	return &Document{
		DocumentID: documentID,
		PageNumber: idx,
		Metadata:   Metadata{Title: sheet},
		Chunks:     chunks,
	}, nil
}
