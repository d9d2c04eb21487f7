package documents

import (
	"testing"

	"github.com/ragforge/ragforge/internal/chunk"
	"github.com/ragforge/ragforge/internal/rferrors"
)

func testChunker(t *testing.T) *chunk.Chunker {
	t.Helper()
	c, err := chunk.New(chunk.StrategyFixed, chunk.Params{MinChunkSize: 10, MaxChunkSize: 500, Overlap: 20}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error building chunker: %v", err)
	}
	return c
}

func TestRegistryRejectsUnsupportedExtension(t *testing.T) {
	r := NewRegistry(testChunker(t), nil)
	_, err := r.For("memo.rtf")
	if !rferrors.Is(err, rferrors.KindUnsupportedFileType) {
		t.Fatalf("expected unsupported_file_type error, got %v", err)
	}
}

func TestRegistryResolvesKnownExtensions(t *testing.T) {
	r := NewRegistry(testChunker(t), nil)
	for _, ext := range []string{"doc.txt", "doc.pdf", "doc.docx", "doc.xlsx"} {
		if _, err := r.For(ext); err != nil {
			t.Fatalf("unexpected error resolving %s: %v", ext, err)
		}
	}
}

func TestValidGridRejectsSparseMatrix(t *testing.T) {
	grid := [][]string{
		{"", "", ""},
		{"", "", ""},
		{"x", "", ""},
	}
	if validGrid(grid) {
		t.Fatalf("expected sparse grid to be rejected")
	}
}

func TestValidGridAcceptsDenseMatrix(t *testing.T) {
	grid := [][]string{
		{"a", "b"},
		{"c", "d"},
	}
	if !validGrid(grid) {
		t.Fatalf("expected dense 2x2 grid to be accepted")
	}
}

func TestValidGridRejectsInconsistentColumnCount(t *testing.T) {
	grid := [][]string{
		{"a", "b"},
		{"c", "d", "e"},
	}
	if validGrid(grid) {
		t.Fatalf("expected inconsistent column counts to be rejected")
	}
}
