package chunk

import "github.com/ragforge/ragforge/internal/rferrors"

// Chunker dispatches to one of the three chunking strategies based on its
// configured Strategy, matching the teacher's NewChunker/Chunk split between
// chunker.go (public surface) and rag/chunk.go (algorithm).
type Chunker struct {
	strategy Strategy
	params   Params
	counter  TokenCounter
	embedder Embedder
}

// New builds a Chunker. embedder may be nil unless strategy is
// StrategySemantic.
func New(strategy Strategy, params Params, counter TokenCounter, embedder Embedder) (*Chunker, error) {
	if params.MaxChunkSize < params.MinChunkSize {
		return nil, rferrors.New(rferrors.KindValidation, "max_chunk_size must be >= min_chunk_size", map[string]any{
			"max_chunk_size": params.MaxChunkSize, "min_chunk_size": params.MinChunkSize,
		})
	}
	if strategy == StrategySemantic && embedder == nil {
		return nil, rferrors.New(rferrors.KindValidation, "semantic chunking requires an embedder", nil)
	}
	if counter == nil {
		counter = WordCounter{}
	}
	return &Chunker{strategy: strategy, params: params, counter: counter, embedder: embedder}, nil
}

// Chunk splits text according to the configured strategy.
func (c *Chunker) Chunk(text string) ([]string, error) {
	switch c.strategy {
	case StrategyFixed:
		return Fixed(text, c.params)
	case StrategyToken:
		return Token(text, c.params, c.counter), nil
	case StrategySemantic:
		return Semantic(text, c.params, c.embedder, c.counter)
	default:
		return nil, rferrors.New(rferrors.KindValidation, "unknown chunk strategy", map[string]any{"strategy": string(c.strategy)})
	}
}
