// Package chunk implements the three chunking strategies of the
// specification's Chunker component (C2): fixed-window, semantic, and
// token-based. The sentence splitting and overlap-estimation code is
// grounded on the teacher's rag/chunk.go TextChunker.
package chunk

import (
	"regexp"
	"strings"

	"github.com/ragforge/ragforge/internal/rferrors"
)

// Strategy selects which chunking algorithm Chunk uses.
type Strategy string

const (
	StrategyFixed    Strategy = "fixed"
	StrategySemantic Strategy = "semantic"
	StrategyToken    Strategy = "token"
)

// Params configures all three chunking strategies. Not every field applies
// to every strategy; see the doc comment on each Chunk* function.
type Params struct {
	MinChunkSize                int
	MaxChunkSize                int
	Overlap                     int
	SemanticThresholdPercentile float64 // 0..100, used by StrategySemantic
	MaxTokens                   int     // used by StrategyToken
}

// Chunk is a single emitted piece of text with its position in the source
// document. TokenSize is counted by whatever TokenCounter the caller
// supplied; callers that only need an approximation can pass WordCounter.
type Chunk struct {
	Text          string
	TokenSize     int
	StartSentence int
	EndSentence   int
}

// TokenCounter abstracts token counting so StrategyToken and StrategySemantic
// can use an exact tokenizer (tiktoken) or a cheap word-based approximation.
type TokenCounter interface {
	Count(text string) int
}

// Embedder is the subset of the embedding client chunk.Semantic needs to
// compute sentence-triplet cosine distances.
type Embedder interface {
	Embed(texts []string) ([][]float64, error)
}

var sentenceBoundary = regexp.MustCompile(`([.!?]+)\s+`)

// SplitSentences splits text on '.', '!', '?' followed by whitespace,
// matching the specification's "regex on .?! followed by whitespace".
// Each sentence keeps its terminal punctuation; the whitespace is dropped.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var sentences []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringSubmatchIndex(text, -1) {
		if p := strings.TrimSpace(text[start:loc[3]]); p != "" {
			sentences = append(sentences, p)
		}
		start = loc[1]
	}
	if p := strings.TrimSpace(text[start:]); p != "" {
		sentences = append(sentences, p)
	}
	return sentences
}

// Fixed implements fixed-window chunking: walk the text in strides of
// max-overlap, emitting slices of length min(max, remaining). A trailing
// slice shorter than MinChunkSize is appended onto the previous chunk.
func Fixed(text string, p Params) ([]string, error) {
	if p.MaxChunkSize < p.MinChunkSize {
		return nil, rferrors.New(rferrors.KindValidation, "max_chunk_size must be >= min_chunk_size", map[string]any{
			"max_chunk_size": p.MaxChunkSize, "min_chunk_size": p.MinChunkSize,
		})
	}
	if text == "" {
		return nil, nil
	}

	stride := p.MaxChunkSize - p.Overlap
	if stride <= 0 {
		stride = p.MaxChunkSize
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + p.MaxChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		slice := strings.TrimSpace(string(runes[start:end]))
		if slice == "" {
			continue
		}
		if len([]rune(slice)) < p.MinChunkSize && len(chunks) > 0 {
			chunks[len(chunks)-1] = chunks[len(chunks)-1] + " " + slice
		} else {
			chunks = append(chunks, slice)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Token implements token-based chunking: greedily accumulate sentences
// until adding the next would exceed MaxTokens, then emit and seed the next
// chunk with an Overlap-token suffix of the previous chunk.
func Token(text string, p Params, counter TokenCounter) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if counter == nil {
		counter = WordCounter{}
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
	}

	for _, s := range sentences {
		st := counter.Count(s)
		if currentTokens > 0 && currentTokens+st > p.MaxTokens {
			flush()
			current = overlapSuffix(current, p.Overlap, counter)
			currentTokens = 0
			for _, c := range current {
				currentTokens += counter.Count(c)
			}
		}
		current = append(current, s)
		currentTokens += st
	}
	flush()
	return chunks
}

// overlapSuffix returns the trailing sentences of prev whose cumulative
// token count is closest to (without much exceeding) overlap tokens.
func overlapSuffix(prev []string, overlap int, counter TokenCounter) []string {
	if overlap <= 0 || len(prev) == 0 {
		return nil
	}
	var out []string
	total := 0
	for i := len(prev) - 1; i >= 0 && total < overlap; i-- {
		out = append([]string{prev[i]}, out...)
		total += counter.Count(prev[i])
	}
	return out
}

// WordCounter is a whitespace-based approximation of token count, the
// teacher's DefaultTokenCounter.
type WordCounter struct{}

func (WordCounter) Count(text string) int { return len(strings.Fields(text)) }
