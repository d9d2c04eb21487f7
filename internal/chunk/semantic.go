package chunk

import (
	"math"
	"sort"
	"strings"
)

// Semantic implements semantic chunking: sentences are grouped into
// overlapping triplets, each triplet is embedded, and a breakpoint is
// inserted wherever the cosine distance between consecutive triplet
// embeddings exceeds the SemanticThresholdPercentile of all distances.
// Chunks whose token count falls outside [MinChunkSize, MaxChunkSize] are
// discarded; per the resolved open question, if every resulting chunk falls
// outside that range the function falls back to Fixed.
func Semantic(text string, p Params, embedder Embedder, counter TokenCounter) ([]string, error) {
	sentences := SplitSentences(text)
	if len(sentences) < 3 {
		return fallbackFixed(text, p, sentences)
	}
	if counter == nil {
		counter = WordCounter{}
	}

	triplets := buildTriplets(sentences)
	embeddings, err := embedder.Embed(triplets)
	if err != nil {
		return nil, err
	}

	distances := make([]float64, 0, len(embeddings)-1)
	for i := 1; i < len(embeddings); i++ {
		distances = append(distances, 1-cosineSimilarity(embeddings[i-1], embeddings[i]))
	}
	threshold := percentile(distances, p.SemanticThresholdPercentile)

	var chunks []string
	var current []string
	for i, s := range sentences {
		current = append(current, s)
		if i == len(sentences)-1 {
			continue
		}
		if i < len(distances) && distances[i] > threshold {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	chunks = withinBounds(chunks, p, counter)
	if len(chunks) == 0 {
		return fallbackFixed(text, p, sentences)
	}
	return chunks, nil
}

func fallbackFixed(text string, p Params, sentences []string) ([]string, error) {
	if len(sentences) == 0 {
		return nil, nil
	}
	return Fixed(text, p)
}

// withinBounds returns the chunks whose token count lies in
// [MinChunkSize, MaxChunkSize], discarding the rest.
func withinBounds(chunks []string, p Params, counter TokenCounter) []string {
	var kept []string
	for _, c := range chunks {
		n := counter.Count(c)
		if n >= p.MinChunkSize && n <= p.MaxChunkSize {
			kept = append(kept, c)
		}
	}
	return kept
}

// buildTriplets groups sentences into overlapping windows of three,
// centered on each sentence, for smoother breakpoint detection.
func buildTriplets(sentences []string) []string {
	triplets := make([]string, len(sentences))
	for i := range sentences {
		start := i - 1
		if start < 0 {
			start = 0
		}
		end := i + 2
		if end > len(sentences) {
			end = len(sentences)
		}
		triplets[i] = strings.Join(sentences[start:end], " ")
	}
	return triplets
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// percentile returns the p-th percentile (0..100) of values using
// nearest-rank interpolation over a sorted copy.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
