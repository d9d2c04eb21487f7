// Package cot implements C10: question classification, decomposition,
// budgeted iterative C9 invocation, and aggregation.
package cot

import "strings"

// Category is the surface-feature classification of a question.
type Category string

const (
	CategorySimple     Category = "simple"
	CategoryMultiPart  Category = "multi_part"
	CategoryCausal     Category = "causal"
	CategoryComparison Category = "comparison"
)

var (
	whWords          = []string{"who", "what", "when", "where", "why", "how", "which"}
	comparisonMarkers = []string{"compare", "vs", "versus", "difference between"}
	causalMarkers     = []string{"why", "because", "cause", "reason"}
	conjunctions      = []string{"and", "also", "additionally"}
)

// Classify categorizes a question using the exact surface-feature set named
// in original_source/'s query_rewriter.py and CoT service (§ SUPPLEMENTED
// FEATURES item 5): WH interrogative count, comparison markers, causal
// markers, conjunction count.
func Classify(question string) Category {
	lower := strings.ToLower(question)

	whCount := countOccurrences(lower, whWords)
	hasComparison := containsAny(lower, comparisonMarkers)
	hasCausal := containsAny(lower, causalMarkers)
	conjunctionCount := countOccurrences(lower, conjunctions)

	switch {
	case hasComparison:
		return CategoryComparison
	case hasCausal:
		return CategoryCausal
	case conjunctionCount > 0 || whCount > 1:
		return CategoryMultiPart
	default:
		return CategorySimple
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func countOccurrences(s string, words []string) int {
	count := 0
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,?!;:")
		for _, target := range words {
			if w == target {
				count++
				break
			}
		}
	}
	return count
}
