// Package rewrite implements C8: optional pre-retrieval query expansion,
// composable in declared order.
package rewrite

import (
	"context"
	"strings"

	"github.com/ragforge/ragforge/internal/llm"
	"github.com/ragforge/ragforge/internal/rferrors"
	"github.com/ragforge/ragforge/internal/rflog"
)

// Rewriter transforms a query, optionally using prior context.
type Rewriter interface {
	Name() string
	Rewrite(ctx context.Context, query string, priorContext string) (string, error)
}

// Chain runs rewriters in declared order. A rewriter failure is logged and
// the previous rewriter's output passes through unchanged to the next one.
type Chain struct {
	rewriters []Rewriter
	log       rflog.Logger
}

func NewChain(log rflog.Logger, rewriters ...Rewriter) *Chain {
	return &Chain{rewriters: rewriters, log: log}
}

func (c *Chain) Run(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", rferrors.InvalidQuery("query must not be empty")
	}
	current := query
	for _, r := range c.rewriters {
		next, err := r.Rewrite(ctx, current, query)
		if err != nil {
			if c.log != nil {
				c.log.Warn("rewriter failed, passing through previous output", "rewriter", r.Name(), "error", err)
			}
			continue
		}
		current = next
	}
	return current, nil
}

// SimpleExpander appends a fixed boolean expansion suffix once. Idempotent:
// reapplying to an already-expanded query is a no-op.
type SimpleExpander struct {
	Suffix string
}

func NewSimpleExpander() *SimpleExpander {
	return &SimpleExpander{Suffix: " OR related terms OR synonyms"}
}

func (s *SimpleExpander) Name() string { return "simple_expander" }

func (s *SimpleExpander) Rewrite(ctx context.Context, query string, priorContext string) (string, error) {
	if strings.HasSuffix(query, s.Suffix) {
		return query, nil
	}
	return query + s.Suffix, nil
}

// HypotheticalDocumentEmbedding (HyDE) asks an LLM for a hypothetical answer
// and concatenates it onto the query. On LLM failure it returns the
// original query unchanged rather than propagating the error, per spec.
type HypotheticalDocumentEmbedding struct {
	Chat      llm.ChatProvider
	MaxTokens int
}

func NewHyDE(chat llm.ChatProvider, maxTokens int) *HypotheticalDocumentEmbedding {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &HypotheticalDocumentEmbedding{Chat: chat, MaxTokens: maxTokens}
}

func (h *HypotheticalDocumentEmbedding) Name() string { return "hyde" }

func (h *HypotheticalDocumentEmbedding) Rewrite(ctx context.Context, query string, priorContext string) (string, error) {
	hypothetical, err := h.Chat.Chat(ctx, []llm.Message{
		{Role: "system", Content: "Write a brief hypothetical answer to the question, as if you were certain of the facts."},
		{Role: "user", Content: query},
	}, llm.ChatParams{MaxTokens: h.MaxTokens})
	if err != nil {
		return query, nil
	}
	return query + " " + hypothetical, nil
}
