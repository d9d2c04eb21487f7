package rewrite

import (
	"context"
	"errors"
	"testing"

	"github.com/ragforge/ragforge/internal/llm"
)

type fakeChat struct {
	response string
	err      error
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Chat(ctx context.Context, msgs []llm.Message, params llm.ChatParams) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestChainRejectsEmptyQuery(t *testing.T) {
	chain := NewChain(nil)
	if _, err := chain.Run(context.Background(), "   "); err == nil {
		t.Fatal("expected empty query to be rejected")
	}
}

func TestChainAppliesRewritersInOrder(t *testing.T) {
	chain := NewChain(nil, NewSimpleExpander())
	out, err := chain.Run(context.Background(), "what is RAG")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "what is RAG OR related terms OR synonyms" {
		t.Fatalf("unexpected rewritten query: %q", out)
	}
}

func TestSimpleExpanderIsIdempotent(t *testing.T) {
	expander := NewSimpleExpander()
	once, _ := expander.Rewrite(context.Background(), "foo", "foo")
	twice, _ := expander.Rewrite(context.Background(), once, once)
	if once != twice {
		t.Fatalf("expected idempotent expansion, got %q then %q", once, twice)
	}
}

func TestHyDEFallsBackToOriginalQueryOnFailure(t *testing.T) {
	hyde := NewHyDE(&fakeChat{err: errors.New("llm unavailable")}, 0)
	out, err := hyde.Rewrite(context.Background(), "what is RAG", "")
	if err != nil {
		t.Fatalf("expected no error on LLM failure, got %v", err)
	}
	if out != "what is RAG" {
		t.Fatalf("expected fallback to original query, got %q", out)
	}
}

func TestChainPassesThroughOnRewriterFailure(t *testing.T) {
	chain := NewChain(nil, &failingRewriter{}, NewSimpleExpander())
	out, err := chain.Run(context.Background(), "what is RAG")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "what is RAG OR related terms OR synonyms" {
		t.Fatalf("expected chain to continue past failing rewriter, got %q", out)
	}
}

type failingRewriter struct{}

func (f *failingRewriter) Name() string { return "failing" }

func (f *failingRewriter) Rewrite(ctx context.Context, query string, priorContext string) (string, error) {
	return "", errors.New("boom")
}
