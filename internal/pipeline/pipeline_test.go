package pipeline

import (
	"context"
	"testing"

	"github.com/ragforge/ragforge/internal/config"
)

type fakeConfigStore struct {
	entries map[config.Category][]config.Entry
}

func (f *fakeConfigStore) EntriesByScope(ctx context.Context, scope config.Scope, category config.Category, userID, collectionID string) ([]config.Entry, error) {
	if scope != config.ScopeGlobal {
		return nil, nil
	}
	return f.entries[category], nil
}

type fakeTemplateLookup struct {
	id  string
	err error
}

func (f *fakeTemplateLookup) DefaultTemplateID(ctx context.Context, userID string) (string, error) {
	return f.id, f.err
}

func TestAssembleResolvesAllCategories(t *testing.T) {
	store := &fakeConfigStore{entries: map[config.Category][]config.Entry{
		config.CategoryReranking: {{Scope: config.ScopeGlobal, Category: config.CategoryReranking, Key: "rerank_enabled", Value: true, Type: config.TypeBool, Active: true}},
	}}
	resolver := config.NewResolver(store, config.DeploymentConfig{LLMProvider: "openai", LLMModel: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"})
	templates := &fakeTemplateLookup{id: "tpl-1"}

	assembler := New(resolver, nil, templates)
	record, err := assembler.Assemble(context.Background(), "user-1", "col-1")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if record.LLMModel != "gpt-4o-mini" {
		t.Fatalf("expected resolved LLM model, got %q", record.LLMModel)
	}
	if !record.RerankEnabled {
		t.Fatal("expected rerank_enabled to resolve true from the GLOBAL override")
	}
	if record.DefaultTemplateID != "tpl-1" {
		t.Fatalf("expected default template id to be looked up, got %q", record.DefaultTemplateID)
	}
}

func TestAssembleToleratesMissingTemplateLookup(t *testing.T) {
	store := &fakeConfigStore{entries: map[config.Category][]config.Entry{}}
	resolver := config.NewResolver(store, config.DeploymentConfig{})
	assembler := New(resolver, nil, nil)
	record, err := assembler.Assemble(context.Background(), "user-1", "col-1")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if record.DefaultTemplateID != "" {
		t.Fatalf("expected empty template id without a lookup, got %q", record.DefaultTemplateID)
	}
}
