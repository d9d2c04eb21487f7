package config

import (
	"context"
	"testing"
)

type fakeStore struct {
	byScope map[Scope][]Entry
}

func (f *fakeStore) EntriesByScope(ctx context.Context, scope Scope, category Category, userID, collectionID string) ([]Entry, error) {
	var out []Entry
	for _, e := range f.byScope[scope] {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestNewEntryValidatesScope(t *testing.T) {
	if _, err := NewEntry(ScopeGlobal, CategoryLLM, "model", "gpt-4o", TypeStr, "user-1", ""); err == nil {
		t.Fatal("expected GLOBAL scope with user_id to be rejected")
	}
	if _, err := NewEntry(ScopeUser, CategoryLLM, "model", "gpt-4o", TypeStr, "", ""); err == nil {
		t.Fatal("expected USER scope without user_id to be rejected")
	}
	if _, err := NewEntry(ScopeCollection, CategoryLLM, "model", "gpt-4o", TypeStr, "user-1", ""); err == nil {
		t.Fatal("expected COLLECTION scope without collection_id to be rejected")
	}
	if _, err := NewEntry(ScopeUser, CategoryLLM, "model", "gpt-4o", TypeStr, "user-1", ""); err != nil {
		t.Fatalf("expected valid USER entry, got %v", err)
	}
}

func TestEffectivePrecedence(t *testing.T) {
	store := &fakeStore{byScope: map[Scope][]Entry{
		ScopeGlobal: {
			{Scope: ScopeGlobal, Category: CategoryLLM, Key: "model", Value: "global-model", Type: TypeStr, Active: true},
		},
		ScopeUser: {
			{Scope: ScopeUser, Category: CategoryLLM, Key: "model", Value: "user-model", Type: TypeStr, Active: true},
		},
		ScopeCollection: {
			{Scope: ScopeCollection, Category: CategoryLLM, Key: "model", Value: "collection-model", Type: TypeStr, Active: true},
		},
	}}
	resolver := NewResolver(store, DeploymentConfig{LLMProvider: "openai", LLMModel: "static-model"})

	resolved, err := resolver.Effective(context.Background(), CategoryLLM, "user-1", "col-1")
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if resolved["model"].Value != "collection-model" {
		t.Fatalf("expected COLLECTION tier to win, got %v", resolved["model"].Value)
	}
	if resolved["model"].Scope != ScopeCollection {
		t.Fatalf("expected source scope COLLECTION, got %v", resolved["model"].Scope)
	}
}

func TestEffectiveFallsBackToStaticDefault(t *testing.T) {
	store := &fakeStore{byScope: map[Scope][]Entry{}}
	resolver := NewResolver(store, DeploymentConfig{LLMModel: "static-model", LLMProvider: "openai"})

	resolved, err := resolver.Effective(context.Background(), CategoryLLM, "", "")
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if resolved["model"].Value != "static-model" {
		t.Fatalf("expected static default, got %v", resolved["model"].Value)
	}
}

func TestEffectiveRejectsTypeMismatch(t *testing.T) {
	store := &fakeStore{byScope: map[Scope][]Entry{
		ScopeGlobal: {
			{Scope: ScopeGlobal, Category: CategoryRetrieval, Key: "top_k", Value: "not-an-int", Type: TypeInt, Active: true},
		},
	}}
	resolver := NewResolver(store, DeploymentConfig{})
	if _, err := resolver.Effective(context.Background(), CategoryRetrieval, "", ""); err == nil {
		t.Fatal("expected ConfigTypeError on type mismatch")
	}
}

func TestEffectiveSkipsInactiveEntries(t *testing.T) {
	store := &fakeStore{byScope: map[Scope][]Entry{
		ScopeGlobal: {
			{Scope: ScopeGlobal, Category: CategoryLLM, Key: "model", Value: "inactive-model", Type: TypeStr, Active: false},
		},
	}}
	resolver := NewResolver(store, DeploymentConfig{LLMModel: "static-model"})
	resolved, err := resolver.Effective(context.Background(), CategoryLLM, "", "")
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if resolved["model"].Value != "static-model" {
		t.Fatalf("expected inactive entry to be skipped, got %v", resolved["model"].Value)
	}
}
