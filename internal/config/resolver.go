package config

import (
	"context"
	"fmt"

	"github.com/ragforge/ragforge/internal/rferrors"
)

// Scope is the precedence tier of a stored runtime-config entry.
type Scope string

const (
	ScopeGlobal     Scope = "GLOBAL"
	ScopeUser       Scope = "USER"
	ScopeCollection Scope = "COLLECTION"
)

// Category groups runtime-config keys by the subsystem that consumes them.
type Category string

const (
	CategoryLLM          Category = "LLM"
	CategoryChunking     Category = "CHUNKING"
	CategoryRetrieval    Category = "RETRIEVAL"
	CategoryEmbedding    Category = "EMBEDDING"
	CategoryCoT          Category = "COT"
	CategoryReranking    Category = "RERANKING"
	CategoryPrompt       Category = "PROMPT"
	CategorySystem       Category = "SYSTEM"
	CategoryConversation Category = "CONVERSATION"
)

// ValueType is the declared Python-equivalent type of a stored value.
type ValueType string

const (
	TypeInt   ValueType = "int"
	TypeFloat ValueType = "float"
	TypeStr   ValueType = "str"
	TypeBool  ValueType = "bool"
	TypeList  ValueType = "list"
	TypeDict  ValueType = "dict"
)

// Entry is one stored runtime-config row. Scope constraints (enforced in
// NewEntry, per the spec's Pydantic-equivalent Open Question) mirror §3's
// invariants: GLOBAL carries no ids, USER carries a user id only, COLLECTION
// carries both. The resolver does not re-check the scope of rows returned by
// its Store.
type Entry struct {
	Scope        Scope
	Category     Category
	Key          string
	Value        any
	Type         ValueType
	UserID       string
	CollectionID string
	Active       bool
	Description  string
	CreatedBy    string
}

// NewEntry validates scope constraints at construction time, the
// authoritative check per the Open Question decision recorded in
// SPEC_FULL.md.
func NewEntry(scope Scope, category Category, key string, value any, typ ValueType, userID, collectionID string) (*Entry, error) {
	if err := validateScope(scope, userID, collectionID); err != nil {
		return nil, err
	}
	return &Entry{
		Scope: scope, Category: category, Key: key, Value: value, Type: typ,
		UserID: userID, CollectionID: collectionID, Active: true,
	}, nil
}

func validateScope(scope Scope, userID, collectionID string) error {
	switch scope {
	case ScopeGlobal:
		if userID != "" || collectionID != "" {
			return rferrors.Validation("GLOBAL scope rejects user_id and collection_id", map[string]any{"scope": scope})
		}
	case ScopeUser:
		if userID == "" {
			return rferrors.Validation("USER scope requires user_id", map[string]any{"scope": scope})
		}
		if collectionID != "" {
			return rferrors.Validation("USER scope rejects collection_id", map[string]any{"scope": scope})
		}
	case ScopeCollection:
		if userID == "" || collectionID == "" {
			return rferrors.Validation("COLLECTION scope requires both user_id and collection_id", map[string]any{"scope": scope})
		}
	default:
		return rferrors.Validation(fmt.Sprintf("unknown scope %q", scope), nil)
	}
	return nil
}

// Store is the persistence boundary the resolver folds onto the static
// deployment tier — satisfied by internal/store's runtime-config repository.
type Store interface {
	EntriesByScope(ctx context.Context, scope Scope, category Category, userID, collectionID string) ([]Entry, error)
}

// Resolved holds both the typed value and the scope it was sourced from,
// satisfying C6's "key → typed value, key → source-scope" contract.
type Resolved struct {
	Value any
	Scope Scope
}

// Resolver implements C6: the hierarchical runtime config resolver.
type Resolver struct {
	store      Store
	deployment DeploymentConfig
}

func NewResolver(store Store, deployment DeploymentConfig) *Resolver {
	return &Resolver{store: store, deployment: deployment}
}

// Effective resolves (category, user_id, collection_id?) into a key→Resolved
// map, applying precedence lowest-first: static defaults, GLOBAL, USER,
// COLLECTION — each higher tier overwrites the prior value and the recorded
// source scope.
func (r *Resolver) Effective(ctx context.Context, category Category, userID, collectionID string) (map[string]Resolved, error) {
	out := map[string]Resolved{}
	r.applyStaticDefaults(category, out)

	tiers := []struct {
		scope  Scope
		userID string
		collID string
	}{
		{ScopeGlobal, "", ""},
		{ScopeUser, userID, ""},
		{ScopeCollection, userID, collectionID},
	}
	for _, tier := range tiers {
		if tier.scope != ScopeGlobal && userID == "" {
			continue
		}
		if tier.scope == ScopeCollection && collectionID == "" {
			continue
		}
		entries, err := r.store.EntriesByScope(ctx, tier.scope, category, tier.userID, tier.collID)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.Active {
				continue
			}
			typed, err := coerce(e.Value, e.Type)
			if err != nil {
				return nil, rferrors.ConfigType(e.Key, string(e.Type))
			}
			out[e.Key] = Resolved{Value: typed, Scope: e.Scope}
		}
	}
	return out, nil
}

// applyStaticDefaults seeds the lowest-precedence tier from the compiled
// deployment config, scoped by category.
func (r *Resolver) applyStaticDefaults(category Category, out map[string]Resolved) {
	seed := func(key string, value any) { out[key] = Resolved{Value: value, Scope: ""} }
	switch category {
	case CategoryChunking:
		seed("strategy", r.deployment.ChunkingStrategy)
		seed("max_chunk_size", r.deployment.ChunkMaxSize)
		seed("min_chunk_size", r.deployment.ChunkMinSize)
		seed("max_overlap", r.deployment.ChunkMaxOverlap)
	case CategoryEmbedding:
		seed("model", r.deployment.EmbeddingModel)
		seed("dimension", r.deployment.EmbeddingDimension)
	case CategoryRetrieval:
		seed("top_k", 5)
		seed("upsert_batch_size", r.deployment.UpsertBatchSize)
	case CategoryLLM:
		seed("provider", r.deployment.LLMProvider)
		seed("model", r.deployment.LLMModel)
		seed("max_retries", 3)
	case CategoryCoT:
		seed("cot_enabled", false)
		seed("max_reasoning_depth", 3)
		seed("token_budget_multiplier", 2.0)
	case CategoryReranking:
		seed("rerank_enabled", false)
		seed("rerank_top_k", 5)
	case CategoryConversation:
		seed("conversation_context_turns", 5)
		seed("conversation_context_tokens", 2000)
	}
}

// coerce converts a stored JSON-decoded value to its declared type,
// returning ConfigTypeError (via the caller) on mismatch.
func coerce(value any, typ ValueType) (any, error) {
	switch typ {
	case TypeInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case float64:
			return int(v), nil
		}
		return nil, fmt.Errorf("not an int")
	case TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
		return nil, fmt.Errorf("not a float")
	case TypeStr:
		if v, ok := value.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("not a string")
	case TypeBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("not a bool")
	case TypeList:
		if v, ok := value.([]any); ok {
			return v, nil
		}
		return nil, fmt.Errorf("not a list")
	case TypeDict:
		if v, ok := value.(map[string]any); ok {
			return v, nil
		}
		return nil, fmt.Errorf("not a dict")
	default:
		return nil, fmt.Errorf("unknown declared type %q", typ)
	}
}
