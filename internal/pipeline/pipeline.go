// Package pipeline assembles a user's resolved provider/model/template/
// parameter set for display, grounded on original_source/'s
// user_provider_service.py (§ SUPPLEMENTED FEATURES item 3, `GET
// /api/users/{id}/pipeline`).
package pipeline

import (
	"context"

	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/llm"
)

// Record is the pipeline record wire shape for `GET /api/users/{id}/pipeline`.
type Record struct {
	UserID            string
	LLMProvider       string
	LLMModel          string
	EmbeddingProvider string
	EmbeddingModel    string
	DefaultTemplateID string
	RetrievalTopK     int
	RerankEnabled     bool
	CoTEnabled        bool
}

// TemplateLookup resolves a user's default RAG_QUERY template id.
type TemplateLookup interface {
	DefaultTemplateID(ctx context.Context, userID string) (string, error)
}

// Assembler builds a Record from the config resolver and the default-template
// lookup. Registry is held on the Assembler but Assemble does not consult it.
type Assembler struct {
	Resolver  *config.Resolver
	Registry  *llm.Registry
	Templates TemplateLookup
}

func New(resolver *config.Resolver, registry *llm.Registry, templates TemplateLookup) *Assembler {
	return &Assembler{Resolver: resolver, Registry: registry, Templates: templates}
}

func (a *Assembler) Assemble(ctx context.Context, userID, collectionID string) (*Record, error) {
	llmCfg, err := a.Resolver.Effective(ctx, config.CategoryLLM, userID, collectionID)
	if err != nil {
		return nil, err
	}
	embedCfg, err := a.Resolver.Effective(ctx, config.CategoryEmbedding, userID, collectionID)
	if err != nil {
		return nil, err
	}
	retrievalCfg, err := a.Resolver.Effective(ctx, config.CategoryRetrieval, userID, collectionID)
	if err != nil {
		return nil, err
	}
	rerankCfg, err := a.Resolver.Effective(ctx, config.CategoryReranking, userID, collectionID)
	if err != nil {
		return nil, err
	}
	cotCfg, err := a.Resolver.Effective(ctx, config.CategoryCoT, userID, collectionID)
	if err != nil {
		return nil, err
	}

	record := &Record{
		UserID:            userID,
		LLMProvider:       stringValue(llmCfg, "provider"),
		LLMModel:          stringValue(llmCfg, "model"),
		EmbeddingProvider: stringValue(embedCfg, "provider"),
		EmbeddingModel:    stringValue(embedCfg, "model"),
		RetrievalTopK:     intValue(retrievalCfg, "top_k", 5),
		RerankEnabled:     boolValue(rerankCfg, "rerank_enabled"),
		CoTEnabled:        boolValue(cotCfg, "cot_enabled"),
	}

	if a.Templates != nil {
		if id, terr := a.Templates.DefaultTemplateID(ctx, userID); terr == nil {
			record.DefaultTemplateID = id
		}
	}
	return record, nil
}

func stringValue(m map[string]config.Resolved, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.Value.(string); ok {
			return s
		}
	}
	return ""
}

func intValue(m map[string]config.Resolved, key string, def int) int {
	if v, ok := m[key]; ok {
		if i, ok := v.Value.(int); ok {
			return i
		}
	}
	return def
}

func boolValue(m map[string]config.Resolved, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.Value.(bool); ok {
			return b
		}
	}
	return false
}
