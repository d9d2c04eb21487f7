// Package sysinit implements C12: on process start, reconcile LLM provider
// and model records against the static deployment configuration.
package sysinit

import (
	"context"

	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/rflog"
)

// Provider is a persisted LLM provider record.
type Provider struct {
	Name      string
	APIKeySet bool
	BaseURL   string
}

// Model is a persisted LLM model record, scoped to a provider and a role
// (generation or embedding).
type Model struct {
	ProviderName string
	ModelID      string
	Role         string // "generation" | "embedding"
	IsDefault    bool
}

// Store is the persistence boundary satisfied by internal/store's
// llm_providers/llm_models repositories.
type Store interface {
	UpsertProvider(ctx context.Context, p Provider) error
	UpsertModel(ctx context.Context, m Model) error
	ModelsByProvider(ctx context.Context, providerName string) ([]Model, error)
}

// Initializer reconciles provider/model rows on every boot; it is
// idempotent, so running it repeatedly is safe.
type Initializer struct {
	Store      Store
	Deployment config.DeploymentConfig
	log        rflog.Logger
}

func New(store Store, deployment config.DeploymentConfig) *Initializer {
	return &Initializer{Store: store, Deployment: deployment, log: rflog.Default.With("component", "sysinit")}
}

// Reconcile upserts a provider row for the configured LLM provider, then —
// for WatsonX specifically — ensures one default generation model and one
// default embedding model row exist and match the configured identifiers,
// updating in place if drift is detected, per §4.12.
func (init *Initializer) Reconcile(ctx context.Context) error {
	provider := Provider{
		Name:      init.Deployment.LLMProvider,
		APIKeySet: init.Deployment.LLMAPIKey != "",
	}
	if err := init.Store.UpsertProvider(ctx, provider); err != nil {
		return err
	}
	init.log.Info("reconciled llm provider", "provider", provider.Name)

	if init.Deployment.LLMProvider != "watsonx" {
		return nil
	}
	return init.reconcileWatsonX(ctx)
}

func (init *Initializer) reconcileWatsonX(ctx context.Context) error {
	existing, err := init.Store.ModelsByProvider(ctx, "watsonx")
	if err != nil {
		return err
	}
	genDrift := true
	embedDrift := true
	for _, m := range existing {
		if m.Role == "generation" && m.IsDefault && m.ModelID == init.Deployment.LLMModel {
			genDrift = false
		}
		if m.Role == "embedding" && m.IsDefault && m.ModelID == init.Deployment.EmbeddingModel {
			embedDrift = false
		}
	}
	if genDrift {
		if err := init.Store.UpsertModel(ctx, Model{ProviderName: "watsonx", ModelID: init.Deployment.LLMModel, Role: "generation", IsDefault: true}); err != nil {
			return err
		}
		init.log.Info("reconciled watsonx default generation model drift", "model", init.Deployment.LLMModel)
	}
	if embedDrift {
		if err := init.Store.UpsertModel(ctx, Model{ProviderName: "watsonx", ModelID: init.Deployment.EmbeddingModel, Role: "embedding", IsDefault: true}); err != nil {
			return err
		}
		init.log.Info("reconciled watsonx default embedding model drift", "model", init.Deployment.EmbeddingModel)
	}
	return nil
}
