package sysinit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragforge/ragforge/internal/config"
)

type fakeStore struct {
	providers    []Provider
	models       []Model
	modelsByProv map[string][]Model
}

func newFakeStore() *fakeStore {
	return &fakeStore{modelsByProv: map[string][]Model{}}
}

func (f *fakeStore) UpsertProvider(ctx context.Context, p Provider) error {
	f.providers = append(f.providers, p)
	return nil
}

func (f *fakeStore) UpsertModel(ctx context.Context, m Model) error {
	f.models = append(f.models, m)
	f.modelsByProv[m.ProviderName] = append(f.modelsByProv[m.ProviderName], m)
	return nil
}

func (f *fakeStore) ModelsByProvider(ctx context.Context, providerName string) ([]Model, error) {
	return f.modelsByProv[providerName], nil
}

func TestReconcileUpsertsProvider(t *testing.T) {
	store := newFakeStore()
	init := New(store, config.DeploymentConfig{LLMProvider: "openai", LLMAPIKey: "sk-test"})
	require.NoError(t, init.Reconcile(context.Background()))

	require.Len(t, store.providers, 1)
	assert.Equal(t, "openai", store.providers[0].Name)
	assert.True(t, store.providers[0].APIKeySet)
	assert.Empty(t, store.models, "expected no model reconciliation for non-watsonx provider")
}

func TestReconcileWatsonXCreatesDefaultModelsWhenMissing(t *testing.T) {
	store := newFakeStore()
	init := New(store, config.DeploymentConfig{LLMProvider: "watsonx", LLMModel: "granite-13b", EmbeddingModel: "slate-embed"})
	require.NoError(t, init.Reconcile(context.Background()))
	assert.Len(t, store.models, 2)
}

func TestReconcileWatsonXCorrectsDriftedDefault(t *testing.T) {
	store := newFakeStore()
	store.modelsByProv["watsonx"] = []Model{
		{ProviderName: "watsonx", ModelID: "old-gen-model", Role: "generation", IsDefault: true},
		{ProviderName: "watsonx", ModelID: "slate-embed", Role: "embedding", IsDefault: true},
	}
	init := New(store, config.DeploymentConfig{LLMProvider: "watsonx", LLMModel: "granite-13b", EmbeddingModel: "slate-embed"})
	require.NoError(t, init.Reconcile(context.Background()))

	require.Len(t, store.models, 1)
	assert.Equal(t, "granite-13b", store.models[0].ModelID)
}

func TestReconcileWatsonXNoOpWhenNoDrift(t *testing.T) {
	store := newFakeStore()
	store.modelsByProv["watsonx"] = []Model{
		{ProviderName: "watsonx", ModelID: "granite-13b", Role: "generation", IsDefault: true},
		{ProviderName: "watsonx", ModelID: "slate-embed", Role: "embedding", IsDefault: true},
	}
	init := New(store, config.DeploymentConfig{LLMProvider: "watsonx", LLMModel: "granite-13b", EmbeddingModel: "slate-embed"})
	require.NoError(t, init.Reconcile(context.Background()))
	assert.Empty(t, store.models, "expected no model upserts when already reconciled")
}
