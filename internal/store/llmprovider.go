package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragforge/ragforge/internal/sysinit"
)

// LLMProviderRepo implements sysinit.Store over Postgres.
type LLMProviderRepo struct {
	pool *pgxpool.Pool
}

func NewLLMProviderRepo(pool *pgxpool.Pool) *LLMProviderRepo {
	return &LLMProviderRepo{pool: pool}
}

func (r *LLMProviderRepo) UpsertProvider(ctx context.Context, p sysinit.Provider) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO llm_providers (name, api_key_set, base_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET api_key_set = EXCLUDED.api_key_set, base_url = EXCLUDED.base_url
	`, p.Name, p.APIKeySet, p.BaseURL)
	return err
}

func (r *LLMProviderRepo) UpsertModel(ctx context.Context, m sysinit.Model) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO llm_models (provider_name, model_id, role, is_default)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider_name, model_id, role) DO UPDATE SET is_default = EXCLUDED.is_default
	`, m.ProviderName, m.ModelID, m.Role, m.IsDefault)
	return err
}

func (r *LLMProviderRepo) ModelsByProvider(ctx context.Context, providerName string) ([]sysinit.Model, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT provider_name, model_id, role, is_default FROM llm_models WHERE provider_name = $1
	`, providerName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sysinit.Model
	for rows.Next() {
		var m sysinit.Model
		if err := rows.Scan(&m.ProviderName, &m.ModelID, &m.Role, &m.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
