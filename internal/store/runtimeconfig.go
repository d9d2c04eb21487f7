package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/rferrors"
)

// RuntimeConfigRepo implements config.Store over Postgres.
type RuntimeConfigRepo struct {
	pool *pgxpool.Pool
}

func NewRuntimeConfigRepo(pool *pgxpool.Pool) *RuntimeConfigRepo {
	return &RuntimeConfigRepo{pool: pool}
}

// EntriesByScope satisfies config.Store, scanning rows for one precedence
// tier at a time, as the resolver calls it once per tier.
func (r *RuntimeConfigRepo) EntriesByScope(ctx context.Context, scope config.Scope, category config.Category, userID, collectionID string) ([]config.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scope, category, key, value, value_type, COALESCE(user_id, ''), COALESCE(collection_id, ''), active, COALESCE(description, ''), COALESCE(created_by, '')
		FROM runtime_configs
		WHERE scope = $1 AND category = $2 AND COALESCE(user_id, '') = $3 AND COALESCE(collection_id, '') = $4 AND active
	`, string(scope), string(category), userID, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []config.Entry
	for rows.Next() {
		var e config.Entry
		var scopeStr, categoryStr, typeStr string
		var raw []byte
		if err := rows.Scan(&scopeStr, &categoryStr, &e.Key, &raw, &typeStr, &e.UserID, &e.CollectionID, &e.Active, &e.Description, &e.CreatedBy); err != nil {
			return nil, err
		}
		e.Scope = config.Scope(scopeStr)
		e.Category = config.Category(categoryStr)
		e.Type = config.ValueType(typeStr)
		if err := json.Unmarshal(raw, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Upsert writes one runtime-config row. On a conflict on the (scope,
// category, key, user_id, collection_id) unique constraint the existing
// row's value, type and description are updated in place.
func (r *RuntimeConfigRepo) Upsert(ctx context.Context, e config.Entry) error {
	raw, err := json.Marshal(e.Value)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO runtime_configs (id, scope, category, key, value, value_type, user_id, collection_id, active, description, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), true, $9, $10)
		ON CONFLICT (scope, category, key, user_id, collection_id)
		DO UPDATE SET value = EXCLUDED.value, value_type = EXCLUDED.value_type, description = EXCLUDED.description
	`, uuid.NewString(), string(e.Scope), string(e.Category), e.Key, raw, string(e.Type), e.UserID, e.CollectionID, e.Description, e.CreatedBy)
	if err != nil {
		return rferrors.Wrap(rferrors.KindValidation, "failed to upsert runtime config entry", err, map[string]any{"key": e.Key})
	}
	return nil
}
