package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// User, Team, and Collection are minimal referential rows — supporting
// structure so C4/C9/C11 have something real to reference by ID, not a
// public CRUD API surface (spec.md's Non-goals exclude user/team/collection
// CRUD as an external-collaborator concern; see SPEC_FULL.md item 4).
type User struct {
	ID    string
	IBMID string
	Email string
	Name  string
}

type Team struct {
	ID   string
	Name string
}

type Collection struct {
	ID                 string
	Name               string
	OwnerID            string
	IsPrivate          bool
	Description        string
	EmbeddingModel     string
	EmbeddingDimension int
	Status             string
}

// ReferentialRepo provides just enough persistence for users, teams, and
// collections to satisfy foreign-key references from the pipelines above.
type ReferentialRepo struct {
	pool *pgxpool.Pool
}

func NewReferentialRepo(pool *pgxpool.Pool) *ReferentialRepo {
	return &ReferentialRepo{pool: pool}
}

func (r *ReferentialRepo) UpsertUser(ctx context.Context, u User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, ibm_id, email, name) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET ibm_id = EXCLUDED.ibm_id, email = EXCLUDED.email, name = EXCLUDED.name
	`, u.ID, u.IBMID, u.Email, u.Name)
	return err
}

func (r *ReferentialRepo) UpsertTeam(ctx context.Context, t Team) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO teams (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, t.ID, t.Name)
	return err
}

func (r *ReferentialRepo) CreateCollection(ctx context.Context, c Collection) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO collections (id, name, owner_id, is_private, description, embedding_model, embedding_dimension, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.Name, c.OwnerID, c.IsPrivate, c.Description, c.EmbeddingModel, c.EmbeddingDimension, c.Status)
	return err
}

func (r *ReferentialRepo) UpdateCollectionStatus(ctx context.Context, collectionID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE collections SET status = $2 WHERE id = $1`, collectionID, status)
	return err
}

func (r *ReferentialRepo) Collection(ctx context.Context, collectionID string) (Collection, error) {
	var c Collection
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, is_private, COALESCE(description, ''), COALESCE(embedding_model, ''), COALESCE(embedding_dimension, 0), status
		FROM collections WHERE id = $1
	`, collectionID).Scan(&c.ID, &c.Name, &c.OwnerID, &c.IsPrivate, &c.Description, &c.EmbeddingModel, &c.EmbeddingDimension, &c.Status)
	return c, err
}
