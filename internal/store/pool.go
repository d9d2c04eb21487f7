// Package store implements ragforge's relational repositories over
// pgx/v5 — users, teams, collections, files, conversation sessions and
// messages, prompt templates, LLM parameters, LLM providers/models, and
// runtime configs — grounded on intelligencedev-manifold's
// internal/persistence/databases package (pgxpool.Pool + CREATE TABLE IF
// NOT EXISTS + QueryRow/Exec, no ORM).
package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPool creates a Postgres connection pool for the given DSN.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, dsn)
}

// Schema is every repository's table, created idempotently on startup.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	ibm_id TEXT UNIQUE,
	email TEXT UNIQUE,
	name TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS teams (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_teams (
	user_id TEXT NOT NULL REFERENCES users(id),
	team_id TEXT NOT NULL REFERENCES teams(id),
	PRIMARY KEY (user_id, team_id)
);

CREATE TABLE IF NOT EXISTS collections (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	owner_id TEXT NOT NULL REFERENCES users(id),
	is_private BOOLEAN NOT NULL DEFAULT true,
	description TEXT,
	embedding_model TEXT,
	embedding_dimension INT,
	status TEXT NOT NULL DEFAULT 'CREATED',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL REFERENCES collections(id),
	path TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'queued',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversation_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	collection_id TEXT NOT NULL REFERENCES collections(id),
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversation_messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES conversation_sessions(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata JSONB,
	token_count INT NOT NULL DEFAULT 0,
	execution_time DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS prompt_templates (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	type TEXT NOT NULL,
	system_prompt TEXT,
	format TEXT NOT NULL,
	input_variables JSONB NOT NULL DEFAULT '{}',
	context_strategy JSONB,
	max_context_length INT,
	stop_sequences JSONB,
	is_default BOOLEAN NOT NULL DEFAULT false
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_prompt_templates_default
	ON prompt_templates(user_id, type) WHERE is_default;

CREATE TABLE IF NOT EXISTS llm_parameters (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	max_new_tokens INT NOT NULL,
	min_new_tokens INT NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	top_k INT NOT NULL,
	top_p DOUBLE PRECISION NOT NULL,
	repetition_penalty DOUBLE PRECISION NOT NULL,
	random_seed INT,
	is_default BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS llm_providers (
	name TEXT PRIMARY KEY,
	api_key_set BOOLEAN NOT NULL DEFAULT false,
	base_url TEXT
);

CREATE TABLE IF NOT EXISTS llm_models (
	provider_name TEXT NOT NULL REFERENCES llm_providers(name),
	model_id TEXT NOT NULL,
	role TEXT NOT NULL,
	is_default BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (provider_name, model_id, role)
);

CREATE TABLE IF NOT EXISTS runtime_configs (
	id TEXT PRIMARY KEY,
	scope TEXT NOT NULL,
	category TEXT NOT NULL,
	key TEXT NOT NULL,
	value JSONB NOT NULL,
	value_type TEXT NOT NULL,
	user_id TEXT,
	collection_id TEXT,
	active BOOLEAN NOT NULL DEFAULT true,
	description TEXT,
	created_by TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (scope, category, key, user_id, collection_id)
);
`

// Init creates every table used by ragforge's repositories, idempotently.
func Init(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
