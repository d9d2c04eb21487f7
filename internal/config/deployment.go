// Package config resolves runtime configuration with
// collection > user > global > static-default precedence, and parses the
// static deployment tier from the process environment.
package config

import "github.com/caarlos0/env/v11"

// DeploymentConfig is the static, compiled-at-boot tier of configuration —
// the lowest-precedence layer the resolver folds stored overrides onto.
type DeploymentConfig struct {
	VectorStoreType    string `env:"RAGFORGE_VECTORSTORE_TYPE" envDefault:"milvus"`
	VectorStoreAddress string `env:"RAGFORGE_VECTORSTORE_ADDRESS" envDefault:"localhost:19530"`
	VectorStoreAPIKey  string `env:"RAGFORGE_VECTORSTORE_API_KEY"`

	LLMProvider string `env:"RAGFORGE_LLM_PROVIDER" envDefault:"openai"`
	LLMAPIKey   string `env:"RAGFORGE_LLM_API_KEY"`
	LLMModel    string `env:"RAGFORGE_LLM_MODEL" envDefault:"gpt-4o-mini"`

	EmbeddingModel     string `env:"RAGFORGE_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimension int    `env:"RAGFORGE_EMBEDDING_DIMENSION" envDefault:"1536"`

	ChunkingStrategy string `env:"RAGFORGE_CHUNKING_STRATEGY" envDefault:"fixed"`
	ChunkMaxSize     int    `env:"RAGFORGE_CHUNK_MAX_SIZE" envDefault:"512"`
	ChunkMinSize     int    `env:"RAGFORGE_CHUNK_MIN_SIZE" envDefault:"64"`
	ChunkMaxOverlap  int    `env:"RAGFORGE_CHUNK_MAX_OVERLAP" envDefault:"50"`

	UpsertBatchSize int `env:"RAGFORGE_UPSERT_BATCH_SIZE" envDefault:"100"`

	PostgresDSN string `env:"RAGFORGE_POSTGRES_DSN" envDefault:"postgres://localhost:5432/ragforge"`
	RedisAddr   string `env:"RAGFORGE_REDIS_ADDR" envDefault:"localhost:6379"`
	KafkaBroker string `env:"RAGFORGE_KAFKA_BROKER" envDefault:"localhost:9092"`
}

// LoadDeploymentConfig parses DeploymentConfig from the process environment,
// layering envDefault tags with any RAGFORGE_* variables actually set.
func LoadDeploymentConfig() (DeploymentConfig, error) {
	var cfg DeploymentConfig
	if err := env.Parse(&cfg); err != nil {
		return DeploymentConfig{}, err
	}
	return cfg, nil
}
