package main

import (
	"context"
	"flag"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragforge/ragforge/internal/chunk"
	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/documents"
	"github.com/ragforge/ragforge/internal/embed"
	"github.com/ragforge/ragforge/internal/ingest"
	"github.com/ragforge/ragforge/internal/llm/openai"
	"github.com/ragforge/ragforge/internal/rflog"
	"github.com/ragforge/ragforge/internal/store"
	"github.com/ragforge/ragforge/internal/vectorstore"
)

func runIngest(ctx context.Context, args []string, deployment config.DeploymentConfig, pool *pgxpool.Pool, log rflog.Logger) int {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	collectionID := fs.String("collection", "", "collection id")
	userID := fs.String("user", "", "owning user id")
	filesFlag := fs.String("files", "", "comma-separated file paths")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *collectionID == "" || *filesFlag == "" {
		log.Error("ingest requires -collection and -files")
		return 1
	}
	files := strings.Split(*filesFlag, ",")

	resolver := config.NewResolver(store.NewRuntimeConfigRepo(pool), deployment)

	embedProvider := openai.New(openai.Config{APIKey: deployment.LLMAPIKey, EmbedModel: deployment.EmbeddingModel})
	embedClient := embed.New(embedProvider, embed.DefaultSettings())

	counter, err := chunk.NewTikTokenCounter("cl100k_base")
	if err != nil {
		log.Error("failed to build token counter", "error", err)
		return 1
	}
	chunker, err := chunk.New(chunk.Strategy(deployment.ChunkingStrategy), chunk.Params{
		MaxChunkSize: deployment.ChunkMaxSize,
		MinChunkSize: deployment.ChunkMinSize,
		Overlap:      deployment.ChunkMaxOverlap,
	}, counter, nil)
	if err != nil {
		log.Error("failed to build chunker", "error", err)
		return 1
	}

	images := documents.NewImageStore(nil, "", "")
	registry := documents.NewRegistry(chunker, images)

	vsCfg := vectorstore.Config{Type: deployment.VectorStoreType, Address: deployment.VectorStoreAddress, APIKey: deployment.VectorStoreAPIKey}
	vs, err := vectorstore.New(ctx, vsCfg)
	if err != nil {
		log.Error("failed to connect to vector store", "error", err)
		return 1
	}
	defer vs.Close()

	pipeline := ingest.New(registry, embedClient, vs, resolver, nil)
	report, err := pipeline.Ingest(ctx, *collectionID, *userID, *collectionID, deployment.EmbeddingDimension, vectorstore.MetricCosine, files)
	if err != nil {
		log.Error("ingestion failed", "error", err)
		return 1
	}
	log.Info("ingestion complete",
		"files_succeeded", report.FilesSucceeded,
		"files_failed", len(report.FilesFailed),
		"documents_written", report.DocumentsWritten,
		"chunks_written", report.ChunksWritten,
	)
	if len(report.FilesFailed) > 0 {
		return 1
	}
	return 0
}
