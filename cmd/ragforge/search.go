package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/embed"
	"github.com/ragforge/ragforge/internal/llm/openai"
	"github.com/ragforge/ragforge/internal/rerank"
	"github.com/ragforge/ragforge/internal/rflog"
	"github.com/ragforge/ragforge/internal/search"
	"github.com/ragforge/ragforge/internal/store"
	"github.com/ragforge/ragforge/internal/vectorstore"
)

func runSearch(ctx context.Context, args []string, deployment config.DeploymentConfig, pool *pgxpool.Pool, log rflog.Logger) int {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	collectionID := fs.String("collection", "", "collection id")
	userID := fs.String("user", "", "requesting user id")
	question := fs.String("question", "", "question text")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *collectionID == "" || *question == "" {
		log.Error("search requires -collection and -question")
		return 1
	}

	resolver := config.NewResolver(store.NewRuntimeConfigRepo(pool), deployment)

	client := openai.New(openai.Config{APIKey: deployment.LLMAPIKey, ChatModel: deployment.LLMModel, EmbedModel: deployment.EmbeddingModel})
	embedClient := embed.New(client, embed.DefaultSettings())

	vs, err := vectorstore.New(ctx, vectorstore.Config{Type: deployment.VectorStoreType, Address: deployment.VectorStoreAddress, APIKey: deployment.VectorStoreAPIKey})
	if err != nil {
		log.Error("failed to connect to vector store", "error", err)
		return 1
	}
	defer vs.Close()

	engine := &search.Engine{
		Resolver:  resolver,
		Embedder:  embedClient,
		Store:     vs,
		Chat:      client,
		Templates: store.NewPromptTemplateRepo(pool),
		Reranker:  rerank.NewRRFReranker(60),
	}

	result, err := engine.Search(ctx, search.Request{
		CollectionID: *collectionID,
		UserID:       *userID,
		Question:     *question,
	}, *collectionID)
	if err != nil {
		log.Error("search failed", "error", err)
		return 1
	}

	fmt.Println(result.Answer)
	return 0
}
