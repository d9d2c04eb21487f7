// Command ragforge is the development CLI: it runs the system initializer,
// then dispatches to an "ingest" or "search" subcommand. Exit 0 on success,
// 1 on failure, per the specification's CLI exit-code contract.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ragforge/ragforge/internal/config"
	"github.com/ragforge/ragforge/internal/rflog"
	"github.com/ragforge/ragforge/internal/store"
	"github.com/ragforge/ragforge/internal/sysinit"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := rflog.Default.With("component", "cmd")
	ctx := context.Background()

	deployment, err := config.LoadDeploymentConfig()
	if err != nil {
		log.Error("failed to load deployment config", "error", err)
		os.Exit(1)
	}

	pool, err := store.OpenPool(ctx, deployment.PostgresDSN)
	if err != nil {
		log.Error("failed to open postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := store.Init(ctx, pool); err != nil {
		log.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	providerRepo := store.NewLLMProviderRepo(pool)
	initializer := sysinit.New(providerRepo, deployment)
	if err := initializer.Reconcile(ctx); err != nil {
		log.Error("system initializer failed", "error", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ingest":
		os.Exit(runIngest(ctx, os.Args[2:], deployment, pool, log))
	case "search":
		os.Exit(runSearch(ctx, os.Args[2:], deployment, pool, log))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ragforge <ingest|search> [flags]")
}
