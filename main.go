package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lambda256/aptos-indexer-go/internal/config"
	"github.com/Lambda256/aptos-indexer-go/internal/counters"
	"github.com/Lambda256/aptos-indexer-go/internal/mq"
	"github.com/Lambda256/aptos-indexer-go/internal/processor"
	"github.com/Lambda256/aptos-indexer-go/internal/repository"
	"github.com/Lambda256/aptos-indexer-go/internal/stream"
	"github.com/Lambda256/aptos-indexer-go/internal/worker"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", configPath, err)
	}

	log.Printf("Initializing Aptos indexer (%s)...", BuildCommit)
	log.Printf("Processor: %s", cfg.Processor.Name)
	log.Printf("Stream: %s", cfg.TransactionStream.URL)
	if cfg.Brokers == "" {
		log.Printf("Brokers: none (no-op publisher)")
	} else {
		log.Printf("Brokers: %s", cfg.Brokers)
	}

	repo, err := repository.New(cfg.DB.ConnectionString, cfg.DB.PoolSize, cfg.PerTableChunkSizes)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer repo.Close()

	if os.Getenv("SKIP_MIGRATION") == "true" {
		log.Println("Database Migration SKIPPED (SKIP_MIGRATION=true)")
	} else {
		log.Println("Running Database Migration...")
		if err := repo.Migrate(cfg.SchemaPath); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Database Migration Complete.")
	}

	producer, err := mq.New(cfg.Brokers)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	client, err := stream.NewClient(stream.Config{
		URL:       cfg.TransactionStream.URL,
		AuthToken: cfg.TransactionStream.AuthToken,
		BatchSize: cfg.TransactionStream.BatchSize,
	})
	if err != nil {
		log.Fatalf("Failed to connect to transaction stream: %v", err)
	}
	defer client.Close()

	proc, err := processor.New(cfg, producer, repo)
	if err != nil {
		log.Fatalf("Failed to build processor: %v", err)
	}

	counters.Serve(cfg.MetricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supervisor := worker.NewSupervisor(cfg, client, proc, repo)
	if err := supervisor.Run(ctx); err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}
	log.Println("Clean shutdown.")
}
