package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"signalsift/api"
	"signalsift/ingest"
	"signalsift/pipeline"
	"signalsift/providers"
	"signalsift/retrieval"
	"signalsift/storage"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	pipe := buildPipeline()
	retriever := retrieval.NewRetriever(pipe)

	// Optional Kafka intake for queued batches
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if strings.EqualFold(os.Getenv("KAFKA_ENABLED"), "true") {
		consumer, err := ingest.NewBatchConsumer(pipe)
		if err != nil {
			log.Fatalf("Failed to create Kafka consumer: %v", err)
		}
		if err := consumer.Start(ctx); err != nil {
			log.Fatalf("Failed to start Kafka consumer: %v", err)
		}
		defer consumer.Close()
	}

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	r := api.NewRouter(pipe, retriever)
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  POST /api/pipeline/process")
	log.Println("  POST /api/pipeline/ingest-feed")
	log.Println("  POST /api/retrieval/query")
	log.Println("  GET  /api/retrieval/count")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// buildPipeline wires providers and optional storage from the environment.
func buildPipeline() *pipeline.Pipeline {
	embedder := providers.NewDefaultEmbeddingsProvider(os.Getenv("EMBEDDING_MODEL"))
	if embedder == nil {
		log.Println("Warning: no embeddings provider configured; items will not cluster")
	} else {
		log.Printf("Embeddings provider: %s", embedder.ModelName())
	}

	generator := providers.NewDefaultTextGenerator(os.Getenv("GENERATION_MODEL"))
	if generator == nil {
		log.Println("Warning: no text generator configured; items score with defaults")
	} else {
		log.Printf("Text generator: %s", generator.ModelName())
	}

	cfg := pipeline.Config{
		Themes: splitThemes(os.Getenv("SCORING_THEMES")),
	}
	if len(cfg.Themes) == 0 {
		log.Println("Warning: SCORING_THEMES not set; topical scores will be zero")
	}

	opts := make([]pipeline.Option, 0)

	if strings.EqualFold(os.Getenv("REDIS_ENABLED"), "true") {
		seen, err := storage.NewSeenFilterFromEnv()
		if err != nil {
			log.Printf("Warning: repeat filter disabled: %v", err)
		} else {
			opts = append(opts, pipeline.WithSeenFilter(seen, storage.Fingerprint))
		}

		records, err := storage.NewRecordStoreFromEnv()
		if err != nil {
			log.Printf("Warning: record store disabled: %v", err)
		} else {
			opts = append(opts, pipeline.WithSink(records))
		}
	}

	if bucket := strings.TrimSpace(os.Getenv("S3_BUCKET")); bucket != "" {
		archive, err := storage.NewArchive(context.Background(), storage.S3Config{
			Region:       strings.TrimSpace(os.Getenv("S3_REGION")),
			Profile:      strings.TrimSpace(os.Getenv("S3_PROFILE")),
			UsePathStyle: strings.EqualFold(strings.TrimSpace(os.Getenv("S3_USE_PATH_STYLE")), "true"),
			Bucket:       bucket,
		})
		if err != nil {
			log.Printf("Warning: failed to init S3 archive: %v (archiving disabled)", err)
		} else {
			opts = append(opts, pipeline.WithSink(archive))
		}
	}

	return pipeline.New(cfg, embedder, generator, opts...)
}

// splitThemes parses the comma-separated SCORING_THEMES value.
func splitThemes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	themes := make([]string, 0, len(parts))
	for _, part := range parts {
		if t := strings.TrimSpace(part); t != "" {
			themes = append(themes, t)
		}
	}
	return themes
}
