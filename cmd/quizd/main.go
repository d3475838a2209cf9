package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"intro-quiz-go/internal/api"
	"intro-quiz-go/internal/config"
	"intro-quiz-go/internal/enrichment"
	"intro-quiz-go/internal/quiz"
	"intro-quiz-go/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		store  storage.BlobStore
		dynamo *dynamodb.Client
	)
	switch cfg.BlobDriver {
	case "fs":
		fsStore, err := storage.NewFSStore(cfg.BlobBasePath)
		if err != nil {
			log.Fatalf("blob store: %v", err)
		}
		store = fsStore
	case "s3":
		awsCfg, err := cfg.AWS(ctx)
		if err != nil {
			log.Fatalf("%v", err)
		}
		store = storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.BucketName)
		dynamo = dynamodb.NewFromConfig(awsCfg)
	default:
		log.Fatalf("unknown BLOB_DRIVER %q (want s3 or fs)", cfg.BlobDriver)
	}

	var scanner dynamodb.ScanAPIClient
	if dynamo != nil {
		scanner = dynamo
	}
	index, err := enrichment.Load(ctx, cfg.EnrichmentPath, cfg.EnrichmentTable, scanner)
	if err != nil {
		log.Fatalf("enrichment: %v", err)
	}

	gen := quiz.NewGenerator(store, store, index,
		quiz.WithPrefix(cfg.Prefix),
		quiz.WithExtension(cfg.AudioExt),
		quiz.WithExpiry(cfg.Expiry),
	)

	r := api.Router(gen, index, api.OptionsFromConfig(cfg))

	log.Printf("listening on %s (driver=%s, bucket=%s, records=%d)", cfg.HTTPAddr, cfg.BlobDriver, cfg.BucketName, index.Len())
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
