package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
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
	ctx := context.Background()

	awsCfg, err := cfg.AWS(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	index, err := enrichment.Load(ctx, cfg.EnrichmentPath, cfg.EnrichmentTable, dynamodb.NewFromConfig(awsCfg))
	if err != nil {
		log.Fatalf("Unable to load enrichment records: %v", err)
	}

	store := storage.NewS3Store(s3.NewFromConfig(awsCfg), cfg.BucketName)
	gen := quiz.NewGenerator(store, store, index,
		quiz.WithPrefix(cfg.Prefix),
		quiz.WithExtension(cfg.AudioExt),
		quiz.WithExpiry(cfg.Expiry),
	)

	log.Printf("quiz lambda ready (bucket=%s, prefix=%s, records=%d)", cfg.BucketName, cfg.Prefix, index.Len())
	lambda.Start(api.QuizLambda(gen, api.OptionsFromConfig(cfg)))
}
