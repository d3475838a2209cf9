package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"intro-quiz-go/internal/api"
	"intro-quiz-go/internal/config"
)

func main() {
	cfg := config.FromEnv()
	if cfg.EnrichmentTable == "" {
		log.Fatalf("ENRICHMENT_TABLE must be set")
	}

	awsCfg, err := cfg.AWS(context.Background())
	if err != nil {
		log.Fatalf("%v", err)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	lambda.Start(api.EnrichmentLoaderLambda(dynamoClient, cfg.EnrichmentTable, api.OptionsFromConfig(cfg)))
}
