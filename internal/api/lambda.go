package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"intro-quiz-go/internal/enrichment"
	"intro-quiz-go/internal/quiz"
)

type ProxyHandler func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// QuizLambda serves GET /quiz. It never hands an error back to the runtime;
// every failure is a JSON 500.
func QuizLambda(rounds Rounds, opts Options) ProxyHandler {
	opts = opts.normalized()
	return func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if event.HTTPMethod == http.MethodOptions {
			return preflight(opts), nil
		}
		ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		return quizReply(ctx, rounds, opts).lambda(), nil
	}
}

func StatsLambda(rounds Rounds, index enrichment.Index, opts Options) ProxyHandler {
	opts = opts.normalized()
	return func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if event.HTTPMethod == http.MethodOptions {
			return preflight(opts), nil
		}
		ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		return statsReply(ctx, rounds, index, opts).lambda(), nil
	}
}

type loadRequest struct {
	Records map[string]enrichment.Record `json:"records"`
}

type loadResponse struct {
	Message string `json:"message"`
	Written int    `json:"written"`
}

// EnrichmentLoaderLambda accepts {"records": {"01_02": {"Artist": "...", "Scene": "..."}}}
// and writes the records to table.
func EnrichmentLoaderLambda(writer enrichment.BatchWriteAPI, table string, opts Options) ProxyHandler {
	opts = opts.normalized()
	finish := func(rp reply) events.APIGatewayProxyResponse {
		rp.headers["Access-Control-Allow-Methods"] = "POST, OPTIONS"
		return rp.lambda()
	}
	return func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if event.HTTPMethod == http.MethodOptions {
			resp := preflight(opts)
			resp.Headers["Access-Control-Allow-Methods"] = "POST, OPTIONS"
			return resp, nil
		}

		body := []byte(event.Body)
		if event.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(event.Body)
			if err != nil {
				log.Printf("Failed to decode request body: %v", err)
				return finish(errorReply(http.StatusBadRequest, opts.AllowedOrigin, "invalid request body")), nil
			}
			body = decoded
		}

		var request loadRequest
		if err := json.Unmarshal(body, &request); err != nil {
			log.Printf("Failed to unmarshal request body: %v", err)
			return finish(errorReply(http.StatusBadRequest, opts.AllowedOrigin, "invalid request body")), nil
		}
		if len(request.Records) == 0 {
			return finish(errorReply(http.StatusBadRequest, opts.AllowedOrigin, "no records in request")), nil
		}

		ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		n, err := enrichment.WriteTable(ctx, writer, table, request.Records)
		if err != nil {
			log.Printf("Failed to write enrichment records (%d written): %v", n, err)
			return finish(errorReply(http.StatusInternalServerError, opts.AllowedOrigin, quiz.GenericMessage)), nil
		}

		return finish(jsonReply(http.StatusOK, opts.AllowedOrigin, loadResponse{
			Message: fmt.Sprintf("%d records successfully added to %s.", n, table),
			Written: n,
		})), nil
	}
}

func preflight(opts Options) events.APIGatewayProxyResponse {
	h := baseHeaders(opts.AllowedOrigin)
	h["Access-Control-Allow-Headers"] = "Content-Type"
	delete(h, "Content-Type")
	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent, Headers: h}
}
