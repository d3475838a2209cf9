// Package api maps quiz results and failures onto API Gateway proxy
// responses and onto net/http.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"intro-quiz-go/internal/catalog"
	"intro-quiz-go/internal/config"
	"intro-quiz-go/internal/enrichment"
	"intro-quiz-go/internal/quiz"
)

// Rounds is the part of *quiz.Generator the handlers need.
type Rounds interface {
	Generate(ctx context.Context) (quiz.Result, error)
	Candidates(ctx context.Context) ([]string, error)
	Extension() string
}

type Options struct {
	AllowedOrigin string
	Timeout       time.Duration
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{AllowedOrigin: cfg.AllowedOrigin, Timeout: cfg.RequestTimeout}.normalized()
}

func (o Options) normalized() Options {
	if o.AllowedOrigin == "" {
		o.AllowedOrigin = config.DefaultAllowedOrigin
	}
	if o.Timeout <= 0 {
		o.Timeout = config.DefaultRequestTimeout
	}
	return o
}

type errorBody struct {
	Error string `json:"error"`
}

type reply struct {
	status  int
	headers map[string]string
	body    []byte
}

func baseHeaders(origin string) map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  origin,
		"Access-Control-Allow-Methods": "GET, OPTIONS",
	}
}

// encode writes v without HTML escaping so titles come back as written.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func jsonReply(status int, origin string, v any) reply {
	body, err := encode(v)
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + quiz.GenericMessage + `"}`)
	}
	return reply{status: status, headers: baseHeaders(origin), body: body}
}

func errorReply(status int, origin, msg string) reply {
	return jsonReply(status, origin, errorBody{Error: msg})
}

func (rp reply) lambda() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: rp.status,
		Headers:    rp.headers,
		Body:       string(rp.body),
	}
}

func (rp reply) write(w http.ResponseWriter) {
	for k, v := range rp.headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(rp.status)
	_, _ = w.Write(rp.body)
}

func quizReply(ctx context.Context, rounds Rounds, opts Options) reply {
	res, err := rounds.Generate(ctx)
	if err != nil {
		logFailure("quiz", err)
		return errorReply(http.StatusInternalServerError, opts.AllowedOrigin, quiz.PublicMessage(err))
	}
	log.Printf("quiz round %s: correct=%s", res.RoundID, res.CorrectKey)

	rp := jsonReply(http.StatusOK, opts.AllowedOrigin, res)
	rp.headers["X-Quiz-Round"] = res.RoundID
	return rp
}

func statsReply(ctx context.Context, rounds Rounds, index enrichment.Index, opts Options) reply {
	keys, err := rounds.Candidates(ctx)
	if err != nil {
		logFailure("stats", err)
		return errorReply(http.StatusInternalServerError, opts.AllowedOrigin, quiz.GenericMessage)
	}
	return jsonReply(http.StatusOK, opts.AllowedOrigin, catalog.Build(keys, rounds.Extension(), index))
}

func logFailure(op string, err error) {
	var qe *quiz.Error
	if errors.As(err, &qe) {
		log.Printf("%s failed (%s): %v", op, qe.Kind, err)
		return
	}
	log.Printf("%s failed: %v", op, err)
}
