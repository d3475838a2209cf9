package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"intro-quiz-go/internal/enrichment"
)

// Router serves the same endpoints as the lambdas for local runs.
func Router(rounds Rounds, index enrichment.Index, opts Options) http.Handler {
	opts = opts.normalized()

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{opts.AllowedOrigin},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Quiz-Round"},
		MaxAge:         300,
	}))

	r.Get("/quiz", QuizHandler(rounds, opts))
	r.Get("/stats", StatsHandler(rounds, index, opts))
	r.Get("/healthz", HealthHandler(opts))

	return r
}

// QuizHandler bounds the round with opts.Timeout and writes exactly one
// response, including when the deadline passes.
func QuizHandler(rounds Rounds, opts Options) http.HandlerFunc {
	opts = opts.normalized()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()
		quizReply(ctx, rounds, opts).write(w)
	}
}

func StatsHandler(rounds Rounds, index enrichment.Index, opts Options) http.HandlerFunc {
	opts = opts.normalized()
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()
		statsReply(ctx, rounds, index, opts).write(w)
	}
}

func HealthHandler(opts Options) http.HandlerFunc {
	opts = opts.normalized()
	return func(w http.ResponseWriter, _ *http.Request) {
		jsonReply(http.StatusOK, opts.AllowedOrigin, map[string]string{"status": "ok"}).write(w)
	}
}
