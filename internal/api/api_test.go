package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"intro-quiz-go/internal/enrichment"
	"intro-quiz-go/internal/quiz"
)

type fakeBucket struct {
	keys    []string
	listErr error
	signErr error
}

func (f *fakeBucket) List(context.Context, string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.keys, nil
}

func (f *fakeBucket) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.example/" + key, nil
}

type fakeWriter struct {
	items int
	err   error
}

func (f *fakeWriter) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, reqs := range in.RequestItems {
		f.items += len(reqs)
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

var fourSongs = []string{
	"intro_music/01_02_My%20Song.wav",
	"intro_music/01_03_Second.wav",
	"intro_music/02_01_Third.wav",
	"intro_music/weird-name.wav",
}

type quizBody struct {
	Options     []string `json:"options"`
	AudioURL    *string  `json:"audio_url"`
	AnswerIndex *int     `json:"answer_index"`
	ArtistInfo  *string  `json:"artist_info"`
	SceneInfo   *string  `json:"scene_info"`
	Error       string   `json:"error"`
}

func newGenerator(bucket *fakeBucket, index enrichment.Index) *quiz.Generator {
	return quiz.NewGenerator(bucket, bucket, index)
}

func decodeQuiz(t *testing.T, body string) quizBody {
	t.Helper()
	var qb quizBody
	if err := json.Unmarshal([]byte(body), &qb); err != nil {
		t.Fatalf("invalid JSON body %q: %v", body, err)
	}
	return qb
}

func TestQuizLambdaSuccess(t *testing.T) {
	artistOnly := "Z"
	index := enrichment.NewStore(map[string]enrichment.Record{
		"01_02": enrichment.NewRecord("X", "Y"),
		"01_03": {Artist: &artistOnly},
	})
	handler := QuizLambda(newGenerator(&fakeBucket{keys: fourSongs}, index), Options{AllowedOrigin: "https://quiz.example.com"})

	for i := 0; i < 40; i++ {
		resp, err := handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET", Path: "/quiz"})
		if err != nil {
			t.Fatalf("Expected nil error, got %v", err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
		}
		if resp.Headers["Access-Control-Allow-Origin"] != "https://quiz.example.com" {
			t.Fatalf("Expected configured origin, got %q", resp.Headers["Access-Control-Allow-Origin"])
		}
		if resp.Headers["Content-Type"] != "application/json" {
			t.Fatalf("Expected JSON content type, got %q", resp.Headers["Content-Type"])
		}
		if resp.Headers["X-Quiz-Round"] == "" {
			t.Fatal("Expected round id header")
		}

		qb := decodeQuiz(t, resp.Body)
		if len(qb.Options) != 4 || qb.AnswerIndex == nil || qb.AudioURL == nil {
			t.Fatalf("Incomplete body: %s", resp.Body)
		}
		correct := qb.Options[*qb.AnswerIndex]
		if !strings.Contains(resp.Body, `"artist_info"`) || !strings.Contains(resp.Body, `"scene_info"`) {
			t.Fatalf("Enrichment keys must always be present: %s", resp.Body)
		}
		switch correct {
		case "My Song":
			if *qb.AudioURL != "https://signed.example/intro_music/01_02_My%20Song.wav" {
				t.Fatalf("audio url points at wrong object: %s", *qb.AudioURL)
			}
			if qb.ArtistInfo == nil || *qb.ArtistInfo != "X" || qb.SceneInfo == nil || *qb.SceneInfo != "Y" {
				t.Fatalf("Expected X/Y enrichment: %s", resp.Body)
			}
		case "Second":
			if qb.ArtistInfo == nil || *qb.ArtistInfo != "Z" || qb.SceneInfo != nil {
				t.Fatalf("Expected Z with null scene: %s", resp.Body)
			}
			if !strings.Contains(resp.Body, `"scene_info":null`) {
				t.Fatalf("Expected scene_info to be null: %s", resp.Body)
			}
		case "weird-name":
			if qb.ArtistInfo != nil || qb.SceneInfo != nil {
				t.Fatalf("Expected null enrichment: %s", resp.Body)
			}
		}
	}
}

func TestQuizLambdaInsufficientCandidates(t *testing.T) {
	handler := QuizLambda(newGenerator(&fakeBucket{keys: fourSongs[:3]}, nil), Options{})

	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET"})
	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
	if resp.Headers["Access-Control-Allow-Origin"] != "*" {
		t.Errorf("Expected default origin *, got %q", resp.Headers["Access-Control-Allow-Origin"])
	}
	qb := decodeQuiz(t, resp.Body)
	if !strings.Contains(qb.Error, "Not enough .wav files") {
		t.Errorf("Expected descriptive error, got %q", qb.Error)
	}
	if qb.Options != nil || qb.AudioURL != nil || qb.AnswerIndex != nil {
		t.Errorf("Error body must not carry quiz fields: %s", resp.Body)
	}
}

func TestQuizLambdaHidesUpstreamDetail(t *testing.T) {
	tests := []struct {
		name   string
		bucket *fakeBucket
	}{
		{"list", &fakeBucket{listErr: errors.New("AccessDenied arn:aws:s3:::intro72-quiz")}},
		{"sign", &fakeBucket{keys: fourSongs, signErr: errors.New("secret-key-id AKIA123")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := QuizLambda(newGenerator(tt.bucket, nil), Options{})
			resp, _ := handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET"})
			if resp.StatusCode != 500 {
				t.Fatalf("Expected 500, got %d", resp.StatusCode)
			}
			if resp.Body != `{"error":"Internal Server Error"}` {
				t.Errorf("Expected generic body, got %s", resp.Body)
			}
		})
	}
}

func TestQuizLambdaPreflight(t *testing.T) {
	handler := QuizLambda(newGenerator(&fakeBucket{}, nil), Options{AllowedOrigin: "https://a.example"})
	resp, _ := handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "OPTIONS"})
	if resp.StatusCode != 204 {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	if resp.Headers["Access-Control-Allow-Origin"] != "https://a.example" {
		t.Errorf("Expected origin header on preflight")
	}
}

func TestQuizBodyKeepsUnicode(t *testing.T) {
	keys := []string{
		"intro_music/01_01_%E5%A4%9C%E6%98%8E%E3%81%91.wav",
		"intro_music/01_02_%E5%A4%9C%E6%98%8E%E3%81%91.wav",
		"intro_music/01_03_%E5%A4%9C%E6%98%8E%E3%81%91.wav",
		"intro_music/01_04_%E5%A4%9C%E6%98%8E%E3%81%91.wav",
	}
	handler := QuizLambda(newGenerator(&fakeBucket{keys: keys}, nil), Options{})
	resp, _ := handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET"})
	if !strings.Contains(resp.Body, "夜明け") {
		t.Errorf("Expected raw UTF-8 titles in body, got %s", resp.Body)
	}
}

func TestStatsLambda(t *testing.T) {
	index := enrichment.NewStore(map[string]enrichment.Record{"01_02": enrichment.NewRecord("X", "Y")})
	keys := append([]string{"intro_music/cover.png"}, fourSongs...)
	handler := StatsLambda(newGenerator(&fakeBucket{keys: keys}, index), index, Options{})

	resp, err := handler(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET"})
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("Expected 200, got %d (%v): %s", resp.StatusCode, err, resp.Body)
	}
	var stats struct {
		TotalTracks     int `json:"total_tracks"`
		EnrichedTracks  int `json:"enriched_tracks"`
		TracksPerArtist []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"tracks_per_artist"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if stats.TotalTracks != 4 || stats.EnrichedTracks != 1 {
		t.Errorf("Unexpected stats: %s", resp.Body)
	}
	if len(stats.TracksPerArtist) != 1 || stats.TracksPerArtist[0].Name != "X" {
		t.Errorf("Unexpected artists: %s", resp.Body)
	}

	failing := StatsLambda(newGenerator(&fakeBucket{listErr: errors.New("boom")}, index), index, Options{})
	resp, _ = failing(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET"})
	if resp.StatusCode != 500 || strings.Contains(resp.Body, "boom") {
		t.Errorf("Expected generic 500, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestEnrichmentLoaderLambda(t *testing.T) {
	payload := `{"records": {"01_02": {"Artist": "X", "Scene": "Y"}, "01_03": {"Artist": "Z", "Scene": "W"}}}`

	tests := []struct {
		name       string
		event      events.APIGatewayProxyRequest
		writer     *fakeWriter
		wantStatus int
		wantItems  int
	}{
		{"plain body", events.APIGatewayProxyRequest{HTTPMethod: "POST", Body: payload}, &fakeWriter{}, 200, 2},
		{"base64 body", events.APIGatewayProxyRequest{HTTPMethod: "POST", Body: base64.StdEncoding.EncodeToString([]byte(payload)), IsBase64Encoded: true}, &fakeWriter{}, 200, 2},
		{"malformed", events.APIGatewayProxyRequest{HTTPMethod: "POST", Body: "{"}, &fakeWriter{}, 400, 0},
		{"bad base64", events.APIGatewayProxyRequest{HTTPMethod: "POST", Body: "%%%", IsBase64Encoded: true}, &fakeWriter{}, 400, 0},
		{"empty", events.APIGatewayProxyRequest{HTTPMethod: "POST", Body: `{"records": {}}`}, &fakeWriter{}, 400, 0},
		{"write failure", events.APIGatewayProxyRequest{HTTPMethod: "POST", Body: payload}, &fakeWriter{err: errors.New("throttled")}, 500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := EnrichmentLoaderLambda(tt.writer, "enrichment_table", Options{})
			resp, err := handler(context.Background(), tt.event)
			if err != nil {
				t.Fatalf("Expected nil error, got %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, resp.StatusCode, resp.Body)
			}
			if tt.writer.items != tt.wantItems {
				t.Errorf("Expected %d items written, got %d", tt.wantItems, tt.writer.items)
			}
			if resp.Headers["Access-Control-Allow-Methods"] != "POST, OPTIONS" {
				t.Errorf("Expected POST methods header, got %q", resp.Headers["Access-Control-Allow-Methods"])
			}
			if strings.Contains(resp.Body, "throttled") {
				t.Errorf("Upstream detail leaked: %s", resp.Body)
			}
		})
	}
}

func TestRouterQuiz(t *testing.T) {
	handler := Router(newGenerator(&fakeBucket{keys: fourSongs}, nil), nil, Options{AllowedOrigin: "https://quiz.example.com"})

	tests := []struct {
		name   string
		origin string
	}{
		{"without origin header", ""},
		{"with matching origin", "https://quiz.example.com"},
		{"with other origin", "https://evil.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/quiz", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != 200 {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://quiz.example.com" {
				t.Errorf("Expected configured origin, got %q", got)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("Expected application/json, got %q", got)
			}
			qb := decodeQuiz(t, rec.Body.String())
			if len(qb.Options) != 4 {
				t.Errorf("Expected 4 options, got %v", qb.Options)
			}
		})
	}
}

func TestRouterQuizFailure(t *testing.T) {
	handler := Router(newGenerator(&fakeBucket{keys: fourSongs[:1]}, nil), nil, Options{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quiz", nil))

	if rec.Code != 500 {
		t.Fatalf("Expected 500, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected CORS header on errors too")
	}
	qb := decodeQuiz(t, rec.Body.String())
	if qb.Error == "" || qb.Options != nil {
		t.Errorf("Unexpected error body: %s", rec.Body.String())
	}
}

func TestRouterStatsAndHealth(t *testing.T) {
	handler := Router(newGenerator(&fakeBucket{keys: fourSongs}, nil), nil, Options{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"total_tracks":4`) {
		t.Errorf("Unexpected stats response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://quiz.example.com")
	handler.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Errorf("Expected healthz 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Expected application/json on healthz, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected CORS header on healthz, got %q", got)
	}
	if got := rec.Body.String(); got != `{"status":"ok"}` {
		t.Errorf("Unexpected healthz body: %s", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quiz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST /quiz, got %d", rec.Code)
	}
}

// blockingRounds waits for the request deadline and records what it saw.
type blockingRounds struct {
	hadDeadline bool
}

func (b *blockingRounds) Generate(ctx context.Context) (quiz.Result, error) {
	_, b.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return quiz.Result{}, ctx.Err()
}

func (b *blockingRounds) Candidates(ctx context.Context) ([]string, error) {
	_, b.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingRounds) Extension() string { return ".wav" }

type headerCounter struct {
	*httptest.ResponseRecorder
	writes int
}

func (h *headerCounter) WriteHeader(code int) {
	h.writes++
	h.ResponseRecorder.WriteHeader(code)
}

func TestHandlersTimeOutWithSingleResponse(t *testing.T) {
	opts := Options{Timeout: 20 * time.Millisecond}

	tests := []struct {
		name    string
		handler func(Rounds) http.HandlerFunc
		path    string
	}{
		{"quiz", func(r Rounds) http.HandlerFunc { return QuizHandler(r, opts) }, "/quiz"},
		{"stats", func(r Rounds) http.HandlerFunc { return StatsHandler(r, nil, opts) }, "/stats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rounds := &blockingRounds{}
			w := &headerCounter{ResponseRecorder: httptest.NewRecorder()}

			start := time.Now()
			tt.handler(rounds)(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if !rounds.hadDeadline {
				t.Error("Expected handler context to carry a deadline")
			}
			if elapsed := time.Since(start); elapsed > 2*time.Second {
				t.Errorf("Expected handler to give up near the timeout, took %v", elapsed)
			}
			if w.writes != 1 {
				t.Errorf("Expected exactly one WriteHeader, got %d", w.writes)
			}
			if w.Code != 500 {
				t.Errorf("Expected 500, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), quiz.GenericMessage) {
				t.Errorf("Expected generic error body, got %s", w.Body.String())
			}
		})
	}
}
