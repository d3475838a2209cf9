package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"intro-quiz-go/internal/quiz"
)

// Listing and signing defaults come from the quiz package so a Generator
// built without options behaves like one built from an empty environment.
const (
	DefaultBucket         = "intro72-quiz"
	DefaultPrefix         = quiz.DefaultPrefix
	DefaultExtension      = quiz.DefaultExtension
	DefaultAllowedOrigin  = "*"
	DefaultExpirySeconds  = int(quiz.DefaultExpiry / time.Second)
	DefaultRequestTimeout = 10 * time.Second
)

type Config struct {
	BucketName    string
	Prefix        string
	AudioExt      string
	AllowedOrigin string
	Expiry        time.Duration

	RequestTimeout time.Duration

	EnrichmentPath  string
	EnrichmentTable string // empty means the JSON file is the source

	BlobDriver   string // s3|fs
	BlobBasePath string // fs only

	HTTPAddr string
	Region   string // empty leaves region to the SDK default chain
}

func FromEnv() Config {
	expiry := envInt("EXPIRE_SECONDS", DefaultExpirySeconds)
	if expiry <= 0 {
		expiry = DefaultExpirySeconds
	}
	ext := envOr("AUDIO_EXT", DefaultExtension)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return Config{
		BucketName:      envOr("BUCKET_NAME", DefaultBucket),
		Prefix:          envOr("PREFIX", DefaultPrefix),
		AudioExt:        ext,
		AllowedOrigin:   envOr("ALLOWED_ORIGIN", DefaultAllowedOrigin),
		Expiry:          time.Duration(expiry) * time.Second,
		RequestTimeout:  envDuration("REQUEST_TIMEOUT", DefaultRequestTimeout),
		EnrichmentPath:  envOr("ENRICHMENT_PATH", "artist_scene_info.json"),
		EnrichmentTable: os.Getenv("ENRICHMENT_TABLE"),
		BlobDriver:      strings.ToLower(envOr("BLOB_DRIVER", "s3")),
		BlobBasePath:    envOr("BLOB_BASE_PATH", "./data"),
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		Region:          os.Getenv("REGION"),
	}
}

func envOr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return n
}

// envDuration accepts Go durations ("15s") or a bare number of seconds.
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
