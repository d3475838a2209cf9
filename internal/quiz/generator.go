// Package quiz builds "name that intro" rounds from a bucket of audio files.
package quiz

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"intro-quiz-go/internal/enrichment"
	"intro-quiz-go/internal/storage"
)

// RoundSize is the number of options offered per round.
const RoundSize = 4

const (
	DefaultPrefix    = "intro_music/"
	DefaultExtension = ".wav"
	DefaultExpiry    = 3600 * time.Second
)

type Result struct {
	RoundID     string   `json:"-"`
	CorrectKey  string   `json:"-"`
	Options     []string `json:"options"`
	AudioURL    string   `json:"audio_url"`
	AnswerIndex int      `json:"answer_index"`
	ArtistInfo  *string  `json:"artist_info"`
	SceneInfo   *string  `json:"scene_info"`
}

type Generator struct {
	lister storage.Lister
	issuer storage.URLIssuer
	index  enrichment.Index

	prefix string
	ext    string
	expiry time.Duration

	// rng is nil unless injected; the package-level source is used otherwise.
	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Generator)

func WithPrefix(prefix string) Option { return func(g *Generator) { g.prefix = prefix } }

func WithExtension(ext string) Option {
	return func(g *Generator) {
		if ext != "" {
			g.ext = ext
		}
	}
}

func WithExpiry(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.expiry = d
		}
	}
}

// WithRand makes sampling reproducible. Calls that share the source are serialized.
func WithRand(r *rand.Rand) Option { return func(g *Generator) { g.rng = r } }

func NewGenerator(lister storage.Lister, issuer storage.URLIssuer, index enrichment.Index, opts ...Option) *Generator {
	g := &Generator{
		lister: lister,
		issuer: issuer,
		index:  index,
		prefix: DefaultPrefix,
		ext:    DefaultExtension,
		expiry: DefaultExpiry,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Extension() string { return g.ext }

// Candidates lists the distinct keys under the prefix that carry the audio extension.
func (g *Generator) Candidates(ctx context.Context) ([]string, error) {
	keys, err := g.lister.List(ctx, g.prefix)
	if err != nil {
		return nil, upstream("list audio objects", err)
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !strings.HasSuffix(k, g.ext) {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

// Generate produces one round. Errors are always *Error.
func (g *Generator) Generate(ctx context.Context) (Result, error) {
	candidates, err := g.Candidates(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) < RoundSize {
		return Result{}, insufficient(g.ext, len(candidates))
	}

	selected, answer := g.sample(candidates)
	correct := selected[answer]

	options := make([]string, len(selected))
	for i, key := range selected {
		options[i] = Title(key, g.ext)
	}

	audioURL, err := g.issuer.SignedURL(ctx, correct, g.expiry)
	if err != nil {
		return Result{}, upstream("issue access url", err)
	}

	res := Result{
		RoundID:     uuid.NewString(),
		CorrectKey:  correct,
		Options:     options,
		AudioURL:    audioURL,
		AnswerIndex: answer,
	}
	if id, ok := Identifier(correct, g.ext); ok && g.index != nil {
		if rec, found := g.index.Lookup(id); found {
			res.ArtistInfo = rec.Artist
			res.SceneInfo = rec.Scene
		}
	}
	return res, nil
}

// sample draws RoundSize distinct keys and the position of the correct one.
func (g *Generator) sample(keys []string) ([]string, int) {
	pool := make([]string, len(keys))
	copy(pool, keys)
	if g.rng == nil {
		return drawRound(pool, rand.IntN)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return drawRound(pool, g.rng.IntN)
}

// drawRound runs a partial Fisher-Yates shuffle over pool in place.
func drawRound(pool []string, intN func(int) int) ([]string, int) {
	for i := 0; i < RoundSize; i++ {
		j := i + intN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:RoundSize], intN(RoundSize)
}
