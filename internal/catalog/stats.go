// Package catalog summarizes the audio library: how many tracks exist and
// how they spread over artists and scenes.
package catalog

import (
	"sort"

	"intro-quiz-go/internal/enrichment"
	"intro-quiz-go/internal/quiz"
)

type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalTracks        int     `json:"total_tracks"`
	EnrichedTracks     int     `json:"enriched_tracks"`
	UnidentifiedTracks int     `json:"unidentified_tracks"`
	TracksPerArtist    []Count `json:"tracks_per_artist"`
	TracksPerScene     []Count `json:"tracks_per_scene"`
}

// Build counts keys, which are expected to be filtered to audio files already.
func Build(keys []string, ext string, index enrichment.Index) Stats {
	perArtist := make(map[string]int)
	perScene := make(map[string]int)
	stats := Stats{}

	for _, key := range keys {
		stats.TotalTracks++

		id, ok := quiz.Identifier(key, ext)
		if !ok {
			stats.UnidentifiedTracks++
			continue
		}
		if index == nil {
			continue
		}
		rec, found := index.Lookup(id)
		if !found {
			continue
		}
		stats.EnrichedTracks++
		if rec.Artist != nil && *rec.Artist != "" {
			perArtist[*rec.Artist]++
		}
		if rec.Scene != nil && *rec.Scene != "" {
			perScene[*rec.Scene]++
		}
	}

	stats.TracksPerArtist = sortedCounts(perArtist)
	stats.TracksPerScene = sortedCounts(perScene)
	return stats
}

// sortedCounts orders by count descending, then name.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
