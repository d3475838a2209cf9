// Package enrichment holds the artist/scene metadata keyed by song
// identifier. A Store is loaded once at startup and only read afterwards.
package enrichment

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Record fields are nil when the dataset has no value for them, which is
// distinct from an empty string.
type Record struct {
	Artist *string `json:"Artist" dynamodbav:"artist,omitempty"`
	Scene  *string `json:"Scene" dynamodbav:"scene,omitempty"`
}

func NewRecord(artist, scene string) Record {
	return Record{Artist: &artist, Scene: &scene}
}

// Index is the read side used by quiz generation and catalog stats.
type Index interface {
	Lookup(id string) (Record, bool)
}

type Store struct {
	records map[string]Record
}

// NewStore copies records so later changes to the caller's map are not seen.
func NewStore(records map[string]Record) *Store {
	m := make(map[string]Record, len(records))
	for id, r := range records {
		m[id] = r.clone()
	}
	return &Store{records: m}
}

func (s *Store) Lookup(id string) (Record, bool) {
	if s == nil || id == "" {
		return Record{}, false
	}
	r, ok := s.records[id]
	return r.clone(), ok
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// IDs returns the identifiers in ascending order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Records returns a copy of the underlying map.
func (s *Store) Records() map[string]Record {
	out := make(map[string]Record, s.Len())
	if s == nil {
		return out
	}
	for id, r := range s.records {
		out[id] = r.clone()
	}
	return out
}

// clone keeps callers from writing through the pointers into the store.
func (r Record) clone() Record {
	return Record{Artist: cloneString(r.Artist), Scene: cloneString(r.Scene)}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// LoadFile reads the JSON side dataset: {"01_02": {"Artist": "...", "Scene": "..."}}.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read enrichment file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Store, error) {
	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode enrichment records: %w", err)
	}
	return &Store{records: nonNil(records)}, nil
}

func nonNil(m map[string]Record) map[string]Record {
	if m == nil {
		return map[string]Record{}
	}
	return m
}
