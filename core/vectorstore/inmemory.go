package vectorstore

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/leofalp/sagent/core/embeddings"
)

// Identifiable documents choose their own store ID. Others get a random UUID.
type Identifiable interface {
	DocumentID() string
}

type record[T any] struct {
	id    string
	entry embeddings.Entry[T]
}

// InMemory holds embedded documents in memory. Adding a document with an
// existing ID replaces it. Safe for concurrent use.
type InMemory[T any] struct {
	mu      sync.RWMutex
	records []record[T]
	byID    map[string]int
}

func New[T any]() *InMemory[T] {
	return &InMemory[T]{byID: map[string]int{}}
}

// FromEntries builds a store holding entries.
func FromEntries[T any](entries []embeddings.Entry[T]) *InMemory[T] {
	store := New[T]()
	store.Add(entries...)
	return store
}

// Add inserts entries and returns their IDs in order.
func (s *InMemory[T]) Add(entries ...embeddings.Entry[T]) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(entries))
	for i, entry := range entries {
		id := documentID(entry.Document)
		ids[i] = id

		if index, exists := s.byID[id]; exists {
			s.records[index].entry = entry
			continue
		}
		s.byID[id] = len(s.records)
		s.records = append(s.records, record[T]{id: id, entry: entry})
	}
	return ids
}

// Get returns the document stored under id.
func (s *InMemory[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, ok := s.byID[id]
	if !ok {
		var zero T
		return zero, false
	}
	return s.records[index].entry.Document, true
}

func (s *InMemory[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Result is a scored document.
type Result[T any] struct {
	ID       string
	Score    float64
	Document T
}

// search scores every document against query by its best-matching
// embedding and returns the top n, highest first. Ties keep insertion order.
func (s *InMemory[T]) search(query []float64, n int) []Result[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result[T], 0, len(s.records))
	for _, rec := range s.records {
		best, found := 0.0, false
		for _, embedding := range rec.entry.Embeddings {
			score := embeddings.CosineSimilarity(query, embedding.Vec)
			if !found || score > best {
				best, found = score, true
			}
		}
		if found {
			results = append(results, Result[T]{ID: rec.id, Score: best, Document: rec.entry.Document})
		}
	}

	slices.SortStableFunc(results, func(a, b Result[T]) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if n < len(results) {
		results = results[:n]
	}
	return results
}

func documentID(document any) string {
	if identifiable, ok := document.(Identifiable); ok {
		if id := identifiable.DocumentID(); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
