package docstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used for local development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
	sets int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]any)}
}

// Set shallow-merges body into the stored document, creating it if absent.
func (s *MemoryStore) Set(ctx context.Context, collection Path, docID string, body map[string]any) error {
	if err := ctx.Err(); err != nil {
		return upsertErr(collection, docID, err)
	}
	if err := collection.Validate(docID); err != nil {
		return upsertErr(collection, docID, err)
	}

	key := collection.DocPath(docID)
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[key]
	if !ok {
		doc = make(map[string]any, len(body))
		s.docs[key] = doc
	}
	for k, v := range body {
		doc[k] = v
	}
	s.sets++
	return nil
}

// Get returns a copy of the stored document at the full document path.
func (s *MemoryStore) Get(docPath string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docPath]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true
}

// Paths lists stored document paths.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for k := range s.docs {
		out = append(out, k)
	}
	return out
}

// Writes returns the number of successful Set calls.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets
}

// Kind identifies the backend.
func (s *MemoryStore) Kind() string { return "memory" }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
