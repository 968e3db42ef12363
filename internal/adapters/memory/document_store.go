package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// DocumentStore is an in-process domain.DocumentStore keeping deep copies of
// JSON-normalized documents. Intended for tests and local development.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.Fields
	newID       func() string
}

// NewDocumentStore creates an empty store with uuid document ids.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]domain.Fields),
		newID:       uuid.NewString,
	}
}

// Get implements domain.DocumentStore.
func (s *DocumentStore) Get(_ context.Context, collection, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.collections[collection][id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return domain.Document{ID: id, Fields: f.Clone()}, nil
}

// List implements domain.DocumentStore.
func (s *DocumentStore) List(_ context.Context, collection string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.collections[collection]))
	for id, f := range s.collections[collection] {
		docs = append(docs, domain.Document{ID: id, Fields: f.Clone()})
	}
	domain.SortDocuments(docs)
	return docs, nil
}

// Query implements domain.DocumentStore.
func (s *DocumentStore) Query(_ context.Context, collection, field string, op domain.QueryOp, value any) ([]domain.Document, error) {
	want, err := domain.NormalizeValue(value)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0)
	for id, f := range s.collections[collection] {
		if f.Matches(field, op, want) {
			docs = append(docs, domain.Document{ID: id, Fields: f.Clone()})
		}
	}
	domain.SortDocuments(docs)
	return docs, nil
}

// Create implements domain.DocumentStore.
func (s *DocumentStore) Create(_ context.Context, collection string, data domain.Fields) (string, error) {
	normalized, err := domain.EncodeFields(data)
	if err != nil {
		return "", err
	}
	id := s.newID()
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]domain.Fields)
		s.collections[collection] = col
	}
	col[id] = normalized
	return id, nil
}

// Update implements domain.DocumentStore. The merge happens under the write
// lock so readers never observe a partial update.
func (s *DocumentStore) Update(_ context.Context, collection, id string, partial domain.Fields) error {
	normalized, err := domain.EncodeFields(partial)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("document %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	s.collections[collection][id] = current.Merge(normalized)
	return nil
}

// Delete implements domain.DocumentStore.
func (s *DocumentStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}
