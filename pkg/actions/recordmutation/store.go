// Package recordmutation implements the create_record and update_record
// actions against a pluggable practice-management record store.
package recordmutation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// RecordStore abstracts the practice-management system's record backend.
type RecordStore interface {
	Create(ctx context.Context, resource string, fields map[string]any) (string, error)
	Update(ctx context.Context, resource, recordID string, fields map[string]any) error
}

// MemoryStore keeps records in process memory. Used in development and
// tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]map[string]any)}
}

func (s *MemoryStore) Create(ctx context.Context, resource string, fields map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[resource] == nil {
		s.records[resource] = make(map[string]map[string]any)
	}

	id := uuid.New().String()
	s.records[resource][id] = fields

	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, resource, recordID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[resource][recordID]
	if !ok {
		return fmt.Errorf("record %s/%s not found", resource, recordID)
	}

	for key, value := range fields {
		record[key] = value
	}

	return nil
}

// Get returns a copy of a stored record. Test helper.
func (s *MemoryStore) Get(resource, recordID string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[resource][recordID]
	if !ok {
		return nil, false
	}

	out := make(map[string]any, len(record))
	for key, value := range record {
		out[key] = value
	}

	return out, true
}
