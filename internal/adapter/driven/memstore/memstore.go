// Package memstore implements the CredentialStore port in process memory.
// It backs ephemeral sessions (no store path configured) and tests.
package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
	"github.com/ericfisherdev/diligencias/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*Store)(nil)

type entry struct {
	value     string
	updatedAt time.Time
}

// Store is a process-wide key/value map with last-writer-wins semantics.
// Entries never expire.
type Store struct {
	items *cache.Cache
	now   func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		items: cache.New(cache.NoExpiration, 0),
		now:   time.Now,
	}
}

// Get returns the value under key, or ("", nil) when absent.
func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return "", nil
	}
	return v.(entry).value, nil
}

// Set stores or replaces the value under key.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.items.Set(key, entry{value: value, updatedAt: s.now()}, cache.NoExpiration)
	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

// List returns every pair ordered by key.
func (s *Store) List(_ context.Context) ([]model.StoredValue, error) {
	items := s.items.Items()
	values := make([]model.StoredValue, 0, len(items))
	for key, item := range items {
		e := item.Object.(entry)
		values = append(values, model.StoredValue{Key: key, Value: e.value, UpdatedAt: e.updatedAt})
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Key < values[j].Key })
	return values, nil
}
