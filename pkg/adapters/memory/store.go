// Package memory provides an in-process DocumentStore, used for embedding the
// engine without an external document service and as a test double.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/continuum/pkg/core"
)

// Store keeps documents in insertion order.
type Store struct {
	mu   sync.RWMutex
	docs []core.CanonicalDocument
	now  func() time.Time
}

// New creates a Store seeded with docs, preserving their order.
func New(docs ...core.CanonicalDocument) *Store {
	s := &Store{now: time.Now}
	for _, d := range docs {
		s.docs = append(s.docs, clone(d))
	}
	return s
}

// List returns a copy of all documents in insertion order.
func (s *Store) List(ctx context.Context) ([]core.CanonicalDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Transient(ctx, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.CanonicalDocument, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, clone(d))
	}
	return out, nil
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (core.CanonicalDocument, error) {
	if err := ctx.Err(); err != nil {
		return core.CanonicalDocument{}, core.Transient(ctx, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.docs {
		if d.ID == id {
			return clone(d), nil
		}
	}
	return core.CanonicalDocument{}, fmt.Errorf("document %q: %w", id, core.ErrNotFound)
}

// Put inserts or replaces a document. New documents go to the end of the order.
func (s *Store) Put(doc core.CanonicalDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.docs {
		if s.docs[i].ID == doc.ID {
			s.docs[i] = clone(doc)
			return
		}
	}
	s.docs = append(s.docs, clone(doc))
}

// SetGoverned implements core.GovernanceToggler.
func (s *Store) SetGoverned(ctx context.Context, id string, governed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.docs {
		if s.docs[i].ID == id {
			s.docs[i].Governed = governed
			s.docs[i].UpdatedAt = s.now()
			return nil
		}
	}
	return fmt.Errorf("document %q: %w", id, core.ErrNotFound)
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory-store"
}

func clone(d core.CanonicalDocument) core.CanonicalDocument {
	if d.Metadata != nil {
		m := make(core.Metadata, len(d.Metadata))
		for k, v := range d.Metadata {
			m[k] = v
		}
		d.Metadata = m
	}
	return d
}

var (
	_ core.DocumentStore     = (*Store)(nil)
	_ core.GovernanceToggler = (*Store)(nil)
)
