package core

import "context"

// DocumentStore defines the read contract over the external document service.
// List must return documents in a stable order; key resolution relies on it.
type DocumentStore interface {
	// List returns all documents visible to the caller.
	List(ctx context.Context) ([]CanonicalDocument, error)
	// Get retrieves a document by its ID, failing with ErrNotFound if absent.
	Get(ctx context.Context, id string) (CanonicalDocument, error)
}

// GovernanceToggler is implemented by stores that can pass a governed-flag
// change through to the document service.
type GovernanceToggler interface {
	SetGoverned(ctx context.Context, id string, governed bool) error
}

// Watchable is implemented by stores that can report changes.
type Watchable interface {
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}
