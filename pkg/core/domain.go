// Package core holds the canonical document domain: the document entity, the
// store port that adapters implement, and the tiered key resolver.
package core

import "time"

// Metadata represents the flexible key-value pairs associated with a document.
type Metadata map[string]any

// CanonicalDocument is the authoritative stored document for a given key.
// It is owned by an external document service; this module only reads it and
// passes through governance-flag toggles.
type CanonicalDocument struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Title     string    `json:"title,omitempty"`
	Governed  bool      `json:"governed"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Metadata  Metadata  `json:"metadata,omitempty"`
}

// EventType represents the type of change observed in a store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change in a store.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return string(e.Type) + " " + e.ID
}
