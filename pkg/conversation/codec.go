package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type wireContext struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	Messages  []Message      `json:"messages"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Metadata  map[string]any `json:"metadata"`
}

// MarshalJSON implements json.Marshaler.
func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireContext{
		ID:        c.ID,
		Title:     c.Title,
		Messages:  c.messages,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Metadata:  c.Metadata,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Unknown fields are rejected.
func (c *Context) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireContext
	if err := dec.Decode(&w); err != nil {
		return err
	}
	*c = Context{
		ID:        w.ID,
		Title:     w.Title,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
		Metadata:  w.Metadata,
		messages:  w.Messages,
	}
	return nil
}

// Marshal encodes c as JSON.
func Marshal(c *Context) ([]byte, error) {
	if c == nil {
		return nil, invalid("", "nil context")
	}
	return json.Marshal(c)
}

// Unmarshal decodes and validates a context produced by Marshal.
func Unmarshal(data []byte) (*Context, error) {
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks a context that did not come from Append, e.g. after decoding.
func Validate(c *Context) error {
	if c.ID == "" {
		return invalid("id", "missing context id")
	}
	if c.UpdatedAt.Before(c.CreatedAt) {
		return invalid("updatedAt", "before createdAt")
	}
	seen := make(map[string]bool, len(c.messages))
	for i, m := range c.messages {
		field := fmt.Sprintf("messages[%d]", i)
		if m.ID == "" {
			return invalid(field+".id", "missing message id")
		}
		if seen[m.ID] {
			return invalid(field+".id", "duplicate message id %q", m.ID)
		}
		seen[m.ID] = true
		if !m.Role.Valid() {
			return invalid(field+".role", "%q is not one of system, user, assistant, tool", m.Role)
		}
	}
	return nil
}
