// Package conversation is the provider-agnostic record of a conversation:
// an append-only log of messages, each carrying its own model and tool
// invocations, so models from different providers mix freely in one context.
package conversation

import (
	"time"

	"github.com/aretw0/continuum/pkg/registry"
)

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four permitted roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// ToolInvocation records one tool call made while producing a message.
// Arguments and Result hold JSON-native values (string, float64, bool, nil,
// []any, map[string]any).
type ToolInvocation struct {
	ID          string         `json:"id"`
	ToolName    string         `json:"toolName"`
	Arguments   map[string]any `json:"arguments"`
	Result      any            `json:"result,omitempty"`
	InvokedAt   time.Time      `json:"invokedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
}

// ModelInvocation records which model produced a message. Model is a copy of
// the registry definition at the time of the call.
type ModelInvocation struct {
	Model            registry.Model `json:"model"`
	ProviderModelID  string         `json:"providerModelId,omitempty"`
	InvokedAt        time.Time      `json:"invokedAt"`
	ProviderMetadata map[string]any `json:"providerMetadata"`
}

// Message is one entry of the log.
type Message struct {
	ID              string           `json:"id"`
	Role            Role             `json:"role"`
	Content         string           `json:"content"`
	CreatedAt       time.Time        `json:"createdAt"`
	ModelInvocation *ModelInvocation `json:"modelInvocation,omitempty"`
	ToolInvocations []ToolInvocation `json:"toolInvocations"`
}

// Context is a conversation. Its message log can only grow through Append.
// A Context is not safe for concurrent use.
type Context struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Metadata  map[string]any

	messages []Message
}

// Messages returns a copy of the log in chronological order.
func (c *Context) Messages() []Message {
	if c.messages == nil {
		return nil
	}
	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.clone()
	}
	return out
}

// Len returns the number of messages.
func (c *Context) Len() int {
	return len(c.messages)
}

// Last returns the most recent message.
func (c *Context) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1].clone(), true
}

// Models returns the distinct model ids used in the log, in order of first use.
func (c *Context) Models() []string {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range c.messages {
		if m.ModelInvocation == nil {
			continue
		}
		id := m.ModelInvocation.Model.ID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func (m Message) clone() Message {
	out := m
	if m.ModelInvocation != nil {
		mi := m.ModelInvocation.clone()
		out.ModelInvocation = &mi
	}
	if m.ToolInvocations != nil {
		out.ToolInvocations = make([]ToolInvocation, len(m.ToolInvocations))
		for i, t := range m.ToolInvocations {
			out.ToolInvocations[i] = t.clone()
		}
	}
	return out
}

func (t ToolInvocation) clone() ToolInvocation {
	out := t
	out.Arguments = copyMap(t.Arguments)
	out.Result = copyValue(t.Result)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

func (mi ModelInvocation) clone() ModelInvocation {
	out := mi
	if mi.Model.Capabilities != nil {
		out.Model.Capabilities = append([]string(nil), mi.Model.Capabilities...)
	}
	out.ProviderMetadata = copyMap(mi.ProviderMetadata)
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return copyMap(x)
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
