package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Recorder creates contexts and appends messages, assigning ids and
// timestamps from its injected sources.
type Recorder struct {
	now   func() time.Time
	newID func() string
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the time source.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator sets the id source. The default generates UUIDs.
func WithIDGenerator(newID func() string) RecorderOption {
	return func(r *Recorder) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// NewRecorder creates a Recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRecorder = NewRecorder()

// NewContext creates an empty context using the default recorder.
func NewContext(title string) *Context {
	return defaultRecorder.NewContext(title)
}

// Append appends msg to c using the default recorder.
func Append(c *Context, msg Message) (Message, error) {
	return defaultRecorder.Append(c, msg)
}

// NewContext creates an empty context.
func (r *Recorder) NewContext(title string) *Context {
	now := r.timestamp()
	return &Context{
		ID:        r.newID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append validates msg, fills in a missing id and createdAt, and appends a
// deep copy to the end of c's log. UpdatedAt strictly advances, even if the
// clock does not. The returned message is another copy: later appends never
// change it, and changing it never reaches the log.
func (r *Recorder) Append(c *Context, msg Message) (Message, error) {
	if c == nil {
		return Message{}, invalid("", "nil context")
	}
	if !msg.Role.Valid() {
		return Message{}, invalid("role", "%q is not one of system, user, assistant, tool", msg.Role)
	}
	if msg.ID != "" {
		for _, existing := range c.messages {
			if existing.ID == msg.ID {
				return Message{}, invalid("id", "duplicate message id %q", msg.ID)
			}
		}
	}

	now := r.timestamp()
	m := msg.clone()
	if m.ID == "" {
		m.ID = r.newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	} else {
		m.CreatedAt = normalize(m.CreatedAt)
	}
	if m.ModelInvocation != nil {
		m.ModelInvocation.InvokedAt = normalize(m.ModelInvocation.InvokedAt)
	}
	for i := range m.ToolInvocations {
		t := &m.ToolInvocations[i]
		if t.ID == "" {
			t.ID = r.newID()
		}
		t.InvokedAt = normalize(t.InvokedAt)
		if t.CompletedAt != nil {
			at := normalize(*t.CompletedAt)
			t.CompletedAt = &at
		}
	}

	c.messages = append(c.messages, m)
	if now.After(c.UpdatedAt) {
		c.UpdatedAt = now
	} else {
		c.UpdatedAt = c.UpdatedAt.Add(time.Nanosecond)
	}
	return m.clone(), nil
}

func (r *Recorder) timestamp() time.Time {
	return normalize(r.now())
}

// normalize drops the monotonic reading and location so timestamps compare
// equal after a JSON round trip.
func normalize(t time.Time) time.Time {
	return t.UTC().Round(0)
}
