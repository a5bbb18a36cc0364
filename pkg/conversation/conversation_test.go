package conversation_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/continuum/pkg/conversation"
	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/registry"
)

var epoch = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func fixedRecorder() *conversation.Recorder {
	n := 0
	return conversation.NewRecorder(
		conversation.WithClock(func() time.Time { return epoch }),
		conversation.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func sonnet() registry.Model {
	return registry.Model{
		ID: "claude-sonnet", ProviderID: "anthropic", DisplayName: "Claude Sonnet",
		Capabilities: []string{"chat", "tools"}, Status: registry.StatusActive,
	}
}

func gpt() registry.Model {
	return registry.Model{
		ID: "gpt-4o", ProviderID: "openai", DisplayName: "GPT-4o",
		APIModelName: "gpt-4o-2024-08-06", Capabilities: []string{"chat"}, Status: registry.StatusActive,
	}
}

func sampleContext(t *testing.T) *conversation.Context {
	t.Helper()
	rec := fixedRecorder()
	c := rec.NewContext("triage")
	c.Metadata = map[string]any{"workspace": "ws-1", "priority": float64(2)}

	done := epoch.Add(3 * time.Second)
	msgs := []conversation.Message{
		{Role: conversation.RoleSystem, Content: "You are helpful."},
		{Role: conversation.RoleUser, Content: "Summarize the charter."},
		{
			Role:    conversation.RoleAssistant,
			Content: "Looking it up.",
			ModelInvocation: &conversation.ModelInvocation{
				Model:            sonnet(),
				ProviderModelID:  "claude-sonnet-4-20250514",
				InvokedAt:        epoch.Add(time.Second),
				ProviderMetadata: map[string]any{"stopReason": "tool_use", "usage": map[string]any{"input": float64(12)}},
			},
			ToolInvocations: []conversation.ToolInvocation{{
				ToolName:    "find_document",
				Arguments:   map[string]any{"key": "charter.md", "tags": []any{"a", "b"}},
				Result:      map[string]any{"found": true},
				InvokedAt:   epoch.Add(2 * time.Second),
				CompletedAt: &done,
				Success:     true,
			}},
		},
		{Role: conversation.RoleTool, Content: "charter text", ToolInvocations: []conversation.ToolInvocation{}},
		{
			Role:    conversation.RoleAssistant,
			Content: "Here is the summary.",
			ModelInvocation: &conversation.ModelInvocation{
				Model:     gpt(),
				InvokedAt: epoch.Add(4 * time.Second),
			},
		},
	}
	for _, m := range msgs {
		_, err := rec.Append(c, m)
		require.NoError(t, err)
	}
	return c
}

func TestAppend_AssignsIDAndTimestamp(t *testing.T) {
	rec := fixedRecorder()
	c := rec.NewContext("")

	m, err := rec.Append(c, conversation.Message{Role: conversation.RoleUser, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "id-2", m.ID)
	assert.Equal(t, epoch, m.CreatedAt)

	given := epoch.Add(-time.Hour)
	m, err = rec.Append(c, conversation.Message{ID: "mine", Role: conversation.RoleUser, CreatedAt: given})
	require.NoError(t, err)
	assert.Equal(t, "mine", m.ID)
	assert.Equal(t, given, m.CreatedAt)
	assert.Equal(t, 2, c.Len())
}

func TestAppend_InvalidRole(t *testing.T) {
	c := conversation.NewContext("x")
	before := c.UpdatedAt

	for _, role := range []conversation.Role{"", "System", "moderator"} {
		_, err := conversation.Append(c, conversation.Message{Role: role, Content: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrValidation))
		var ve *conversation.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "role", ve.Field)
	}
	assert.Zero(t, c.Len())
	assert.Equal(t, before, c.UpdatedAt)
}

func TestAppend_DuplicateID(t *testing.T) {
	rec := fixedRecorder()
	c := rec.NewContext("")
	_, err := rec.Append(c, conversation.Message{ID: "m1", Role: conversation.RoleUser})
	require.NoError(t, err)

	_, err = rec.Append(c, conversation.Message{ID: "m1", Role: conversation.RoleUser})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, 1, c.Len())
}

func TestAppend_UpdatedAtStrictlyAdvances(t *testing.T) {
	// The clock never moves; UpdatedAt must still advance on every append.
	rec := fixedRecorder()
	c := rec.NewContext("")
	prev := c.UpdatedAt

	for i := 0; i < 5; i++ {
		_, err := rec.Append(c, conversation.Message{Role: conversation.RoleUser})
		require.NoError(t, err)
		assert.True(t, c.UpdatedAt.After(prev), "append %d", i)
		prev = c.UpdatedAt
	}
}

func TestAppend_UsesClockWhenAhead(t *testing.T) {
	now := epoch
	rec := conversation.NewRecorder(conversation.WithClock(func() time.Time { return now }))
	c := rec.NewContext("")

	now = epoch.Add(time.Minute)
	_, err := rec.Append(c, conversation.Message{Role: conversation.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Minute), c.UpdatedAt)
}

func TestAppend_DoesNotMutatePreviousMessages(t *testing.T) {
	rec := fixedRecorder()
	c := rec.NewContext("")

	args := map[string]any{"q": "first"}
	first, err := rec.Append(c, conversation.Message{
		Role:            conversation.RoleAssistant,
		Content:         "one",
		ToolInvocations: []conversation.ToolInvocation{{ToolName: "search", Arguments: args}},
	})
	require.NoError(t, err)
	snapshot := c.Messages()

	// Caller mutates its input and the returned copy.
	args["q"] = "changed"
	first.Content = "edited"
	first.ToolInvocations[0].Arguments["q"] = "edited"

	_, err = rec.Append(c, conversation.Message{Role: conversation.RoleUser, Content: "two"})
	require.NoError(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "first", msgs[0].ToolInvocations[0].Arguments["q"])
	assert.Len(t, snapshot, 1)
	assert.Equal(t, snapshot[0], msgs[0])

	// Mutating a Messages() result does not reach the log either.
	msgs[0].Content = "rewritten"
	assert.Equal(t, "one", c.Messages()[0].Content)
}

func TestContext_MixedModels(t *testing.T) {
	c := sampleContext(t)

	assert.Equal(t, []string{"claude-sonnet", "gpt-4o"}, c.Models())
	msgs := c.Messages()
	assert.Equal(t, "anthropic", msgs[2].ModelInvocation.Model.ProviderID)
	assert.Equal(t, "openai", msgs[4].ModelInvocation.Model.ProviderID)
	assert.NotEmpty(t, msgs[2].ToolInvocations[0].ID)

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, "Here is the summary.", last.Content)
}

func TestMarshal_RoundTrip(t *testing.T) {
	c := sampleContext(t)

	data, err := conversation.Marshal(c)
	require.NoError(t, err)

	decoded, err := conversation.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)

	again, err := conversation.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestMarshal_RoundTripEmpty(t *testing.T) {
	c := fixedRecorder().NewContext("")

	data, err := conversation.Marshal(c)
	require.NoError(t, err)
	decoded, err := conversation.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestUnmarshal_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown top-level field": `{"id":"c1","messages":[],"createdAt":"2026-05-04T10:00:00Z","updatedAt":"2026-05-04T10:00:00Z","metadata":null,"vendor":"x"}`,
		"unknown message field":   `{"id":"c1","messages":[{"id":"m1","role":"user","content":"","createdAt":"2026-05-04T10:00:00Z","toolInvocations":null,"logprobs":[]}],"createdAt":"2026-05-04T10:00:00Z","updatedAt":"2026-05-04T10:00:00Z","metadata":null}`,
		"bad role":                `{"id":"c1","messages":[{"id":"m1","role":"bot","content":"","createdAt":"2026-05-04T10:00:00Z","toolInvocations":null}],"createdAt":"2026-05-04T10:00:00Z","updatedAt":"2026-05-04T10:00:00Z","metadata":null}`,
		"missing id":              `{"id":"","messages":null,"createdAt":"2026-05-04T10:00:00Z","updatedAt":"2026-05-04T10:00:00Z","metadata":null}`,
		"not json":                `conversation`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := conversation.Unmarshal([]byte(input))
			assert.Error(t, err)
		})
	}
}
