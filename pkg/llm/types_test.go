package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// NewToolDefinition
// ============================================================================

func TestNewToolDefinition_BuildsSchema(t *testing.T) {
	def := NewToolDefinition("get_recent_trades", "List recent trades",
		map[string]ParameterProperty{
			"limit": {Type: "integer", Description: "Max trades to return"},
			"side":  {Type: "string", Description: "Trade direction", Enum: []string{"long", "short"}},
		},
		[]string{"limit"})

	assert.Equal(t, "get_recent_trades", def.Name)
	assert.Equal(t, "object", def.InputSchema["type"])
	assert.Equal(t, []string{"limit"}, def.InputSchema["required"])

	props := def.InputSchema["properties"].(map[string]any)
	limit := props["limit"].(map[string]any)
	assert.Equal(t, "integer", limit["type"])
	side := props["side"].(map[string]any)
	assert.Equal(t, []string{"long", "short"}, side["enum"])

	_, hasEnum := limit["enum"]
	assert.False(t, hasEnum)
}

func TestNewToolDefinition_NoParameters(t *testing.T) {
	def := NewToolDefinition("ping", "Liveness check", nil, nil)

	assert.Equal(t, EmptyInputSchema(), def.InputSchema)
}

func TestNewToolDefinition_NilRequiredBecomesEmptyList(t *testing.T) {
	def := NewToolDefinition("echo", "Echo input",
		map[string]ParameterProperty{"text": {Type: "string"}}, nil)

	required, ok := def.InputSchema["required"].([]string)
	require.True(t, ok)
	assert.Empty(t, required)
}

func TestEmptyInputSchema_FreshPerCall(t *testing.T) {
	a := EmptyInputSchema()
	a["type"] = "mutated"

	assert.Equal(t, "object", EmptyInputSchema()["type"])
}

// ============================================================================
// Tool Call Detection
// ============================================================================

func TestHasToolCalls(t *testing.T) {
	assert.False(t, HasToolCalls(Message{Role: RoleAssistant, Content: "plain answer"}))
	assert.True(t, HasToolCalls(Message{Role: RoleAssistant, ToolCalls: []ToolUse{{ID: "call_1", Name: "ping"}}}))
}

func TestExtractToolCalls_Empty(t *testing.T) {
	assert.Nil(t, ExtractToolCalls(Message{Role: RoleAssistant, Content: "no tools"}))
}

func TestExtractToolCalls_ReturnsCopy(t *testing.T) {
	msg := Message{Role: RoleAssistant, ToolCalls: []ToolUse{
		{ID: "call_1", Name: "get_performance_summary"},
		{ID: "call_2", Name: "get_recent_trades"},
	}}

	calls := ExtractToolCalls(msg)
	require.Len(t, calls, 2)
	calls[0].ID = "overwritten"

	assert.Equal(t, "call_1", msg.ToolCalls[0].ID)
}
