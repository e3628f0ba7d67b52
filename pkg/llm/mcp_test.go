package llm

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolDefinitionsFromMCP(t *testing.T) {
	tools := []mcp.Tool{{
		Name:        "get_symbol_stats",
		Description: "Aggregate stats for one symbol",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"symbol": map[string]any{"type": "string"}},
			Required:   []string{"symbol"},
		},
	}}

	defs := ToolDefinitionsFromMCP(tools)
	require.Len(t, defs, 1)
	assert.Equal(t, "get_symbol_stats", defs[0].Name)
	assert.Equal(t, "object", defs[0].InputSchema["type"])
	assert.Equal(t, []string{"symbol"}, defs[0].InputSchema["required"])

	props := defs[0].InputSchema["properties"].(map[string]any)
	assert.Contains(t, props, "symbol")
}

func TestToolDefinitionsFromMCP_BareSchema(t *testing.T) {
	defs := ToolDefinitionsFromMCP([]mcp.Tool{{Name: "ping", Description: "Liveness check"}})

	require.Len(t, defs, 1)
	assert.Equal(t, "object", defs[0].InputSchema["type"])
	assert.Equal(t, map[string]any{}, defs[0].InputSchema["properties"])
	assert.Equal(t, []string{}, defs[0].InputSchema["required"])
}

func TestToMCPTool(t *testing.T) {
	def := symbolStatsTool()

	tool := ToMCPTool(def)
	assert.Equal(t, def.Name, tool.Name)
	assert.Equal(t, def.Description, tool.Description)
	assert.Equal(t, "object", tool.InputSchema.Type)
	assert.Equal(t, []string{"symbol"}, tool.InputSchema.Required)
	assert.Contains(t, tool.InputSchema.Properties, "symbol")
	assert.Contains(t, tool.InputSchema.Properties, "period")
}

func TestToMCPTool_EmptySchema(t *testing.T) {
	tool := ToMCPTool(ToolDefinition{Name: "ping", Description: "Liveness check"})

	assert.Equal(t, "object", tool.InputSchema.Type)
	assert.NotNil(t, tool.InputSchema.Properties)
	assert.Equal(t, []string{}, tool.InputSchema.Required)
}

func TestMCPBridge_RoundTrip(t *testing.T) {
	original := symbolStatsTool()

	back := ToolDefinitionsFromMCP([]mcp.Tool{ToMCPTool(original)})
	require.Len(t, back, 1)
	assert.Equal(t, jsonRoundTrip(t, original), jsonRoundTrip(t, back[0]))
}

func TestToMCPTool_RequiredAfterJSONRoundTrip(t *testing.T) {
	// Schemas loaded from storage carry required as []any.
	def := ToolDefinition{
		Name: "get_recent_trades",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"limit": map[string]any{"type": "integer"}},
			"required":   []any{"limit"},
		},
	}

	tool := ToMCPTool(def)
	assert.Equal(t, []string{"limit"}, tool.InputSchema.Required)
}
