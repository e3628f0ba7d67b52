package llm

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool catalogs defined on MCP surfaces re-enter the engine through this
// bridge. Schema maps move verbatim in both directions.

// ToolDefinitionsFromMCP converts MCP tool declarations into canonical tool
// definitions.
func ToolDefinitionsFromMCP(tools []mcp.Tool) []ToolDefinition {
	out := make([]ToolDefinition, 0, len(tools))
	for _, t := range tools {
		schemaType := t.InputSchema.Type
		if schemaType == "" {
			schemaType = "object"
		}
		properties := copyJSONMap(t.InputSchema.Properties)
		if properties == nil {
			properties = map[string]any{}
		}
		required := t.InputSchema.Required
		if required == nil {
			required = []string{}
		}
		out = append(out, ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: map[string]any{
				"type":       schemaType,
				"properties": properties,
				"required":   required,
			},
		})
	}
	return out
}

// ToMCPTool converts a canonical tool definition into an MCP tool
// declaration suitable for server registration.
func ToMCPTool(def ToolDefinition) mcp.Tool {
	schema := def.InputSchema
	if len(schema) == 0 {
		schema = EmptyInputSchema()
	}

	schemaType := stringAt(schema, "type")
	if schemaType == "" {
		schemaType = "object"
	}
	properties, _ := schema["properties"].(map[string]any)
	if properties == nil {
		properties = map[string]any{}
	}

	return mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: mcp.ToolInputSchema{
			Type:       schemaType,
			Properties: copyJSONMap(properties),
			Required:   requiredList(schema["required"]),
		},
	}
}

// requiredList accepts the required field as []string or, after a JSON
// round trip, []any.
func requiredList(v any) []string {
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}
