// Package llm holds the canonical conversation shapes and the conversions
// between them and provider wire formats.
package llm

import "context"

// ============================================================================
// Roles
// ============================================================================

// Role identifies the sender of a canonical message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ============================================================================
// Tool Definitions (canonical shape)
// ============================================================================

// ToolDefinition is the canonical tool shape used throughout the engine.
// It mirrors the Anthropic layout; provider adapters translate outward.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ParameterProperty defines a parameter property in JSON Schema format.
type ParameterProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// EmptyInputSchema returns the schema used for tools that declare no
// parameters. Providers reject a missing schema, so absence normalizes
// to this instead of nil.
func EmptyInputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}
}

// NewToolDefinition creates a tool definition with standard JSON Schema input.
func NewToolDefinition(name, description string, properties map[string]ParameterProperty, required []string) ToolDefinition {
	if len(properties) == 0 && len(required) == 0 {
		return ToolDefinition{Name: name, Description: description, InputSchema: EmptyInputSchema()}
	}

	props := make(map[string]any)
	for k, v := range properties {
		props[k] = map[string]any{
			"type":        v.Type,
			"description": v.Description,
		}
		if len(v.Enum) > 0 {
			props[k].(map[string]any)["enum"] = v.Enum
		}
	}
	if required == nil {
		required = []string{}
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// ============================================================================
// Tool Use and Tool Results
// ============================================================================

// ToolUse is a normalized model request to invoke one tool. Input is always
// the parsed arguments object, regardless of how the provider serialized it.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult carries the outcome of a tool invocation back toward the model.
// Payload may be a string or any JSON-serializable value.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Payload   any    `json:"payload"`
	IsError   bool   `json:"is_error"`
}

// ============================================================================
// Canonical Messages
// ============================================================================

// Message is one canonical transcript entry. ToolUseID and IsError are only
// meaningful when Role is RoleTool.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ToolCalls []ToolUse `json:"tool_calls,omitempty"`
	ToolUseID string    `json:"tool_use_id,omitempty"`
	IsError   bool      `json:"is_error,omitempty"`
}

// HasToolCalls reports whether the message carries tool-call requests.
// Detection is structural: it never consults model or provider identity.
func HasToolCalls(msg Message) bool {
	return len(msg.ToolCalls) > 0
}

// ExtractToolCalls returns the message's tool-call requests in order.
func ExtractToolCalls(msg Message) []ToolUse {
	if len(msg.ToolCalls) == 0 {
		return nil
	}
	out := make([]ToolUse, len(msg.ToolCalls))
	copy(out, msg.ToolCalls)
	return out
}

// ============================================================================
// Completion Clients
// ============================================================================

// CompletionRequest is a single-shot text completion, used for internal
// model work such as summarization. Conversation turns never go through
// this path.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// CompletionResult holds the completion text and its token cost.
type CompletionResult struct {
	Text       string
	TokensUsed int
	Model      string
}

// CompletionClient is implemented per provider. Implementations classify
// transport failures through ClassifyError so retry and breaker layers see
// consistent retryability.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
	ModelID() string
}
