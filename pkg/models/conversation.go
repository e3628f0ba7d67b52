package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Chat Roles
// ============================================================================

// ChatRole represents the role of a conversation message sender.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
	ChatRoleTool      ChatRole = "tool"
)

// ValidChatRoles contains all valid chat role values.
var ValidChatRoles = []ChatRole{
	ChatRoleUser,
	ChatRoleAssistant,
	ChatRoleSystem,
	ChatRoleTool,
}

// IsValidChatRole checks if the given role is valid.
func IsValidChatRole(r ChatRole) bool {
	for _, v := range ValidChatRoles {
		if v == r {
			return true
		}
	}
	return false
}

// ============================================================================
// Tool Call Records
// ============================================================================

// ToolCallRecord is a tool call as persisted with a conversation message.
// Input holds the already-parsed arguments object, never a serialized string.
type ToolCallRecord struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// ============================================================================
// Conversation Message
// ============================================================================

// ConversationMessage represents one stored entry of an assistant conversation.
// The conversation store owns these; this engine only reads them.
type ConversationMessage struct {
	ID             uuid.UUID        `json:"id"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	Role           ChatRole         `json:"role"`
	Content        string           `json:"content"`
	ToolCalls      []ToolCallRecord `json:"tool_calls,omitempty"`
	ToolUseID      string           `json:"tool_use_id,omitempty"`
	IsError        bool             `json:"is_error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// IsFromUser returns true if the message is from a user.
func (m *ConversationMessage) IsFromUser() bool {
	return m.Role == ChatRoleUser
}

// IsFromAssistant returns true if the message is from the assistant.
func (m *ConversationMessage) IsFromAssistant() bool {
	return m.Role == ChatRoleAssistant
}

// IsToolResponse returns true if the message is a tool response.
func (m *ConversationMessage) IsToolResponse() bool {
	return m.Role == ChatRoleTool
}

// HasToolCalls returns true if the message contains tool calls.
func (m *ConversationMessage) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
