package llm

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	llmContextKey contextKey = "llm_context"
)

// WithContext returns a context with provider call metadata attached.
// The metadata map is merged with any existing values.
func WithContext(ctx context.Context, values map[string]any) context.Context {
	existing := GetContext(ctx)
	if existing == nil {
		existing = make(map[string]any)
	}
	for k, v := range values {
		existing[k] = v
	}
	return context.WithValue(ctx, llmContextKey, existing)
}

// GetContext retrieves provider call metadata from the context, if present.
func GetContext(ctx context.Context) map[string]any {
	if c, ok := ctx.Value(llmContextKey).(map[string]any); ok {
		// Return a copy to prevent mutation
		copied := make(map[string]any, len(c))
		for k, v := range c {
			copied[k] = v
		}
		return copied
	}
	return nil
}

// LogFields renders the attached metadata as zap fields, sorted by key so
// log lines stay stable across calls.
func LogFields(ctx context.Context) []zap.Field {
	meta := GetContext(ctx)
	if len(meta) == 0 {
		return nil
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, meta[k]))
	}
	return fields
}

// WithConversationContext tags provider calls with the conversation being
// served, so downstream logs can be traced back to it.
func WithConversationContext(ctx context.Context, conversationID, userID uuid.UUID, intent string) context.Context {
	values := map[string]any{
		"conversation_id": conversationID.String(),
	}
	if userID != uuid.Nil {
		values["user_id"] = userID.String()
	}
	if intent != "" {
		values["intent"] = intent
	}
	return WithContext(ctx, values)
}
