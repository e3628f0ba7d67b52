package llm

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/apperrors"
	"github.com/tradelens-ai/convo-engine/pkg/registry"
)

// ============================================================================
// Transformer
// ============================================================================

// Transformer converts canonical tool catalogs and transcripts into the wire
// format each model expects. Dispatch is by the registry's ToolFormat, never
// by inspecting model ID strings.
type Transformer struct {
	registry *registry.Registry
	adapters map[registry.ToolFormat]ProviderAdapter
	logger   *zap.Logger
}

// NewTransformer creates a transformer backed by the given registry.
func NewTransformer(reg *registry.Registry, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{
		registry: reg,
		adapters: map[registry.ToolFormat]ProviderAdapter{
			registry.FormatAnthropic: &anthropicAdapter{},
			registry.FormatOpenAI:    &openaiAdapter{},
		},
		logger: logger.Named("transformer"),
	}
}

func (t *Transformer) adapterFor(modelID string) (ProviderAdapter, error) {
	desc, err := t.registry.Get(modelID)
	if err != nil {
		return nil, err
	}
	adapter, ok := t.adapters[desc.ToolFormat]
	if !ok {
		return nil, fmt.Errorf("%w: model %q declares format %q", apperrors.ErrUnsupportedToolFormat, modelID, desc.ToolFormat)
	}
	return adapter, nil
}

// ToolsForModel converts a canonical tool catalog into the model's wire
// format. Models that take no tools yield (nil, nil); the caller omits the
// tool block entirely.
func (t *Transformer) ToolsForModel(tools []ToolDefinition, modelID string) (*ProviderTools, error) {
	desc, err := t.registry.Get(modelID)
	if err != nil {
		return nil, err
	}
	if !desc.SupportsTools() {
		return nil, nil
	}
	return t.adapters[desc.ToolFormat].Tools(tools)
}

// MessagesForModel converts a canonical transcript, order preserved.
func (t *Transformer) MessagesForModel(system string, msgs []Message, modelID string) (*ProviderMessages, error) {
	adapter, err := t.adapterFor(modelID)
	if err != nil {
		return nil, err
	}
	return adapter.Messages(system, msgs)
}

// ToolUseMessageForModel builds the assistant-turn message carrying tool
// calls in the model's wire format.
func (t *Transformer) ToolUseMessageForModel(content string, uses []ToolUse, modelID string) (*ProviderMessage, error) {
	adapter, err := t.adapterFor(modelID)
	if err != nil {
		return nil, err
	}
	return adapter.ToolUseMessage(content, uses)
}

// ToolResultForModel builds the message returning a tool outcome to the
// model.
func (t *Transformer) ToolResultForModel(res ToolResult, modelID string) (*ProviderMessage, error) {
	adapter, err := t.adapterFor(modelID)
	if err != nil {
		return nil, err
	}
	return adapter.ToolResultMessage(res)
}

// NormalizeToolUseForModel parses a raw tool-call payload in the model's
// wire format into the canonical shape.
func (t *Transformer) NormalizeToolUseForModel(raw json.RawMessage, modelID string) (*ToolUse, error) {
	adapter, err := t.adapterFor(modelID)
	if err != nil {
		return nil, err
	}
	return adapter.NormalizeToolUse(raw)
}

// ============================================================================
// Raw Catalog Ingestion
// ============================================================================

// toolShape classifies a stored tool definition by structure alone.
type toolShape int

const (
	shapeUnknown toolShape = iota
	shapeAnthropic
	shapeOpenAI
)

func sniffToolShape(tool map[string]any) toolShape {
	if _, ok := tool["input_schema"]; ok {
		return shapeAnthropic
	}
	if typ, _ := tool["type"].(string); typ == "function" {
		return shapeOpenAI
	}
	if _, ok := tool["function"]; ok {
		return shapeOpenAI
	}
	return shapeUnknown
}

// RawToolsForModel converts a stored tool catalog of unknown provenance into
// the model's wire format. Each item's shape is sniffed structurally; items
// already in the target shape pass through unchanged, so re-ingesting an
// output is a no-op. Unrecognizable items pass through untouched with a
// warning. This is the only place shape sniffing happens; typed catalogs go
// through ToolsForModel.
func (t *Transformer) RawToolsForModel(raw []map[string]any, modelID string) ([]map[string]any, error) {
	desc, err := t.registry.Get(modelID)
	if err != nil {
		return nil, err
	}
	if !desc.SupportsTools() || len(raw) == 0 {
		return nil, nil
	}

	out := make([]map[string]any, 0, len(raw))
	for i, tool := range raw {
		shape := sniffToolShape(tool)
		switch {
		case shape == shapeUnknown:
			t.logger.Warn("unrecognized tool definition shape, passing through",
				zap.Int("index", i),
				zap.String("model", modelID))
			out = append(out, tool)
		case shape == shapeAnthropic && desc.ToolFormat == registry.FormatAnthropic,
			shape == shapeOpenAI && desc.ToolFormat == registry.FormatOpenAI:
			out = append(out, tool)
		case desc.ToolFormat == registry.FormatOpenAI:
			out = append(out, AnthropicToolToOpenAI(tool))
		default:
			out = append(out, OpenAIToolToAnthropic(tool))
		}
	}
	return out, nil
}

// ============================================================================
// Pure Mapping Functions
// ============================================================================

// AnthropicToolToOpenAI maps one Anthropic-shaped tool definition to the
// OpenAI function wrapper. The schema moves to function.parameters without
// alteration; a missing schema becomes the empty-schema default. The input
// map is never mutated.
func AnthropicToolToOpenAI(tool map[string]any) map[string]any {
	fn := map[string]any{
		"name":        stringAt(tool, "name"),
		"description": stringAt(tool, "description"),
	}
	if schema, ok := tool["input_schema"]; ok && schema != nil {
		fn["parameters"] = copyJSONValue(schema)
	} else {
		fn["parameters"] = EmptyInputSchema()
	}
	return map[string]any{"type": "function", "function": fn}
}

// OpenAIToolToAnthropic maps one OpenAI function-shaped tool definition to
// the Anthropic layout. function.parameters moves to input_schema without
// alteration; a missing schema becomes the empty-schema default.
func OpenAIToolToAnthropic(tool map[string]any) map[string]any {
	fn, _ := tool["function"].(map[string]any)
	out := map[string]any{
		"name":        stringAt(fn, "name"),
		"description": stringAt(fn, "description"),
	}
	if fn != nil {
		if params, ok := fn["parameters"]; ok && params != nil {
			out["input_schema"] = copyJSONValue(params)
			return out
		}
	}
	out["input_schema"] = EmptyInputSchema()
	return out
}

// ExtractRawToolCalls pulls every tool call out of a raw provider message,
// detecting the wire shape structurally: a tool_calls array marks an OpenAI
// message, tool_use content blocks mark an Anthropic one. Messages carrying
// no tool calls yield an empty result.
func ExtractRawToolCalls(raw json.RawMessage) ([]ToolUse, error) {
	var probe struct {
		ToolCalls []json.RawMessage `json:"tool_calls"`
		Content   json.RawMessage   `json:"content"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse provider message: %w", err)
	}

	if len(probe.ToolCalls) > 0 {
		adapter := &openaiAdapter{}
		out := make([]ToolUse, 0, len(probe.ToolCalls))
		for _, call := range probe.ToolCalls {
			use, err := adapter.NormalizeToolUse(call)
			if err != nil {
				return nil, err
			}
			out = append(out, *use)
		}
		return out, nil
	}

	if len(probe.Content) > 0 && probe.Content[0] == '[' {
		var blocks []json.RawMessage
		if err := json.Unmarshal(probe.Content, &blocks); err != nil {
			return nil, fmt.Errorf("parse content blocks: %w", err)
		}
		adapter := &anthropicAdapter{}
		var out []ToolUse
		for _, block := range blocks {
			var header struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(block, &header); err != nil {
				return nil, fmt.Errorf("parse content block: %w", err)
			}
			if header.Type != "tool_use" {
				continue
			}
			use, err := adapter.NormalizeToolUse(block)
			if err != nil {
				return nil, err
			}
			out = append(out, *use)
		}
		return out, nil
	}

	return nil, nil
}

// ============================================================================
// Helpers
// ============================================================================

func stringAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func copyJSONMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyJSONValue(v)
	}
	return out
}

func copyJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyJSONMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyJSONValue(item)
		}
		return out
	default:
		return v
	}
}
