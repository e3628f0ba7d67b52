package llm

import (
	"encoding/json"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/tradelens-ai/convo-engine/pkg/registry"
)

// ============================================================================
// Provider Payload Unions
// ============================================================================

// ProviderTools is a provider-ready tool catalog. Format discriminates which
// arm is populated; exactly one arm is non-nil.
type ProviderTools struct {
	Format    registry.ToolFormat
	Anthropic []anthropic.ToolDefinition
	OpenAI    []openai.Tool
}

// ProviderMessages is a provider-ready transcript. For Anthropic the system
// prompt rides request-level in System; for OpenAI it is already inlined as
// the leading system message.
type ProviderMessages struct {
	Format    registry.ToolFormat
	System    string
	Anthropic []anthropic.Message
	OpenAI    []openai.ChatCompletionMessage
}

// ProviderMessage is a single provider-ready message.
type ProviderMessage struct {
	Format    registry.ToolFormat
	Anthropic *anthropic.Message
	OpenAI    *openai.ChatCompletionMessage
}

// MarshalWire renders the exact JSON the provider's HTTP API expects for the
// message array. OpenAI assistant messages carrying tool calls emit
// "content": null explicitly; some OpenAI-compatible gateways reject an
// absent content key, and the SDK's own marshaling emits "" instead.
func (p *ProviderMessages) MarshalWire() ([]byte, error) {
	switch p.Format {
	case registry.FormatAnthropic:
		return json.Marshal(p.Anthropic)
	case registry.FormatOpenAI:
		wire := make([]openAIWireMessage, len(p.OpenAI))
		for i := range p.OpenAI {
			wire[i] = toOpenAIWireMessage(p.OpenAI[i])
		}
		return json.Marshal(wire)
	default:
		return nil, fmt.Errorf("cannot marshal messages for format %q", p.Format)
	}
}

// MarshalWire renders the exact provider JSON for one message.
func (p *ProviderMessage) MarshalWire() ([]byte, error) {
	switch p.Format {
	case registry.FormatAnthropic:
		return json.Marshal(p.Anthropic)
	case registry.FormatOpenAI:
		wire := toOpenAIWireMessage(*p.OpenAI)
		return json.Marshal(wire)
	default:
		return nil, fmt.Errorf("cannot marshal message for format %q", p.Format)
	}
}

// ============================================================================
// Provider Adapter
// ============================================================================

// ProviderAdapter converts canonical conversation structures into one
// provider's wire format and back. Adding a provider means adding one
// implementation; nothing upstream switches on provider identity.
type ProviderAdapter interface {
	// Format names the wire format this adapter produces.
	Format() registry.ToolFormat

	// Tools converts a canonical tool catalog.
	Tools(tools []ToolDefinition) (*ProviderTools, error)

	// Messages converts a canonical transcript, preserving order. The system
	// prompt is placed wherever the provider expects it.
	Messages(system string, msgs []Message) (*ProviderMessages, error)

	// ToolUseMessage builds the assistant-turn message representing tool
	// calls, with any accompanying text content.
	ToolUseMessage(content string, uses []ToolUse) (*ProviderMessage, error)

	// ToolResultMessage builds the message that returns a tool outcome to
	// the model. The error flag is always encoded, never dropped.
	ToolResultMessage(res ToolResult) (*ProviderMessage, error)

	// NormalizeToolUse parses a raw provider tool-call payload into the
	// canonical shape. Malformed argument JSON is a reported error, never
	// an empty object.
	NormalizeToolUse(raw json.RawMessage) (*ToolUse, error)
}

var (
	_ ProviderAdapter = (*anthropicAdapter)(nil)
	_ ProviderAdapter = (*openaiAdapter)(nil)
)
