package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/apperrors"
	"github.com/tradelens-ai/convo-engine/pkg/jsonutil"
	"github.com/tradelens-ai/convo-engine/pkg/logging"
	"github.com/tradelens-ai/convo-engine/pkg/registry"
)

// ============================================================================
// Anthropic Adapter
// ============================================================================

// anthropicAdapter converts canonical structures to the Anthropic Messages
// wire shapes. The canonical types are Anthropic-flavored, so most of this is
// a straight re-typing into go-anthropic structs.
type anthropicAdapter struct{}

func (a *anthropicAdapter) Format() registry.ToolFormat {
	return registry.FormatAnthropic
}

func (a *anthropicAdapter) Tools(tools []ToolDefinition) (*ProviderTools, error) {
	out := make([]anthropic.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		schema := t.InputSchema
		if len(schema) == 0 {
			schema = EmptyInputSchema()
		}
		out = append(out, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: copyJSONMap(schema),
		})
	}
	return &ProviderTools{Format: registry.FormatAnthropic, Anthropic: out}, nil
}

func (a *anthropicAdapter) Messages(system string, msgs []Message) (*ProviderMessages, error) {
	out := make([]anthropic.Message, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				converted, err := a.toolUseMessage(msg.Content, msg.ToolCalls)
				if err != nil {
					return nil, err
				}
				out = append(out, *converted)
				continue
			}
			text := msg.Content
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{{Type: "text", Text: &text}},
			})
		case RoleTool:
			converted, err := a.toolResultMessage(ToolResult{
				ToolUseID: msg.ToolUseID,
				Payload:   msg.Content,
				IsError:   msg.IsError,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, *converted)
		default:
			// Stray system entries ride as user turns; Anthropic has no
			// mid-transcript system role.
			text := msg.Content
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{{Type: "text", Text: &text}},
			})
		}
	}
	return &ProviderMessages{
		Format:    registry.FormatAnthropic,
		System:    system,
		Anthropic: out,
	}, nil
}

func (a *anthropicAdapter) ToolUseMessage(content string, uses []ToolUse) (*ProviderMessage, error) {
	msg, err := a.toolUseMessage(content, uses)
	if err != nil {
		return nil, err
	}
	return &ProviderMessage{Format: registry.FormatAnthropic, Anthropic: msg}, nil
}

func (a *anthropicAdapter) toolUseMessage(content string, uses []ToolUse) (*anthropic.Message, error) {
	blocks := make([]anthropic.MessageContent, 0, len(uses)+1)
	if content != "" {
		text := content
		blocks = append(blocks, anthropic.MessageContent{Type: "text", Text: &text})
	}
	for _, use := range uses {
		input := use.Input
		if input == nil {
			input = map[string]any{}
		}
		encoded, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("encode input for tool %q: %w", use.Name, err)
		}
		blocks = append(blocks, anthropic.MessageContent{
			Type: "tool_use",
			MessageContentToolUse: &anthropic.MessageContentToolUse{
				ID:    use.ID,
				Name:  use.Name,
				Input: encoded,
			},
		})
	}
	return &anthropic.Message{Role: anthropic.RoleAssistant, Content: blocks}, nil
}

func (a *anthropicAdapter) ToolResultMessage(res ToolResult) (*ProviderMessage, error) {
	msg, err := a.toolResultMessage(res)
	if err != nil {
		return nil, err
	}
	return &ProviderMessage{Format: registry.FormatAnthropic, Anthropic: msg}, nil
}

// toolResultMessage wraps a tool outcome in a tool_result block on a user
// message, which is where the Anthropic API expects results to arrive.
func (a *anthropicAdapter) toolResultMessage(res ToolResult) (*anthropic.Message, error) {
	payload, err := jsonutil.StringifyPayload(res.Payload)
	if err != nil {
		return nil, fmt.Errorf("stringify result for tool use %q: %w", res.ToolUseID, err)
	}
	toolUseID := res.ToolUseID
	isError := res.IsError
	return &anthropic.Message{
		Role: anthropic.RoleUser,
		Content: []anthropic.MessageContent{{
			Type: "tool_result",
			MessageContentToolResult: &anthropic.MessageContentToolResult{
				ToolUseID: &toolUseID,
				Content:   []anthropic.MessageContent{{Type: "text", Text: &payload}},
				IsError:   &isError,
			},
		}},
	}, nil
}

// NormalizeToolUse parses an Anthropic tool_use content block. Input is the
// arguments object; a few gateways string-encode it, so both encodings are
// accepted.
func (a *anthropicAdapter) NormalizeToolUse(raw json.RawMessage) (*ToolUse, error) {
	var block struct {
		Type  string          `json:"type"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, fmt.Errorf("parse anthropic tool_use payload: %w", err)
	}
	input, err := decodeArguments(block.Input)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", block.Name, err)
	}
	return &ToolUse{ID: block.ID, Name: block.Name, Input: input}, nil
}

// decodeArguments accepts an arguments payload as a JSON object, a
// string-encoded JSON object, or nothing at all. Absent or empty arguments
// normalize to an empty map; malformed JSON is reported, never coerced.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := string(raw)
	if len(raw) == 0 || trimmed == "null" || trimmed == `""` {
		return map[string]any{}, nil
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedArguments, err)
		}
		if encoded == "" {
			return map[string]any{}, nil
		}
		raw = json.RawMessage(encoded)
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedArguments, err)
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil
}

// ============================================================================
// Anthropic Completion Client
// ============================================================================

// AnthropicCompletionClient generates completions through the Anthropic
// Messages API.
type AnthropicCompletionClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

var _ CompletionClient = (*AnthropicCompletionClient)(nil)

// NewAnthropicCompletionClient creates a completion client for an Anthropic
// model.
func NewAnthropicCompletionClient(cfg ClientConfig, logger *zap.Logger) (*AnthropicCompletionClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic client: model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic client: API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnthropicCompletionClient{
		client: anthropic.NewClient(cfg.APIKey),
		model:  cfg.Model,
		logger: logger.Named("anthropic"),
	}, nil
}

func (c *AnthropicCompletionClient) ModelID() string {
	return c.model
}

// Complete sends a single-turn prompt and returns the first text block of
// the response.
func (c *AnthropicCompletionClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	log := c.logger
	if fields := LogFields(ctx); len(fields) > 0 {
		log = log.With(fields...)
	}
	log.Debug("sending completion request",
		zap.String("model", c.model),
		zap.Int("max_tokens", maxTokens),
		zap.String("prompt", logging.SanitizePrompt(req.Prompt)))

	prompt := req.Prompt
	temperature := req.Temperature
	request := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}}},
		},
	}
	if req.System != "" {
		request.System = req.System
	}
	if temperature > 0 {
		request.Temperature = &temperature
	}

	resp, err := c.client.CreateMessages(ctx, request)
	if err != nil {
		classified := ClassifyError(err)
		classified.Model = c.model
		log.Error("completion request failed",
			zap.String("model", c.model),
			zap.String("error_type", string(classified.Type)),
			zap.String("error", logging.SanitizeError(classified)))
		return nil, classified
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text = *block.Text
			break
		}
	}
	if text == "" {
		emptyErr := NewError(ErrorTypeModel, "model returned no text content", false, apperrors.ErrEmptyCompletion)
		emptyErr.Model = c.model
		return nil, emptyErr
	}

	result := &CompletionResult{
		Text:       text,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Model:      c.model,
	}
	log.Debug("completion received",
		zap.String("model", c.model),
		zap.Int("tokens_used", result.TokensUsed),
		zap.Int("response_length", len(result.Text)))
	return result, nil
}
