package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tradelens-ai/convo-engine/pkg/apperrors"
	"github.com/tradelens-ai/convo-engine/pkg/jsonutil"
	"github.com/tradelens-ai/convo-engine/pkg/logging"
	"github.com/tradelens-ai/convo-engine/pkg/registry"
)

// ============================================================================
// OpenAI Adapter
// ============================================================================

// openaiAdapter converts canonical structures to the OpenAI chat-completions
// wire shapes: function-wrapped tools, string-encoded arguments, and
// standalone role:"tool" result messages.
type openaiAdapter struct{}

func (a *openaiAdapter) Format() registry.ToolFormat {
	return registry.FormatOpenAI
}

func (a *openaiAdapter) Tools(tools []ToolDefinition) (*ProviderTools, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		schema := t.InputSchema
		if len(schema) == 0 {
			schema = EmptyInputSchema()
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  copyJSONMap(schema),
			},
		})
	}
	return &ProviderTools{Format: registry.FormatOpenAI, OpenAI: out}, nil
}

func (a *openaiAdapter) Messages(system string, msgs []Message) (*ProviderMessages, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
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
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
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
		case RoleSystem:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Content,
			})
		default:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		}
	}
	return &ProviderMessages{Format: registry.FormatOpenAI, OpenAI: out}, nil
}

func (a *openaiAdapter) ToolUseMessage(content string, uses []ToolUse) (*ProviderMessage, error) {
	msg, err := a.toolUseMessage(content, uses)
	if err != nil {
		return nil, err
	}
	return &ProviderMessage{Format: registry.FormatOpenAI, OpenAI: msg}, nil
}

func (a *openaiAdapter) toolUseMessage(content string, uses []ToolUse) (*openai.ChatCompletionMessage, error) {
	msg := &openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: content,
	}
	for _, use := range uses {
		input := use.Input
		if input == nil {
			input = map[string]any{}
		}
		arguments, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("encode arguments for tool %q: %w", use.Name, err)
		}
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   use.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      use.Name,
				Arguments: string(arguments),
			},
		})
	}
	return msg, nil
}

func (a *openaiAdapter) ToolResultMessage(res ToolResult) (*ProviderMessage, error) {
	msg, err := a.toolResultMessage(res)
	if err != nil {
		return nil, err
	}
	return &ProviderMessage{Format: registry.FormatOpenAI, OpenAI: msg}, nil
}

// toolResultMessage builds a role:"tool" message. The wire format has no
// error flag, so IsError folds into the content as an "Error: " prefix.
func (a *openaiAdapter) toolResultMessage(res ToolResult) (*openai.ChatCompletionMessage, error) {
	payload, err := jsonutil.StringifyPayload(res.Payload)
	if err != nil {
		return nil, fmt.Errorf("stringify result for tool call %q: %w", res.ToolUseID, err)
	}
	if res.IsError && !strings.HasPrefix(payload, "Error: ") {
		payload = "Error: " + payload
	}
	return &openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    payload,
		ToolCallID: res.ToolUseID,
	}, nil
}

// NormalizeToolUse parses an OpenAI tool_call payload. Arguments arrive as a
// string-encoded JSON object.
func (a *openaiAdapter) NormalizeToolUse(raw json.RawMessage) (*ToolUse, error) {
	var call struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Function struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &call); err != nil {
		return nil, fmt.Errorf("parse openai tool_call payload: %w", err)
	}
	input, err := decodeArguments(call.Function.Arguments)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", call.Function.Name, err)
	}
	return &ToolUse{ID: call.ID, Name: call.Function.Name, Input: input}, nil
}

// ============================================================================
// Wire Marshaling
// ============================================================================

// openAIWireMessage mirrors the chat message wire shape with a nullable
// content field. go-openai marshals empty content as "", but assistant
// tool-call turns must carry content: null; several OpenAI-compatible
// gateways reject both "" and an absent key.
type openAIWireMessage struct {
	Role       string            `json:"role"`
	Content    *string           `json:"content"`
	ToolCalls  []openai.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Name       string            `json:"name,omitempty"`
}

func toOpenAIWireMessage(m openai.ChatCompletionMessage) openAIWireMessage {
	wire := openAIWireMessage{
		Role:       m.Role,
		ToolCalls:  m.ToolCalls,
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}
	if len(m.ToolCalls) > 0 && m.Content == "" {
		return wire
	}
	content := m.Content
	wire.Content = &content
	return wire
}

// ============================================================================
// OpenAI Completion Client
// ============================================================================

// OpenAICompletionClient generates completions through any OpenAI-compatible
// chat-completions endpoint.
type OpenAICompletionClient struct {
	client  *openai.Client
	model   string
	baseURL string
	logger  *zap.Logger
}

var _ CompletionClient = (*OpenAICompletionClient)(nil)

// NewOpenAICompletionClient creates a completion client for an OpenAI model.
// APIKey may be empty when BaseURL points at a local endpoint.
func NewOpenAICompletionClient(cfg ClientConfig, logger *zap.Logger) (*OpenAICompletionClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai client: model is required")
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai client: API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &OpenAICompletionClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		logger:  logger.Named("openai"),
	}, nil
}

func (c *OpenAICompletionClient) ModelID() string {
	return c.model
}

// Complete sends a single-turn prompt and returns the first choice.
func (c *OpenAICompletionClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	log := c.logger
	if fields := LogFields(ctx); len(fields) > 0 {
		log = log.With(fields...)
	}
	log.Debug("sending completion request",
		zap.String("model", c.model),
		zap.Int("max_tokens", maxTokens),
		zap.String("prompt", logging.SanitizePrompt(req.Prompt)))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		classified := ClassifyError(err)
		classified.Model = c.model
		classified.Endpoint = c.baseURL
		log.Error("completion request failed",
			zap.String("model", c.model),
			zap.String("error_type", string(classified.Type)),
			zap.String("error", logging.SanitizeError(classified)))
		return nil, classified
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		emptyErr := NewError(ErrorTypeModel, "model returned no choices", false, apperrors.ErrEmptyCompletion)
		emptyErr.Model = c.model
		return nil, emptyErr
	}

	result := &CompletionResult{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      c.model,
	}
	log.Debug("completion received",
		zap.String("model", c.model),
		zap.Int("tokens_used", result.TokensUsed),
		zap.Int("response_length", len(result.Text)))
	return result, nil
}
