package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

const maxAttempts = 3

// Client is the interface for LLM interactions.
type Client interface {
	ChatCompletion(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error)
	ChatCompletionStream(ctx context.Context, messages []Message, tools []ToolDef, handler StreamHandler) (*Response, error)
}

// OpenAICompatClient works with any OpenAI-compatible API (OpenAI, Ollama, OpenRouter).
type OpenAICompatClient struct {
	client *openai.Client
	model  string
}

// NewClient creates an LLM client for the given provider. An empty baseURL
// uses the SDK default (api.openai.com).
func NewClient(baseURL, apiKey, model string) *OpenAICompatClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAICompatClient{
		client: &client,
		model:  model,
	}
}

// Model returns the model name requests are sent to.
func (c *OpenAICompatClient) Model() string { return c.model }

func (c *OpenAICompatClient) ChatCompletion(ctx context.Context, messages []Message, tools []ToolDef) (*Response, error) {
	params := c.params(messages, tools)

	var completion *openai.ChatCompletion
	err := c.retryRateLimited(ctx, func() error {
		var err error
		completion, err = c.client.Chat.Completions.New(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, errors.New("no choices returned")
	}
	return toResponse(completion.Choices[0].Message), nil
}

func (c *OpenAICompatClient) params(messages []Message, tools []ToolDef) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}
	return params
}

// retryRateLimited calls fn up to maxAttempts times, backing off 2s then 4s
// while the provider answers 429.
func (c *OpenAICompatClient) retryRateLimited(ctx context.Context, fn func() error) error {
	var err error
	for attempt := range maxAttempts {
		if err = fn(); err == nil || !strings.Contains(err.Error(), "429") || attempt == maxAttempts-1 {
			return err
		}
		wait := time.Duration(2<<attempt) * time.Second
		slog.Warn("llm: rate limited, retrying", "model", c.model, "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func toResponse(msg openai.ChatCompletionMessage) *Response {
	resp := &Response{Message: AssistantMessage(msg.Content)}
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			args = map[string]any{"_raw": tc.Function.Arguments}
		}
		resp.Message.ToolCalls = append(resp.Message.ToolCalls, ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return resp
}

func convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: assistantWithTools(m)})
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func assistantWithTools(m Message) *openai.ChatCompletionAssistantMessageParam {
	calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		args, _ := json.Marshal(tc.Args)
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: string(args),
			},
		})
	}
	a := &openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
	if m.Content != "" {
		a.Content.OfString = param.NewOpt(m.Content)
	}
	return a
}

func convertTools(tools []ToolDef) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		})
	}
	return out
}
