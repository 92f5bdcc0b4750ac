package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

// StreamHandler receives text deltas during streaming.
type StreamHandler func(delta string)

// ChatCompletionStream is ChatCompletion with handler called for each text
// delta as it arrives. The full response is returned once the stream ends.
func (c *OpenAICompatClient) ChatCompletionStream(ctx context.Context, messages []Message, tools []ToolDef, handler StreamHandler) (*Response, error) {
	params := c.params(messages, tools)

	var stream *ssestream.Stream[openai.ChatCompletionChunk]
	err := c.retryRateLimited(ctx, func() error {
		stream = c.client.Chat.Completions.NewStreaming(ctx, params)
		if err := stream.Err(); err != nil {
			stream.Close()
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}
	defer stream.Close()

	var acc openai.ChatCompletionAccumulator
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if handler != nil && len(chunk.Choices) > 0 {
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				handler(delta)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("streaming: %w", err)
	}

	if len(acc.Choices) == 0 {
		return nil, errors.New("no choices returned")
	}
	return toResponse(acc.Choices[0].Message), nil
}
