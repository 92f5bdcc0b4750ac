// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/michaelbrown/boarman/internal/llm"
)

// Fake returns queued responses in order and records every request.
type Fake struct {
	mu        sync.Mutex
	responses []llm.Response
	errs      []error
	Calls     [][]llm.Message
}

// NewFake returns a Fake that answers with the given assistant texts in order.
func NewFake(texts ...string) *Fake {
	f := &Fake{}
	for _, t := range texts {
		f.responses = append(f.responses, llm.Response{Message: llm.AssistantMessage(t)})
	}
	return f
}

// PushResponse queues a full response (for tool-call scripts).
func (f *Fake) PushResponse(r llm.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, r)
}

// FailWith makes the next calls return err once the queued responses run out.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *Fake) ChatCompletion(ctx context.Context, messages []llm.Message, tools []llm.ToolDef) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, append([]llm.Message(nil), messages...))
	if len(f.responses) == 0 {
		if len(f.errs) > 0 {
			err := f.errs[0]
			f.errs = f.errs[1:]
			return nil, err
		}
		return nil, errors.New("llmtest: no scripted response")
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return &r, nil
}

func (f *Fake) ChatCompletionStream(ctx context.Context, messages []llm.Message, tools []llm.ToolDef, handler llm.StreamHandler) (*llm.Response, error) {
	resp, err := f.ChatCompletion(ctx, messages, tools)
	if err != nil {
		return nil, err
	}
	if handler != nil && resp.Message.Content != "" {
		handler(resp.Message.Content)
	}
	return resp, nil
}

// CallCount returns the number of completions requested so far.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
