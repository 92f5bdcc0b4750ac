package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/michaelbrown/boarman/internal/llm"
	"github.com/michaelbrown/boarman/internal/tools"
)

// Agent runs one persona conversation. The model may call registered MCP
// tools before it produces a final answer.
type Agent struct {
	llm          llm.Client
	utilityLLM   llm.Client // optional, for summarization
	registry     *tools.Registry
	history      []llm.Message
	tools        []llm.ToolDef
	maxIter      int
	maxTokens    int
	OnToolCall   func(name string, args map[string]any)
	OnToolResult func(name string, result string)
	OnTextDelta  func(delta string) // set to stream the final answer
}

const defaultMaxTokens = 6000

// New creates an Agent speaking with systemPrompt. registry may be nil.
func New(client llm.Client, registry *tools.Registry, systemPrompt string, maxIterations int) *Agent {
	if maxIterations <= 0 {
		maxIterations = 1
	}
	return &Agent{
		llm:       client,
		registry:  registry,
		maxIter:   maxIterations,
		maxTokens: defaultMaxTokens,
		tools:     registry.AllTools(),
		history: []llm.Message{
			llm.SystemMessage(systemPrompt),
		},
	}
}

// SetUtilityLLM sets an optional lightweight client used to summarize old history.
func (a *Agent) SetUtilityLLM(client llm.Client) {
	a.utilityLLM = client
}

// compactHistory summarizes older messages when history exceeds the token budget.
func (a *Agent) compactHistory(ctx context.Context) {
	if estimateHistoryTokens(a.history) <= a.maxTokens {
		return
	}

	// Keep recent messages within 60% of budget
	splitIdx := findSplitPoint(a.history, a.maxTokens*60/100)
	if splitIdx >= len(a.history) {
		return
	}

	oldMessages := a.history[1:splitIdx]
	if len(oldMessages) == 0 {
		return
	}

	summarizer := a.llm
	if a.utilityLLM != nil {
		summarizer = a.utilityLLM
	}
	summary, err := summarizeMessages(ctx, summarizer, oldMessages)
	if err != nil {
		a.trimHistory(10)
		return
	}

	newHistory := make([]llm.Message, 0, 2+len(a.history)-splitIdx)
	newHistory = append(newHistory, a.history[0])
	newHistory = append(newHistory, llm.SystemMessage("[Earlier in this conversation]\n"+summary))
	newHistory = append(newHistory, a.history[splitIdx:]...)
	a.history = newHistory
}

// Run sends a user message and loops until the model answers without tool
// calls. It streams through OnTextDelta when that hook is set.
func (a *Agent) Run(ctx context.Context, userMessage string) (string, error) {
	a.compactHistory(ctx)
	a.history = append(a.history, llm.UserMessage(userMessage))

	for i := 0; i < a.maxIter; i++ {
		var resp *llm.Response
		var err error
		if a.OnTextDelta != nil {
			resp, err = a.llm.ChatCompletionStream(ctx, a.history, a.tools, a.OnTextDelta)
		} else {
			resp, err = a.llm.ChatCompletion(ctx, a.history, a.tools)
		}
		if err != nil {
			return "", fmt.Errorf("llm call (iteration %d): %w", i+1, err)
		}

		a.history = append(a.history, resp.Message)

		if len(resp.Message.ToolCalls) == 0 {
			return resp.Message.Content, nil
		}

		for _, tc := range resp.Message.ToolCalls {
			if a.OnToolCall != nil {
				a.OnToolCall(tc.Name, tc.Args)
			}

			result := a.executeTool(ctx, tc)

			if a.OnToolResult != nil {
				a.OnToolResult(tc.Name, result)
			}

			a.history = append(a.history, llm.ToolResultMessage(tc.ID, result))
		}
	}

	return "", fmt.Errorf("agent reached max iterations (%d) without a final response", a.maxIter)
}

func (a *Agent) executeTool(ctx context.Context, tc llm.ToolCall) string {
	if !a.registry.HasTools() {
		return fmt.Sprintf("error: unknown tool %q", tc.Name)
	}
	result, err := a.registry.CallTool(ctx, tc.Name, tc.Args)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	return result
}

// trimHistory preserves the system message and last N messages.
func (a *Agent) trimHistory(keepLast int) {
	if len(a.history) <= keepLast+1 {
		return
	}
	system := a.history[0]
	recent := a.history[len(a.history)-keepLast:]
	a.history = append([]llm.Message{system}, recent...)
}

// SetHistory replaces everything after the system prompt with prior turns.
func (a *Agent) SetHistory(messages []llm.Message) {
	a.history = append(a.history[:1:1], messages...)
}

// FormatToolCall returns a human-readable string for a tool call.
func FormatToolCall(name string, args map[string]any) string {
	var parts []string
	for k, v := range args {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}
