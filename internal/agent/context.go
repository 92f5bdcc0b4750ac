package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/michaelbrown/boarman/internal/llm"
)

// maxSummaryChars caps a compaction summary at roughly 1000 tokens.
const maxSummaryChars = 4000

// estimateTokens approximates a message's token count as chars/4, at least 1.
func estimateTokens(m llm.Message) int {
	n := len(m.Content)
	for _, tc := range m.ToolCalls {
		n += len(tc.Name)
		if args, err := json.Marshal(tc.Args); err == nil {
			n += len(args)
		}
	}
	return max(n/4, 1)
}

func estimateHistoryTokens(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += estimateTokens(m)
	}
	return total
}

// findSplitPoint returns the index where the recent part of history begins,
// keeping the newest messages that fit in budget. The result always lands on
// a user message so tool calls stay next to their results. len(messages)
// means nothing should be compacted. Index 0 (system prompt) is never split.
func findSplitPoint(messages []llm.Message, budget int) int {
	n := len(messages)
	if n <= 2 {
		return n
	}

	cut, used := -1, 0
	for i := n - 1; i >= 1; i-- {
		used += estimateTokens(messages[i])
		if used > budget {
			cut = min(i+1, n-1)
			break
		}
	}
	if cut < 0 {
		return n
	}

	for cut > 1 && messages[cut].Role != llm.RoleUser {
		cut--
	}
	if cut <= 1 || messages[cut].Role != llm.RoleUser {
		return n
	}
	return cut
}

// summarizeMessages asks client for a short summary of messages.
func summarizeMessages(ctx context.Context, client llm.Client, messages []llm.Message) (string, error) {
	var transcript strings.Builder
	for _, m := range messages {
		role := string(m.Role)
		if m.ToolCallID != "" {
			role = "tool_result(" + m.ToolCallID + ")"
		}
		fmt.Fprintf(&transcript, "[%s]: %s", role, m.Content)
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Args)
			fmt.Fprintf(&transcript, "\n[tool_call: %s(%s)]", tc.Name, args)
		}
		transcript.WriteString("\n")
	}

	prompt := []llm.Message{
		llm.SystemMessage("Summarize the following conversation excerpt in a few sentences. " +
			"Keep handles, profile facts, funding details, and any assessment already given. " +
			"Output only the summary."),
		llm.UserMessage("Summarize this conversation:\n\n" + transcript.String()),
	}

	resp, err := client.ChatCompletion(ctx, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("summarization LLM call: %w", err)
	}

	summary := resp.Message.Content
	if len(summary) > maxSummaryChars {
		summary = summary[:maxSummaryChars] + "\n... (summary truncated)"
	}
	return summary, nil
}
