package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/michaelbrown/boarman/internal/twitter"
)

func main() {
	s := server.NewMCPServer("boarman-twitter-lookup", "0.1.0")

	client := newClient()

	s.AddTool(mcp.Tool{
		Name:        "twitter_profile_lookup",
		Description: "Look up a public Twitter/X profile by handle. Returns name, bio, follower/following/tweet counts and pinned/most recent tweet ids as JSON.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"handle": map[string]any{
					"type":        "string",
					"description": "The Twitter handle, with or without the leading @",
				},
			},
			Required: []string{"handle"},
		},
	}, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleLookup(ctx, client, request)
	})

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
}

func newClient() *twitter.Client {
	token := os.Getenv("TWITTER_BEARER_TOKEN")
	if base := os.Getenv("TWITTER_API_BASE_URL"); base != "" {
		return twitter.NewClientWithBaseURL(token, base)
	}
	return twitter.NewClient(token)
}

func getArgs(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}

func handleLookup(ctx context.Context, client *twitter.Client, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, _ := getArgs(request)["handle"].(string)
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return errResult("'handle' is required"), nil
	}

	profile, err := client.LookupProfile(ctx, handle)
	if err != nil {
		return errResult(err.Error()), nil
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("encoding profile: %v", err)), nil
	}
	return textResult(string(data)), nil
}
