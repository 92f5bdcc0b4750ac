package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/michaelbrown/boarman/internal/llm"
)

const clientVersion = "0.1.0"

// MCPConnection is a running stdio tool server and the tools it advertised.
type MCPConnection struct {
	name   string
	client *client.Client
	tools  []mcp.Tool
}

// NewMCPConnection starts binary, performs the MCP handshake and lists its tools.
func NewMCPConnection(ctx context.Context, name, binary string, env []string, args ...string) (*MCPConnection, error) {
	c, err := client.NewStdioMCPClient(binary, env, args...)
	if err != nil {
		return nil, fmt.Errorf("starting MCP server %s (%s): %w", name, binary, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "boarman", Version: clientVersion}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing MCP server %s: %w", name, err)
	}

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("listing tools from %s: %w", name, err)
	}

	return &MCPConnection{name: name, client: c, tools: listed.Tools}, nil
}

// ToolDefs describes the server's tools in the form the chat model expects.
func (mc *MCPConnection) ToolDefs() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(mc.tools))
	for _, t := range mc.tools {
		params := map[string]any{"type": t.InputSchema.Type}
		if t.InputSchema.Properties != nil {
			params["properties"] = t.InputSchema.Properties
		}
		if len(t.InputSchema.Required) > 0 {
			params["required"] = t.InputSchema.Required
		}
		defs = append(defs, llm.ToolDef{Name: t.Name, Description: t.Description, Parameters: params})
	}
	return defs
}

// CallTool runs a tool and joins its text content. A tool-level failure is
// returned as text prefixed with "error: " so the model can react to it.
func (mc *MCPConnection) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := mc.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("calling tool %s on %s: %w", name, mc.name, err)
	}

	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")

	if result.IsError {
		return "error: " + text, nil
	}
	return text, nil
}

func (mc *MCPConnection) ToolNames() []string {
	names := make([]string, 0, len(mc.tools))
	for _, t := range mc.tools {
		names = append(names, t.Name)
	}
	return names
}

// Close stops the server subprocess.
func (mc *MCPConnection) Close() {
	mc.client.Close()
}
