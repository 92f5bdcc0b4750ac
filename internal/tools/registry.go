package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/michaelbrown/boarman/internal/llm"
)

// Registry manages the MCP tool servers available to persona chat. A nil
// *Registry behaves as an empty one.
type Registry struct {
	connections map[string]*MCPConnection // server name → connection
	toolIndex   map[string]string         // tool name → server name
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*MCPConnection),
		toolIndex:   make(map[string]string),
	}
}

// Register launches an MCP tool server and adds its tools to the registry.
func (r *Registry) Register(ctx context.Context, name string, cfg ToolServerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	env := os.Environ()
	for k, v := range cfg.Env {
		env = append(env, k+"="+ExpandEnv(v))
	}

	conn, err := NewMCPConnection(ctx, name, cfg.Binary, env, cfg.Args...)
	if err != nil {
		return err
	}

	r.connections[name] = conn
	for _, toolName := range conn.ToolNames() {
		if prev, ok := r.toolIndex[toolName]; ok {
			slog.Warn("tools: duplicate tool name, keeping first", "tool", toolName, "server", prev, "ignored", name)
			continue
		}
		r.toolIndex[toolName] = name
	}
	slog.Info("tools: registered MCP server", "server", name, "tools", len(conn.ToolNames()))

	return nil
}

// AllTools returns tool definitions from all registered servers.
func (r *Registry) AllTools() []llm.ToolDef {
	if r == nil {
		return nil
	}
	var all []llm.ToolDef
	for _, conn := range r.connections {
		for _, def := range conn.ToolDefs() {
			if r.toolIndex[def.Name] == conn.name {
				all = append(all, def)
			}
		}
	}
	return all
}

// CallTool routes a tool call to the appropriate MCP server.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if r == nil {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	serverName, ok := r.toolIndex[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	conn := r.connections[serverName]
	return conn.CallTool(ctx, name, args)
}

// HasTools returns true if any tools are registered.
func (r *Registry) HasTools() bool {
	return r != nil && len(r.toolIndex) > 0
}

// Close shuts down all MCP server connections.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for _, conn := range r.connections {
		conn.Close()
	}
}
