package tools

import (
	"os"
	"strings"
)

// ToolServerConfig describes an MCP tool server binary.
type ToolServerConfig struct {
	Binary  string            `mapstructure:"binary"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
	Enabled bool              `mapstructure:"enabled"`
}

// ExpandEnv resolves a whole-value ${VAR} reference; other values pass through.
func ExpandEnv(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}
