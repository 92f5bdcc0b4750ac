package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/michaelbrown/boarman/internal/llm"
	"github.com/michaelbrown/boarman/internal/tools"
)

type ProviderConfig struct {
	BaseURL string            `mapstructure:"base_url"`
	APIKey  string            `mapstructure:"api_key"`
	Models  map[string]string `mapstructure:"models"`
}

type TwitterConfig struct {
	BearerToken string `mapstructure:"bearer_token"`
	BaseURL     string `mapstructure:"base_url"`
}

type LangflowConfig struct {
	URL      string `mapstructure:"url"`
	APIToken string `mapstructure:"api_token"`
}

type AgentConfig struct {
	Character      string `mapstructure:"character"`
	Variant        string `mapstructure:"variant"`
	MaxIterations  int    `mapstructure:"max_iterations"`
	RecentMessages int    `mapstructure:"recent_messages"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type Config struct {
	Providers       map[string]ProviderConfig         `mapstructure:"providers"`
	DefaultProvider string                            `mapstructure:"default_provider"`
	Twitter         TwitterConfig                     `mapstructure:"twitter"`
	Langflow        LangflowConfig                    `mapstructure:"langflow"`
	Agent           AgentConfig                       `mapstructure:"agent"`
	Server          ServerConfig                      `mapstructure:"server"`
	Storage         StorageConfig                     `mapstructure:"storage"`
	Tools           map[string]tools.ToolServerConfig `mapstructure:"tools"`
}

// Load reads .env, then boarman.yaml from the working directory or
// $HOME/.boarman. A missing config file falls back to defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return load(".", "$HOME/.boarman")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("boarman")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetDefault("default_provider", "openai")
	v.SetDefault("providers.openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("providers.openai.models", map[string]string{
		"default": "gpt-4o-mini",
		"small":   "gpt-4o-mini",
		"medium":  "gpt-4o",
		"large":   "gpt-4o",
	})
	v.SetDefault("twitter.bearer_token", "${TWITTER_BEARER_TOKEN}")
	v.SetDefault("langflow.api_token", "${LANGCHAIN_API_TOKEN}")
	v.SetDefault("agent.variant", "grant-fit")
	v.SetDefault("agent.max_iterations", 5)
	v.SetDefault("agent.recent_messages", 32)
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".boarman", "boarman.db"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for name, p := range cfg.Providers {
		p.APIKey = tools.ExpandEnv(p.APIKey)
		p.BaseURL = tools.ExpandEnv(p.BaseURL)
		cfg.Providers[name] = p
	}
	cfg.Twitter.BearerToken = tools.ExpandEnv(cfg.Twitter.BearerToken)
	cfg.Twitter.BaseURL = tools.ExpandEnv(cfg.Twitter.BaseURL)
	cfg.Langflow.APIToken = tools.ExpandEnv(cfg.Langflow.APIToken)
	cfg.Langflow.URL = tools.ExpandEnv(cfg.Langflow.URL)

	return &cfg, nil
}

// Provider returns the config for a named provider, falling back to the default.
func (c *Config) Provider(name string) (ProviderConfig, error) {
	if name == "" {
		name = c.DefaultProvider
	}
	p, ok := c.Providers[name]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("unknown provider: %s", name)
	}
	return p, nil
}

// Model returns the model configured for class, or the provider's default.
func (p ProviderConfig) Model(class llm.ModelClass) string {
	if m := p.Models[string(class)]; m != "" {
		return m
	}
	return p.Models["default"]
}
