package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/michaelbrown/boarman/internal/llm"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("TWITTER_BEARER_TOKEN", "tw-token")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Twitter.BearerToken != "tw-token" {
		t.Errorf("twitter token = %q", cfg.Twitter.BearerToken)
	}
	p, err := cfg.Provider("")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p.APIKey != "sk-test" {
		t.Errorf("api key = %q", p.APIKey)
	}
	if p.Model(llm.ModelClassSmall) != "gpt-4o-mini" {
		t.Errorf("small model = %q", p.Model(llm.ModelClassSmall))
	}
	if cfg.Agent.Variant != "grant-fit" || cfg.Server.Port != 8080 {
		t.Errorf("agent = %+v, server = %+v", cfg.Agent, cfg.Server)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOCAL_KEY", "local-secret")
	t.Setenv("LANGCHAIN_API_TOKEN", "lf-token")

	yaml := `default_provider: local
providers:
  local:
    base_url: http://localhost:11434/v1
    api_key: ${LOCAL_KEY}
    models:
      default: llama3.2
      large: llama3.3
langflow:
  url: https://langflow.example/api/v1/run/summary
agent:
  variant: project-fit
server:
  port: 9090
tools:
  twitter:
    binary: bin/boarman-tool-twitter-lookup
    enabled: true
    env:
      TWITTER_BEARER_TOKEN: ${TWITTER_BEARER_TOKEN}
`
	if err := os.WriteFile(filepath.Join(dir, "boarman.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	p, err := cfg.Provider("")
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p.APIKey != "local-secret" {
		t.Errorf("api key = %q, want expanded env", p.APIKey)
	}
	if p.Model(llm.ModelClassLarge) != "llama3.3" || p.Model(llm.ModelClassSmall) != "llama3.2" {
		t.Errorf("models = %v", p.Models)
	}
	if cfg.Langflow.APIToken != "lf-token" || cfg.Langflow.URL == "" {
		t.Errorf("langflow = %+v", cfg.Langflow)
	}
	if cfg.Agent.Variant != "project-fit" || cfg.Server.Port != 9090 {
		t.Errorf("agent = %+v, port = %d", cfg.Agent, cfg.Server.Port)
	}
	if tc, ok := cfg.Tools["twitter"]; !ok || !tc.Enabled {
		t.Errorf("tools = %+v", cfg.Tools)
	}
	if _, err := cfg.Provider("missing"); err == nil {
		t.Error("expected unknown provider error")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "boarman.yaml"), []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := load(dir); err == nil {
		t.Error("expected parse error")
	}
}
