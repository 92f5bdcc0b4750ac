package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaelbrown/boarman/internal/tools"
)

// The MCP round-trip test needs the tool server binary built first:
// go build -o bin/boarman-tool-twitter-lookup ./cmd/tools/twitter-lookup

func binPath(name string) string {
	// Walk up from the test's working directory to find the project root bin/
	wd, _ := os.Getwd()
	for d := wd; d != "/"; d = filepath.Dir(d) {
		candidate := filepath.Join(d, "bin", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join("bin", name)
}

func skipIfNoBinary(t *testing.T, name string) string {
	t.Helper()
	path := binPath(name)
	if _, err := os.Stat(path); err != nil {
		t.Skipf("binary %s not found at %s", name, path)
	}
	return path
}

func TestRegistryEmpty(t *testing.T) {
	r := tools.NewRegistry()
	defer r.Close()

	if r.HasTools() {
		t.Fatal("empty registry should not have tools")
	}
	if got := r.AllTools(); len(got) != 0 {
		t.Fatalf("AllTools() = %d, want 0", len(got))
	}

	_, err := r.CallTool(context.Background(), "nonexistent", nil)
	if err == nil {
		t.Fatal("CallTool on empty registry should return error")
	}
}

func TestNilRegistry(t *testing.T) {
	var r *tools.Registry
	if r.HasTools() {
		t.Fatal("nil registry should not have tools")
	}
	if got := r.AllTools(); got != nil {
		t.Fatalf("AllTools() = %v, want nil", got)
	}
	if _, err := r.CallTool(context.Background(), "twitter_profile_lookup", nil); err == nil {
		t.Fatal("CallTool on nil registry should return error")
	}
	r.Close()
}

func TestRegistrySkipsDisabled(t *testing.T) {
	r := tools.NewRegistry()
	defer r.Close()

	err := r.Register(context.Background(), "disabled-server", tools.ToolServerConfig{
		Binary:  "/nonexistent/binary",
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("Register disabled server should not error: %v", err)
	}
	if r.HasTools() {
		t.Fatal("disabled server should not register tools")
	}
}

func TestRegistryBadBinary(t *testing.T) {
	r := tools.NewRegistry()
	defer r.Close()

	err := r.Register(context.Background(), "bad", tools.ToolServerConfig{
		Binary:  "/nonexistent/binary",
		Enabled: true,
	})
	if err == nil {
		t.Fatal("Register with bad binary should return error")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("BOARMAN_TEST_TOKEN", "secret")

	tests := []struct {
		in, want string
	}{
		{"${BOARMAN_TEST_TOKEN}", "secret"},
		{"${BOARMAN_UNSET_VAR}", ""},
		{"literal", "literal"},
		{"prefix-${BOARMAN_TEST_TOKEN}", "prefix-${BOARMAN_TEST_TOKEN}"},
	}
	for _, tt := range tests {
		if got := tools.ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTwitterLookupMCP(t *testing.T) {
	bin := skipIfNoBinary(t, "boarman-tool-twitter-lookup")

	r := tools.NewRegistry()
	defer r.Close()

	// No token: the tool must answer with an error result rather than fail the call.
	err := r.Register(context.Background(), "twitter-lookup", tools.ToolServerConfig{
		Binary:  bin,
		Env:     map[string]string{"TWITTER_BEARER_TOKEN": ""},
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("Register twitter-lookup: %v", err)
	}

	found := false
	for _, td := range r.AllTools() {
		if td.Name == "twitter_profile_lookup" {
			found = true
			if td.Description == "" {
				t.Error("twitter_profile_lookup should have a description")
			}
		}
	}
	if !found {
		t.Fatalf("twitter_profile_lookup not found in tools: %v", r.AllTools())
	}

	result, err := r.CallTool(context.Background(), "twitter_profile_lookup", map[string]any{
		"handle": "techie_person",
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !strings.HasPrefix(result, "error:") {
		t.Errorf("expected error result without a token, got: %q", result)
	}
}
