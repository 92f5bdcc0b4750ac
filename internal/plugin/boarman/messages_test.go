package boarman

import (
	"testing"

	"github.com/michaelbrown/boarman/internal/apperr"
)

func TestExtractHandle(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"check @techie_person", "techie_person", true},
		{"@first and @second", "first", true},
		{"handle:@nature_lover99!", "nature_lover99", true},
		{"@", "", false},
		{"nothing", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractHandle(tt.text)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractHandle(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want string
	}{
		{apperr.KindValidation, MsgNoHandle},
		{apperr.KindAuth, MsgUnavailable},
		{apperr.KindUpstream, MsgUnavailable},
		{apperr.KindUnknown, MsgUnavailable},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.kind); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestVariantByName(t *testing.T) {
	for _, name := range []string{"", "grant-fit", "Project-Fit", "vc-score"} {
		if _, ok := VariantByName(name); !ok {
			t.Errorf("VariantByName(%q) not found", name)
		}
	}
	if _, ok := VariantByName("other"); ok {
		t.Error("VariantByName(other) should fail")
	}
	if !ProjectFit.UseSummary || GrantFit.UseSummary {
		t.Error("only project-fit fetches a summary")
	}
}

func TestPlugin(t *testing.T) {
	p := Plugin(Config{})
	if p.Name != "boris-boarman" || p.Description != "Boris Boarman Plugin" {
		t.Errorf("plugin = %+v", p)
	}
	if len(p.Actions) != 1 || p.Actions[0].Name() != ActionName {
		t.Errorf("actions = %v", p.Actions)
	}
}
