package boarman

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/michaelbrown/boarman/internal/apperr"
	"github.com/michaelbrown/boarman/internal/character"
	"github.com/michaelbrown/boarman/internal/langflow"
	"github.com/michaelbrown/boarman/internal/llm"
	"github.com/michaelbrown/boarman/internal/llm/llmtest"
	"github.com/michaelbrown/boarman/internal/runtime"
	"github.com/michaelbrown/boarman/internal/storage"
	"github.com/michaelbrown/boarman/internal/storage/sqlite"
	"github.com/michaelbrown/boarman/internal/twitter"
)

const techieUser = `{"data": {
	"id": "42",
	"name": "Tech Person",
	"username": "techie_person",
	"public_metrics": {"followers_count": 120, "following_count": 80, "tweet_count": 450}
}}`

const techieProfile = `{"name":"Tech Person","username":"techie_person","bio":"No bio available","followers":120,"following":80,"tweetCount":450,"mostRecentTweetId":"N/A","pinnedTweetId":"N/A"}`

type fixture struct {
	rt       *runtime.Runtime
	store    *sqlite.SQLiteStore
	llm      *llmtest.Fake
	requests *atomic.Int32
	action   *AnalyzeTwitterAccount
}

// newFixture serves body for every profile lookup and answers generation
// requests with replies in order.
func newFixture(t *testing.T, token string, status int, body string, cfg Config, replies ...string) *fixture {
	t.Helper()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fake := llmtest.NewFake(replies...)
	rt, err := runtime.New(runtime.Options{
		Character: character.Default(),
		Store:     store,
		Models:    map[llm.ModelClass]llm.Client{llm.ModelClassSmall: fake},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}

	cfg.Profiles = twitter.NewClientWithBaseURL(token, srv.URL)
	cfg.Recorder = store
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{rt: rt, store: store, llm: fake, requests: &requests, action: NewAnalyzeTwitterAccount(cfg)}
}

type collector struct {
	got []storage.Content
}

func (c *collector) callback(ctx context.Context, content storage.Content) error {
	c.got = append(c.got, content)
	return nil
}

func message(text string) *storage.Memory {
	return &storage.Memory{ID: "m1", RoomID: "room1", UserID: "u1", UserName: "user1", Content: storage.Content{Text: text}}
}

func (f *fixture) handle(t *testing.T, text string, opts map[string]any) *collector {
	t.Helper()
	var c collector
	if err := f.action.Handle(context.Background(), f.rt, message(text), nil, opts, c.callback); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(c.got) != 1 {
		t.Fatalf("callbacks = %d, want exactly 1", len(c.got))
	}
	return &c
}

func (f *fixture) analyses(t *testing.T) []storage.Analysis {
	t.Helper()
	list, err := f.store.ListAnalyses(context.Background(), storage.AnalysisListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return list
}

func TestActionMetadata(t *testing.T) {
	a := NewAnalyzeTwitterAccount(Config{})
	if a.Name() != "ANALYZE_TWITTER_ACCOUNT" {
		t.Errorf("Name() = %q", a.Name())
	}
	if a.Description() != "Fetch and analyze a user's Twitter information" {
		t.Errorf("Description() = %q", a.Description())
	}
	if len(a.Similes()) != 4 {
		t.Errorf("Similes() = %v", a.Similes())
	}
	if len(a.Examples()) != 2 {
		t.Errorf("Examples() = %d conversations, want 2", len(a.Examples()))
	}
	if a.Variant().Name != "grant-fit" {
		t.Errorf("default variant = %q", a.Variant().Name)
	}
}

func TestValidate(t *testing.T) {
	a := NewAnalyzeTwitterAccount(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	tests := []struct {
		text string
		want bool
	}{
		{"check @techie_person", true},
		{"My Twitter handle is @nature_lover99", true},
		{"email me at someone@example.com", true},
		{"no handle here", false},
		{"just an @ sign", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := a.Validate(context.Background(), message(tt.text)); got != tt.want {
			t.Errorf("Validate(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestHandleGrantFit(t *testing.T) {
	f := newFixture(t, "tok", http.StatusOK, techieUser, Config{}, `{"text": "Great fit for our grants."}`)
	c := f.handle(t, "Can you check out my Twitter? I'm @techie_person", nil)

	if c.got[0].Text != "Great fit for our grants." {
		t.Errorf("callback text = %q", c.got[0].Text)
	}
	if c.got[0].Action != ActionName {
		t.Errorf("callback action = %q", c.got[0].Action)
	}

	if len(f.llm.Calls) != 1 {
		t.Fatalf("generation calls = %d, want 1", len(f.llm.Calls))
	}
	prompt := f.llm.Calls[0][0].Content
	if n := strings.Count(prompt, techieProfile); n != 1 {
		t.Errorf("serialized profile appears %d times in prompt, want 1:\n%s", n, prompt)
	}
	if !strings.Contains(prompt, `"bio":"No bio available"`) {
		t.Error("prompt should carry the default bio")
	}
	if strings.Contains(prompt, "{{") {
		t.Errorf("prompt has unrendered placeholders:\n%s", prompt)
	}

	list := f.analyses(t)
	if len(list) != 1 || list[0].Status != storage.AnalysisOK || list[0].Handle != "techie_person" {
		t.Fatalf("analyses = %+v", list)
	}
	if list[0].Response != "Great fit for our grants." || list[0].Variant != "grant-fit" {
		t.Errorf("analysis = %+v", list[0])
	}
}

func TestHandleUserNotFound(t *testing.T) {
	f := newFixture(t, "tok", http.StatusOK, `{"errors": [{"detail": "Could not find user"}]}`, Config{})
	c := f.handle(t, "check @ghost", nil)

	if c.got[0].Text != MsgUnavailable {
		t.Errorf("callback text = %q, want apology", c.got[0].Text)
	}
	if len(f.llm.Calls) != 0 {
		t.Error("generation should not run when the profile lookup fails")
	}

	list := f.analyses(t)
	if len(list) != 1 || list[0].Status != storage.AnalysisFailed || list[0].ErrorKind != "upstream" {
		t.Errorf("analyses = %+v", list)
	}
}

func TestHandleMissingTokenMakesNoRequest(t *testing.T) {
	f := newFixture(t, "", http.StatusOK, techieUser, Config{})
	c := f.handle(t, "check @techie_person", nil)

	if c.got[0].Text != MsgUnavailable {
		t.Errorf("callback text = %q, want apology", c.got[0].Text)
	}
	if n := f.requests.Load(); n != 0 {
		t.Errorf("profile API requests = %d, want 0", n)
	}
	if list := f.analyses(t); len(list) != 1 || list[0].ErrorKind != "auth" {
		t.Errorf("analyses = %+v", list)
	}
}

func TestHandleUpstreamStatus(t *testing.T) {
	f := newFixture(t, "tok", http.StatusTooManyRequests, `{"title":"Too Many Requests"}`, Config{})
	c := f.handle(t, "check @techie_person", nil)
	if c.got[0].Text != MsgUnavailable {
		t.Errorf("callback text = %q", c.got[0].Text)
	}
}

func TestHandleNoHandle(t *testing.T) {
	f := newFixture(t, "tok", http.StatusOK, techieUser, Config{})
	c := f.handle(t, "what do you think of my twitter?", nil)

	if c.got[0].Text != MsgNoHandle {
		t.Errorf("callback text = %q, want guidance", c.got[0].Text)
	}
	if f.requests.Load() != 0 || len(f.llm.Calls) != 0 {
		t.Error("no external calls expected without a handle")
	}
	if list := f.analyses(t); len(list) != 0 {
		t.Errorf("analyses = %d, want none", len(list))
	}
}

func TestHandleBadGeneration(t *testing.T) {
	f := newFixture(t, "tok", http.StatusOK, techieUser, Config{}, "Sure! They look great.")
	c := f.handle(t, "check @techie_person", nil)

	if c.got[0].Text != MsgUnavailable {
		t.Errorf("callback text = %q, want apology", c.got[0].Text)
	}
	list := f.analyses(t)
	if len(list) != 1 || list[0].ErrorKind != "upstream" {
		t.Fatalf("analyses = %+v", list)
	}
	if !strings.Contains(string(list[0].Profile), "techie_person") {
		t.Error("failed analysis should still record the fetched profile")
	}
}

func TestHandleProjectFit(t *testing.T) {
	var gotInput string
	lf := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotInput, _ = body["input_value"].(string)
		io.WriteString(w, `{"outputs":[{"text":"A decentralized grants marketplace"}]}`)
	}))
	t.Cleanup(lf.Close)

	f := newFixture(t, "tok", http.StatusOK, techieUser,
		Config{Variant: ProjectFit, Summaries: langflow.NewClient(lf.URL, "lf-token")},
		`{"text": "Strong match for the marketplace."}`)
	c := f.handle(t, "check @techie_person", nil)

	if c.got[0].Text != "Strong match for the marketplace." {
		t.Errorf("callback text = %q", c.got[0].Text)
	}
	if gotInput != "techie_person" {
		t.Errorf("summary input = %q, want handle", gotInput)
	}
	prompt := f.llm.Calls[0][0].Content
	if !strings.Contains(prompt, `{"outputs":[{"text":"A decentralized grants marketplace"}]}`) {
		t.Errorf("prompt missing verbatim summary:\n%s", prompt)
	}
	if strings.Count(prompt, techieProfile) != 1 {
		t.Error("prompt should hold the profile once")
	}
}

func TestHandleProjectFitMissingSummaryToken(t *testing.T) {
	f := newFixture(t, "tok", http.StatusOK, techieUser,
		Config{Variant: ProjectFit, Summaries: langflow.NewClient("http://127.0.0.1:1", "")})
	c := f.handle(t, "check @techie_person", nil)

	if c.got[0].Text != MsgUnavailable {
		t.Errorf("callback text = %q", c.got[0].Text)
	}
	if list := f.analyses(t); len(list) != 1 || list[0].ErrorKind != apperr.KindAuth.String() {
		t.Errorf("analyses = %+v", list)
	}
}

func TestHandleVCScore(t *testing.T) {
	reply := "```json\n{\"text\": \"Solid operator.\", \"experience\": 8, \"industry_relevance\": 6, \"execution_capability\": 7}\n```"
	f := newFixture(t, "tok", http.StatusOK, techieUser, Config{}, reply)
	c := f.handle(t, "check @techie_person", map[string]any{"variant": "vc-score"})

	got := c.got[0]
	if got.Text != "Solid operator." {
		t.Errorf("callback text = %q", got.Text)
	}
	for _, k := range VCScore.ScoreFields {
		if _, ok := got.Extra[k]; !ok {
			t.Errorf("callback missing score %q: %v", k, got.Extra)
		}
	}

	list := f.analyses(t)
	if len(list) != 1 || list[0].Variant != "vc-score" {
		t.Fatalf("analyses = %+v", list)
	}
	if v, ok := list[0].Scores["experience"].(float64); !ok || v != 8 {
		t.Errorf("recorded experience = %v", list[0].Scores["experience"])
	}
}

func TestHandleUnknownVariantOption(t *testing.T) {
	f := newFixture(t, "tok", http.StatusOK, techieUser, Config{}, `{"text": "ok"}`)
	f.handle(t, "check @techie_person", map[string]any{"variant": "nope"})

	if list := f.analyses(t); len(list) != 1 || list[0].Variant != "grant-fit" {
		t.Errorf("analyses = %+v, want default variant", list)
	}
}

func TestHandleRefreshesGivenState(t *testing.T) {
	f := newFixture(t, "tok", http.StatusOK, techieUser, Config{}, `{"text": "ok"}`)
	ctx := context.Background()

	state, err := f.rt.ComposeState(ctx, message("check @techie_person"))
	if err != nil {
		t.Fatal(err)
	}
	var c collector
	if err := f.action.Handle(ctx, f.rt, message("check @techie_person"), state, nil, c.callback); err != nil {
		t.Fatal(err)
	}
	if len(c.got) != 1 || c.got[0].Text != "ok" {
		t.Errorf("callbacks = %+v", c.got)
	}
}

func TestProcessMessageDispatchesAction(t *testing.T) {
	f := newFixture(t, "tok", http.StatusOK, techieUser, Config{}, `{"text": "Welcome aboard."}`)
	ctx := context.Background()

	if err := f.rt.RegisterPlugin(runtime.Plugin{Name: PluginName, Actions: []runtime.Action{f.action}}); err != nil {
		t.Fatalf("RegisterPlugin: %v", err)
	}

	var c collector
	msg := &storage.Memory{RoomID: "room1", UserID: "u1", UserName: "user1", Content: storage.Content{Text: "My Twitter handle is @techie_person"}}
	if err := f.rt.ProcessMessage(ctx, msg, nil, c.callback); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if len(c.got) != 1 || c.got[0].Text != "Welcome aboard." {
		t.Fatalf("callbacks = %+v", c.got)
	}

	mems, err := f.store.RecentMemories(ctx, "room1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 2 || mems[1].Content.Action != ActionName {
		t.Errorf("memories = %+v", mems)
	}
}
