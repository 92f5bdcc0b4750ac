// Package boarman provides the Boris Boarman plugin and its Twitter profile
// analysis action.
package boarman

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/boarman/internal/apperr"
	"github.com/michaelbrown/boarman/internal/character"
	"github.com/michaelbrown/boarman/internal/llm"
	"github.com/michaelbrown/boarman/internal/runtime"
	"github.com/michaelbrown/boarman/internal/storage"
	"github.com/michaelbrown/boarman/internal/twitter"
)

const ActionName = "ANALYZE_TWITTER_ACCOUNT"

// ProfileFetcher looks up a public profile by handle.
type ProfileFetcher interface {
	LookupProfile(ctx context.Context, handle string) (*twitter.Profile, error)
}

// SummaryFetcher returns the project summary document for a handle.
type SummaryFetcher interface {
	FetchSummary(ctx context.Context, input string) (json.RawMessage, error)
}

// AnalysisRecorder persists the outcome of each analysis.
type AnalysisRecorder interface {
	SaveAnalysis(ctx context.Context, a *storage.Analysis) error
}

// Config wires an AnalyzeTwitterAccount action. Profiles is required.
// Summaries is only used by variants with UseSummary set. Recorder is optional.
type Config struct {
	Variant   Variant
	Profiles  ProfileFetcher
	Summaries SummaryFetcher
	Recorder  AnalysisRecorder
	Logger    *slog.Logger
}

// AnalyzeTwitterAccount fetches a Twitter profile named in a message and asks
// the model for a short assessment of it.
type AnalyzeTwitterAccount struct {
	variant   Variant
	profiles  ProfileFetcher
	summaries SummaryFetcher
	recorder  AnalysisRecorder
	logger    *slog.Logger
}

var _ runtime.Action = (*AnalyzeTwitterAccount)(nil)

func NewAnalyzeTwitterAccount(cfg Config) *AnalyzeTwitterAccount {
	if cfg.Variant.Template == "" {
		cfg.Variant = GrantFit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AnalyzeTwitterAccount{
		variant:   cfg.Variant,
		profiles:  cfg.Profiles,
		summaries: cfg.Summaries,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
	}
}

func (a *AnalyzeTwitterAccount) Name() string { return ActionName }

func (a *AnalyzeTwitterAccount) Description() string {
	return "Fetch and analyze a user's Twitter information"
}

func (a *AnalyzeTwitterAccount) Similes() []string {
	return []string{"check twitter", "look up twitter", "analyze twitter", "get twitter bio"}
}

// Variant returns the configured variant.
func (a *AnalyzeTwitterAccount) Variant() Variant { return a.variant }

func (a *AnalyzeTwitterAccount) Examples() [][]character.ExampleTurn {
	return [][]character.ExampleTurn{
		{
			{User: "user1", Text: "Can you check out my Twitter? I'm @techie_person"},
			{User: "boris_boarman_agent", Text: "I see from your Twitter bio that you're a software engineer passionate about AI and open source! That's fascinating. I'd love to hear more about the open source projects you're working on. Have you been involved in any AI-related projects lately?"},
		},
		{
			{User: "user1", Text: "My Twitter handle is @nature_lover99"},
			{User: "boris_boarman_agent", Text: "Ah, your bio shows you're really into wildlife photography and environmental conservation! That's wonderful. What inspired you to start photographing nature? I'd love to hear about your favorite capture!"},
		},
	}
}

func (a *AnalyzeTwitterAccount) Validate(ctx context.Context, msg *storage.Memory) bool {
	handle, ok := ExtractHandle(msg.Content.Text)
	a.logger.Info("Validating Twitter handle", "handle", handle, "ok", ok)
	return ok
}

// Handle delivers exactly one response through cb: the generated assessment,
// guidance when the message names no handle, or an apology on any failure.
// opts["variant"] overrides the configured variant by name.
func (a *AnalyzeTwitterAccount) Handle(ctx context.Context, host runtime.Host, msg *storage.Memory, state *runtime.State, opts map[string]any, cb runtime.HandlerCallback) error {
	variant := a.variant
	if name, ok := opts["variant"].(string); ok {
		v, found := VariantByName(name)
		if !found {
			a.logger.Warn("unknown analysis variant, using default", "variant", name, "default", variant.Name)
		} else {
			variant = v
		}
	}

	var err error
	if state == nil {
		state, err = host.ComposeState(ctx, msg)
	} else {
		state, err = host.UpdateRecentMessageState(ctx, state)
	}
	if err != nil {
		a.logger.Error("composing state", "kind", apperr.KindUnknown, "error", err)
		return reply(ctx, cb, storage.Content{Text: MsgUnavailable})
	}

	handle, ok := ExtractHandle(msg.Content.Text)
	if !ok {
		err := apperr.Validation("extract handle", "no Twitter handle in message")
		a.logger.Warn("analysis skipped", "kind", apperr.KindOf(err), "room", msg.RoomID, "error", err)
		return reply(ctx, cb, storage.Content{Text: UserMessage(apperr.KindOf(err))})
	}

	rec := &storage.Analysis{
		ID:        uuid.NewString(),
		RoomID:    msg.RoomID,
		Handle:    handle,
		Variant:   variant.Name,
		CreatedAt: time.Now().UTC(),
	}

	content, err := a.analyze(ctx, host, state, variant, rec)
	if err != nil {
		kind := apperr.KindOf(err)
		a.logger.Error("Error fetching Twitter bio", "handle", handle, "kind", kind, "error", err)
		rec.Status = storage.AnalysisFailed
		rec.ErrorKind = kind.String()
		rec.Error = err.Error()
		a.record(ctx, rec)
		return reply(ctx, cb, storage.Content{Text: UserMessage(kind)})
	}

	rec.Status = storage.AnalysisOK
	rec.Response = content.Text
	a.record(ctx, rec)
	return reply(ctx, cb, *content)
}

// analyze runs the fetch, render and generate steps. It fills rec.Profile
// and rec.Scores as they become available.
func (a *AnalyzeTwitterAccount) analyze(ctx context.Context, host runtime.Host, state *runtime.State, v Variant, rec *storage.Analysis) (*storage.Content, error) {
	if a.profiles == nil {
		return nil, apperr.Upstream("profile lookup", errors.New("no profile source configured"))
	}

	a.logger.Info("Fetching Twitter profile", "handle", rec.Handle)
	profile, err := a.profiles.LookupProfile(ctx, rec.Handle)
	if err != nil {
		return nil, err
	}

	serialized, err := serializeProfile(profile)
	if err != nil {
		return nil, fmt.Errorf("serializing profile: %w", err)
	}
	rec.Profile = json.RawMessage(serialized)
	a.logger.Info("Profile retrieved", "handle", rec.Handle, "followers", profile.Followers)

	state = state.With("profile", serialized)

	if v.UseSummary {
		if a.summaries == nil {
			return nil, apperr.Upstream("project summary", errors.New("no summary source configured"))
		}
		summary, err := a.summaries.FetchSummary(ctx, rec.Handle)
		if err != nil {
			return nil, err
		}
		state = state.With("projectSummary", string(summary))
	}

	prompt := runtime.ComposeContext(state, v.Template)
	a.logger.Debug("Generated prompt", "prompt", prompt)

	content, err := host.GenerateMessageResponse(ctx, prompt, llm.ModelClassSmall)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Generated response", "handle", rec.Handle, "variant", v.Name)

	out := &storage.Content{Text: content.Text, Action: ActionName}
	for _, f := range v.ScoreFields {
		val, ok := content.Extra[f]
		if !ok {
			continue
		}
		if rec.Scores == nil {
			rec.Scores = make(map[string]any)
			out.Extra = make(map[string]any)
		}
		rec.Scores[f] = val
		out.Extra[f] = val
	}
	return out, nil
}

func (a *AnalyzeTwitterAccount) record(ctx context.Context, rec *storage.Analysis) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.SaveAnalysis(ctx, rec); err != nil {
		a.logger.Warn("saving analysis", "id", rec.ID, "error", err)
	}
}

func reply(ctx context.Context, cb runtime.HandlerCallback, content storage.Content) error {
	if cb == nil {
		return nil
	}
	return cb(ctx, content)
}

// serializeProfile renders p as compact JSON without HTML escaping.
func serializeProfile(p *twitter.Profile) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
