package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/boarman/internal/agent"
	"github.com/michaelbrown/boarman/internal/apperr"
	"github.com/michaelbrown/boarman/internal/character"
	"github.com/michaelbrown/boarman/internal/llm"
	"github.com/michaelbrown/boarman/internal/storage"
	"github.com/michaelbrown/boarman/internal/tools"
)

const (
	defaultRecentMessages = 32
	defaultMaxIterations  = 5
)

// Options configures a Runtime.
type Options struct {
	Character *character.Character
	Store     storage.Store

	// Models maps a tier to a client. Missing tiers fall back to the
	// nearest configured one.
	Models map[llm.ModelClass]llm.Client

	Tools          *tools.Registry // optional MCP tools for persona chat
	MaxIterations  int
	RecentMessages int
	AgentID        string
	Logger         *slog.Logger
}

// Runtime routes messages for one character.
type Runtime struct {
	character *character.Character
	store     storage.Store
	models    map[llm.ModelClass]llm.Client
	tools     *tools.Registry
	maxIter   int
	recent    int
	agentID   string
	logger    *slog.Logger

	mu      sync.RWMutex
	plugins []Plugin
	actions []Action
}

// New creates a Runtime. Character, Store and at least one model are required.
func New(opts Options) (*Runtime, error) {
	if opts.Character == nil {
		return nil, errors.New("runtime: character is required")
	}
	if opts.Store == nil {
		return nil, errors.New("runtime: store is required")
	}
	if len(opts.Models) == 0 {
		return nil, errors.New("runtime: at least one model client is required")
	}

	r := &Runtime{
		character: opts.Character,
		store:     opts.Store,
		models:    opts.Models,
		tools:     opts.Tools,
		maxIter:   opts.MaxIterations,
		recent:    opts.RecentMessages,
		agentID:   opts.AgentID,
		logger:    opts.Logger,
	}
	if r.maxIter <= 0 {
		r.maxIter = defaultMaxIterations
	}
	if r.recent <= 0 {
		r.recent = defaultRecentMessages
	}
	if r.agentID == "" {
		r.agentID = strings.ToLower(strings.ReplaceAll(opts.Character.Name, " ", "_")) + "_agent"
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Character returns the persona this runtime speaks as.
func (r *Runtime) Character() *character.Character { return r.character }

// RegisterPlugin adds a plugin's actions. The character must enable the
// plugin and action names must be unique.
func (r *Runtime) RegisterPlugin(p Plugin) error {
	if !r.character.HasPlugin(p.Name) {
		return fmt.Errorf("plugin %q is not enabled by character %q", p.Name, r.character.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range p.Actions {
		for _, existing := range r.actions {
			if strings.EqualFold(existing.Name(), a.Name()) {
				return fmt.Errorf("action %s already registered", a.Name())
			}
		}
	}
	r.plugins = append(r.plugins, p)
	r.actions = append(r.actions, p.Actions...)
	r.logger.Info("runtime: plugin registered", "plugin", p.Name, "actions", len(p.Actions))
	return nil
}

// Plugins returns the registered plugins.
func (r *Runtime) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Plugin(nil), r.plugins...)
}

// Actions returns every registered action in registration order.
func (r *Runtime) Actions() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Action(nil), r.actions...)
}

// Action finds a registered action by name or simile, case-insensitively.
func (r *Runtime) Action(name string) (Action, bool) {
	for _, a := range r.Actions() {
		if strings.EqualFold(a.Name(), name) {
			return a, true
		}
		for _, s := range a.Similes() {
			if strings.EqualFold(s, name) {
				return a, true
			}
		}
	}
	return nil, false
}

// ComposeState builds the template state for msg's room.
func (r *Runtime) ComposeState(ctx context.Context, msg *storage.Memory) (*State, error) {
	recent, err := r.store.RecentMemories(ctx, msg.RoomID, r.recent)
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}

	c := r.character
	var names []string
	for _, a := range r.Actions() {
		names = append(names, a.Name())
	}

	return &State{
		RoomID:         msg.RoomID,
		RecentMessages: recent,
		Values: map[string]string{
			"agentName":      c.Name,
			"agentUsername":  c.Username,
			"system":         c.System,
			"bio":            strings.Join(c.Bio, " "),
			"lore":           strings.Join(c.Lore, "\n"),
			"topics":         strings.Join(c.Topics, ", "),
			"adjectives":     strings.Join(c.Adjectives, ", "),
			"senderName":     msg.UserName,
			"actionNames":    strings.Join(names, ", "),
			"recentMessages": formatMessages(recent),
		},
	}, nil
}

// UpdateRecentMessageState refreshes the recent message window of state.
func (r *Runtime) UpdateRecentMessageState(ctx context.Context, state *State) (*State, error) {
	recent, err := r.store.RecentMemories(ctx, state.RoomID, r.recent)
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}
	out := state.With("recentMessages", formatMessages(recent))
	out.RecentMessages = recent
	return out, nil
}

// GenerateMessageResponse asks the model tier for a JSON completion with a
// "text" field. Any other top-level fields are returned in Content.Extra.
func (r *Runtime) GenerateMessageResponse(ctx context.Context, prompt string, class llm.ModelClass) (*storage.Content, error) {
	const op = "generate message response"

	resp, err := r.model(class).ChatCompletion(ctx, []llm.Message{llm.UserMessage(prompt)}, nil)
	if err != nil {
		return nil, apperr.Upstream(op, err)
	}

	obj, err := llm.ParseJSONObject(resp.Message.Content)
	if err != nil {
		return nil, apperr.Upstream(op, fmt.Errorf("parsing completion: %w", err))
	}
	text, _ := obj["text"].(string)
	if text == "" {
		return nil, apperr.Upstreamf(op, "completion has no text field")
	}

	content := &storage.Content{Text: text}
	for k, v := range obj {
		if k == "text" {
			continue
		}
		if content.Extra == nil {
			content.Extra = make(map[string]any)
		}
		content.Extra[k] = v
	}
	return content, nil
}

// model picks the client for class, falling back through the other tiers.
func (r *Runtime) model(class llm.ModelClass) llm.Client {
	for _, c := range []llm.ModelClass{class, llm.ModelClassMedium, llm.ModelClassSmall, llm.ModelClassLarge} {
		if m, ok := r.models[c]; ok {
			return m
		}
	}
	for _, m := range r.models {
		return m
	}
	return nil
}

// ProcessMessage stores msg, routes it to a matching action or to persona
// chat, and stores every response delivered through cb.
func (r *Runtime) ProcessMessage(ctx context.Context, msg *storage.Memory, opts map[string]any, cb HandlerCallback) error {
	if msg.RoomID == "" {
		return errors.New("message has no room")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if err := r.store.CreateMemory(ctx, msg); err != nil {
		return fmt.Errorf("saving message: %w", err)
	}

	respond := r.remember(msg.RoomID, cb)

	state, err := r.ComposeState(ctx, msg)
	if err != nil {
		return err
	}

	if a := r.selectAction(ctx, msg); a != nil {
		r.logger.Info("runtime: dispatching action", "action", a.Name(), "room", msg.RoomID)
		return a.Handle(ctx, r, msg, state, opts, respond)
	}

	text, err := r.chat(ctx, msg, state)
	if err != nil {
		return fmt.Errorf("persona chat: %w", err)
	}
	return respond(ctx, storage.Content{Text: text})
}

// selectAction honours an explicitly requested action first, then prefers
// validated actions whose similes appear in the text.
func (r *Runtime) selectAction(ctx context.Context, msg *storage.Memory) Action {
	if name := msg.Content.Action; name != "" {
		if a, ok := r.Action(name); ok && a.Validate(ctx, msg) {
			return a
		}
	}

	text := strings.ToLower(msg.Content.Text)
	var fallback Action
	for _, a := range r.Actions() {
		if !a.Validate(ctx, msg) {
			continue
		}
		for _, s := range a.Similes() {
			if strings.Contains(text, strings.ToLower(s)) {
				return a
			}
		}
		if fallback == nil {
			fallback = a
		}
	}
	return fallback
}

func (r *Runtime) chat(ctx context.Context, msg *storage.Memory, state *State) (string, error) {
	var history []llm.Message
	for _, m := range state.RecentMessages {
		if m.ID == msg.ID || m.Content.Text == "" {
			continue
		}
		if m.FromAgent {
			history = append(history, llm.AssistantMessage(m.Content.Text))
		} else {
			history = append(history, llm.UserMessage(m.Content.Text))
		}
	}

	a := agent.New(r.model(llm.ModelClassMedium), r.tools, r.character.SystemPrompt(), r.maxIter)
	if small, ok := r.models[llm.ModelClassSmall]; ok {
		a.SetUtilityLLM(small)
	}
	a.SetHistory(history)
	if h := chatHooksFrom(ctx); h != nil {
		a.OnTextDelta = h.OnTextDelta
		a.OnToolCall = h.OnToolCall
		a.OnToolResult = h.OnToolResult
	}
	return a.Run(ctx, msg.Content.Text)
}

// remember wraps cb so each response is also stored as an agent memory.
func (r *Runtime) remember(roomID string, cb HandlerCallback) HandlerCallback {
	return func(ctx context.Context, content storage.Content) error {
		m := &storage.Memory{
			ID:        uuid.NewString(),
			RoomID:    roomID,
			UserID:    r.agentID,
			UserName:  r.character.Name,
			FromAgent: true,
			Content:   content,
		}
		if err := r.store.CreateMemory(ctx, m); err != nil {
			r.logger.Warn("runtime: failed to store response", "room", roomID, "error", err)
		}
		if cb == nil {
			return nil
		}
		return cb(ctx, content)
	}
}
