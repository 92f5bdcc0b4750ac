// Package runtime hosts a character and its plugins: it composes
// conversation state, routes inbound messages to actions or persona chat,
// and asks the generation service for completions.
package runtime

import (
	"context"

	"github.com/michaelbrown/boarman/internal/character"
	"github.com/michaelbrown/boarman/internal/llm"
	"github.com/michaelbrown/boarman/internal/storage"
)

// HandlerCallback delivers one response to whoever sent the message.
type HandlerCallback func(ctx context.Context, content storage.Content) error

// Action is a named capability the runtime can route a message to.
type Action interface {
	Name() string
	Description() string
	Similes() []string
	Examples() [][]character.ExampleTurn

	// Validate reports whether the action can handle msg.
	Validate(ctx context.Context, msg *storage.Memory) bool

	// Handle runs the action and reports its outcome through cb.
	Handle(ctx context.Context, host Host, msg *storage.Memory, state *State, opts map[string]any, cb HandlerCallback) error
}

// Plugin groups actions under a name a character can enable.
type Plugin struct {
	Name        string
	Description string
	Actions     []Action
}

// Host is the part of the runtime an action may call back into.
type Host interface {
	Character() *character.Character
	ComposeState(ctx context.Context, msg *storage.Memory) (*State, error)
	UpdateRecentMessageState(ctx context.Context, state *State) (*State, error)
	GenerateMessageResponse(ctx context.Context, prompt string, class llm.ModelClass) (*storage.Content, error)
}

// State is the conversation context an action renders templates against.
// Treat it as immutable: With returns a modified copy.
type State struct {
	RoomID         string
	Values         map[string]string
	RecentMessages []storage.Memory
}

// Get returns a template value, or "" when unset.
func (s *State) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.Values[key]
}

// With returns a copy of s with key set to value.
func (s *State) With(key, value string) *State {
	out := &State{Values: make(map[string]string)}
	if s != nil {
		out.RoomID = s.RoomID
		out.RecentMessages = s.RecentMessages
		for k, v := range s.Values {
			out.Values[k] = v
		}
	}
	out.Values[key] = value
	return out
}
