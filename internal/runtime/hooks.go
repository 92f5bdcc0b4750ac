package runtime

import "context"

// ChatHooks observes persona chat while it runs. Any field may be nil.
// Actions do not stream; their replies still arrive through the callback.
type ChatHooks struct {
	OnTextDelta  func(delta string)
	OnToolCall   func(name string, args map[string]any)
	OnToolResult func(name, result string)
}

type chatHooksKey struct{}

// WithChatHooks returns a context that makes ProcessMessage report persona
// chat progress to h.
func WithChatHooks(ctx context.Context, h *ChatHooks) context.Context {
	return context.WithValue(ctx, chatHooksKey{}, h)
}

// chatHooksFrom returns the hooks attached to ctx, or nil.
func chatHooksFrom(ctx context.Context) *ChatHooks {
	h, _ := ctx.Value(chatHooksKey{}).(*ChatHooks)
	return h
}
