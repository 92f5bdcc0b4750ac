package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/michaelbrown/boarman/internal/runtime"
	"github.com/michaelbrown/boarman/internal/storage"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // deployed behind an authenticating proxy
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type     string         `json:"type"`
	Text     string         `json:"text"`
	Action   string         `json:"action,omitempty"`
	UserID   string         `json:"user_id,omitempty"`
	UserName string         `json:"user_name,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// wsOutgoing is a message to the client. Persona chat emits delta and
// tool_call/tool_result frames before its response frame.
type wsOutgoing struct {
	Type    string           `json:"type"`
	Content *storage.Content `json:"content,omitempty"`
	Delta   string           `json:"delta,omitempty"`
	Name    string           `json:"name,omitempty"`
	Args    map[string]any   `json:"args,omitempty"`
	Result  string           `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "room")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "room", id, "error", err)
		return
	}
	defer conn.Close()

	room := s.rooms.GetOrCreate(id)

	// Read loop
	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			slog.Warn("websocket read failed", "room", id, "error", err)
			return
		}

		if msg.Type != "message" || msg.Text == "" {
			wsWriteJSON(conn, nil, wsOutgoing{Type: "error", Error: "invalid message"})
			continue
		}

		s.processWebSocketMessage(conn, room, id, msg)
	}
}

func (s *Server) processWebSocketMessage(conn *websocket.Conn, room *ActiveRoom, roomID string, msg wsIncoming) {
	// Serializes writes from the callback and the final frame
	var wsMu sync.Mutex

	req := sendMessageRequest{
		Text:     msg.Text,
		Action:   msg.Action,
		UserID:   msg.UserID,
		UserName: msg.UserName,
	}

	hooks := &runtime.ChatHooks{
		OnTextDelta: func(delta string) {
			wsWriteJSON(conn, &wsMu, wsOutgoing{Type: "delta", Delta: delta})
		},
		OnToolCall: func(name string, args map[string]any) {
			wsWriteJSON(conn, &wsMu, wsOutgoing{Type: "tool_call", Name: name, Args: args})
		},
		OnToolResult: func(name, result string) {
			wsWriteJSON(conn, &wsMu, wsOutgoing{Type: "tool_result", Name: name, Result: result})
		},
	}

	var ctxErr error
	err := room.Run(runtime.WithChatHooks(context.Background(), hooks), func(ctx context.Context) error {
		err := s.rt.ProcessMessage(ctx, req.memory(roomID), msg.Options, func(ctx context.Context, c storage.Content) error {
			wsWriteJSON(conn, &wsMu, wsOutgoing{Type: "response", Content: &c})
			return nil
		})
		ctxErr = ctx.Err()
		return err
	})

	if err != nil {
		if ctxErr != nil {
			wsWriteJSON(conn, &wsMu, wsOutgoing{Type: "error", Error: "interrupted"})
		} else {
			wsWriteJSON(conn, &wsMu, wsOutgoing{Type: "error", Error: err.Error()})
		}
		return
	}

	wsWriteJSON(conn, &wsMu, wsOutgoing{Type: "done"})
}

func wsWriteJSON(conn *websocket.Conn, mu *sync.Mutex, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("websocket marshal failed", "error", err)
		return
	}
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("websocket write failed", "error", err)
	}
}
