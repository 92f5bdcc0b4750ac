package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/michaelbrown/boarman/internal/character"
	"github.com/michaelbrown/boarman/internal/storage"
)

const defaultMessageLimit = 50

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Character handlers ---

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.Character())
}

type actionInfo struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Similes     []string                  `json:"similes"`
	Examples    [][]character.ExampleTurn `json:"examples"`
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	actions := []actionInfo{}
	for _, a := range s.rt.Actions() {
		actions = append(actions, actionInfo{
			Name:        a.Name(),
			Description: a.Description(),
			Similes:     a.Similes(),
			Examples:    a.Examples(),
		})
	}
	writeJSON(w, http.StatusOK, actions)
}

// --- Room handlers ---

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListRooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if rooms == nil {
		rooms = []storage.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "room")

	// Cancel in-flight work, then delete once it has unwound
	s.rooms.Reset(id)
	err := s.rooms.GetOrCreate(id).Run(r.Context(), func(ctx context.Context) error {
		return s.store.DeleteRoom(ctx, id)
	})
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "room not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Message handlers ---

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "room")

	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	messages, err := s.store.RecentMemories(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if messages == nil {
		messages = []storage.Memory{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendMessageRequest struct {
	Text     string         `json:"text"`
	Action   string         `json:"action"`
	UserID   string         `json:"user_id"`
	UserName string         `json:"user_name"`
	Options  map[string]any `json:"options"`
}

func (req sendMessageRequest) memory(roomID string) *storage.Memory {
	m := &storage.Memory{
		RoomID:   roomID,
		UserID:   req.UserID,
		UserName: req.UserName,
		Content:  storage.Content{Text: req.Text, Action: req.Action},
	}
	if m.UserID == "" {
		m.UserID = "user"
	}
	if m.UserName == "" {
		m.UserName = m.UserID
	}
	return m
}

type sendMessageResponse struct {
	Responses []storage.Content `json:"responses"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "room")

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	var (
		mu  sync.Mutex
		out = sendMessageResponse{Responses: []storage.Content{}}
	)
	collect := func(ctx context.Context, c storage.Content) error {
		mu.Lock()
		out.Responses = append(out.Responses, c)
		mu.Unlock()
		return nil
	}

	err := s.rooms.GetOrCreate(id).Run(r.Context(), func(ctx context.Context) error {
		return s.rt.ProcessMessage(ctx, req.memory(id), req.Options, collect)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("agent error: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// --- Analysis handlers ---

func analysisOptions(r *http.Request) storage.AnalysisListOptions {
	q := r.URL.Query()
	return storage.AnalysisListOptions{
		Handle: strings.TrimPrefix(q.Get("handle"), "@"),
		Status: storage.AnalysisStatus(q.Get("status")),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.ListAnalyses(r.Context(), analysisOptions(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if analyses == nil {
		analyses = []storage.Analysis{}
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.store.GetAnalysis(r.Context(), id)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			writeError(w, http.StatusNotFound, "analysis not found")
		case strings.Contains(err.Error(), "ambiguous"):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleExportAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.ListAnalyses(r.Context(), analysisOptions(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		data, err := storage.ExportJSON(analyses)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(storage.ExportMarkdown(analyses)))
	default:
		writeError(w, http.StatusBadRequest, "unknown format: "+format)
	}
}
