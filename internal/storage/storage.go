package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Content is the payload of a message exchanged with the agent.
type Content struct {
	Text   string         `json:"text"`
	Action string         `json:"action,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Memory is a single message in a room, from a user or from the agent.
type Memory struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	FromAgent bool      `json:"from_agent"`
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Room summarizes a conversation.
type Room struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AnalysisStatus is the outcome of a profile analysis.
type AnalysisStatus string

const (
	AnalysisOK     AnalysisStatus = "ok"
	AnalysisFailed AnalysisStatus = "failed"
)

// Analysis records one run of the profile-analysis action.
type Analysis struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id"`
	Handle    string          `json:"handle"`
	Variant   string          `json:"variant"`
	Status    AnalysisStatus  `json:"status"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty"`
	Profile   json.RawMessage `json:"profile,omitempty"`
	Response  string          `json:"response"`
	Scores    map[string]any  `json:"scores,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AnalysisListOptions controls filtering and pagination for ListAnalyses.
type AnalysisListOptions struct {
	Handle string
	Status AnalysisStatus
	Limit  int
	Offset int
}

// Store is the persistence interface for room memories and analyses.
type Store interface {
	// CreateMemory inserts a memory. ID and RoomID must be set by the caller.
	CreateMemory(ctx context.Context, m *Memory) error

	// RecentMemories returns up to limit of the newest memories in a room,
	// oldest first.
	RecentMemories(ctx context.Context, roomID string, limit int) ([]Memory, error)

	// ListRooms returns rooms ordered by most recent activity.
	ListRooms(ctx context.Context) ([]Room, error)

	// DeleteRoom removes every memory in a room.
	DeleteRoom(ctx context.Context, roomID string) error

	// SaveAnalysis inserts an analysis record. The ID must be set by the caller.
	SaveAnalysis(ctx context.Context, a *Analysis) error

	// GetAnalysis returns an analysis by ID or ID prefix.
	GetAnalysis(ctx context.Context, id string) (*Analysis, error)

	// ListAnalyses returns analyses ordered by created_at descending.
	ListAnalyses(ctx context.Context, opts AnalysisListOptions) ([]Analysis, error)

	// Close releases resources.
	Close() error
}
