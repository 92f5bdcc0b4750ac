package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/michaelbrown/boarman/internal/storage"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements storage.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateMemory(ctx context.Context, m *storage.Memory) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	content, err := json.Marshal(m.Content)
	if err != nil {
		return fmt.Errorf("marshaling content: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memories (id, room_id, user_id, user_name, from_agent, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.RoomID, m.UserID, m.UserName, m.FromAgent, string(content),
		m.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting memory: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentMemories(ctx context.Context, roomID string, limit int) ([]storage.Memory, error) {
	if limit <= 0 {
		limit = 32
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, user_id, user_name, from_agent, content, created_at FROM (
			SELECT * FROM memories WHERE room_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	var out []storage.Memory
	for rows.Next() {
		var m storage.Memory
		var content, createdAt string
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.UserName, &m.FromAgent, &content, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(content), &m.Content); err != nil {
			return nil, fmt.Errorf("unmarshaling memory %s: %w", m.ID, err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListRooms(ctx context.Context) ([]storage.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT room_id, COUNT(*), MAX(created_at), MAX(seq) AS last
		FROM memories GROUP BY room_id ORDER BY last DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	defer rows.Close()

	var rooms []storage.Room
	for rows.Next() {
		var r storage.Room
		var updatedAt string
		var last int64
		if err := rows.Scan(&r.ID, &r.MessageCount, &updatedAt, &last); err != nil {
			return nil, err
		}
		r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (s *SQLiteStore) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE room_id = ?`, roomID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("room not found: %s", roomID)
	}
	return nil
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *storage.Analysis) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	var scores string
	if len(a.Scores) > 0 {
		data, err := json.Marshal(a.Scores)
		if err != nil {
			return fmt.Errorf("marshaling scores: %w", err)
		}
		scores = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, room_id, handle, variant, status, error_kind, error, profile, response, scores, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.RoomID, a.Handle, a.Variant, a.Status, a.ErrorKind, a.Error,
		string(a.Profile), a.Response, scores, a.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting analysis: %w", err)
	}
	return nil
}

const analysisColumns = `id, room_id, handle, variant, status, error_kind, error, profile, response, scores, created_at`

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*storage.Analysis, error) {
	// Try exact match first, then prefix match
	row := s.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = ?`, id)
	if a, err := scanAnalysis(row); err == nil {
		return a, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id LIKE ? ESCAPE '\'`, likePrefix(id))
	if err != nil {
		return nil, fmt.Errorf("querying analysis: %w", err)
	}
	defer rows.Close()

	var matches []*storage.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, a)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("analysis not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous analysis prefix %q matches %d analyses", id, len(matches))
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns a literal prefix into a LIKE pattern escaped with '\'.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, opts storage.AnalysisListOptions) ([]storage.Analysis, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE 1 = 1`
	var args []any

	if opts.Handle != "" {
		query += ` AND handle = ?`
		args = append(args, opts.Handle)
	}
	if opts.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(opts.Status))
	}

	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var out []storage.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scanner interface to work with both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (*storage.Analysis, error) {
	var a storage.Analysis
	var profile, scores, createdAt string
	err := s.Scan(&a.ID, &a.RoomID, &a.Handle, &a.Variant, &a.Status, &a.ErrorKind,
		&a.Error, &profile, &a.Response, &scores, &createdAt)
	if err != nil {
		return nil, err
	}
	if profile != "" {
		a.Profile = json.RawMessage(profile)
	}
	if scores != "" {
		if err := json.Unmarshal([]byte(scores), &a.Scores); err != nil {
			return nil, fmt.Errorf("unmarshaling scores for %s: %w", a.ID, err)
		}
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}
