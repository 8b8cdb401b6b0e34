// Package session persists conversations and scheduled messages in a
// local SQLite database.
package session

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codefionn/werkbote/internal/llm"
)

// Session is one persisted conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduledMessage is a message to deliver at (or after) a due time.
type ScheduledMessage struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Body      string     `json:"body"`
	DueAt     time.Time  `json:"due_at"`
	Delivered *time.Time `json:"delivered_at,omitempty"`
}

// Store handles SQLite operations for sessions, messages and scheduled
// messages.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (or creates) the database at dbPath and migrates the
// schema.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_id TEXT NOT NULL DEFAULT '',
		tool_calls TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);

	CREATE TABLE IF NOT EXISTS scheduled_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		due_at TIMESTAMP NOT NULL,
		delivered_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_scheduled_due ON scheduled_messages(due_at) WHERE delivered_at IS NULL;
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// CreateSession creates and returns a new session.
func (s *Store) CreateSession(title string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        GenerateID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// GetSession loads one session by id.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT id, title, created_at, updated_at FROM sessions WHERE id = ?`, id)

	var sess Session
	if err := row.Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s not found", id)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return &sess, nil
}

// AppendMessage stores one conversation turn. Tool calls are serialized as
// JSON; the content digest makes later integrity checks cheap.
func (s *Store) AppendMessage(sessionID string, msg *llm.Message) error {
	toolCalls := ""
	if len(msg.ToolCalls) > 0 {
		encoded, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to encode tool calls: %w", err)
		}
		toolCalls = string(encoded)
	}

	digest := fmt.Sprintf("%016x", xxhash.Sum64String(msg.Content))
	now := time.Now()

	_, err := s.db.Exec(
		`INSERT INTO messages (session_id, role, content, tool_id, tool_calls, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, msg.Role, msg.Content, msg.ToolID, toolCalls, digest, now,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	if _, err := s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// Messages returns all messages of a session in insertion order.
func (s *Store) Messages(sessionID string) ([]*llm.Message, error) {
	rows, err := s.db.Query(
		`SELECT role, content, tool_id, tool_calls FROM messages WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var result []*llm.Message
	for rows.Next() {
		var msg llm.Message
		var toolCalls string
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.ToolID, &toolCalls); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if toolCalls != "" {
			if err := json.Unmarshal([]byte(toolCalls), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to decode tool calls: %w", err)
			}
		}
		result = append(result, &msg)
	}
	return result, rows.Err()
}

// ScheduleMessage stores a message for later delivery and returns its id.
func (s *Store) ScheduleMessage(sessionID, body string, dueAt time.Time) (string, error) {
	id := GenerateID()
	_, err := s.db.Exec(
		`INSERT INTO scheduled_messages (id, session_id, body, due_at) VALUES (?, ?, ?, ?)`,
		id, sessionID, body, dueAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to schedule message: %w", err)
	}
	return id, nil
}

// DueMessages returns all undelivered messages whose due time has passed.
func (s *Store) DueMessages(now time.Time) ([]*ScheduledMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, body, due_at FROM scheduled_messages
		 WHERE delivered_at IS NULL AND due_at <= ? ORDER BY due_at`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load due messages: %w", err)
	}
	defer rows.Close()

	var result []*ScheduledMessage
	for rows.Next() {
		var msg ScheduledMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Body, &msg.DueAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled message: %w", err)
		}
		result = append(result, &msg)
	}
	return result, rows.Err()
}

// MarkDelivered records the delivery time of a scheduled message.
func (s *Store) MarkDelivered(id string) error {
	_, err := s.db.Exec(
		`UPDATE scheduled_messages SET delivered_at = ? WHERE id = ? AND delivered_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark message delivered: %w", err)
	}
	return nil
}

// GenerateID creates a random id (hex, 12 chars).
func GenerateID() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("sess-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}
