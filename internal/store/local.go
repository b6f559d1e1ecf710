// Package store supplies conversation history and enrollment data from
// SQLite. The engine only reads; writes (appending turns, seeding demo
// data) belong to the caller side and are used by the CLI.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"peerloop/internal/logging"
	"peerloop/internal/types"
)

// Store manages the peerloop SQLite database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("opened database %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// initSchema creates the database schema.
func (s *Store) initSchema() error {
	schema := `
	-- Learners enrolled in the program
	CREATE TABLE IF NOT EXISTS learners (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		enrolled_at DATETIME NOT NULL
	);

	-- Append-only conversation log
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		sender_label TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id, id);

	-- One-shot nudge log, for cross-process idempotency
	CREATE TABLE IF NOT EXISTS nudges (
		learner_id TEXT NOT NULL,
		event TEXT NOT NULL,
		issued_at DATETIME NOT NULL,
		PRIMARY KEY (learner_id, event)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READS (the engine-facing surface)
// =============================================================================

// History returns the turns of a conversation in chronological order,
// limited to the most recent limit turns (0 = all).
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]types.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT sender_label, text, created_at FROM turns
		WHERE conversation_id = ? ORDER BY id`
	args := []interface{}{conversationID}
	if limit > 0 {
		query = `SELECT sender_label, text, created_at FROM (
			SELECT id, sender_label, text, created_at FROM turns
			WHERE conversation_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var turns []types.ConversationTurn
	for rows.Next() {
		var t types.ConversationTurn
		if err := rows.Scan(&t.SenderLabel, &t.Text, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// DaysSinceEnrollment returns how many full days the learner has been in
// the program (minimum 1 so copy reads "day 1", not "day 0").
func (s *Store) DaysSinceEnrollment(ctx context.Context, learnerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var enrolledAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT enrolled_at FROM learners WHERE id = ?`, learnerID).Scan(&enrolledAt)
	if err == sql.ErrNoRows {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query learner: %w", err)
	}

	days := int(time.Since(enrolledAt).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days, nil
}

// LearnerName returns the learner's display name, or the id itself when
// unknown.
func (s *Store) LearnerName(ctx context.Context, learnerID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT display_name FROM learners WHERE id = ?`, learnerID).Scan(&name)
	if err == sql.ErrNoRows {
		return learnerID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query learner: %w", err)
	}
	return name, nil
}

// =============================================================================
// WRITES (caller-side only; the engine never persists)
// =============================================================================

// UpsertLearner registers or updates a learner.
func (s *Store) UpsertLearner(ctx context.Context, id, displayName string, enrolledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO learners (id, display_name, enrolled_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name`,
		id, displayName, enrolledAt)
	if err != nil {
		return fmt.Errorf("failed to upsert learner: %w", err)
	}
	return nil
}

// AppendTurn appends one turn to a conversation.
func (s *Store) AppendTurn(ctx context.Context, conversationID string, turn types.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, sender_label, text, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, turn.SenderLabel, turn.Text, ts)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// LastNudge returns when a nudge event was last issued to a learner. ok is
// false when it never was.
func (s *Store) LastNudge(ctx context.Context, learnerID, event string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var issuedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT issued_at FROM nudges WHERE learner_id = ? AND event = ?`,
		learnerID, event).Scan(&issuedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query nudge: %w", err)
	}
	return issuedAt, true, nil
}

// RecordNudge records that a nudge event was issued now.
func (s *Store) RecordNudge(ctx context.Context, learnerID, event string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nudges (learner_id, event, issued_at) VALUES (?, ?, ?)
		 ON CONFLICT(learner_id, event) DO UPDATE SET issued_at = excluded.issued_at`,
		learnerID, event, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record nudge: %w", err)
	}
	return nil
}

// SeedDemo populates a demo learner and a short conversation so the CLI has
// something to chat against out of the box.
func (s *Store) SeedDemo(ctx context.Context) error {
	if err := s.UpsertLearner(ctx, "demo-learner", "Alex", time.Now().AddDate(0, 0, -3)); err != nil {
		return err
	}

	turns := []types.ConversationTurn{
		{SenderLabel: "Maya", Text: "Welcome to the cohort channel, everyone!"},
		{SenderLabel: "Tyler", Text: "Week 1 done!! Let's goooo 🔥"},
		{SenderLabel: "jess", Text: "module 1 took me two evenings but it clicked eventually"},
	}
	for _, t := range turns {
		if err := s.AppendTurn(ctx, "demo-learner", t); err != nil {
			return err
		}
	}
	logging.Store("seeded demo data")
	return nil
}
