package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/wricardo/rulegrid/game/service"
)

// SQLitePersistence implements SessionPersistence and service.SlotStore in a
// single SQLite database
type SQLitePersistence struct {
	db     *sql.DB
	dbPath string
	levels service.LevelManager
	logger *zap.Logger
}

// NewSQLitePersistence opens or creates the session database at dbPath
func NewSQLitePersistence(dbPath string, levels service.LevelManager, logger *zap.Logger) (*SQLitePersistence, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLitePersistence{
		db:     db,
		dbPath: dbPath,
		levels: levels,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLitePersistence) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *SQLitePersistence) Path() string {
	return s.dbPath
}

func (s *SQLitePersistence) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		display_id TEXT NOT NULL,
		level_id TEXT NOT NULL,
		current_slot INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		last_accessed_at TEXT NOT NULL,
		world TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS save_slots (
		session_id TEXT NOT NULL,
		slot INTEGER NOT NULL,
		data TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		PRIMARY KEY (session_id, slot)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save upserts a session row
func (s *SQLitePersistence) Save(session *service.Session) error {
	data, err := persistedData(session)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, display_id, level_id, current_slot, created_at, last_accessed_at, world)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_id = excluded.display_id,
			level_id = excluded.level_id,
			current_slot = excluded.current_slot,
			last_accessed_at = excluded.last_accessed_at,
			world = excluded.world`,
		strings.ToLower(data.ID), data.ID, data.LevelID, data.CurrentSlot,
		formatTime(data.CreatedAt), formatTime(data.LastAccessedAt), string(data.World))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads a session row and rebuilds its engine
func (s *SQLitePersistence) Load(id string) (*service.Session, error) {
	var (
		data                  PersistedSessionData
		world                 string
		created, lastAccessed string
	)
	err := s.db.QueryRow(`
		SELECT display_id, level_id, current_slot, created_at, last_accessed_at, world
		FROM sessions WHERE id = ?`, strings.ToLower(id)).
		Scan(&data.ID, &data.LevelID, &data.CurrentSlot, &created, &lastAccessed, &world)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	data.World = json.RawMessage(world)
	if data.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("bad created_at for session %s: %w", id, err)
	}
	if data.LastAccessedAt, err = time.Parse(time.RFC3339Nano, lastAccessed); err != nil {
		return nil, fmt.Errorf("bad last_accessed_at for session %s: %w", id, err)
	}

	return restore(&data, s.levels, s.logger)
}

// Delete removes a session row
func (s *SQLitePersistence) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, strings.ToLower(id))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted session IDs
func (s *SQLitePersistence) ListAll() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a session row exists
func (s *SQLitePersistence) Exists(id string) bool {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, strings.ToLower(id)).Scan(&n)
	if err != nil {
		s.logger.Warn("session lookup failed", zap.String("session", id), zap.Error(err))
		return false
	}
	return n > 0
}

// SaveSlot upserts a save slot
func (s *SQLitePersistence) SaveSlot(sessionID string, slot int, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO save_slots (session_id, slot, data, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, slot) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		strings.ToLower(sessionID), slot, string(data), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save slot %d: %w", slot, err)
	}
	return nil
}

// LoadSlot reads a save slot
func (s *SQLitePersistence) LoadSlot(sessionID string, slot int) ([]byte, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM save_slots WHERE session_id = ? AND slot = ?`,
		strings.ToLower(sessionID), slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %d: %w", slot, err)
	}
	return []byte(data), nil
}

// DeleteSlots removes every save slot of a session
func (s *SQLitePersistence) DeleteSlots(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM save_slots WHERE session_id = ?`, strings.ToLower(sessionID)); err != nil {
		return fmt.Errorf("failed to delete slots: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
