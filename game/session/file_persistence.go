package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wricardo/rulegrid/game/service"
)

// FilePersistence implements SessionPersistence and service.SlotStore using
// file system storage. Sessions live in <dir>/<id>.json and save slots in
// <dir>/slots/<id>/slot<N>.json.
type FilePersistence struct {
	sessionsDir string
	levels      service.LevelManager
	logger      *zap.Logger
}

// NewFilePersistence creates a new file-based session persistence layer
func NewFilePersistence(sessionsDir string, levels service.LevelManager, logger *zap.Logger) (*FilePersistence, error) {
	// Create sessions directory if it doesn't exist
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FilePersistence{
		sessionsDir: sessionsDir,
		levels:      levels,
		logger:      logger,
	}, nil
}

// Save persists a session to a JSON file
func (fp *FilePersistence) Save(session *service.Session) error {
	data, err := persistedData(session)
	if err != nil {
		return err
	}

	// Marshal to JSON with indentation for readability
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	if err := os.WriteFile(fp.getFilePath(session.ID), jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load retrieves a session from a JSON file
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	jsonData, err := os.ReadFile(fp.getFilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	return restore(&data, fp.levels, fp.logger)
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// ListAll returns all persisted session IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			sessionIDs = append(sessionIDs, strings.TrimSuffix(name, ".json"))
		}
	}

	return sessionIDs, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

// SaveSlot writes an encoded world into a session's save slot
func (fp *FilePersistence) SaveSlot(sessionID string, slot int, data []byte) error {
	dir := fp.slotDir(sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create slot directory: %w", err)
	}

	// Slots are replaced atomically
	path := fp.slotPath(sessionID, slot)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write slot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write slot file: %w", err)
	}
	return nil
}

// LoadSlot reads a session's save slot
func (fp *FilePersistence) LoadSlot(sessionID string, slot int) ([]byte, error) {
	data, err := os.ReadFile(fp.slotPath(sessionID, slot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, service.ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot file: %w", err)
	}
	return data, nil
}

// DeleteSlots removes every save slot of a session
func (fp *FilePersistence) DeleteSlots(sessionID string) error {
	if err := os.RemoveAll(fp.slotDir(sessionID)); err != nil {
		return fmt.Errorf("failed to remove slot directory: %w", err)
	}
	return nil
}

// getFilePath returns the full file path for a session ID
func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", strings.ToLower(id)))
}

func (fp *FilePersistence) slotDir(sessionID string) string {
	return filepath.Join(fp.sessionsDir, "slots", strings.ToLower(sessionID))
}

func (fp *FilePersistence) slotPath(sessionID string, slot int) string {
	return filepath.Join(fp.slotDir(sessionID), fmt.Sprintf("slot%d.json", slot))
}
