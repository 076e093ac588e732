package session

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/rulegrid/game/engine"
	"github.com/wricardo/rulegrid/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// World is an engine save record of the settled world.
type PersistedSessionData struct {
	ID             string          `json:"id"`
	LevelID        string          `json:"level_id"`
	CurrentSlot    int             `json:"current_slot"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	World          json.RawMessage `json:"world"`
}

// persistedData captures a session for storage
func persistedData(session *service.Session) (*PersistedSessionData, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}

	world, err := session.Engine.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot world: %w", err)
	}

	return &PersistedSessionData{
		ID:             session.ID,
		LevelID:        session.LevelID,
		CurrentSlot:    session.CurrentSlot,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		World:          world,
	}, nil
}

// restore rebuilds a session from stored data. The level is loaded by ID;
// the stored world then replaces the level's starting layout.
func restore(data *PersistedSessionData, levels service.LevelManager, logger *zap.Logger) (*service.Session, error) {
	config, err := levels.LoadLevel(data.LevelID)
	if err != nil {
		defaultID, defaultLevel := levels.GetDefault()
		if data.LevelID != defaultID {
			return nil, fmt.Errorf("failed to load level '%s': %w", data.LevelID, err)
		}
		config = defaultLevel
	}

	eng, err := engine.NewEngine(config, engine.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}

	if len(data.World) > 0 {
		if _, err := eng.Restore(data.World); err != nil {
			return nil, fmt.Errorf("failed to restore world: %w", err)
		}
	}

	return &service.Session{
		ID:             data.ID,
		LevelID:        data.LevelID,
		Engine:         eng,
		Config:         config,
		CurrentSlot:    data.CurrentSlot,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}
