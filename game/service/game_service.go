package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/rulegrid/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLevelNotFound   = errors.New("level not found")
	ErrSlotEmpty       = errors.New("save slot is empty")
	ErrInvalidSlot     = errors.New("invalid save slot")
	ErrNoSlotStore     = errors.New("save slots are not configured")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error)
	Undo(ctx context.Context, sessionID string) (*CommandResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)
	Rescan(ctx context.Context, sessionID string) (*CommandResult, error)
	ClearHistory(ctx context.Context, sessionID string) (*CommandResult, error)
	ConsumeWin(ctx context.Context, sessionID string) (bool, error)

	// Level editing
	Place(ctx context.Context, sessionID string, req PlaceRequest) (*EditResult, error)
	Remove(ctx context.Context, sessionID string, req RemoveRequest) (*EditResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Save slots
	SaveSlot(ctx context.Context, sessionID string, slot int) (*SlotInfo, error)
	LoadSlot(ctx context.Context, sessionID string, slot int) (*LoadResult, error)
	Reload(ctx context.Context, sessionID string) (*LoadResult, error)
	ListSlots(ctx context.Context, sessionID string) ([]*SlotInfo, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	LoadLevel(ctx context.Context, levelID string) (*engine.LevelConfig, error)
	SaveLevel(ctx context.Context, levelID string, config *engine.LevelConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, levelID string, config *engine.LevelConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, levelID string, config *engine.LevelConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// LevelManager handles level loading
type LevelManager interface {
	LoadLevel(levelID string) (*engine.LevelConfig, error)
	ListLevels() ([]*LevelInfo, error)
	GetDefault() (string, *engine.LevelConfig)
	SaveLevel(levelID string, config *engine.LevelConfig) error
}

// SlotStore keeps the numbered save slots of each session. Data is an
// encoded engine save record.
type SlotStore interface {
	SaveSlot(sessionID string, slot int, data []byte) error
	LoadSlot(sessionID string, slot int) ([]byte, error)
	DeleteSlots(sessionID string) error
}

// Session represents an active game session
type Session struct {
	ID             string
	LevelID        string
	Engine         *engine.GameEngine
	Config         *engine.LevelConfig
	CurrentSlot    int
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
