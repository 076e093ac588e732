package service

import (
	"time"

	"github.com/wricardo/rulegrid/game/engine"
)

const (
	// MaxBulkMoves caps the moves accepted by one bulk request
	MaxBulkMoves = 50

	// SaveSlots is the number of save slots per session, numbered from 1
	SaveSlots = 3
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string              `json:"id"`
	LevelID        string              `json:"level_id"`
	CurrentSlot    int                 `json:"current_slot"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	GameState      *engine.GameState   `json:"game_state"`
	LevelConfig    *engine.LevelConfig `json:"level_config"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool                `json:"success"`
	Direction string              `json:"direction"`
	Moved     []engine.EntityView `json:"moved"`
	Removed   int                 `json:"removed"`
	Win       bool                `json:"win"`
	Rules     []string            `json:"rules"`
	GameState *engine.GameState   `json:"game_state"`
	Message   string              `json:"message"`
	Events    []GameEvent         `json:"events,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // invalid_direction|blocked|win
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`
	Win            bool              `json:"win"`
	Steps          []StepInfo        `json:"steps,omitempty"`
}

// StepInfo is a compact record for each executed move in the bulk call
type StepInfo struct {
	Idx     int    `json:"idx"`
	Dir     string `json:"dir"`
	Moved   int    `json:"moved"`
	Removed int    `json:"removed,omitempty"`
	Success bool   `json:"success"`
	Win     bool   `json:"win,omitempty"`
}

// CommandResult is returned by commands without a richer result
type CommandResult struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Rules     []string          `json:"rules,omitempty"`
	GameState *engine.GameState `json:"game_state"`
}

// PlaceRequest puts a named entity on the grid
type PlaceRequest struct {
	Name        string `json:"name"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Orientation *int   `json:"orientation,omitempty"`
	Side        *int   `json:"side,omitempty"`
}

// RemoveRequest deletes the entity of a category standing on a cell
type RemoveRequest struct {
	Category string `json:"category"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

// EditResult reports the slot touched by an edit
type EditResult struct {
	Handle    engine.Handle     `json:"handle"`
	GameState *engine.GameState `json:"game_state"`
}

// SlotInfo describes one save slot
type SlotInfo struct {
	Slot      int    `json:"slot"`
	Empty     bool   `json:"empty"`
	ID        string `json:"id,omitempty"`
	Level     string `json:"level,omitempty"`
	CreatedAt string `json:"file_date,omitempty"`
	Current   bool   `json:"current"`
}

// LoadResult reports a slot load
type LoadResult struct {
	Slot      int               `json:"slot"`
	Skipped   int               `json:"skipped"`
	GameState *engine.GameState `json:"game_state"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string    `json:"type"` // "move", "blocked", "removed", "win", "undo", "reset", "rescan", "load"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryOptions configures turn history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated turn history
type HistoryResponse struct {
	Turns       []engine.TurnEntry `json:"turns"`
	TotalTurns  int                `json:"total_turns"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	TotalPages  int                `json:"total_pages"`
	HasNext     bool               `json:"has_next"`
	HasPrevious bool               `json:"has_previous"`
}

// LevelInfo provides information about a level file
type LevelInfo struct {
	Filename    string `json:"filename"`
	LevelID     string `json:"level_id"` // The identifier to use for session creation
	Name        string `json:"name"`     // Display name
	Description string `json:"description"`
	Cols        int    `json:"cols"`
	Rows        int    `json:"rows"`
}
