package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/rulegrid/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	levels   LevelManager
	slots    SlotStore
	logger   *zap.Logger
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithSlotStore enables save slots
func WithSlotStore(store SlotStore) Option {
	return func(s *gameServiceImpl) { s.slots = store }
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.LevelID,
		CurrentSlot:    sess.CurrentSlot,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		LevelConfig:    sess.Config,
	}
}

// session looks up a session and marks it accessed
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSessionNotFound, sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// persist auto-saves a session; failures are logged, not returned
func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn("failed to persist session",
			zap.String("session", sessionID),
			zap.String("after", after),
			zap.Error(err))
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.LevelConfig
	if levelID != "" {
		var err error
		config, err = s.levels.LoadLevel(levelID)
		if err != nil {
			return nil, s.levelError(levelID, err)
		}
	} else {
		levelID, config = s.levels.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", levelID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", zap.String("session", sess.ID), zap.String("level", levelID))
	return s.sessionInfo(sess), nil
}

// levelError lists the available levels when the requested one is missing
func (s *gameServiceImpl) levelError(levelID string, err error) error {
	available, listErr := s.levels.ListLevels()
	if listErr == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, l := range available {
			ids = append(ids, l.LevelID)
		}
		return fmt.Errorf("%w: '%s': %w. Available levels: %v", ErrLevelNotFound, levelID, err, ids)
	}
	return fmt.Errorf("%w: '%s': %w. Use /api/levels to list available levels", ErrLevelNotFound, levelID, err)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session and its save slots
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessions.Get(sessionID); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSessionNotFound, sessionID, err)
	}
	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	if s.slots != nil {
		if err := s.slots.DeleteSlots(sessionID); err != nil {
			s.logger.Warn("failed to delete save slots", zap.String("session", sessionID), zap.Error(err))
		}
	}
	return nil
}

// Move plays one turn for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	outcome := sess.Engine.Move(d)
	state := sess.Engine.GetState()

	result := &MoveResult{
		Success:   len(outcome.Moved) > 0,
		Direction: d.String(),
		Moved:     movedViews(sess.Engine.World(), outcome.Moved),
		Removed:   outcome.Removed,
		Win:       outcome.Win,
		Rules:     state.Rules,
		GameState: state,
		Message:   state.Message,
		Events:    moveEvents(d, outcome),
	}

	s.persist(sessionID, "move")
	return result, nil
}

// movedViews describes the entities of a move-set that still exist
func movedViews(w *engine.World, handles []engine.Handle) []engine.EntityView {
	views := []engine.EntityView{}
	for _, h := range handles {
		if e := w.Get(h); e != nil {
			views = append(views, engine.ViewOf(h, e, w.TileSize))
		}
	}
	return views
}

func moveEvents(d engine.Direction, outcome engine.MoveOutcome) []GameEvent {
	now := time.Now()
	if len(outcome.Moved) == 0 {
		return []GameEvent{{Type: "blocked", Message: fmt.Sprintf("Nothing can move %s", d), Timestamp: now}}
	}

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Moved %d entities %s", len(outcome.Moved), d),
		Timestamp: now,
	}}
	if outcome.Removed > 0 {
		events = append(events, GameEvent{
			Type:      "removed",
			Message:   fmt.Sprintf("%d entities destroyed", outcome.Removed),
			Timestamp: now,
		})
	}
	if outcome.Win {
		events = append(events, GameEvent{Type: "win", Message: "Level won", Timestamp: now})
	}
	return events
}

// BulkMove plays several turns in sequence, stopping at the first blocked
// move or a win
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	// Limit moves to prevent abuse
	if len(moves) > MaxBulkMoves {
		result.Truncated = true
		result.Limit = MaxBulkMoves
		moves = moves[:MaxBulkMoves]
	}

	for i, move := range moves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d, err := engine.ParseDirection(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d: %v", i+1, err)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		outcome := sess.Engine.Move(d)
		result.Events = append(result.Events, moveEvents(d, outcome)...)
		step := StepInfo{
			Idx:     i + 1,
			Dir:     d.String(),
			Moved:   len(outcome.Moved),
			Removed: outcome.Removed,
			Success: len(outcome.Moved) > 0,
			Win:     outcome.Win,
		}
		result.Steps = append(result.Steps, step)

		if !step.Success {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d blocked: %s", i+1, d)
			result.StopReasonCode = "blocked"
			result.StoppedOnMove = i + 1
			break
		}
		result.MovesExecuted++

		if outcome.Win {
			result.StoppedReason = "level won"
			result.StopReasonCode = "win"
			result.StoppedOnMove = i + 1
			break
		}
	}

	result.GameState = sess.Engine.GetState()
	result.Win = result.GameState.Win

	s.persist(sessionID, "bulk move")
	return result, nil
}

// Undo reverts the last turn
func (s *gameServiceImpl) Undo(ctx context.Context, sessionID string) (*CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	ok := sess.Engine.Undo()
	state := sess.Engine.GetState()

	s.persist(sessionID, "undo")
	return &CommandResult{Success: ok, Message: state.Message, Rules: state.Rules, GameState: state}, nil
}

// Reset resets a game session to the level's starting layout
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.Engine.Reset(); err != nil {
		return nil, err
	}

	s.persist(sessionID, "reset")
	return sess.Engine.GetState(), nil
}

// Rescan forces a rule scan
func (s *gameServiceImpl) Rescan(ctx context.Context, sessionID string) (*CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	rules := sess.Engine.Rescan()
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.String())
	}
	state := sess.Engine.GetState()

	s.persist(sessionID, "rescan")
	return &CommandResult{Success: true, Message: state.Message, Rules: names, GameState: state}, nil
}

// ClearHistory drops the session's undo history
func (s *gameServiceImpl) ClearHistory(ctx context.Context, sessionID string) (*CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.ClearHistory()
	state := sess.Engine.GetState()
	return &CommandResult{Success: true, Message: state.Message, GameState: state}, nil
}

// ConsumeWin reads and clears the win flag
func (s *gameServiceImpl) ConsumeWin(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return false, err
	}

	won := sess.Engine.ConsumeWin()
	s.persist(sessionID, "consume win")
	return won, nil
}

// Place puts an entity on the grid and rescans
func (s *gameServiceImpl) Place(ctx context.Context, sessionID string, req PlaceRequest) (*EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	orientation, side := -1, -1
	if req.Orientation != nil {
		orientation = *req.Orientation
	}
	if req.Side != nil {
		side = *req.Side
	}

	h, err := sess.Engine.Place(req.Name, engine.Position{X: req.X, Y: req.Y}, orientation, side)
	if err != nil {
		return nil, err
	}
	sess.Engine.Settle()

	s.persist(sessionID, "place")
	return &EditResult{Handle: h, GameState: sess.Engine.GetState()}, nil
}

// Remove deletes an entity from the grid and rescans
func (s *gameServiceImpl) Remove(ctx context.Context, sessionID string, req RemoveRequest) (*EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := engine.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	h, err := sess.Engine.Remove(c, engine.Position{X: req.X, Y: req.Y})
	if err != nil {
		return nil, err
	}
	sess.Engine.Settle()

	s.persist(sessionID, "remove")
	return &EditResult{Handle: h, GameState: sess.Engine.GetState()}, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetHistory returns paginated turn history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSessionNotFound, sessionID, err)
	}

	history := sess.Engine.GetState().History
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var turns []engine.TurnEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			turns = append(turns, history[i])
		}
	} else if start < total {
		turns = history[start:end]
	}
	if turns == nil {
		turns = []engine.TurnEntry{}
	}

	return &HistoryResponse{
		Turns:       turns,
		TotalTurns:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

func checkSlot(slot int) error {
	if slot < 1 || slot > SaveSlots {
		return fmt.Errorf("%w: %d (slots are 1..%d)", ErrInvalidSlot, slot, SaveSlots)
	}
	return nil
}

// SaveSlot writes the session's world into a save slot
func (s *gameServiceImpl) SaveSlot(ctx context.Context, sessionID string, slot int) (*SlotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots == nil {
		return nil, ErrNoSlotStore
	}
	if err := checkSlot(slot); err != nil {
		return nil, err
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := sess.Engine.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to encode world: %w", err)
	}
	if err := s.slots.SaveSlot(sess.ID, slot, data); err != nil {
		return nil, fmt.Errorf("failed to write slot %d: %w", slot, err)
	}
	sess.CurrentSlot = slot

	record, err := engine.DecodeRecord(data)
	if err != nil {
		return nil, err
	}

	s.logger.Info("slot saved", zap.String("session", sess.ID), zap.Int("slot", slot))
	s.persist(sessionID, "save slot")
	return &SlotInfo{
		Slot:      slot,
		ID:        record.ID,
		Level:     record.Level,
		CreatedAt: record.CreatedAt,
		Current:   true,
	}, nil
}

// LoadSlot replaces the session's world with a save slot. History is cleared
// and rules are rescanned. A slot that fails to decode leaves the world as
// it was.
func (s *gameServiceImpl) LoadSlot(ctx context.Context, sessionID string, slot int) (*LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadSlot(sessionID, slot)
}

// Reload restores the session's current slot, as a manual reload does
func (s *gameServiceImpl) Reload(ctx context.Context, sessionID string) (*LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CurrentSlot == 0 {
		return nil, fmt.Errorf("%w: session %s has not saved yet", ErrSlotEmpty, sess.ID)
	}
	return s.loadSlot(sessionID, sess.CurrentSlot)
}

func (s *gameServiceImpl) loadSlot(sessionID string, slot int) (*LoadResult, error) {
	if s.slots == nil {
		return nil, ErrNoSlotStore
	}
	if err := checkSlot(slot); err != nil {
		return nil, err
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := s.slots.LoadSlot(sess.ID, slot)
	if err != nil {
		return nil, err
	}

	skipped, err := sess.Engine.Restore(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %d: %w", slot, err)
	}
	sess.CurrentSlot = slot

	s.logger.Info("slot loaded",
		zap.String("session", sess.ID),
		zap.Int("slot", slot),
		zap.Int("skipped", skipped))
	s.persist(sessionID, "load slot")
	return &LoadResult{Slot: slot, Skipped: skipped, GameState: sess.Engine.GetState()}, nil
}

// ListSlots describes every save slot of a session
func (s *gameServiceImpl) ListSlots(ctx context.Context, sessionID string) ([]*SlotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.slots == nil {
		return nil, ErrNoSlotStore
	}

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	infos := make([]*SlotInfo, 0, SaveSlots)
	for slot := 1; slot <= SaveSlots; slot++ {
		info := &SlotInfo{Slot: slot, Current: slot == sess.CurrentSlot}
		data, err := s.slots.LoadSlot(sess.ID, slot)
		switch {
		case errors.Is(err, ErrSlotEmpty):
			info.Empty = true
		case err != nil:
			return nil, fmt.Errorf("failed to read slot %d: %w", slot, err)
		default:
			record, err := engine.DecodeRecord(data)
			if err != nil {
				return nil, fmt.Errorf("slot %d: %w", slot, err)
			}
			info.ID = record.ID
			info.Level = record.Level
			info.CreatedAt = record.CreatedAt
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ListLevels returns available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels()
}

// LoadLevel loads a specific level
func (s *gameServiceImpl) LoadLevel(ctx context.Context, levelID string) (*engine.LevelConfig, error) {
	config, err := s.levels.LoadLevel(levelID)
	if err != nil {
		return nil, s.levelError(levelID, err)
	}
	return config, nil
}

// SaveLevel writes a level to disk
func (s *gameServiceImpl) SaveLevel(ctx context.Context, levelID string, config *engine.LevelConfig) error {
	return s.levels.SaveLevel(levelID, config)
}
