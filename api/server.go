package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/rulegrid/game/config"
	"github.com/wricardo/rulegrid/game/engine"
	"github.com/wricardo/rulegrid/game/service"
	"github.com/wricardo/rulegrid/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server. hub may be nil, in which case no
// updates are broadcast.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/bulk-move", s.handleBulkMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/undo", s.handleUndo).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/rescan", s.handleRescan).Methods("POST")
	api.HandleFunc("/sessions/{id}/clear-history", s.handleClearHistory).Methods("POST")
	api.HandleFunc("/sessions/{id}/win", s.handleConsumeWin).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Editing
	api.HandleFunc("/sessions/{id}/place", s.handlePlace).Methods("POST")
	api.HandleFunc("/sessions/{id}/remove", s.handleRemove).Methods("POST")

	// Save slots
	api.HandleFunc("/sessions/{id}/slots", s.handleListSlots).Methods("GET")
	api.HandleFunc("/sessions/{id}/slots/{slot}", s.handleSaveSlot).Methods("PUT")
	api.HandleFunc("/sessions/{id}/slots/{slot}", s.handleLoadSlot).Methods("POST")
	api.HandleFunc("/sessions/{id}/reload", s.handleReload).Methods("POST")

	// Levels
	api.HandleFunc("/levels", s.handleListLevels).Methods("GET")
	api.HandleFunc("/levels", s.handleCreateLevel).Methods("POST")
	api.HandleFunc("/levels/{name}", s.handleGetLevel).Methods("GET")

	// WebSocket
	api.HandleFunc("/sessions/{id}/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

// statusFor maps service errors to HTTP status codes. fallback is used for
// errors the service does not classify.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrLevelNotFound),
		errors.Is(err, service.ErrSlotEmpty):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidDirection),
		errors.Is(err, service.ErrInvalidSlot),
		errors.Is(err, config.ErrInvalidLevel),
		errors.Is(err, engine.ErrUnknownEntity),
		errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, engine.ErrSlotNotFound),
		errors.Is(err, engine.ErrWorldFull):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidSnapshot):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNoSlotStore):
		return http.StatusNotImplemented
	}
	return fallback
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	respondError(w, status, err.Error())
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) broadcast(sessionID string, state *engine.GameState) {
	if s.hub == nil || state == nil {
		return
	}
	s.hub.BroadcastToSession(sessionID, state)
	if state.Win {
		s.hub.BroadcastEvent(sessionID, "win", map[string]interface{}{
			"level": state.Level,
			"turns": state.TotalTurns,
		})
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LevelID string `json:"level_id,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.LevelID)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	s.logger.Info("session created", zap.String("session", session.ID), zap.String("level", session.LevelID))
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return
	level := query.Get("level")

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	if level != "" {
		filtered := sessions[:0]
		for _, session := range sessions {
			if session.LevelID == level {
				filtered = append(filtered, session)
			}
		}
		sessions = filtered
	}
	total := len(sessions)

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, "session_deleted", nil)
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Direction string `json:"direction"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Move(r.Context(), sessionID, req.Direction)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	s.broadcast(sessionID, result.GameState)
	s.logger.Debug("move",
		zap.String("session", sessionID),
		zap.String("dir", result.Direction),
		zap.Int("moved", len(result.Moved)),
		zap.Int("removed", result.Removed),
		zap.Bool("win", result.Win))

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Moves []string `json:"moves"`
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Moves) == 0 {
		respondError(w, http.StatusBadRequest, "moves must not be empty")
		return
	}

	result, err := s.service.BulkMove(r.Context(), sessionID, req.Moves)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	s.broadcast(sessionID, result.GameState)
	s.logger.Debug("bulk move",
		zap.String("session", sessionID),
		zap.Int("executed", result.MovesExecuted),
		zap.Int("requested", result.RequestedMoves),
		zap.String("stop", result.StopReasonCode))

	respondJSON(w, http.StatusOK, result)
}

// handleCommand runs a session command that returns a CommandResult
func (s *Server) handleCommand(run func(r *http.Request, sessionID string) (*service.CommandResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := mux.Vars(r)["id"]

		result, err := run(r, sessionID)
		if err != nil {
			s.fail(w, r, err, http.StatusInternalServerError)
			return
		}

		s.broadcast(sessionID, result.GameState)
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.handleCommand(func(r *http.Request, id string) (*service.CommandResult, error) {
		return s.service.Undo(r.Context(), id)
	})(w, r)
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	s.handleCommand(func(r *http.Request, id string) (*service.CommandResult, error) {
		return s.service.Rescan(r.Context(), id)
	})(w, r)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.handleCommand(func(r *http.Request, id string) (*service.CommandResult, error) {
		return s.service.ClearHistory(r.Context(), id)
	})(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	s.broadcast(sessionID, state)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Level reset",
		"state":   state,
	})
}

func (s *Server) handleConsumeWin(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	won, err := s.service.ConsumeWin(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"win": won})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), sessionID, opts)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Editing Handlers

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.PlaceRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	result, err := s.service.Place(r.Context(), sessionID, req)
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}

	s.broadcast(sessionID, result.GameState)
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.RemoveRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Remove(r.Context(), sessionID, req)
	if err != nil {
		// Unknown categories come back unclassified
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}

	s.broadcast(sessionID, result.GameState)
	respondJSON(w, http.StatusOK, result)
}

// Save Slot Handlers

func slotVar(r *http.Request) (int, error) {
	slot, err := strconv.Atoi(mux.Vars(r)["slot"])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", service.ErrInvalidSlot, mux.Vars(r)["slot"])
	}
	return slot, nil
}

func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	slots, err := s.service.ListSlots(r.Context(), sessionID)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"slots":      slots,
	})
}

func (s *Server) handleSaveSlot(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	slot, err := slotVar(r)
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}

	info, err := s.service.SaveSlot(r.Context(), sessionID, slot)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, "saved", info)
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) respondLoad(w http.ResponseWriter, r *http.Request, sessionID string, result *service.LoadResult, err error) {
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}
	if result.Skipped > 0 {
		s.logger.Warn("slot loaded with skipped entities",
			zap.String("session", sessionID),
			zap.Int("slot", result.Slot),
			zap.Int("skipped", result.Skipped))
	}
	s.broadcast(sessionID, result.GameState)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleLoadSlot(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	slot, err := slotVar(r)
	if err != nil {
		s.fail(w, r, err, http.StatusBadRequest)
		return
	}

	result, err := s.service.LoadSlot(r.Context(), sessionID, slot)
	s.respondLoad(w, r, sessionID, result, err)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Reload(r.Context(), sessionID)
	s.respondLoad(w, r, sessionID, result, err)
}

// Level Handlers

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.service.ListLevels(r.Context())
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, levels)
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	// Accept file names as well as IDs
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		name = strings.TrimSuffix(name, ext)
	}

	level, err := s.service.LoadLevel(r.Context(), name)
	if err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, level)
}

func (s *Server) handleCreateLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LevelID string `json:"level_id"`
		engine.LevelConfig
	}
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	levelID := req.LevelID
	if levelID == "" {
		levelID = req.Name
	}
	if levelID == "" {
		respondError(w, http.StatusBadRequest, "level_id or name is required")
		return
	}

	if err := s.service.SaveLevel(r.Context(), levelID, &req.LevelConfig); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	s.logger.Info("level saved", zap.String("level", levelID))
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Level saved",
		"level_id": levelID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	if s.hub == nil {
		respondError(w, http.StatusNotImplemented, "live updates are disabled")
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err, http.StatusInternalServerError)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
