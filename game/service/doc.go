// Package service provides the business logic layer for the rule-rewriting
// puzzle server.
//
// The service package implements:
//   - Multi-session game management
//   - Level loading, listing and saving
//   - Turn processing, bulk moves and undo
//   - Save slots with reload of the current slot
//   - Turn history with pagination
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LevelManager loads, lists and writes level files.
// SlotStore keeps the numbered save slots of each session.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine, providing session isolation, level management, and
// business logic orchestration. Each session owns its own engine instance;
// the service serializes access to them with a single RWMutex, so engines
// never see concurrent calls.
//
// Usage:
//
//	levelMgr, _ := config.NewManager("configs")
//	store, _ := session.NewFilePersistence("sessions", levelMgr, logger)
//	sessionMgr := session.NewManager(session.WithPersistence(store))
//	gameService := service.NewGameService(sessionMgr, levelMgr,
//		service.WithSlotStore(store),
//		service.WithLogger(logger))
//
//	// Create a new session
//	info, err := gameService.CreateSession(ctx, "intro")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Play a turn
//	result, err := gameService.Move(ctx, info.ID, "right")
//
// Save Slots:
//
// A session has SaveSlots numbered slots. Saving records the slot as the
// session's current slot, and Reload restores it. A slot that fails to
// decode leaves the running world untouched; slots naming entities the
// catalog cannot create are skipped and counted in LoadResult.Skipped.
package service
