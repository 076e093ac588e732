// Package session provides session management for the puzzle server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management
//   - Persistence to JSON files or a SQLite database
//   - Save slot storage for both backends
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// FilePersistence and SQLitePersistence implement SessionPersistence and
// service.SlotStore; either can back a Manager and a GameService at once.
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters from crypto/rand. Caller-chosen IDs
// may use letters, digits, '-' and '_'. Lookups are case-insensitive.
//
// Persistence:
//
// A persisted session stores its level ID and an engine save record of the
// settled world. Loading resolves the level through a service.LevelManager,
// builds a fresh engine and restores the record into it, so undo history
// does not survive a restart.
//
// Usage:
//
//	store, err := session.NewFilePersistence("sessions", levels, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManager(
//		session.WithPersistence(store),
//		session.WithLogger(logger))
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	id, level := levels.GetDefault()
//	sess, err := manager.Create("", id, level)
//
// Cleanup:
//
// CleanupExpiredSessions evicts idle sessions from memory; their persisted
// copies load again on the next Get.
package session
