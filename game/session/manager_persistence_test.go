package session

import (
	"testing"

	"github.com/wricardo/rulegrid/game/config"
	"github.com/wricardo/rulegrid/game/engine"
)

func TestManagerWithPersistence(t *testing.T) {
	// Empty level directory: the manager serves the built-in level
	levels, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create level manager: %v", err)
	}
	levelID, level := levels.GetDefault()

	persistence, err := NewFilePersistence(t.TempDir(), levels, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	manager := NewManager(WithPersistence(persistence))

	t.Run("Create Session Auto-Saves", func(t *testing.T) {
		session, err := manager.Create("auto1", levelID, level)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if !persistence.Exists(session.ID) {
			t.Error("Session should be auto-saved on creation")
		}

		loaded, err := persistence.Load(session.ID)
		if err != nil {
			t.Fatalf("Failed to load auto-saved session: %v", err)
		}
		if loaded.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loaded.ID)
		}
	})

	t.Run("Get Session Loads from Persistence", func(t *testing.T) {
		// New manager with nothing in memory
		manager2 := NewManager(WithPersistence(persistence))

		session, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session from persistence: %v", err)
		}
		if session.ID != "auto1" {
			t.Errorf("Expected ID auto1, got %s", session.ID)
		}

		again, err := manager2.Get("AUTO1")
		if err != nil {
			t.Fatalf("Failed to get session from memory: %v", err)
		}
		if again != session {
			t.Error("Session should be cached in memory after loading from persistence")
		}
	})

	t.Run("Save Method Persists Changes", func(t *testing.T) {
		session, err := manager.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}

		before := session.Engine.GetState().Board
		if outcome := session.Engine.Move(engine.Right); len(outcome.Moved) == 0 {
			t.Fatal("Expected BABA to move right on the built-in level")
		}

		if err := manager.Save("auto1"); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		manager3 := NewManager(WithPersistence(persistence))
		loaded, err := manager3.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to load session after manual save: %v", err)
		}

		after := loaded.Engine.GetState().Board
		if len(after) != len(before) {
			t.Fatalf("Board size changed: %d vs %d rows", len(before), len(after))
		}
		same := true
		for i := range before {
			if before[i] != after[i] {
				same = false
			}
		}
		if same {
			t.Error("Moved world should be persisted")
		}
	})

	t.Run("Delete Removes from Persistence", func(t *testing.T) {
		session, err := manager.Create("delete_test", levelID, level)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if !persistence.Exists(session.ID) {
			t.Error("Session should exist in persistence")
		}

		if err := manager.Delete(session.ID); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists(session.ID) {
			t.Error("Session should be removed from persistence on delete")
		}
		if _, err := manager.Get(session.ID); err == nil {
			t.Error("Should not be able to get deleted session")
		}
	})

	t.Run("Load Persisted Sessions on Startup", func(t *testing.T) {
		ids := []string{"startup1", "startup2", "startup3"}
		for _, id := range ids {
			if _, err := manager.Create(id, levelID, level); err != nil {
				t.Fatalf("Failed to create session %s: %v", id, err)
			}
		}

		// Simulates a server restart
		manager4 := NewManager(WithPersistence(persistence))
		if err := manager4.LoadPersistedSessions(); err != nil {
			t.Fatalf("Failed to load persisted sessions: %v", err)
		}

		for _, id := range ids {
			session, err := manager4.Get(id)
			if err != nil {
				t.Errorf("Failed to get session %s after loading persisted sessions: %v", id, err)
				continue
			}
			if session.ID != id {
				t.Errorf("Expected ID %s, got %s", id, session.ID)
			}
		}
		if manager4.Count() != 4 {
			t.Errorf("Expected 4 sessions loaded, got %d", manager4.Count())
		}
	})

	t.Run("SaveAllSessions", func(t *testing.T) {
		if err := manager.SaveAllSessions(); err != nil {
			t.Fatalf("SaveAllSessions failed: %v", err)
		}
		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(ids) != 4 {
			t.Errorf("Expected 4 persisted sessions, got %v", ids)
		}
	})
}
