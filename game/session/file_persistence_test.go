package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wricardo/rulegrid/game/engine"
	"github.com/wricardo/rulegrid/game/service"
)

// staticLevels serves the test level as "test" and as the default
type staticLevels struct{}

func (staticLevels) LoadLevel(levelID string) (*engine.LevelConfig, error) {
	if levelID != "test" {
		return nil, errors.New("level not found")
	}
	return createTestConfig(), nil
}

func (staticLevels) ListLevels() ([]*service.LevelInfo, error) {
	return []*service.LevelInfo{{LevelID: "test", Name: "test"}}, nil
}

func (staticLevels) GetDefault() (string, *engine.LevelConfig) {
	return "test", createTestConfig()
}

func (staticLevels) SaveLevel(string, *engine.LevelConfig) error { return nil }

func findEntity(state *engine.GameState, name string) *engine.EntityView {
	for i := range state.Entities {
		if state.Entities[i].Name == name {
			return &state.Entities[i]
		}
	}
	return nil
}

// store is what both persistence backends provide
type store interface {
	SessionPersistence
	service.SlotStore
}

// testPersistence exercises the behavior shared by every backend
func testPersistence(t *testing.T, p store) {
	manager := NewManager()

	t.Run("Save and Load", func(t *testing.T) {
		session, err := manager.Create("Keep", "test", createTestConfig())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		session.Engine.Move(engine.Right)
		session.CurrentSlot = 2

		if err := p.Save(session); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if !p.Exists("keep") {
			t.Error("Expected session to exist after save")
		}

		loaded, err := p.Load("KEEP")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.ID != "Keep" {
			t.Errorf("Expected ID Keep, got %s", loaded.ID)
		}
		if loaded.LevelID != "test" || loaded.CurrentSlot != 2 {
			t.Errorf("Unexpected metadata: level=%s slot=%d", loaded.LevelID, loaded.CurrentSlot)
		}
		if !loaded.CreatedAt.Equal(session.CreatedAt) {
			t.Errorf("Expected created at %v, got %v", session.CreatedAt, loaded.CreatedAt)
		}

		baba := findEntity(loaded.Engine.GetState(), "BABA")
		if baba == nil || baba.X != 1 || baba.Y != 2 {
			t.Errorf("Expected restored BABA at (1,2), got %+v", baba)
		}
		if len(loaded.Engine.GetState().Rules) != 2 {
			t.Errorf("Expected rules rescanned on load, got %v", loaded.Engine.GetState().Rules)
		}
	})

	t.Run("Save overwrites", func(t *testing.T) {
		session, err := manager.Get("keep")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		session.Engine.Move(engine.Right)
		if err := p.Save(session); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := p.Load("keep")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if baba := findEntity(loaded.Engine.GetState(), "BABA"); baba == nil || baba.X != 2 {
			t.Errorf("Expected BABA at x=2 after overwrite, got %+v", baba)
		}
	})

	t.Run("ListAll", func(t *testing.T) {
		other, _ := manager.Create("other", "test", createTestConfig())
		if err := p.Save(other); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if err := p.SaveSlot("other", 1, []byte(`{}`)); err != nil {
			t.Fatalf("SaveSlot failed: %v", err)
		}

		ids, err := p.ListAll()
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(ids) != 2 {
			t.Errorf("Expected 2 sessions, got %v", ids)
		}
	})

	t.Run("Slots", func(t *testing.T) {
		if _, err := p.LoadSlot("keep", 3); !errors.Is(err, service.ErrSlotEmpty) {
			t.Errorf("Expected ErrSlotEmpty, got %v", err)
		}

		if err := p.SaveSlot("keep", 3, []byte(`"first"`)); err != nil {
			t.Fatalf("SaveSlot failed: %v", err)
		}
		if err := p.SaveSlot("KEEP", 3, []byte(`"second"`)); err != nil {
			t.Fatalf("SaveSlot failed: %v", err)
		}
		data, err := p.LoadSlot("keep", 3)
		if err != nil {
			t.Fatalf("LoadSlot failed: %v", err)
		}
		if string(data) != `"second"` {
			t.Errorf("Expected overwritten slot, got %s", data)
		}

		if err := p.DeleteSlots("keep"); err != nil {
			t.Fatalf("DeleteSlots failed: %v", err)
		}
		if _, err := p.LoadSlot("keep", 3); !errors.Is(err, service.ErrSlotEmpty) {
			t.Errorf("Expected ErrSlotEmpty after delete, got %v", err)
		}
		// Other sessions keep their slots
		if _, err := p.LoadSlot("other", 1); err != nil {
			t.Errorf("Expected other session's slot to survive, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := p.Delete("keep"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if p.Exists("keep") {
			t.Error("Expected session gone after delete")
		}
		if _, err := p.Load("keep"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if err := p.Delete("keep"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
		}
	})

	t.Run("Unknown level", func(t *testing.T) {
		session, _ := manager.Create("lost", "missing-level", createTestConfig())
		if err := p.Save(session); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, err := p.Load("lost"); err == nil {
			t.Error("Expected error when the level no longer exists")
		}
	})
}

func TestFilePersistence(t *testing.T) {
	p, err := NewFilePersistence(t.TempDir(), staticLevels{}, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	testPersistence(t, p)
}

func TestFilePersistenceFileStructure(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersistence(dir, staticLevels{}, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	session, err := NewManager().Create("Disk", "test", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err := p.Save(session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := p.SaveSlot("Disk", 1, []byte(`{}`)); err != nil {
		t.Fatalf("SaveSlot failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "disk.json"))
	if err != nil {
		t.Fatalf("Expected disk.json: %v", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("Session file is not valid JSON: %v", err)
	}
	if data.ID != "Disk" || data.LevelID != "test" {
		t.Errorf("Unexpected persisted data: %+v", data)
	}

	record, err := engine.DecodeRecord(data.World)
	if err != nil {
		t.Fatalf("World is not a save record: %v", err)
	}
	if record.Level != "test" {
		t.Errorf("Expected record for level test, got %s", record.Level)
	}

	if _, err := os.Stat(filepath.Join(dir, "slots", "disk", "slot1.json")); err != nil {
		t.Errorf("Expected slot file: %v", err)
	}
}
