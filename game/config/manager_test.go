package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/wricardo/rulegrid/game/engine"
)

func createTestLevelDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func createValidLevel() *engine.LevelConfig {
	return &engine.LevelConfig{
		Name:        "Test Level",
		Description: "Test level",
		Cols:        5,
		Rows:        3,
		Layout: []string{
			"bIY..",
			"fIW..",
			"B.F..",
		},
		Legend: map[string]string{
			"b": "WORD_BABA",
			"f": "WORD_FLAG",
			"I": engine.IsToken,
			"Y": "YOU",
			"W": "WIN",
			"B": "BABA",
			"F": "FLAG",
		},
	}
}

func writeLevelFile(t *testing.T, dir, name string, config *engine.LevelConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal level: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write level file: %v", err)
	}
}

const yamlLevel = `name: Yaml Level
description: Level written in YAML
cols: 4
rows: 2
layout:
  - "bIY."
  - "B..."
legend:
  b: WORD_BABA
  I: IS
  Y: YOU
  B: BABA
`

// count returns the number of cached levels
func (m *Manager) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.levels)
}

func TestNewManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "nope"))
		if err == nil {
			t.Error("Expected error for missing directory")
		}
	})

	t.Run("empty directory uses built-in level", func(t *testing.T) {
		manager, err := NewManager(createTestLevelDir(t))
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		id, level := manager.GetDefault()
		if id != "default" {
			t.Errorf("Expected default id, got %s", id)
		}
		if level == nil || level.Name != engine.DefaultLevel().Name {
			t.Errorf("Expected built-in level, got %+v", level)
		}
	})

	t.Run("prefers intro", func(t *testing.T) {
		dir := createTestLevelDir(t)
		first := createValidLevel()
		first.Name = "Alpha"
		writeLevelFile(t, dir, "alpha", first)
		intro := createValidLevel()
		intro.Name = "Intro"
		writeLevelFile(t, dir, PreferredDefault, intro)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		id, level := manager.GetDefault()
		if id != PreferredDefault || level.Name != "Intro" {
			t.Errorf("Expected intro default, got %s (%s)", id, level.Name)
		}
	})

	t.Run("falls back to first level", func(t *testing.T) {
		dir := createTestLevelDir(t)
		writeLevelFile(t, dir, "beta", createValidLevel())
		writeLevelFile(t, dir, "alpha", createValidLevel())

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if id, _ := manager.GetDefault(); id != "alpha" {
			t.Errorf("Expected alpha default, got %s", id)
		}
	})
}

func TestManager_LoadLevel(t *testing.T) {
	dir := createTestLevelDir(t)
	writeLevelFile(t, dir, "valid", createValidLevel())
	if err := os.WriteFile(filepath.Join(dir, "yamlish.yaml"), []byte(yamlLevel), 0644); err != nil {
		t.Fatalf("Failed to write yaml level: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write broken level: %v", err)
	}
	invalid := createValidLevel()
	invalid.Cols = 7
	writeLevelFile(t, dir, "invalid", invalid)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		name    string
		levelID string
		wantErr error
		want    string
	}{
		{"json by id", "valid", nil, "Test Level"},
		{"json with extension", "valid.json", nil, "Test Level"},
		{"yaml by id", "yamlish", nil, "Yaml Level"},
		{"missing", "missing", ErrLevelNotFound, ""},
		{"unparseable", "broken", ErrInvalidLevel, ""},
		{"fails validation", "invalid", ErrInvalidLevel, ""},
		{"path traversal", "../valid", ErrInvalidLevel, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := manager.LoadLevel(tt.levelID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadLevel failed: %v", err)
			}
			if level.Name != tt.want {
				t.Errorf("Expected level %q, got %q", tt.want, level.Name)
			}
		})
	}
}

func TestManager_ListLevels(t *testing.T) {
	dir := createTestLevelDir(t)
	writeLevelFile(t, dir, "one", createValidLevel())
	if err := os.WriteFile(filepath.Join(dir, "two.yml"), []byte(yamlLevel), 0644); err != nil {
		t.Fatalf("Failed to write yaml level: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a level"), 0644); err != nil {
		t.Fatalf("Failed to write notes: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("[]"), 0644); err != nil {
		t.Fatalf("Failed to write bad level: %v", err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	levels, err := manager.ListLevels()
	if err != nil {
		t.Fatalf("ListLevels failed: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("Expected 2 levels, got %d", len(levels))
	}
	if levels[0].LevelID != "one" || levels[0].Filename != "one.json" {
		t.Errorf("Unexpected first level: %+v", levels[0])
	}
	if levels[1].LevelID != "two" || levels[1].Cols != 4 || levels[1].Rows != 2 {
		t.Errorf("Unexpected second level: %+v", levels[1])
	}
}

func TestManager_SaveLevel(t *testing.T) {
	dir := createTestLevelDir(t)
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	level := createValidLevel()
	level.Name = "Saved"
	if err := manager.SaveLevel("saved", level); err != nil {
		t.Fatalf("SaveLevel failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Errorf("Expected saved.json on disk: %v", err)
	}

	// A fresh manager reads it back from disk
	other, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	got, err := other.LoadLevel("saved")
	if err != nil {
		t.Fatalf("LoadLevel failed: %v", err)
	}
	if got.Name != "Saved" {
		t.Errorf("Expected Saved, got %s", got.Name)
	}

	invalid := createValidLevel()
	invalid.Layout = nil
	if err := manager.SaveLevel("empty", invalid); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel, got %v", err)
	}
	if err := manager.SaveLevel("a/b", level); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel for bad id, got %v", err)
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := createTestLevelDir(t)
	writeLevelFile(t, dir, "gone", createValidLevel())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if _, err := manager.LoadLevel("gone"); err != nil {
		t.Fatalf("LoadLevel failed: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "gone.json")); err != nil {
		t.Fatalf("Failed to remove level: %v", err)
	}

	// Cached copy survives the delete
	if _, err := manager.LoadLevel("gone"); err != nil {
		t.Errorf("Expected cached level, got %v", err)
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	if _, err := manager.LoadLevel("gone"); !errors.Is(err, ErrLevelNotFound) {
		t.Errorf("Expected ErrLevelNotFound after refresh, got %v", err)
	}
	if id, _ := manager.GetDefault(); id != "default" {
		t.Errorf("Expected built-in default after refresh, got %s", id)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := createTestLevelDir(t)
	for i := 1; i <= 5; i++ {
		level := createValidLevel()
		level.Name = fmt.Sprintf("Level%d", i)
		writeLevelFile(t, dir, fmt.Sprintf("level%d", i), level)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	// Test concurrent loading
	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadLevel(fmt.Sprintf("level%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.count() != 5 {
		t.Errorf("Expected 5 levels in cache, got %d", manager.count())
	}
}

func TestManager_Watch(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := createTestLevelDir(t)
	writeLevelFile(t, dir, "watched", createValidLevel())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- manager.Watch(ctx) }()

	// Rewrite until the watcher notices; the first writes may land before
	// the directory is registered
	deadline := time.Now().Add(5 * time.Second)
	var seen bool
	for time.Now().Before(deadline) {
		level := createValidLevel()
		level.Description = "edited"
		writeLevelFile(t, dir, "watched", level)
		time.Sleep(50 * time.Millisecond)

		got, err := manager.LoadLevel("watched")
		if err == nil && got.Description == "edited" {
			seen = true
			break
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned error: %v", err)
	}
	if !seen {
		t.Error("Expected the edited level after a file change")
	}
}
