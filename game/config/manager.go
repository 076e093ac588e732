package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wricardo/rulegrid/game/engine"
	"github.com/wricardo/rulegrid/game/service"
)

var (
	ErrLevelNotFound = errors.New("level not found")
	ErrInvalidLevel  = errors.New("invalid level")
)

// PreferredDefault is the level used as default when present
const PreferredDefault = "intro"

// levelExtensions are tried in order when a level ID has no extension
var levelExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles level loading and caching
type Manager struct {
	levelDir     string
	catalog      *engine.Catalog
	logger       *zap.Logger
	defaultID    string
	defaultLevel *engine.LevelConfig
	levels       map[string]*engine.LevelConfig
	mu           sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCatalog validates levels against a custom entity catalog
func WithCatalog(catalog *engine.Catalog) Option {
	return func(m *Manager) {
		if catalog != nil {
			m.catalog = catalog
		}
	}
}

// NewManager creates a new level manager for levelDir
func NewManager(levelDir string, opts ...Option) (*Manager, error) {
	// Ensure level directory exists
	if _, err := os.Stat(levelDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("level directory does not exist: %s", levelDir)
	}

	m := &Manager{
		levelDir: levelDir,
		catalog:  engine.NewCatalog(),
		logger:   zap.NewNop(),
		levels:   make(map[string]*engine.LevelConfig),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.loadDefaultLevel()
	return m, nil
}

// levelID strips a known level extension from name
func levelID(name string) string {
	ext := filepath.Ext(name)
	if isLevelFile(name) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

func isLevelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range levelExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: bad level id %q", ErrInvalidLevel, id)
	}
	return nil
}

// LoadLevel loads a level by ID. The ID may carry a .json, .yaml or .yml
// extension; without one each is tried in turn.
func (m *Manager) LoadLevel(name string) (*engine.LevelConfig, error) {
	id := levelID(name)
	if err := checkID(id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	// Check cache first
	if config, exists := m.levels[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

// loadLocked reads a level from disk into the cache. m.mu must be held.
func (m *Manager) loadLocked(name string) (*engine.LevelConfig, error) {
	id := levelID(name)

	// Double-check after acquiring write lock
	if config, exists := m.levels[id]; exists {
		return config, nil
	}

	candidates := []string{name}
	if !isLevelFile(name) {
		candidates = candidates[:0]
		for _, ext := range levelExtensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, filename := range candidates {
		path := filepath.Join(m.levelDir, filename)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read level file: %w", err)
		}

		config, err := engine.ParseLevelConfig(data, filepath.Ext(filename))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLevel, filename, err)
		}
		if err := engine.ValidateLevelConfig(config, m.catalog); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLevel, filename, err)
		}

		m.levels[id] = config
		m.logger.Debug("level loaded", zap.String("level", id), zap.String("file", filename))
		return config, nil
	}
	return nil, ErrLevelNotFound
}

// ListLevels returns information about all valid levels in the directory.
// Files that fail to load are skipped.
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	entries, err := os.ReadDir(m.levelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	levels := []*service.LevelInfo{}
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !isLevelFile(entry.Name()) {
			continue
		}

		id := levelID(entry.Name())
		if seen[id] {
			continue
		}

		config, err := m.LoadLevel(entry.Name())
		if err != nil {
			m.logger.Warn("skipping level", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		seen[id] = true

		levels = append(levels, &service.LevelInfo{
			Filename:    entry.Name(),
			LevelID:     id, // This is the identifier to use for session creation
			Name:        config.Name,
			Description: config.Description,
			Cols:        config.Cols,
			Rows:        config.Rows,
		})
	}

	return levels, nil
}

// GetDefault returns the default level and its ID
func (m *Manager) GetDefault() (string, *engine.LevelConfig) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID, m.defaultLevel
}

// SetDefault sets the default level by ID
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadLevel(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = levelID(name)
	m.defaultLevel = config
	return nil
}

// RefreshCache drops every cached level and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.levels = make(map[string]*engine.LevelConfig)
	m.mu.Unlock()

	m.loadDefaultLevel()
	return nil
}

// loadDefaultLevel picks intro, else the first valid level on disk, else
// the built-in level
func (m *Manager) loadDefaultLevel() {
	if config, err := m.LoadLevel(PreferredDefault); err == nil {
		m.setDefault(PreferredDefault, config)
		return
	}

	levels, err := m.ListLevels()
	if err == nil && len(levels) > 0 {
		if config, err := m.LoadLevel(levels[0].LevelID); err == nil {
			m.setDefault(levels[0].LevelID, config)
			return
		}
	}

	m.logger.Info("no level files found, using built-in level", zap.String("dir", m.levelDir))
	m.setDefault("default", engine.DefaultLevel())
}

func (m *Manager) setDefault(id string, config *engine.LevelConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = id
	m.defaultLevel = config
}

// SaveLevel validates a level and writes it as JSON
func (m *Manager) SaveLevel(name string, config *engine.LevelConfig) error {
	id := levelID(name)
	if err := checkID(id); err != nil {
		return err
	}

	// Validate level before saving
	if err := engine.ValidateLevelConfig(config, m.catalog); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	path := filepath.Join(m.levelDir, id+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.levels[id] = config
	m.mu.Unlock()

	m.logger.Info("level saved", zap.String("level", id), zap.String("file", path))
	return nil
}

// Watch drops cached levels whose files change on disk until ctx is done.
// A change to the default level's file reloads the default.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create level watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.levelDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.levelDir, err)
	}
	m.logger.Info("watching level directory", zap.String("dir", m.levelDir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			m.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("level watcher error", zap.Error(err))
		}
	}
}

func (m *Manager) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !isLevelFile(name) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	id := levelID(name)
	m.mu.Lock()
	delete(m.levels, id)
	isDefault := id == m.defaultID
	m.mu.Unlock()

	m.logger.Info("level file changed", zap.String("level", id), zap.String("op", event.Op.String()))
	if isDefault {
		m.loadDefaultLevel()
	}
}
