package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placement puts one named entity on the grid
type Placement struct {
	Name        string `json:"name" yaml:"name"`
	X           int    `json:"x" yaml:"x"`
	Y           int    `json:"y" yaml:"y"`
	Direction   string `json:"direction,omitempty" yaml:"direction,omitempty"`
	Orientation *int   `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Side        *int   `json:"side,omitempty" yaml:"side,omitempty"`
}

// Capacity is the slot count per category
type Capacity struct {
	Words      int `json:"words,omitempty" yaml:"words,omitempty"`
	Tiles      int `json:"tiles,omitempty" yaml:"tiles,omitempty"`
	Objects    int `json:"objects,omitempty" yaml:"objects,omitempty"`
	Characters int `json:"characters,omitempty" yaml:"characters,omitempty"`
}

// LevelConfig describes a level: grid geometry plus its starting entities
type LevelConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Cols        int      `json:"cols" yaml:"cols"`
	Rows        int      `json:"rows" yaml:"rows"`
	TileSize    int      `json:"tile_size,omitempty" yaml:"tile_size,omitempty"`
	Speed       int      `json:"speed,omitempty" yaml:"speed,omitempty"`
	Capacity    Capacity `json:"capacity,omitempty" yaml:"capacity,omitempty"`

	// Layout is one string per row, one character per cell. Legend maps a
	// character to an entity name; '.' and ' ' are empty cells.
	Layout []string          `json:"layout,omitempty" yaml:"layout,omitempty"`
	Legend map[string]string `json:"legend,omitempty" yaml:"legend,omitempty"`

	Entities []Placement `json:"entities,omitempty" yaml:"entities,omitempty"`

	// Tiles is the background geometry, Tiles[row][col] indexing TileCollision
	Tiles         [][]int `json:"tiles,omitempty" yaml:"tiles,omitempty"`
	TileCollision []bool  `json:"tile_collision,omitempty" yaml:"tile_collision,omitempty"`

	WordsPushable bool `json:"words_pushable,omitempty" yaml:"words_pushable,omitempty"`
}

// tileSize returns the configured tile size or the default
func (c *LevelConfig) tileSize() int {
	if c.TileSize > 0 {
		return c.TileSize
	}
	return DefaultTileSize
}

func (c *LevelConfig) speed() int {
	if c.Speed > 0 {
		return c.Speed
	}
	return DefaultSpeed
}

func (c *LevelConfig) capacity() [NumCategories]int {
	capacity := DefaultCapacity
	if c.Capacity.Words > 0 {
		capacity[CategoryWord] = c.Capacity.Words
	}
	if c.Capacity.Tiles > 0 {
		capacity[CategoryTile] = c.Capacity.Tiles
	}
	if c.Capacity.Objects > 0 {
		capacity[CategoryObject] = c.Capacity.Objects
	}
	if c.Capacity.Characters > 0 {
		capacity[CategoryCharacter] = c.Capacity.Characters
	}
	return capacity
}

func isEmptyCell(ch rune) bool { return ch == '.' || ch == ' ' }

// ValidateLevelConfig checks a level for structural correctness against
// the names catalog can create
func ValidateLevelConfig(config *LevelConfig, catalog *Catalog) error {
	if config == nil {
		return fmt.Errorf("level validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("level validation: name is required")
	}
	if config.Cols < MinGridSize || config.Cols > MaxGridSize {
		return fmt.Errorf("level validation: cols must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Cols)
	}
	if config.Rows < MinGridSize || config.Rows > MaxGridSize {
		return fmt.Errorf("level validation: rows must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Rows)
	}
	if config.TileSize < 0 {
		return fmt.Errorf("level validation: tile_size must be positive, got %d", config.TileSize)
	}
	if config.Speed < 0 || config.speed() > config.tileSize() {
		return fmt.Errorf("level validation: speed must be between 1 and tile_size (%d), got %d", config.tileSize(), config.Speed)
	}
	if config.Capacity.Words < 0 || config.Capacity.Tiles < 0 || config.Capacity.Objects < 0 || config.Capacity.Characters < 0 {
		return fmt.Errorf("level validation: capacity values must not be negative")
	}

	count := 0
	if len(config.Layout) > 0 {
		if len(config.Layout) != config.Rows {
			return fmt.Errorf("level validation: layout must have %d rows to match rows, got %d", config.Rows, len(config.Layout))
		}
		for y, row := range config.Layout {
			cells := []rune(row)
			if len(cells) != config.Cols {
				return fmt.Errorf("level validation: layout row %d must have %d cells to match cols, got %d", y+1, config.Cols, len(cells))
			}
			for x, ch := range cells {
				if isEmptyCell(ch) {
					continue
				}
				name, ok := config.Legend[string(ch)]
				if !ok {
					return fmt.Errorf("level validation: character '%c' at row %d, col %d has no legend entry", ch, y+1, x+1)
				}
				if _, known := catalog.Kind(name); !known {
					return fmt.Errorf("level validation: legend['%c'] names unknown entity %q", ch, name)
				}
				count++
			}
		}
	}

	for i, p := range config.Entities {
		if _, known := catalog.Kind(p.Name); !known {
			return fmt.Errorf("level validation: entities[%d] names unknown entity %q", i, p.Name)
		}
		if p.X < 0 || p.X >= config.Cols || p.Y < 0 || p.Y >= config.Rows {
			return fmt.Errorf("level validation: entities[%d] at (%d,%d) is outside the %dx%d grid", i, p.X, p.Y, config.Cols, config.Rows)
		}
		if p.Direction != "" {
			if _, err := ParseDirection(p.Direction); err != nil {
				return fmt.Errorf("level validation: entities[%d]: %v", i, err)
			}
		}
		count++
	}

	if count == 0 {
		return fmt.Errorf("level validation: level must place at least one entity")
	}

	if len(config.Tiles) > 0 {
		if len(config.Tiles) != config.Rows {
			return fmt.Errorf("level validation: tiles must have %d rows, got %d", config.Rows, len(config.Tiles))
		}
		for y, row := range config.Tiles {
			if len(row) != config.Cols {
				return fmt.Errorf("level validation: tiles row %d must have %d entries, got %d", y+1, config.Cols, len(row))
			}
			for x, t := range row {
				if t < 0 || t >= len(config.TileCollision) {
					return fmt.Errorf("level validation: tile type %d at row %d, col %d has no tile_collision entry", t, y+1, x+1)
				}
			}
		}
	}

	return nil
}

// BuildWorld creates the starting world of a level. Placements that do not
// fit their category are reported as an error.
func BuildWorld(config *LevelConfig, factory Factory) (*World, error) {
	w := NewWorld(config.Cols, config.Rows, config.tileSize(), config.capacity())

	for y, row := range config.Layout {
		for x, ch := range []rune(row) {
			if isEmptyCell(ch) {
				continue
			}
			name := config.Legend[string(ch)]
			e, err := factory.Create(name)
			if err != nil {
				return nil, fmt.Errorf("layout (%d,%d): %w", x, y, err)
			}
			if _, err := w.Place(e, Position{X: x, Y: y}); err != nil {
				return nil, fmt.Errorf("layout (%d,%d): %w", x, y, err)
			}
		}
	}

	for i, p := range config.Entities {
		orientation, side := -1, -1
		if p.Orientation != nil {
			orientation = *p.Orientation
		}
		if p.Side != nil {
			side = *p.Side
		}
		e, err := createShaped(factory, p.Name, orientation, side)
		if err != nil {
			return nil, fmt.Errorf("entities[%d]: %w", i, err)
		}
		if p.Direction != "" {
			d, err := ParseDirection(p.Direction)
			if err != nil {
				return nil, fmt.Errorf("entities[%d]: %w", i, err)
			}
			e.Direction = d
		}
		if _, err := w.Place(e, Position{X: p.X, Y: p.Y}); err != nil {
			return nil, fmt.Errorf("entities[%d]: %w", i, err)
		}
	}

	applyTileCollision(w, config)
	return w, nil
}

// applyTileCollision flags interactive tiles that stand on colliding
// background tiles. The geometry is not consulted again after load.
func applyTileCollision(w *World, config *LevelConfig) {
	if len(config.Tiles) == 0 {
		return
	}
	w.EachIn(CategoryTile, func(_ Handle, e *Entity) {
		if e.Pos.Y >= len(config.Tiles) || e.Pos.X >= len(config.Tiles[e.Pos.Y]) {
			return
		}
		t := config.Tiles[e.Pos.Y][e.Pos.X]
		if t >= 0 && t < len(config.TileCollision) && config.TileCollision[t] {
			e.Collision = true
		}
	})
}

// ParseLevelConfig decodes a level from JSON or YAML depending on ext
func ParseLevelConfig(data []byte, ext string) (*LevelConfig, error) {
	var config LevelConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML level: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON level: %w", err)
		}
	}
	return &config, nil
}

// LoadLevelConfig reads and validates a level file
func LoadLevelConfig(filename string, catalog *Catalog) (*LevelConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseLevelConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, err
	}

	if err := ValidateLevelConfig(config, catalog); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultLevel is the level used when no level directory is available:
// BABA IS YOU, FLAG IS WIN, ROCK IS PUSH, WALL IS STOP.
func DefaultLevel() *LevelConfig {
	return &LevelConfig{
		Name:        "default",
		Description: "Push the rock, reach the flag",
		Cols:        11,
		Rows:        9,
		Layout: []string{
			"bIY........",
			"fIW........",
			"rIP........",
			"wIS........",
			"...........",
			"###########",
			"..B..R...F.",
			"###########",
			"...........",
		},
		Legend: map[string]string{
			"b": "WORD_BABA",
			"f": "WORD_FLAG",
			"r": "WORD_ROCK",
			"w": "WORD_WALL",
			"I": IsToken,
			"Y": "YOU",
			"W": "WIN",
			"P": "PUSH",
			"S": "STOP",
			"B": "BABA",
			"R": "ROCK",
			"F": "FLAG",
			"#": WallName,
		},
	}
}
