package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Category partitions the world's entity slots
type Category int

const (
	CategoryWord Category = iota
	CategoryTile
	CategoryObject
	CategoryCharacter

	NumCategories = 4
)

// updateOrder is the order entities are advanced in each tick
var updateOrder = [NumCategories]Category{CategoryTile, CategoryObject, CategoryCharacter, CategoryWord}

// String returns the lowercase category name used in JSON and the API
func (c Category) String() string {
	switch c {
	case CategoryWord:
		return "word"
	case CategoryTile:
		return "tile"
	case CategoryObject:
		return "object"
	case CategoryCharacter:
		return "character"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory converts an API name into a Category
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(s) {
	case "word", "words":
		return CategoryWord, nil
	case "tile", "tiles", "itile":
		return CategoryTile, nil
	case "object", "objects", "obj":
		return CategoryObject, nil
	case "character", "characters", "chr":
		return CategoryCharacter, nil
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Kind discriminates entity behaviour. KindWall is the only kind that
// carries orientation and side.
type Kind int

const (
	KindWord Kind = iota
	KindTile
	KindWall
	KindObject
	KindCharacter
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindTile:
		return "tile"
	case KindWall:
		return "wall"
	case KindObject:
		return "object"
	case KindCharacter:
		return "character"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Category returns the slot category entities of this kind are placed in
func (k Kind) Category() Category {
	switch k {
	case KindWord:
		return CategoryWord
	case KindTile, KindWall:
		return CategoryTile
	case KindObject:
		return CategoryObject
	}
	return CategoryCharacter
}

// Direction is one of the four cardinal directions
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists all directions in input priority order
var Directions = []Direction{Up, Down, Left, Right}

var ErrInvalidDirection = errors.New("invalid direction")

// ParseDirection accepts up/down/left/right (case-insensitive)
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// Delta returns the cell offset of one step in this direction
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Property is a behavioural tag granted by rules
type Property uint8

const (
	You Property = 1 << iota
	Win
	Stop
	Push
	Sink
	Defeat
)

var propertyNames = []struct {
	p    Property
	name string
}{
	{You, "YOU"},
	{Win, "WIN"},
	{Stop, "STOP"},
	{Push, "PUSH"},
	{Sink, "SINK"},
	{Defeat, "DEFEAT"},
}

// ParseProperty maps a word token to a property
func ParseProperty(token string) (Property, bool) {
	for _, pn := range propertyNames {
		if pn.name == token {
			return pn.p, true
		}
	}
	return 0, false
}

func (p Property) String() string {
	for _, pn := range propertyNames {
		if pn.p == p {
			return pn.name
		}
	}
	return fmt.Sprintf("property(%d)", uint8(p))
}

// PropertySet is a bit set of properties
type PropertySet uint8

func (s PropertySet) Has(p Property) bool { return s&PropertySet(p) != 0 }

func (s *PropertySet) Add(p Property) { *s |= PropertySet(p) }

func (s PropertySet) Empty() bool { return s == 0 }

// Names returns the set members in declaration order
func (s PropertySet) Names() []string {
	names := []string{}
	for _, pn := range propertyNames {
		if s.Has(pn.p) {
			names = append(names, pn.name)
		}
	}
	return names
}

// Position is a cell coordinate
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step returns the neighbouring cell in direction d
func (p Position) Step(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Motion is the per-entity animation state
type Motion int

const (
	Idle Motion = iota
	Moving
	Reversing
)

func (m Motion) String() string {
	switch m {
	case Idle:
		return "idle"
	case Moving:
		return "moving"
	case Reversing:
		return "reversing"
	}
	return fmt.Sprintf("motion(%d)", int(m))
}

// Handle addresses an entity slot. Handles stay valid across removal,
// resurrection and transformation.
type Handle struct {
	Category Category `json:"category"`
	Index    int      `json:"index"`
}

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d", h.Category, h.Index)
}

const (
	// IsToken links a subject noun to its predicate
	IsToken = "IS"

	// WordPrefix marks word entities that spell a noun
	WordPrefix = "WORD_"

	// NullSlot is the persisted marker of an empty slot
	NullSlot = "NULL"

	// UndoCapacity bounds the undo stack
	UndoCapacity = 50

	// MoveDebounceTicks is the quiescent tick count required between moves
	MoveDebounceTicks = 3

	// MaxSettleTicks bounds Settle so a broken speed setting cannot spin forever
	MaxSettleTicks = 10000

	DefaultTileSize = 48
	DefaultSpeed    = 4
	DefaultCols     = 33
	DefaultRows     = 18

	MinGridSize = 1
	MaxGridSize = 64
)

// DefaultCapacity holds the slot counts per category
var DefaultCapacity = [NumCategories]int{
	CategoryWord:      50,
	CategoryTile:      100,
	CategoryObject:    50,
	CategoryCharacter: 50,
}
