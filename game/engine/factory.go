package engine

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownEntity = errors.New("unknown entity")

// Factory creates entities by name. Sprite and resource loading belong to
// the implementation; the engine only needs fresh entities.
type Factory interface {
	Create(name string) (*Entity, error)
	CreateWall(orientation, side int) *Entity
}

// CatalogEntry registers a creatable name
type CatalogEntry struct {
	Name string
	Kind Kind
}

const WallName = "WALL"

// builtinEntries is the stock roster. Nouns name the thing itself; the
// word spelling a noun carries the WORD_ prefix.
var builtinEntries = []CatalogEntry{
	{"BABA", KindCharacter},
	{"KEKE", KindCharacter},

	{"FLAG", KindObject},
	{"ROCK", KindObject},
	{"SKULL", KindObject},

	{WallName, KindWall},
	{"WATER", KindTile},

	{"WORD_BABA", KindWord},
	{"WORD_KEKE", KindWord},
	{"WORD_FLAG", KindWord},
	{"WORD_ROCK", KindWord},
	{"WORD_SKULL", KindWord},
	{"WORD_WALL", KindWord},
	{"WORD_WATER", KindWord},
	{IsToken, KindWord},
	{"YOU", KindWord},
	{"WIN", KindWord},
	{"STOP", KindWord},
	{"PUSH", KindWord},
	{"SINK", KindWord},
	{"DEFEAT", KindWord},
}

// Catalog is the default Factory backed by a name -> kind table
type Catalog struct {
	kinds map[string]Kind
}

// NewCatalog returns the stock roster plus any extra entries
func NewCatalog(extra ...CatalogEntry) *Catalog {
	c := &Catalog{kinds: make(map[string]Kind, len(builtinEntries)+len(extra))}
	for _, e := range builtinEntries {
		c.kinds[e.Name] = e.Kind
	}
	for _, e := range extra {
		c.kinds[e.Name] = e.Kind
	}
	return c
}

// Create returns a new live entity at the origin
func (c *Catalog) Create(name string) (*Entity, error) {
	kind, ok := c.kinds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	if kind == KindWall {
		return c.CreateWall(0, 0), nil
	}
	return newEntity(name, kind), nil
}

// CreateWall returns a wall segment with the given shape
func (c *Catalog) CreateWall(orientation, side int) *Entity {
	e := newEntity(WallName, KindWall)
	e.Orientation = orientation
	e.Side = side
	return e
}

// Kind reports the kind registered for name
func (c *Catalog) Kind(name string) (Kind, bool) {
	k, ok := c.kinds[name]
	return k, ok
}

// Names lists every creatable name, sorted
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.kinds))
	for n := range c.kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// createShaped builds an entity honouring wall shape when the name is a wall
func createShaped(f Factory, name string, orientation, side int) (*Entity, error) {
	if name == WallName && orientation >= 0 && side >= 0 {
		return f.CreateWall(orientation, side), nil
	}
	return f.Create(name)
}
