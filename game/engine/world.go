package engine

import (
	"errors"
	"fmt"
)

var (
	ErrWorldFull    = errors.New("no free slot in category")
	ErrSlotNotFound = errors.New("slot not found")
	ErrOutOfBounds  = errors.New("position out of bounds")
)

// World owns every entity of the running level. Slots are fixed per
// category; an empty slot is nil.
type World struct {
	Cols     int
	Rows     int
	TileSize int

	slots [NumCategories][]*Entity

	win    bool
	rescan bool
}

// NewWorld allocates an empty world
func NewWorld(cols, rows, tileSize int, capacity [NumCategories]int) *World {
	w := &World{Cols: cols, Rows: rows, TileSize: tileSize}
	for c := range w.slots {
		w.slots[c] = make([]*Entity, capacity[c])
	}
	return w
}

// Get returns the entity at h, or nil for an empty or invalid slot
func (w *World) Get(h Handle) *Entity {
	if h.Category < 0 || int(h.Category) >= NumCategories {
		return nil
	}
	s := w.slots[h.Category]
	if h.Index < 0 || h.Index >= len(s) {
		return nil
	}
	return s[h.Index]
}

// Capacity returns the slot count of category c
func (w *World) Capacity(c Category) int { return len(w.slots[c]) }

// Each visits every occupied slot in tick update order
func (w *World) Each(fn func(h Handle, e *Entity)) {
	for _, c := range updateOrder {
		for i, e := range w.slots[c] {
			if e != nil {
				fn(Handle{Category: c, Index: i}, e)
			}
		}
	}
}

// EachIn visits the occupied slots of one category
func (w *World) EachIn(c Category, fn func(h Handle, e *Entity)) {
	for i, e := range w.slots[c] {
		if e != nil {
			fn(Handle{Category: c, Index: i}, e)
		}
	}
}

// eachRegular visits every non-word entity
func (w *World) eachRegular(fn func(h Handle, e *Entity)) {
	for _, c := range updateOrder {
		if c == CategoryWord {
			continue
		}
		w.EachIn(c, fn)
	}
}

// At returns the live entities whose cell is pos
func (w *World) At(pos Position) []Handle {
	var hs []Handle
	w.Each(func(h Handle, e *Entity) {
		if e.Alive && e.Pos == pos {
			hs = append(hs, h)
		}
	})
	return hs
}

// Count returns the number of occupied slots
func (w *World) Count() int {
	n := 0
	w.Each(func(Handle, *Entity) { n++ })
	return n
}

// InBounds reports whether pos lies on the grid
func (w *World) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < w.Cols && pos.Y >= 0 && pos.Y < w.Rows
}

// Quiescent reports whether no entity is mid-traversal
func (w *World) Quiescent() bool {
	quiet := true
	w.Each(func(_ Handle, e *Entity) {
		if e.Motion != Idle {
			quiet = false
		}
	})
	return quiet
}

// Place puts e at pos in the first free slot of its kind's category
func (w *World) Place(e *Entity, pos Position) (Handle, error) {
	if !w.InBounds(pos) {
		return Handle{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, pos.X, pos.Y)
	}
	c := e.Kind.Category()
	for i, s := range w.slots[c] {
		if s == nil {
			e.Pos = pos
			e.Target = pos
			w.slots[c][i] = e
			return Handle{Category: c, Index: i}, nil
		}
	}
	return Handle{}, fmt.Errorf("%w: %s", ErrWorldFull, c)
}

// set stores e at h directly, used by undo and decoding
func (w *World) set(h Handle, e *Entity) {
	w.slots[h.Category][h.Index] = e
}

// Remove empties slot h
func (w *World) Remove(h Handle) error {
	if w.Get(h) == nil {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, h)
	}
	w.slots[h.Category][h.Index] = nil
	return nil
}

// RemoveAt empties the first slot of category c standing on pos
func (w *World) RemoveAt(c Category, pos Position) (Handle, error) {
	for i, e := range w.slots[c] {
		if e != nil && e.Pos == pos {
			w.slots[c][i] = nil
			return Handle{Category: c, Index: i}, nil
		}
	}
	return Handle{}, fmt.Errorf("%w: no %s at (%d,%d)", ErrSlotNotFound, c, pos.X, pos.Y)
}

// Sweep empties the slot of every entity that is no longer alive
func (w *World) Sweep() int {
	n := 0
	for c := range w.slots {
		for i, e := range w.slots[c] {
			if e != nil && !e.Alive {
				w.slots[c][i] = nil
				n++
			}
		}
	}
	return n
}

// Transform turns e into form in place. Position, motion and alive are
// kept; the property set restarts from the new form's (empty) set.
func (w *World) Transform(e *Entity, form *Entity) {
	e.Name = form.Name
	e.Kind = form.Kind
	e.Orientation = form.Orientation
	e.Side = form.Side
	e.Properties = form.Properties
	e.Collision = false
}

// Win reports the level win flag
func (w *World) Win() bool { return w.win }

// ClearWin consumes the win flag; only callers outside the core do this
func (w *World) ClearWin() { w.win = false }

func (w *World) setWin() { w.win = true }

// RequestRescan marks the rules stale
func (w *World) RequestRescan() { w.rescan = true }

// RescanPending reports whether a rule scan was requested
func (w *World) RescanPending() bool { return w.rescan }

// Clone deep-copies the world
func (w *World) Clone() *World {
	c := &World{Cols: w.Cols, Rows: w.Rows, TileSize: w.TileSize, win: w.win, rescan: w.rescan}
	for cat := range w.slots {
		c.slots[cat] = make([]*Entity, len(w.slots[cat]))
		for i, e := range w.slots[cat] {
			if e != nil {
				c.slots[cat][i] = e.clone()
			}
		}
	}
	return c
}
