package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveTimeFormat is the human-readable creation stamp of a save record
const SaveTimeFormat = "01-02-2006 15:04:05"

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// SlotRecord is one persisted slot. An empty slot encodes as the JSON
// string "NULL"; non-wall entities carry -1 for orientation and side.
type SlotRecord struct {
	Empty       bool
	Name        string
	X           int
	Y           int
	Direction   string
	Orientation int
	Side        int
}

type slotRecordJSON struct {
	Name        string `json:"name"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Direction   string `json:"direction,omitempty"`
	Orientation int    `json:"orientation"`
	Side        int    `json:"side"`
}

func (s SlotRecord) MarshalJSON() ([]byte, error) {
	if s.Empty {
		return json.Marshal(NullSlot)
	}
	return json.Marshal(slotRecordJSON{
		Name:        s.Name,
		X:           s.X,
		Y:           s.Y,
		Direction:   s.Direction,
		Orientation: s.Orientation,
		Side:        s.Side,
	})
}

func (s *SlotRecord) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		var marker string
		if err := json.Unmarshal(data, &marker); err != nil {
			return err
		}
		if marker != NullSlot {
			return fmt.Errorf("%w: unexpected slot marker %q", ErrInvalidSnapshot, marker)
		}
		*s = SlotRecord{Empty: true}
		return nil
	}

	raw := slotRecordJSON{Orientation: -1, Side: -1}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SlotRecord{
		Name:        raw.Name,
		X:           raw.X,
		Y:           raw.Y,
		Direction:   raw.Direction,
		Orientation: raw.Orientation,
		Side:        raw.Side,
	}
	return nil
}

// SaveRecord is the persisted form of a world
type SaveRecord struct {
	ID        string `json:"id"`
	Level     string `json:"level"`
	CreatedAt string `json:"file_date"`
	Cols      int    `json:"cols"`
	Rows      int    `json:"rows"`
	TileSize  int    `json:"tile_size"`

	Words      []SlotRecord `json:"words"`
	Tiles      []SlotRecord `json:"tiles"`
	Objects    []SlotRecord `json:"objects"`
	Characters []SlotRecord `json:"characters"`
}

func (r *SaveRecord) slots(c Category) *[]SlotRecord {
	switch c {
	case CategoryWord:
		return &r.Words
	case CategoryTile:
		return &r.Tiles
	case CategoryObject:
		return &r.Objects
	}
	return &r.Characters
}

// NewSaveRecord captures w into a record stamped with the current time
func NewSaveRecord(w *World, level string) *SaveRecord {
	r := &SaveRecord{
		ID:        uuid.NewString(),
		Level:     level,
		CreatedAt: time.Now().Format(SaveTimeFormat),
		Cols:      w.Cols,
		Rows:      w.Rows,
		TileSize:  w.TileSize,
	}
	for c := Category(0); c < NumCategories; c++ {
		records := make([]SlotRecord, w.Capacity(c))
		for i := range records {
			e := w.Get(Handle{Category: c, Index: i})
			if e == nil {
				records[i] = SlotRecord{Empty: true}
				continue
			}
			records[i] = SlotRecord{
				Name:        e.Name,
				X:           e.Pos.X * w.TileSize,
				Y:           e.Pos.Y * w.TileSize,
				Direction:   e.Direction.String(),
				Orientation: -1,
				Side:        -1,
			}
			if e.Kind == KindWall {
				records[i].Orientation = e.Orientation
				records[i].Side = e.Side
			}
		}
		*r.slots(c) = records
	}
	return r
}

// Encode serializes w as a save record
func Encode(w *World, level string) ([]byte, error) {
	return json.MarshalIndent(NewSaveRecord(w, level), "", "  ")
}

// DecodeRecord parses a save record without building a world
func DecodeRecord(data []byte) (*SaveRecord, error) {
	var r SaveRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if r.Cols < MinGridSize || r.Rows < MinGridSize || r.TileSize <= 0 {
		return nil, fmt.Errorf("%w: bad geometry %dx%d tile %d", ErrInvalidSnapshot, r.Cols, r.Rows, r.TileSize)
	}
	return &r, nil
}

// Decode builds a new world from data. Slots naming entities the factory
// does not know, or placed off-grid, are left empty and counted in skipped.
// The caller's world is never touched.
func Decode(data []byte, factory Factory) (w *World, level string, skipped int, err error) {
	r, err := DecodeRecord(data)
	if err != nil {
		return nil, "", 0, err
	}
	w, skipped = r.World(factory)
	return w, r.Level, skipped, nil
}

// World builds the world the record describes
func (r *SaveRecord) World(factory Factory) (*World, int) {
	var capacity [NumCategories]int
	for c := Category(0); c < NumCategories; c++ {
		capacity[c] = len(*r.slots(c))
	}
	w := NewWorld(r.Cols, r.Rows, r.TileSize, capacity)

	skipped := 0
	for c := Category(0); c < NumCategories; c++ {
		for i, s := range *r.slots(c) {
			if s.Empty {
				continue
			}
			e, err := createShaped(factory, s.Name, s.Orientation, s.Side)
			if err != nil || e.Kind.Category() != c {
				skipped++
				continue
			}
			pos := Position{X: s.X / r.TileSize, Y: s.Y / r.TileSize}
			if s.X%r.TileSize != 0 || s.Y%r.TileSize != 0 || !w.InBounds(pos) {
				skipped++
				continue
			}
			if s.Direction != "" {
				if d, err := ParseDirection(s.Direction); err == nil {
					e.Direction = d
				}
			}
			e.Pos = pos
			e.Target = pos
			w.set(Handle{Category: c, Index: i}, e)
		}
	}
	return w, skipped
}
