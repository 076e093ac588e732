package engine

import (
	"strings"
	"time"
	"unicode"
)

// GameState is the read-only view of a running level served to clients
type GameState struct {
	Level     string       `json:"level"`
	Cols      int          `json:"cols"`
	Rows      int          `json:"rows"`
	TileSize  int          `json:"tile_size"`
	Tick      uint64       `json:"tick"`
	Win       bool         `json:"win"`
	Quiescent bool         `json:"quiescent"`
	UndoDepth int          `json:"undo_depth"`
	Rules     []string     `json:"rules"`
	Entities  []EntityView `json:"entities"`
	Board     []string     `json:"board"`
	Message   string       `json:"message"`

	History    []TurnEntry `json:"history"`
	TotalTurns int         `json:"total_turns"`
}

// EntityView describes one live slot
type EntityView struct {
	Handle      Handle   `json:"handle"`
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	X           int      `json:"x"`
	Y           int      `json:"y"`
	PixelX      int      `json:"pixel_x"`
	PixelY      int      `json:"pixel_y"`
	Direction   string   `json:"direction"`
	Motion      string   `json:"motion"`
	Properties  []string `json:"properties"`
	Collision   bool     `json:"collision,omitempty"`
	Orientation *int     `json:"orientation,omitempty"`
	Side        *int     `json:"side,omitempty"`
}

// TurnEntry records one player turn
type TurnEntry struct {
	Action    string `json:"action"`
	Moved     int    `json:"moved"`
	Success   bool   `json:"success"`
	Timestamp int64  `json:"timestamp"`
	Turn      int    `json:"turn"`
}

// GetState returns a copy of the current state
func (g *GameEngine) GetState() *GameState {
	w := g.world
	state := &GameState{
		Level:      g.config.Name,
		Cols:       w.Cols,
		Rows:       w.Rows,
		TileSize:   w.TileSize,
		Tick:       g.tick,
		Win:        w.Win(),
		Quiescent:  w.Quiescent(),
		UndoDepth:  g.undo.Depth(),
		Rules:      []string{},
		Entities:   []EntityView{},
		Board:      Board(w),
		Message:    g.message,
		History:    append([]TurnEntry{}, g.history...),
		TotalTurns: len(g.history),
	}

	for _, r := range g.rules.DeriveRules(w) {
		state.Rules = append(state.Rules, r.String())
	}

	for c := Category(0); c < NumCategories; c++ {
		w.EachIn(c, func(h Handle, e *Entity) {
			state.Entities = append(state.Entities, ViewOf(h, e, w.TileSize))
		})
	}
	return state
}

// ViewOf describes entity e stored at h
func ViewOf(h Handle, e *Entity, tileSize int) EntityView {
	px, py := e.PixelPosition(tileSize)
	v := EntityView{
		Handle:     h,
		Name:       e.Name,
		Kind:       e.Kind.String(),
		X:          e.Pos.X,
		Y:          e.Pos.Y,
		PixelX:     px,
		PixelY:     py,
		Direction:  e.Direction.String(),
		Motion:     e.Motion.String(),
		Properties: e.Properties.Names(),
		Collision:  e.Collision,
	}
	if e.Kind == KindWall {
		orientation, side := e.Orientation, e.Side
		v.Orientation = &orientation
		v.Side = &side
	}
	return v
}

func (g *GameEngine) record(action string, moved int, success bool) {
	g.history = append(g.history, TurnEntry{
		Action:    action,
		Moved:     moved,
		Success:   success,
		Timestamp: time.Now().Unix(),
		Turn:      len(g.history) + 1,
	})
}

// Board renders the world as one string per row. Characters and objects
// show their initial in upper case, words in lower case, walls as '#',
// other tiles as '~'. The highest category on a cell wins.
func Board(w *World) []string {
	rows := make([][]rune, w.Rows)
	for y := range rows {
		rows[y] = []rune(strings.Repeat(".", w.Cols))
	}

	draw := func(c Category) {
		w.EachIn(c, func(_ Handle, e *Entity) {
			if !e.Alive || !w.InBounds(e.Pos) {
				return
			}
			rows[e.Pos.Y][e.Pos.X] = glyph(e)
		})
	}
	for _, c := range []Category{CategoryWord, CategoryTile, CategoryObject, CategoryCharacter} {
		draw(c)
	}

	board := make([]string, w.Rows)
	for y, r := range rows {
		board[y] = string(r)
	}
	return board
}

func glyph(e *Entity) rune {
	switch e.Kind {
	case KindWall:
		return '#'
	case KindTile:
		return '~'
	case KindWord:
		return unicode.ToLower(firstRune(e.Token()))
	}
	return unicode.ToUpper(firstRune(e.Name))
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return '?'
}
