package engine

import "strings"

// Entity is anything standing on the grid: words, interactive tiles,
// objects and characters.
type Entity struct {
	Name       string
	Kind       Kind
	Pos        Position
	Direction  Direction
	Alive      bool
	Properties PropertySet

	// Motion state. Progress is the sub-tile offset in pixels travelled
	// toward Target.
	Motion   Motion
	Progress int
	Target   Position

	// PrevDirection is the facing restored when a Reversing entity arrives
	PrevDirection Direction

	// Collision is informational; set by the interaction pass
	Collision bool

	// Wall shape, -1 unless Kind == KindWall
	Orientation int
	Side        int
}

func newEntity(name string, kind Kind) *Entity {
	return &Entity{
		Name:        name,
		Kind:        kind,
		Direction:   Down,
		Alive:       true,
		Orientation: -1,
		Side:        -1,
	}
}

// IsWord reports whether the entity is a rule word
func (e *Entity) IsWord() bool { return e.Kind == KindWord }

// Token returns the rule token a word spells: WORD_ROCK spells ROCK
func (e *Entity) Token() string {
	return strings.TrimPrefix(e.Name, WordPrefix)
}

// Has reports whether the entity currently holds p
func (e *Entity) Has(p Property) bool { return e.Properties.Has(p) }

// Idle reports whether the entity is at rest
func (e *Entity) Idle() bool { return e.Motion == Idle }

// PixelPosition is the top-left corner in world pixels including the
// in-flight animation offset
func (e *Entity) PixelPosition(tileSize int) (x, y int) {
	x, y = e.Pos.X*tileSize, e.Pos.Y*tileSize
	if e.Motion == Idle || e.Progress == 0 {
		return x, y
	}
	dx, dy := sign(e.Target.X-e.Pos.X), 0
	if dx == 0 {
		dy = sign(e.Target.Y - e.Pos.Y)
	}
	return x + dx*e.Progress, y + dy*e.Progress
}

// Rect is an axis-aligned box in world pixels
type Rect struct {
	X, Y, W, H int
}

// Intersects uses strict overlap; boxes that only share an edge do not touch
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.W && o.X < r.X+r.W && r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// Hitbox returns the one-tile box the entity occupies right now
func (e *Entity) Hitbox(tileSize int) Rect {
	x, y := e.PixelPosition(tileSize)
	return Rect{X: x, Y: y, W: tileSize, H: tileSize}
}

// startMove begins a one-tile traversal in direction d
func (e *Entity) startMove(d Direction) {
	e.Direction = d
	e.Motion = Moving
	e.Progress = 0
	e.Target = e.Pos.Step(d)
}

// startReverse animates the entity back toward target, restoring dir on arrival
func (e *Entity) startReverse(target Position, dir Direction) {
	e.Motion = Reversing
	e.Progress = 0
	e.Target = target
	e.PrevDirection = dir
}

// resetMovement returns the entity to rest without moving it
func (e *Entity) resetMovement() {
	e.Motion = Idle
	e.Progress = 0
	e.Target = e.Pos
	e.Collision = false
}

// advance moves the entity speed pixels along its traversal and reports
// whether a full tile was completed this tick
func (e *Entity) advance(speed, tileSize int) bool {
	if e.Motion == Idle {
		return false
	}
	e.Progress += speed
	if e.Progress < tileSize {
		return false
	}

	switch e.Motion {
	case Moving:
		e.Pos = e.Target
	case Reversing:
		// one cell per traversal, horizontal first
		if dx := sign(e.Target.X - e.Pos.X); dx != 0 {
			e.Pos.X += dx
		} else {
			e.Pos.Y += sign(e.Target.Y - e.Pos.Y)
		}
		if e.Pos != e.Target {
			e.Progress = 0
			return false
		}
		e.Direction = e.PrevDirection
	}
	e.resetMovement()
	return true
}

// clone returns a copy safe to mutate independently
func (e *Entity) clone() *Entity {
	c := *e
	return &c
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
