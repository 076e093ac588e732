package engine

// MovementResolver decides which entities move for a direction input
type MovementResolver struct {
	// WordsPushable lets words take part in push cascades as if they held PUSH
	WordsPushable bool
}

// cascade is the state of one top-level move attempt. visiting holds the
// entities on the current recursion path; an entity reached again while on
// the path is a push cycle and fails the attempt.
type cascade struct {
	visiting map[*Entity]bool
	resolved map[*Entity]bool
	members  []Handle
}

func newCascade() *cascade {
	return &cascade{
		visiting: make(map[*Entity]bool),
		resolved: make(map[*Entity]bool),
	}
}

func (m *MovementResolver) pushable(e *Entity) bool {
	if e.IsWord() {
		return m.WordsPushable
	}
	return e.Has(Push)
}

// CanMove reports whether e can step in direction d, pushing whatever it must
func (m *MovementResolver) CanMove(w *World, e *Entity, d Direction) bool {
	return m.canMove(w, e, d, newCascade())
}

func (m *MovementResolver) canMove(w *World, e *Entity, d Direction, c *cascade) bool {
	dest := e.Pos.Step(d)
	if !w.InBounds(dest) {
		return false
	}

	c.visiting[e] = true
	defer delete(c.visiting, e)

	for _, h := range w.At(dest) {
		occ := w.Get(h)
		if occ == e {
			continue
		}
		if !occ.IsWord() && occ.Has(Stop) {
			return false
		}
		if !m.pushable(occ) || c.resolved[occ] {
			continue
		}
		if c.visiting[occ] {
			return false
		}
		if !m.canMove(w, occ, d, c) {
			return false
		}
		c.resolved[occ] = true
		c.members = append(c.members, h)
	}
	return true
}

// Plan computes the world move-set for direction d without committing it.
// Each YOU entity is tried independently; a blocked one does not stop the
// others.
func (m *MovementResolver) Plan(w *World, d Direction) []Handle {
	var moveSet []Handle
	seen := make(map[Handle]bool)
	add := func(h Handle) {
		if !seen[h] {
			seen[h] = true
			moveSet = append(moveSet, h)
		}
	}

	w.eachRegular(func(h Handle, e *Entity) {
		if !e.Alive || !e.Has(You) {
			return
		}
		c := newCascade()
		if !m.canMove(w, e, d, c) {
			return
		}
		for _, mh := range c.members {
			add(mh)
		}
		add(h)
	})
	return moveSet
}

// TryMove commits a move when the world is quiescent. It records an undo
// frame on stack before any entity starts moving and returns the move-set,
// or nil when nothing could move.
func (m *MovementResolver) TryMove(w *World, d Direction, stack *StateStack) []Handle {
	if !w.Quiescent() {
		return nil
	}
	moveSet := m.Plan(w, d)
	if len(moveSet) == 0 {
		return nil
	}
	if stack != nil {
		stack.Push(w)
	}
	for _, h := range moveSet {
		w.Get(h).startMove(d)
	}
	return moveSet
}
