package engine

// InteractionResolver runs contact effects for an entity that just
// finished a traversal
type InteractionResolver struct{}

// Resolve checks e against every other live entity in the world
func (InteractionResolver) Resolve(w *World, e *Entity) {
	if e.IsWord() || !e.Alive {
		return
	}

	box := e.Hitbox(w.TileSize)
	w.Each(func(_ Handle, t *Entity) {
		if t == e || !t.Alive {
			return
		}
		if !box.Intersects(t.Hitbox(w.TileSize)) {
			return
		}

		if t.Has(Stop) || t.Collision {
			e.Collision = true
		}
		if t.Has(Sink) && !t.Has(Stop) {
			e.Alive = false
			e.resetMovement()
			t.Alive = false
			t.resetMovement()
		}
		if t.Has(Defeat) && !t.Has(Stop) {
			e.Alive = false
			e.resetMovement()
		}
		if e.Has(You) && t.Has(Win) {
			w.setWin()
		}
	})

	if !w.InBounds(e.Pos) {
		e.Collision = true
	}
}

// checkSelfWin sets the win flag when any entity is both YOU and WIN
func checkSelfWin(w *World) {
	w.eachRegular(func(_ Handle, e *Entity) {
		if e.Alive && e.Has(You) && e.Has(Win) {
			w.setWin()
		}
	})
}
