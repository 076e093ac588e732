package engine

// SlotState is the saved identity and placement of one slot
type SlotState struct {
	Present     bool
	Name        string
	Pos         Position
	Direction   Direction
	Orientation int
	Side        int
}

// UndoFrame is the state of every slot of every category at one tick
type UndoFrame [NumCategories][]SlotState

// StateStack is the bounded undo history
type StateStack struct {
	frames   []UndoFrame
	capacity int
	factory  Factory
}

// NewStateStack returns an empty stack resurrecting entities through factory
func NewStateStack(factory Factory, capacity int) *StateStack {
	if capacity <= 0 {
		capacity = UndoCapacity
	}
	return &StateStack{factory: factory, capacity: capacity}
}

// Capture records the current world as a frame
func Capture(w *World) UndoFrame {
	var f UndoFrame
	for c := range w.slots {
		f[c] = make([]SlotState, len(w.slots[c]))
		for i, e := range w.slots[c] {
			if e == nil {
				continue
			}
			f[c][i] = SlotState{
				Present:     true,
				Name:        e.Name,
				Pos:         e.Pos,
				Direction:   e.Direction,
				Orientation: e.Orientation,
				Side:        e.Side,
			}
		}
	}
	return f
}

// Push appends a frame of w, evicting the oldest beyond capacity
func (s *StateStack) Push(w *World) {
	s.frames = append(s.frames, Capture(w))
	if over := len(s.frames) - s.capacity; over > 0 {
		s.frames = append(s.frames[:0], s.frames[over:]...)
	}
}

// Depth returns the number of frames available
func (s *StateStack) Depth() int { return len(s.frames) }

// Clear drops all history
func (s *StateStack) Clear() { s.frames = nil }

// Pop restores the most recent frame into w. Entities that moved since the
// frame reverse toward their saved cell instead of teleporting; entities
// brought back from an empty slot appear in place. Returns false when
// there is nothing to undo.
func (s *StateStack) Pop(w *World) bool {
	if len(s.frames) == 0 {
		return false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]

	for c := range w.slots {
		for i := range w.slots[c] {
			h := Handle{Category: Category(c), Index: i}
			var saved SlotState
			if i < len(f[c]) {
				saved = f[c][i]
			}
			s.restoreSlot(w, h, saved)
		}
	}
	return true
}

func (s *StateStack) restoreSlot(w *World, h Handle, saved SlotState) {
	if !saved.Present {
		w.set(h, nil)
		return
	}

	e := w.Get(h)
	if e == nil {
		re, err := createShaped(s.factory, saved.Name, saved.Orientation, saved.Side)
		if err != nil {
			return
		}
		re.Alive = true
		re.Pos = saved.Pos
		re.Target = saved.Pos
		re.Direction = saved.Direction
		w.set(h, re)
		return
	}

	if e.Name != saved.Name {
		if form, err := createShaped(s.factory, saved.Name, saved.Orientation, saved.Side); err == nil {
			w.Transform(e, form)
		}
	}

	if e.Pos != saved.Pos {
		e.startReverse(saved.Pos, saved.Direction)
		return
	}
	e.Direction = saved.Direction
	e.PrevDirection = saved.Direction
}
