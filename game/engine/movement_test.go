package engine

import (
	"testing"
)

// wordPushLevel: BABA IS YOU and ROCK IS PUSH, baba below the PUSH word
var wordPushLevel = []string{
	"......",
	".bIY..",
	".rIP..",
	"...B..",
}

func TestWordsAreNotPushableByDefault(t *testing.T) {
	g := newTestEngine(t, wordPushLevel...)

	outcome := g.Move(Up)

	if len(outcome.Moved) != 1 {
		t.Errorf("Expected only BABA to move, got %d", len(outcome.Moved))
	}
	if pos := posOf(t, g, "BABA"); pos != (Position{X: 3, Y: 2}) {
		t.Errorf("Expected BABA to walk onto the word at (3,2), got %v", pos)
	}
	if len(g.GetState().Rules) != 2 {
		t.Errorf("Expected both rules intact, got %v", g.GetState().Rules)
	}
}

func TestWordsPushableRewritesRules(t *testing.T) {
	config := createTestLevel(wordPushLevel...)
	config.WordsPushable = true
	g, err := NewEngine(config)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	outcome := g.Move(Up)
	if len(outcome.Moved) != 3 {
		t.Fatalf("Expected BABA and two words to move, got %d", len(outcome.Moved))
	}

	rules := g.GetState().Rules
	if len(rules) != 1 || rules[0] != "BABA IS PUSH" {
		t.Fatalf("Expected only BABA IS PUSH, got %v", rules)
	}

	baba := find(g, "BABA")
	if baba.Has(You) {
		t.Error("Expected BABA to lose YOU")
	}
	if !baba.Has(Push) {
		t.Error("Expected BABA to gain PUSH")
	}

	if outcome := g.Move(Down); len(outcome.Moved) != 0 {
		t.Error("Expected no movement once nothing is YOU")
	}
}

func TestMultipleYouMoveIndependently(t *testing.T) {
	g := newTestEngine(t,
		"bIY....",
		"kIY....",
		"wIS....",
		"....B#.",
		"....X..",
	)

	outcome := g.Move(Right)

	if len(outcome.Moved) != 1 {
		t.Fatalf("Expected only the unblocked YOU to move, got %d", len(outcome.Moved))
	}
	if pos := posOf(t, g, "BABA"); pos != (Position{X: 4, Y: 3}) {
		t.Errorf("Expected blocked BABA to stay at (4,3), got %v", pos)
	}
	if pos := posOf(t, g, "SKULL"); pos != (Position{X: 5, Y: 4}) {
		t.Errorf("Expected SKULL at (5,4), got %v", pos)
	}
}

func TestYouPushesYou(t *testing.T) {
	g := newTestEngine(t,
		"bIY....",
		"bIP....",
		"...BB..",
	)

	outcome := g.Move(Right)

	if len(outcome.Moved) != 2 {
		t.Fatalf("Expected both BABAs to move once, got %d", len(outcome.Moved))
	}
	var xs []int
	g.World().EachIn(CategoryCharacter, func(_ Handle, e *Entity) { xs = append(xs, e.Pos.X) })
	if len(xs) != 2 || xs[0] != 4 || xs[1] != 5 {
		t.Errorf("Expected BABAs at x=4 and x=5, got %v", xs)
	}
}

func TestPlanDoesNotCommit(t *testing.T) {
	g := newTestEngine(t, pushLevel...)
	g.Move(Right)
	w := g.World()
	m := &MovementResolver{}

	plan := m.Plan(w, Right)
	if len(plan) != 2 {
		t.Fatalf("Expected a plan of 2 handles, got %d", len(plan))
	}
	if !w.Quiescent() {
		t.Error("Expected Plan to leave every entity idle")
	}
	if !m.CanMove(w, find(g, "BABA"), Right) {
		t.Error("Expected BABA to be able to move right")
	}
	if !m.CanMove(w, find(g, "BABA"), Up) {
		t.Error("Expected BABA to be able to move up")
	}
}

func TestTryMoveRequiresQuiescence(t *testing.T) {
	g := newTestEngine(t, pushLevel...)
	w := g.World()
	stack := NewStateStack(NewCatalog(), UndoCapacity)
	m := &MovementResolver{}

	if moved := m.TryMove(w, Right, stack); len(moved) != 1 {
		t.Fatalf("Expected first TryMove to commit, got %v", moved)
	}
	if moved := m.TryMove(w, Right, stack); moved != nil {
		t.Errorf("Expected TryMove to refuse while entities are moving, got %v", moved)
	}
	if stack.Depth() != 1 {
		t.Errorf("Expected exactly 1 frame, got %d", stack.Depth())
	}
}

func TestStopWordsDoNotBlock(t *testing.T) {
	// a word holding STOP would need a rule naming it, which never happens;
	// words in the way are walked over
	g := newTestEngine(t,
		"bIY.",
		"....",
		"BS..",
	)

	if outcome := g.Move(Right); len(outcome.Moved) != 1 {
		t.Errorf("Expected BABA to move onto the STOP word, got %d", len(outcome.Moved))
	}
}
