package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// CommandType is the discrete input consumed by one tick
type CommandType int

const (
	CmdNone CommandType = iota
	CmdMove
	CmdUndo
	CmdRescan
	CmdClearHistory
)

// Command is one tick's input
type Command struct {
	Type      CommandType
	Direction Direction
}

// MoveCommand builds a direction-move command
func MoveCommand(d Direction) Command { return Command{Type: CmdMove, Direction: d} }

// TickReport describes what happened during one tick
type TickReport struct {
	Tick          uint64
	Completed     []Handle
	Removed       int
	MoveAttempted bool
	Moved         []Handle
	Undone        bool
	Scanned       bool
	Rules         []Rule
	Win           bool
}

// MoveOutcome summarizes a whole turn: the commit plus the settling ticks
type MoveOutcome struct {
	Moved   []Handle
	Ticks   int
	Removed int
	Win     bool
}

// Engine provides the main interface for game operations
type Engine interface {
	// State
	GetState() *GameState
	GetConfig() *LevelConfig
	World() *World
	IsWin() bool
	ConsumeWin() bool
	UndoDepth() int

	// Simulation
	Tick(cmd Command) TickReport
	Settle() int

	// Turn operations
	Move(d Direction) MoveOutcome
	Undo() bool
	Rescan() []Rule
	ClearHistory()
	Reset() error

	// Editing
	Place(name string, pos Position, orientation, side int) (Handle, error)
	Remove(c Category, pos Position) (Handle, error)

	// Persistence
	Snapshot() ([]byte, error)
	Restore(data []byte) (int, error)
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; callers serialize access per session.
type GameEngine struct {
	config  *LevelConfig
	catalog *Catalog
	factory Factory
	logger  *zap.Logger

	world        *World
	rules        *RuleEngine
	mover        *MovementResolver
	interactions InteractionResolver
	undo         *StateStack

	speed    int
	debounce int
	tick     uint64
	message  string
	history  []TurnEntry
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithLogger sets the engine logger
func WithLogger(l *zap.Logger) Option {
	return func(g *GameEngine) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithCatalog sets the catalog used for validation and, unless WithFactory
// is also given, entity creation
func WithCatalog(c *Catalog) Option {
	return func(g *GameEngine) {
		if c != nil {
			g.catalog = c
		}
	}
}

// WithFactory overrides entity creation
func WithFactory(f Factory) Option {
	return func(g *GameEngine) {
		if f != nil {
			g.factory = f
		}
	}
}

// NewEngine validates config and builds its starting world
func NewEngine(config *LevelConfig, opts ...Option) (*GameEngine, error) {
	g := &GameEngine{
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.catalog == nil {
		g.catalog = NewCatalog()
	}
	if g.factory == nil {
		g.factory = g.catalog
	}

	if err := ValidateLevelConfig(config, g.catalog); err != nil {
		return nil, err
	}

	g.rules = NewRuleEngine(g.factory)
	g.mover = &MovementResolver{WordsPushable: config.WordsPushable}
	g.undo = NewStateStack(g.factory, UndoCapacity)
	g.speed = config.speed()

	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// NewEngineWithDefaults creates an engine on the built-in default level
func NewEngineWithDefaults() *GameEngine {
	g, err := NewEngine(DefaultLevel())
	if err != nil {
		panic(fmt.Sprintf("default level is invalid: %v", err))
	}
	return g
}

// GetConfig returns the level configuration
func (g *GameEngine) GetConfig() *LevelConfig { return g.config }

// World returns the live world
func (g *GameEngine) World() *World { return g.world }

// IsWin reports the win flag
func (g *GameEngine) IsWin() bool { return g.world.Win() }

// ConsumeWin reads and clears the win flag
func (g *GameEngine) ConsumeWin() bool {
	won := g.world.Win()
	g.world.ClearWin()
	return won
}

// UndoDepth returns the number of undoable turns
func (g *GameEngine) UndoDepth() int { return g.undo.Depth() }

// Tick advances the simulation by one fixed step and applies cmd.
//
// Order: advance motion (snap, interact, request rescan), sweep dead
// entities, apply the command, scan rules if requested and quiescent,
// then the self-win check.
func (g *GameEngine) Tick(cmd Command) TickReport {
	g.tick++
	w := g.world
	rep := TickReport{Tick: g.tick}

	w.Each(func(h Handle, e *Entity) {
		if !e.Alive {
			return
		}
		if e.advance(g.speed, w.TileSize) {
			rep.Completed = append(rep.Completed, h)
			w.RequestRescan()
			g.interactions.Resolve(w, e)
		}
	})
	rep.Removed = w.Sweep()

	quiet := w.Quiescent()
	if quiet {
		g.debounce++
	}

	switch cmd.Type {
	case CmdMove:
		if quiet && g.debounce >= MoveDebounceTicks {
			rep.MoveAttempted = true
			if moved := g.mover.TryMove(w, cmd.Direction, g.undo); moved != nil {
				g.debounce = 0
				rep.Moved = moved
				g.logger.Debug("move committed",
					zap.String("direction", cmd.Direction.String()),
					zap.Int("entities", len(moved)),
					zap.Int("undo_depth", g.undo.Depth()))
			}
		}
	case CmdUndo:
		if quiet {
			rep.Undone = g.undo.Pop(w)
			if rep.Undone {
				w.RequestRescan()
				g.logger.Debug("undo applied", zap.Int("undo_depth", g.undo.Depth()))
			}
		}
	case CmdRescan:
		w.RequestRescan()
	case CmdClearHistory:
		g.undo.Clear()
	}

	if w.RescanPending() && w.Quiescent() {
		rep.Rules = g.rules.Scan(w)
		rep.Scanned = true
		g.logger.Debug("rules scanned", zap.Int("rules", len(rep.Rules)))
	}

	checkSelfWin(w)
	rep.Win = w.Win()
	return rep
}

// Settle ticks until every entity is idle and no rescan is pending. It
// returns the number of ticks run.
func (g *GameEngine) Settle() int {
	n := 0
	for n < MaxSettleTicks && (!g.world.Quiescent() || g.world.RescanPending()) {
		g.Tick(Command{})
		n++
	}
	return n
}

// Move plays a whole turn in direction d: wait out the debounce, commit,
// and settle. Moved is empty when nothing could move.
func (g *GameEngine) Move(d Direction) MoveOutcome {
	var out MoveOutcome
	out.Ticks = g.Settle()

	attempted := false
	for i := 0; i <= MoveDebounceTicks && !attempted; i++ {
		rep := g.Tick(MoveCommand(d))
		out.Ticks++
		out.Removed += rep.Removed
		attempted = rep.MoveAttempted
		out.Moved = rep.Moved
	}

	if len(out.Moved) == 0 {
		if attempted {
			g.message = fmt.Sprintf("Nothing can move %s", d)
		} else {
			g.message = fmt.Sprintf("Cannot move %s while entities are still moving", d)
		}
		g.record(d.String(), 0, false)
		out.Win = g.world.Win()
		return out
	}

	before := g.world.Count()
	out.Ticks += g.Settle()
	out.Removed += before - g.world.Count()
	out.Win = g.world.Win()

	g.message = fmt.Sprintf("Moved %d entities %s", len(out.Moved), d)
	g.record(d.String(), len(out.Moved), len(out.Moved) > 0)
	if out.Win {
		g.message = "Win!"
	}
	return out
}

// Undo reverts the last committed turn and settles. It returns false when
// there is no history.
func (g *GameEngine) Undo() bool {
	g.Settle()
	rep := g.Tick(Command{Type: CmdUndo})
	if !rep.Undone {
		g.message = "Nothing to undo"
		g.record("undo", 0, false)
		return false
	}
	g.Settle()
	g.message = "Undid last move"
	g.record("undo", 0, true)
	return true
}

// Rescan forces a rule scan and returns the active rules
func (g *GameEngine) Rescan() []Rule {
	g.Tick(Command{Type: CmdRescan})
	g.Settle()
	g.message = "Rules rescanned"
	return g.rules.DeriveRules(g.world)
}

// ClearHistory drops the undo history
func (g *GameEngine) ClearHistory() {
	g.Tick(Command{Type: CmdClearHistory})
	g.message = "Undo history cleared"
}

// Reset rebuilds the level from its configuration. The current world is
// replaced only once the new one is complete.
func (g *GameEngine) Reset() error {
	w, err := BuildWorld(g.config, g.factory)
	if err != nil {
		return fmt.Errorf("failed to build level %q: %w", g.config.Name, err)
	}
	g.swap(w)
	g.history = nil
	g.message = fmt.Sprintf("Level %s", g.config.Name)
	return nil
}

// swap installs w as the live world with fresh history and rules
func (g *GameEngine) swap(w *World) {
	g.world = w
	g.undo.Clear()
	g.debounce = 0
	g.rules.Scan(w)
	checkSelfWin(w)
}

// Place creates name at pos, as the level editor does. Rules are rescanned
// on the next quiescent tick.
func (g *GameEngine) Place(name string, pos Position, orientation, side int) (Handle, error) {
	e, err := createShaped(g.factory, name, orientation, side)
	if err != nil {
		return Handle{}, err
	}
	h, err := g.world.Place(e, pos)
	if err != nil {
		return Handle{}, err
	}
	g.edited()
	g.message = fmt.Sprintf("Placed %s at (%d,%d)", name, pos.X, pos.Y)
	return h, nil
}

// Remove deletes the first entity of category c at pos
func (g *GameEngine) Remove(c Category, pos Position) (Handle, error) {
	h, err := g.world.RemoveAt(c, pos)
	if err != nil {
		return Handle{}, err
	}
	g.edited()
	g.message = fmt.Sprintf("Removed %s at (%d,%d)", c, pos.X, pos.Y)
	return h, nil
}

// edited drops undo history after an editor change; frames captured
// before the edit no longer describe the world.
func (g *GameEngine) edited() {
	g.undo.Clear()
	g.debounce = 0
	g.world.RequestRescan()
}

// Snapshot serializes the settled world
func (g *GameEngine) Snapshot() ([]byte, error) {
	g.Settle()
	return Encode(g.world, g.config.Name)
}

// Restore replaces the world with a snapshot. A snapshot that fails to
// decode leaves the current world untouched. It returns the number of
// slots skipped because their entity could not be created.
func (g *GameEngine) Restore(data []byte) (int, error) {
	w, _, skipped, err := Decode(data, g.factory)
	if err != nil {
		return 0, err
	}
	g.swap(w)
	g.history = nil
	if skipped > 0 {
		g.logger.Warn("snapshot slots skipped", zap.Int("skipped", skipped))
	}
	g.message = "Snapshot restored"
	return skipped, nil
}
