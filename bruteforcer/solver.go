package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wricardo/rulegrid/game/engine"
	"go.uber.org/zap"
)

var (
	ErrNoSolution  = errors.New("no solution found")
	ErrSearchLimit = errors.New("search limit reached")
)

// Solver searches a level breadth-first, so the first win it finds uses
// the fewest moves. States are compared by entity name and cell only.
type Solver struct {
	config    *engine.LevelConfig
	maxStates int
	logger    *zap.SugaredLogger
}

type searchNode struct {
	snapshot []byte
	path     []engine.Direction
}

// NewSolver returns a solver that gives up after maxStates distinct states
func NewSolver(config *engine.LevelConfig, maxStates int, logger *zap.SugaredLogger) *Solver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Solver{config: config, maxStates: maxStates, logger: logger}
}

// Solve returns the shortest winning move sequence
func (s *Solver) Solve(ctx context.Context) ([]engine.Direction, error) {
	g, err := engine.NewEngine(s.config)
	if err != nil {
		return nil, err
	}
	if g.IsWin() {
		return nil, nil
	}

	start, err := g.Snapshot()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{fingerprint(g.GetState()): true}
	queue := []searchNode{{snapshot: start}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := queue[0]
		queue = queue[1:]

		for _, d := range engine.Directions {
			if _, err := g.Restore(n.snapshot); err != nil {
				return nil, fmt.Errorf("restoring search state: %w", err)
			}
			out := g.Move(d)
			if len(out.Moved) == 0 {
				continue
			}

			path := append(append([]engine.Direction{}, n.path...), d)
			if out.Win {
				s.logger.Infof("Solved in %d moves after %d states", len(path), len(seen))
				return path, nil
			}

			state := g.GetState()
			if !hasYou(state) {
				continue
			}
			key := fingerprint(state)
			if seen[key] {
				continue
			}
			seen[key] = true
			if s.maxStates > 0 && len(seen) > s.maxStates {
				return nil, fmt.Errorf("%w: %d states", ErrSearchLimit, s.maxStates)
			}

			snap, err := g.Snapshot()
			if err != nil {
				return nil, err
			}
			queue = append(queue, searchNode{snapshot: snap, path: path})
		}

		if len(seen)%10000 == 0 {
			s.logger.Debugf("Explored %d states, queue %d", len(seen), len(queue))
		}
	}
	return nil, ErrNoSolution
}

// fingerprint identifies a board by what is where
func fingerprint(state *engine.GameState) string {
	cells := make([]string, 0, len(state.Entities))
	for _, e := range state.Entities {
		cells = append(cells, fmt.Sprintf("%s@%d,%d", e.Name, e.X, e.Y))
	}
	sort.Strings(cells)
	return strings.Join(cells, ";")
}

func hasYou(state *engine.GameState) bool {
	for _, e := range state.Entities {
		for _, p := range e.Properties {
			if p == "YOU" {
				return true
			}
		}
	}
	return false
}

// directionNames converts a path for the REST API
func directionNames(path []engine.Direction) []string {
	names := make([]string, len(path))
	for i, d := range path {
		names[i] = d.String()
	}
	return names
}
