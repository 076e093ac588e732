// Command analyze prints quick, human-readable heuristics about level files
// in the project's configs directory. It summarizes dimensions, entity counts,
// the starting rules, the vocabulary of words on the board, and how far the
// nearest WIN is from YOU.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/rulegrid/game/engine"
)

// AnalysisPoint denotes a grid coordinate used during analysis output.
type AnalysisPoint struct {
	X, Y int
}

// Analysis is what analyzeLevel learns about one level
type Analysis struct {
	Name          string
	Cols, Rows    int
	Counts        map[string]int
	Rules         []string
	Nouns         []string
	Properties    []string
	You           []AnalysisPoint
	Win           []AnalysisPoint
	WordsPushable bool
	// Distance is the smallest Manhattan distance from YOU to WIN, or -1
	Distance int
}

// analyzeLevel loads a level and inspects its starting world
func analyzeLevel(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	config, err := engine.ParseLevelConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	g, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}
	state := g.GetState()

	a := &Analysis{
		Name:          config.Name,
		Cols:          state.Cols,
		Rows:          state.Rows,
		Counts:        make(map[string]int),
		Rules:         state.Rules,
		WordsPushable: config.WordsPushable,
		Distance:      -1,
	}

	nouns := make(map[string]bool)
	props := make(map[string]bool)
	for _, e := range state.Entities {
		a.Counts[e.Kind]++
		if e.Kind == engine.KindWord.String() {
			switch {
			case strings.HasPrefix(e.Name, "WORD_"):
				nouns[strings.TrimPrefix(e.Name, "WORD_")] = true
			case e.Name != engine.IsToken:
				if _, ok := engine.ParseProperty(e.Name); ok {
					props[e.Name] = true
				}
			}
		}
		for _, p := range e.Properties {
			switch p {
			case "YOU":
				a.You = append(a.You, AnalysisPoint{e.X, e.Y})
			case "WIN":
				a.Win = append(a.Win, AnalysisPoint{e.X, e.Y})
			}
		}
	}
	a.Nouns = sortedKeys(nouns)
	a.Properties = sortedKeys(props)

	for _, y := range a.You {
		for _, w := range a.Win {
			if d := abs(y.X-w.X) + abs(y.Y-w.Y); a.Distance < 0 || d < a.Distance {
				a.Distance = d
			}
		}
	}
	return a, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// printAnalysis writes the report for a
func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Cols, a.Rows)
	for _, kind := range []string{"word", "tile", "wall", "object", "character"} {
		if n := a.Counts[kind]; n > 0 {
			fmt.Fprintf(w, "%s entities: %d\n", kind, n)
		}
	}

	if len(a.Rules) == 0 {
		fmt.Fprintf(w, "Starting rules: (none)\n")
	} else {
		fmt.Fprintf(w, "Starting rules: %s\n", strings.Join(a.Rules, ", "))
	}
	fmt.Fprintf(w, "Nouns on board: %s\n", strings.Join(a.Nouns, " "))
	fmt.Fprintf(w, "Properties on board: %s\n", strings.Join(a.Properties, " "))
	fmt.Fprintf(w, "Possible sentences: %d\n", len(a.Nouns)*len(a.Properties))

	switch {
	case len(a.You) == 0:
		fmt.Fprintf(w, "⚠️  CRITICAL: nothing is YOU at start\n")
	case len(a.Win) == 0 && !a.WordsPushable:
		fmt.Fprintf(w, "⚠️  CRITICAL: nothing is WIN and words cannot be pushed\n")
	case len(a.Win) == 0:
		fmt.Fprintf(w, "⚠️  WARNING: nothing is WIN at start; a WIN rule must be formed\n")
	default:
		fmt.Fprintf(w, "✅ Nearest WIN is %d steps from YOU\n", a.Distance)
	}
}

func newCommand(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "summarize rulegrid level files",
		ArgsUsage: "[level files...]",
		Writer:    w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Value: "configs",
				Usage: "directory scanned when no files are given",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
					matches, err := filepath.Glob(filepath.Join(cmd.String("dir"), pattern))
					if err != nil {
						return err
					}
					files = append(files, matches...)
				}
				sort.Strings(files)
			}

			for _, file := range files {
				fmt.Fprintf(w, "\n=== Analyzing %s ===\n", filepath.Base(file))
				a, err := analyzeLevel(file)
				if err != nil {
					fmt.Fprintf(w, "Error: %v\n", err)
					continue
				}
				printAnalysis(w, a)
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
