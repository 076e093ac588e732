// Command validate checks rulegrid level files. For every level it verifies:
//   - the file parses (JSON or YAML) and passes engine validation
//   - the starting rules make at least one entity YOU
//   - a WIN word exists somewhere, so the level can be won
//   - reachability: whether a WIN entity can be reached from YOU by
//     walking around STOP cells with the starting rules
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/rulegrid/game/engine"
)

var errInvalidLevels = errors.New("some levels have errors")

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

type cell struct{ x, y int }

// validateLevel loads a level file and builds its starting world
func validateLevel(filePath string, catalog *engine.Catalog) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}
	fail := func(format string, args ...any) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.ParseLevelConfig(data, filepath.Ext(filePath))
	if err != nil {
		fail("Invalid level file: %v", err)
		return result
	}

	g, err := engine.NewEngine(config, engine.WithCatalog(catalog))
	if err != nil {
		fail("%v", err)
		return result
	}
	state := g.GetState()

	var you, wins []cell
	winWords := 0
	for _, e := range state.Entities {
		if e.Kind == engine.KindWord.String() && e.Name == "WIN" {
			winWords++
		}
		for _, p := range e.Properties {
			switch p {
			case "YOU":
				you = append(you, cell{e.X, e.Y})
			case "WIN":
				wins = append(wins, cell{e.X, e.Y})
			}
		}
	}

	if len(you) == 0 {
		fail("No starting rule makes anything YOU")
	}
	if winWords == 0 {
		fail("Level has no WIN word and can never be won")
	}
	if state.Win {
		fail("Level is already won on its first frame")
	}

	if result.Valid {
		result.Errors = append(result.Errors, validateConnectivity(state, you, wins).Errors...)
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", state.Cols, state.Rows))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Entities: %d", len(state.Entities)))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Rules: %s", strings.Join(state.Rules, ", ")))
	}
	return result
}

// validateConnectivity flood-fills from every YOU cell over cells holding
// nothing STOP. PUSH cells count as passable. An unreachable WIN is only
// a warning: rules can be rewritten during play.
func validateConnectivity(state *engine.GameState, you, wins []cell) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	if len(wins) == 0 {
		result.Errors = append(result.Errors, "⚠ Nothing is WIN at start; a WIN rule must be formed")
		return result
	}

	blocked := make(map[cell]bool)
	for _, e := range state.Entities {
		for _, p := range e.Properties {
			if p == "STOP" {
				blocked[cell{e.X, e.Y}] = true
			}
		}
	}

	visited := make(map[cell]bool)
	queue := append([]cell{}, you...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if visited[c] {
			continue
		}
		visited[c] = true

		for _, d := range []cell{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			n := cell{c.x + d.x, c.y + d.y}
			if n.x < 0 || n.y < 0 || n.x >= state.Cols || n.y >= state.Rows {
				continue
			}
			if !visited[n] && !blocked[n] {
				queue = append(queue, n)
			}
		}
	}

	reachable := 0
	for _, w := range wins {
		if visited[w] {
			reachable++
		}
	}
	if reachable == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("⚠ Connectivity: none of %d WIN cells reachable from YOU without rewriting rules", len(wins)))
	} else {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Connectivity: %d/%d WIN cells reachable from YOU", reachable, len(wins)))
	}
	return result
}

// levelFiles lists the level files in dir, sorted
func levelFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func report(w io.Writer, result ValidationResult, quiet bool) {
	if result.Valid && quiet {
		return
	}
	fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
	if result.Valid {
		fmt.Fprintln(w, "✅ VALID")
		for _, info := range result.Errors {
			fmt.Fprintln(w, "  "+info)
		}
		return
	}
	fmt.Fprintln(w, "❌ INVALID")
	for _, err := range result.Errors {
		if !strings.HasPrefix(err, "✓") {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}
}

func newCommand(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check rulegrid level files",
		ArgsUsage: "[level files...]",
		Writer:    w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   "configs",
				Usage:   "directory scanned when no files are given",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only report invalid levels",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				if files, err = levelFiles(cmd.String("dir")); err != nil {
					return fmt.Errorf("finding level files: %w", err)
				}
			}
			if len(files) == 0 {
				return fmt.Errorf("no level files found in %s", cmd.String("dir"))
			}

			catalog := engine.NewCatalog()
			allValid := true
			for _, file := range files {
				result := validateLevel(file, catalog)
				allValid = allValid && result.Valid
				report(w, result, cmd.Bool("quiet"))
			}

			fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
			if !allValid {
				fmt.Fprintln(w, "❌ Some levels have errors")
				return errInvalidLevels
			}
			fmt.Fprintf(w, "✅ All %d levels are valid!\n", len(files))
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errInvalidLevels) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
