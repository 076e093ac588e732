package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testLevel = `{
	"name": "Test Level",
	"cols": 6,
	"rows": 4,
	"words_pushable": true,
	"layout": [
		"bIY...",
		"fIW...",
		"rIP#..",
		"B.R..F"
	],
	"legend": {
		"b": "WORD_BABA", "f": "WORD_FLAG", "r": "WORD_ROCK", "I": "IS",
		"Y": "YOU", "W": "WIN", "P": "PUSH", "B": "BABA", "R": "ROCK", "F": "FLAG", "#": "WALL"
	}
}`

func writeLevel(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write level: %v", err)
	}
	return path
}

func TestAbs(t *testing.T) {
	tests := []struct{ in, want int }{{5, 5}, {-5, 5}, {0, 0}}
	for _, tt := range tests {
		if got := abs(tt.in); got != tt.want {
			t.Errorf("abs(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAnalyzeLevel(t *testing.T) {
	path := writeLevel(t, t.TempDir(), "test.json", testLevel)

	a, err := analyzeLevel(path)
	if err != nil {
		t.Fatalf("analyzeLevel: %v", err)
	}

	if a.Name != "Test Level" || a.Cols != 6 || a.Rows != 4 {
		t.Errorf("Unexpected header: %+v", a)
	}
	if a.Counts["word"] != 9 || a.Counts["wall"] != 1 || a.Counts["character"] != 1 || a.Counts["object"] != 2 {
		t.Errorf("Unexpected counts: %v", a.Counts)
	}
	if strings.Join(a.Nouns, ",") != "BABA,FLAG,ROCK" {
		t.Errorf("Unexpected nouns: %v", a.Nouns)
	}
	if strings.Join(a.Properties, ",") != "PUSH,WIN,YOU" {
		t.Errorf("Unexpected properties: %v", a.Properties)
	}
	if len(a.You) != 1 || a.You[0] != (AnalysisPoint{0, 3}) {
		t.Errorf("Unexpected YOU: %v", a.You)
	}
	if a.Distance != 5 {
		t.Errorf("Expected distance 5, got %d", a.Distance)
	}
	if !a.WordsPushable {
		t.Error("Expected words_pushable to be read")
	}
}

func TestAnalyzeLevel_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := analyzeLevel(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
	bad := writeLevel(t, dir, "bad.json", `{"name":`)
	if _, err := analyzeLevel(bad); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestPrintAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		analysis *Analysis
		expected string
	}{
		{
			name:     "reachable",
			analysis: &Analysis{Name: "a", You: []AnalysisPoint{{0, 0}}, Win: []AnalysisPoint{{2, 0}}, Distance: 2},
			expected: "✅ Nearest WIN is 2 steps from YOU",
		},
		{
			name:     "no you",
			analysis: &Analysis{Name: "b", Distance: -1},
			expected: "nothing is YOU at start",
		},
		{
			name:     "no win, words fixed",
			analysis: &Analysis{Name: "c", You: []AnalysisPoint{{0, 0}}, Distance: -1},
			expected: "words cannot be pushed",
		},
		{
			name:     "no win, words pushable",
			analysis: &Analysis{Name: "d", You: []AnalysisPoint{{0, 0}}, WordsPushable: true, Distance: -1},
			expected: "a WIN rule must be formed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printAnalysis(&out, tt.analysis)
			if !strings.Contains(out.String(), tt.expected) {
				t.Errorf("Expected %q in output:\n%s", tt.expected, out.String())
			}
			if !strings.Contains(out.String(), "Starting rules: (none)") {
				t.Errorf("Expected empty rules line:\n%s", out.String())
			}
		})
	}
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	writeLevel(t, dir, "a.json", testLevel)
	writeLevel(t, dir, "b.json", `{"name": ""}`)

	var out bytes.Buffer
	if err := newCommand(&out).Run(context.Background(), []string{"analyze", "--dir", dir}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"=== Analyzing a.json ===",
		"Starting rules: BABA IS YOU, FLAG IS WIN, ROCK IS PUSH",
		"Possible sentences: 9",
		"=== Analyzing b.json ===",
		"Error: level validation: name is required",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output:\n%s", want, output)
		}
	}
}
