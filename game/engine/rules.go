package engine

import "fmt"

// Rule is a NOUN IS PREDICATE sentence found on the grid. Rules are derived
// fresh on every scan.
type Rule struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s %s", r.Subject, IsToken, r.Predicate)
}

// RuleEngine derives rules from word placement and applies them
type RuleEngine struct {
	factory Factory
}

// NewRuleEngine returns a rule engine resolving transformation targets
// through factory
func NewRuleEngine(factory Factory) *RuleEngine {
	return &RuleEngine{factory: factory}
}

// DeriveRules lists every sentence on the grid: all columns left to right,
// then all rows top to bottom. The order is the application order.
func (re *RuleEngine) DeriveRules(w *World) []Rule {
	var rules []Rule

	for col := 0; col < w.Cols; col++ {
		tokens := make([]string, w.Rows)
		w.EachIn(CategoryWord, func(_ Handle, e *Entity) {
			if e.Pos.X == col && e.Pos.Y >= 0 && e.Pos.Y < w.Rows {
				tokens[e.Pos.Y] = e.Token()
			}
		})
		rules = appendSentences(rules, tokens)
	}

	for row := 0; row < w.Rows; row++ {
		tokens := make([]string, w.Cols)
		w.EachIn(CategoryWord, func(_ Handle, e *Entity) {
			if e.Pos.Y == row && e.Pos.X >= 0 && e.Pos.X < w.Cols {
				tokens[e.Pos.X] = e.Token()
			}
		})
		rules = appendSentences(rules, tokens)
	}

	return rules
}

func appendSentences(rules []Rule, tokens []string) []Rule {
	for i := 0; i+2 < len(tokens); i++ {
		subject, verb, predicate := tokens[i], tokens[i+1], tokens[i+2]
		if subject == "" || predicate == "" || verb != IsToken {
			continue
		}
		rules = append(rules, Rule{Subject: subject, Predicate: predicate})
	}
	return rules
}

// Scan clears every non-word property set and reapplies all rules in scan
// order. It returns the rules it applied.
func (re *RuleEngine) Scan(w *World) []Rule {
	w.eachRegular(func(_ Handle, e *Entity) {
		e.Properties = 0
	})

	rules := re.DeriveRules(w)
	for _, r := range rules {
		re.apply(w, r)
	}
	w.rescan = false
	return rules
}

func (re *RuleEngine) apply(w *World, r Rule) {
	if p, ok := ParseProperty(r.Predicate); ok {
		w.eachRegular(func(_ Handle, e *Entity) {
			if e.Name == r.Subject {
				e.Properties.Add(p)
			}
		})
		return
	}

	form, err := re.factory.Create(r.Predicate)
	if err != nil || form.IsWord() {
		return
	}
	w.eachRegular(func(_ Handle, e *Entity) {
		if e.Name == r.Subject {
			w.Transform(e, form)
		}
	})
}
