package models

import (
	"fmt"
	"strings"
)

// Defaults applied to test cases the model left incomplete.
const (
	DefaultPriority = "P2"
	DefaultType     = "Functional"
	DefaultPlatform = "Both"
	DefaultModule   = "General"
)

// Priorities lists the accepted priority values, highest first.
var Priorities = []string{"P1", "P2", "P3"}

// CaseTypes lists the accepted test types.
var CaseTypes = []string{
	"Functional",
	"Integration",
	"UI",
	"Performance",
	"Security",
	"Cross-Platform",
	"Edge Case",
	"Regression",
}

// Platforms lists the accepted target platforms.
var Platforms = []string{"Android", "iOS", "Both", "Web"}

// TestCase is one row of the test-case spreadsheet.
type TestCase struct {
	ID            Text `json:"id,omitempty"`
	Module        Text `json:"module,omitempty"`
	Title         Text `json:"title,omitempty"`
	Description   Text `json:"description,omitempty"`
	Preconditions Text `json:"preconditions,omitempty"`
	Steps         Text `json:"steps,omitempty"`
	Expected      Text `json:"expected,omitempty"`
	Priority      Text `json:"priority,omitempty"`
	Type          Text `json:"type,omitempty"`
	Platform      Text `json:"platform,omitempty"`
}

// CaseID returns the identifier for the case at 1-based position n.
func CaseID(n int) string {
	return fmt.Sprintf("TC_%03d", n)
}

// WithDefaults returns a copy of tc with missing id, priority, type and
// platform filled in and known vocabulary values canonicalized. position is
// the 1-based index of the case in its sequence. Module is left untouched.
func (tc TestCase) WithDefaults(position int) TestCase {
	if strings.TrimSpace(string(tc.ID)) == "" {
		tc.ID = Text(CaseID(position))
	}
	tc.Priority = Text(canonical(tc.Priority.Or(DefaultPriority), Priorities))
	tc.Type = Text(canonical(tc.Type.Or(DefaultType), CaseTypes))
	tc.Platform = Text(canonical(tc.Platform.Or(DefaultPlatform), Platforms))
	return tc
}

// ModuleOrDefault returns the module name used for grouping statistics.
func (tc TestCase) ModuleOrDefault() string {
	return strings.TrimSpace(tc.Module.Or(DefaultModule))
}

// ApplyCaseDefaults returns a new slice with WithDefaults applied to every
// case in order. The input is not modified.
func ApplyCaseDefaults(cases []TestCase) []TestCase {
	out := make([]TestCase, len(cases))
	for i, tc := range cases {
		out[i] = tc.WithDefaults(i + 1)
	}
	return out
}

// canonical maps value onto the matching entry of vocab, ignoring case,
// spaces, hyphens and underscores. Values outside the vocabulary are
// returned trimmed but otherwise unchanged.
func canonical(value string, vocab []string) string {
	value = strings.TrimSpace(value)
	key := vocabKey(value)
	for _, v := range vocab {
		if vocabKey(v) == key {
			return v
		}
	}
	return value
}

func vocabKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(s))
}
