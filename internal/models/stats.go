package models

import "sort"

// CaseStats summarizes a test-case sequence for display.
type CaseStats struct {
	Total      int            `json:"total"`
	Priorities map[string]int `json:"priorities"`
	Types      map[string]int `json:"types"`
	Modules    map[string]int `json:"modules"`
}

// Summarize counts cases by priority, type and module after defaults have
// been applied.
func Summarize(cases []TestCase) CaseStats {
	stats := CaseStats{
		Total:      len(cases),
		Priorities: make(map[string]int),
		Types:      make(map[string]int),
		Modules:    make(map[string]int),
	}
	for i, tc := range cases {
		tc = tc.WithDefaults(i + 1)
		stats.Priorities[string(tc.Priority)]++
		stats.Types[string(tc.Type)]++
		stats.Modules[tc.ModuleOrDefault()]++
	}
	return stats
}

// SortedKeys returns the keys of counts in ascending order.
func SortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
