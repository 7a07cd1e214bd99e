package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/qadocs/internal/models"
)

// Artifacts lists the written files with their sizes. A file that cannot
// be stat'ed is listed without a size.
func Artifacts(w io.Writer, paths ...string) {
	if len(paths) == 0 {
		return
	}
	on := ColorEnabled(w)
	fmt.Fprintln(w, "Generated files:")
	for _, p := range paths {
		size := ""
		if info, err := os.Stat(p); err == nil {
			size = " (" + FormatSize(info.Size()) + ")"
		}
		fmt.Fprintf(w, "  %s %s%s\n", paint(on, color.New(color.FgGreen), "✓"), p, size)
	}
}

// FormatSize renders a byte count as B, KB or MB.
func FormatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// CaseBreakdown prints counts by priority, type and module, keys sorted.
//
//	Test cases: 12
//	  Priority  P1: 3  P2: 7  P3: 2
//	  Type      Functional: 9  Security: 3
//	  Module    Auth: 4  General: 8
func CaseBreakdown(w io.Writer, stats *models.CaseStats) {
	if stats == nil {
		return
	}
	on := ColorEnabled(w)
	fmt.Fprintf(w, "Test cases: %s\n", paint(on, color.New(color.Bold), fmt.Sprint(stats.Total)))
	if stats.Total == 0 {
		return
	}
	row := func(label string, counts map[string]int) {
		parts := make([]string, 0, len(counts))
		for _, k := range models.SortedKeys(counts) {
			parts = append(parts, fmt.Sprintf("%s: %d", k, counts[k]))
		}
		fmt.Fprintf(w, "  %-9s %s\n", label, strings.Join(parts, "  "))
	}
	row("Priority", stats.Priorities)
	row("Type", stats.Types)
	row("Module", stats.Modules)
}
