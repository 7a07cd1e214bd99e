package display

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorEnabled reports whether w is a terminal that should receive colored
// output.
func ColorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// paint applies c to s when enabled.
func paint(enabled bool, c *color.Color, s string) string {
	if !enabled {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

// ProgressIndicator manages multi-step progress display.
type ProgressIndicator struct {
	writer  io.Writer
	title   string
	total   int
	current int
	color   bool
}

// NewProgressIndicator creates a progress indicator for total steps.
func NewProgressIndicator(w io.Writer, total int, title string) *ProgressIndicator {
	return &ProgressIndicator{
		writer: w,
		title:  title,
		total:  total,
		color:  ColorEnabled(w),
	}
}

// Start displays the header message.
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "%s:\n", p.title)
}

// Step displays "[N/Total] name" for the next item.
func (p *ProgressIndicator) Step(name string) {
	p.current++
	line := fmt.Sprintf("  [%d/%d] %s", p.current, p.total, filepath.Base(name))
	fmt.Fprintln(p.writer, paint(p.color, color.New(color.FgCyan), line))
}

// Complete displays "✓ <verb> N of Total".
func (p *ProgressIndicator) Complete(verb string, succeeded int) {
	c := color.New(color.FgGreen)
	mark := "✓"
	if succeeded < p.total {
		c = color.New(color.FgYellow)
		mark = "!"
	}
	fmt.Fprintf(p.writer, "%s %s %d of %d\n", paint(p.color, c, mark), verb, succeeded, p.total)
}
