package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning, in yellow on a terminal.
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    " + w.Message + "\n")
	}

	if len(w.Files) > 0 {
		if len(w.Files) == 1 {
			b.WriteString("    Affected file:\n")
		} else {
			b.WriteString("    Affected files:\n")
		}
		for i, file := range w.Files {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    " + w.Suggestion + "\n")
	}

	fmt.Fprint(out, paint(ColorEnabled(out), color.New(color.FgYellow), b.String()))
}

// WarnUploadSkipped explains why --upload did nothing.
func WarnUploadSkipped(reason error, files []string) Warning {
	return Warning{
		Title:      "Confluence upload skipped",
		Message:    reason.Error(),
		Files:      files,
		Suggestion: "Set the CONFLUENCE_* variables (or the confluence section of .qadocs/config.yaml) and run 'qadocs upload'",
	}
}
