// Package display provides the user-facing terminal output of the qadocs CLI:
// upload progress, warnings and the end-of-run report of generated
// documents.
//
// # Progress Indicators
//
//	progress := display.NewProgressIndicator(os.Stdout, len(files), "Uploading documents")
//	progress.Start()
//	for _, file := range files {
//	    progress.Step(file)
//	    // ... upload file ...
//	}
//	progress.Complete("Uploaded")
//
// # Warnings
//
//	display.Warning{
//	    Title:      "Confluence upload skipped",
//	    Message:    "CONFLUENCE_API_TOKEN is not set",
//	    Suggestion: "Add the CONFLUENCE_* variables to .env",
//	}.Display(os.Stderr)
//
// # Reports
//
// Artifacts lists written files with their sizes; CaseBreakdown prints
// test-case counts by priority, type and module.
//
// Color is used only when the writer is a terminal (go-isatty) and NO_COLOR
// is unset (fatih/color).
package display
