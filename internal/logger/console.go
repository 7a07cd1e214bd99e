// Package logger provides logging implementations for qadocs runs.
//
// Loggers report pipeline stages (extract, prompt, completion, normalize,
// render, write) per document kind, page-extraction progress and a final
// summary of every generated instance. Implementations are thread-safe and
// support console and file destinations.
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/qadocs/internal/models"
	"github.com/harrison/qadocs/internal/pipeline"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs pipeline progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything
// else means "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// fatih/color already honours NO_COLOR and non-TTY output.
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func allows(configured, message string) bool {
	return logLevelToInt(message) >= logLevelToInt(configured)
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !allows(cl.logLevel, strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput {
		level = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), level, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// writeLine writes an unlevelled line at the given filter level.
func (cl *ConsoleLogger) writeLine(level string, c *color.Color, message string) {
	if cl.writer == nil || !allows(cl.logLevel, level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	if cl.colorOutput && c != nil {
		message = c.Sprint(message)
	}
	fmt.Fprintf(cl.writer, "[%s] %s\n", timestamp(), message)
}

// LogStageStart logs the start of a pipeline stage at DEBUG level.
// Format: "[HH:MM:SS] test plan: completion..."
func (cl *ConsoleLogger) LogStageStart(kind models.Kind, stage models.Stage) {
	cl.writeLine("debug", nil, fmt.Sprintf("%s: %s...", kind.Label(), stage))
}

// LogStageComplete logs a finished stage at INFO level.
// Format: "[HH:MM:SS] test plan: completion done (12s)"
func (cl *ConsoleLogger) LogStageComplete(kind models.Kind, stage models.Stage, duration time.Duration) {
	cl.writeLine("info", color.New(color.FgGreen),
		fmt.Sprintf("%s: %s done (%s)", kind.Label(), stage, formatDuration(duration)))
}

// LogStageFail logs a failed stage at ERROR level.
func (cl *ConsoleLogger) LogStageFail(kind models.Kind, stage models.Stage, err error) {
	cl.writeLine("error", color.New(color.FgRed),
		fmt.Sprintf("%s: %s failed: %v", kind.Label(), stage, err))
}

// LogExtractProgress logs page extraction progress at DEBUG level.
// Format: "[HH:MM:SS] Extracting text [=====     ] 5/10 (50%)"
func (cl *ConsoleLogger) LogExtractProgress(page, total int) {
	c := color.New(color.FgCyan)
	if page >= total {
		c = color.New(color.FgGreen)
	}
	cl.writeLine("debug", c, "Extracting text "+renderBar(page, total, 10))
}

// LogSummary logs the outcome of every generated instance.
//
// Format:
//
//	=== Generation Summary ===
//	test plan: out/Acme_Test_Plan.docx (+ out/Acme_Test_Plan.json) in 14s
//	test cases: FAILED at completion: ...
//	Generated: 1/2
func (cl *ConsoleLogger) LogSummary(outcomes []pipeline.Outcome) {
	if cl.writer == nil || !allows(cl.logLevel, "info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	var b strings.Builder
	b.WriteString("\n=== Generation Summary ===\n")
	ok := 0
	for _, o := range outcomes {
		line := summaryLine(o)
		if o.Err == nil {
			ok++
			if cl.colorOutput {
				line = color.New(color.FgGreen).Sprint(line)
			}
		} else if cl.colorOutput {
			line = color.New(color.FgRed).Sprint(line)
		}
		b.WriteString(line + "\n")
	}

	total := fmt.Sprintf("Generated: %d/%d", ok, len(outcomes))
	if cl.colorOutput {
		c := color.New(color.FgGreen)
		if ok < len(outcomes) {
			c = color.New(color.FgYellow)
		}
		total = c.Sprint(total)
	}
	b.WriteString(total + "\n")

	io.WriteString(cl.writer, b.String())
}

func summaryLine(o pipeline.Outcome) string {
	if o.Err != nil {
		if stage := models.StageOf(o.Err); stage != "" {
			return fmt.Sprintf("%s: FAILED at %s: %s", o.Kind.Label(), stage, rootMessage(o.Err))
		}
		return fmt.Sprintf("%s: FAILED: %s", o.Kind.Label(), rootMessage(o.Err))
	}
	res := o.Result
	where := ""
	switch {
	case res.Paths != nil:
		where = fmt.Sprintf("%s (+ %s)", res.Paths.Document, res.Paths.Sidecar)
	case res.Buffers != nil:
		where = res.Buffers.DocumentName
	}
	line := fmt.Sprintf("%s: %s in %s", o.Kind.Label(), where, formatDuration(res.Duration))
	if res.Kind == models.KindTestCases {
		line += fmt.Sprintf(" [%d cases]", len(res.Cases))
	}
	return line
}

// rootMessage keeps summaries to one line.
func rootMessage(err error) string {
	msg := err.Error()
	var malformed *models.MalformedResponseError
	if errors.As(err, &malformed) {
		msg = "model reply was not valid JSON"
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// renderBar draws "[====      ] 4/10 (40%)".
func renderBar(current, total, width int) string {
	perc := 0
	if total > 0 {
		perc = min(max(current*100/total, 0), 100)
	}
	filled := perc * width / 100
	return fmt.Sprintf("[%s%s] %d/%d (%d%%)",
		strings.Repeat("=", filled), strings.Repeat(" ", width-filled), current, total, perc)
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogTrace(string) {}
func (n *NoOpLogger) LogDebug(string) {}
func (n *NoOpLogger) LogInfo(string) {}
func (n *NoOpLogger) LogWarn(string) {}
func (n *NoOpLogger) LogError(string) {}
func (n *NoOpLogger) LogStageStart(models.Kind, models.Stage) {}
func (n *NoOpLogger) LogStageComplete(models.Kind, models.Stage, time.Duration) {}
func (n *NoOpLogger) LogStageFail(models.Kind, models.Stage, error) {}
func (n *NoOpLogger) LogExtractProgress(int, int) {}
func (n *NoOpLogger) LogSummary([]pipeline.Outcome) {}
