package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/qadocs/internal/models"
	"github.com/harrison/qadocs/internal/pipeline"
)

// FileLogger writes run events to a timestamped log file in the log
// directory and keeps a latest.log symlink pointing at the newest run.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing to logDir at the given level.
// The directory is created if it doesn't exist.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== qadocs Run Log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// Path returns the run log file path.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) LogTrace(message string) { fl.logWithLevel("TRACE", message) }
func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("DEBUG", message) }
func (fl *FileLogger) LogInfo(message string)  { fl.logWithLevel("INFO", message) }
func (fl *FileLogger) LogWarn(message string)  { fl.logWithLevel("WARN", message) }
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("ERROR", message) }

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !allows(fl.logLevel, strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogStageStart records a stage start at DEBUG level.
func (fl *FileLogger) LogStageStart(kind models.Kind, stage models.Stage) {
	fl.logWithLevel("DEBUG", fmt.Sprintf("%s: %s started", kind, stage))
}

// LogStageComplete records a stage completion with its exact duration.
func (fl *FileLogger) LogStageComplete(kind models.Kind, stage models.Stage, duration time.Duration) {
	fl.logWithLevel("INFO", fmt.Sprintf("%s: %s completed in %s", kind, stage, duration.Round(time.Millisecond)))
}

// LogStageFail records the full error, including multi-line excerpts.
func (fl *FileLogger) LogStageFail(kind models.Kind, stage models.Stage, err error) {
	fl.logWithLevel("ERROR", fmt.Sprintf("%s: %s failed: %v", kind, stage, err))
}

// LogExtractProgress records each extracted page at TRACE level.
func (fl *FileLogger) LogExtractProgress(page, total int) {
	fl.logWithLevel("TRACE", fmt.Sprintf("extracted page %d/%d", page, total))
}

// LogSummary writes one block per instance with model and token usage.
func (fl *FileLogger) LogSummary(outcomes []pipeline.Outcome) {
	var b strings.Builder
	b.WriteString("\n=== Summary ===\n")
	ok := 0
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(&b, "%s: FAILED (%s)\n  %v\n", o.Kind, stageOrUnknown(o.Err), o.Err)
			continue
		}
		ok++
		res := o.Result
		fmt.Fprintf(&b, "%s: OK in %s\n", o.Kind, res.Duration.Round(time.Millisecond))
		fmt.Fprintf(&b, "  project: %s\n", res.Project)
		if res.Paths != nil {
			fmt.Fprintf(&b, "  document: %s\n  sidecar: %s\n", res.Paths.Document, res.Paths.Sidecar)
		}
		if res.Model != "" {
			fmt.Fprintf(&b, "  model: %s (tokens: %d prompt, %d completion)\n",
				res.Model, res.Usage.PromptTokens, res.Usage.CompletionTokens)
		}
		if res.Stats != nil {
			fmt.Fprintf(&b, "  cases: %d\n", res.Stats.Total)
		}
	}
	fmt.Fprintf(&b, "Generated: %d/%d\n", ok, len(outcomes))
	fl.writeRunLog(b.String())
}

func stageOrUnknown(err error) models.Stage {
	if s := models.StageOf(err); s != "" {
		return s
	}
	return "unknown"
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
