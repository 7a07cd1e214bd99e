package logger

import (
	"time"

	"github.com/harrison/qadocs/internal/models"
	"github.com/harrison/qadocs/internal/pipeline"
)

// Logger is the full set of events a qadocs run reports. ConsoleLogger,
// FileLogger and NoOpLogger all implement it.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogStageStart(kind models.Kind, stage models.Stage)
	LogStageComplete(kind models.Kind, stage models.Stage, duration time.Duration)
	LogStageFail(kind models.Kind, stage models.Stage, err error)
	LogExtractProgress(page, total int)
	LogSummary(outcomes []pipeline.Outcome)
}

// MultiLogger forwards every event to each of its loggers in order.
type MultiLogger []Logger

// NewMultiLogger drops nil entries.
func NewMultiLogger(loggers ...Logger) MultiLogger {
	m := make(MultiLogger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

func (m MultiLogger) LogTrace(message string) {
	for _, l := range m {
		l.LogTrace(message)
	}
}

func (m MultiLogger) LogDebug(message string) {
	for _, l := range m {
		l.LogDebug(message)
	}
}

func (m MultiLogger) LogInfo(message string) {
	for _, l := range m {
		l.LogInfo(message)
	}
}

func (m MultiLogger) LogWarn(message string) {
	for _, l := range m {
		l.LogWarn(message)
	}
}

func (m MultiLogger) LogError(message string) {
	for _, l := range m {
		l.LogError(message)
	}
}

func (m MultiLogger) LogStageStart(kind models.Kind, stage models.Stage) {
	for _, l := range m {
		l.LogStageStart(kind, stage)
	}
}

func (m MultiLogger) LogStageComplete(kind models.Kind, stage models.Stage, duration time.Duration) {
	for _, l := range m {
		l.LogStageComplete(kind, stage, duration)
	}
}

func (m MultiLogger) LogStageFail(kind models.Kind, stage models.Stage, err error) {
	for _, l := range m {
		l.LogStageFail(kind, stage, err)
	}
}

func (m MultiLogger) LogExtractProgress(page, total int) {
	for _, l := range m {
		l.LogExtractProgress(page, total)
	}
}

func (m MultiLogger) LogSummary(outcomes []pipeline.Outcome) {
	for _, l := range m {
		l.LogSummary(outcomes)
	}
}

var (
	_ Logger = (*ConsoleLogger)(nil)
	_ Logger = (*FileLogger)(nil)
	_ Logger = (*NoOpLogger)(nil)
	_ Logger = MultiLogger(nil)
)
