// Package logger provides the console logging used across the CSR pipeline.
//
// Output is timestamped, level-filtered, and thread-safe. Color is enabled
// automatically when writing to a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/pharmatext/csrgen/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs pipeline progress to a writer with [HH:MM:SS]
// timestamps. It supports log level filtering and is safe for concurrent
// use; the two evaluators may log from separate goroutines.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger writing to the provided writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive);
// empty or invalid levels default to "info".
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
		// color honors NO_COLOR and TTY detection
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel lowercases and validates a log level string.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

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

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
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

func (cl *ConsoleLogger) logWithLevel(level, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, colorLevel(level), message)
	} else {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
	}
}

func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogIterationStart logs the beginning of an improvement-loop iteration at
// INFO level. Format: "[HH:MM:SS] Iteration <i>/<max>: evaluating <path>"
func (cl *ConsoleLogger) LogIterationStart(iteration, maxIterations int, docPath string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := fmt.Sprintf("Iteration %d/%d", iteration, maxIterations)
	if cl.colorOutput {
		label = color.New(color.Bold).Sprint(label)
	}
	fmt.Fprintf(cl.writer, "[%s] %s: evaluating %s\n", timestamp(), label, docPath)
}

// LogScores logs one iteration's scores at INFO level.
func (cl *ConsoleLogger) LogScores(rec models.IterationRecord, target float64) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	combined := fmt.Sprintf("%.1f", rec.CombinedScore)
	if cl.colorOutput {
		if rec.CombinedScore >= target {
			combined = color.New(color.FgGreen).Sprint(combined)
		} else {
			combined = color.New(color.FgYellow).Sprint(combined)
		}
	}
	fmt.Fprintf(cl.writer, "[%s] Iteration %d scores: completeness=%.1f compliance=%.1f combined=%s (target %.1f)\n",
		timestamp(), rec.Iteration, rec.CompletenessScore, rec.ComplianceScore, combined, target)
}

// LogRunSummary logs the terminal loop result.
func (cl *ConsoleLogger) LogRunSummary(result *models.LoopResult, duration time.Duration) {
	if cl.writer == nil || result == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	outcome := "converged"
	if result.IterationsExhausted {
		outcome = "iterations exhausted"
	}
	if cl.colorOutput {
		if result.IterationsExhausted {
			outcome = color.New(color.FgYellow).Sprint(outcome)
		} else {
			outcome = color.New(color.FgGreen).Sprint(outcome)
		}
	}

	fmt.Fprintf(cl.writer, "\n")
	fmt.Fprintf(cl.writer, "Run Summary:\n")
	fmt.Fprintf(cl.writer, "  Outcome: %s\n", outcome)
	fmt.Fprintf(cl.writer, "  Final score: %.1f\n", result.FinalScore)
	fmt.Fprintf(cl.writer, "  Iterations: %d\n", result.Iterations)
	fmt.Fprintf(cl.writer, "  Final document: %s\n", result.FinalPath)
	fmt.Fprintf(cl.writer, "  Duration: %s\n", duration.Round(time.Second))
}

// timestamp returns the current time formatted as HH:MM:SS.
func timestamp() string {
	return time.Now().Format("15:04:05")
}
