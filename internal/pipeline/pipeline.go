// Package pipeline implements the CSR generation pipeline: structured
// content extraction, initial composition, and the iterative
// evaluate-aggregate-decide-revise improvement loop that is the heart of
// the system.
package pipeline

// Logger is the logging interface pipeline components depend on.
// Satisfied by logger.ConsoleLogger.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// nopLogger discards all messages. Used when a component is constructed
// with a nil logger.
type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string)  {}
func (nopLogger) LogWarn(string)  {}
func (nopLogger) LogError(string) {}

// orNop returns l, or a no-op logger when l is nil.
func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
