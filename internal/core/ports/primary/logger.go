package primary

// Logger is the logging port consumed by services and adapters.
// Args are alternating key/value pairs, matching zap's sugared calls.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}
