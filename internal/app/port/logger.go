package port

// Logger is the structured logger every service and adapter receives.
// args are alternating key/value pairs, e.g. "chainID", 1, "address", addr.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
