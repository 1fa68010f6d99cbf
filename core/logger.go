package core

// Logger is the diagnostic channel of the application.
//
// args may hold an error, a map[string]interface{} of extra data
// and the user.User the message relates to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
