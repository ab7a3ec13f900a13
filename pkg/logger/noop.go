package logger

// NoOpLogger discards everything. It is the default logger for any
// component that hasn't been wired to a real backend, the same role
// core.NoOpLogger plays in the teacher framework.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{})          {}
func (NoOpLogger) Info(string, ...interface{})           {}
func (NoOpLogger) Warn(string, ...interface{})           {}
func (NoOpLogger) Error(string, ...interface{})          {}
func (NoOpLogger) SetLevel(string)                       {}
func (n NoOpLogger) WithField(string, interface{}) Logger { return n }
func (n NoOpLogger) WithFields(map[string]interface{}) Logger { return n }
func (n NoOpLogger) With(...Field) Logger                { return n }

// WithComponent returns a child logger tagged with a "component" field,
// mirroring the teacher's createComponentLogger/ComponentAwareLogger
// convention ("agent_server/<id>", "router", "interpreter/<kind>", ...).
func WithComponent(l Logger, name string) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l.With(Field{Key: "component", Value: name})
}
