package core

import (
	"github.com/nshkrdotcom/agentrt/pkg/logger"
)

// Logger is the structured logger every package that can fail or make a
// runtime decision accepts, the same role core.Logger/BaseAgent played in
// the teacher framework. It is an alias onto pkg/logger.Logger so the whole
// module shares one logging contract instead of duplicating it per package.
type Logger = logger.Logger

// NoOpLogger is the zero-value logger used whenever a component hasn't been
// wired to a real backend.
var NoOpLogger Logger = logger.NoOpLogger{}

// WithComponent tags a logger with a "component" field, matching the
// teacher's createComponentLogger convention
// ("agent_server/<id>", "router", "interpreter/<kind>", ...).
func WithComponent(l Logger, name string) Logger {
	return logger.WithComponent(l, name)
}
