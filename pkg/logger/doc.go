// Package logger defines the structured-logging contract used across the
// agent runtime and ships SimpleLogger, the stderr-backed implementation
// that backs core.NoOpLogger's real-output counterpart.
//
// # Why an interface instead of a concrete type
//
// agent, server, interpreter, and registry all accept a Logger rather than
// importing a concrete logging library directly, so swapping SimpleLogger
// for zap, zerolog, or an OpenTelemetry log bridge touches one call site
// (core.Config's WithLogger option) instead of every package that logs.
//
// # Levels
//
//	DebugLevel < InfoLevel < WarnLevel < ErrorLevel
//
// SetLevel gates a logger to a minimum severity at runtime; ParseLevel
// resolves a level name ("debug", "WARN", "Error", ...) case-insensitively,
// defaulting to InfoLevel for anything unrecognized.
//
// # Fields
//
// Level methods accept fields two ways, and a single call can mix both:
//
//	log.Info("dispatched directive", "kind", "emit", "agent_id", id)
//	log.Info("dispatched directive", logger.Field{Key: "kind", Value: "emit"})
//
// WithField/WithFields/With return a child logger that carries fields on
// every subsequent call, which is how server.Server and interpreter.Interpreter
// tag every log line from one agent's scheduler with its id without
// threading the id through each call site:
//
//	log := core.WithComponent(baseLogger, "agent_server/"+agentID)
//	log.Info("signal accepted", "type", sig.Type)
//
// # Configuration
//
// SimpleLogger reads its initial level from AGENTRT_LOG_LEVEL at
// construction time; core.Config.WithLogger overrides it with any Logger
// implementation before the runtime starts.
package logger
