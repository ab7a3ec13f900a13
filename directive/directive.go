// Package directive implements the closed tagged union of external effects
// a pure Agent.cmd returns (spec component C3), plus the internal StateOp
// variants consumed inside the pure core and never observed outside it.
package directive

import "github.com/nshkrdotcom/agentrt/signal"

// Directive is the marker interface every variant implements. External
// directives (everything but StateOp) are safe to hold onto after cmd
// returns; StateOps must never appear in a directive list returned across
// a cmd boundary (spec §4.2, testable property 1).
type Directive interface {
	directiveTag()
}

// Emit publishes a signal externally, optionally overriding dispatch.
type Emit struct {
	Signal   *signal.Signal
	Dispatch *signal.Dispatch
}

func (Emit) directiveTag() {}

// Error reports a structured error out-of-band; it does not change agent
// state.
type Error struct {
	Err     error
	Context string
}

func (Error) directiveTag() {}

// ChildSpec describes how to start a child agent (spec §4.6).
type ChildSpec struct {
	Module       string
	ID           string
	InitialState map[string]interface{}
}

// Spawn starts a child agent/process under the instance's supervisor.
type Spawn struct {
	ChildSpec ChildSpec
	Tag       string
}

func (Spawn) directiveTag() {}

// Schedule delivers Message to self after DelayMS milliseconds.
type Schedule struct {
	DelayMS int64
	Message interface{}
}

func (Schedule) directiveTag() {}

// Stop terminates the agent process with Reason.
type Stop struct {
	Reason string
}

func (Stop) directiveTag() {}

// StateOp is the internal-only sub-union for state mutation requests
// produced by action handlers during Strategy.cmd. The pure core consumes
// these before returning; they are never part of the directives slice
// Agent.cmd hands back to the server.
type StateOp interface {
	Directive
	stateOpTag()
}

// SetState deep-merges Attrs into agent state.
type SetState struct{ Attrs map[string]interface{} }

func (SetState) directiveTag() {}
func (SetState) stateOpTag()   {}

// ReplaceState wholesale-replaces agent state with Attrs.
type ReplaceState struct{ Attrs map[string]interface{} }

func (ReplaceState) directiveTag() {}
func (ReplaceState) stateOpTag()   {}

// DeleteKeys removes the named top-level state keys.
type DeleteKeys struct{ Keys []string }

func (DeleteKeys) directiveTag() {}
func (DeleteKeys) stateOpTag()   {}

// SetPath creates or overwrites state at a nested path.
type SetPath struct {
	Path  []string
	Value interface{}
}

func (SetPath) directiveTag() {}
func (SetPath) stateOpTag()   {}

// DeletePath removes state at a nested path; a missing path is a no-op.
type DeletePath struct{ Path []string }

func (DeletePath) directiveTag() {}
func (DeletePath) stateOpTag()   {}

// IsStateOp reports whether d is one of the internal StateOp variants.
func IsStateOp(d Directive) bool {
	_, ok := d.(StateOp)
	return ok
}

// External filters a directive slice down to only externally-observable
// variants, dropping any StateOps that leaked in. Used as the final guard
// before Agent.cmd returns, enforcing testable property 1.
func External(ds []Directive) []Directive {
	out := make([]Directive, 0, len(ds))
	for _, d := range ds {
		if !IsStateOp(d) {
			out = append(out, d)
		}
	}
	return out
}
