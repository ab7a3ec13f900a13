// Package interpreter maps each Directive variant to its runtime effect
// (spec component C11): emit, spawn, schedule, stop, or structured error
// reporting. It never touches agent state directly — everything it does is
// an effect *outside* the pure core.
package interpreter

import (
	"context"

	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/directive"
	"github.com/nshkrdotcom/agentrt/signal"
)

// Effects is everything the interpreter needs the host agent server to
// provide; the server implements this so the interpreter itself stays
// free of scheduler/queue concerns.
type Effects interface {
	Emit(sig *signal.Signal, dispatch *signal.Dispatch) error
	Spawn(spec directive.ChildSpec, tag string) error
	Schedule(delayMS int64, message interface{}) error
}

// Outcome classifies how the drain loop should proceed after one directive.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeAsync
	OutcomeStop
)

// Result is what Interpret hands back to the drain loop.
type Result struct {
	Outcome    Outcome
	StopReason string
	Warning    string
}

// normalCompletionReasons are Stop reasons that signal misuse: stopping an
// agent to represent ordinary success instead of using state status (spec
// §4.5, drain loop Stop handling).
var normalCompletionReasons = map[string]bool{
	"normal": true, "completed": true, "ok": true, "done": true, "success": true,
}

// Breaker is the subset of core.CircuitBreaker the interpreter needs to
// guard externally-visible effects (Emit, Spawn) against cascading failure.
type Breaker interface {
	CanExecute() bool
	Execute(ctx context.Context, fn func() error) error
}

// Interpreter executes one directive against Effects, optionally gating
// Emit/Spawn through a circuit breaker.
type Interpreter struct {
	Effects     Effects
	Logger      core.Logger
	Breaker     Breaker
	ErrorPolicy core.ErrorPolicy
}

// New builds an Interpreter with the default log_only error policy.
// breaker may be nil to run effects unguarded.
func New(effects Effects, logger core.Logger, breaker Breaker) *Interpreter {
	return NewWithPolicy(effects, logger, breaker, core.ErrorPolicyLogOnly)
}

// NewWithPolicy builds an Interpreter honoring policy for directive.Error
// (spec §4.6): log_only logs and continues, stop_on_error additionally
// stops the drain loop.
func NewWithPolicy(effects Effects, logger core.Logger, breaker Breaker, policy core.ErrorPolicy) *Interpreter {
	if logger == nil {
		logger = core.NoOpLogger
	}
	if policy == "" {
		policy = core.ErrorPolicyLogOnly
	}
	return &Interpreter{Effects: effects, Logger: logger, Breaker: breaker, ErrorPolicy: policy}
}

// Interpret dispatches one directive to its effect (spec §4.6).
func (it *Interpreter) Interpret(ctx context.Context, d directive.Directive) Result {
	switch v := d.(type) {
	case directive.Emit:
		if err := it.guarded(ctx, func() error { return it.Effects.Emit(v.Signal, v.Dispatch) }); err != nil {
			it.Logger.Error("interpreter: emit failed", "error", err)
		}
		return Result{Outcome: OutcomeOK}

	case directive.Error:
		it.Logger.Error("interpreter: directive error", "context", v.Context, "error", v.Err)
		if it.ErrorPolicy == core.ErrorPolicyStopOnError {
			return Result{Outcome: OutcomeStop, StopReason: "error"}
		}
		return Result{Outcome: OutcomeOK}

	case directive.Spawn:
		if err := it.guarded(ctx, func() error { return it.Effects.Spawn(v.ChildSpec, v.Tag) }); err != nil {
			it.Logger.Error("interpreter: spawn failed", "error", err)
		}
		return Result{Outcome: OutcomeOK}

	case directive.Schedule:
		if err := it.Effects.Schedule(v.DelayMS, v.Message); err != nil {
			it.Logger.Error("interpreter: schedule failed", "error", err)
			return Result{Outcome: OutcomeOK}
		}
		return Result{Outcome: OutcomeAsync}

	case directive.Stop:
		res := Result{Outcome: OutcomeStop, StopReason: v.Reason}
		if normalCompletionReasons[v.Reason] {
			res.Warning = "use state status, not stop, for normal completion"
		}
		return res

	default:
		it.Logger.Error("interpreter: unknown directive variant")
		return Result{Outcome: OutcomeOK}
	}
}

func (it *Interpreter) guarded(ctx context.Context, fn func() error) error {
	if it.Breaker == nil {
		return fn()
	}
	if !it.Breaker.CanExecute() {
		return core.NewError("Interpreter.guarded", core.KindExecution, core.ErrQueueOverflow)
	}
	return it.Breaker.Execute(ctx, fn)
}
