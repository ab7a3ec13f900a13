// Package agent implements the pure agent core (spec component C7): the
// Agent value, its action table, and the referentially-transparent Cmd
// entry point that Strategy implementations drive.
package agent

import (
	"github.com/google/uuid"
	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/directive"
	"github.com/nshkrdotcom/agentrt/instruction"
)

// ActionContext is what an ActionFunc sees of the outside world: the
// agent's current state (read-only by convention; handlers must return
// StateOp directives to request changes rather than mutate in place) and
// whatever the caller attached as instruction context.
type ActionContext struct {
	AgentID string
	State   map[string]interface{}
	Extra   map[string]interface{}
}

// ActionResult is what an ActionFunc returns: any directives it wants
// applied, which may include StateOps (consumed internally) alongside
// externally-observable variants.
type ActionResult struct {
	Directives []directive.Directive
}

// ActionFunc implements one named action. It must be a pure function of its
// arguments: no I/O, no goroutines, no global state (spec §4.2, testable
// property 1 — referential transparency of cmd).
type ActionFunc func(params map[string]interface{}, ctx ActionContext) (ActionResult, error)

// StrategyCtx carries the ambient data a Strategy needs beyond the agent
// and instructions themselves.
type StrategyCtx struct {
	AgentModule  string
	StrategyOpts map[string]interface{}
}

// Strategy is the pluggable execution policy over a list of instructions
// (spec component C8). It is defined here, rather than in its own package,
// so Agent can hold a Strategy field without an import cycle; concrete
// strategies live in a separate package and import agent.
type Strategy interface {
	// Init lets a strategy seed its own sub-state (e.g. an FSM's current
	// state) when the agent is constructed.
	Init(ag *Agent, ctx StrategyCtx) (*Agent, []directive.Directive)
	// Cmd executes instrs against ag and returns the resulting agent plus
	// every directive produced along the way (including StateOps, which
	// the caller — Agent.Cmd — strips before returning to its own caller).
	Cmd(ag *Agent, instrs []*instruction.Instruction, ctx StrategyCtx) (*Agent, []directive.Directive)
	// Snapshot returns the strategy's public view of its own sub-state (nil
	// when it keeps none). Hibernate checkpoints the agent's state map
	// directly and does not call it.
	Snapshot(ag *Agent, ctx StrategyCtx) map[string]interface{}
}

// Hooks are optional lifecycle callbacks an agent module can implement.
// A nil Hooks is treated as all-identity.
type Hooks interface {
	// OnAfterCmd runs after Strategy.Cmd, before directives are filtered
	// for return; it may further transform the agent or directive list
	// (spec §4.2's on_after_cmd hook).
	OnAfterCmd(ag *Agent, action interface{}, directives []directive.Directive) (*Agent, []directive.Directive)
}

// Agent is the pure, immutable-by-convention value spec §3 describes.
// Every mutating operation (New, Set, Validate, Cmd) returns a new value
// rather than mutating the receiver in place.
type Agent struct {
	ID           string
	Name         string
	Description  string
	Vsn          string
	Tags         []string
	Schema       *Schema
	State        map[string]interface{}
	Strategy     Strategy
	StrategyOpts map[string]interface{}
	Skills       []*Skill
	Routes       []SkillRoute
	Actions      map[string]ActionFunc
	Hooks        Hooks
}

// Options configures New.
type Options struct {
	ID           string
	Name         string
	Description  string
	Vsn          string
	Tags         []string
	Schema       *Schema
	InitialState map[string]interface{}
	Strategy     Strategy
	StrategyOpts map[string]interface{}
	Skills       []*Skill
	Actions      map[string]ActionFunc
	Hooks        Hooks
}

// New builds an Agent: it generates an ID when none is given, seeds state
// from the schema's defaults overlaid by InitialState, mounts skills, and
// runs Strategy.Init; a nil Strategy is an error (spec §4.2, new(opts)).
func New(opts Options) (*Agent, error) {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Strategy == nil {
		return nil, core.NewError("agent.New", core.KindConfig, core.ErrMissingConfig)
	}

	state := map[string]interface{}{}
	if opts.Schema != nil {
		for k, v := range opts.Schema.Defaults() {
			state[k] = v
		}
	}
	for k, v := range opts.InitialState {
		state[k] = v
	}

	actions := make(map[string]ActionFunc, len(opts.Actions))
	for k, v := range opts.Actions {
		actions[k] = v
	}

	ag := &Agent{
		ID:           opts.ID,
		Name:         opts.Name,
		Description:  opts.Description,
		Vsn:          opts.Vsn,
		Tags:         opts.Tags,
		Schema:       opts.Schema,
		State:        state,
		Strategy:     opts.Strategy,
		StrategyOpts: opts.StrategyOpts,
		Skills:       opts.Skills,
		Actions:      actions,
		Hooks:        opts.Hooks,
	}

	if err := mountSkills(ag, opts.Skills); err != nil {
		return nil, err
	}

	ctx := StrategyCtx{AgentModule: ag.ID, StrategyOpts: ag.StrategyOpts}
	next, dirs := ag.Strategy.Init(ag, ctx)
	if next != nil {
		ag.State = applyStateOpsOnly(next.State, dirs)
	}
	return ag, nil
}

// Set deep-merges attrs into a copy of ag's state and returns the new
// agent, never mutating ag (spec §4.2, set(agent, attrs)).
func Set(ag *Agent, attrs map[string]interface{}) (*Agent, error) {
	next := ag.clone()
	next.State = deepMerge(next.State, attrs)
	return next, nil
}

// Validate runs ag's state through its schema, optionally dropping unknown
// keys in strict mode, returning a new agent with the validated state
// (spec §4.2, validate(agent, strict?)).
func Validate(ag *Agent, strict bool) (*Agent, error) {
	if ag.Schema == nil {
		return ag, nil
	}
	validated, err := ag.Schema.Validate(ag.State, strict)
	if err != nil {
		return nil, err
	}
	next := ag.clone()
	next.State = validated
	return next, nil
}

// Cmd is the pure core's single entry point (spec §4.2): normalize the
// action into instructions, delegate to the strategy, run the optional
// on_after_cmd hook, then strip internal StateOps before returning.
func Cmd(ag *Agent, action interface{}) (*Agent, []directive.Directive, error) {
	instrs, err := instruction.Normalize(action)
	if err != nil {
		return ag, []directive.Directive{directive.Error{Err: err, Context: "normalize"}}, nil
	}

	ctx := StrategyCtx{AgentModule: ag.ID, StrategyOpts: ag.StrategyOpts}
	next, dirs := ag.Strategy.Cmd(ag, instrs, ctx)
	if next == nil {
		next = ag
	}

	if ag.Hooks != nil {
		next, dirs = ag.Hooks.OnAfterCmd(next, action, dirs)
	}

	return next, directive.External(dirs), nil
}

func (ag *Agent) clone() *Agent {
	state := make(map[string]interface{}, len(ag.State))
	for k, v := range ag.State {
		state[k] = v
	}
	cp := *ag
	cp.State = state
	return &cp
}

func deepMerge(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if bv, ok := out[k]; ok {
			bm, bok := bv.(map[string]interface{})
			ov, ook := v.(map[string]interface{})
			if bok && ook {
				out[k] = deepMerge(bm, ov)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// applyStateOpsOnly applies only the StateOp directives from dirs onto
// state, used where a caller (New) has no external directive sink.
func applyStateOpsOnly(state map[string]interface{}, dirs []directive.Directive) map[string]interface{} {
	next, _ := ApplyStateOps(state, dirs)
	return next
}
