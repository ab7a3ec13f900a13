// Package strategy implements the pluggable execution policies over an
// Agent's instruction list (spec component C8): Direct executes in order
// and stops at the first error; FSM gates execution by a transition table
// keyed on a sub-state the strategy itself owns.
package strategy

import (
	"github.com/nshkrdotcom/agentrt/agent"
	"github.com/nshkrdotcom/agentrt/directive"
	"github.com/nshkrdotcom/agentrt/instruction"
	"github.com/nshkrdotcom/agentrt/thread"
)

// Direct runs instructions strictly in list order against the agent's
// action table, applying each action's StateOps before the next
// instruction runs, and stops at the first directive.Error an action
// produces (spec §4.4). When StrategyCtx.StrategyOpts["thread"] is
// truthy, it journals instruction_start/instruction_end entries to
// state.__thread__ the same way FSM does.
type Direct struct{}

var _ agent.Strategy = Direct{}

func (Direct) Init(ag *agent.Agent, ctx agent.StrategyCtx) (*agent.Agent, []directive.Directive) {
	return ag, nil
}

func (Direct) Cmd(ag *agent.Agent, instrs []*instruction.Instruction, ctx agent.StrategyCtx) (*agent.Agent, []directive.Directive) {
	state := cloneState(ag.State)
	withThread := threadEnabled(ctx)
	var out []directive.Directive

	for _, instr := range instrs {
		if withThread {
			state[threadStateKey] = appendEntry(state, thread.Entry{
				Kind:    "instruction_start",
				Payload: map[string]interface{}{"action": instr.Action, "param_keys": paramKeys(instr.Params)},
			})
		}

		fn, ok := ag.Actions[instr.Action]
		status := "ok"
		if !ok {
			out = append(out, directive.Error{Context: instr.Action})
			status = "error"
		} else {
			actionCtx := agent.ActionContext{AgentID: ag.ID, State: state, Extra: instr.Context}
			result, err := fn(instr.Params, actionCtx)
			if err != nil {
				out = append(out, directive.Error{Err: err, Context: instr.Action})
				status = "error"
			} else {
				var external []directive.Directive
				state, external = agent.ApplyStateOps(state, result.Directives)
				out = append(out, external...)
				if hasErrorDirective(external) {
					status = "error"
				}
			}
		}

		if withThread {
			state[threadStateKey] = appendEntry(state, thread.Entry{
				Kind:    "instruction_end",
				Payload: map[string]interface{}{"action": instr.Action, "status": status},
			})
		}

		if status == "error" {
			break
		}
	}

	next := withState(ag, state)
	return next, out
}

func (Direct) Snapshot(ag *agent.Agent, ctx agent.StrategyCtx) map[string]interface{} {
	return nil
}

func hasErrorDirective(dirs []directive.Directive) bool {
	for _, d := range dirs {
		if _, ok := d.(directive.Error); ok {
			return true
		}
	}
	return false
}

// withState returns a copy of ag with State replaced, mirroring the clone
// semantics Agent itself uses for Set/Validate so strategies never mutate
// their input agent in place.
func withState(ag *agent.Agent, state map[string]interface{}) *agent.Agent {
	cp := *ag
	cp.State = state
	return &cp
}
