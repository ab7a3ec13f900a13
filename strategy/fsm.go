package strategy

import (
	"github.com/nshkrdotcom/agentrt/agent"
	"github.com/nshkrdotcom/agentrt/directive"
	"github.com/nshkrdotcom/agentrt/instruction"
	"github.com/nshkrdotcom/agentrt/thread"
)

const strategyStateKey = "__strategy__"
const threadStateKey = "__thread__"

// FSM attaches a finite-state sub-model to an agent at
// state.__strategy__ = {status, fsm_state} and gates instruction execution
// on the transition table (spec §4.4). When StrategyCtx.StrategyOpts["thread"]
// is truthy, it also appends instruction_start/instruction_end/checkpoint
// entries to state.__thread__.
type FSM struct {
	Spec *FSMSpec
}

var _ agent.Strategy = FSM{}

func (f FSM) Init(ag *agent.Agent, ctx agent.StrategyCtx) (*agent.Agent, []directive.Directive) {
	state := cloneState(ag.State)
	state[strategyStateKey] = map[string]interface{}{"status": "ok", "fsm_state": f.Spec.Initial}

	if threadEnabled(ctx) {
		state[threadStateKey] = appendEntry(state, thread.Entry{
			Kind:    "checkpoint",
			Payload: map[string]interface{}{"event": "init", "fsm_state": f.Spec.Initial},
		})
	}

	return withState(ag, state), nil
}

func (f FSM) Cmd(ag *agent.Agent, instrs []*instruction.Instruction, ctx agent.StrategyCtx) (*agent.Agent, []directive.Directive) {
	state := cloneState(ag.State)
	withThread := threadEnabled(ctx)
	var out []directive.Directive

	for _, instr := range instrs {
		current := fsmState(state)

		if withThread {
			state[threadStateKey] = appendEntry(state, thread.Entry{
				Kind:    "instruction_start",
				Payload: map[string]interface{}{"action": instr.Action, "param_keys": paramKeys(instr.Params)},
			})
		}

		to, permitted := f.Spec.allowed(current, instr.Action)
		if !permitted {
			out = append(out, directive.Error{Context: instr.Action})
			if withThread {
				state[threadStateKey] = appendEntry(state, thread.Entry{
					Kind:    "instruction_end",
					Payload: map[string]interface{}{"action": instr.Action, "status": "error"},
				})
			}
			break
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

		setFSMState(state, to)
		if withThread {
			state[threadStateKey] = appendEntry(state, thread.Entry{
				Kind:    "checkpoint",
				Payload: map[string]interface{}{"event": "transition", "fsm_state": to},
			})
		}
	}

	return withState(ag, state), out
}

func (f FSM) Snapshot(ag *agent.Agent, ctx agent.StrategyCtx) map[string]interface{} {
	sub, _ := ag.State[strategyStateKey].(map[string]interface{})
	return sub
}

func cloneState(state map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}

func fsmState(state map[string]interface{}) string {
	sub, ok := state[strategyStateKey].(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := sub["fsm_state"].(string)
	return s
}

func setFSMState(state map[string]interface{}, to string) {
	sub, ok := state[strategyStateKey].(map[string]interface{})
	if !ok {
		sub = map[string]interface{}{}
	} else {
		clone := make(map[string]interface{}, len(sub))
		for k, v := range sub {
			clone[k] = v
		}
		sub = clone
	}
	sub["fsm_state"] = to
	sub["status"] = "ok"
	state[strategyStateKey] = sub
}

func threadEnabled(ctx agent.StrategyCtx) bool {
	v, ok := ctx.StrategyOpts["thread"]
	if !ok {
		return false
	}
	enabled, _ := v.(bool)
	return enabled
}

func appendEntry(state map[string]interface{}, entry thread.Entry) *thread.Thread {
	t, ok := state[threadStateKey].(*thread.Thread)
	if !ok || t == nil {
		t = thread.New("")
	}
	return t.Append(entry)
}

func paramKeys(params map[string]interface{}) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	return keys
}
