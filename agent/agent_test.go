package agent

import (
	"testing"

	"github.com/nshkrdotcom/agentrt/directive"
	"github.com/nshkrdotcom/agentrt/instruction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStrategy runs instructions in order against ag.Actions, stopping on
// the first error — just enough behavior to exercise Agent.Cmd without
// importing the real strategy package (which imports agent, so a real
// import here would cycle).
type fakeStrategy struct{ initErr bool }

func (fakeStrategy) Init(ag *Agent, ctx StrategyCtx) (*Agent, []directive.Directive) {
	return ag, nil
}

func (fakeStrategy) Cmd(ag *Agent, instrs []*instruction.Instruction, ctx StrategyCtx) (*Agent, []directive.Directive) {
	state := ag.State
	var out []directive.Directive
	for _, instr := range instrs {
		fn, ok := ag.Actions[instr.Action]
		if !ok {
			out = append(out, directive.Error{Context: instr.Action})
			break
		}
		res, err := fn(instr.Params, ActionContext{AgentID: ag.ID, State: state})
		if err != nil {
			out = append(out, directive.Error{Err: err, Context: instr.Action})
			break
		}
		var ext []directive.Directive
		state, ext = ApplyStateOps(state, res.Directives)
		out = append(out, ext...)
	}
	next := ag.clone()
	next.State = state
	return next, out
}

func (fakeStrategy) Snapshot(ag *Agent, ctx StrategyCtx) map[string]interface{} {
	return nil
}

func incrementAction(params map[string]interface{}, ctx ActionContext) (ActionResult, error) {
	cur, _ := ctx.State["counter"].(int)
	return ActionResult{Directives: []directive.Directive{directive.SetState{Attrs: map[string]interface{}{"counter": cur + 1}}}}, nil
}

func newCounterAgent(t *testing.T) *Agent {
	t.Helper()
	ag, err := New(Options{
		ID:       "counter-1",
		Schema:   SchemaFromList([]Field{{Name: "counter", Kind: KindInt, Default: 0}}),
		Strategy: fakeStrategy{},
		Actions:  map[string]ActionFunc{"increment": incrementAction},
	})
	require.NoError(t, err)
	return ag
}

func TestNewSeedsStateFromSchemaDefaults(t *testing.T) {
	ag := newCounterAgent(t)
	assert.Equal(t, 0, ag.State["counter"])
}

func TestCmdIsPureAndStripsStateOps(t *testing.T) {
	ag := newCounterAgent(t)
	next, dirs, err := Cmd(ag, "increment")
	require.NoError(t, err)
	assert.Equal(t, 1, next.State["counter"])
	assert.Equal(t, 0, ag.State["counter"], "original agent must be unchanged")
	for _, d := range dirs {
		assert.False(t, directive.IsStateOp(d))
	}
}

func TestCmdAcceptsActionParamsPair(t *testing.T) {
	ag := newCounterAgent(t)
	next, _, err := Cmd(ag, [2]interface{}{"increment", map[string]interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, 1, next.State["counter"])
}

func TestCmdUnknownActionYieldsErrorDirective(t *testing.T) {
	ag := newCounterAgent(t)
	_, dirs, err := Cmd(ag, "nope")
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	_, ok := dirs[0].(directive.Error)
	assert.True(t, ok)
}

func TestSetDeepMergesWithoutMutatingOriginal(t *testing.T) {
	ag := newCounterAgent(t)
	next, err := Set(ag, map[string]interface{}{"counter": 42})
	require.NoError(t, err)
	assert.Equal(t, 42, next.State["counter"])
	assert.Equal(t, 0, ag.State["counter"])
}

func TestValidateStrictDropsUnknownStateKeys(t *testing.T) {
	ag := newCounterAgent(t)
	dirty, err := Set(ag, map[string]interface{}{"junk": true})
	require.NoError(t, err)
	validated, err := Validate(dirty, true)
	require.NoError(t, err)
	assert.NotContains(t, validated.State, "junk")
}

type recordingHooks struct{ calls int }

func (h *recordingHooks) OnAfterCmd(ag *Agent, action interface{}, dirs []directive.Directive) (*Agent, []directive.Directive) {
	h.calls++
	return ag, dirs
}

func TestOnAfterCmdHookRuns(t *testing.T) {
	hooks := &recordingHooks{}
	ag, err := New(Options{
		ID:       "hooked",
		Strategy: fakeStrategy{},
		Actions:  map[string]ActionFunc{"noop": func(map[string]interface{}, ActionContext) (ActionResult, error) { return ActionResult{}, nil }},
		Hooks:    hooks,
	})
	require.NoError(t, err)
	_, _, err = Cmd(ag, "noop")
	require.NoError(t, err)
	assert.Equal(t, 1, hooks.calls)
}
