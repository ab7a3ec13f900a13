package strategy

import (
	"testing"

	"github.com/nshkrdotcom/agentrt/agent"
	"github.com/nshkrdotcom/agentrt/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doorSpecYAML = `
initial: closed
transitions:
  closed:
    open: opened
  opened:
    close: closed
`

func newDoorAgent(t *testing.T, strategyOpts map[string]interface{}) (*agent.Agent, FSM) {
	t.Helper()
	spec, err := LoadFSMSpec([]byte(doorSpecYAML))
	require.NoError(t, err)
	fsm := FSM{Spec: spec}

	ag, err := agent.New(agent.Options{
		ID:           "door-1",
		Strategy:     fsm,
		StrategyOpts: strategyOpts,
		Actions: map[string]agent.ActionFunc{
			"open":  func(map[string]interface{}, agent.ActionContext) (agent.ActionResult, error) { return agent.ActionResult{}, nil },
			"close": func(map[string]interface{}, agent.ActionContext) (agent.ActionResult, error) { return agent.ActionResult{}, nil },
		},
	})
	require.NoError(t, err)
	return ag, fsm
}

func TestFSMInitSeedsInitialState(t *testing.T) {
	ag, _ := newDoorAgent(t, nil)
	assert.Equal(t, "closed", fsmState(ag.State))
}

func TestFSMTransitionsOnPermittedAction(t *testing.T) {
	ag, _ := newDoorAgent(t, nil)
	next, dirs, err := agent.Cmd(ag, "open")
	require.NoError(t, err)
	assert.Empty(t, dirs)
	assert.Equal(t, "opened", fsmState(next.State))
}

func TestFSMRejectsDisallowedActionInCurrentState(t *testing.T) {
	ag, _ := newDoorAgent(t, nil)
	next, dirs, err := agent.Cmd(ag, "close")
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.Equal(t, "closed", fsmState(next.State), "state must not advance on a rejected transition")
}

func TestFSMJournalsWhenThreadEnabled(t *testing.T) {
	ag, _ := newDoorAgent(t, map[string]interface{}{"thread": true})
	th, ok := ag.State[threadStateKey].(*thread.Thread)
	require.True(t, ok)
	require.Len(t, th.Entries, 1)
	assert.Equal(t, "checkpoint", th.Entries[0].Kind)

	next, _, err := agent.Cmd(ag, "open")
	require.NoError(t, err)
	th2 := next.State[threadStateKey].(*thread.Thread)
	var kinds []string
	for _, e := range th2.Entries {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []string{"checkpoint", "instruction_start", "instruction_end", "checkpoint"}, kinds)
}

func TestLoadFSMSpecRejectsMissingInitial(t *testing.T) {
	_, err := LoadFSMSpec([]byte("transitions: {}"))
	require.Error(t, err)
}
