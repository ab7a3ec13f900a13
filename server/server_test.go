package server

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nshkrdotcom/agentrt/agent"
	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/directive"
	"github.com/nshkrdotcom/agentrt/instruction"
	"github.com/nshkrdotcom/agentrt/registry"
	"github.com/nshkrdotcom/agentrt/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// incrementStrategy bumps state["counter"] for each "increment"
// instruction and maps "stop", "fail", "emit", "schedule" and "spawn" to a
// Stop, Error, Emit, Schedule or Spawn directive; other actions are
// ignored — just enough to exercise the scheduler without a strategy-package import
// (server importing strategy would be fine, but this keeps the fixture
// self-contained and obviously test-only).
type incrementStrategy struct{}

func (incrementStrategy) Init(ag *agent.Agent, ctx agent.StrategyCtx) (*agent.Agent, []directive.Directive) {
	return ag, nil
}

func (incrementStrategy) Cmd(ag *agent.Agent, instrs []*instruction.Instruction, ctx agent.StrategyCtx) (*agent.Agent, []directive.Directive) {
	state := make(map[string]interface{}, len(ag.State))
	for k, v := range ag.State {
		state[k] = v
	}
	var dirs []directive.Directive
	for _, instr := range instrs {
		switch instr.Action {
		case "increment":
			cur, _ := state["counter"].(int)
			state["counter"] = cur + 1
		case "stop":
			dirs = append(dirs, directive.Stop{Reason: "requested"})
		case "fail":
			dirs = append(dirs, directive.Error{Context: "boom"})
		case "emit":
			sig, _ := signal.New("test://src", "downstream.event")
			dirs = append(dirs, directive.Emit{Signal: sig})
		case "schedule":
			dirs = append(dirs, directive.Schedule{DelayMS: 1, Message: "wake"})
		case "spawn":
			dirs = append(dirs, directive.Spawn{ChildSpec: directive.ChildSpec{Module: "child"}, Tag: "kid"})
		}
	}
	cp := *ag
	cp.State = state
	return &cp, dirs
}

func (incrementStrategy) Snapshot(ag *agent.Agent, ctx agent.StrategyCtx) map[string]interface{} {
	return ag.State
}

// initEmitStrategy returns an Emit directive from Init, to prove the
// post_init path drains it without waiting on an external signal.
type initEmitStrategy struct{ incrementStrategy }

func (initEmitStrategy) Init(ag *agent.Agent, ctx agent.StrategyCtx) (*agent.Agent, []directive.Directive) {
	sig, _ := signal.New("test://src", "startup.event")
	return ag, []directive.Directive{directive.Emit{Signal: sig}}
}

func newTestServer(t *testing.T, cfg *core.Config) (*Server, *registry.Registry) {
	t.Helper()
	ag, err := agent.New(agent.Options{
		ID:       "counter-1",
		Schema:   agent.SchemaFromList([]agent.Field{{Name: "counter", Kind: agent.KindInt, Default: 0}}),
		Strategy: incrementStrategy{},
	})
	require.NoError(t, err)

	reg := registry.New()
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	srv, err := New(ag, Options{Config: cfg, Registry: reg})
	require.NoError(t, err)
	return srv, reg
}

func mustSignal(t *testing.T, typ string) *signal.Signal {
	t.Helper()
	sig, err := signal.New("test://src", typ)
	require.NoError(t, err)
	return sig
}

func TestCallIncrementsCounterSynchronously(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	next, err := srv.Call(context.Background(), mustSignal(t, "increment"))
	require.NoError(t, err)
	assert.Equal(t, 1, next.State["counter"])
}

func TestRegistersAndDeregistersOnStop(t *testing.T) {
	srv, reg := newTestServer(t, nil)
	assert.Equal(t, 1, reg.Len())

	_, err := srv.Call(context.Background(), mustSignal(t, "stop"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return reg.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestDuplicateIDFailsRegistration(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("dup", "someone-else"))

	ag, err := agent.New(agent.Options{ID: "dup", Strategy: incrementStrategy{}})
	require.NoError(t, err)
	_, err = New(ag, Options{Registry: reg})
	require.Error(t, err)
}

func TestQueueOverflowDropsAllDirectivesFromOffendingSignal(t *testing.T) {
	cfg, err := core.NewConfig(core.WithMaxQueueSize(1))
	require.NoError(t, err)

	ag, err := agent.New(agent.Options{ID: "overflow-1", Strategy: incrementStrategy{}})
	require.NoError(t, err)
	reg := registry.New()
	var emitted int32
	srv, err := New(ag, Options{
		Config:   cfg,
		Registry: reg,
		EmitFunc: func(sig *signal.Signal, dispatch *signal.Dispatch) error {
			atomic.AddInt32(&emitted, 1)
			return nil
		},
	})
	require.NoError(t, err)

	sig, err := signal.New("test://src", "multi")
	require.NoError(t, err)
	sig.Instructions = []interface{}{"emit", "emit", "emit"}

	_, err = srv.Call(context.Background(), sig)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return srv.GetState() == StateIdle
	}, time.Second, 5*time.Millisecond, "overflowed directives must be dropped, not queued")

	// The run loop handles this second Call only after draining whatever the
	// first signal queued, so any admitted Emit would have run by now.
	_, err = srv.Call(context.Background(), mustSignal(t, "increment"))
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&emitted), "overflowed directives must be dropped, not queued")
}

func TestEmitDirectiveInvokesEmitFunc(t *testing.T) {
	var emitted []*signal.Signal
	ag, err := agent.New(agent.Options{ID: "emitter-1", Strategy: incrementStrategy{}})
	require.NoError(t, err)
	reg := registry.New()
	srv, err := New(ag, Options{
		Config:   core.DefaultConfig(),
		Registry: reg,
		EmitFunc: func(sig *signal.Signal, dispatch *signal.Dispatch) error {
			emitted = append(emitted, sig)
			return nil
		},
	})
	require.NoError(t, err)

	_, err = srv.Call(context.Background(), mustSignal(t, "emit"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(emitted) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPostInitDrainsDirectivesFromInitWithoutExternalSignal(t *testing.T) {
	var emitted []*signal.Signal
	ag, err := agent.New(agent.Options{ID: "init-1", Strategy: initEmitStrategy{}})
	require.NoError(t, err)
	srv, err := New(ag, Options{
		Config:   core.DefaultConfig(),
		Registry: registry.New(),
		EmitFunc: func(sig *signal.Signal, dispatch *signal.Dispatch) error {
			emitted = append(emitted, sig)
			return nil
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(emitted) == 1
	}, time.Second, 5*time.Millisecond, "Init's Emit directive must drain at startup")
	assert.Equal(t, "startup.event", emitted[0].Type)
}

func TestStopOnErrorPolicyStopsDrainOnErrorDirective(t *testing.T) {
	cfg, err := core.NewConfig(core.WithErrorPolicy(core.ErrorPolicyStopOnError))
	require.NoError(t, err)
	srv, _ := newTestServer(t, cfg)

	_, err = srv.Call(context.Background(), mustSignal(t, "fail"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return srv.GetState() == StateDead
	}, time.Second, 5*time.Millisecond, "stop_on_error must terminate the server on a directive.Error")
}

func TestSpawnRecordsChildByTagAndChildExitRemovesIt(t *testing.T) {
	ag, err := agent.New(agent.Options{ID: "parent-1", Strategy: incrementStrategy{}})
	require.NoError(t, err)
	reg := registry.New()

	var child *Server
	childFactory := func(ctx context.Context, spec directive.ChildSpec, tag, parentID string) (string, error) {
		childAg, err := agent.New(agent.Options{ID: "child-1", Strategy: incrementStrategy{}})
		require.NoError(t, err)
		child, err = New(childAg, Options{
			Config:    core.DefaultConfig(),
			Registry:  reg,
			ParentID:  parentID,
			ParentTag: tag,
		})
		require.NoError(t, err)
		return childAg.ID, nil
	}

	parent, err := New(ag, Options{Config: core.DefaultConfig(), Registry: reg, ChildFactory: childFactory})
	require.NoError(t, err)

	_, err = parent.Call(context.Background(), mustSignal(t, "spawn"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, ok := parent.Children()["kid"]
		return ok && info.PID == "child-1"
	}, time.Second, 5*time.Millisecond, "children[tag] must be populated after Spawn succeeds")

	require.NotNil(t, child)
	child.Stop("done")

	require.Eventually(t, func() bool {
		_, ok := parent.Children()["kid"]
		return !ok
	}, time.Second, 5*time.Millisecond, "children[tag] must be absent after the child dies")
}
