package persist

import (
	"context"
	"testing"

	"github.com/nshkrdotcom/agentrt/agent"
	"github.com/nshkrdotcom/agentrt/directive"
	"github.com/nshkrdotcom/agentrt/instruction"
	"github.com/nshkrdotcom/agentrt/storage"
	"github.com/nshkrdotcom/agentrt/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopStrategy struct{}

func (noopStrategy) Init(ag *agent.Agent, ctx agent.StrategyCtx) (*agent.Agent, []directive.Directive) {
	return ag, nil
}
func (noopStrategy) Cmd(ag *agent.Agent, instrs []*instruction.Instruction, ctx agent.StrategyCtx) (*agent.Agent, []directive.Directive) {
	return ag, nil
}
func (noopStrategy) Snapshot(ag *agent.Agent, ctx agent.StrategyCtx) map[string]interface{} {
	return nil
}

func newTestAgent(t *testing.T) *agent.Agent {
	t.Helper()
	ag, err := agent.New(agent.Options{
		ID:           "counter-1",
		Schema:       agent.SchemaFromList([]agent.Field{{Name: "counter", Kind: agent.KindInt, Default: 0}}),
		Strategy:     noopStrategy{},
		InitialState: map[string]interface{}{"counter": 5},
	})
	require.NoError(t, err)
	return ag
}

func TestHibernateThenThawRoundTripsState(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	key := storage.Key{AgentModule: "counter", ID: "counter-1"}

	ag := newTestAgent(t)
	th := thread.New("thread-1").Append(thread.Entry{Kind: "instruction_end", Payload: map[string]interface{}{"action": "increment"}})
	ag, err := agent.Set(ag, map[string]interface{}{threadStateKey: th})
	require.NoError(t, err)

	_, err = Hibernate(ctx, store, key, ag, 0)
	require.NoError(t, err)

	factory := func() (*agent.Agent, error) {
		return agent.New(agent.Options{
			ID:       "counter-1",
			Schema:   agent.SchemaFromList([]agent.Field{{Name: "counter", Kind: agent.KindInt, Default: 0}}),
			Strategy: noopStrategy{},
		})
	}

	thawed, err := Thaw(ctx, store, key, factory)
	require.NoError(t, err)
	assert.Equal(t, 5, thawed.State["counter"])

	gotThread, ok := thawed.State[threadStateKey].(*thread.Thread)
	require.True(t, ok)
	assert.Equal(t, uint64(1), gotThread.Rev)
}

func TestThawMissingCheckpointFails(t *testing.T) {
	store := storage.NewMemStore()
	key := storage.Key{AgentModule: "counter", ID: "nope"}
	_, err := Thaw(context.Background(), store, key, func() (*agent.Agent, error) { return nil, nil })
	require.Error(t, err)
}
