package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopAction(map[string]interface{}, ActionContext) (ActionResult, error) {
	return ActionResult{}, nil
}

func TestMountSkillsNamespacesActionsStateAndRoutes(t *testing.T) {
	sk := &Skill{
		Name:      "audit",
		Actions:   map[string]ActionFunc{"log": noopAction},
		StateKeys: []Field{{Name: "count", Kind: KindInt, Default: 0}},
		Routes:    []SkillRoute{{Pattern: "event.*", Action: "log", Priority: 0}},
	}
	ag, err := New(Options{ID: "a1", Strategy: fakeStrategy{}, Actions: map[string]ActionFunc{}, Skills: []*Skill{sk}})
	require.NoError(t, err)

	assert.Contains(t, ag.Actions, "audit.log")
	assert.Equal(t, 0, ag.State["audit_count"])
	require.Len(t, ag.Routes, 1)
	assert.Equal(t, "audit.event.*", ag.Routes[0].Pattern)
	assert.Equal(t, "audit.log", ag.Routes[0].Action)
}

func TestMountSkillsUsesExplicitAlias(t *testing.T) {
	sk := &Skill{Name: "audit", Alias: "a", Actions: map[string]ActionFunc{"log": noopAction}}
	ag, err := New(Options{ID: "a1", Strategy: fakeStrategy{}, Actions: map[string]ActionFunc{}, Skills: []*Skill{sk}})
	require.NoError(t, err)
	assert.Contains(t, ag.Actions, "a.log")
}

func TestMountSkillsStateKeyOrderIsKeyThenAlias(t *testing.T) {
	sk := &Skill{
		Name:      "metrics",
		Alias:     "m",
		StateKeys: []Field{{Name: "count", Kind: KindInt, Default: 0}},
	}
	ag, err := New(Options{ID: "a1", Strategy: fakeStrategy{}, Actions: map[string]ActionFunc{}, Skills: []*Skill{sk}})
	require.NoError(t, err)
	assert.Contains(t, ag.State, "count_m")
	assert.NotContains(t, ag.State, "m_count")
}

func TestDeriveStateKeyAndRoutePrefix(t *testing.T) {
	assert.Equal(t, "count_audit", DeriveStateKey("audit", "count"))
	assert.Equal(t, "audit.", DeriveRoutePrefix("audit"))
}

func TestMountSkillsRejectsDuplicateActionNames(t *testing.T) {
	sk1 := &Skill{Name: "audit", Actions: map[string]ActionFunc{"log": noopAction}}
	sk2 := &Skill{Name: "audit", Actions: map[string]ActionFunc{"log": noopAction}}
	_, err := New(Options{ID: "a1", Strategy: fakeStrategy{}, Actions: map[string]ActionFunc{}, Skills: []*Skill{sk1, sk2}})
	require.Error(t, err)
}

func TestMountSkillsRejectsDuplicateStateKeys(t *testing.T) {
	sk1 := &Skill{Name: "audit", Alias: "x", StateKeys: []Field{{Name: "count", Default: 0}}}
	sk2 := &Skill{Name: "other", Alias: "x", StateKeys: []Field{{Name: "count", Default: 0}}}
	_, err := New(Options{ID: "a1", Strategy: fakeStrategy{}, Actions: map[string]ActionFunc{}, Skills: []*Skill{sk1, sk2}})
	require.Error(t, err)
}
