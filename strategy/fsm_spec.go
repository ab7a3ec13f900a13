package strategy

import (
	"github.com/nshkrdotcom/agentrt/core"
	"gopkg.in/yaml.v3"
)

// FSMSpec is a finite-state transition table: for each state, which actions
// are permitted and what state they lead to. Loaded from YAML the way the
// teacher's declarative configs are loaded, per the supplemented
// FSM-from-spec feature.
type FSMSpec struct {
	Initial     string                       `yaml:"initial"`
	Transitions map[string]map[string]string `yaml:"transitions"`
}

// LoadFSMSpec parses a YAML document into an FSMSpec.
func LoadFSMSpec(data []byte) (*FSMSpec, error) {
	var spec FSMSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, core.NewError("strategy.LoadFSMSpec", core.KindConfig, err)
	}
	if spec.Initial == "" {
		return nil, core.NewError("strategy.LoadFSMSpec", core.KindConfig, core.ErrInvalidConfig)
	}
	return &spec, nil
}

// allowed reports whether action may run while in state, and what state the
// machine transitions to if so.
func (s *FSMSpec) allowed(state, action string) (string, bool) {
	actions, ok := s.Transitions[state]
	if !ok {
		return "", false
	}
	to, ok := actions[action]
	return to, ok
}
