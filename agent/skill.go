package agent

import (
	"fmt"

	"github.com/nshkrdotcom/agentrt/core"
)

// SkillRoute is a signal route a skill wants registered on its host agent,
// namespaced under the skill's alias before registration.
type SkillRoute struct {
	Pattern  string
	Action   string
	Priority int
}

// Skill packages a reusable bundle of actions, owned state keys, and signal
// routes that can be mounted onto any Agent (spec §3's skills field, per the
// supplemented skill-composition feature). Name is the canonical identifier;
// Alias, if set, is the namespace prefix used when mounting — otherwise Name
// is used as the alias.
type Skill struct {
	Name      string
	Alias     string
	Actions   map[string]ActionFunc
	StateKeys []Field
	Routes    []SkillRoute
}

func (s *Skill) alias() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// DeriveStateKey returns the namespaced state key a skill's own key maps to
// once mounted under alias: "<key>_<alias>".
func DeriveStateKey(alias, key string) string {
	return fmt.Sprintf("%s_%s", key, alias)
}

// DeriveRoutePrefix returns the dotted namespace prefix a skill's actions
// and routes are mounted under: "<alias>.".
func DeriveRoutePrefix(alias string) string {
	return alias + "."
}

// stateKey returns the namespaced state key a skill's own key maps to once
// mounted: "<key>_<alias>".
func (s *Skill) stateKey(key string) string {
	return DeriveStateKey(s.alias(), key)
}

// actionKey returns the namespaced action name a skill's bare action maps to
// once mounted: "<alias>.<name>".
func (s *Skill) actionKey(name string) string {
	return DeriveRoutePrefix(s.alias()) + name
}

// routePattern namespaces a skill route pattern under the skill's alias.
func (s *Skill) routePattern(pattern string) string {
	return DeriveRoutePrefix(s.alias()) + pattern
}

// mountSkills merges every skill's actions and state-key defaults into the
// agent, detecting collisions against both the agent's own schema/actions
// and previously mounted skills (spec §3, §6).
func mountSkills(ag *Agent, skills []*Skill) error {
	mounted := map[string]bool{}
	for _, sk := range skills {
		for name, fn := range sk.Actions {
			key := sk.actionKey(name)
			if _, exists := ag.Actions[key]; exists {
				return core.NewError("agent.mountSkills", core.KindConfig, core.ErrDuplicateName)
			}
			ag.Actions[key] = fn
		}
		for _, field := range sk.StateKeys {
			key := sk.stateKey(field.Name)
			_, inState := ag.State[key]
			inSchema := false
			if ag.Schema != nil {
				_, inSchema = ag.Schema.byName[key]
			}
			if inState || inSchema || mounted[key] {
				return core.NewError("agent.mountSkills", core.KindConfig, core.ErrDuplicateStateKey)
			}
			mounted[key] = true
			if field.Default != nil {
				ag.State[key] = field.Default
			}
		}
		for _, rt := range sk.Routes {
			ag.Routes = append(ag.Routes, SkillRoute{
				Pattern:  sk.routePattern(rt.Pattern),
				Action:   sk.actionKey(rt.Action),
				Priority: rt.Priority,
			})
		}
	}
	return nil
}
