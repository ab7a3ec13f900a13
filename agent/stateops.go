package agent

import "github.com/nshkrdotcom/agentrt/directive"

// ApplyStateOps folds every StateOp directive in dirs onto state in order,
// returning the resulting state and the externally-observable directives
// (everything that isn't a StateOp), unchanged in order. Strategy
// implementations call this after each action runs so state mutations take
// effect before the next instruction sees it (spec §4.2, §4.4).
func ApplyStateOps(state map[string]interface{}, dirs []directive.Directive) (map[string]interface{}, []directive.Directive) {
	next := state
	external := make([]directive.Directive, 0, len(dirs))
	for _, d := range dirs {
		switch op := d.(type) {
		case directive.SetState:
			next = deepMerge(next, op.Attrs)
		case directive.ReplaceState:
			replaced := make(map[string]interface{}, len(op.Attrs))
			for k, v := range op.Attrs {
				replaced[k] = v
			}
			next = replaced
		case directive.DeleteKeys:
			cp := make(map[string]interface{}, len(next))
			for k, v := range next {
				cp[k] = v
			}
			for _, k := range op.Keys {
				delete(cp, k)
			}
			next = cp
		case directive.SetPath:
			next = setPath(next, op.Path, op.Value)
		case directive.DeletePath:
			next = deletePath(next, op.Path)
		default:
			external = append(external, d)
		}
	}
	return next, external
}

func setPath(state map[string]interface{}, path []string, value interface{}) map[string]interface{} {
	if len(path) == 0 {
		return state
	}
	out := make(map[string]interface{}, len(state))
	for k, v := range state {
		out[k] = v
	}
	if len(path) == 1 {
		out[path[0]] = value
		return out
	}
	child, _ := out[path[0]].(map[string]interface{})
	out[path[0]] = setPath(child, path[1:], value)
	return out
}

func deletePath(state map[string]interface{}, path []string) map[string]interface{} {
	if len(path) == 0 || state == nil {
		return state
	}
	out := make(map[string]interface{}, len(state))
	for k, v := range state {
		out[k] = v
	}
	if len(path) == 1 {
		delete(out, path[0])
		return out
	}
	child, ok := out[path[0]].(map[string]interface{})
	if !ok {
		return out
	}
	out[path[0]] = deletePath(child, path[1:])
	return out
}
