// Package instruction implements the normalized unit of work (spec
// component C2): (action, params, context, opts).
package instruction

import (
	"github.com/google/uuid"
	"github.com/nshkrdotcom/agentrt/core"
)

// Instruction is the normalized (action, params, context, opts) tuple.
// Action is treated as an opaque key by the runtime; it is resolved to a
// handler by the Strategy/Agent layer.
type Instruction struct {
	ID      string
	Action  string
	Params  map[string]interface{}
	Context map[string]interface{}
	Opts    map[string]interface{}
}

// New builds a single instruction, defaulting Params/Context/Opts to empty
// (never nil) maps per the spec's "params is always a mapping" invariant.
func New(action string, params map[string]interface{}) *Instruction {
	return &Instruction{
		ID:      uuid.NewString(),
		Action:  action,
		Params:  emptyIfNil(params),
		Context: map[string]interface{}{},
		Opts:    map[string]interface{}{},
	}
}

func emptyIfNil(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// WithContext merges additional context into the instruction, the way
// caller-provided context is merged during normalization (spec §3).
func (i *Instruction) WithContext(ctx map[string]interface{}) *Instruction {
	if i.Context == nil {
		i.Context = map[string]interface{}{}
	}
	for k, v := range ctx {
		i.Context[k] = v
	}
	return i
}

// Normalize accepts the three input shapes spec §3 allows and produces a
// list of Instructions:
//   - a bare action string
//   - an (action, params) pair
//   - a fully-built Instruction / *Instruction
//   - a slice of any of the above (nested slices are rejected)
func Normalize(action interface{}) ([]*Instruction, error) {
	switch v := action.(type) {
	case nil:
		return nil, core.NewError("instruction.Normalize", core.KindValidation, core.ErrInvalidAction)
	case string:
		return []*Instruction{New(v, nil)}, nil
	case *Instruction:
		if v == nil {
			return nil, core.NewError("instruction.Normalize", core.KindValidation, core.ErrInvalidAction)
		}
		return []*Instruction{normalizeOne(*v)}, nil
	case Instruction:
		return []*Instruction{normalizeOne(v)}, nil
	case [2]interface{}:
		act, ok := v[0].(string)
		if !ok {
			return nil, core.NewError("instruction.Normalize", core.KindValidation, core.ErrInvalidAction)
		}
		params, err := asParams(v[1])
		if err != nil {
			return nil, err
		}
		return []*Instruction{New(act, params)}, nil
	case []interface{}:
		out := make([]*Instruction, 0, len(v))
		for _, item := range v {
			switch item.(type) {
			case []interface{}:
				return nil, core.NewError("instruction.Normalize", core.KindValidation, core.ErrInvalidAction)
			}
			sub, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	default:
		return nil, core.NewError("instruction.Normalize", core.KindValidation, core.ErrInvalidAction)
	}
}

func normalizeOne(v Instruction) *Instruction {
	out := v
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	out.Params = emptyIfNil(out.Params)
	if out.Context == nil {
		out.Context = map[string]interface{}{}
	}
	if out.Opts == nil {
		out.Opts = map[string]interface{}{}
	}
	return &out
}

func asParams(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return map[string]interface{}{}, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, core.NewError("instruction.Normalize", core.KindValidation, core.ErrInvalidParams)
	}
	return m, nil
}
