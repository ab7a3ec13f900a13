package agent

import "github.com/nshkrdotcom/agentrt/core"

// FieldKind names the primitive type a schema Field accepts. Unknown kinds
// are treated as "any" (no type check, presence/required only).
type FieldKind string

const (
	KindAny     FieldKind = ""
	KindString  FieldKind = "string"
	KindInt     FieldKind = "int"
	KindFloat   FieldKind = "float"
	KindBool    FieldKind = "bool"
	KindMap     FieldKind = "map"
	KindSlice   FieldKind = "slice"
)

// Field describes one schema entry: a name, an expected kind, whether it's
// required, and a default value applied when absent.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
	Default  interface{}
}

// predicate is the compiled check every Field becomes, the "one internal
// schema abstraction" both builder flavors feed (spec §9, Design Notes).
type predicate struct {
	field Field
	check func(v interface{}) bool
}

// Schema is the compiled predicate graph. It is immutable once built.
type Schema struct {
	predicates []predicate
	byName     map[string]Field
}

// SchemaFromList builds a Schema from an ordered field list — the "list
// form" constructor named in spec §9's schema-libraries design note.
func SchemaFromList(fields []Field) *Schema {
	return compile(fields)
}

// SchemaFromMap builds a Schema from a name-keyed field map — the
// "structural form" constructor; order is irrelevant for validation so any
// stable iteration order compiles to the same predicate graph as the list
// form given the same fields.
func SchemaFromMap(fields map[string]Field) *Schema {
	list := make([]Field, 0, len(fields))
	for name, f := range fields {
		f.Name = name
		list = append(list, f)
	}
	return compile(list)
}

func compile(fields []Field) *Schema {
	s := &Schema{byName: make(map[string]Field, len(fields))}
	for _, f := range fields {
		f := f
		s.byName[f.Name] = f
		s.predicates = append(s.predicates, predicate{field: f, check: checkerFor(f.Kind)})
	}
	return s
}

func checkerFor(kind FieldKind) func(interface{}) bool {
	switch kind {
	case KindString:
		return func(v interface{}) bool { _, ok := v.(string); return ok }
	case KindInt:
		return func(v interface{}) bool {
			switch v.(type) {
			case int, int32, int64:
				return true
			default:
				return false
			}
		}
	case KindFloat:
		return func(v interface{}) bool {
			switch v.(type) {
			case float32, float64:
				return true
			default:
				return false
			}
		}
	case KindBool:
		return func(v interface{}) bool { _, ok := v.(bool); return ok }
	case KindMap:
		return func(v interface{}) bool { _, ok := v.(map[string]interface{}); return ok }
	case KindSlice:
		return func(v interface{}) bool { _, ok := v.([]interface{}); return ok }
	default:
		return func(interface{}) bool { return true }
	}
}

// Defaults returns a fresh map populated with every field's default value.
func (s *Schema) Defaults() map[string]interface{} {
	out := make(map[string]interface{}, len(s.predicates))
	for _, p := range s.predicates {
		if p.field.Default != nil {
			out[p.field.Name] = p.field.Default
		}
	}
	return out
}

// Validate checks state against the compiled predicates. In strict mode,
// keys not named by the schema are dropped from the returned state
// (spec §4.2, validate(agent, strict?)).
func (s *Schema) Validate(state map[string]interface{}, strict bool) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(state))
	for k, v := range state {
		if _, known := s.byName[k]; !known {
			if strict {
				continue
			}
			out[k] = v
			continue
		}
		out[k] = v
	}
	for _, p := range s.predicates {
		v, present := out[p.field.Name]
		if !present {
			if p.field.Required {
				return nil, core.NewError("Schema.Validate", core.KindValidation, core.ErrSchemaViolation)
			}
			continue
		}
		if !p.check(v) {
			return nil, core.NewError("Schema.Validate", core.KindValidation, core.ErrSchemaViolation)
		}
	}
	return out, nil
}

// Keys returns the schema's field names, used for skill/agent state-key
// collision detection (spec §3, §6).
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.byName))
	for k := range s.byName {
		keys = append(keys, k)
	}
	return keys
}
