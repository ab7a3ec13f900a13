// Package signal implements the CloudEvents-compatible message envelope
// agents receive at intake (spec component C1).
package signal

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/nshkrdotcom/agentrt/core"
)

// typePattern matches a dotted hierarchical key: 1-N segments of
// [A-Za-z0-9_]+ separated by dots.
var typePattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

const maxTypeLength = 512

// Dispatch overrides how an Emit directive resolves its target when no
// server default applies.
type Dispatch struct {
	Kind   core.DispatchKind     `json:"kind"`
	Target string                `json:"target,omitempty"`
	Opts   map[string]interface{} `json:"opts,omitempty"`
}

// Signal is the immutable envelope carried through intake, CloudEvents
// v1.0.2 compatible plus the jido_* framework extensions (spec §6).
type Signal struct {
	SpecVersion     string                 `json:"specversion"`
	ID              string                 `json:"id"`
	Source          string                 `json:"source"`
	Type            string                 `json:"type"`
	Subject         string                 `json:"subject,omitempty"`
	Time            time.Time              `json:"time,omitempty"`
	DataContentType string                 `json:"datacontenttype,omitempty"`
	DataSchema      string                 `json:"dataschema,omitempty"`
	Data            interface{}            `json:"data,omitempty"`

	// Framework extensions, namespaced per spec §6.
	Instructions  []interface{}          `json:"jido_instructions,omitempty"`
	Opts          map[string]interface{} `json:"jido_opts,omitempty"`
	JidoDispatch  *Dispatch              `json:"jido_dispatch,omitempty"`
	CorrelationID string                 `json:"jido_correlation_id,omitempty"`
	CausationID   string                 `json:"jido_causation_id,omitempty"`
	Metadata      map[string]interface{} `json:"jido_metadata,omitempty"`
}

// Option configures a Signal built via New.
type Option func(*Signal)

// WithSubject sets the optional subject field.
func WithSubject(s string) Option { return func(sig *Signal) { sig.Subject = s } }

// WithData attaches the payload.
func WithData(data interface{}) Option { return func(sig *Signal) { sig.Data = data } }

// WithCorrelationID sets jido_correlation_id.
func WithCorrelationID(id string) Option { return func(sig *Signal) { sig.CorrelationID = id } }

// WithCausationID sets jido_causation_id.
func WithCausationID(id string) Option { return func(sig *Signal) { sig.CausationID = id } }

// WithDispatch overrides per-signal dispatch resolution.
func WithDispatch(d Dispatch) Option { return func(sig *Signal) { sig.JidoDispatch = &d } }

// WithMetadata attaches jido_metadata.
func WithMetadata(md map[string]interface{}) Option { return func(sig *Signal) { sig.Metadata = md } }

// New builds a Signal with a generated id and current timestamp, then
// validates it. source and typ are required.
func New(source, typ string, opts ...Option) (*Signal, error) {
	sig := &Signal{
		SpecVersion: "1.0.2",
		ID:          uuid.NewString(),
		Source:      source,
		Type:        typ,
		Time:        time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(sig)
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	return sig, nil
}

// Validate enforces the field-level rules of spec §3/§6: non-empty source
// and id, and a well-formed dotted type. Signal's JSON tags use only the
// jido_* extension names; Validate does not inspect extension names, so a
// decoded envelope with legacy "jidoinstructions" style keys is not
// rejected (those keys are simply not mapped to any field).
func (s *Signal) Validate() error {
	if s.ID == "" {
		return core.NewError("Signal.Validate", core.KindValidation, core.ErrInvalidSignal)
	}
	if s.Source == "" {
		return core.NewErrorWithID("Signal.Validate", core.KindValidation, s.ID, core.ErrInvalidSignal)
	}
	if err := ValidateType(s.Type); err != nil {
		return core.NewErrorWithID("Signal.Validate", core.KindValidation, s.ID, err)
	}
	return nil
}

// ValidateType checks a dotted hierarchical signal type: non-empty, at most
// maxTypeLength bytes, and segments of the same [A-Za-z0-9_] characters the
// router allows in literal pattern segments (spec §4.1).
func ValidateType(t string) error {
	if t == "" {
		return core.ErrInvalidSignal
	}
	if len(t) > maxTypeLength {
		return core.ErrInvalidSignal
	}
	if !typePattern.MatchString(t) {
		return core.ErrInvalidSignal
	}
	return nil
}

// Segments splits a signal type into its dotted segments.
func Segments(t string) []string {
	if t == "" {
		return nil
	}
	segs := []string{}
	start := 0
	for i := 0; i < len(t); i++ {
		if t[i] == '.' {
			segs = append(segs, t[start:i])
			start = i + 1
		}
	}
	segs = append(segs, t[start:])
	return segs
}
