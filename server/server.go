// Package server implements the per-agent cooperative scheduler (spec
// component C10): signal intake, a bounded directive queue, an in-order
// drain loop, parent/child hierarchy, and telemetry at the documented
// boundaries. One Server runs exactly one agent; many Servers run
// concurrently, each single-threaded internally — the same worker-pool
// shape the teacher uses for its task executor, scaled down to one
// goroutine per agent instead of N goroutines sharing one queue.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nshkrdotcom/agentrt/agent"
	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/directive"
	"github.com/nshkrdotcom/agentrt/interpreter"
	"github.com/nshkrdotcom/agentrt/registry"
	"github.com/nshkrdotcom/agentrt/signal"
	"github.com/nshkrdotcom/agentrt/telemetry"
)

// State is one of the lifecycle states named in spec §4.5.
type State string

const (
	StateInitializing State = "initializing"
	StateIdle         State = "idle"
	StateProcessing   State = "processing"
	StateStopping     State = "stopping"
	StateDead         State = "dead"
)

// Dispatch selects synchronous vs asynchronous intake (spec §4.5).
type Dispatch int

const (
	Call Dispatch = iota
	Cast
)

// HandleSignalFunc is the optional agent-module hook that maps a signal to an
// action before delegating to agent.Cmd; when nil the server uses the
// default mapping (signal.Type is used verbatim as the action).
type HandleSignalFunc func(ag *agent.Agent, sig *signal.Signal) (interface{}, error)

// ChildFactory starts a child agent server for a Spawn directive and
// returns its pid. Left nil, Spawn directives fail with ErrNotRunning.
type ChildFactory func(ctx context.Context, spec directive.ChildSpec, tag string, parentID string) (string, error)

// ChildInfo is the hierarchy record a Server keeps per spawned child, keyed
// by the tag the spawning directive chose (spec §3:
// children: mapping<tag, {pid, module, monitor_ref, meta}>).
type ChildInfo struct {
	PID        string
	Module     string
	MonitorRef string
	Meta       map[string]interface{}
}

// EmitFunc publishes an Emit directive's signal externally (e.g. onto a
// pub/sub bus, a named target's intake channel, or just the log, per
// core.DispatchKind). Left nil, Emit directives are only logged.
type EmitFunc func(sig *signal.Signal, dispatch *signal.Dispatch) error

type queued struct {
	dir directive.Directive
	sig *signal.Signal
}

type intakeRequest struct {
	sig      *signal.Signal
	dispatch Dispatch
	reply    chan intakeResult
}

type intakeResult struct {
	agent *agent.Agent
	err   error
}

// Options configures a Server.
type Options struct {
	Config        *core.Config
	Registry      *registry.Registry
	Logger        core.Logger
	Telemetry     telemetry.Telemetry
	ParentID      string
	ParentTag     string
	OnParentDeath core.OnParentDeath
	EmitFunc      EmitFunc
	ChildFactory  ChildFactory
	HandleSignal  HandleSignalFunc
	Breaker       interpreter.Breaker
}

// Server owns one agent's lifecycle, queue, and drain loop.
type Server struct {
	opts Options

	mu    sync.RWMutex
	state State
	ag    *agent.Agent

	queueMu sync.Mutex
	queue   []queued

	children   map[string]ChildInfo
	childrenMu sync.Mutex

	stopMu     sync.Mutex
	stopReason string

	signalCh chan intakeRequest
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	interp *interpreter.Interpreter
	log    core.Logger
}

// New starts a Server for initial, registering its id in opts.Registry
// (collision is a hard startup error, spec §4.5).
func New(initial *agent.Agent, opts Options) (*Server, error) {
	if opts.Config == nil {
		opts.Config = core.DefaultConfig()
	}
	if opts.OnParentDeath == "" {
		opts.OnParentDeath = opts.Config.OnParentDeath
	}
	logger := opts.Logger
	if logger == nil {
		logger = opts.Config.Logger()
	}
	logger = core.WithComponent(logger, fmt.Sprintf("agent_server/%s", initial.ID))

	s := &Server{
		opts:     opts,
		state:    StateInitializing,
		ag:       initial,
		children: make(map[string]ChildInfo),
		signalCh: make(chan intakeRequest, 1),
		log:      logger,
	}

	if opts.Registry != nil {
		if err := opts.Registry.Register(initial.ID, s); err != nil {
			return nil, err
		}
	}

	emit := opts.EmitFunc
	if emit == nil {
		emit = func(sig *signal.Signal, dispatch *signal.Dispatch) error {
			s.log.Info("emit (no bus wired)", "type", sig.Type, "id", sig.ID)
			return nil
		}
	}
	s.interp = interpreter.NewWithPolicy(&serverEffects{server: s, emit: emit}, logger, opts.Breaker, opts.Config.ErrorPolicy)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	initCtx := agent.StrategyCtx{AgentModule: initial.ID, StrategyOpts: initial.StrategyOpts}
	next, dirs := initial.Strategy.Init(initial, initCtx)
	if next != nil {
		s.ag = next
	}
	initDirs := directive.External(dirs)

	initSig, _ := signal.New(fmt.Sprintf("agentrt://agent/%s", initial.ID), "strategy.init")
	for _, d := range initDirs {
		s.enqueue(d, initSig)
	}

	s.setState(StateIdle)
	s.wg.Add(1)
	go s.run(ctx)

	if opts.ParentID != "" {
		s.notifyParent(opts.ParentID, "ChildStarted", "")
	}

	return s, nil
}

func (s *Server) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// GetState returns the current lifecycle state.
func (s *Server) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns the agent strategy's public view (Strategy.Snapshot) of
// the current agent; it is not a copy of the full agent state.
func (s *Server) Snapshot() map[string]interface{} {
	s.mu.RLock()
	ag := s.ag
	s.mu.RUnlock()
	ctx := agent.StrategyCtx{AgentModule: ag.ID, StrategyOpts: ag.StrategyOpts}
	return ag.Strategy.Snapshot(ag, ctx)
}

// Call delivers sig synchronously, returning the updated agent once intake
// (but not necessarily drain) has completed (spec §4.5).
func (s *Server) Call(ctx context.Context, sig *signal.Signal) (*agent.Agent, error) {
	reply := make(chan intakeResult, 1)
	req := intakeRequest{sig: sig, dispatch: Call, reply: reply}

	timeout := s.opts.Config.AgentServerCallTimeout
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case s.signalCh <- req:
	case <-cctx.Done():
		return nil, core.NewErrorWithID("Server.Call", core.KindTimeout, s.idOrUnknown(), core.ErrCallTimeout)
	}

	select {
	case res := <-reply:
		return res.agent, res.err
	case <-cctx.Done():
		return nil, core.NewErrorWithID("Server.Call", core.KindTimeout, s.idOrUnknown(), core.ErrCallTimeout)
	}
}

// Cast delivers sig asynchronously; it does not block on intake completing.
func (s *Server) Cast(sig *signal.Signal) error {
	req := intakeRequest{sig: sig, dispatch: Cast}
	select {
	case s.signalCh <- req:
		return nil
	default:
		go func() { s.signalCh <- req }()
		return nil
	}
}

// Stop requests the server terminate with reason.
func (s *Server) Stop(reason string) {
	s.stopMu.Lock()
	s.stopReason = reason
	s.stopMu.Unlock()
	s.setState(StateStopping)
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Server) idOrUnknown() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ag == nil {
		return "unknown"
	}
	return s.ag.ID
}

func (s *Server) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.setState(StateDead)

	// post_init starts the drain loop itself (spec §4.5) so directives
	// Strategy.Init enqueued run at startup instead of waiting for the
	// first external Call/Cast to trigger a drain as a side effect.
	if s.drainAll(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.stopMu.Lock()
			reason := s.stopReason
			s.stopMu.Unlock()
			if reason == "" {
				reason = "context_canceled"
			}
			s.setState(StateStopping)
			s.onStop(reason)
			return
		case req := <-s.signalCh:
			s.handleIntake(ctx, req)
			if s.drainAll(ctx) {
				return
			}
		}
	}
}

func (s *Server) handleIntake(ctx context.Context, req intakeRequest) {
	start := time.Now()
	s.telemetry("agent_server.signal.start", map[string]interface{}{"type": req.sig.Type})

	if req.sig.Type == "ChildExit" {
		s.forgetChild(req.sig)
	}

	s.mu.Lock()
	prev := s.ag
	s.mu.Unlock()

	action, err := s.resolveAction(prev, req.sig)
	if err != nil {
		s.telemetry("agent_server.signal.exception", map[string]interface{}{"error": err.Error()})
		if req.reply != nil {
			req.reply <- intakeResult{agent: prev, err: err}
		}
		return
	}

	next, dirs, err := agent.Cmd(prev, action)
	if err != nil {
		s.telemetry("agent_server.signal.exception", map[string]interface{}{"error": err.Error()})
		if req.reply != nil {
			req.reply <- intakeResult{agent: prev, err: err}
		}
		return
	}

	s.mu.Lock()
	s.ag = next
	s.mu.Unlock()

	overflowed := s.enqueueAll(dirs, req.sig)
	if overflowed {
		s.telemetry("agent_server.queue.overflow", map[string]interface{}{"signal_id": req.sig.ID})
	}

	s.telemetry("agent_server.signal.stop", map[string]interface{}{
		"directive_count": len(dirs),
		"duration_ms":     time.Since(start).Milliseconds(),
	})

	if req.reply != nil {
		req.reply <- intakeResult{agent: next, err: nil}
	}
}

// forgetChild removes the children entry for the tag carried in a ChildExit
// signal's data, so children[tag] is absent once the signal has been
// delivered (spec §4.6, testable property 9).
func (s *Server) forgetChild(sig *signal.Signal) {
	data, ok := sig.Data.(map[string]interface{})
	if !ok {
		return
	}
	tag, ok := data["tag"].(string)
	if !ok || tag == "" {
		return
	}
	s.childrenMu.Lock()
	delete(s.children, tag)
	s.childrenMu.Unlock()
}

// Children returns a snapshot of the tag-keyed hierarchy table (spec §3).
func (s *Server) Children() map[string]ChildInfo {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	out := make(map[string]ChildInfo, len(s.children))
	for k, v := range s.children {
		out[k] = v
	}
	return out
}

func (s *Server) resolveAction(ag *agent.Agent, sig *signal.Signal) (interface{}, error) {
	if s.opts.HandleSignal != nil {
		return s.opts.HandleSignal(ag, sig)
	}
	if len(sig.Instructions) > 0 {
		return sig.Instructions, nil
	}
	return sig.Type, nil
}

// enqueueAll appends every directive paired with sig, applying backpressure:
// if the bounded queue would overflow, every directive from this signal is
// dropped instead of partially admitted (spec §4.5).
func (s *Server) enqueueAll(dirs []directive.Directive, sig *signal.Signal) (overflowed bool) {
	max := s.opts.Config.MaxQueueSize
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue)+len(dirs) > max {
		return true
	}
	for _, d := range dirs {
		s.queue = append(s.queue, queued{dir: d, sig: sig})
	}
	return false
}

func (s *Server) enqueue(d directive.Directive, sig *signal.Signal) {
	s.queueMu.Lock()
	s.queue = append(s.queue, queued{dir: d, sig: sig})
	s.queueMu.Unlock()
}

func (s *Server) popQueue() (queued, bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return queued{}, false
	}
	q := s.queue[0]
	s.queue = s.queue[1:]
	return q, true
}

// drainAll pops and interprets directives until the queue is empty or a
// Stop directive terminates the agent. Returns true if the server should
// exit its run loop.
func (s *Server) drainAll(ctx context.Context) bool {
	s.setState(StateProcessing)
	for {
		q, ok := s.popQueue()
		if !ok {
			s.setState(StateIdle)
			return false
		}

		s.telemetry("agent_server.directive.start", nil)
		res := s.interp.Interpret(ctx, q.dir)
		if res.Warning != "" {
			s.log.Warn(res.Warning)
		}
		s.telemetry("agent_server.directive.stop", map[string]interface{}{"outcome": int(res.Outcome)})

		if res.Outcome == interpreter.OutcomeStop {
			s.setState(StateStopping)
			s.onStop(res.StopReason)
			return true
		}
	}
}

func (s *Server) onStop(reason string) {
	if s.opts.Registry != nil {
		s.mu.RLock()
		id := s.ag.ID
		s.mu.RUnlock()
		s.opts.Registry.Deregister(id)
	}
	if s.opts.ParentID != "" {
		s.notifyParent(s.opts.ParentID, "ChildExit", reason)
	}
}

// notifyParent delivers a ChildStarted/ChildExit/Orphaned signal to the
// parent server registered under parentID, carrying this server's
// parent-assigned tag (spec §4.6) so the parent can key its children
// bookkeeping on it.
func (s *Server) notifyParent(parentID, kind, reason string) {
	if s.opts.Registry == nil {
		return
	}
	handle, err := s.opts.Registry.Lookup(parentID)
	if err != nil {
		return
	}
	parent, ok := handle.(*Server)
	if !ok {
		return
	}
	s.mu.RLock()
	childID := s.ag.ID
	s.mu.RUnlock()
	data := map[string]interface{}{"child_id": childID, "pid": childID, "tag": s.opts.ParentTag}
	if reason != "" {
		data["reason"] = reason
	}
	sig, err := signal.New(fmt.Sprintf("agentrt://agent/%s", childID), kind, signal.WithData(data))
	if err != nil {
		return
	}
	_ = parent.Cast(sig)
}

// OnParentDied applies the server's on_parent_death policy (spec §4.9).
func (s *Server) OnParentDied() {
	switch s.opts.OnParentDeath {
	case core.OnParentDeathStop:
		s.Stop("parent_died")
	case core.OnParentDeathEmitOrphan:
		s.mu.RLock()
		id := s.ag.ID
		s.mu.RUnlock()
		sig, err := signal.New(fmt.Sprintf("agentrt://agent/%s", id), "Orphaned")
		if err == nil {
			_ = s.Cast(sig)
		}
	case core.OnParentDeathContinue:
		// no-op
	}
}

func (s *Server) telemetry(name string, attrs map[string]interface{}) {
	t := s.opts.Telemetry
	if t == nil {
		t = telemetry.GetGlobalTelemetry()
	}
	if t == nil {
		return
	}
	ctx, span := t.StartSpan(context.Background(), name)
	defer span.End()
	for k, v := range attrs {
		span.SetAttribute(k, v)
	}
	_ = ctx
}

// serverEffects adapts Server to interpreter.Effects.
type serverEffects struct {
	server *Server
	emit   EmitFunc
}

func (e *serverEffects) Emit(sig *signal.Signal, dispatch *signal.Dispatch) error {
	return e.emit(sig, dispatch)
}

func (e *serverEffects) Spawn(spec directive.ChildSpec, tag string) error {
	if e.server.opts.ChildFactory == nil {
		return core.NewError("serverEffects.Spawn", core.KindExecution, core.ErrNotRunning)
	}
	pid, err := e.server.opts.ChildFactory(context.Background(), spec, tag, e.server.idOrUnknown())
	if err != nil {
		return err
	}
	e.server.childrenMu.Lock()
	e.server.children[tag] = ChildInfo{PID: pid, Module: spec.Module, MonitorRef: uuid.NewString()}
	e.server.childrenMu.Unlock()
	return nil
}

func (e *serverEffects) Schedule(delayMS int64, message interface{}) error {
	time.AfterFunc(time.Duration(delayMS)*time.Millisecond, func() {
		sig, err := signal.New(fmt.Sprintf("agentrt://agent/%s", e.server.idOrUnknown()), "scheduled.delivery", signal.WithData(message))
		if err != nil {
			return
		}
		_ = e.server.Cast(sig)
	})
	return nil
}
