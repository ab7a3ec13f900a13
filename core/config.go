package core

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nshkrdotcom/agentrt/pkg/logger"
)

// DispatchKind names a built-in signal dispatch mechanism a directive.Emit
// can resolve to when neither it nor the server specifies one.
type DispatchKind string

const (
	DispatchPubSub DispatchKind = "pubsub"
	DispatchNamed  DispatchKind = "named"
	DispatchLogged DispatchKind = "logged"
)

// ErrorPolicy controls what the directive interpreter does after an Error
// directive (spec §4.6).
type ErrorPolicy string

const (
	ErrorPolicyLogOnly     ErrorPolicy = "log_only"
	ErrorPolicyStopOnError ErrorPolicy = "stop_on_error"
)

// OnParentDeath controls what an agent server does when its monitored
// parent dies (spec §4.6, §4.9).
type OnParentDeath string

const (
	OnParentDeathStop       OnParentDeath = "stop"
	OnParentDeathContinue   OnParentDeath = "continue"
	OnParentDeathEmitOrphan OnParentDeath = "emit_orphan"
)

// Config holds the runtime tunables named in the specification's external
// interfaces section, loaded the way the teacher's core.Config loads
// settings: defaults, then environment variables, then functional options.
type Config struct {
	AgentServerCallTimeout     time.Duration `json:"agent_server_call_timeout" env:"AGENTRT_CALL_TIMEOUT" default:"10s"`
	AwaitTimeout               time.Duration `json:"await_timeout" env:"AGENTRT_AWAIT_TIMEOUT" default:"10s"`
	PluginHookTimeout          time.Duration `json:"plugin_hook_timeout" env:"AGENTRT_PLUGIN_HOOK_TIMEOUT" default:"1s"`
	MaxAgents                  int           `json:"max_agents" env:"AGENTRT_MAX_AGENTS" default:"10000"`
	MaxQueueSize               int           `json:"max_queue_size" env:"AGENTRT_MAX_QUEUE_SIZE" default:"10000"`
	MaxTasks                   int           `json:"max_tasks" env:"AGENTRT_MAX_TASKS" default:"1000"`
	AgentSupervisorMaxRestarts int           `json:"agent_supervisor_max_restarts" env:"AGENTRT_SUPERVISOR_MAX_RESTARTS" default:"1000"`
	AgentSupervisorMaxSeconds  int           `json:"agent_supervisor_max_seconds" env:"AGENTRT_SUPERVISOR_MAX_SECONDS" default:"5"`

	DefaultDispatch DispatchKind  `json:"default_dispatch" env:"AGENTRT_DEFAULT_DISPATCH" default:"logged"`
	ErrorPolicy     ErrorPolicy   `json:"error_policy" env:"AGENTRT_ERROR_POLICY" default:"log_only"`
	OnParentDeath   OnParentDeath `json:"on_parent_death" env:"AGENTRT_ON_PARENT_DEATH" default:"stop"`

	logger Logger
}

// Option is a functional option for Config, applied after defaults and
// environment variables, mirroring the teacher's NewConfig(opts...) pattern.
type Option func(*Config) error

// DefaultConfig returns a Config populated with the spec's documented
// defaults (spec §6, "Runtime tunables").
func DefaultConfig() *Config {
	return &Config{
		AgentServerCallTimeout:     10 * time.Second,
		AwaitTimeout:               10 * time.Second,
		PluginHookTimeout:          1 * time.Second,
		MaxAgents:                  10_000,
		MaxQueueSize:               10_000,
		MaxTasks:                   1_000,
		AgentSupervisorMaxRestarts: 1_000,
		AgentSupervisorMaxSeconds:  5,
		DefaultDispatch:            DispatchLogged,
		ErrorPolicy:                ErrorPolicyLogOnly,
		OnParentDeath:              OnParentDeathStop,
		logger:                     logger.NewDefaultLogger(),
	}
}

// LoadFromEnv overlays environment variables onto c, matching the teacher's
// GOMIND_* / AGENTRT_* precedence: env vars override defaults but are
// overridden by functional options applied afterward.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("AGENTRT_CALL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AgentServerCallTimeout = d
		}
	}
	if v := os.Getenv("AGENTRT_AWAIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AwaitTimeout = d
		}
	}
	if v := os.Getenv("AGENTRT_PLUGIN_HOOK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PluginHookTimeout = d
		}
	}
	if v := os.Getenv("AGENTRT_MAX_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAgents = n
		}
	}
	if v := os.Getenv("AGENTRT_MAX_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxQueueSize = n
		}
	}
	if v := os.Getenv("AGENTRT_MAX_TASKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTasks = n
		}
	}
	if v := os.Getenv("AGENTRT_SUPERVISOR_MAX_RESTARTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.AgentSupervisorMaxRestarts = n
		}
	}
	if v := os.Getenv("AGENTRT_SUPERVISOR_MAX_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.AgentSupervisorMaxSeconds = n
		}
	}
	if v := os.Getenv("AGENTRT_DEFAULT_DISPATCH"); v != "" {
		c.DefaultDispatch = DispatchKind(v)
	}
	if v := os.Getenv("AGENTRT_ERROR_POLICY"); v != "" {
		c.ErrorPolicy = ErrorPolicy(v)
	}
	if v := os.Getenv("AGENTRT_ON_PARENT_DEATH"); v != "" {
		c.OnParentDeath = OnParentDeath(v)
	}
	return c.Validate()
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MaxQueueSize <= 0 {
		return NewError("Config.Validate", KindConfig, fmt.Errorf("max_queue_size must be positive: %w", ErrInvalidConfig))
	}
	if c.MaxAgents <= 0 {
		return NewError("Config.Validate", KindConfig, fmt.Errorf("max_agents must be positive: %w", ErrInvalidConfig))
	}
	switch c.ErrorPolicy {
	case ErrorPolicyLogOnly, ErrorPolicyStopOnError:
	default:
		return NewError("Config.Validate", KindConfig, fmt.Errorf("unknown error_policy %q: %w", c.ErrorPolicy, ErrInvalidConfig))
	}
	switch c.OnParentDeath {
	case OnParentDeathStop, OnParentDeathContinue, OnParentDeathEmitOrphan:
	default:
		return NewError("Config.Validate", KindConfig, fmt.Errorf("unknown on_parent_death %q: %w", c.OnParentDeath, ErrInvalidConfig))
	}
	return nil
}

// WithCallTimeout overrides AgentServerCallTimeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Config) error { c.AgentServerCallTimeout = d; return nil }
}

// WithMaxQueueSize overrides MaxQueueSize.
func WithMaxQueueSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewError("WithMaxQueueSize", KindConfig, fmt.Errorf("max queue size must be positive: %w", ErrInvalidConfig))
		}
		c.MaxQueueSize = n
		return nil
	}
}

// WithErrorPolicy overrides ErrorPolicy.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(c *Config) error { c.ErrorPolicy = p; return nil }
}

// WithOnParentDeath overrides OnParentDeath.
func WithOnParentDeath(p OnParentDeath) Option {
	return func(c *Config) error { c.OnParentDeath = p; return nil }
}

// WithDefaultDispatch overrides DefaultDispatch.
func WithDefaultDispatch(d DispatchKind) Option {
	return func(c *Config) error { c.DefaultDispatch = d; return nil }
}

// WithLogger installs a logger used for configuration diagnostics and
// propagated as the runtime default when components aren't given their own.
func WithLogger(l Logger) Option {
	return func(c *Config) error { c.logger = l; return nil }
}

// Logger returns the configured logger. DefaultConfig (and so NewConfig)
// installs a SimpleLogger; a Config with no logger set yields a no-op.
func (c *Config) Logger() Logger {
	if c.logger == nil {
		return NoOpLogger
	}
	return c.logger
}

// NewConfig builds a Config from defaults, environment variables, then opts,
// validating the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
