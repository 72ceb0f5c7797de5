package logrelay

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → Accept → Relay
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []Option
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// AcceptOption configures the gateway-facing side (credentials, storage).
type AcceptOption func(*Flow)

// RelayOption configures the upstream-facing side (scoring, telemetry).
type RelayOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw Option values to the builder for advanced scenarios.
func (f *Flow) Options(opts ...Option) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// Accept records gateway-side overrides (auth validator, log store).
func (f *Flow) Accept(opts ...AcceptOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Relay records upstream-side overrides and builds a Runtime ready to run.
func (f *Flow) Relay(opts ...RelayOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return New(f.cfg, f.opts...)
}

// Run is a shortcut for Relay + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...RelayOption) error {
	rt, err := f.Relay(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends Option values during Conf.
func WithFlowOptions(opts ...Option) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// AcceptValidator injects a custom credential validator.
func AcceptValidator(v AuthValidator) AcceptOption {
	return func(f *Flow) {
		if f != nil && v != nil {
			f.appendOptions(WithAuthValidator(v))
		}
	}
}

// AcceptStore swaps the default store for a caller-provided implementation.
func AcceptStore(s LogStore) AcceptOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithLogStore(s))
		}
	}
}

// RelayScorer injects a custom scoring backend in place of the upstream websocket.
func RelayScorer(s Scorer) RelayOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithScorer(s))
		}
	}
}

// RelayMetrics replaces the default Prometheus metrics backend.
func RelayMetrics(m Metrics) RelayOption {
	return func(f *Flow) {
		if f != nil && m != nil {
			f.appendOptions(WithMetrics(m))
		}
	}
}

// AcceptStoreCallback installs a store built from a simple callback function.
func AcceptStoreCallback(name string, fn EventFunc) AcceptOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithLogStore(NewCallbackStore(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
