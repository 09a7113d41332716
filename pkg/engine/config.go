package engine

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/flow"
)

// Config configures an Engine.
type Config struct {
	// Resolver looks up node definitions. Required.
	Resolver flow.Resolver

	// Capabilities holds the named data and type implementations
	Capabilities *Capabilities

	// Evaluator runs inline implementations and verification code.
	// Without it, nodes with inline code fail with ErrNoEvaluator.
	Evaluator Evaluator

	// Logger for structured logging
	Logger *zap.Logger

	// Metrics receives per-node counters
	Metrics MetricsCollector

	// Observer is notified on every entry state write
	Observer StateObserver

	// Reporter is notified when a node raises an exception
	Reporter Reporter

	// Tracer opens one span per node preparation
	Tracer trace.Tracer
}

// DefaultConfig returns a configuration with every optional collaborator set
// to its no-op form. The resolver still has to be provided.
func DefaultConfig() Config {
	return Config{
		Capabilities: NewCapabilities(),
		Logger:       zap.NewNop(),
		Metrics:      &NoOpMetricsCollector{},
		Observer:     NopObserver{},
		Reporter:     NopReporter{},
		Tracer:       otel.Tracer("daedalus/engine"),
	}
}

// ApplyDefaults fills unset optional collaborators.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Capabilities == nil {
		c.Capabilities = defaults.Capabilities
	}
	if c.Logger == nil {
		c.Logger = defaults.Logger
	}
	if c.Metrics == nil {
		c.Metrics = defaults.Metrics
	}
	if c.Observer == nil {
		c.Observer = defaults.Observer
	}
	if c.Reporter == nil {
		c.Reporter = defaults.Reporter
	}
	if c.Tracer == nil {
		c.Tracer = defaults.Tracer
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Resolver == nil {
		return fmt.Errorf("%w: resolver is required", ErrInvalidConfig)
	}
	return nil
}

// WithResolver sets the definition resolver.
func (c Config) WithResolver(r flow.Resolver) Config {
	c.Resolver = r
	return c
}

// WithCapabilities sets the capability registry.
func (c Config) WithCapabilities(caps *Capabilities) Config {
	c.Capabilities = caps
	return c
}

// WithEvaluator sets the code evaluator.
func (c Config) WithEvaluator(ev Evaluator) Config {
	c.Evaluator = ev
	return c
}

// WithLogger sets the logger.
func (c Config) WithLogger(logger *zap.Logger) Config {
	c.Logger = logger
	return c
}

// WithMetrics sets the metrics collector.
func (c Config) WithMetrics(m MetricsCollector) Config {
	c.Metrics = m
	return c
}

// WithObserver sets the entry state observer.
func (c Config) WithObserver(o StateObserver) Config {
	c.Observer = o
	return c
}

// WithReporter sets the exception reporter.
func (c Config) WithReporter(r Reporter) Config {
	c.Reporter = r
	return c
}

// WithTracer sets the tracer.
func (c Config) WithTracer(t trace.Tracer) Config {
	c.Tracer = t
	return c
}
