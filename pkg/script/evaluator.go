// Package script evaluates user supplied code snippets in a sandboxed
// JavaScript runtime. Every evaluation gets a fresh runtime, so an Evaluator
// is safe for concurrent and reentrant use.
package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// Evaluator runs code bodies with named bindings.
type Evaluator struct {
	config    Config
	logger    *zap.Logger
	utilities *UtilityRegistry
}

// NewEvaluator creates an evaluator. A nil logger disables console output.
func NewEvaluator(config Config, logger *zap.Logger) (*Evaluator, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		config:    config,
		logger:    logger,
		utilities: NewUtilityRegistry(),
	}, nil
}

// Config returns the effective configuration.
func (e *Evaluator) Config() Config { return e.config }

// Utilities exposes the registry so callers can add their own utilities.
func (e *Evaluator) Utilities() *UtilityRegistry { return e.utilities }

// Evaluate runs code as the body of a function, so `return` yields the result.
// Bindings become globals. The flow signals come back as ErrNotImplemented,
// ErrNotReady or *ValidationFailure; everything else thrown is a *JSError.
func (e *Evaluator) Evaluate(ctx context.Context, code string, bindings map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, NewInternalError(fmt.Sprintf("panic during execution: %v", r))
		}
	}()

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	if err := NewSandbox(&e.config).Apply(vm); err != nil {
		return nil, NewInternalError(err.Error())
	}

	env := &Env{Logger: e.logger}
	if err := (FlowUtility{}).Register(vm, env); err != nil {
		return nil, NewInternalError(err.Error())
	}
	if err := e.utilities.RegisterEnabled(vm, env, &e.config); err != nil {
		return nil, NewInternalError(err.Error())
	}

	for name, value := range bindings {
		if err := vm.Set(name, value); err != nil {
			return nil, NewInternalError(fmt.Sprintf("failed to bind %s: %v", name, err))
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-timeoutCtx.Done():
			vm.Interrupt("execution timeout")
		case <-done:
		}
	}()

	start := time.Now()
	value, runErr := vm.RunString("(function() {\n" + code + "\n})()")
	elapsed := time.Since(start)

	if runErr != nil {
		if env.signal != nil {
			return nil, env.signal
		}
		var interrupted *goja.InterruptedError
		if errors.As(runErr, &interrupted) {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("evaluation cancelled: %w", ctx.Err())
			}
			return nil, NewTimeoutError(e.config.Timeout)
		}
		jsErr := wrapError(runErr)
		e.logger.Debug("script failed", zap.Duration("elapsed", elapsed), zap.Error(jsErr))
		return nil, jsErr
	}

	e.logger.Debug("script evaluated", zap.Duration("elapsed", elapsed))
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	return value.Export(), nil
}

// Compile checks that code parses as a function body.
func Compile(code string) error {
	if _, err := goja.Compile("", "(function() {\n"+code+"\n})", false); err != nil {
		return wrapError(err)
	}
	return nil
}
