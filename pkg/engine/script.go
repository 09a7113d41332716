package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/schema"
	"github.com/wehubfusion/Daedalus/pkg/script"
)

// Evaluator runs inline code with named bindings. *script.Evaluator implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, code string, bindings map[string]any) (any, error)
}

var _ Evaluator = (*script.Evaluator)(nil)

// ScriptData adapts inline code to a DataFunc. The code sees the bound input
// values as `inputs` and returns an object keyed by output name.
func ScriptData(ev Evaluator, code string) DataFunc {
	return func(ctx context.Context, inputs map[string]any) (Outcome[map[string]any], error) {
		result, err := ev.Evaluate(ctx, code, map[string]any{"inputs": inputs})
		if outcome, ok := signalOutcome[map[string]any](err); ok {
			return outcome, nil
		}
		if err != nil {
			return Outcome[map[string]any]{}, err
		}
		if result == nil {
			return Produced(map[string]any{}), nil
		}
		record, ok := result.(map[string]any)
		if !ok {
			return Outcome[map[string]any]{}, fmt.Errorf("%w: expected an object, got %T", ErrMalformedResult, result)
		}
		return Produced(record), nil
	}
}

// ScriptType adapts inline code to a TypeFunc. The code sees the bound input
// types as `types`, in their wire form, and returns an object of output types.
func ScriptType(ev Evaluator, code string) TypeFunc {
	return func(ctx context.Context, inputs map[string]schema.Type) (Outcome[map[string]schema.Type], error) {
		bound := make(map[string]any, len(inputs))
		for name, t := range inputs {
			bound[name] = schema.TypeValue(t)
		}
		result, err := ev.Evaluate(ctx, code, map[string]any{"types": bound})
		if outcome, ok := signalOutcome[map[string]schema.Type](err); ok {
			return outcome, nil
		}
		if err != nil {
			return Outcome[map[string]schema.Type]{}, err
		}
		if result == nil {
			return Produced(map[string]schema.Type{}), nil
		}
		record, ok := result.(map[string]any)
		if !ok {
			return Outcome[map[string]schema.Type]{}, fmt.Errorf("%w: expected an object of types, got %T", ErrMalformedResult, result)
		}
		types := make(map[string]schema.Type, len(record))
		for name, raw := range record {
			t, err := schema.ParseTypeValue(raw)
			if err != nil {
				return Outcome[map[string]schema.Type]{}, fmt.Errorf("%w: output %s: %v", ErrMalformedResult, name, err)
			}
			types[name] = t
		}
		return Produced(types), nil
	}
}

func signalOutcome[T any](err error) (Outcome[T], bool) {
	switch {
	case errors.Is(err, script.ErrNotImplemented):
		return Unsupported[T](), true
	case errors.Is(err, script.ErrNotReady):
		return Skip[T](), true
	}
	return Outcome[T]{}, false
}

// verify runs the entry's verification code against value. It returns the
// runtime the entry should take on failure, or nil when the value passes.
func (e *Engine) verify(ctx context.Context, entry *flow.NodeEntry, value any) (*flow.EntryRuntime, error) {
	if entry.Verify == "" {
		return nil, nil
	}
	if e.config.Evaluator == nil {
		return nil, fmt.Errorf("%w: entry %s has verification code", ErrNoEvaluator, entry.Name)
	}

	result, err := e.config.Evaluator.Evaluate(ctx, entry.Verify, map[string]any{"value": value})
	switch {
	case err == nil:
	case errors.Is(err, script.ErrValidationFailed):
		rt := flow.ValidateFailed(entryError(CodeVerifyFailed, validationMessage(err), entry.Name))
		return &rt, nil
	case script.IsSignal(err):
		rt := flow.Errored(entryError(CodeScript, "verification code signalled "+err.Error(), entry.Name))
		return &rt, nil
	case IsConfigError(err):
		return nil, err
	default:
		rt := flow.Errored(entryError(CategorizeError(err), err.Error(), entry.Name))
		return &rt, nil
	}

	if ok, isBool := result.(bool); isBool && !ok {
		rt := flow.ValidateFailed(entryError(CodeVerifyFailed, "verification returned false", entry.Name))
		return &rt, nil
	}
	return nil, nil
}

func validationMessage(err error) string {
	var failure *script.ValidationFailure
	if errors.As(err, &failure) {
		return failure.Message
	}
	return err.Error()
}
