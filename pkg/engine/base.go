package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// prepareBase runs the data path, then the type path when the data path left
// the node undecided.
func (p *pass) prepareBase(ctx context.Context, sc *scope, node *flow.NodeData, meta *flow.NodeMeta) error {
	if err := p.prepareInputs(ctx, sc, node, meta); err != nil {
		return err
	}
	p.ensureOutputs(node, meta)

	if node.InputState == flow.NodeNotReady {
		p.settleNotReady(ctx, sc, node)
		return nil
	}

	verdict := flow.VerdictUnknown
	attempted := false

	if meta.Data != nil && node.InputState != flow.NodeTypeReady {
		fn, err := p.dataFunc(meta.Data)
		if err != nil {
			return newNodeError(node, "data", err)
		}
		outcome, err := callData(ctx, fn, boundValues(node))
		if err != nil {
			return p.raise(ctx, sc, node, meta, "data", err)
		}
		switch outcome.Kind {
		case OutcomeProduced:
			attempted = true
			verdict, err = p.settleValues(ctx, sc, node, meta, outcome.Value)
			if err != nil {
				return err
			}
		default:
			p.config.Metrics.RecordFallthrough(meta.ID, outcome.Kind)
		}
	}

	if verdict == flow.VerdictUnknown && meta.TypeImpl != nil {
		fn, err := p.typeFunc(meta.TypeImpl)
		if err != nil {
			return newNodeError(node, "type", err)
		}
		outcome, err := callType(ctx, fn, boundTypes(node))
		if err != nil {
			return p.raise(ctx, sc, node, meta, "type", err)
		}
		switch outcome.Kind {
		case OutcomeProduced:
			attempted = true
			verdict = p.settleTypes(ctx, sc, node, meta, outcome.Value)
		default:
			p.config.Metrics.RecordFallthrough(meta.ID, outcome.Kind)
		}
	}

	influence := make(map[string]flow.EntryState, len(node.Outputs))
	for _, slot := range node.Outputs {
		if slot.Runtime.State == flow.EntryInit {
			p.setEntry(ctx, sc, node, DirectionOutput, slot, flow.Unavailable())
		}
		influence[slot.Name] = slot.Runtime.State
	}
	p.influence[node] = influence

	if len(node.Outputs) == 0 && verdict == flow.VerdictUnknown && (attempted || (meta.Data == nil && meta.TypeImpl == nil)) {
		// nothing to produce; the node stands or falls with its inputs
		if node.InputState == flow.NodeValidateFailed {
			verdict = flow.VerdictFailed
		} else {
			verdict = flow.VerdictPassed
		}
	}
	node.Success = verdict
	node.OutputState = outputState(node, verdict)
	return nil
}

// ensureOutputs creates slots for declared outputs a node instance lacks and
// returns every output to init before it is recomputed.
func (p *pass) ensureOutputs(node *flow.NodeData, meta *flow.NodeMeta) {
	for _, entry := range meta.Outputs {
		if node.Output(entry.Name) == nil {
			node.Outputs = append(node.Outputs, &flow.Slot{Name: entry.Name, Mode: flow.ModeHandle})
		}
	}
	for _, slot := range node.Outputs {
		slot.Runtime = flow.InitRuntime()
	}
}

func (p *pass) settleNotReady(ctx context.Context, sc *scope, node *flow.NodeData) {
	for _, slot := range node.Outputs {
		p.setEntry(ctx, sc, node, DirectionOutput, slot, flow.Unavailable())
	}
	p.influence[node] = map[string]flow.EntryState{}
	node.OutputState = flow.NodeNotReady
	node.Success = flow.VerdictUnknown
	for _, slot := range node.Inputs {
		if slot.Runtime.Failed() {
			node.Success = flow.VerdictFailed
			break
		}
	}
}

// settleValues validates a produced record against the declared outputs.
func (p *pass) settleValues(ctx context.Context, sc *scope, node *flow.NodeData, meta *flow.NodeMeta, values map[string]any) (flow.Verdict, error) {
	var failed, absent bool
	for i := range meta.Outputs {
		entry := &meta.Outputs[i]
		value, ok := values[entry.Name]
		if !ok {
			absent = true
			continue
		}
		rt, err := p.acceptValue(ctx, entry, value)
		if err != nil {
			return flow.VerdictUnknown, newNodeError(node, "verify", err)
		}
		if rt.Failed() {
			failed = true
		}
		p.setEntry(ctx, sc, node, DirectionOutput, node.Output(entry.Name), rt)
	}
	for name := range values {
		if _, declared := meta.Output(name); !declared {
			p.config.Logger.Debug("implementation returned an undeclared output",
				zap.String("node_id", node.ID),
				zap.String("output", name))
		}
	}
	switch {
	case failed:
		return flow.VerdictFailed, nil
	case absent:
		return flow.VerdictUnknown, nil
	}
	return flow.VerdictPassed, nil
}

// settleTypes checks inferred types against the outputs the data path left open.
func (p *pass) settleTypes(ctx context.Context, sc *scope, node *flow.NodeData, meta *flow.NodeMeta, types map[string]schema.Type) flow.Verdict {
	var failed, absent bool
	for i := range meta.Outputs {
		entry := &meta.Outputs[i]
		slot := node.Output(entry.Name)
		switch slot.Runtime.State {
		case flow.EntryDataReady:
			continue
		case flow.EntryValidateFailed, flow.EntryErrored:
			failed = true
			continue
		}
		t, ok := types[entry.Name]
		if !ok || t == nil {
			absent = true
			continue
		}
		t = schema.Normalize(t)
		if !schema.MustAssign(entry.Declared(), t) {
			failed = true
			p.setEntry(ctx, sc, node, DirectionOutput, slot, flow.ValidateFailed(entryError(CodeTypeMismatch,
				fmt.Sprintf("inferred type %s is not assignable to %s", t, entry.Declared()), entry.Name)))
			continue
		}
		p.setEntry(ctx, sc, node, DirectionOutput, slot, flow.TypeReady(t))
	}
	switch {
	case failed:
		return flow.VerdictFailed
	case absent:
		return flow.VerdictUnknown
	}
	return flow.VerdictPassed
}

// outputState derives the node output state from its output entries.
func outputState(node *flow.NodeData, verdict flow.Verdict) flow.NodeState {
	if len(node.Outputs) == 0 {
		switch verdict {
		case flow.VerdictPassed:
			if node.InputState == flow.NodeTypeReady {
				return flow.NodeTypeReady
			}
			return flow.NodeDataReady
		case flow.VerdictFailed:
			return flow.NodeValidateFailed
		}
		return flow.NodeUnavailable
	}

	var ready, typeOnly bool
	for _, slot := range node.Outputs {
		switch {
		case slot.Runtime.Failed():
			return flow.NodeValidateFailed
		case slot.Runtime.State == flow.EntryTypeReady:
			ready, typeOnly = true, true
		case slot.Runtime.State == flow.EntryDataReady:
			ready = true
		}
	}
	switch {
	case !ready:
		return flow.NodeUnavailable
	case typeOnly:
		return flow.NodeTypeReady
	}
	return flow.NodeDataReady
}

func (p *pass) dataFunc(impl *flow.Impl) (DataFunc, error) {
	if !impl.Inline() {
		return p.config.Capabilities.Lookup(impl.API)
	}
	if p.config.Evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return ScriptData(p.config.Evaluator, impl.Code), nil
}

func (p *pass) typeFunc(impl *flow.Impl) (TypeFunc, error) {
	if !impl.Inline() {
		return p.config.Capabilities.LookupType(impl.API)
	}
	if p.config.Evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return ScriptType(p.config.Evaluator, impl.Code), nil
}

// boundValues collects the inputs that carry a concrete value.
func boundValues(node *flow.NodeData) map[string]any {
	values := make(map[string]any, len(node.Inputs))
	for _, slot := range node.Inputs {
		if slot.Runtime.State == flow.EntryDataReady {
			values[slot.Name] = slot.Runtime.Data
		}
	}
	return values
}

// boundTypes collects the inputs whose type is known.
func boundTypes(node *flow.NodeData) map[string]schema.Type {
	types := make(map[string]schema.Type, len(node.Inputs))
	for _, slot := range node.Inputs {
		if t := slot.Runtime.KnownType(); t != nil {
			types[slot.Name] = t
		}
	}
	return types
}

// callData invokes fn, turning a panic into an error.
func callData(ctx context.Context, fn DataFunc, inputs map[string]any) (outcome Outcome[map[string]any], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("implementation panicked: %v", r)
		}
	}()
	return fn(ctx, inputs)
}

func callType(ctx context.Context, fn TypeFunc, inputs map[string]schema.Type) (outcome Outcome[map[string]schema.Type], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("type implementation panicked: %v", r)
		}
	}()
	return fn(ctx, inputs)
}
