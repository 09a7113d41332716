package engine

import (
	"context"
	"fmt"

	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// prepareCompound prepares the output nodes of the sub-flow and republishes
// their values under the compound node's outputs.
func (p *pass) prepareCompound(ctx context.Context, sc *scope, node *flow.NodeData, meta *flow.NodeMeta) error {
	if err := p.prepareInputs(ctx, sc, node, meta); err != nil {
		return err
	}
	p.ensureOutputs(node, meta)

	if node.InputState == flow.NodeNotReady {
		p.settleNotReady(ctx, sc, node)
		return nil
	}

	sub := node.SubFlow()
	if sub == nil {
		sub = flow.NewFlow(nil)
	}
	child := &scope{flow: sub, node: node, parent: sc}

	sinks, err := p.sinks(sub)
	if err != nil {
		return newNodeError(node, "subflow", err)
	}

	influence := make(map[string]flow.EntryState, len(sinks))
	var failed, pending bool
	for _, sink := range sinks {
		if err := p.prepareNode(ctx, child, sink); err != nil {
			return err
		}

		name := sink.Attr(flow.AttrOutputName)
		if name == "" {
			return newNodeError(node, "subflow", fmt.Errorf("%w: output node %s has no %s", ErrMissingAttribute, sink.ID, flow.AttrOutputName))
		}
		in := sink.Input(flow.SinkEntry)
		if in == nil {
			return newNodeError(node, "subflow", &flow.StructuralError{
				Kind:    flow.KindUnknownEntry,
				Nodes:   []string{sink.ID},
				Message: "output node has no " + flow.SinkEntry + " entry",
			})
		}
		entry, ok := meta.Output(name)
		if !ok {
			return newNodeError(node, "subflow", &flow.StructuralError{
				Kind:    flow.KindUnknownEntry,
				Nodes:   []string{node.ID, sink.ID},
				Message: "output " + name + " is not declared",
			})
		}

		rt, err := p.republish(ctx, entry, in.Runtime)
		if err != nil {
			return newNodeError(node, "subflow", err)
		}
		p.setEntry(ctx, sc, node, DirectionOutput, node.Output(name), rt)
		influence[name] = rt.State

		switch {
		case rt.Failed() || sink.Success == flow.VerdictFailed:
			failed = true
		case !rt.Ready():
			pending = true
		}
	}

	for _, slot := range node.Outputs {
		if slot.Runtime.State == flow.EntryInit {
			p.setEntry(ctx, sc, node, DirectionOutput, slot, flow.Unavailable())
		}
	}
	p.influence[node] = influence

	switch {
	case len(sinks) == 0:
		node.Success = flow.VerdictPassed
		node.OutputState = flow.NodeDataReady
		return nil
	case failed:
		node.Success = flow.VerdictFailed
	case pending:
		node.Success = flow.VerdictUnknown
	default:
		node.Success = flow.VerdictPassed
	}
	node.OutputState = outputState(node, node.Success)
	return nil
}

// sinks returns the output-category nodes of f in declaration order.
func (p *pass) sinks(f *flow.FlowState) ([]*flow.NodeData, error) {
	var sinks []*flow.NodeData
	for _, n := range f.Nodes {
		m, ok := p.config.Resolver.Resolve(n.MetaID, n.MetaVersion)
		if !ok {
			return nil, fmt.Errorf("%w: %s", flow.ErrUnknownMeta, flow.MetaKey{ID: n.MetaID, Version: n.MetaVersion})
		}
		if m.Category == flow.CategoryOutput {
			sinks = append(sinks, n)
		}
	}
	return sinks, nil
}

// republish checks a sink value against the compound output it is published under.
func (p *pass) republish(ctx context.Context, entry *flow.NodeEntry, rt flow.EntryRuntime) (flow.EntryRuntime, error) {
	switch rt.State {
	case flow.EntryDataReady:
		return p.acceptValue(ctx, entry, rt.Data)
	case flow.EntryTypeReady:
		if !schema.MustAssign(entry.Declared(), rt.Type) {
			return flow.ValidateFailed(entryError(CodeTypeMismatch,
				fmt.Sprintf("type %s is not assignable to %s", rt.Type, entry.Declared()), entry.Name)), nil
		}
		return rt, nil
	case flow.EntryValidateFailed, flow.EntryErrored:
		return rt, nil
	}
	return flow.Unavailable(), nil
}

// prepareSource feeds an input-category node of a sub-flow from the enclosing
// compound node's input named by its inputName attribute.
func (p *pass) prepareSource(ctx context.Context, sc *scope, node *flow.NodeData, meta *flow.NodeMeta) error {
	name := node.Attr(flow.AttrInputName)
	if name == "" {
		return newNodeError(node, "inputs", fmt.Errorf("%w: input node %s has no %s", ErrMissingAttribute, node.ID, flow.AttrInputName))
	}
	parentSlot := sc.node.Input(name)
	if parentSlot == nil {
		return newNodeError(node, "inputs", &flow.StructuralError{
			Kind:    flow.KindUnknownEntry,
			Nodes:   []string{sc.node.ID, node.ID},
			Message: "input " + name + " is not declared",
		})
	}
	entry, ok := meta.Output(flow.SourceEntry)
	if !ok {
		return newNodeError(node, "inputs", &flow.StructuralError{
			Kind:    flow.KindUnknownEntry,
			Nodes:   []string{node.ID},
			Message: "input node has no " + flow.SourceEntry + " entry",
		})
	}
	p.ensureOutputs(node, meta)

	rt, err := p.accept(ctx, entry, parentSlot.Runtime)
	if err != nil {
		return newNodeError(node, "inputs", err)
	}
	if parentSlot.Runtime.Failed() {
		rt = parentSlot.Runtime
	}
	p.setEntry(ctx, sc, node, DirectionOutput, node.Output(flow.SourceEntry), rt)
	for _, slot := range node.Outputs {
		if slot.Runtime.State == flow.EntryInit {
			p.setEntry(ctx, sc, node, DirectionOutput, slot, flow.Unavailable())
		}
	}
	p.influence[node] = map[string]flow.EntryState{flow.SourceEntry: rt.State}

	node.InputState = flow.NodeDataReady
	if rt.State == flow.EntryTypeReady {
		node.InputState = flow.NodeTypeReady
	}
	node.Success = runtimeVerdict(rt)
	node.OutputState = outputState(node, node.Success)
	return nil
}
