package engine

import (
	"context"
	"fmt"

	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// prepareInputs settles every declared input of node and derives its input state.
func (p *pass) prepareInputs(ctx context.Context, sc *scope, node *flow.NodeData, meta *flow.NodeMeta) error {
	for i := range meta.Inputs {
		entry := &meta.Inputs[i]
		slot := node.Input(entry.Name)
		if slot == nil {
			slot = &flow.Slot{Name: entry.Name, Mode: flow.ModeHandle, Runtime: flow.InitRuntime()}
			node.Inputs = append(node.Inputs, slot)
		}

		rt, err := p.pullInput(ctx, sc, node, entry, slot)
		if err != nil {
			return err
		}
		p.setEntry(ctx, sc, node, DirectionInput, slot, rt)
	}
	node.InputState = inputState(node, meta)
	return nil
}

func (p *pass) pullInput(ctx context.Context, sc *scope, node *flow.NodeData, entry *flow.NodeEntry, slot *flow.Slot) (flow.EntryRuntime, error) {
	if slot.Mode == flow.ModeInput {
		if !slot.HasValue {
			return flow.Unavailable(), nil
		}
		return p.acceptValue(ctx, entry, slot.Value)
	}

	edge, ok := sc.flow.IncomingEdge(node.ID, entry.Name)
	if !ok {
		return flow.Unavailable(), nil
	}
	upstream := sc.flow.Node(edge.SourceNode)
	if upstream == nil {
		return flow.EntryRuntime{}, &flow.StructuralError{
			Kind:    flow.KindDanglingEdge,
			Nodes:   []string{edge.SourceNode, node.ID},
			Message: "edge " + edge.String() + " starts at a missing node",
		}
	}
	source := upstream.Output(edge.SourceEntry)
	if source == nil {
		return flow.EntryRuntime{}, &flow.StructuralError{
			Kind:    flow.KindUnknownEntry,
			Nodes:   []string{upstream.ID},
			Message: "edge " + edge.String() + " reads an undeclared output",
		}
	}

	if source.Runtime.State == flow.EntryInit || (p.force && !p.visited[upstream]) {
		if err := p.prepareNode(ctx, sc, upstream); err != nil {
			return flow.EntryRuntime{}, err
		}
	}
	return p.accept(ctx, entry, source.Runtime)
}

// accept checks an upstream runtime against the receiving entry.
func (p *pass) accept(ctx context.Context, entry *flow.NodeEntry, rt flow.EntryRuntime) (flow.EntryRuntime, error) {
	switch rt.State {
	case flow.EntryDataReady:
		return p.acceptValue(ctx, entry, rt.Data)
	case flow.EntryTypeReady:
		if !schema.MayAssign(entry.Declared(), rt.Type) {
			return flow.ValidateFailed(entryError(CodeTypeMismatch,
				fmt.Sprintf("type %s cannot be assigned to %s", rt.Type, entry.Declared()), entry.Name)), nil
		}
		return flow.TypeReady(rt.Type), nil
	}
	return flow.Unavailable(), nil
}

// acceptValue validates value against the entry type and its verification code.
func (p *pass) acceptValue(ctx context.Context, entry *flow.NodeEntry, value any) (flow.EntryRuntime, error) {
	if result := p.validator.Validate(value, entry.Declared()); !result.Valid {
		return flow.ValidateFailed(entryError(CodeValidation, result.Summary(), entry.Name)), nil
	}
	failed, err := p.verify(ctx, entry, value)
	if err != nil {
		return flow.EntryRuntime{}, err
	}
	if failed != nil {
		return *failed, nil
	}
	return flow.DataReady(value), nil
}

// inputState derives the node input state from the settled input entries.
func inputState(node *flow.NodeData, meta *flow.NodeMeta) flow.NodeState {
	var failed, typeOnly bool
	for i := range meta.Inputs {
		entry := &meta.Inputs[i]
		rt := node.Input(entry.Name).Runtime
		switch {
		case rt.State == flow.EntryDataReady:
		case rt.State == flow.EntryTypeReady:
			typeOnly = true
		case entry.Recommend >= flow.Must:
			return flow.NodeNotReady
		case rt.Failed():
			failed = true
		}
	}
	switch {
	case failed:
		return flow.NodeValidateFailed
	case typeOnly:
		return flow.NodeTypeReady
	}
	return flow.NodeDataReady
}
