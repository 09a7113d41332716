// Package engine prepares the nodes of a flow: it pulls input values and types
// along incoming edges, runs data and type implementations, validates what
// they produce, and records the result as entry and node state on the flow.
//
// Preparation is synchronous and recursive. A prepare call owns the flow for
// its duration; the engine itself holds no per-flow state and may be shared.
package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// Engine prepares nodes against a definition resolver and capability registry.
type Engine struct {
	config    Config
	validator *schema.Validator
}

// New creates an engine. Unset optional collaborators get their no-op defaults.
func New(config Config) (*Engine, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:    config,
		validator: schema.NewValidator(),
	}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.config }

// PrepareOptions controls a prepare call.
type PrepareOptions struct {
	// Force re-evaluates upstream nodes whose outputs are already settled.
	// Each node still runs at most once per call.
	Force bool
}

// NodeResult summarizes a prepared node.
type NodeResult struct {
	NodeID      string
	MetaID      string
	InputState  flow.NodeState
	OutputState flow.NodeState
	Success     flow.Verdict
	// Influence maps each output the node settled to its state.
	Influence map[string]flow.EntryState
	// Failures maps "inputs.<name>" and "outputs.<name>" to the entry error message.
	Failures map[string]string
	Error    string
}

// FlowResult summarizes a prepared flow.
type FlowResult struct {
	Nodes map[string]*NodeResult
	// Order lists node ids in declaration order.
	Order []string
	// Outputs holds the published value of every top-level output node, keyed by its output name.
	Outputs map[string]flow.EntryRuntime
	Success flow.Verdict
}

// scope is one level of flow nesting. The root scope has no parent.
type scope struct {
	flow   *flow.FlowState
	node   *flow.NodeData
	parent *scope
}

func (s *scope) path() []string {
	var ids []string
	for sc := s; sc != nil && sc.node != nil; sc = sc.parent {
		ids = append(ids, sc.node.ID)
	}
	slices.Reverse(ids)
	return ids
}

// pass holds the state of one prepare call.
type pass struct {
	*Engine
	force      bool
	inProgress map[*flow.NodeData]bool
	visited    map[*flow.NodeData]bool
	influence  map[*flow.NodeData]map[string]flow.EntryState
	stack      []string
}

func (e *Engine) newPass(opts PrepareOptions) *pass {
	return &pass{
		Engine:     e,
		force:      opts.Force,
		inProgress: make(map[*flow.NodeData]bool),
		visited:    make(map[*flow.NodeData]bool),
		influence:  make(map[*flow.NodeData]map[string]flow.EntryState),
	}
}

// PrepareNode prepares one node of f, pulling whatever upstream state it needs.
// Runtime failures are recorded on the flow; the returned error is reserved for
// configuration errors such as cycles, unknown definitions or capabilities.
func (e *Engine) PrepareNode(ctx context.Context, f *flow.FlowState, nodeID string, opts PrepareOptions) (*NodeResult, error) {
	node := f.Node(nodeID)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	p := e.newPass(opts)
	if err := p.prepareNode(ctx, &scope{flow: f}, node); err != nil {
		return nil, err
	}
	return p.result(node), nil
}

// PrepareFlow prepares every node of f in declaration order. Nodes settled by
// an earlier call are kept unless opts.Force is set.
func (e *Engine) PrepareFlow(ctx context.Context, f *flow.FlowState, opts PrepareOptions) (*FlowResult, error) {
	p := e.newPass(opts)
	root := &scope{flow: f}

	result := &FlowResult{
		Nodes:   make(map[string]*NodeResult, len(f.Nodes)),
		Outputs: make(map[string]flow.EntryRuntime),
	}
	for _, node := range f.Nodes {
		if opts.Force || node.OutputState == flow.NodeInit || node.OutputState == "" {
			if err := p.prepareNode(ctx, root, node); err != nil {
				return nil, err
			}
		}
		result.Nodes[node.ID] = p.result(node)
		result.Order = append(result.Order, node.ID)
	}

	var verdicts []flow.Verdict
	for _, node := range f.Nodes {
		meta, ok := e.config.Resolver.Resolve(node.MetaID, node.MetaVersion)
		if !ok || meta.Category != flow.CategoryOutput {
			continue
		}
		name := node.Attr(flow.AttrOutputName)
		if name == "" {
			name = node.ID
		}
		slot := node.Input(flow.SinkEntry)
		if slot == nil {
			continue
		}
		result.Outputs[name] = slot.Runtime
		verdicts = append(verdicts, runtimeVerdict(slot.Runtime))
	}
	if len(verdicts) == 0 {
		for _, id := range result.Order {
			verdicts = append(verdicts, result.Nodes[id].Success)
		}
	}
	result.Success = aggregate(verdicts)
	return result, nil
}

func runtimeVerdict(rt flow.EntryRuntime) flow.Verdict {
	switch {
	case rt.Failed():
		return flow.VerdictFailed
	case rt.Ready():
		return flow.VerdictPassed
	}
	return flow.VerdictUnknown
}

// aggregate is failed when any verdict failed, passed when all passed.
func aggregate(verdicts []flow.Verdict) flow.Verdict {
	result := flow.VerdictPassed
	for _, v := range verdicts {
		switch v {
		case flow.VerdictFailed:
			return flow.VerdictFailed
		case flow.VerdictUnknown:
			result = flow.VerdictUnknown
		}
	}
	return result
}

func (p *pass) prepareNode(ctx context.Context, sc *scope, node *flow.NodeData) error {
	if p.inProgress[node] {
		start := slices.Index(p.stack, node.ID)
		if start < 0 {
			start = 0
		}
		path := append(slices.Clone(p.stack[start:]), node.ID)
		return flow.NewCycleError(path)
	}
	if p.visited[node] {
		return nil
	}

	meta, ok := p.config.Resolver.Resolve(node.MetaID, node.MetaVersion)
	if !ok {
		key := flow.MetaKey{ID: node.MetaID, Version: node.MetaVersion}
		return newNodeError(node, "resolve", fmt.Errorf("%w: %s", flow.ErrUnknownMeta, key))
	}

	p.inProgress[node] = true
	p.stack = append(p.stack, node.ID)
	defer func() {
		delete(p.inProgress, node)
		p.stack = p.stack[:len(p.stack)-1]
		p.visited[node] = true
	}()

	ctx, span := p.config.Tracer.Start(ctx, "engine.prepareNode",
		trace.WithAttributes(
			attribute.String("node.id", node.ID),
			attribute.String("node.meta_id", meta.ID),
			attribute.String("node.meta_version", meta.Version),
			attribute.String("node.kind", string(meta.Kind)),
			attribute.Int("node.depth", len(p.stack)),
		))
	defer span.End()

	start := time.Now()
	node.Error = ""
	node.Success = flow.VerdictUnknown

	var err error
	switch {
	case meta.Category == flow.CategoryInput && sc.parent != nil:
		err = p.prepareSource(ctx, sc, node, meta)
	case meta.IsCompound():
		err = p.prepareCompound(ctx, sc, node, meta)
	default:
		err = p.prepareBase(ctx, sc, node, meta)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	elapsed := time.Since(start)
	p.config.Metrics.RecordPrepared(meta.ID, node.OutputState, elapsed)
	span.SetAttributes(
		attribute.String("node.input_state", string(node.InputState)),
		attribute.String("node.output_state", string(node.OutputState)),
		attribute.String("node.success", node.Success.String()),
	)
	if node.OutputState == flow.NodeException {
		span.SetStatus(codes.Error, node.Error)
	} else {
		span.SetStatus(codes.Ok, "node prepared")
	}
	p.config.Logger.Debug("node prepared",
		zap.String("node_id", node.ID),
		zap.String("meta", meta.Key().String()),
		zap.String("input_state", string(node.InputState)),
		zap.String("output_state", string(node.OutputState)),
		zap.String("success", node.Success.String()),
		zap.Duration("elapsed", elapsed))
	return nil
}

// raise records an implementation exception on node. Configuration errors are
// returned instead so the caller aborts the whole prepare call.
func (p *pass) raise(ctx context.Context, sc *scope, node *flow.NodeData, meta *flow.NodeMeta, phase string, err error) error {
	if IsConfigError(err) {
		return newNodeError(node, phase, err)
	}

	for _, slot := range node.Outputs {
		p.setEntry(ctx, sc, node, DirectionOutput, slot, flow.Unavailable())
	}
	p.influence[node] = map[string]flow.EntryState{}
	node.OutputState = flow.NodeException
	node.Success = flow.VerdictFailed
	node.Error = err.Error()

	p.config.Metrics.RecordException(meta.ID)
	p.config.Logger.Warn("node raised an exception",
		zap.String("node_id", node.ID),
		zap.String("meta", meta.Key().String()),
		zap.String("phase", phase),
		zap.String("code", CategorizeError(err)),
		zap.Error(err))
	p.config.Reporter.ReportException(ctx, NodeFailure{
		NodeID: node.ID,
		MetaID: meta.ID,
		Title:  node.Title,
		Phase:  phase,
		Path:   sc.path(),
		Err:    err,
	})
	return nil
}

// setEntry writes rt to slot and notifies the observer.
func (p *pass) setEntry(ctx context.Context, sc *scope, node *flow.NodeData, dir Direction, slot *flow.Slot, rt flow.EntryRuntime) {
	previous := slot.Runtime.State
	slot.Runtime = rt
	if rt.State == flow.EntryValidateFailed {
		p.config.Metrics.RecordValidationFailure(node.MetaID)
	}
	p.config.Observer.EntryChanged(ctx, EntryEvent{
		NodeID:    node.ID,
		MetaID:    node.MetaID,
		Direction: dir,
		Entry:     slot.Name,
		Previous:  previous,
		Runtime:   rt,
		Path:      sc.path(),
		Time:      time.Now(),
	})
}

func (p *pass) result(node *flow.NodeData) *NodeResult {
	r := &NodeResult{
		NodeID:      node.ID,
		MetaID:      node.MetaID,
		InputState:  node.InputState,
		OutputState: node.OutputState,
		Success:     node.Success,
		Influence:   map[string]flow.EntryState{},
		Failures:    map[string]string{},
		Error:       node.Error,
	}
	if influence, ok := p.influence[node]; ok {
		for name, state := range influence {
			r.Influence[name] = state
		}
	} else {
		for _, slot := range node.Outputs {
			if slot.Runtime.State != flow.EntryInit {
				r.Influence[slot.Name] = slot.Runtime.State
			}
		}
	}
	collectFailures(r.Failures, "inputs.", node.Inputs)
	collectFailures(r.Failures, "outputs.", node.Outputs)
	return r
}

func collectFailures(into map[string]string, prefix string, slots []*flow.Slot) {
	for _, slot := range slots {
		if slot.Runtime.Err != nil {
			into[prefix+slot.Name] = slot.Runtime.Err.Error()
		}
	}
}
