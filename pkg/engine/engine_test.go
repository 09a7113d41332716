package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/schema"
	"github.com/wehubfusion/Daedalus/pkg/script"
)

// Test definitions.

func constMeta() *flow.NodeMeta {
	return &flow.NodeMeta{
		ID: "const", Version: "1", Kind: flow.KindBase,
		Outputs: []flow.NodeEntry{{Name: "value", Type: schema.Number()}},
		Data:    &flow.Impl{API: "const"},
	}
}

func passMeta() *flow.NodeMeta {
	return &flow.NodeMeta{
		ID: "pass", Version: "1", Kind: flow.KindBase,
		Inputs:  []flow.NodeEntry{{Name: "x", Type: schema.Number()}},
		Outputs: []flow.NodeEntry{{Name: "y", Type: schema.Number()}},
		Data:    &flow.Impl{API: "pass"},
	}
}

func doubleMeta() *flow.NodeMeta {
	return &flow.NodeMeta{
		ID: "double", Version: "1", Kind: flow.KindBase,
		Inputs:  []flow.NodeEntry{{Name: "x", Type: schema.Number(), Recommend: flow.Must}},
		Outputs: []flow.NodeEntry{{Name: "y", Type: schema.Number()}},
		Data:    &flow.Impl{Code: "return {y: inputs.x * 2}"},
	}
}

func integerMeta() *flow.NodeMeta {
	return &flow.NodeMeta{
		ID: "count", Version: "1", Kind: flow.KindBase,
		Inputs:  []flow.NodeEntry{{Name: "n", Type: schema.Integer(), Recommend: flow.Must}},
		Outputs: []flow.NodeEntry{{Name: "y", Type: schema.Number()}},
		Data:    &flow.Impl{API: "pass"},
	}
}

func boomMeta() *flow.NodeMeta {
	return &flow.NodeMeta{
		ID: "boom", Version: "1", Kind: flow.KindBase,
		Outputs: []flow.NodeEntry{{Name: "a", Type: schema.Any()}, {Name: "b", Type: schema.Any()}},
		Data:    &flow.Impl{API: "boom"},
	}
}

func sinkMeta() *flow.NodeMeta {
	return &flow.NodeMeta{
		ID: "sink", Version: "1", Kind: flow.KindBase, Category: flow.CategoryOutput,
		Inputs: []flow.NodeEntry{{Name: flow.SinkEntry, Type: schema.Any()}},
	}
}

func sourceMeta() *flow.NodeMeta {
	return &flow.NodeMeta{
		ID: "source", Version: "1", Kind: flow.KindBase, Category: flow.CategoryInput,
		Outputs: []flow.NodeEntry{{Name: flow.SourceEntry, Type: schema.Any()}},
	}
}

type fixture struct {
	engine    *Engine
	caps      *Capabilities
	metrics   *DefaultMetricsCollector
	reporter  *recordingReporter
	observer  *recordingObserver
	constRuns int
}

type recordingReporter struct {
	mu       sync.Mutex
	failures []NodeFailure
}

func (r *recordingReporter) ReportException(_ context.Context, f NodeFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

type recordingObserver struct {
	events []EntryEvent
}

func (o *recordingObserver) EntryChanged(_ context.Context, e EntryEvent) {
	o.events = append(o.events, e)
}

func newFixture(t *testing.T, metas ...*flow.NodeMeta) *fixture {
	t.Helper()
	fx := &fixture{
		caps:     NewCapabilities(),
		metrics:  NewMetricsCollector(),
		reporter: &recordingReporter{},
		observer: &recordingObserver{},
	}
	fx.caps.
		Register("const", func(context.Context, map[string]any) (Outcome[map[string]any], error) {
			fx.constRuns++
			return Produced(map[string]any{"value": 2}), nil
		}).
		Register("pass", func(_ context.Context, in map[string]any) (Outcome[map[string]any], error) {
			return Produced(map[string]any{"y": in["x"]}), nil
		}).
		Register("boom", func(context.Context, map[string]any) (Outcome[map[string]any], error) {
			return Outcome[map[string]any]{}, errors.New("kaboom")
		})

	ev, err := script.NewEvaluator(script.Config{}, nil)
	require.NoError(t, err)

	all := append([]*flow.NodeMeta{constMeta(), passMeta(), doubleMeta(), integerMeta(), boomMeta(), sinkMeta(), sourceMeta()}, metas...)
	cfg := DefaultConfig().
		WithResolver(flow.StaticResolver(all...)).
		WithCapabilities(fx.caps).
		WithEvaluator(ev).
		WithMetrics(fx.metrics).
		WithReporter(fx.reporter).
		WithObserver(fx.observer)
	fx.engine, err = New(cfg)
	require.NoError(t, err)
	return fx
}

func node(meta *flow.NodeMeta, id string) *flow.NodeData {
	return flow.NewNodeData(meta).WithID(id)
}

func TestNewRequiresResolver(t *testing.T) {
	_, err := New(DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPrepareChain(t *testing.T) {
	fx := newFixture(t)
	out := node(sinkMeta(), "out")
	out.Attrs[flow.AttrOutputName] = "doubled"
	f := flow.NewFlow([]*flow.NodeData{node(constMeta(), "c"), node(doubleMeta(), "d"), out})
	f.Connect("c", "value", "d", "x")
	f.Connect("d", "y", "out", flow.SinkEntry)

	res, err := fx.engine.PrepareFlow(context.Background(), f, PrepareOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "d", "out"}, res.Order)
	assert.Equal(t, flow.VerdictPassed, res.Success)
	require.Contains(t, res.Outputs, "doubled")
	assert.Equal(t, flow.EntryDataReady, res.Outputs["doubled"].State)
	assert.Equal(t, int64(4), res.Outputs["doubled"].Data)

	d := res.Nodes["d"]
	assert.Equal(t, flow.NodeDataReady, d.InputState)
	assert.Equal(t, flow.NodeDataReady, d.OutputState)
	assert.Equal(t, flow.VerdictPassed, d.Success)
	assert.Equal(t, map[string]flow.EntryState{"y": flow.EntryDataReady}, d.Influence)
	assert.Empty(t, d.Failures)

	assert.Equal(t, 1, fx.constRuns)
	assert.Equal(t, int64(3), fx.metrics.GetMetrics().NodesPrepared)
}

func TestLiteralFailsIntegerInput(t *testing.T) {
	fx := newFixture(t)
	n := node(integerMeta(), "n")
	n.Input("n").SetLiteral(3.5)
	f := flow.NewFlow([]*flow.NodeData{n})

	res, err := fx.engine.PrepareNode(context.Background(), f, "n", PrepareOptions{})
	require.NoError(t, err)

	assert.Equal(t, flow.EntryValidateFailed, n.Input("n").Runtime.State)
	assert.Equal(t, CodeValidation, n.Input("n").Runtime.Err.Code)
	assert.Equal(t, flow.NodeNotReady, res.InputState)
	assert.Equal(t, flow.NodeNotReady, res.OutputState)
	assert.Equal(t, flow.EntryUnavailable, n.Output("y").Runtime.State)
	assert.Contains(t, res.Failures, "inputs.n")
	assert.Equal(t, int64(1), fx.metrics.GetMetrics().ValidationFailures)
}

func TestOptionalFailedInputDegradesToValidateFailed(t *testing.T) {
	meta := passMeta()
	meta.ID = "lenient"
	meta.Inputs = []flow.NodeEntry{
		{Name: "x", Type: schema.Number()},
		{Name: "tag", Type: schema.String()},
	}
	fx := newFixture(t, meta)
	n := node(meta, "n")
	n.Input("x").SetLiteral(1)
	n.Input("tag").SetLiteral(7)

	res, err := fx.engine.PrepareNode(context.Background(), flow.NewFlow([]*flow.NodeData{n}), "n", PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, flow.NodeValidateFailed, res.InputState)
	assert.Equal(t, flow.EntryDataReady, n.Output("y").Runtime.State)
	assert.Equal(t, 1, n.Output("y").Runtime.Data)
}

func TestCompoundWithoutSinks(t *testing.T) {
	compound := &flow.NodeMeta{
		ID: "group", Version: "1", Kind: flow.KindCompound,
		Outputs: []flow.NodeEntry{{Name: "result", Type: schema.Number()}},
		Flow:    flow.NewFlow([]*flow.NodeData{node(constMeta(), "inner")}),
	}
	fx := newFixture(t, compound)
	g := node(compound, "g")

	res, err := fx.engine.PrepareNode(context.Background(), flow.NewFlow([]*flow.NodeData{g}), "g", PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, flow.VerdictPassed, res.Success)
	assert.Empty(t, res.Influence)
	assert.Empty(t, res.Failures)
	assert.Equal(t, flow.NodeDataReady, res.OutputState)
	assert.Equal(t, 0, fx.constRuns)
}

func TestExceptionLeavesSiblingsAlone(t *testing.T) {
	fx := newFixture(t)
	f := flow.NewFlow([]*flow.NodeData{node(boomMeta(), "boom"), node(constMeta(), "c")})

	res, err := fx.engine.PrepareFlow(context.Background(), f, PrepareOptions{})
	require.NoError(t, err)

	boom := res.Nodes["boom"]
	assert.Equal(t, flow.NodeException, boom.OutputState)
	assert.Equal(t, flow.VerdictFailed, boom.Success)
	assert.Equal(t, "kaboom", boom.Error)
	b := f.Node("boom")
	assert.Equal(t, flow.EntryUnavailable, b.Output("a").Runtime.State)
	assert.Equal(t, flow.EntryUnavailable, b.Output("b").Runtime.State)

	c := res.Nodes["c"]
	assert.Equal(t, flow.NodeDataReady, c.OutputState)
	assert.Equal(t, flow.VerdictPassed, c.Success)

	require.Len(t, fx.reporter.failures, 1)
	assert.Equal(t, "boom", fx.reporter.failures[0].NodeID)
	assert.Equal(t, "data", fx.reporter.failures[0].Phase)
	assert.Equal(t, int64(1), fx.metrics.GetMetrics().Exceptions)
	assert.Equal(t, flow.VerdictFailed, res.Success)
}

func TestScriptExceptionIsRecorded(t *testing.T) {
	meta := &flow.NodeMeta{
		ID: "thrower", Version: "1", Kind: flow.KindBase,
		Outputs: []flow.NodeEntry{{Name: "y"}},
		Data:    &flow.Impl{Code: "throw new Error('bad input')"},
	}
	fx := newFixture(t, meta)
	n := node(meta, "t")

	res, err := fx.engine.PrepareNode(context.Background(), flow.NewFlow([]*flow.NodeData{n}), "t", PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, flow.NodeException, res.OutputState)
	assert.Contains(t, res.Error, "bad input")
}

func TestCycleFailsFast(t *testing.T) {
	fx := newFixture(t)
	f := flow.NewFlow([]*flow.NodeData{node(passMeta(), "a"), node(passMeta(), "b")})
	f.Connect("b", "y", "a", "x")
	f.Connect("a", "y", "b", "x")

	_, err := fx.engine.PrepareNode(context.Background(), f, "a", PrepareOptions{})
	require.Error(t, err)
	assert.True(t, flow.IsCycle(err))
	assert.True(t, IsConfigError(err))

	var se *flow.StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"a", "b", "a"}, se.Nodes)
}

func TestCompoundRepublishesSinks(t *testing.T) {
	src := node(sourceMeta(), "src")
	src.Attrs[flow.AttrInputName] = "in"
	inner := node(doubleMeta(), "inner")
	sink := node(sinkMeta(), "sink")
	sink.Attrs[flow.AttrOutputName] = "out"
	sub := flow.NewFlow([]*flow.NodeData{src, inner, sink})
	sub.Connect("src", flow.SourceEntry, "inner", "x")
	sub.Connect("inner", "y", "sink", flow.SinkEntry)

	compound := &flow.NodeMeta{
		ID: "wrap", Version: "1", Kind: flow.KindCompound,
		Inputs:  []flow.NodeEntry{{Name: "in", Type: schema.Number(), Recommend: flow.Must}},
		Outputs: []flow.NodeEntry{{Name: "out", Type: schema.Number()}, {Name: "unused", Type: schema.Any()}},
		Flow:    sub,
	}
	fx := newFixture(t, compound)
	f := flow.NewFlow([]*flow.NodeData{node(constMeta(), "c"), node(compound, "w")})
	f.Connect("c", "value", "w", "in")

	res, err := fx.engine.PrepareNode(context.Background(), f, "w", PrepareOptions{})
	require.NoError(t, err)

	w := f.Node("w")
	assert.Equal(t, flow.EntryDataReady, w.Output("out").Runtime.State)
	assert.Equal(t, int64(4), w.Output("out").Runtime.Data)
	assert.Equal(t, flow.EntryUnavailable, w.Output("unused").Runtime.State)
	assert.Equal(t, map[string]flow.EntryState{"out": flow.EntryDataReady}, res.Influence)
	assert.Equal(t, flow.VerdictPassed, res.Success)
	assert.Equal(t, flow.NodeDataReady, res.OutputState)

	var nested bool
	for _, e := range fx.observer.events {
		if e.NodeID == "inner" {
			nested = true
			assert.Equal(t, []string{"w"}, e.Path)
		}
	}
	assert.True(t, nested)
}

func TestCompoundTemplateOverridesFlow(t *testing.T) {
	compound := &flow.NodeMeta{
		ID: "wrap", Version: "1", Kind: flow.KindCompound,
		Outputs: []flow.NodeEntry{{Name: "out", Type: schema.Number()}},
		Flow:    flow.NewFlow(nil),
	}
	fx := newFixture(t, compound)

	sink := node(sinkMeta(), "sink")
	sink.Attrs[flow.AttrOutputName] = "out"
	tmpl := flow.NewFlow([]*flow.NodeData{node(constMeta(), "c"), sink})
	tmpl.Connect("c", "value", "sink", flow.SinkEntry)

	w := node(compound, "w")
	w.Template = tmpl
	_, err := fx.engine.PrepareNode(context.Background(), flow.NewFlow([]*flow.NodeData{w}), "w", PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, w.Output("out").Runtime.Data)
}

func TestSinkWithoutOutputNameIsConfigError(t *testing.T) {
	compound := &flow.NodeMeta{
		ID: "wrap", Version: "1", Kind: flow.KindCompound,
		Flow: flow.NewFlow([]*flow.NodeData{node(sinkMeta(), "sink")}),
	}
	fx := newFixture(t, compound)
	_, err := fx.engine.PrepareNode(context.Background(), flow.NewFlow([]*flow.NodeData{node(compound, "w")}), "w", PrepareOptions{})
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestTypeInference(t *testing.T) {
	typeSource := &flow.NodeMeta{
		ID: "typed", Version: "1", Kind: flow.KindBase,
		Outputs:  []flow.NodeEntry{{Name: "value", Type: schema.Number()}},
		TypeImpl: &flow.Impl{API: "integer"},
	}
	ident := &flow.NodeMeta{
		ID: "ident", Version: "1", Kind: flow.KindBase,
		Inputs:   []flow.NodeEntry{{Name: "x", Type: schema.Number(), Recommend: flow.Must}},
		Outputs:  []flow.NodeEntry{{Name: "y", Type: schema.Number()}},
		Data:     &flow.Impl{API: "pass"},
		TypeImpl: &flow.Impl{API: "ident"},
	}
	fx := newFixture(t, typeSource, ident)
	fx.caps.
		RegisterType("integer", func(context.Context, map[string]schema.Type) (Outcome[map[string]schema.Type], error) {
			return Produced(map[string]schema.Type{"value": schema.Integer()}), nil
		}).
		RegisterType("ident", func(_ context.Context, in map[string]schema.Type) (Outcome[map[string]schema.Type], error) {
			return Produced(map[string]schema.Type{"y": in["x"]}), nil
		})

	f := flow.NewFlow([]*flow.NodeData{node(typeSource, "t"), node(ident, "i")})
	f.Connect("t", "value", "i", "x")

	res, err := fx.engine.PrepareNode(context.Background(), f, "i", PrepareOptions{})
	require.NoError(t, err)

	i := f.Node("i")
	assert.Equal(t, flow.NodeTypeReady, res.InputState)
	assert.Equal(t, flow.NodeTypeReady, res.OutputState)
	assert.Equal(t, flow.VerdictPassed, res.Success)
	assert.Equal(t, flow.EntryTypeReady, i.Output("y").Runtime.State)
	assert.True(t, schema.Equal(schema.Integer(), i.Output("y").Runtime.Type))
}

func TestInferredTypeMustFitDeclaration(t *testing.T) {
	meta := &flow.NodeMeta{
		ID: "liar", Version: "1", Kind: flow.KindBase,
		Outputs:  []flow.NodeEntry{{Name: "y", Type: schema.Number()}},
		Data:     &flow.Impl{Code: "notImplemented()"},
		TypeImpl: &flow.Impl{Code: "return {y: {name: 'string'}}"},
	}
	fx := newFixture(t, meta)
	n := node(meta, "n")

	res, err := fx.engine.PrepareNode(context.Background(), flow.NewFlow([]*flow.NodeData{n}), "n", PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, flow.EntryValidateFailed, n.Output("y").Runtime.State)
	assert.Equal(t, CodeTypeMismatch, n.Output("y").Runtime.Err.Code)
	assert.Equal(t, flow.NodeValidateFailed, res.OutputState)
	assert.Equal(t, flow.VerdictFailed, res.Success)
	assert.Equal(t, int64(1), fx.metrics.GetMetrics().Fallthroughs)
}

func TestNotReadyLeavesOutputsUnavailable(t *testing.T) {
	meta := &flow.NodeMeta{
		ID: "later", Version: "1", Kind: flow.KindBase,
		Outputs: []flow.NodeEntry{{Name: "y"}},
		Data:    &flow.Impl{Code: "notReady()"},
	}
	fx := newFixture(t, meta)
	n := node(meta, "n")

	res, err := fx.engine.PrepareNode(context.Background(), flow.NewFlow([]*flow.NodeData{n}), "n", PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, flow.VerdictUnknown, res.Success)
	assert.Equal(t, flow.NodeUnavailable, res.OutputState)
	assert.Empty(t, fx.reporter.failures)
}

func TestVerificationCode(t *testing.T) {
	meta := passMeta()
	meta.ID = "checked"
	meta.Inputs = []flow.NodeEntry{{
		Name: "x", Type: schema.Number(), Recommend: flow.Must,
		Verify: "assert(value > 0, 'must be positive')",
	}}
	fx := newFixture(t, meta)

	n := node(meta, "n")
	n.Input("x").SetLiteral(-1)
	f := flow.NewFlow([]*flow.NodeData{n})
	res, err := fx.engine.PrepareNode(context.Background(), f, "n", PrepareOptions{})
	require.NoError(t, err)
	rt := n.Input("x").Runtime
	assert.Equal(t, flow.EntryValidateFailed, rt.State)
	assert.Equal(t, CodeVerifyFailed, rt.Err.Code)
	assert.Equal(t, "must be positive", rt.Err.Message)
	assert.Equal(t, flow.NodeNotReady, res.InputState)

	n.Input("x").SetLiteral(3)
	res, err = fx.engine.PrepareNode(context.Background(), f, "n", PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, flow.NodeDataReady, res.OutputState)
}

func TestVerificationSignalsAreErrors(t *testing.T) {
	for _, code := range []string{"notReady()", "notImplemented()"} {
		t.Run(code, func(t *testing.T) {
			meta := passMeta()
			meta.ID = "signalled"
			meta.Inputs = []flow.NodeEntry{{Name: "x", Type: schema.Number(), Recommend: flow.Must, Verify: code}}
			fx := newFixture(t, meta)

			n := node(meta, "n")
			n.Input("x").SetLiteral(3)
			f := flow.NewFlow([]*flow.NodeData{n})
			res, err := fx.engine.PrepareNode(context.Background(), f, "n", PrepareOptions{})
			require.NoError(t, err)

			rt := n.Input("x").Runtime
			assert.Equal(t, flow.EntryErrored, rt.State)
			require.NotNil(t, rt.Err)
			assert.Equal(t, CodeScript, rt.Err.Code)
			assert.Contains(t, rt.Err.Message, "verification code signalled")
			assert.Equal(t, flow.NodeNotReady, res.InputState)
			assert.Equal(t, flow.VerdictFailed, res.Success)
		})
	}
}

func TestForceReevaluatesUpstream(t *testing.T) {
	fx := newFixture(t)
	f := flow.NewFlow([]*flow.NodeData{node(constMeta(), "c"), node(passMeta(), "p"), node(passMeta(), "q")})
	f.Connect("c", "value", "p", "x")
	f.Connect("c", "value", "q", "x")

	ctx := context.Background()
	_, err := fx.engine.PrepareNode(ctx, f, "p", PrepareOptions{})
	require.NoError(t, err)
	_, err = fx.engine.PrepareNode(ctx, f, "q", PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.constRuns)

	_, err = fx.engine.PrepareFlow(ctx, f, PrepareOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, fx.constRuns)
}

func TestConfigErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown node", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.engine.PrepareNode(ctx, flow.NewFlow(nil), "missing", PrepareOptions{})
		assert.ErrorIs(t, err, ErrUnknownNode)
	})

	t.Run("unknown meta", func(t *testing.T) {
		fx := newFixture(t)
		n := &flow.NodeData{ID: "n", MetaID: "nope"}
		_, err := fx.engine.PrepareNode(ctx, flow.NewFlow([]*flow.NodeData{n}), "n", PrepareOptions{})
		assert.ErrorIs(t, err, flow.ErrUnknownMeta)
	})

	t.Run("unknown capability", func(t *testing.T) {
		meta := constMeta()
		meta.ID = "ghost"
		meta.Data = &flow.Impl{API: "ghost"}
		fx := newFixture(t, meta)
		_, err := fx.engine.PrepareNode(ctx, flow.NewFlow([]*flow.NodeData{node(meta, "g")}), "g", PrepareOptions{})
		assert.ErrorIs(t, err, ErrUnknownCapability)
		assert.Empty(t, fx.reporter.failures)
	})

	t.Run("malformed result", func(t *testing.T) {
		meta := constMeta()
		meta.ID = "scalar"
		meta.Data = &flow.Impl{Code: "return 5"}
		fx := newFixture(t, meta)
		_, err := fx.engine.PrepareNode(ctx, flow.NewFlow([]*flow.NodeData{node(meta, "s")}), "s", PrepareOptions{})
		assert.ErrorIs(t, err, ErrMalformedResult)
		var nodeErr *NodeError
		require.ErrorAs(t, err, &nodeErr)
		assert.Equal(t, "s", nodeErr.NodeID)
	})

	t.Run("no evaluator", func(t *testing.T) {
		eng, err := New(DefaultConfig().WithResolver(flow.StaticResolver(doubleMeta())))
		require.NoError(t, err)
		n := node(doubleMeta(), "d")
		n.Input("x").SetLiteral(1)
		_, err = eng.PrepareNode(ctx, flow.NewFlow([]*flow.NodeData{n}), "d", PrepareOptions{})
		assert.ErrorIs(t, err, ErrNoEvaluator)
	})

	t.Run("dangling edge", func(t *testing.T) {
		fx := newFixture(t)
		f := flow.NewFlow([]*flow.NodeData{node(passMeta(), "p")})
		f.Connect("gone", "y", "p", "x")
		_, err := fx.engine.PrepareNode(ctx, f, "p", PrepareOptions{})
		assert.ErrorIs(t, err, flow.ErrStructural)
	})
}

func TestObserverSeesTransitions(t *testing.T) {
	fx := newFixture(t)
	f := flow.NewFlow([]*flow.NodeData{node(constMeta(), "c")})

	_, err := fx.engine.PrepareNode(context.Background(), f, "c", PrepareOptions{})
	require.NoError(t, err)

	require.Len(t, fx.observer.events, 1)
	e := fx.observer.events[0]
	assert.Equal(t, "c", e.NodeID)
	assert.Equal(t, DirectionOutput, e.Direction)
	assert.Equal(t, "value", e.Entry)
	assert.Equal(t, flow.EntryInit, e.Previous)
	assert.Equal(t, flow.EntryDataReady, e.Runtime.State)
	assert.Empty(t, e.Path)
}
