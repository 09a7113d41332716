package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Daedalus/pkg/schema"
)

func passMeta() *NodeMeta {
	return &NodeMeta{
		ID:      "pass",
		Version: "1",
		Kind:    KindBase,
		Inputs:  []NodeEntry{{Name: "in", Type: schema.Number(), Recommend: Must}},
		Outputs: []NodeEntry{{Name: "out", Type: schema.Number()}},
	}
}

func chain(ids ...string) *FlowState {
	f := &FlowState{}
	for _, id := range ids {
		f.AddNode(NewNodeData(passMeta()).WithID(id))
	}
	for i := 1; i < len(ids); i++ {
		f.Connect(ids[i-1], "out", ids[i], "in")
	}
	return f
}

func structuralKinds(err error) []string {
	var kinds []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		var se *StructuralError
		if errors.As(err, &se) {
			if joined, ok := err.(interface{ Unwrap() []error }); ok {
				for _, e := range joined.Unwrap() {
					walk(e)
				}
				return
			}
			kinds = append(kinds, se.Kind)
		}
	}
	walk(err)
	return kinds
}

func TestNewNodeData(t *testing.T) {
	n := NewNodeData(passMeta())
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "pass", n.MetaID)
	require.NotNil(t, n.Input("in"))
	require.NotNil(t, n.Output("out"))
	assert.Equal(t, EntryInit, n.Input("in").Runtime.State)
	assert.Equal(t, ModeHandle, n.Input("in").Mode)
	assert.Nil(t, n.Input("missing"))

	other := NewNodeData(passMeta())
	assert.NotEqual(t, n.ID, other.ID)
}

func TestValidateAcceptsChain(t *testing.T) {
	assert.NoError(t, chain("a", "b", "c").Validate())
}

func TestValidateFindsCycle(t *testing.T) {
	f := chain("a", "b", "c")
	f.Connect("c", "out", "a", "in")

	err := f.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStructural))
	assert.True(t, IsCycle(err))

	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"a", "b", "c", "a"}, se.Nodes)
}

func TestValidateStructuralProblems(t *testing.T) {
	f := chain("a", "b")
	f.AddNode(NewNodeData(passMeta()).WithID("a"))
	f.Connect("ghost", "out", "b", "in")
	f.Connect("a", "nope", "b", "in")
	f.Connect("b", "out", "b", "in")

	err := f.Validate()
	require.Error(t, err)
	assert.ElementsMatch(t,
		[]string{KindDuplicateNode, KindDanglingEdge, KindUnknownEntry, KindSelfLoop},
		structuralKinds(err))
}

func TestDuplicateIncomingEdges(t *testing.T) {
	f := chain("a", "b")
	f.AddNode(NewNodeData(passMeta()).WithID("c"))
	f.Connect("c", "out", "b", "in")

	edge, ok := f.IncomingEdge("b", "in")
	require.True(t, ok)
	assert.Equal(t, "a", edge.SourceNode, "first declared edge wins")

	assert.Equal(t, []string{KindDuplicateEdge}, structuralKinds(f.Validate()))
}

func TestResetAndClone(t *testing.T) {
	f := chain("a", "b")
	a := f.Node("a")
	a.Output("out").Runtime = DataReady(1.0)
	a.OutputState = NodeDataReady
	a.Success = VerdictPassed

	c := f.Clone()
	c.Node("a").Output("out").Runtime = Unavailable()
	assert.Equal(t, EntryDataReady, a.Output("out").Runtime.State, "clone must not share slots")

	f.ResetEntries()
	assert.Equal(t, EntryInit, a.Output("out").Runtime.State)
	assert.Equal(t, NodeInit, a.OutputState)
	assert.Equal(t, VerdictUnknown, a.Success)
}

func TestEntryRuntime(t *testing.T) {
	assert.True(t, DataReady(2.0).Ready())
	assert.Equal(t, "number{2}", DataReady(2.0).KnownType().String())
	assert.Equal(t, schema.KindString, TypeReady(schema.String()).KnownType().Kind())
	assert.Nil(t, Unavailable().KnownType())
	assert.True(t, ValidateFailed(&EntryError{Message: "x"}).Failed())
	assert.False(t, InitRuntime().Ready())

	errored := Errored(&EntryError{Code: "SCRIPT_ERROR", Message: "boom"})
	assert.Equal(t, EntryErrored, errored.State)
	assert.Equal(t, EntryState("error"), errored.State)
	assert.True(t, errored.Failed())
	assert.False(t, errored.Ready())
	assert.Nil(t, errored.KnownType())
}

func TestRecommendLevel(t *testing.T) {
	level, err := ParseRecommendLevel("MUST")
	require.NoError(t, err)
	assert.Equal(t, Must, level)
	assert.True(t, Must > Recommended && Broken < Discouraged)

	level, err = ParseRecommendLevel("")
	require.NoError(t, err)
	assert.Equal(t, Optional, level)

	_, err = ParseRecommendLevel("sometimes")
	assert.Error(t, err)
	assert.Equal(t, "must", Must.String())
}
