package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wehubfusion/Daedalus/pkg/schema"
)

const definitionsYAML = `
nodes:
  - id: scale
    version: "1"
    title: Scale
    inputs:
      - name: x
        type: {name: number}
        recommend: must
      - name: factor
        type: {name: number, integer: true}
    outputs:
      - name: y
        type: number
    frontendImpl:
      code: "return {y: inputs.x * inputs.factor}"
  - id: sink
    version: "1"
    category: output
    inputs:
      - name: output
`

func TestDefinitionsDocument(t *testing.T) {
	var doc DefinitionsDocument
	require.NoError(t, yaml.Unmarshal([]byte(definitionsYAML), &doc))
	require.NoError(t, ValidateDocument(&doc))
	require.Len(t, doc.Nodes, 2)

	meta, err := doc.Nodes[0].ToMeta()
	require.NoError(t, err)
	assert.Equal(t, KindBase, meta.Kind)
	assert.Equal(t, MetaKey{ID: "scale", Version: "1"}, meta.Key())

	x, ok := meta.Input("x")
	require.True(t, ok)
	assert.Equal(t, Must, x.Recommend)
	factor, _ := meta.Input("factor")
	assert.Equal(t, "int", factor.Type.String())
	require.NotNil(t, meta.Data)
	assert.True(t, meta.Data.Inline())

	sink, err := doc.Nodes[1].ToMeta()
	require.NoError(t, err)
	assert.Equal(t, CategoryOutput, sink.Category)
	assert.Equal(t, schema.KindAny, sink.Inputs[0].Type.Kind())

	back := FromMeta(meta)
	again, err := back.ToMeta()
	require.NoError(t, err)
	assert.True(t, schema.Equal(meta.Inputs[1].Type, again.Inputs[1].Type))
	assert.Equal(t, Must, again.Inputs[0].Recommend)
}

func TestDocumentValidation(t *testing.T) {
	cases := map[string]any{
		"missing id": &DefinitionsDocument{Nodes: []MetaDocument{{Version: "1"}}},
		"bad kind":   &DefinitionsDocument{Nodes: []MetaDocument{{ID: "a", Version: "1", Kind: "leaf"}}},
		"code and api": &DefinitionsDocument{Nodes: []MetaDocument{{
			ID: "a", Version: "1", Data: &ImplDocument{Code: "x", API: "y"},
		}}},
		"empty impl": &DefinitionsDocument{Nodes: []MetaDocument{{
			ID: "a", Version: "1", TypeImpl: &ImplDocument{},
		}}},
		"bad level": &DefinitionsDocument{Nodes: []MetaDocument{{
			ID: "a", Version: "1", Inputs: []EntryDocument{{Name: "x", Recommend: "sometimes"}},
		}}},
		"edge without target": &FlowDocument{Edges: []EdgeDocument{{Source: "a", SourceEntry: "o"}}},
		"bad mode":            &FlowDocument{Nodes: []NodeDocument{{ID: "a", Meta: "m", Inputs: []SlotDocument{{Name: "x", Mode: "wire"}}}}},
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateDocument(doc))
		})
	}
}

func TestFlowDocumentRoundTrip(t *testing.T) {
	res := StaticResolver(passMeta())
	src := `{
		"nodes": [
			{"id": "a", "meta": "pass", "inputs": [{"name": "in", "mode": "input", "value": 4}]},
			{"id": "b", "meta": "pass", "version": "1", "attrs": {"outputName": "result"}}
		],
		"edges": [{"source": "a", "sourceEntry": "out", "target": "b", "targetEntry": "in"}]
	}`

	var doc FlowDocument
	require.NoError(t, json.Unmarshal([]byte(src), &doc))
	require.NoError(t, ValidateDocument(&doc))

	f, err := doc.ToFlow(res)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	a := f.Node("a")
	require.NotNil(t, a)
	assert.Equal(t, ModeInput, a.Input("in").Mode)
	assert.True(t, a.Input("in").HasValue)
	assert.Equal(t, 4.0, a.Input("in").Value)
	assert.Equal(t, "result", f.Node("b").Attr(AttrOutputName))

	out := FromFlow(f)
	assert.Equal(t, doc.Edges, out.Edges)
	require.Len(t, out.Nodes[0].Inputs, 1)
	assert.Equal(t, "input", out.Nodes[0].Inputs[0].Mode)
	assert.Empty(t, out.Nodes[1].Inputs)

	doc.Nodes[0].Meta = "unknown"
	_, err = doc.ToFlow(res)
	assert.ErrorIs(t, err, ErrUnknownMeta)

	doc.Nodes[0].Meta = "pass"
	doc.Nodes[0].Inputs[0].Name = "nope"
	_, err = doc.ToFlow(res)
	assert.Error(t, err)
}
