package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseType(t *testing.T) {
	t.Run("number with open range", func(t *testing.T) {
		typ, err := ParseType([]byte(`{"name":"number","integer":true,"range":{"min":0,"max":null}}`))
		require.NoError(t, err)

		n := typ.(*NumberType)
		assert.True(t, n.Integer)
		assert.Equal(t, 0.0, n.Range.Min)
		assert.True(t, math.IsInf(n.Range.Max, 1))
	})

	t.Run("nested structures", func(t *testing.T) {
		typ, err := ParseType([]byte(`{
			"name": "dict",
			"keys": {
				"tags": {"type": {"name": "array", "shape": {"element": "string", "length": -1}}},
				"pair": {"type": {"name": "array", "shape": ["number", {"name": "bool", "literal": true}]}, "optional": true},
				"mode": {"type": {"name": "union", "types": [{"name": "string", "enum": ["a", "b"]}, "never"]}}
			}
		}`))
		require.NoError(t, err)

		d := typ.(*DictType)
		require.Len(t, d.Keys, 3)
		assert.Equal(t, "string[]", d.Keys["tags"].Type.String())
		assert.True(t, d.Keys["pair"].Optional)
		assert.True(t, d.Keys["pair"].Type.(*ArrayType).IsTuple())
		assert.Equal(t, KindUnion, d.Keys["mode"].Type.Kind())
	})

	t.Run("shaped kinds", func(t *testing.T) {
		typ, err := ParseType([]byte(`{"name":"tensor","dtype":"float32","shape":[-1, 3]}`))
		require.NoError(t, err)
		assert.Equal(t, []int{DynamicLength, 3}, typ.(*TensorType).Shape)
	})

	errorCases := map[string]string{
		"empty":                `{}`,
		"unknown kind":         `{"name":"decimal"}`,
		"enum and constraints": `{"name":"string","enum":["a"],"constraints":[{"pattern":"a"}]}`,
		"inverted range":       `{"name":"number","range":{"min":5,"max":1}}`,
		"negative length":      `{"name":"string","constraints":[{"lenMin":-1}]}`,
		"union without list":   `{"name":"union"}`,
		"anonymous object":     `{"name":"python-object"}`,
		"bad dimension":        `{"name":"ndarray","shape":[1.5]}`,
	}
	for name, input := range errorCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseType([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestTypeValueRoundTrip(t *testing.T) {
	types := []Type{
		Normalize(UnionOf(NumberEnum(1, 2), Integer().Between(5, 6), Pattern("^x"), BoolLiteral(false))),
		&NumberType{Range: &Range{Min: math.Inf(-1), Max: 3}},
		DictOf(map[string]DictField{"a": Optional(TupleOf(String(), Number())), "b": Required(&PythonObjectType{Type: "T"})}),
		&StringType{Constraints: []StringConstraint{{Pattern: "^a", LenMin: IntPtr(1), LenMax: IntPtr(4)}}},
		&NDArrayType{DType: "u8", Shape: []int{DynamicLength}},
	}
	for _, typ := range types {
		data, err := MarshalType(typ)
		require.NoError(t, err)

		back, err := ParseType(data)
		require.NoError(t, err)
		assert.True(t, Equal(typ, back), "%s != %s (%s)", typ, back, data)

		direct, err := ParseTypeValue(TypeValue(typ))
		require.NoError(t, err)
		assert.True(t, Equal(typ, direct))
	}
}

func TestBoxEncoding(t *testing.T) {
	type entry struct {
		Name string `json:"name" yaml:"name"`
		Type Box    `json:"type" yaml:"type"`
	}

	t.Run("json", func(t *testing.T) {
		var e entry
		require.NoError(t, json.Unmarshal([]byte(`{"name":"x","type":{"name":"number","enum":[1]}}`), &e))
		assert.Equal(t, "number{1}", e.Type.Type.String())

		out, err := json.Marshal(e)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"x","type":{"name":"number","enum":[1]}}`, string(out))
	})

	t.Run("yaml", func(t *testing.T) {
		src := "name: y\ntype:\n  name: array\n  shape:\n    element: {name: number, integer: true}\n    length: 2\n"
		var e entry
		require.NoError(t, yaml.Unmarshal([]byte(src), &e))
		assert.Equal(t, "int[2]", e.Type.Type.String())

		out, err := yaml.Marshal(e)
		require.NoError(t, err)
		var again entry
		require.NoError(t, yaml.Unmarshal(out, &again))
		assert.True(t, Equal(e.Type.Type, again.Type.Type))
	})

	t.Run("invalid", func(t *testing.T) {
		var e entry
		err := json.Unmarshal([]byte(`{"type":{"name":"nope"}}`), &e)
		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, "SCHEMA_PARSE_ERROR", schemaErr.Code)
	})
}
