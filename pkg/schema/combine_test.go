package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name string
		a, b Type
		ok   bool
		want Type
	}{
		{"different kinds", Number(), String(), false, nil},
		{"enum union", NumberEnum(1, 2), NumberEnum(2, 3), true, NumberEnum(1, 2, 3)},
		{"enum filtered by own range", &NumberType{Enum: []float64{1, 50}, Range: &Range{Min: 0, Max: 10}}, NumberEnum(2), true, NumberEnum(1, 2)},
		{"enum into range", NumberEnum(1, 2), Number().Between(0, 10), true, Number().Between(0, 10)},
		{"enum outside range", NumberEnum(11), Number().Between(0, 10), false, nil},
		{"enum into integer rejects fractions", NumberEnum(1.5), Integer(), false, nil},
		{"ranges extend", Number().Between(0, 1), Number().Between(5, 6), true, Number().Between(0, 6)},
		{"integer ranges extend", Integer().Between(0, 10), Integer().Between(5, 20), true, Integer().Between(0, 20)},
		{"unbounded wins", Number(), Number().Between(5, 6), true, Number()},
		{"integer into wider real", Integer().Between(1, 2), Number().Between(0, 5), true, Number().Between(0, 5)},
		{"integer not inside real", Integer().Between(1, 9), Number().Between(0, 5), false, nil},
		{"string enums", StringEnum("a"), StringEnum("b", "a"), true, StringEnum("a", "b")},
		{"string enum fits pattern", StringEnum("abc"), Pattern("^a"), true, Pattern("^a")},
		{"string enum misses pattern", StringEnum("xyz"), Pattern("^a"), false, nil},
		{"string enum into unconstrained", StringEnum("xyz"), String(), true, String()},
		{"constraint lists concatenate", Pattern("^a"), Pattern("^b"), true,
			&StringType{Constraints: []StringConstraint{{Pattern: "^a"}, {Pattern: "^b"}}}},
		{"same bool literal", BoolLiteral(true), BoolLiteral(true), true, BoolLiteral(true)},
		{"different bool literals", BoolLiteral(true), BoolLiteral(false), true, Bool()},
		{"identical arrays", ArrayOf(Number(), 2), ArrayOf(Number(), 2), true, ArrayOf(Number(), 2)},
		{"different arrays", ArrayOf(Number(), 2), ArrayOf(Number(), 3), false, nil},
		{"shape wildcard propagates", &NDArrayType{DType: "f4", Shape: []int{2, 3}}, &NDArrayType{DType: "f4", Shape: []int{2, DynamicLength}}, true,
			&NDArrayType{DType: "f4", Shape: []int{2, DynamicLength}}},
		{"shape mismatch", &TensorType{Shape: []int{2, 3}}, &TensorType{Shape: []int{2, 4}}, false, nil},
		{"rank mismatch", &TensorType{Shape: []int{2}}, &TensorType{Shape: []int{2, 4}}, false, nil},
		{"dtype mismatch", &NDArrayType{DType: "f4"}, &NDArrayType{DType: "f8"}, false, nil},
		{"same python object", &PythonObjectType{Type: "Foo"}, &PythonObjectType{Type: "Foo"}, true, &PythonObjectType{Type: "Foo"}},
		{"different python objects", &PythonObjectType{Type: "Foo"}, &PythonObjectType{Type: "Bar"}, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Combine(tt.a, tt.b)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				assert.Nil(t, got)
				return
			}
			assert.True(t, Equal(tt.want, got), "want %s, got %s", tt.want, got)

			swapped, ok := Combine(tt.b, tt.a)
			require.True(t, ok)
			assert.True(t, Equal(got, swapped), "combine is not commutative: %s vs %s", got, swapped)
		})
	}
}

func TestCombineDict(t *testing.T) {
	a := DictOf(map[string]DictField{
		"shared": Required(Number()),
		"left":   Required(String()),
	})
	b := DictOf(map[string]DictField{
		"shared": Optional(String()),
		"right":  Required(Bool()),
	})

	got, ok := Combine(a, b)
	require.True(t, ok)
	d := got.(*DictType)

	require.Len(t, d.Keys, 3)
	assert.True(t, d.Keys["shared"].Optional)
	assert.Equal(t, KindUnion, d.Keys["shared"].Type.Kind())
	assert.False(t, d.Keys["left"].Optional)
	assert.False(t, d.Keys["right"].Optional)

	t.Run("unconstrained record covers all", func(t *testing.T) {
		got, ok := Combine(DictOf(nil), a)
		require.True(t, ok)
		assert.Nil(t, got.(*DictType).Keys)
	})
}

func TestJoin(t *testing.T) {
	got := Join(Number(), String())
	require.IsType(t, &UnionType{}, got)

	got = Join(got, NumberEnum(4))
	require.IsType(t, &UnionType{}, got)
	assert.Len(t, got.(*UnionType).Types, 2)

	assert.Equal(t, KindNumber, Join(Never(), Number()).Kind())
	assert.Equal(t, KindAny, Join(Any(), Number()).Kind())
}
