package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name  string
		value any
		typ   Type
		code  string // empty means valid
	}{
		{"any accepts null", nil, Any(), ""},
		{"never rejects", 1.0, Never(), "NEVER"},
		{"number", 3.5, Number(), ""},
		{"int kinds", int64(4), Integer(), ""},
		{"not a number", "3", Number(), "TYPE_MISMATCH"},
		{"null number", nil, Number(), "REQUIRED"},
		{"not integer", 2.5, Integer(), "NOT_INTEGER"},
		{"below range", -1.0, Number().Between(0, 10), "MIN_VALUE"},
		{"above range", 11, Number().Between(0, 10), "MAX_VALUE"},
		{"in enum", 2.0, NumberEnum(1, 2), ""},
		{"not in enum", 3.0, NumberEnum(1, 2), "ENUM_MISMATCH"},

		{"string enum", "b", StringEnum("a", "b"), ""},
		{"string not in enum", "c", StringEnum("a", "b"), "ENUM_MISMATCH"},
		{"pattern", "abc", Pattern("^a"), ""},
		{"pattern mismatch", "xbc", Pattern("^a"), "PATTERN_MISMATCH"},
		{"invalid pattern", "x", Pattern("("), "INVALID_PATTERN"},
		{"too short", "a", &StringType{Constraints: []StringConstraint{{LenMin: IntPtr(2)}}}, "MIN_LENGTH"},
		{"too long", "abc", &StringType{Constraints: []StringConstraint{{LenMax: IntPtr(2)}}}, "MAX_LENGTH"},
		{"length counts code points", "héé", &StringType{Constraints: []StringConstraint{{LenMax: IntPtr(3)}}}, ""},
		{"any alternative", "42", &StringType{Constraints: []StringConstraint{{Pattern: "^[a-z]+$"}, {Pattern: "^[0-9]+$"}}}, ""},
		{"no alternative", "-", &StringType{Constraints: []StringConstraint{{Pattern: "^[a-z]+$"}, {Pattern: "^[0-9]+$"}}}, "CONSTRAINT_MISMATCH"},

		{"bool", true, Bool(), ""},
		{"bool literal", false, BoolLiteral(true), "ENUM_MISMATCH"},

		{"dynamic array", []any{1.0, 2.0}, ArrayOf(Number(), DynamicLength), ""},
		{"typed slice", []string{"a"}, ArrayOf(String(), 1), ""},
		{"array length", []any{1.0}, ArrayOf(Number(), 2), "LENGTH_MISMATCH"},
		{"array element", []any{1.0, "x"}, ArrayOf(Number(), DynamicLength), "TYPE_MISMATCH"},
		{"tuple", []any{1.0, "x"}, TupleOf(Number(), String()), ""},
		{"tuple mismatch", []any{"x", 1.0}, TupleOf(Number(), String()), "TYPE_MISMATCH"},

		{"dict", map[string]any{"a": 1.0, "extra": true}, DictOf(map[string]DictField{"a": Required(Number())}), ""},
		{"dict missing", map[string]any{}, DictOf(map[string]DictField{"a": Required(Number())}), "REQUIRED"},
		{"dict optional", map[string]any{}, DictOf(map[string]DictField{"a": Optional(Number())}), ""},
		{"dict nested", map[string]any{"a": "x"}, DictOf(map[string]DictField{"a": Required(Number())}), "TYPE_MISMATCH"},

		{"ndarray", NDArray{DType: "f4", Shape: []int{2, 3}}, &NDArrayType{DType: "f4", Shape: []int{DynamicLength, 3}}, ""},
		{"ndarray dtype", NDArray{DType: "f8", Shape: []int{2}}, &NDArrayType{DType: "f4"}, "DTYPE_MISMATCH"},
		{"ndarray shape", &NDArray{DType: "f4", Shape: []int{2, 4}}, &NDArrayType{Shape: []int{2, 3}}, "SHAPE_MISMATCH"},
		{"tensor is not ndarray", Tensor{DType: "f4"}, &NDArrayType{}, "TYPE_MISMATCH"},
		{"tensor", Tensor{DType: "f4", Shape: []int{1}}, &TensorType{Shape: []int{1}}, ""},
		{"python object", PyObject{TypeName: "Model"}, &PythonObjectType{Type: "Model"}, ""},
		{"python object type", &PyObject{TypeName: "Other"}, &PythonObjectType{Type: "Model"}, "OBJECT_TYPE_MISMATCH"},

		{"union member", "x", Normalize(UnionOf(Number(), String())), ""},
		{"union none", true, Normalize(UnionOf(Number(), String())), "UNION_MISMATCH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.value, tt.typ)
			if tt.code == "" {
				assert.True(t, result.Valid, "unexpected errors: %v", result.Errors)
				assert.Empty(t, result.Errors)
				return
			}
			require.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Equal(t, tt.code, result.Errors[0].Code, "errors: %v", result.Errors)
		})
	}
}

func TestValidatorPaths(t *testing.T) {
	v := NewValidator()
	typ := DictOf(map[string]DictField{
		"items": Required(ArrayOf(DictOf(map[string]DictField{"id": Required(Integer())}), DynamicLength)),
	})
	value := map[string]any{
		"items": []any{
			map[string]any{"id": 1.0},
			map[string]any{"id": 1.5},
		},
	}

	result := v.Validate(value, typ)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "root.items[1].id", result.Errors[0].Path)
	assert.Contains(t, result.Summary(), "root.items[1].id")
}

func TestStringLength(t *testing.T) {
	assert.Equal(t, 0, StringLength(""))
	assert.Equal(t, 3, StringLength("abc"))
	// decomposed e + combining acute composes to one code point
	assert.Equal(t, 1, StringLength("e\u0301"))
}
