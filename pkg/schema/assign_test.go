package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignability(t *testing.T) {
	tests := []struct {
		name        string
		left, right Type
		must, may   bool
	}{
		{"any accepts all", Any(), Number(), true, true},
		{"any into number may", Number(), Any(), false, true},
		{"never right is vacuous", String(), Never(), true, true},
		{"never left accepts nothing", Never(), String(), false, false},
		{"cross kind", Number(), String(), false, false},

		{"subrange", Number().Between(0, 10), Number().Between(2, 3), true, true},
		{"overlapping ranges", Number().Between(0, 10), Number().Between(5, 20), false, true},
		{"disjoint ranges", Number().Between(0, 1), Number().Between(5, 6), false, false},
		{"integer into real", Number(), Integer(), true, true},
		{"real into integer", Integer(), Number(), false, true},
		{"real window without integers", Integer(), Number().Between(0.2, 0.8), false, false},
		{"enum into range", Number().Between(0, 10), NumberEnum(1, 2), true, true},
		{"partial enum", Number().Between(0, 10), NumberEnum(1, 20), false, true},
		{"small integer range into enum", NumberEnum(1, 2, 3), Integer().Between(1, 3), true, true},
		{"unbounded into enum", NumberEnum(1, 2, 3), Integer(), false, true},

		{"string enum subset", StringEnum("a", "b", "c"), StringEnum("a", "b"), true, true},
		{"string enum overlap", StringEnum("a", "b"), StringEnum("b", "z"), false, true},
		{"string enum disjoint", StringEnum("a"), StringEnum("z"), false, false},
		{"enum into pattern", Pattern("^a"), StringEnum("abc", "a"), true, true},
		{"unconstrained into pattern", Pattern("^a"), String(), false, true},
		{"same pattern narrower length", &StringType{Constraints: []StringConstraint{{Pattern: "^a", LenMax: IntPtr(10)}}},
			&StringType{Constraints: []StringConstraint{{Pattern: "^a", LenMax: IntPtr(3)}}}, true, true},
		{"disjoint lengths", &StringType{Constraints: []StringConstraint{{LenMax: IntPtr(2)}}},
			&StringType{Constraints: []StringConstraint{{LenMin: IntPtr(5)}}}, false, false},

		{"bool literal into bool", Bool(), BoolLiteral(true), true, true},
		{"bool into literal", BoolLiteral(true), Bool(), false, true},
		{"opposite literals", BoolLiteral(true), BoolLiteral(false), false, false},

		{"dynamic array accepts fixed", ArrayOf(Number(), DynamicLength), ArrayOf(Integer(), 3), true, true},
		{"fixed array rejects dynamic", ArrayOf(Number(), 3), ArrayOf(Number(), DynamicLength), false, true},
		{"array lengths differ", ArrayOf(Number(), 2), ArrayOf(Number(), 3), false, false},
		{"tuple into simple", ArrayOf(UnionOf(Number(), String()), 2), TupleOf(Number(), String()), true, true},
		{"dynamic arrays share the empty array", ArrayOf(Number(), DynamicLength), ArrayOf(String(), DynamicLength), false, true},
		{"element mismatch", ArrayOf(Number(), 1), ArrayOf(String(), 1), false, false},

		{"dict required key", DictOf(map[string]DictField{"a": Required(Number())}),
			DictOf(map[string]DictField{"a": Required(Integer()), "b": Required(String())}), true, true},
		{"dict missing key", DictOf(map[string]DictField{"a": Required(Number())}), DictOf(nil), false, true},
		{"dict optional into required", DictOf(map[string]DictField{"a": Required(Number())}),
			DictOf(map[string]DictField{"a": Optional(Number())}), false, true},
		{"dict conflicting key", DictOf(map[string]DictField{"a": Required(Number())}),
			DictOf(map[string]DictField{"a": Required(String())}), false, false},

		{"ndarray wildcard", &NDArrayType{DType: "f4", Shape: []int{DynamicLength, 3}}, &NDArrayType{DType: "f4", Shape: []int{7, 3}}, true, true},
		{"ndarray concrete vs wildcard", &NDArrayType{Shape: []int{7, 3}}, &NDArrayType{Shape: []int{DynamicLength, 3}}, false, true},
		{"ndarray dtype", &NDArrayType{DType: "f4"}, &NDArrayType{DType: "f8"}, false, false},
		{"tensor unknown dtype", &TensorType{DType: "f4"}, &TensorType{}, false, true},
		{"python objects", &PythonObjectType{Type: "A"}, &PythonObjectType{Type: "A"}, true, true},

		{"union right must fit entirely", Number(), Normalize(UnionOf(Number(), String())), false, true},
		{"union left accepts member", Normalize(UnionOf(Number(), String())), StringEnum("x"), true, true},
		{"union into wider union", Normalize(UnionOf(Number(), String(), Bool())), Normalize(UnionOf(Integer(), StringEnum("a"))), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.must, MustAssign(tt.left, tt.right), "must")
			assert.Equal(t, tt.may, MayAssign(tt.left, tt.right), "may")
		})
	}
}

func TestEmptyNumberIsVacuous(t *testing.T) {
	empty := &NumberType{Enum: []float64{1.5}, Integer: true}
	assert.True(t, MustAssign(StringEnum("x"), empty))
	assert.True(t, MustAssign(Number().Between(0, 1), empty))
	assert.True(t, MayAssign(Number().Between(0, 1), empty))
}
