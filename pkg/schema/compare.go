package schema

import (
	"cmp"
	"slices"
	"sort"
)

// Compare is a total order over normalized types. It returns 0 only for
// structurally identical types.
func Compare(a, b Type) int {
	if c := cmp.Compare(string(a.Kind()), string(b.Kind())); c != 0 {
		return c
	}
	switch x := a.(type) {
	case *AnyType, *NeverType:
		return 0
	case *NumberType:
		return compareNumber(x, b.(*NumberType))
	case *StringType:
		return compareString(x, b.(*StringType))
	case *BoolType:
		return compareBool(x, b.(*BoolType))
	case *ArrayType:
		return compareArray(x, b.(*ArrayType))
	case *DictType:
		return compareDict(x, b.(*DictType))
	case *NDArrayType:
		y := b.(*NDArrayType)
		return compareShaped(x.DType, x.Shape, y.DType, y.Shape)
	case *TensorType:
		y := b.(*TensorType)
		return compareShaped(x.DType, x.Shape, y.DType, y.Shape)
	case *PythonObjectType:
		return cmp.Compare(x.Type, b.(*PythonObjectType).Type)
	case *UnionType:
		return compareList(x.Types, b.(*UnionType).Types)
	}
	panic("schema: unknown type " + string(a.Kind()))
}

// Equal reports structural identity.
func Equal(a, b Type) bool {
	return Compare(a, b) == 0
}

// SortTypes sorts types in place by Compare.
func SortTypes(types []Type) {
	sort.SliceStable(types, func(i, j int) bool {
		return Compare(types[i], types[j]) < 0
	})
}

func compareNumber(a, b *NumberType) int {
	// enum-bearing types sort before range-only types
	switch {
	case a.HasEnum() && !b.HasEnum():
		return -1
	case !a.HasEnum() && b.HasEnum():
		return 1
	case a.HasEnum():
		ea, eb := slices.Clone(a.Enum), slices.Clone(b.Enum)
		slices.Sort(ea)
		slices.Sort(eb)
		if c := cmp.Compare(len(ea), len(eb)); c != 0 {
			return c
		}
		for i := range ea {
			if c := cmp.Compare(ea[i], eb[i]); c != 0 {
				return c
			}
		}
	}
	// integer before non-integer
	if a.Integer != b.Integer {
		if a.Integer {
			return -1
		}
		return 1
	}
	switch {
	case a.Range == nil && b.Range == nil:
		return 0
	case a.Range == nil:
		return 1
	case b.Range == nil:
		return -1
	}
	if c := cmp.Compare(a.Range.Min, b.Range.Min); c != 0 {
		return c
	}
	return cmp.Compare(a.Range.Max, b.Range.Max)
}

func compareString(a, b *StringType) int {
	switch {
	case a.HasEnum() && !b.HasEnum():
		return -1
	case !a.HasEnum() && b.HasEnum():
		return 1
	case a.HasEnum():
		ea, eb := slices.Clone(a.Enum), slices.Clone(b.Enum)
		slices.Sort(ea)
		slices.Sort(eb)
		if c := cmp.Compare(len(ea), len(eb)); c != 0 {
			return c
		}
		for i := range ea {
			if c := cmp.Compare(ea[i], eb[i]); c != 0 {
				return c
			}
		}
		return 0
	}
	if c := cmp.Compare(len(a.Constraints), len(b.Constraints)); c != 0 {
		return c
	}
	for i := range a.Constraints {
		if c := compareConstraint(a.Constraints[i], b.Constraints[i]); c != 0 {
			return c
		}
	}
	return 0
}

// compareConstraint orders by pattern, then lenMin, then lenMax; a present
// field sorts before an absent one.
func compareConstraint(a, b StringConstraint) int {
	switch {
	case a.Pattern != "" && b.Pattern == "":
		return -1
	case a.Pattern == "" && b.Pattern != "":
		return 1
	}
	if c := cmp.Compare(a.Pattern, b.Pattern); c != 0 {
		return c
	}
	if c := compareOptionalInt(a.LenMin, b.LenMin); c != 0 {
		return c
	}
	return compareOptionalInt(a.LenMax, b.LenMax)
}

func compareOptionalInt(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

func compareBool(a, b *BoolType) int {
	switch {
	case a.Literal == nil && b.Literal == nil:
		return 0
	case a.Literal == nil:
		return 1
	case b.Literal == nil:
		return -1
	case *a.Literal == *b.Literal:
		return 0
	case !*a.Literal:
		return -1
	}
	return 1
}

func compareArray(a, b *ArrayType) int {
	if c := cmp.Compare(a.Len(), b.Len()); c != 0 {
		return c
	}
	if !a.IsTuple() && !b.IsTuple() {
		return Compare(a.Element, b.Element)
	}
	// simple arrays sort before tuples of the same length
	if a.IsTuple() != b.IsTuple() {
		n := a.Len()
		for i := 0; i < n; i++ {
			if c := Compare(a.ElementAt(i), b.ElementAt(i)); c != 0 {
				return c
			}
		}
		if a.IsTuple() {
			return 1
		}
		return -1
	}
	return compareList(a.Tuple, b.Tuple)
}

func compareDict(a, b *DictType) int {
	if c := cmp.Compare(len(a.Keys), len(b.Keys)); c != 0 {
		return c
	}
	ka, kb := sortedKeys(a.Keys), sortedKeys(b.Keys)
	for i := range ka {
		if c := cmp.Compare(ka[i], kb[i]); c != 0 {
			return c
		}
	}
	for _, name := range ka {
		fa, fb := a.Keys[name], b.Keys[name]
		if c := Compare(fa.Type, fb.Type); c != 0 {
			return c
		}
		if fa.Optional != fb.Optional {
			if fb.Optional {
				return -1
			}
			return 1
		}
	}
	return 0
}

// compareShaped orders by dtype, then shape; a present field sorts before an
// absent one.
func compareShaped(dtypeA string, shapeA []int, dtypeB string, shapeB []int) int {
	switch {
	case dtypeA != "" && dtypeB == "":
		return -1
	case dtypeA == "" && dtypeB != "":
		return 1
	}
	if c := cmp.Compare(dtypeA, dtypeB); c != 0 {
		return c
	}
	switch {
	case shapeA == nil && shapeB == nil:
		return 0
	case shapeA == nil:
		return 1
	case shapeB == nil:
		return -1
	}
	return slices.Compare(shapeA, shapeB)
}

func compareList(a, b []Type) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	for i := range a {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func sortedKeys(m map[string]DictField) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
