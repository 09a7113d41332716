package schema

import (
	"math"
	"slices"
)

// Combine merges two normalized simple types into the smallest single type
// covering both. It reports false when the pair is incompatible; such pairs
// stay separate members of a union.
func Combine(a, b Type) (Type, bool) {
	if a.Kind() != b.Kind() {
		return nil, false
	}
	switch x := a.(type) {
	case *AnyType:
		return &AnyType{}, true
	case *NeverType:
		return &NeverType{}, true
	case *NumberType:
		return combineNumber(x, b.(*NumberType))
	case *StringType:
		return combineString(x, b.(*StringType))
	case *BoolType:
		y := b.(*BoolType)
		if x.Literal != nil && y.Literal != nil && *x.Literal == *y.Literal {
			return BoolLiteral(*x.Literal), true
		}
		return &BoolType{}, true
	case *ArrayType:
		if Compare(x, b) == 0 {
			return Normalize(x), true
		}
		return nil, false
	case *DictType:
		return combineDict(x, b.(*DictType)), true
	case *NDArrayType:
		y := b.(*NDArrayType)
		dtype, shape, ok := combineShaped(x.DType, x.Shape, y.DType, y.Shape)
		if !ok {
			return nil, false
		}
		return &NDArrayType{DType: dtype, Shape: shape}, true
	case *TensorType:
		y := b.(*TensorType)
		dtype, shape, ok := combineShaped(x.DType, x.Shape, y.DType, y.Shape)
		if !ok {
			return nil, false
		}
		return &TensorType{DType: dtype, Shape: shape}, true
	case *PythonObjectType:
		if x.Type == b.(*PythonObjectType).Type {
			return &PythonObjectType{Type: x.Type}, true
		}
		return nil, false
	case *UnionType:
		return nil, false
	}
	panic("schema: unknown type " + string(a.Kind()))
}

// Join returns the normalized union of a and b. Unlike Combine it never fails:
// incompatible operands become separate union members.
func Join(a, b Type) Type {
	acc := newUnionAccumulator()
	acc.add(Normalize(a))
	acc.add(Normalize(b))
	return acc.result()
}

func combineNumber(a, b *NumberType) (Type, bool) {
	switch {
	case a.HasEnum() && b.HasEnum():
		values := append(a.effectiveEnum(), b.effectiveEnum()...)
		slices.Sort(values)
		values = slices.Compact(values)
		if len(values) == 0 {
			// both sides are empty sets; keep the lesser one
			if compareNumber(a, b) <= 0 {
				return a.clone(), true
			}
			return b.clone(), true
		}
		return &NumberType{Enum: values}, true
	case a.HasEnum():
		return absorbNumberEnum(a, b)
	case b.HasEnum():
		return absorbNumberEnum(b, a)
	}
	if a.Integer == b.Integer {
		out := &NumberType{Integer: a.Integer}
		if a.Range != nil && b.Range != nil {
			out.Range = &Range{
				Min: math.Min(a.Range.Min, b.Range.Min),
				Max: math.Max(a.Range.Max, b.Range.Max),
			}
		}
		return out, true
	}
	ints, reals := a, b
	if b.Integer {
		ints, reals = b, a
	}
	ilo, ihi := ints.bounds()
	rlo, rhi := reals.bounds()
	if ilo >= rlo && ihi <= rhi {
		return reals.clone(), true
	}
	return nil, false
}

// absorbNumberEnum merges an enum into a non-enum number iff every literal fits.
func absorbNumberEnum(enum, target *NumberType) (Type, bool) {
	for _, v := range enum.effectiveEnum() {
		if !target.admits(v) {
			return nil, false
		}
	}
	return target.clone(), true
}

func combineString(a, b *StringType) (Type, bool) {
	switch {
	case a.HasEnum() && b.HasEnum():
		values := append(slices.Clone(a.Enum), b.Enum...)
		slices.Sort(values)
		return &StringType{Enum: slices.Compact(values)}, true
	case a.HasEnum():
		return absorbStringEnum(a, b)
	case b.HasEnum():
		return absorbStringEnum(b, a)
	}
	if len(a.Constraints) == 0 || len(b.Constraints) == 0 {
		return &StringType{}, true
	}
	merged := append(slices.Clone(a.Constraints), b.Constraints...)
	return normalizeString(&StringType{Constraints: merged}), true
}

func absorbStringEnum(enum, target *StringType) (Type, bool) {
	if len(target.Constraints) > 0 {
		for _, v := range enum.Enum {
			if !matchesAnyConstraint(v, target.Constraints, nil) {
				return nil, false
			}
		}
	}
	return normalizeString(target), true
}

func combineDict(a, b *DictType) Type {
	if a.Keys == nil || b.Keys == nil {
		// an unconstrained record covers every record
		return &DictType{}
	}
	keys := make(map[string]DictField, len(a.Keys)+len(b.Keys))
	for name, fa := range a.Keys {
		fb, ok := b.Keys[name]
		if !ok {
			keys[name] = fa
			continue
		}
		keys[name] = DictField{
			Type:     Join(fa.Type, fb.Type),
			Optional: fa.Optional || fb.Optional,
		}
	}
	for name, fb := range b.Keys {
		if _, ok := a.Keys[name]; !ok {
			keys[name] = fb
		}
	}
	return normalizeDict(&DictType{Keys: keys})
}

func combineShaped(dtypeA string, shapeA []int, dtypeB string, shapeB []int) (string, []int, bool) {
	if dtypeA != dtypeB {
		return "", nil, false
	}
	if shapeA == nil || shapeB == nil {
		return dtypeA, nil, true
	}
	if len(shapeA) != len(shapeB) {
		return "", nil, false
	}
	shape := make([]int, len(shapeA))
	for i := range shapeA {
		switch {
		case shapeA[i] == DynamicLength || shapeB[i] == DynamicLength:
			shape[i] = DynamicLength
		case shapeA[i] == shapeB[i]:
			shape[i] = shapeA[i]
		default:
			return "", nil, false
		}
	}
	return dtypeA, shape, true
}
