package schema

import (
	"sort"
	"strings"
)

// Normalize returns the canonical form of t. It never mutates its argument and
// is idempotent: Normalize(Normalize(t)) compares equal to Normalize(t).
func Normalize(t Type) Type {
	switch v := t.(type) {
	case nil:
		return Never()
	case *AnyType:
		return &AnyType{}
	case *NeverType:
		return &NeverType{}
	case *NumberType:
		return v.clone()
	case *StringType:
		return normalizeString(v)
	case *BoolType:
		if v.Literal == nil {
			return &BoolType{}
		}
		return BoolLiteral(*v.Literal)
	case *ArrayType:
		return normalizeArray(v)
	case *DictType:
		return normalizeDict(v)
	case *NDArrayType:
		return &NDArrayType{DType: v.DType, Shape: cloneShape(v.Shape)}
	case *TensorType:
		return &TensorType{DType: v.DType, Shape: cloneShape(v.Shape)}
	case *PythonObjectType:
		return &PythonObjectType{Type: v.Type}
	case *UnionType:
		acc := newUnionAccumulator()
		for _, m := range v.Types {
			acc.add(Normalize(m))
		}
		return acc.result()
	}
	panic("schema: unknown type " + string(t.Kind()))
}

func normalizeString(s *StringType) Type {
	if s.HasEnum() {
		return &StringType{Enum: append([]string(nil), s.Enum...)}
	}
	if len(s.Constraints) == 0 {
		return &StringType{}
	}
	constraints := make([]StringConstraint, 0, len(s.Constraints))
	for _, c := range s.Constraints {
		nc := StringConstraint{Pattern: strings.TrimSpace(c.Pattern)}
		if c.LenMin != nil {
			nc.LenMin = IntPtr(*c.LenMin)
		}
		if c.LenMax != nil {
			nc.LenMax = IntPtr(*c.LenMax)
		}
		if nc.Pattern == "" && nc.LenMin == nil && nc.LenMax == nil {
			// an unconstrained alternative accepts every string
			return &StringType{}
		}
		constraints = append(constraints, nc)
	}
	sort.SliceStable(constraints, func(i, j int) bool {
		return compareConstraint(constraints[i], constraints[j]) < 0
	})
	deduped := constraints[:1]
	for _, c := range constraints[1:] {
		if compareConstraint(deduped[len(deduped)-1], c) != 0 {
			deduped = append(deduped, c)
		}
	}
	return &StringType{Constraints: deduped}
}

func normalizeArray(a *ArrayType) Type {
	if !a.IsTuple() {
		length := a.Length
		if length < 0 {
			length = DynamicLength
		}
		return &ArrayType{Element: Normalize(a.Element), Length: length}
	}
	if len(a.Tuple) == 0 {
		return &ArrayType{Element: Any(), Length: 0}
	}
	items := make([]Type, len(a.Tuple))
	for i, item := range a.Tuple {
		items[i] = Normalize(item)
	}
	for _, item := range items[1:] {
		if Compare(items[0], item) != 0 {
			return &ArrayType{Tuple: items}
		}
	}
	return &ArrayType{Element: items[0], Length: len(items)}
}

func normalizeDict(d *DictType) Type {
	if len(d.Keys) == 0 {
		return &DictType{}
	}
	keys := make(map[string]DictField, len(d.Keys))
	for name, f := range d.Keys {
		nt := Normalize(f.Type)
		if _, never := nt.(*NeverType); never {
			continue
		}
		keys[name] = DictField{Type: nt, Optional: f.Optional}
	}
	if len(keys) == 0 {
		return &DictType{}
	}
	return &DictType{Keys: keys}
}

func cloneShape(shape []int) []int {
	if shape == nil {
		return nil
	}
	return append([]int{}, shape...)
}

// unionAccumulator folds normalized members into a sorted list in which no
// two members combine.
type unionAccumulator struct {
	members []Type
	any     bool
}

func newUnionAccumulator() *unionAccumulator {
	return &unionAccumulator{}
}

func (u *unionAccumulator) add(t Type) {
	switch v := t.(type) {
	case *NeverType:
		return
	case *AnyType:
		u.any = true
		return
	case *UnionType:
		for _, m := range v.Types {
			u.add(m)
		}
		return
	}
	if u.any {
		return
	}
	for {
		merged := false
		for i, m := range u.members {
			if c, ok := Combine(m, t); ok {
				u.members = append(u.members[:i], u.members[i+1:]...)
				t = c
				merged = true
				break
			}
		}
		if !merged {
			break
		}
	}
	idx := sort.Search(len(u.members), func(i int) bool {
		return Compare(u.members[i], t) > 0
	})
	u.members = append(u.members, nil)
	copy(u.members[idx+1:], u.members[idx:])
	u.members[idx] = t
}

func (u *unionAccumulator) result() Type {
	if u.any {
		return Any()
	}
	switch len(u.members) {
	case 0:
		return Never()
	case 1:
		return u.members[0]
	}
	return &UnionType{Types: u.members}
}
