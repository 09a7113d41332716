package schema

import "math"

// maxEnumeratedIntegers bounds the integer ranges MustAssign expands when the
// accepting side is an enum.
const maxEnumeratedIntegers = 4096

// MustAssign reports whether every value of right is guaranteed to be a value
// of left (right ⊆ left). The check is conservative: false means "not proven".
func MustAssign(left, right Type) bool {
	return assign(left, right, true)
}

// MayAssign reports whether some value of right may be a value of left.
// MustAssign(l, r) implies MayAssign(l, r).
func MayAssign(left, right Type) bool {
	return assign(left, right, false)
}

func assign(left, right Type, must bool) bool {
	if isEmptyType(right) {
		return true
	}
	if _, ok := left.(*NeverType); ok {
		return false
	}
	if _, ok := left.(*AnyType); ok {
		return true
	}
	if _, ok := right.(*AnyType); ok {
		return !must
	}
	if ru, ok := right.(*UnionType); ok {
		for _, r := range ru.Types {
			ok := assign(left, r, must)
			if must && !ok {
				return false
			}
			if !must && ok {
				return true
			}
		}
		return must
	}
	if lu, ok := left.(*UnionType); ok {
		for _, l := range lu.Types {
			if assign(l, right, must) {
				return true
			}
		}
		return false
	}
	if left.Kind() != right.Kind() {
		return false
	}
	switch l := left.(type) {
	case *NumberType:
		if must {
			return mustAssignNumber(l, right.(*NumberType))
		}
		return mayAssignNumber(l, right.(*NumberType))
	case *StringType:
		if must {
			return mustAssignString(l, right.(*StringType))
		}
		return mayAssignString(l, right.(*StringType))
	case *BoolType:
		r := right.(*BoolType)
		if l.Literal == nil {
			return true
		}
		if r.Literal == nil {
			return !must
		}
		return *l.Literal == *r.Literal
	case *ArrayType:
		return assignArray(l, right.(*ArrayType), must)
	case *DictType:
		return assignDict(l, right.(*DictType), must)
	case *NDArrayType:
		r := right.(*NDArrayType)
		return assignShaped(l.DType, l.Shape, r.DType, r.Shape, must)
	case *TensorType:
		r := right.(*TensorType)
		return assignShaped(l.DType, l.Shape, r.DType, r.Shape, must)
	case *PythonObjectType:
		return l.Type == right.(*PythonObjectType).Type
	}
	return false
}

// isEmptyType reports value sets that are provably empty.
func isEmptyType(t Type) bool {
	switch v := t.(type) {
	case *NeverType:
		return true
	case *NumberType:
		return v.isEmpty()
	}
	return false
}

func mustAssignNumber(l, r *NumberType) bool {
	if r.HasEnum() {
		for _, v := range r.effectiveEnum() {
			if !l.Contains(v) {
				return false
			}
		}
		return true
	}
	rlo, rhi := r.bounds()
	if l.HasEnum() {
		if !r.Integer || math.IsInf(rlo, 0) || math.IsInf(rhi, 0) {
			return false
		}
		lo, hi := math.Ceil(rlo), math.Floor(rhi)
		if hi-lo+1 > maxEnumeratedIntegers {
			return false
		}
		for v := lo; v <= hi; v++ {
			if !l.Contains(v) {
				return false
			}
		}
		return true
	}
	if l.Integer && !r.Integer {
		return false
	}
	llo, lhi := l.bounds()
	return llo <= rlo && rhi <= lhi
}

func mayAssignNumber(l, r *NumberType) bool {
	switch {
	case l.HasEnum() && r.HasEnum():
		for _, v := range r.effectiveEnum() {
			if l.Contains(v) {
				return true
			}
		}
		return false
	case r.HasEnum():
		for _, v := range r.effectiveEnum() {
			if l.admits(v) {
				return true
			}
		}
		return false
	case l.HasEnum():
		for _, v := range l.effectiveEnum() {
			if r.admits(v) {
				return true
			}
		}
		return false
	}
	llo, lhi := l.bounds()
	rlo, rhi := r.bounds()
	lo, hi := math.Max(llo, rlo), math.Min(lhi, rhi)
	if lo > hi {
		return false
	}
	if l.Integer || r.Integer {
		return math.Ceil(lo) <= math.Floor(hi)
	}
	return true
}

func mustAssignString(l, r *StringType) bool {
	if r.HasEnum() {
		for _, v := range r.Enum {
			if !stringAccepts(l, v) {
				return false
			}
		}
		return true
	}
	if l.HasEnum() {
		return false
	}
	if len(l.Constraints) == 0 {
		return true
	}
	if len(r.Constraints) == 0 {
		return false
	}
	for _, rc := range r.Constraints {
		covered := false
		for _, lc := range l.Constraints {
			if constraintCovers(lc, rc) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

func mayAssignString(l, r *StringType) bool {
	switch {
	case r.HasEnum():
		for _, v := range r.Enum {
			if stringAccepts(l, v) {
				return true
			}
		}
		return false
	case l.HasEnum():
		for _, v := range l.Enum {
			if stringAccepts(r, v) {
				return true
			}
		}
		return false
	}
	if len(l.Constraints) == 0 || len(r.Constraints) == 0 {
		return true
	}
	// patterns are not intersected; overlapping length windows are enough
	for _, lc := range l.Constraints {
		for _, rc := range r.Constraints {
			llo, lhi := lengthWindow(lc)
			rlo, rhi := lengthWindow(rc)
			if max(llo, rlo) <= min(lhi, rhi) {
				return true
			}
		}
	}
	return false
}

// constraintCovers reports whether every string matching rc matches lc.
func constraintCovers(lc, rc StringConstraint) bool {
	if lc.Pattern != "" && lc.Pattern != rc.Pattern {
		return false
	}
	llo, lhi := lengthWindow(lc)
	rlo, rhi := lengthWindow(rc)
	return llo <= rlo && rhi <= lhi
}

func lengthWindow(c StringConstraint) (int, int) {
	lo, hi := 0, math.MaxInt
	if c.LenMin != nil {
		lo = *c.LenMin
	}
	if c.LenMax != nil {
		hi = *c.LenMax
	}
	return lo, hi
}

func stringAccepts(s *StringType, v string) bool {
	if s.HasEnum() {
		for _, e := range s.Enum {
			if e == v {
				return true
			}
		}
		return false
	}
	return len(s.Constraints) == 0 || matchesAnyConstraint(v, s.Constraints, nil)
}

func assignArray(l, r *ArrayType, must bool) bool {
	ll, rl := l.Len(), r.Len()
	if must {
		if ll != DynamicLength && ll != rl {
			return false
		}
		if rl == DynamicLength {
			// r is a simple dynamic array, so l is simple and dynamic too
			return assign(l.Element, r.Element, true)
		}
		for i := 0; i < rl; i++ {
			if !assign(l.ElementAt(i), r.ElementAt(i), true) {
				return false
			}
		}
		return true
	}
	switch {
	case ll == DynamicLength && rl == DynamicLength:
		// the empty array belongs to both
		return true
	case ll == DynamicLength:
		if rl == 0 {
			return true
		}
		for i := 0; i < rl; i++ {
			if !assign(l.Element, r.ElementAt(i), false) {
				return false
			}
		}
		return true
	case rl == DynamicLength:
		if ll == 0 {
			return true
		}
		for i := 0; i < ll; i++ {
			if !assign(l.ElementAt(i), r.Element, false) {
				return false
			}
		}
		return true
	case ll != rl:
		return false
	}
	for i := 0; i < ll; i++ {
		if !assign(l.ElementAt(i), r.ElementAt(i), false) {
			return false
		}
	}
	return true
}

func assignDict(l, r *DictType, must bool) bool {
	for name, lf := range l.Keys {
		rf, declared := r.Keys[name]
		if must {
			if !declared {
				if lf.Optional {
					continue
				}
				return false
			}
			if !lf.Optional && rf.Optional {
				return false
			}
			if !assign(lf.Type, rf.Type, true) {
				return false
			}
			continue
		}
		if !declared || (lf.Optional && rf.Optional) {
			continue
		}
		if !assign(lf.Type, rf.Type, false) {
			return false
		}
	}
	return true
}

func assignShaped(ldtype string, lshape []int, rdtype string, rshape []int, must bool) bool {
	if ldtype != "" && ldtype != rdtype && (must || rdtype != "") {
		return false
	}
	if lshape == nil {
		return true
	}
	if rshape == nil {
		return !must
	}
	if len(lshape) != len(rshape) {
		return false
	}
	for i := range lshape {
		if lshape[i] == DynamicLength || lshape[i] == rshape[i] {
			continue
		}
		if !must && rshape[i] == DynamicLength {
			continue
		}
		return false
	}
	return true
}
