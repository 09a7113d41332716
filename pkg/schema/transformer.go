package schema

import (
	"math"
	"strings"
)

// Transformer derives values from types: declared defaults and filling of
// missing record keys.
type Transformer struct {
	validator *Validator
}

// NewTransformer creates a new data transformer
func NewTransformer() *Transformer {
	return &Transformer{validator: NewValidator()}
}

// DefaultValue generates a value accepted by t. It reports false when no value
// could be produced (Never, empty sets, patterns it cannot satisfy).
func (t *Transformer) DefaultValue(typ Type) (any, bool) {
	v, ok := t.defaultValue(typ)
	if !ok || !t.validator.Accepts(v, typ) {
		return nil, false
	}
	return v, true
}

func (t *Transformer) defaultValue(typ Type) (any, bool) {
	switch x := typ.(type) {
	case *AnyType:
		return nil, true
	case *NeverType, nil:
		return nil, false
	case *NumberType:
		return defaultNumber(x)
	case *StringType:
		return t.defaultString(x)
	case *BoolType:
		if x.Literal != nil {
			return *x.Literal, true
		}
		return false, true
	case *ArrayType:
		n := x.Len()
		if n == DynamicLength {
			return []any{}, true
		}
		out := make([]any, n)
		for i := 0; i < n; i++ {
			item, ok := t.defaultValue(x.ElementAt(i))
			if !ok {
				return nil, false
			}
			out[i] = item
		}
		return out, true
	case *DictType:
		out := make(map[string]any)
		for name, f := range x.Keys {
			if f.Optional {
				continue
			}
			v, ok := t.defaultValue(f.Type)
			if !ok {
				return nil, false
			}
			out[name] = v
		}
		return out, true
	case *NDArrayType:
		return NDArray{DType: defaultDType(x.DType), Shape: concreteShape(x.Shape)}, true
	case *TensorType:
		return Tensor{DType: defaultDType(x.DType), Shape: concreteShape(x.Shape)}, true
	case *PythonObjectType:
		return PyObject{TypeName: x.Type}, true
	case *UnionType:
		for _, m := range x.Types {
			if v, ok := t.defaultValue(m); ok && t.validator.Accepts(v, m) {
				return v, true
			}
		}
		return nil, false
	}
	return nil, false
}

func defaultNumber(n *NumberType) (any, bool) {
	if n.HasEnum() {
		values := n.effectiveEnum()
		if len(values) == 0 {
			return nil, false
		}
		return values[0], true
	}
	if n.isEmpty() {
		return nil, false
	}
	lo, hi := n.bounds()
	candidate := 0.0
	switch {
	case lo <= 0 && 0 <= hi:
	case !math.IsInf(lo, 0):
		candidate = lo
		if n.Integer {
			candidate = math.Ceil(lo)
		}
	default:
		candidate = hi
		if n.Integer {
			candidate = math.Floor(hi)
		}
	}
	return candidate, true
}

func (t *Transformer) defaultString(s *StringType) (any, bool) {
	if s.HasEnum() {
		return s.Enum[0], true
	}
	if len(s.Constraints) == 0 {
		return "", true
	}
	for _, c := range s.Constraints {
		lo, _ := lengthWindow(c)
		candidate := strings.Repeat("a", lo)
		if matchesAnyConstraint(candidate, []StringConstraint{c}, t.validator.patterns) {
			return candidate, true
		}
		if c.Pattern != "" {
			// a literal pattern is its own witness
			if lit, ok := literalPattern(c.Pattern); ok &&
				matchesAnyConstraint(lit, []StringConstraint{c}, t.validator.patterns) {
				return lit, true
			}
		}
	}
	return nil, false
}

// literalPattern strips anchors from patterns without metacharacters.
func literalPattern(pattern string) (string, bool) {
	p := strings.TrimSuffix(strings.TrimPrefix(pattern, "^"), "$")
	if strings.ContainsAny(p, `\.+*?()|[]{}^$`) {
		return "", false
	}
	return p, true
}

func defaultDType(dtype string) string {
	if dtype == "" {
		return "float64"
	}
	return dtype
}

func concreteShape(shape []int) []int {
	out := make([]int, len(shape))
	for i, d := range shape {
		if d > 0 {
			out[i] = d
		}
	}
	return out
}

// ApplyDefaults fills missing required record keys with generated defaults.
// Existing values are never overwritten.
func (t *Transformer) ApplyDefaults(data any, typ Type) any {
	switch x := typ.(type) {
	case *DictType:
		obj, ok := data.(map[string]any)
		if !ok {
			if data != nil {
				return data
			}
			obj = make(map[string]any)
		}
		for name, f := range x.Keys {
			value, exists := obj[name]
			if exists {
				obj[name] = t.ApplyDefaults(value, f.Type)
				continue
			}
			if f.Optional {
				continue
			}
			if v, ok := t.DefaultValue(f.Type); ok {
				obj[name] = v
			}
		}
		return obj

	case *ArrayType:
		arr, ok := data.([]any)
		if !ok {
			return data
		}
		for i := range arr {
			if x.IsTuple() && i >= len(x.Tuple) {
				break
			}
			arr[i] = t.ApplyDefaults(arr[i], x.ElementAt(i))
		}
		return arr
	}

	if data == nil {
		if v, ok := t.DefaultValue(typ); ok {
			return v
		}
	}
	return data
}
