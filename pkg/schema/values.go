package schema

import "math"

// NDArray is the runtime value of an ndarray-typed entry.
type NDArray struct {
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
	Data  any    `json:"data,omitempty"`
}

// Tensor is the runtime value of a tensor-typed entry.
type Tensor struct {
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
	Data  any    `json:"data,omitempty"`
}

// PyObject is an opaque host object carried by a python-object entry.
type PyObject struct {
	TypeName string `json:"type"`
	Value    any    `json:"value,omitempty"`
}

// toFloat converts the numeric kinds produced by JSON decoding and by the
// script runtime into float64.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), !math.IsNaN(float64(v))
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

// toList accepts the slice shapes a value may arrive in.
func toList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []bool:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	}
	return nil, false
}

// shapedValue extracts dtype and shape from ndarray or tensor values.
func shapedValue(value any, tensor bool) (string, []int, bool) {
	switch v := value.(type) {
	case NDArray:
		return v.DType, v.Shape, !tensor
	case *NDArray:
		if v == nil {
			return "", nil, false
		}
		return v.DType, v.Shape, !tensor
	case Tensor:
		return v.DType, v.Shape, tensor
	case *Tensor:
		if v == nil {
			return "", nil, false
		}
		return v.DType, v.Shape, tensor
	}
	return "", nil, false
}
