package schema

// TypeOf returns the most precise normalized type describing value: scalar
// literals become single-element enums, lists become tuples, records declare
// every present key as required.
func TypeOf(value any) Type {
	if value == nil {
		return Any()
	}
	if f, ok := toFloat(value); ok {
		return NumberEnum(f)
	}
	switch v := value.(type) {
	case string:
		return StringEnum(v)
	case bool:
		return BoolLiteral(v)
	case map[string]any:
		keys := make(map[string]DictField, len(v))
		for name, item := range v {
			keys[name] = Required(TypeOf(item))
		}
		return Normalize(DictOf(keys))
	case NDArray:
		return &NDArrayType{DType: v.DType, Shape: cloneShape(v.Shape)}
	case *NDArray:
		return &NDArrayType{DType: v.DType, Shape: cloneShape(v.Shape)}
	case Tensor:
		return &TensorType{DType: v.DType, Shape: cloneShape(v.Shape)}
	case *Tensor:
		return &TensorType{DType: v.DType, Shape: cloneShape(v.Shape)}
	case PyObject:
		return &PythonObjectType{Type: v.TypeName}
	case *PyObject:
		return &PythonObjectType{Type: v.TypeName}
	}
	if list, ok := toList(value); ok {
		items := make([]Type, len(list))
		for i, item := range list {
			items[i] = TypeOf(item)
		}
		return Normalize(TupleOf(items...))
	}
	return Any()
}
