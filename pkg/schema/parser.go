package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

// Parser handles parsing of type definitions
type Parser struct{}

// NewParser creates a new type parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses a type from JSON bytes
func (p *Parser) Parse(typeBytes []byte) (Type, error) {
	if len(typeBytes) == 0 {
		return nil, fmt.Errorf("type bytes cannot be empty")
	}

	var raw any
	if err := json.Unmarshal(typeBytes, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse type: %w", err)
	}

	return p.ParseValue(raw)
}

// ParseValue parses a type from a decoded JSON or YAML tree
func (p *Parser) ParseValue(raw any) (Type, error) {
	return p.parseType(raw, "root")
}

// ParseType parses a type from JSON bytes
func ParseType(data []byte) (Type, error) {
	return NewParser().Parse(data)
}

// ParseTypeValue parses a type from a decoded JSON or YAML tree
func ParseTypeValue(raw any) (Type, error) {
	return NewParser().ParseValue(raw)
}

func (p *Parser) parseType(raw any, path string) (Type, error) {
	// a bare kind name is shorthand for the unrestricted type
	if name, ok := raw.(string); ok {
		raw = map[string]any{"name": name}
	}
	obj, ok := asObject(raw)
	if !ok {
		return nil, fmt.Errorf("%s: type must be an object, got %T", path, raw)
	}
	name, _ := obj["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("%s: type name is required", path)
	}
	kind := Kind(name)
	if !IsValidKind(kind) {
		return nil, fmt.Errorf("%s: invalid type name: %s", path, name)
	}

	switch kind {
	case KindAny:
		return Any(), nil
	case KindNever:
		return Never(), nil
	case KindNumber:
		return p.parseNumber(obj, path)
	case KindString:
		return p.parseString(obj, path)
	case KindBool:
		t := &BoolType{}
		if lit, exists := obj["literal"]; exists && lit != nil {
			b, ok := lit.(bool)
			if !ok {
				return nil, fmt.Errorf("%s: bool literal must be a boolean", path)
			}
			t.Literal = &b
		}
		return t, nil
	case KindArray:
		return p.parseArray(obj, path)
	case KindDict:
		return p.parseDict(obj, path)
	case KindNDArray, KindTensor:
		dtype, _ := obj["dtype"].(string)
		var shape []int
		if rawShape, exists := obj["shape"]; exists && rawShape != nil {
			list, ok := toList(rawShape)
			if !ok {
				return nil, fmt.Errorf("%s: shape must be a list", path)
			}
			shape = make([]int, len(list))
			for i, d := range list {
				f, ok := toFloat(d)
				if !ok || f != math.Trunc(f) || f < DynamicLength {
					return nil, fmt.Errorf("%s.shape[%d]: invalid dimension %v", path, i, d)
				}
				shape[i] = int(f)
			}
		}
		if kind == KindTensor {
			return &TensorType{DType: dtype, Shape: shape}, nil
		}
		return &NDArrayType{DType: dtype, Shape: shape}, nil
	case KindPythonObject:
		typeName, _ := obj["type"].(string)
		if typeName == "" {
			return nil, fmt.Errorf("%s: python-object requires a type name", path)
		}
		return &PythonObjectType{Type: typeName}, nil
	case KindUnion:
		list, ok := toList(obj["types"])
		if !ok {
			return nil, fmt.Errorf("%s: union requires a list of types", path)
		}
		members := make([]Type, len(list))
		for i, item := range list {
			t, err := p.parseType(item, fmt.Sprintf("%s.types[%d]", path, i))
			if err != nil {
				return nil, err
			}
			members[i] = t
		}
		return &UnionType{Types: members}, nil
	}
	return nil, fmt.Errorf("%s: unsupported type %s", path, name)
}

func (p *Parser) parseNumber(obj map[string]any, path string) (Type, error) {
	t := &NumberType{}
	if integer, ok := obj["integer"].(bool); ok {
		t.Integer = integer
	}
	if rawEnum, exists := obj["enum"]; exists && rawEnum != nil {
		list, ok := toList(rawEnum)
		if !ok {
			return nil, fmt.Errorf("%s: enum must be a list", path)
		}
		for i, item := range list {
			f, ok := toFloat(item)
			if !ok {
				return nil, fmt.Errorf("%s.enum[%d]: expected number, got %T", path, i, item)
			}
			t.Enum = append(t.Enum, f)
		}
	}
	if rawRange, exists := obj["range"]; exists && rawRange != nil {
		r, ok := asObject(rawRange)
		if !ok {
			return nil, fmt.Errorf("%s: range must be an object", path)
		}
		t.Range = &Range{Min: math.Inf(-1), Max: math.Inf(1)}
		if v, exists := r["min"]; exists && v != nil {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("%s.range.min: expected number", path)
			}
			t.Range.Min = f
		}
		if v, exists := r["max"]; exists && v != nil {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("%s.range.max: expected number", path)
			}
			t.Range.Max = f
		}
		if t.Range.Min > t.Range.Max {
			return nil, fmt.Errorf("%s: range min %v exceeds max %v", path, t.Range.Min, t.Range.Max)
		}
	}
	return t, nil
}

func (p *Parser) parseString(obj map[string]any, path string) (Type, error) {
	t := &StringType{}
	if rawEnum, exists := obj["enum"]; exists && rawEnum != nil {
		list, ok := toList(rawEnum)
		if !ok {
			return nil, fmt.Errorf("%s: enum must be a list", path)
		}
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s.enum[%d]: expected string, got %T", path, i, item)
			}
			t.Enum = append(t.Enum, s)
		}
	}
	if rawConstraints, exists := obj["constraints"]; exists && rawConstraints != nil {
		list, ok := toList(rawConstraints)
		if !ok {
			return nil, fmt.Errorf("%s: constraints must be a list", path)
		}
		for i, item := range list {
			c, err := parseConstraint(item, fmt.Sprintf("%s.constraints[%d]", path, i))
			if err != nil {
				return nil, err
			}
			t.Constraints = append(t.Constraints, c)
		}
	}
	if t.HasEnum() && len(t.Constraints) > 0 {
		return nil, fmt.Errorf("%s: string takes either enum or constraints", path)
	}
	return t, nil
}

func parseConstraint(raw any, path string) (StringConstraint, error) {
	var c StringConstraint
	obj, ok := asObject(raw)
	if !ok {
		return c, fmt.Errorf("%s: constraint must be an object", path)
	}
	if pattern, exists := obj["pattern"]; exists && pattern != nil {
		s, ok := pattern.(string)
		if !ok {
			return c, fmt.Errorf("%s.pattern: expected string", path)
		}
		c.Pattern = s
	}
	for _, field := range []struct {
		key string
		dst **int
	}{{"lenMin", &c.LenMin}, {"lenMax", &c.LenMax}} {
		v, exists := obj[field.key]
		if !exists || v == nil {
			continue
		}
		f, ok := toFloat(v)
		if !ok || f < 0 || f != math.Trunc(f) {
			return c, fmt.Errorf("%s.%s: expected non-negative integer", path, field.key)
		}
		*field.dst = IntPtr(int(f))
	}
	return c, nil
}

func (p *Parser) parseArray(obj map[string]any, path string) (Type, error) {
	switch shape := obj["shape"].(type) {
	case nil:
		return ArrayOf(Any(), DynamicLength), nil
	case []any:
		items := make([]Type, len(shape))
		for i, item := range shape {
			t, err := p.parseType(item, fmt.Sprintf("%s.shape[%d]", path, i))
			if err != nil {
				return nil, err
			}
			items[i] = t
		}
		return TupleOf(items...), nil
	default:
		sobj, ok := asObject(shape)
		if !ok {
			return nil, fmt.Errorf("%s: array shape must be an object or a list", path)
		}
		elem := Any()
		if rawElem, exists := sobj["element"]; exists && rawElem != nil {
			t, err := p.parseType(rawElem, path+".shape.element")
			if err != nil {
				return nil, err
			}
			elem = t
		}
		length := DynamicLength
		if rawLen, exists := sobj["length"]; exists && rawLen != nil {
			f, ok := toFloat(rawLen)
			if !ok || f != math.Trunc(f) || f < DynamicLength {
				return nil, fmt.Errorf("%s.shape.length: invalid length %v", path, rawLen)
			}
			length = int(f)
		}
		return ArrayOf(elem, length), nil
	}
}

func (p *Parser) parseDict(obj map[string]any, path string) (Type, error) {
	rawKeys, exists := obj["keys"]
	if !exists || rawKeys == nil {
		return &DictType{}, nil
	}
	keysObj, ok := asObject(rawKeys)
	if !ok {
		return nil, fmt.Errorf("%s: keys must be an object", path)
	}
	keys := make(map[string]DictField, len(keysObj))
	for name, rawField := range keysObj {
		fieldPath := path + ".keys." + name
		fobj, ok := asObject(rawField)
		if !ok {
			return nil, fmt.Errorf("%s: key must be an object", fieldPath)
		}
		t, err := p.parseType(fobj["type"], fieldPath+".type")
		if err != nil {
			return nil, err
		}
		optional, _ := fobj["optional"].(bool)
		keys[name] = DictField{Type: t, Optional: optional}
	}
	return &DictType{Keys: keys}, nil
}

// asObject accepts both JSON-decoded and YAML-decoded maps.
func asObject(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}

// TypeValue renders t as a JSON-compatible tree, the inverse of ParseTypeValue.
func TypeValue(t Type) any {
	obj := map[string]any{"name": string(t.Kind())}
	switch x := t.(type) {
	case *NumberType:
		if x.HasEnum() {
			obj["enum"] = append([]float64(nil), x.Enum...)
		}
		if x.Range != nil {
			obj["range"] = map[string]any{"min": boundValue(x.Range.Min), "max": boundValue(x.Range.Max)}
		}
		if x.Integer {
			obj["integer"] = true
		}
	case *StringType:
		if x.HasEnum() {
			obj["enum"] = append([]string(nil), x.Enum...)
		}
		if len(x.Constraints) > 0 {
			list := make([]any, len(x.Constraints))
			for i, c := range x.Constraints {
				co := map[string]any{}
				if c.Pattern != "" {
					co["pattern"] = c.Pattern
				}
				if c.LenMin != nil {
					co["lenMin"] = *c.LenMin
				}
				if c.LenMax != nil {
					co["lenMax"] = *c.LenMax
				}
				list[i] = co
			}
			obj["constraints"] = list
		}
	case *BoolType:
		if x.Literal != nil {
			obj["literal"] = *x.Literal
		}
	case *ArrayType:
		if x.IsTuple() {
			list := make([]any, len(x.Tuple))
			for i, item := range x.Tuple {
				list[i] = TypeValue(item)
			}
			obj["shape"] = list
		} else {
			obj["shape"] = map[string]any{"element": TypeValue(x.Element), "length": x.Length}
		}
	case *DictType:
		if x.Keys != nil {
			keys := make(map[string]any, len(x.Keys))
			for name, f := range x.Keys {
				field := map[string]any{"type": TypeValue(f.Type)}
				if f.Optional {
					field["optional"] = true
				}
				keys[name] = field
			}
			obj["keys"] = keys
		}
	case *NDArrayType:
		shapedFields(obj, x.DType, x.Shape)
	case *TensorType:
		shapedFields(obj, x.DType, x.Shape)
	case *PythonObjectType:
		obj["type"] = x.Type
	case *UnionType:
		list := make([]any, len(x.Types))
		for i, m := range x.Types {
			list[i] = TypeValue(m)
		}
		obj["types"] = list
	}
	return obj
}

func shapedFields(obj map[string]any, dtype string, shape []int) {
	if dtype != "" {
		obj["dtype"] = dtype
	}
	if shape != nil {
		obj["shape"] = append([]int{}, shape...)
	}
}

func boundValue(v float64) any {
	if math.IsInf(v, 0) {
		return nil
	}
	return v
}

// MarshalType encodes t as JSON
func MarshalType(t Type) ([]byte, error) {
	return json.Marshal(TypeValue(t))
}

// Box wraps a Type so it can be embedded in JSON and YAML documents.
type Box struct {
	Type Type
}

// MarshalJSON implements json.Marshaler
func (b Box) MarshalJSON() ([]byte, error) {
	if b.Type == nil {
		return []byte("null"), nil
	}
	return MarshalType(b.Type)
}

// UnmarshalJSON implements json.Unmarshaler
func (b *Box) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		b.Type = nil
		return nil
	}
	t, err := ParseType(data)
	if err != nil {
		return ParseError(err)
	}
	b.Type = t
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (b Box) MarshalYAML() (any, error) {
	if b.Type == nil {
		return nil, nil
	}
	return TypeValue(b.Type), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (b *Box) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return ParseError(err)
	}
	if raw == nil {
		b.Type = nil
		return nil
	}
	t, err := ParseTypeValue(raw)
	if err != nil {
		return ParseError(err)
	}
	b.Type = t
	return nil
}

// KindNames lists every known kind, sorted.
func KindNames() []string {
	names := []string{
		string(KindAny), string(KindNever), string(KindNumber), string(KindString),
		string(KindBool), string(KindArray), string(KindDict), string(KindNDArray),
		string(KindTensor), string(KindPythonObject), string(KindUnion),
	}
	sort.Strings(names)
	return names
}
