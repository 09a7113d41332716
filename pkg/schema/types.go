package schema

import (
	"fmt"
	"math"
	"strings"
)

// Kind is the name of a type variant. Kind names are the first key of the
// total order defined by Compare.
type Kind string

// Supported type kinds
const (
	KindAny          Kind = "any"
	KindNever        Kind = "never"
	KindNumber       Kind = "number"
	KindString       Kind = "string"
	KindBool         Kind = "bool"
	KindArray        Kind = "array"
	KindDict         Kind = "dict"
	KindNDArray      Kind = "ndarray"
	KindTensor       Kind = "tensor"
	KindPythonObject Kind = "python-object"
	KindUnion        Kind = "union"
)

// IsValidKind checks if a kind name is known
func IsValidKind(k Kind) bool {
	switch k {
	case KindAny, KindNever, KindNumber, KindString, KindBool, KindArray,
		KindDict, KindNDArray, KindTensor, KindPythonObject, KindUnion:
		return true
	}
	return false
}

// DynamicLength marks an array of unknown length, and a tensor dimension of unknown size.
const DynamicLength = -1

// Type describes the set of values a node entry may carry.
// The set of implementations is closed; switch on the concrete pointer type.
type Type interface {
	Kind() Kind
	String() string
	sealed()
}

// AnyType accepts every value.
type AnyType struct{}

// NeverType accepts no value.
type NeverType struct{}

// NumberType is a numeric type restricted by an enum, a range and an integer flag.
// An empty Enum means no enum restriction. A nil Range means unbounded.
type NumberType struct {
	Enum    []float64
	Range   *Range
	Integer bool
}

// Range is a closed numeric interval; infinite bounds are open ends.
type Range struct {
	Min float64
	Max float64
}

// StringType is restricted either by an enum or by an OR-list of constraints.
type StringType struct {
	Enum        []string
	Constraints []StringConstraint
}

// StringConstraint is one alternative of a string's OR-list. Empty Pattern means absent.
type StringConstraint struct {
	Pattern string
	LenMin  *int
	LenMax  *int
}

// BoolType optionally pins a literal value.
type BoolType struct {
	Literal *bool
}

// ArrayType is either a simple array (Element, Length) or a heterogeneous tuple.
// Tuple != nil selects the tuple form.
type ArrayType struct {
	Element Type
	Length  int
	Tuple   []Type
}

// DictType describes a record. Nil Keys accepts any record.
type DictType struct {
	Keys map[string]DictField
}

// DictField is one declared key of a dict.
type DictField struct {
	Type     Type
	Optional bool
}

// NDArrayType describes a numpy-like array. Empty DType or nil Shape mean unconstrained.
type NDArrayType struct {
	DType string
	Shape []int
}

// TensorType describes a tensor. Empty DType or nil Shape mean unconstrained.
type TensorType struct {
	DType string
	Shape []int
}

// PythonObjectType is an opaque host object identified by its type name.
type PythonObjectType struct {
	Type string
}

// UnionType is an ordered list of simple types. A normalized union holds at least
// two members, sorted by Compare, none pairwise combinable.
type UnionType struct {
	Types []Type
}

func (*AnyType) sealed()          {}
func (*NeverType) sealed()        {}
func (*NumberType) sealed()       {}
func (*StringType) sealed()       {}
func (*BoolType) sealed()         {}
func (*ArrayType) sealed()        {}
func (*DictType) sealed()         {}
func (*NDArrayType) sealed()      {}
func (*TensorType) sealed()       {}
func (*PythonObjectType) sealed() {}
func (*UnionType) sealed()        {}

func (*AnyType) Kind() Kind          { return KindAny }
func (*NeverType) Kind() Kind        { return KindNever }
func (*NumberType) Kind() Kind       { return KindNumber }
func (*StringType) Kind() Kind       { return KindString }
func (*BoolType) Kind() Kind         { return KindBool }
func (*ArrayType) Kind() Kind        { return KindArray }
func (*DictType) Kind() Kind         { return KindDict }
func (*NDArrayType) Kind() Kind      { return KindNDArray }
func (*TensorType) Kind() Kind       { return KindTensor }
func (*PythonObjectType) Kind() Kind { return KindPythonObject }
func (*UnionType) Kind() Kind        { return KindUnion }

// Constructors for the common shapes.

func Any() Type   { return &AnyType{} }
func Never() Type { return &NeverType{} }

// Number returns an unrestricted number type.
func Number() *NumberType { return &NumberType{} }

// Integer returns an integer type, optionally bounded.
func Integer() *NumberType { return &NumberType{Integer: true} }

// NumberEnum returns a number type restricted to the given literals.
func NumberEnum(values ...float64) *NumberType {
	return &NumberType{Enum: append([]float64(nil), values...)}
}

// Between returns a copy of n restricted to [min, max].
func (n *NumberType) Between(min, max float64) *NumberType {
	c := n.clone()
	c.Range = &Range{Min: min, Max: max}
	return c
}

// String returns an unrestricted string type.
func String() *StringType { return &StringType{} }

// StringEnum returns a string type restricted to the given literals.
func StringEnum(values ...string) *StringType {
	return &StringType{Enum: append([]string(nil), values...)}
}

// Pattern returns a string type with a single pattern constraint.
func Pattern(pattern string) *StringType {
	return &StringType{Constraints: []StringConstraint{{Pattern: pattern}}}
}

// Bool returns an unrestricted bool type.
func Bool() *BoolType { return &BoolType{} }

// BoolLiteral returns a bool type pinned to v.
func BoolLiteral(v bool) *BoolType { return &BoolType{Literal: &v} }

// ArrayOf returns a simple array type; length may be DynamicLength.
func ArrayOf(elem Type, length int) *ArrayType {
	return &ArrayType{Element: elem, Length: length}
}

// TupleOf returns a heterogeneous array type.
func TupleOf(items ...Type) *ArrayType {
	return &ArrayType{Tuple: append([]Type{}, items...)}
}

// DictOf returns a dict with the given fields.
func DictOf(keys map[string]DictField) *DictType {
	return &DictType{Keys: keys}
}

// Required and Optional build dict fields.
func Required(t Type) DictField { return DictField{Type: t} }
func Optional(t Type) DictField { return DictField{Type: t, Optional: true} }

// UnionOf returns a raw union; use Normalize to obtain the canonical form.
func UnionOf(types ...Type) *UnionType {
	return &UnionType{Types: append([]Type{}, types...)}
}

// IntPtr is a helper for string length bounds.
func IntPtr(v int) *int { return &v }

// HasEnum reports whether the number carries an enum restriction.
func (n *NumberType) HasEnum() bool { return len(n.Enum) > 0 }

// HasEnum reports whether the string carries an enum restriction.
func (s *StringType) HasEnum() bool { return len(s.Enum) > 0 }

// IsTuple reports whether the array is heterogeneous.
func (a *ArrayType) IsTuple() bool { return a.Tuple != nil }

// Len returns the declared length of the array, DynamicLength if unknown.
func (a *ArrayType) Len() int {
	if a.IsTuple() {
		return len(a.Tuple)
	}
	return a.Length
}

// ElementAt returns the type of position i.
func (a *ArrayType) ElementAt(i int) Type {
	if a.IsTuple() {
		return a.Tuple[i]
	}
	return a.Element
}

func (n *NumberType) clone() *NumberType {
	c := &NumberType{Integer: n.Integer}
	if n.Enum != nil {
		c.Enum = append([]float64(nil), n.Enum...)
	}
	if n.Range != nil {
		r := *n.Range
		c.Range = &r
	}
	return c
}

// bounds returns the effective interval of the number type.
func (n *NumberType) bounds() (float64, float64) {
	if n.Range == nil {
		return math.Inf(-1), math.Inf(1)
	}
	return n.Range.Min, n.Range.Max
}

// admits checks v against range and integer flag, ignoring the enum.
func (n *NumberType) admits(v float64) bool {
	lo, hi := n.bounds()
	if v < lo || v > hi {
		return false
	}
	if n.Integer && v != math.Trunc(v) {
		return false
	}
	return true
}

// Contains checks v against the full number restriction.
func (n *NumberType) Contains(v float64) bool {
	if !n.admits(v) {
		return false
	}
	if n.HasEnum() {
		for _, e := range n.Enum {
			if e == v {
				return true
			}
		}
		return false
	}
	return true
}

// effectiveEnum returns the enum literals that also satisfy range and integer flag.
func (n *NumberType) effectiveEnum() []float64 {
	out := make([]float64, 0, len(n.Enum))
	for _, v := range n.Enum {
		if n.admits(v) {
			out = append(out, v)
		}
	}
	return out
}

// isEmpty reports whether no number satisfies n.
func (n *NumberType) isEmpty() bool {
	if n.HasEnum() {
		return len(n.effectiveEnum()) == 0
	}
	lo, hi := n.bounds()
	if lo > hi {
		return true
	}
	if n.Integer {
		return math.Ceil(lo) > math.Floor(hi)
	}
	return false
}

func (n *NumberType) String() string {
	var b strings.Builder
	if n.Integer {
		b.WriteString("int")
	} else {
		b.WriteString("number")
	}
	if n.HasEnum() {
		parts := make([]string, len(n.Enum))
		for i, v := range n.Enum {
			parts[i] = formatFloat(v)
		}
		fmt.Fprintf(&b, "{%s}", strings.Join(parts, ","))
	}
	if n.Range != nil {
		fmt.Fprintf(&b, "[%s,%s]", formatFloat(n.Range.Min), formatFloat(n.Range.Max))
	}
	return b.String()
}

func (s *StringType) String() string {
	if s.HasEnum() {
		quoted := make([]string, len(s.Enum))
		for i, v := range s.Enum {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		return "string{" + strings.Join(quoted, ",") + "}"
	}
	if len(s.Constraints) == 0 {
		return "string"
	}
	parts := make([]string, len(s.Constraints))
	for i, c := range s.Constraints {
		parts[i] = c.String()
	}
	return "string(" + strings.Join(parts, "|") + ")"
}

func (c StringConstraint) String() string {
	var parts []string
	if c.Pattern != "" {
		parts = append(parts, "/"+c.Pattern+"/")
	}
	if c.LenMin != nil || c.LenMax != nil {
		lo, hi := "", ""
		if c.LenMin != nil {
			lo = fmt.Sprint(*c.LenMin)
		}
		if c.LenMax != nil {
			hi = fmt.Sprint(*c.LenMax)
		}
		parts = append(parts, "len["+lo+".."+hi+"]")
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func (*AnyType) String() string   { return "any" }
func (*NeverType) String() string { return "never" }

func (b *BoolType) String() string {
	if b.Literal == nil {
		return "bool"
	}
	return fmt.Sprintf("bool(%t)", *b.Literal)
}

func (a *ArrayType) String() string {
	if a.IsTuple() {
		parts := make([]string, len(a.Tuple))
		for i, t := range a.Tuple {
			parts[i] = typeString(t)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if a.Length == DynamicLength {
		return typeString(a.Element) + "[]"
	}
	return fmt.Sprintf("%s[%d]", typeString(a.Element), a.Length)
}

func (d *DictType) String() string {
	if d.Keys == nil {
		return "dict"
	}
	names := sortedKeys(d.Keys)
	parts := make([]string, len(names))
	for i, name := range names {
		f := d.Keys[name]
		opt := ""
		if f.Optional {
			opt = "?"
		}
		parts[i] = name + opt + ": " + typeString(f.Type)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (n *NDArrayType) String() string { return shapedString("ndarray", n.DType, n.Shape) }
func (t *TensorType) String() string  { return shapedString("tensor", t.DType, t.Shape) }

func (p *PythonObjectType) String() string { return "object<" + p.Type + ">" }

func (u *UnionType) String() string {
	parts := make([]string, len(u.Types))
	for i, t := range u.Types {
		parts[i] = typeString(t)
	}
	return strings.Join(parts, " | ")
}

func shapedString(name, dtype string, shape []int) string {
	s := name
	if dtype != "" {
		s += "<" + dtype + ">"
	}
	if shape != nil {
		dims := make([]string, len(shape))
		for i, d := range shape {
			if d == DynamicLength {
				dims[i] = "?"
			} else {
				dims[i] = fmt.Sprint(d)
			}
		}
		s += "(" + strings.Join(dims, ",") + ")"
	}
	return s
}

func typeString(t Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprint(v)
}
