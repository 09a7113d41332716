package schema

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Validator checks concrete values against types
type Validator struct {
	patterns *PatternCache
}

// NewValidator creates a new type validator
func NewValidator() *Validator {
	return &Validator{
		patterns: NewPatternCache(),
	}
}

// Validate validates value against t. A nil type accepts nothing.
func (v *Validator) Validate(value any, t Type) *ValidationResult {
	result := &ValidationResult{
		Valid:  true,
		Errors: []ValidationError{},
	}

	errors := v.validateValue(value, t, "root")
	if len(errors) > 0 {
		result.Valid = false
		result.Errors = errors
	}

	return result
}

// Accepts is a convenience wrapper reporting only validity.
func (v *Validator) Accepts(value any, t Type) bool {
	return len(v.validateValue(value, t, "root")) == 0
}

// validateValue validates a value against a type
func (v *Validator) validateValue(value any, t Type, path string) []ValidationError {
	var errors []ValidationError

	switch typ := t.(type) {
	case *AnyType:
		return nil

	case nil, *NeverType:
		errors = append(errors, ValidationError{
			Path:    path,
			Message: "no value is accepted here",
			Code:    "NEVER",
		})

	case *NumberType:
		num, ok := toFloat(value)
		if !ok {
			return append(errors, mismatch(path, "number", value))
		}
		errors = append(errors, v.validateNumber(num, typ, path)...)

	case *StringType:
		str, ok := value.(string)
		if !ok {
			return append(errors, mismatch(path, "string", value))
		}
		errors = append(errors, v.validateString(str, typ, path)...)

	case *BoolType:
		b, ok := value.(bool)
		if !ok {
			return append(errors, mismatch(path, "boolean", value))
		}
		if typ.Literal != nil && b != *typ.Literal {
			errors = append(errors, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("expected literal %t, got %t", *typ.Literal, b),
				Code:    "ENUM_MISMATCH",
			})
		}

	case *ArrayType:
		arr, ok := toList(value)
		if !ok {
			return append(errors, mismatch(path, "array", value))
		}
		errors = append(errors, v.validateArray(arr, typ, path)...)

	case *DictType:
		obj, ok := value.(map[string]any)
		if !ok {
			return append(errors, mismatch(path, "object", value))
		}
		errors = append(errors, v.validateObject(obj, typ, path)...)

	case *NDArrayType:
		dtype, shape, ok := shapedValue(value, false)
		if !ok {
			return append(errors, mismatch(path, "ndarray", value))
		}
		errors = append(errors, validateShaped(dtype, shape, typ.DType, typ.Shape, path)...)

	case *TensorType:
		dtype, shape, ok := shapedValue(value, true)
		if !ok {
			return append(errors, mismatch(path, "tensor", value))
		}
		errors = append(errors, validateShaped(dtype, shape, typ.DType, typ.Shape, path)...)

	case *PythonObjectType:
		var name string
		switch obj := value.(type) {
		case PyObject:
			name = obj.TypeName
		case *PyObject:
			if obj == nil {
				return append(errors, mismatch(path, "python object", value))
			}
			name = obj.TypeName
		default:
			return append(errors, mismatch(path, "python object", value))
		}
		if name != typ.Type {
			errors = append(errors, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("expected object of type %s, got %s", typ.Type, name),
				Code:    "OBJECT_TYPE_MISMATCH",
			})
		}

	case *UnionType:
		var messages []string
		for _, member := range typ.Types {
			memberErrors := v.validateValue(value, member, path)
			if len(memberErrors) == 0 {
				return nil
			}
			messages = append(messages, member.String())
		}
		errors = append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("value matches none of %s", strings.Join(messages, ", ")),
			Code:    "UNION_MISMATCH",
		})
	}

	return errors
}

func mismatch(path, expected string, value any) ValidationError {
	if value == nil {
		return ValidationError{
			Path:    path,
			Message: fmt.Sprintf("expected %s, got null", expected),
			Code:    "REQUIRED",
		}
	}
	return ValidationError{
		Path:    path,
		Message: fmt.Sprintf("expected %s, got %T", expected, value),
		Code:    "TYPE_MISMATCH",
	}
}

// validateNumber validates number-specific rules
func (v *Validator) validateNumber(value float64, t *NumberType, path string) []ValidationError {
	var errors []ValidationError

	if t.Integer && value != math.Trunc(value) {
		errors = append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("value %v is not an integer", value),
			Code:    "NOT_INTEGER",
		})
	}

	lo, hi := t.bounds()
	if value < lo {
		errors = append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("value %v is less than minimum %v", value, lo),
			Code:    "MIN_VALUE",
		})
	}
	if value > hi {
		errors = append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("value %v exceeds maximum %v", value, hi),
			Code:    "MAX_VALUE",
		})
	}

	if t.HasEnum() && len(errors) == 0 && !t.Contains(value) {
		errors = append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("value %v not in allowed values %v", value, t.Enum),
			Code:    "ENUM_MISMATCH",
		})
	}

	return errors
}

// validateString validates string-specific rules
func (v *Validator) validateString(value string, t *StringType, path string) []ValidationError {
	var errors []ValidationError

	if t.HasEnum() {
		for _, allowed := range t.Enum {
			if value == allowed {
				return nil
			}
		}
		return append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("value '%s' not in allowed values %v", value, t.Enum),
			Code:    "ENUM_MISMATCH",
		})
	}

	if len(t.Constraints) == 0 {
		return nil
	}

	// constraints are alternatives; one match is enough
	var first []ValidationError
	for i, c := range t.Constraints {
		cerrs := v.validateConstraint(value, c, path)
		if len(cerrs) == 0 {
			return nil
		}
		if i == 0 {
			first = cerrs
		}
	}
	if len(t.Constraints) == 1 {
		return first
	}
	return append(errors, ValidationError{
		Path:    path,
		Message: fmt.Sprintf("value '%s' satisfies none of %d constraint alternatives", value, len(t.Constraints)),
		Code:    "CONSTRAINT_MISMATCH",
	})
}

func (v *Validator) validateConstraint(value string, c StringConstraint, path string) []ValidationError {
	var errors []ValidationError

	length := StringLength(value)
	if c.LenMin != nil && length < *c.LenMin {
		errors = append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("length %d is less than minimum %d", length, *c.LenMin),
			Code:    "MIN_LENGTH",
		})
	}
	if c.LenMax != nil && length > *c.LenMax {
		errors = append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("length %d exceeds maximum %d", length, *c.LenMax),
			Code:    "MAX_LENGTH",
		})
	}

	if c.Pattern != "" {
		matched, err := v.patterns.Match(c.Pattern, value)
		if err != nil {
			errors = append(errors, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("invalid regex pattern: %v", err),
				Code:    "INVALID_PATTERN",
			})
		} else if !matched {
			errors = append(errors, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("value does not match pattern '%s'", c.Pattern),
				Code:    "PATTERN_MISMATCH",
			})
		}
	}

	return errors
}

// validateArray validates length and elements
func (v *Validator) validateArray(arr []any, t *ArrayType, path string) []ValidationError {
	var errors []ValidationError

	if want := t.Len(); want != DynamicLength && len(arr) != want {
		return append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("array length %d, expected %d", len(arr), want),
			Code:    "LENGTH_MISMATCH",
		})
	}

	for i, item := range arr {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		errors = append(errors, v.validateValue(item, t.ElementAt(i), itemPath)...)
	}

	return errors
}

// validateObject validates declared keys; undeclared keys are allowed
func (v *Validator) validateObject(obj map[string]any, t *DictType, path string) []ValidationError {
	var errors []ValidationError

	if t.Keys == nil {
		return errors
	}

	names := make([]string, 0, len(t.Keys))
	for name := range t.Keys {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := t.Keys[name]
		value, exists := obj[name]
		fieldPath := fmt.Sprintf("%s.%s", path, name)

		if !exists {
			if !field.Optional {
				errors = append(errors, ValidationError{
					Path:    fieldPath,
					Message: "required field missing",
					Code:    "REQUIRED",
				})
			}
			continue
		}

		errors = append(errors, v.validateValue(value, field.Type, fieldPath)...)
	}

	return errors
}

func validateShaped(dtype string, shape []int, wantDType string, wantShape []int, path string) []ValidationError {
	var errors []ValidationError

	if wantDType != "" && dtype != wantDType {
		errors = append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("dtype %s, expected %s", dtype, wantDType),
			Code:    "DTYPE_MISMATCH",
		})
	}

	if wantShape == nil {
		return errors
	}
	ok := len(shape) == len(wantShape)
	for i := 0; ok && i < len(shape); i++ {
		if wantShape[i] != DynamicLength && wantShape[i] != shape[i] {
			ok = false
		}
	}
	if !ok {
		errors = append(errors, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("shape %v, expected %v", shape, wantShape),
			Code:    "SHAPE_MISMATCH",
		})
	}

	return errors
}

// matchesAnyConstraint reports whether s satisfies one of the alternatives.
// A nil cache compiles patterns on demand.
func matchesAnyConstraint(s string, constraints []StringConstraint, cache *PatternCache) bool {
	if cache == nil {
		cache = defaultPatterns
	}
	length := StringLength(s)
	for _, c := range constraints {
		if c.LenMin != nil && length < *c.LenMin {
			continue
		}
		if c.LenMax != nil && length > *c.LenMax {
			continue
		}
		if c.Pattern != "" {
			matched, err := cache.Match(c.Pattern, s)
			if err != nil || !matched {
				continue
			}
		}
		return true
	}
	return false
}
