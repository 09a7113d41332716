package schema

import (
	"encoding/json"
	"fmt"
)

// Engine bundles parsing, normalization, validation and default generation
// for callers that work with serialized types.
type Engine struct {
	parser      *Parser
	validator   *Validator
	transformer *Transformer
}

// NewEngine creates a new schema engine
func NewEngine() *Engine {
	return &Engine{
		parser:      NewParser(),
		validator:   NewValidator(),
		transformer: NewTransformer(),
	}
}

// ValidateOnly validates JSON data against a JSON type definition
func (e *Engine) ValidateOnly(inputData []byte, typeDefinition []byte) (*ValidationResult, error) {
	t, err := e.parser.Parse(typeDefinition)
	if err != nil {
		return nil, fmt.Errorf("type parse error: %w", err)
	}

	var data any
	if err := json.Unmarshal(inputData, &data); err != nil {
		return nil, fmt.Errorf("invalid input JSON: %w", err)
	}

	return e.validator.Validate(data, Normalize(t)), nil
}

// NormalizeOnly parses a JSON type definition and returns its canonical JSON form
func (e *Engine) NormalizeOnly(typeDefinition []byte) ([]byte, error) {
	t, err := e.parser.Parse(typeDefinition)
	if err != nil {
		return nil, fmt.Errorf("type parse error: %w", err)
	}
	return MarshalType(Normalize(t))
}

// DefaultOnly generates a default value for a JSON type definition
func (e *Engine) DefaultOnly(typeDefinition []byte) ([]byte, error) {
	t, err := e.parser.Parse(typeDefinition)
	if err != nil {
		return nil, fmt.Errorf("type parse error: %w", err)
	}

	value, ok := e.transformer.DefaultValue(Normalize(t))
	if !ok {
		return nil, NewSchemaError(fmt.Sprintf("no default value for %s", t), "NO_DEFAULT", nil)
	}

	return json.Marshal(value)
}

// ProcessWithType applies defaults to JSON data, then validates it
func (e *Engine) ProcessWithType(inputData []byte, typeDefinition []byte, strict bool) (*ProcessResult, error) {
	t, err := e.parser.Parse(typeDefinition)
	if err != nil {
		return nil, fmt.Errorf("type parse error: %w", err)
	}
	t = Normalize(t)

	var data any
	if err := json.Unmarshal(inputData, &data); err != nil {
		return nil, fmt.Errorf("invalid input JSON: %w", err)
	}

	data = e.transformer.ApplyDefaults(data, t)
	validationResult := e.validator.Validate(data, t)

	outputData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}

	result := &ProcessResult{
		Valid:  validationResult.Valid,
		Data:   outputData,
		Errors: validationResult.Errors,
	}
	if !validationResult.Valid && strict {
		return result, ValidationFailedError(validationResult.Errors)
	}
	return result, nil
}

// ProcessResult contains the result of ProcessWithType
type ProcessResult struct {
	Valid  bool              `json:"valid"`
	Data   []byte            `json:"data"`
	Errors []ValidationError `json:"errors,omitempty"`
}
