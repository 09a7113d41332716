package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// OutcomeKind tells the engine how an implementation finished.
type OutcomeKind int

const (
	// OutcomeProduced carries a result.
	OutcomeProduced OutcomeKind = iota
	// OutcomeSkip means no result yet; the entries stay unsettled.
	OutcomeSkip
	// OutcomeUnsupported means this implementation path does not apply.
	OutcomeUnsupported
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeProduced:
		return "produced"
	case OutcomeSkip:
		return "skip"
	case OutcomeUnsupported:
		return "unsupported"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is the result of a capability call. Value is meaningful only when Kind is OutcomeProduced.
type Outcome[T any] struct {
	Kind  OutcomeKind
	Value T
}

func Produced[T any](value T) Outcome[T] { return Outcome[T]{Kind: OutcomeProduced, Value: value} }
func Skip[T any]() Outcome[T]            { return Outcome[T]{Kind: OutcomeSkip} }
func Unsupported[T any]() Outcome[T]     { return Outcome[T]{Kind: OutcomeUnsupported} }

// DataFunc produces output values from bound input values.
type DataFunc func(ctx context.Context, inputs map[string]any) (Outcome[map[string]any], error)

// TypeFunc infers output types from bound input types.
type TypeFunc func(ctx context.Context, inputs map[string]schema.Type) (Outcome[map[string]schema.Type], error)

// Capabilities holds the named implementations nodes may refer to.
type Capabilities struct {
	mu    sync.RWMutex
	data  map[string]DataFunc
	types map[string]TypeFunc
}

// NewCapabilities creates an empty registry.
func NewCapabilities() *Capabilities {
	return &Capabilities{
		data:  make(map[string]DataFunc),
		types: make(map[string]TypeFunc),
	}
}

// Register adds a data capability, replacing any previous one of the same name.
func (c *Capabilities) Register(name string, fn DataFunc) *Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[name] = fn
	return c
}

// RegisterType adds a type capability, replacing any previous one of the same name.
func (c *Capabilities) RegisterType(name string, fn TypeFunc) *Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[name] = fn
	return c
}

// Lookup returns the data capability registered under name.
func (c *Capabilities) Lookup(name string) (DataFunc, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
	}
	return fn, nil
}

// LookupType returns the type capability registered under name.
func (c *Capabilities) LookupType(name string) (TypeFunc, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: type %s", ErrUnknownCapability, name)
	}
	return fn, nil
}

// Names returns the sorted names of the data and type capabilities.
func (c *Capabilities) Names() (data, types []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name := range c.data {
		data = append(data, name)
	}
	for name := range c.types {
		types = append(types, name)
	}
	sort.Strings(data)
	sort.Strings(types)
	return data, types
}
