package flow

import (
	"errors"
	"strings"
)

// ErrStructural is wrapped by every StructuralError.
var ErrStructural = errors.New("invalid flow structure")

// ErrUnknownMeta is returned when a node refers to a definition the resolver does not know.
var ErrUnknownMeta = errors.New("unknown node definition")

// Structural error kinds.
const (
	KindCycle         = "cycle"
	KindDuplicateNode = "duplicate-node"
	KindDuplicateEdge = "duplicate-edge"
	KindDanglingEdge  = "dangling-edge"
	KindUnknownEntry  = "unknown-entry"
	KindSelfLoop      = "self-loop"
)

// StructuralError reports a graph that cannot be evaluated.
type StructuralError struct {
	Kind    string
	Nodes   []string
	Message string
}

func (e *StructuralError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind)
	if len(e.Nodes) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Nodes, " -> "))
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// NewCycleError reports the node path that closes a cycle.
func NewCycleError(path []string) *StructuralError {
	return &StructuralError{
		Kind:    KindCycle,
		Nodes:   append([]string(nil), path...),
		Message: "cycle detected",
	}
}

// IsCycle reports whether err is a cycle error.
func IsCycle(err error) bool {
	var se *StructuralError
	return errors.As(err, &se) && se.Kind == KindCycle
}
