package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/wehubfusion/Daedalus/pkg/flow"
	"github.com/wehubfusion/Daedalus/pkg/script"
)

// Configuration errors. They mean the graph or the engine setup is invalid and
// are returned from PrepareNode instead of being stored as entry state.
var (
	// ErrInvalidConfig is returned when the engine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrUnknownCapability is returned when an implementation names an unregistered capability.
	ErrUnknownCapability = errors.New("unknown capability")

	// ErrMalformedResult is returned when an implementation returns something other than an entry record.
	ErrMalformedResult = errors.New("malformed implementation result")

	// ErrNoEvaluator is returned when inline code must run but no evaluator is configured.
	ErrNoEvaluator = errors.New("no code evaluator configured")

	// ErrUnknownNode is returned when a node id is not part of the flow.
	ErrUnknownNode = errors.New("unknown node")

	// ErrMissingAttribute is returned when a sub-flow boundary node lacks its name attribute.
	ErrMissingAttribute = errors.New("missing node attribute")
)

// Entry error codes.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeVerifyFailed  = "VERIFY_FAILED"
	CodeTypeMismatch  = "TYPE_MISMATCH"
	CodeTimeout       = "TIMEOUT_ERROR"
	CodeScript        = "SCRIPT_ERROR"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeNotFound      = "NOT_FOUND_ERROR"
	CodeInternal      = "INTERNAL_ERROR"
	CodeUnknown       = "UNKNOWN_ERROR"
)

// NodeError wraps an error with the node and phase it happened in.
type NodeError struct {
	// NodeID is the id of the node instance
	NodeID string
	// MetaID is the definition the node instantiates
	MetaID string
	// Phase is one of "inputs", "data", "type", "verify", "subflow"
	Phase string
	// Cause is the underlying error
	Cause error
}

func (e *NodeError) Error() string {
	return "node " + e.NodeID + " [" + e.MetaID + "] during " + e.Phase + ": " + e.Cause.Error()
}

func (e *NodeError) Unwrap() error {
	return e.Cause
}

func newNodeError(node *flow.NodeData, phase string, cause error) *NodeError {
	return &NodeError{NodeID: node.ID, MetaID: node.MetaID, Phase: phase, Cause: cause}
}

// IsConfigError reports whether err invalidates the graph or the engine setup.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		ErrInvalidConfig,
		ErrUnknownCapability,
		ErrMalformedResult,
		ErrNoEvaluator,
		ErrUnknownNode,
		ErrMissingAttribute,
		flow.ErrStructural,
		flow.ErrUnknownMeta,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// CategorizeError maps an error to an entry error code.
func CategorizeError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, script.ErrValidationFailed) {
		return CodeVerifyFailed
	}
	if script.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	if IsConfigError(err) {
		return CodeConfiguration
	}

	var jsErr *script.JSError
	if errors.As(err, &jsErr) {
		if jsErr.Type == script.ErrorTypeInternal {
			return CodeInternal
		}
		return CodeScript
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "timed out"):
		return CodeTimeout
	case strings.Contains(errMsg, "validation") || strings.Contains(errMsg, "invalid"):
		return CodeValidation
	case strings.Contains(errMsg, "not found"):
		return CodeNotFound
	}
	return CodeUnknown
}

func entryError(code, message string, entries ...string) *flow.EntryError {
	return &flow.EntryError{Code: code, Message: message, Entries: entries}
}
