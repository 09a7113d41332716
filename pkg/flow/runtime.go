package flow

import (
	"strings"

	"github.com/google/uuid"

	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// EntryState is the runtime state of a single entry.
type EntryState string

const (
	EntryInit           EntryState = "init"
	EntryDataReady      EntryState = "data-ready"
	EntryTypeReady      EntryState = "type-ready"
	EntryValidateFailed EntryState = "validate-failed"
	EntryUnavailable    EntryState = "unavailable"
	EntryErrored        EntryState = "error"
)

// EntryError describes why an entry failed.
type EntryError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Entries []string `json:"entries,omitempty"`
}

func (e *EntryError) Error() string {
	if len(e.Entries) == 0 {
		return e.Message
	}
	return strings.Join(e.Entries, ", ") + ": " + e.Message
}

// EntryRuntime is the mutable state of one entry. Data is meaningful only in
// EntryDataReady, Type only in EntryTypeReady, Err only in the failed states.
type EntryRuntime struct {
	State EntryState
	Data  any
	Type  schema.Type
	Err   *EntryError
}

func InitRuntime() EntryRuntime        { return EntryRuntime{State: EntryInit} }
func DataReady(v any) EntryRuntime     { return EntryRuntime{State: EntryDataReady, Data: v} }
func TypeReady(t schema.Type) EntryRuntime {
	return EntryRuntime{State: EntryTypeReady, Type: t}
}
func Unavailable() EntryRuntime { return EntryRuntime{State: EntryUnavailable} }

func ValidateFailed(err *EntryError) EntryRuntime {
	return EntryRuntime{State: EntryValidateFailed, Err: err}
}

func Errored(err *EntryError) EntryRuntime {
	return EntryRuntime{State: EntryErrored, Err: err}
}

// Ready reports whether the entry carries a value or a type.
func (r EntryRuntime) Ready() bool {
	return r.State == EntryDataReady || r.State == EntryTypeReady
}

// Failed reports whether the entry holds an error.
func (r EntryRuntime) Failed() bool {
	return r.State == EntryValidateFailed || r.State == EntryErrored
}

// KnownType is the type the entry is known to carry, or nil when nothing is known.
func (r EntryRuntime) KnownType() schema.Type {
	switch r.State {
	case EntryDataReady:
		return schema.TypeOf(r.Data)
	case EntryTypeReady:
		return r.Type
	}
	return nil
}

// NodeState is the aggregated readiness of a node's inputs or outputs.
type NodeState string

const (
	NodeInit           NodeState = "init"
	NodeDataReady      NodeState = "data-ready"
	NodeTypeReady      NodeState = "type-ready"
	NodeNotReady       NodeState = "not-ready"
	NodeValidateFailed NodeState = "validate-failed"
	NodeUnavailable    NodeState = "unavailable"
	NodeException      NodeState = "exception"
)

// Verdict is a three-valued success flag.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictPassed
	VerdictFailed
)

func (v Verdict) String() string {
	switch v {
	case VerdictPassed:
		return "passed"
	case VerdictFailed:
		return "failed"
	}
	return "unknown"
}

// SlotMode selects where an input entry takes its value from.
type SlotMode string

const (
	// ModeHandle feeds the entry from an incoming edge.
	ModeHandle SlotMode = "handle"
	// ModeInput feeds the entry from the literal Value.
	ModeInput SlotMode = "input"
)

// Slot is one entry of a node instance.
type Slot struct {
	Name     string
	Mode     SlotMode
	Value    any
	HasValue bool
	Runtime  EntryRuntime
}

// SetLiteral switches the slot to input mode with the given value.
func (s *Slot) SetLiteral(v any) {
	s.Mode = ModeInput
	s.Value = v
	s.HasValue = true
}

// NodeData is one instantiation of a definition inside a flow.
type NodeData struct {
	ID          string
	MetaID      string
	MetaVersion string
	Title       string

	Inputs  []*Slot
	Outputs []*Slot

	InputState  NodeState
	OutputState NodeState
	Success     Verdict
	Error       string

	Attrs map[string]string

	// Flow is the embedded sub-flow of a compound node.
	Flow *FlowState
	// Template overrides Flow when set.
	Template *FlowState
}

// NewNodeData instantiates meta with a fresh id and every entry in init.
func NewNodeData(meta *NodeMeta) *NodeData {
	n := &NodeData{
		ID:          uuid.NewString(),
		MetaID:      meta.ID,
		MetaVersion: meta.Version,
		Title:       meta.Title,
		InputState:  NodeInit,
		OutputState: NodeInit,
		Attrs:       map[string]string{},
	}
	for _, e := range meta.Inputs {
		n.Inputs = append(n.Inputs, &Slot{Name: e.Name, Mode: ModeHandle, Runtime: InitRuntime()})
	}
	for _, e := range meta.Outputs {
		n.Outputs = append(n.Outputs, &Slot{Name: e.Name, Mode: ModeHandle, Runtime: InitRuntime()})
	}
	if meta.Flow != nil {
		n.Flow = meta.Flow.Clone()
	}
	return n
}

// WithID replaces the generated id.
func (n *NodeData) WithID(id string) *NodeData {
	n.ID = id
	return n
}

func (n *NodeData) Input(name string) *Slot  { return findSlot(n.Inputs, name) }
func (n *NodeData) Output(name string) *Slot { return findSlot(n.Outputs, name) }

func findSlot(slots []*Slot, name string) *Slot {
	for _, s := range slots {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Attr returns an attribute value or "".
func (n *NodeData) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// SubFlow returns the flow a compound node evaluates: the template when set.
func (n *NodeData) SubFlow() *FlowState {
	if n.Template != nil {
		return n.Template
	}
	return n.Flow
}

// Reset returns every entry of the node, and of its sub-flows, to init.
func (n *NodeData) Reset() {
	for _, s := range n.Inputs {
		s.Runtime = InitRuntime()
	}
	for _, s := range n.Outputs {
		s.Runtime = InitRuntime()
	}
	n.InputState, n.OutputState = NodeInit, NodeInit
	n.Success = VerdictUnknown
	n.Error = ""
	if n.Flow != nil {
		n.Flow.ResetEntries()
	}
	if n.Template != nil {
		n.Template.ResetEntries()
	}
}

// Clone deep-copies the node structure. Literal values are shared.
func (n *NodeData) Clone() *NodeData {
	c := *n
	c.Inputs = cloneSlots(n.Inputs)
	c.Outputs = cloneSlots(n.Outputs)
	c.Attrs = make(map[string]string, len(n.Attrs))
	for k, v := range n.Attrs {
		c.Attrs[k] = v
	}
	if n.Flow != nil {
		c.Flow = n.Flow.Clone()
	}
	if n.Template != nil {
		c.Template = n.Template.Clone()
	}
	return &c
}

func cloneSlots(slots []*Slot) []*Slot {
	out := make([]*Slot, len(slots))
	for i, s := range slots {
		c := *s
		out[i] = &c
	}
	return out
}
