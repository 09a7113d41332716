package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// The document types are the persisted shape of definitions and flows.
// Conversion to and from the in-memory model happens only in this file.

var validate = validator.New()

// EntryDocument is a persisted NodeEntry.
type EntryDocument struct {
	Name        string     `json:"name" yaml:"name" validate:"required"`
	Type        schema.Box `json:"type" yaml:"type"`
	Recommend   string     `json:"recommend,omitempty" yaml:"recommend,omitempty" validate:"omitempty,oneof=broken discouraged optional recommended must"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Verify      string     `json:"verify,omitempty" yaml:"verify,omitempty"`
}

// ImplDocument is a persisted Impl: inline code or a capability name, never both.
type ImplDocument struct {
	Code string `json:"code,omitempty" yaml:"code,omitempty" validate:"required_without=API,excluded_with=API"`
	API  string `json:"api,omitempty" yaml:"api,omitempty"`
}

// MetaDocument is a persisted NodeMeta.
type MetaDocument struct {
	ID          string          `json:"id" yaml:"id" validate:"required"`
	Version     string          `json:"version" yaml:"version" validate:"required"`
	Title       string          `json:"title,omitempty" yaml:"title,omitempty"`
	Kind        string          `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=base compound"`
	Category    string          `json:"category,omitempty" yaml:"category,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Inputs      []EntryDocument `json:"inputs,omitempty" yaml:"inputs,omitempty" validate:"dive"`
	Outputs     []EntryDocument `json:"outputs,omitempty" yaml:"outputs,omitempty" validate:"dive"`
	Data        *ImplDocument   `json:"frontendImpl,omitempty" yaml:"frontendImpl,omitempty"`
	TypeImpl    *ImplDocument   `json:"typeImpl,omitempty" yaml:"typeImpl,omitempty"`
	Flow        *FlowDocument   `json:"flow,omitempty" yaml:"flow,omitempty"`
}

// SlotDocument is the persisted configuration of one input entry of a node instance.
type SlotDocument struct {
	Name  string `json:"name" yaml:"name" validate:"required"`
	Mode  string `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=handle input"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// NodeDocument is a persisted NodeData.
type NodeDocument struct {
	ID       string            `json:"id" yaml:"id" validate:"required"`
	Meta     string            `json:"meta" yaml:"meta" validate:"required"`
	Version  string            `json:"version,omitempty" yaml:"version,omitempty"`
	Title    string            `json:"title,omitempty" yaml:"title,omitempty"`
	Inputs   []SlotDocument    `json:"inputs,omitempty" yaml:"inputs,omitempty" validate:"dive"`
	Attrs    map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Flow     *FlowDocument     `json:"flow,omitempty" yaml:"flow,omitempty"`
	Template *FlowDocument     `json:"template,omitempty" yaml:"template,omitempty"`
}

// EdgeDocument is a persisted Edge.
type EdgeDocument struct {
	Source      string `json:"source" yaml:"source" validate:"required"`
	SourceEntry string `json:"sourceEntry" yaml:"sourceEntry" validate:"required"`
	Target      string `json:"target" yaml:"target" validate:"required"`
	TargetEntry string `json:"targetEntry" yaml:"targetEntry" validate:"required"`
}

// FlowDocument is a persisted FlowState.
type FlowDocument struct {
	Nodes []NodeDocument `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges []EdgeDocument `json:"edges,omitempty" yaml:"edges,omitempty" validate:"dive"`
}

// DefinitionsDocument is a set of node definitions.
type DefinitionsDocument struct {
	Nodes []MetaDocument `json:"nodes" yaml:"nodes" validate:"required,dive"`
}

// ValidateDocument checks struct tags on any document type.
func ValidateDocument(doc any) error {
	if err := validate.Struct(doc); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid document: %s", strings.Join(msgs, "; "))
}

// ToMeta converts a definition. The embedded flow is left unset: converting it
// needs a resolver that may only be complete once every definition is loaded.
func (d *MetaDocument) ToMeta() (*NodeMeta, error) {
	meta := &NodeMeta{
		ID:          d.ID,
		Version:     d.Version,
		Title:       d.Title,
		Kind:        NodeKind(d.Kind),
		Category:    d.Category,
		Description: d.Description,
	}
	if meta.Kind == "" {
		meta.Kind = KindBase
		if d.Flow != nil {
			meta.Kind = KindCompound
		}
	}
	var err error
	if meta.Inputs, err = toEntries(d.Inputs); err != nil {
		return nil, fmt.Errorf("%s inputs: %w", meta.Key(), err)
	}
	if meta.Outputs, err = toEntries(d.Outputs); err != nil {
		return nil, fmt.Errorf("%s outputs: %w", meta.Key(), err)
	}
	if d.Data != nil {
		meta.Data = &Impl{Code: d.Data.Code, API: d.Data.API}
	}
	if d.TypeImpl != nil {
		meta.TypeImpl = &Impl{Code: d.TypeImpl.Code, API: d.TypeImpl.API}
	}
	return meta, nil
}

func toEntries(docs []EntryDocument) ([]NodeEntry, error) {
	entries := make([]NodeEntry, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate entry %q", d.Name)
		}
		seen[d.Name] = true
		level, err := ParseRecommendLevel(d.Recommend)
		if err != nil {
			return nil, err
		}
		typ := d.Type.Type
		if typ == nil {
			typ = schema.Any()
		}
		entries = append(entries, NodeEntry{
			Name:        d.Name,
			Type:        schema.Normalize(typ),
			Recommend:   level,
			Description: d.Description,
			Verify:      d.Verify,
		})
	}
	return entries, nil
}

// FromMeta converts a definition to its persisted shape.
func FromMeta(m *NodeMeta) MetaDocument {
	d := MetaDocument{
		ID:          m.ID,
		Version:     m.Version,
		Title:       m.Title,
		Kind:        string(m.Kind),
		Category:    m.Category,
		Description: m.Description,
		Inputs:      fromEntries(m.Inputs),
		Outputs:     fromEntries(m.Outputs),
	}
	if m.Data != nil {
		d.Data = &ImplDocument{Code: m.Data.Code, API: m.Data.API}
	}
	if m.TypeImpl != nil {
		d.TypeImpl = &ImplDocument{Code: m.TypeImpl.Code, API: m.TypeImpl.API}
	}
	if m.Flow != nil {
		f := FromFlow(m.Flow)
		d.Flow = &f
	}
	return d
}

func fromEntries(entries []NodeEntry) []EntryDocument {
	docs := make([]EntryDocument, 0, len(entries))
	for _, e := range entries {
		d := EntryDocument{
			Name:        e.Name,
			Type:        schema.Box{Type: e.Declared()},
			Description: e.Description,
			Verify:      e.Verify,
		}
		if e.Recommend != Optional {
			d.Recommend = e.Recommend.String()
		}
		docs = append(docs, d)
	}
	return docs
}

// ToFlow instantiates every node through res and applies the persisted slot settings.
func (d *FlowDocument) ToFlow(res Resolver) (*FlowState, error) {
	f := &FlowState{}
	for i := range d.Nodes {
		n, err := d.Nodes[i].toNode(res)
		if err != nil {
			return nil, err
		}
		f.Nodes = append(f.Nodes, n)
	}
	for _, e := range d.Edges {
		f.Connect(e.Source, e.SourceEntry, e.Target, e.TargetEntry)
	}
	return f, nil
}

func (d *NodeDocument) toNode(res Resolver) (*NodeData, error) {
	meta, ok := res.Resolve(d.Meta, d.Version)
	if !ok {
		return nil, fmt.Errorf("node %s: %w: %s", d.ID, ErrUnknownMeta, MetaKey{ID: d.Meta, Version: d.Version})
	}
	n := NewNodeData(meta).WithID(d.ID)
	if d.Title != "" {
		n.Title = d.Title
	}
	for k, v := range d.Attrs {
		n.Attrs[k] = v
	}
	for _, sd := range d.Inputs {
		slot := n.Input(sd.Name)
		if slot == nil {
			return nil, fmt.Errorf("node %s: %s has no input %q", d.ID, meta.Key(), sd.Name)
		}
		if SlotMode(sd.Mode) == ModeInput {
			slot.Mode = ModeInput
			slot.Value = sd.Value
			slot.HasValue = sd.Value != nil
		}
	}
	var err error
	if d.Flow != nil {
		if n.Flow, err = d.Flow.ToFlow(res); err != nil {
			return nil, fmt.Errorf("node %s flow: %w", d.ID, err)
		}
	}
	if d.Template != nil {
		if n.Template, err = d.Template.ToFlow(res); err != nil {
			return nil, fmt.Errorf("node %s template: %w", d.ID, err)
		}
	}
	return n, nil
}

// FromFlow converts a flow to its persisted shape. Runtime state is not persisted.
func FromFlow(f *FlowState) FlowDocument {
	d := FlowDocument{Nodes: make([]NodeDocument, 0, len(f.Nodes))}
	for _, n := range f.Nodes {
		nd := NodeDocument{
			ID:      n.ID,
			Meta:    n.MetaID,
			Version: n.MetaVersion,
			Title:   n.Title,
		}
		if len(n.Attrs) > 0 {
			nd.Attrs = make(map[string]string, len(n.Attrs))
			for k, v := range n.Attrs {
				nd.Attrs[k] = v
			}
		}
		for _, s := range n.Inputs {
			if s.Mode == ModeInput {
				nd.Inputs = append(nd.Inputs, SlotDocument{Name: s.Name, Mode: string(ModeInput), Value: s.Value})
			}
		}
		if n.Flow != nil {
			sub := FromFlow(n.Flow)
			nd.Flow = &sub
		}
		if n.Template != nil {
			sub := FromFlow(n.Template)
			nd.Template = &sub
		}
		d.Nodes = append(d.Nodes, nd)
	}
	for _, e := range f.Edges {
		d.Edges = append(d.Edges, EdgeDocument{
			Source:      e.SourceNode,
			SourceEntry: e.SourceEntry,
			Target:      e.TargetNode,
			TargetEntry: e.TargetEntry,
		})
	}
	return d
}
