// Package flow holds the node graph model: node definitions, their
// instantiations inside a flow, edges, and the per-entry runtime state the
// engine mutates while preparing nodes.
package flow

import (
	"fmt"
	"strings"

	"github.com/wehubfusion/Daedalus/pkg/schema"
)

// RecommendLevel says how strongly an entry should be connected.
// Inputs at or above Must block readiness when missing.
type RecommendLevel int

const (
	Broken      RecommendLevel = -2
	Discouraged RecommendLevel = -1
	Optional    RecommendLevel = 0
	Recommended RecommendLevel = 1
	Must        RecommendLevel = 2
)

var recommendNames = map[RecommendLevel]string{
	Broken:      "broken",
	Discouraged: "discouraged",
	Optional:    "optional",
	Recommended: "recommended",
	Must:        "must",
}

func (l RecommendLevel) String() string {
	if name, ok := recommendNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseRecommendLevel reads a level by name. An empty name is Optional.
func ParseRecommendLevel(name string) (RecommendLevel, error) {
	if name == "" {
		return Optional, nil
	}
	for level, n := range recommendNames {
		if strings.EqualFold(n, name) {
			return level, nil
		}
	}
	return Optional, fmt.Errorf("unknown recommendation level %q", name)
}

// NodeEntry is one declared input or output of a node definition.
type NodeEntry struct {
	Name        string
	Type        schema.Type
	Recommend   RecommendLevel
	Description string
	// Verify is optional predicate code run against every value the entry receives.
	Verify string
}

// Declared returns the normalized entry type; an undeclared type is Any.
func (e *NodeEntry) Declared() schema.Type {
	if e.Type == nil {
		return schema.Any()
	}
	return schema.Normalize(e.Type)
}

// Impl is a node implementation: inline code or the name of a registered capability.
type Impl struct {
	Code string
	API  string
}

// Inline reports whether the implementation is inline code.
func (i *Impl) Inline() bool { return i.API == "" }

func (i *Impl) String() string {
	if i.Inline() {
		return "inline"
	}
	return "api:" + i.API
}

// NodeKind separates leaf nodes from nodes backed by a sub-flow.
type NodeKind string

const (
	KindBase     NodeKind = "base"
	KindCompound NodeKind = "compound"
)

// Categories with engine-level meaning.
const (
	CategoryOutput = "output"
	CategoryInput  = "input"
)

// Attribute and entry names used by sub-flow boundary nodes.
const (
	AttrOutputName = "outputName"
	AttrInputName  = "inputName"
	SinkEntry      = "output"
	SourceEntry    = "input"
)

// MetaKey identifies a node definition.
type MetaKey struct {
	ID      string
	Version string
}

func (k MetaKey) String() string {
	if k.Version == "" {
		return k.ID
	}
	return k.ID + "@" + k.Version
}

// NodeMeta is an immutable node definition.
type NodeMeta struct {
	ID          string
	Version     string
	Title       string
	Kind        NodeKind
	Category    string
	Description string
	Inputs      []NodeEntry
	Outputs     []NodeEntry

	// Data produces concrete outputs from concrete inputs.
	Data *Impl
	// TypeImpl infers output types from input types.
	TypeImpl *Impl

	// Flow is the default embedded sub-flow of a compound definition.
	Flow *FlowState
}

func (m *NodeMeta) Key() MetaKey { return MetaKey{ID: m.ID, Version: m.Version} }

func (m *NodeMeta) IsCompound() bool { return m.Kind == KindCompound }

func (m *NodeMeta) Input(name string) (*NodeEntry, bool) {
	return findEntry(m.Inputs, name)
}

func (m *NodeMeta) Output(name string) (*NodeEntry, bool) {
	return findEntry(m.Outputs, name)
}

func findEntry(entries []NodeEntry, name string) (*NodeEntry, bool) {
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], true
		}
	}
	return nil, false
}

// Resolver looks up node definitions. An empty version asks for the latest one.
type Resolver interface {
	Resolve(id, version string) (*NodeMeta, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(id, version string) (*NodeMeta, bool)

func (f ResolverFunc) Resolve(id, version string) (*NodeMeta, bool) { return f(id, version) }

// StaticResolver resolves from a fixed set of definitions keyed by id. Handy in tests.
func StaticResolver(metas ...*NodeMeta) Resolver {
	byID := make(map[string]*NodeMeta, len(metas))
	for _, m := range metas {
		byID[m.ID] = m
	}
	return ResolverFunc(func(id, version string) (*NodeMeta, bool) {
		m, ok := byID[id]
		if !ok || (version != "" && m.Version != "" && version != m.Version) {
			return nil, false
		}
		return m, true
	})
}
