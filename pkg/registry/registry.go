// Package registry holds node definitions keyed by id and version and loads
// them from definition documents kept on disk, in Azure Blob Storage or in S3.
package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/wehubfusion/Daedalus/pkg/flow"
)

// Registry is a thread-safe set of node definitions. It implements flow.Resolver.
type Registry struct {
	mu    sync.RWMutex
	metas map[string]map[string]*flow.NodeMeta
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{metas: make(map[string]map[string]*flow.NodeMeta)}
}

// Add registers a definition. Registering the same id and version twice is an error.
func (r *Registry) Add(meta *flow.NodeMeta) error {
	if meta == nil || meta.ID == "" {
		return fmt.Errorf("definition id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.metas[meta.ID]
	if !ok {
		versions = make(map[string]*flow.NodeMeta)
		r.metas[meta.ID] = versions
	}
	if _, exists := versions[meta.Version]; exists {
		return fmt.Errorf("definition %s is already registered", meta.Key())
	}
	versions[meta.Version] = meta
	return nil
}

// Resolve returns the definition for id and version. An empty version resolves
// to the latest registered one.
func (r *Registry) Resolve(id, version string) (*flow.NodeMeta, bool) {
	if version == "" {
		return r.Latest(id)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.metas[id][version]
	return meta, ok
}

// Latest returns the highest version registered for id.
func (r *Registry) Latest(id string) (*flow.NodeMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *flow.NodeMeta
	for _, meta := range r.metas[id] {
		if latest == nil || compareVersions(meta.Version, latest.Version) > 0 {
			latest = meta
		}
	}
	return latest, latest != nil
}

// List returns every definition ordered by id, then version.
func (r *Registry) List() []*flow.NodeMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var metas []*flow.NodeMeta
	for _, versions := range r.metas {
		for _, meta := range versions {
			metas = append(metas, meta)
		}
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].ID != metas[j].ID {
			return metas[i].ID < metas[j].ID
		}
		return compareVersions(metas[i].Version, metas[j].Version) < 0
	})
	return metas
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, versions := range r.metas {
		n += len(versions)
	}
	return n
}

var _ flow.Resolver = (*Registry)(nil)

// compareVersions orders dotted versions numerically where both parts are
// numbers, and lexically otherwise. A leading "v" is ignored.
func compareVersions(a, b string) int {
	pa := strings.Split(strings.TrimPrefix(a, "v"), ".")
	pb := strings.Split(strings.TrimPrefix(b, "v"), ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y string
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x == y {
			continue
		}
		nx, errX := strconv.Atoi(x)
		ny, errY := strconv.Atoi(y)
		switch {
		case errX == nil && errY == nil:
			if nx < ny {
				return -1
			}
			if nx > ny {
				return 1
			}
		case x < y:
			return -1
		default:
			return 1
		}
	}
	return 0
}
