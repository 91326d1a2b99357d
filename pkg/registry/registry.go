// Package registry holds the catalog of registered platform profiles.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/zen-systems/unigate/pkg/schema"
)

// ErrNotFound is returned by Get for an unregistered platform id.
var ErrNotFound = fmt.Errorf("platform not found")

// snapshot is one immutable view of the catalog. Readers load the current
// snapshot atomically; writers build a replacement and swap it in whole, so
// a reader never observes a partially written profile.
type snapshot struct {
	ordered []*schema.PlatformProfile
	byID    map[string]*schema.PlatformProfile
}

// Registry is the concurrent-safe platform catalog.
type Registry struct {
	current atomic.Pointer[snapshot]
	mu      sync.Mutex // serializes writers only
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.current.Store(&snapshot{byID: map[string]*schema.PlatformProfile{}})
	return r
}

// Register adds or replaces a profile. Registration is idempotent by id;
// the last write wins. The profile is stored as-is and must not be mutated
// by the caller afterwards.
func (r *Registry) Register(profile *schema.PlatformProfile) error {
	if profile == nil || profile.ID == "" {
		return fmt.Errorf("profile id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()
	next := &snapshot{byID: make(map[string]*schema.PlatformProfile, len(old.byID)+1)}
	for id, p := range old.byID {
		next.byID[id] = p
	}
	next.byID[profile.ID] = profile

	next.ordered = make([]*schema.PlatformProfile, 0, len(next.byID))
	for _, p := range next.byID {
		next.ordered = append(next.ordered, p)
	}
	sort.Slice(next.ordered, func(i, j int) bool {
		return next.ordered[i].ID < next.ordered[j].ID
	})

	r.current.Store(next)
	return nil
}

// Replace swaps the entire catalog for a new set of profiles. Used by
// config hot-reload; in-flight readers keep the snapshot they loaded.
func (r *Registry) Replace(profiles []*schema.PlatformProfile) error {
	next := &snapshot{byID: make(map[string]*schema.PlatformProfile, len(profiles))}
	for _, p := range profiles {
		if p == nil || p.ID == "" {
			return fmt.Errorf("profile id is required")
		}
		next.byID[p.ID] = p
	}
	next.ordered = make([]*schema.PlatformProfile, 0, len(next.byID))
	for _, p := range next.byID {
		next.ordered = append(next.ordered, p)
	}
	sort.Slice(next.ordered, func(i, j int) bool {
		return next.ordered[i].ID < next.ordered[j].ID
	})

	r.mu.Lock()
	r.current.Store(next)
	r.mu.Unlock()
	return nil
}

// All returns every registered profile ordered by id.
func (r *Registry) All() []*schema.PlatformProfile {
	return r.current.Load().ordered
}

// Get returns the profile for an id, or ErrNotFound.
func (r *Registry) Get(id string) (*schema.PlatformProfile, error) {
	if p, ok := r.current.Load().byID[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	return len(r.current.Load().ordered)
}
