// SPDX-License-Identifier: Apache-2.0
package adapter

import (
	"sort"
	"sync"
)

// Registry holds adapted skills keyed by id for the life of the bridge.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*AdaptedSkill
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]*AdaptedSkill)}
}

// Register stores the skill. Registering an id again replaces the entry.
func (r *Registry) Register(s *AdaptedSkill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[s.ID] = s
}

// Get returns the skill registered under id.
func (r *Registry) Get(id string) (*AdaptedSkill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[id]
	return s, ok
}

// GetByName returns the skill whose source name matches, trying both the
// bare name and the prefixed id.
func (r *Registry) GetByName(name string) (*AdaptedSkill, bool) {
	if s, ok := r.Get(name); ok {
		return s, true
	}
	return r.Get(IDPrefix + name)
}

// List returns all registered skills ordered by id.
func (r *Registry) List() []*AdaptedSkill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*AdaptedSkill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove drops a skill. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.skills, id)
}

// Len reports the number of registered skills.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}
