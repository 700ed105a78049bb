package animation

import "sync"

// Store is the in-memory animation collection, keyed by unique name. The
// authoring API mutates it and the dispatcher reads it; persistence is
// handled by the repositories layer.
type Store struct {
	mu         sync.RWMutex
	animations map[string]*Animation
	order      []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{animations: make(map[string]*Animation)}
}

// Put adds or replaces an animation by name.
func (s *Store) Put(a *Animation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.animations[a.Name]; !exists {
		s.order = append(s.order, a.Name)
	}
	s.animations[a.Name] = a
}

// Get returns an animation by name, or nil for an unknown name.
func (s *Store) Get(name string) *Animation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.animations[name]
}

// Remove deletes an animation by name. Unknown names are a no-op.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.animations[name]; !exists {
		return
	}
	delete(s.animations, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// All returns the animations in insertion order.
func (s *Store) All() []*Animation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Animation, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.animations[name])
	}
	return out
}
