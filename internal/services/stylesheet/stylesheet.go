// Package stylesheet is the live rendering substrate: an in-process
// computed-style store holding per-element class sets and property maps.
// It implements the reader/writer capabilities the conversion core is
// designed against, and fans changes out over pubsub.
package stylesheet

import (
	"sort"
	"sync"

	"github.com/stylelights/stylelights-go/internal/fixture"
	"github.com/stylelights/stylelights-go/internal/services/pubsub"
)

// ClassApplier adds and removes CSS classes on a target element.
type ClassApplier interface {
	AddClass(target, class string)
	RemoveClass(target, class string)
}

// PropertyWriter sets CSS property values on a target element.
type PropertyWriter interface {
	SetProperty(target, name, value string)
	RemoveProperty(target, name string)
}

// Change describes one mutation, published on TopicStyleChanged.
type Change struct {
	Target   string `json:"target"`
	Class    string `json:"class,omitempty"`
	Property string `json:"property,omitempty"`
	Value    string `json:"value,omitempty"`
	Removed  bool   `json:"removed,omitempty"`
}

type element struct {
	classes map[string]bool
	props   map[string]string
}

// Store holds the computed style state. All methods are safe for concurrent
// use; within one goroutine a write is visible to an immediately following
// read, which is the ordering the sampler depends on.
type Store struct {
	mu       sync.RWMutex
	elements map[string]*element
	ps       *pubsub.PubSub
}

var (
	_ ClassApplier   = (*Store)(nil)
	_ PropertyWriter = (*Store)(nil)
)

// NewStore creates an empty store. The pubsub may be nil for tests.
func NewStore(ps *pubsub.PubSub) *Store {
	return &Store{
		elements: make(map[string]*element),
		ps:       ps,
	}
}

func (s *Store) element(target string) *element {
	el, ok := s.elements[target]
	if !ok {
		el = &element{classes: make(map[string]bool), props: make(map[string]string)}
		s.elements[target] = el
	}
	return el
}

func (s *Store) publish(c Change) {
	if s.ps != nil {
		s.ps.Publish(pubsub.TopicStyleChanged, c.Target, c)
	}
}

// AddClass adds a class to an element. Adding a present class is a no-op.
func (s *Store) AddClass(target, class string) {
	s.mu.Lock()
	el := s.element(target)
	changed := !el.classes[class]
	el.classes[class] = true
	s.mu.Unlock()

	if changed {
		s.publish(Change{Target: target, Class: class})
	}
}

// RemoveClass removes a class from an element.
func (s *Store) RemoveClass(target, class string) {
	s.mu.Lock()
	el, ok := s.elements[target]
	changed := ok && el.classes[class]
	if changed {
		delete(el.classes, class)
	}
	s.mu.Unlock()

	if changed {
		s.publish(Change{Target: target, Class: class, Removed: true})
	}
}

// HasClass reports whether an element currently has a class.
func (s *Store) HasClass(target, class string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	el, ok := s.elements[target]
	return ok && el.classes[class]
}

// Classes returns an element's classes, sorted.
func (s *Store) Classes(target string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.elements[target]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(el.classes))
	for c := range el.classes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// SetProperty sets a property value on an element.
func (s *Store) SetProperty(target, name, value string) {
	s.mu.Lock()
	el := s.element(target)
	changed := el.props[name] != value
	el.props[name] = value
	s.mu.Unlock()

	if changed {
		s.publish(Change{Target: target, Property: name, Value: value})
	}
}

// SetProperties sets a batch of properties on an element.
func (s *Store) SetProperties(target string, props map[string]string) {
	for name, value := range props {
		s.SetProperty(target, name, value)
	}
}

// RemoveProperty deletes a property from an element.
func (s *Store) RemoveProperty(target, name string) {
	s.mu.Lock()
	el, ok := s.elements[target]
	changed := false
	if ok {
		_, changed = el.props[name]
		delete(el.props, name)
	}
	s.mu.Unlock()

	if changed {
		s.publish(Change{Target: target, Property: name, Removed: true})
	}
}

// Property reads one property value from an element.
func (s *Store) Property(target, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.elements[target]
	if !ok {
		return "", false
	}
	v, ok := el.props[name]
	return v, ok
}

// Reader returns the computed-style reader for one element, in the shape
// the sampler consumes.
func (s *Store) Reader(target string) fixture.PropertyReader {
	return func(name string) (string, bool) {
		return s.Property(target, name)
	}
}

// Properties returns a copy of an element's property map.
func (s *Store) Properties(target string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.elements[target]
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(el.props))
	for name, value := range el.props {
		out[name] = value
	}
	return out
}

// Targets returns the ids of all elements with any state, sorted.
func (s *Store) Targets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.elements))
	for t := range s.elements {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Clear removes all state for an element (device deleted).
func (s *Store) Clear(target string) {
	s.mu.Lock()
	delete(s.elements, target)
	s.mu.Unlock()
}
