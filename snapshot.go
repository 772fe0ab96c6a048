package restfire

import (
	"strings"
	"sync"
)

// Snapshot is a local mirror of a listened location, built by applying its events.
type Snapshot struct {
	mut   sync.Mutex
	value any
}

// NewSnapshot ...
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Apply applies a ValueSet or ValueUpdated event, other event types are ignored.
func (s *Snapshot) Apply(ev StreamEvent) error {
	if ev.Type != EventValueSet && ev.Type != EventValueUpdated {
		return nil
	}

	value, err := ev.Value()
	if err != nil {
		return err
	}
	segments := splitEventPath(ev.Path)

	s.mut.Lock()
	defer s.mut.Unlock()

	if ev.Type == EventValueSet {
		s.value = setAtPath(s.value, segments, value)
		return nil
	}

	updates, ok := value.(map[string]any)
	if !ok {
		return newError(ErrDeserialization, "", 0, ev.Data, nil)
	}
	for key, child := range updates {
		s.value = setAtPath(s.value, append(segments[:len(segments):len(segments)], splitEventPath(key)...), child)
	}
	return nil
}

// Value returns a deep copy of the whole mirrored value, nil when empty.
func (s *Snapshot) Value() any {
	s.mut.Lock()
	defer s.mut.Unlock()
	return deepCopyValue(s.value)
}

// Get returns a deep copy of the value at a path relative to the mirrored location.
func (s *Snapshot) Get(path string) (any, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()

	current := s.value
	for _, segment := range splitEventPath(path) {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = object[segment]
		if !ok {
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return deepCopyValue(current), true
}

func splitEventPath(path string) []string {
	cleaned := cleanPath(path)
	if len(cleaned) == 0 {
		return nil
	}
	return strings.Split(cleaned, pathSeparator)
}

// setAtPath returns node with value stored at segments. A nil value removes the
// entry and the parents it leaves empty.
func setAtPath(node any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}

	object, ok := node.(map[string]any)
	if !ok {
		if value == nil {
			return node
		}
		object = map[string]any{}
	}

	key := segments[0]
	child := setAtPath(object[key], segments[1:], value)
	if child == nil {
		delete(object, key)
	} else {
		object[key] = child
	}

	if len(object) == 0 {
		return nil
	}
	return object
}
