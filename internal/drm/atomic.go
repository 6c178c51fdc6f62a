package drm

import "sort"

// StagedProperty is one pending property write.
type StagedProperty struct {
	Object uint32
	Name   string
	Value  uint64
}

// AtomicRequest accumulates property writes for the next atomic commit.
// Writes to the same object property replace each other. Committing is the
// caller's business; the request only records what was staged.
type AtomicRequest struct {
	props  map[uint32]map[string]uint64
	order  []StagedProperty
	active bool
}

// NewAtomicRequest returns an empty request.
func NewAtomicRequest() *AtomicRequest {
	return &AtomicRequest{props: make(map[uint32]map[string]uint64)}
}

// StageProperty records a write of value to the named property of obj.
func (r *AtomicRequest) StageProperty(obj Object, name string, value uint64) {
	id := obj.ID()
	m, ok := r.props[id]
	if !ok {
		m = make(map[string]uint64)
		r.props[id] = m
	}
	m[name] = value
	r.order = append(r.order, StagedProperty{Object: id, Name: name, Value: value})
}

// MarkActive forces the next commit to apply even without plane changes.
func (r *AtomicRequest) MarkActive() {
	r.active = true
}

// Active reports whether MarkActive was called since the last Reset.
func (r *AtomicRequest) Active() bool {
	return r.active
}

// Value returns the last staged value of an object property.
func (r *AtomicRequest) Value(obj uint32, name string) (uint64, bool) {
	v, ok := r.props[obj][name]
	return v, ok
}

// Log returns every write in staging order, including overwritten ones.
func (r *AtomicRequest) Log() []StagedProperty {
	return r.order
}

// Pending returns the effective writes sorted by object and name.
func (r *AtomicRequest) Pending() []StagedProperty {
	out := make([]StagedProperty, 0, len(r.order))
	for id, m := range r.props {
		for name, v := range m {
			out = append(out, StagedProperty{Object: id, Name: name, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Object != out[j].Object {
			return out[i].Object < out[j].Object
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Reset clears the request after a commit.
func (r *AtomicRequest) Reset() {
	r.props = make(map[uint32]map[string]uint64)
	r.order = nil
	r.active = false
}
