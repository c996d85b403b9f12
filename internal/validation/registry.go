package validation

import (
	"time"
)

// Entity names a validated record type.
type Entity string

const (
	EntityUser    Entity = "user"
	EntityProject Entity = "project"
	EntityTask    Entity = "task"
	EntityTag     Entity = "tag"
)

// Fields is a candidate set of field values keyed by field name.
type Fields map[string]any

// Input is what a validator sees for a single field.
type Input struct {
	Field string
	Value any
	Now   time.Time

	changed Fields
	current Fields
}

// Sibling returns another field of the same record, preferring the value
// being written over the stored one.
func (in Input) Sibling(field string) (any, bool) {
	if v, ok := in.changed[field]; ok {
		return v, true
	}
	v, ok := in.current[field]
	return v, ok
}

// Func validates one field and returns a *Error on violation.
type Func func(in Input) error

// Key identifies the validators of one field.
type Key struct {
	Entity Entity
	Field  string
}

// Registry holds named validators keyed by entity and field.
type Registry struct {
	rules map[Key][]Func
	order map[Entity][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[Key][]Func),
		order: make(map[Entity][]string),
	}
}

// Register appends validators for a field. Fields are checked in the
// order they were first registered.
func (r *Registry) Register(entity Entity, field string, fns ...Func) {
	key := Key{Entity: entity, Field: field}
	if _, ok := r.rules[key]; !ok {
		r.order[entity] = append(r.order[entity], field)
	}
	r.rules[key] = append(r.rules[key], fns...)
}

// ValidateField runs the validators of a single field and stops at the
// first failure.
func (r *Registry) ValidateField(entity Entity, field string, value any, now time.Time) error {
	in := Input{Field: field, Value: value, Now: now, changed: Fields{field: value}}
	return r.run(entity, in)
}

// Validate checks only the fields present in changed. Cross-field rules
// fall back to current for siblings that are not being changed.
func (r *Registry) Validate(entity Entity, changed, current Fields, now time.Time) error {
	for _, field := range r.order[entity] {
		value, ok := changed[field]
		if !ok {
			continue
		}
		in := Input{Field: field, Value: value, Now: now, changed: changed, current: current}
		if err := r.run(entity, in); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) run(entity Entity, in Input) error {
	for _, fn := range r.rules[Key{Entity: entity, Field: in.Field}] {
		if err := fn(in); err != nil {
			return err
		}
	}
	return nil
}
