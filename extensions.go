// SPDX-License-Identifier: GPL-3.0-or-later

package weft

import "reflect"

// Extensions is a type-indexed bag of facts attached to a [Context].
//
// Each distinct Go type has at most one live value in the bag. Middleware
// uses the bag to communicate derived facts (parsed request metadata,
// resolved authentication identity, negotiated protocol) to downstream and
// upstream stages within one logical call, separately from the response.
//
// Use the package-level [Get] and [Insert] functions to access the bag:
// Go methods cannot take type parameters, so the typed accessors live at
// package level.
//
// The zero value is an empty bag ready for use. An Extensions value must
// not be shared across goroutines without external synchronization; the
// isolation model is that each concurrent holder works on its own clone.
type Extensions struct {
	values map[reflect.Type]any
}

// NewExtensions returns an empty [Extensions] bag.
func NewExtensions() Extensions {
	return Extensions{}
}

// Get returns the value of type T stored in the bag, if any.
func Get[T any](ext *Extensions) (T, bool) {
	value, found := ext.values[reflect.TypeFor[T]()]
	if !found {
		var zero T
		return zero, false
	}
	return value.(T), true
}

// Insert stores value in the bag, replacing any previous value of the
// same type. It returns the previous value and whether one was present.
func Insert[T any](ext *Extensions, value T) (T, bool) {
	key := reflect.TypeFor[T]()
	prev, hadPrev := ext.values[key]
	if ext.values == nil {
		ext.values = make(map[reflect.Type]any)
	}
	ext.values[key] = value
	if !hadPrev {
		var zero T
		return zero, false
	}
	return prev.(T), true
}

// Extend merges other into ext, overwriting on type collisions. The other
// bag should not be used afterwards: values are moved, not copied.
func (ext *Extensions) Extend(other Extensions) {
	if len(other.values) <= 0 {
		return
	}
	if ext.values == nil {
		ext.values = make(map[reflect.Type]any, len(other.values))
	}
	for key, value := range other.values {
		ext.values[key] = value
	}
}

// Clone returns a copy of the bag. Values are copied by assignment, so
// values of pointer type still refer to the same underlying data.
func (ext *Extensions) Clone() Extensions {
	if len(ext.values) <= 0 {
		return Extensions{}
	}
	values := make(map[reflect.Type]any, len(ext.values))
	for key, value := range ext.values {
		values[key] = value
	}
	return Extensions{values: values}
}

// Len returns the number of facts currently in the bag.
func (ext *Extensions) Len() int {
	return len(ext.values)
}
