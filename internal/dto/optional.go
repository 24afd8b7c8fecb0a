package dto

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a value that was never set from one that was set,
// possibly to null or to an empty collection. Response fields tagged
// `omitzero` disappear from the JSON while absent; request fields report
// whether the client sent the key at all.
type Optional[T any] struct {
	value   T
	present bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// IsZero reports absence. encoding/json consults it for `omitzero`.
func (o Optional[T]) IsZero() bool {
	return !o.present
}

// Present reports whether the value was set.
func (o Optional[T]) Present() bool {
	return o.present
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// OrElse returns the value, or def when absent.
func (o Optional[T]) OrElse(def T) T {
	if !o.present {
		return def
	}
	return o.value
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON marks the field present even for an explicit null, which
// leaves the zero value (nil for pointers).
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.value = zero
		return nil
	}
	return json.Unmarshal(data, &o.value)
}
