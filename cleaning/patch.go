package cleaning

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// OPT - Tri-state patch field
// =============================================================================

type optState uint8

const (
	optAbsent optState = iota
	optNull
	optValue
)

// Opt is one field of a sparse patch: absent (leave untouched), explicitly
// null (clear, where the field allows it) or set to a value.
//
// Decoding JSON keeps the distinction: a missing key stays absent, a
// literal null becomes null.
type Opt[T any] struct {
	value T
	state optState
}

// Some returns an Opt holding v.
func Some[T any](v T) Opt[T] { return Opt[T]{value: v, state: optValue} }

// Null returns an explicitly cleared Opt.
func Null[T any]() Opt[T] { return Opt[T]{state: optNull} }

// Present reports whether the field was supplied at all (value or null).
func (o Opt[T]) Present() bool { return o.state != optAbsent }

// IsNull reports whether the field was explicitly cleared.
func (o Opt[T]) IsNull() bool { return o.state == optNull }

// Get returns the value and whether one was set.
func (o Opt[T]) Get() (T, bool) { return o.value, o.state == optValue }

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if o.state != optValue {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
