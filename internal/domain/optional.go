package domain

import "encoding/json"

// Optional carries a nullable field of a partial update. Set distinguishes a
// field that was provided (possibly as null) from one that was omitted.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a provided, non-null value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a provided value that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// IsZero lets encoding/json omit unset fields via omitzero.
func (o Optional[T]) IsZero() bool {
	return !o.Set
}

// UnmarshalJSON is only invoked when the key is present, including for null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MarshalJSON writes the value or null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
