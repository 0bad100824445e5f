package store

import "encoding/json"

// Codec encodes typed values to the opaque bytes a store holds.
type Codec[T any] interface {
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
}

// jsonCodec is the default codec.
type jsonCodec[T any] struct{}

func (jsonCodec[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec[T]) Decode(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// JSON returns a Codec backed by encoding/json.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

// ReadTyped reads and decodes key from the process-wide store. A decode
// failure returns a *DecodeError; it is fatal to this read, not retried.
func ReadTyped[T any](key string, c Codec[T]) (T, bool, error) {
	var zero T
	data, ok, err := Read(key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := c.Decode(data)
	if err != nil {
		return zero, false, &DecodeError{Key: key, Err: err}
	}
	return v, true, nil
}

// WriteTyped encodes and writes v under key in the process-wide store.
func WriteTyped[T any](key string, v T, c Codec[T]) error {
	data, err := c.Encode(v)
	if err != nil {
		return err
	}
	return Write(key, data)
}

// InitTyped writes the encoded default only if key holds no value. A
// reactive body may call it on every evaluation pass without clobbering
// state the user already changed.
func InitTyped[T any](key string, def T, c Codec[T]) error {
	s, err := active()
	if err != nil {
		return err
	}
	data, err := c.Encode(def)
	if err != nil {
		return err
	}
	_, err = s.writeIfAbsent(key, data)
	return err
}

// ReadTypedFrom is ReadTyped against an explicit store.
func ReadTypedFrom[T any](s *Store, key string, c Codec[T]) (T, bool, error) {
	var zero T
	data, ok, err := s.Read(key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := c.Decode(data)
	if err != nil {
		return zero, false, &DecodeError{Key: key, Err: err}
	}
	return v, true, nil
}

// WriteTypedTo is WriteTyped against an explicit store.
func WriteTypedTo[T any](s *Store, key string, v T, c Codec[T]) error {
	data, err := c.Encode(v)
	if err != nil {
		return err
	}
	return s.Write(key, data)
}

// InitTypedIn is InitTyped against an explicit store.
func InitTypedIn[T any](s *Store, key string, def T, c Codec[T]) error {
	data, err := c.Encode(def)
	if err != nil {
		return err
	}
	_, err = s.writeIfAbsent(key, data)
	return err
}
