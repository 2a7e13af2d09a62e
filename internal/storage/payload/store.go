package payload

import (
	"slices"
	"time"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
)

// Store holds typed values and raw blobs under string keys.
// A Store is not safe for concurrent use.
type Store struct {
	values map[string]Value
	blobs  map[string][]byte
	log    logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger that receives decode warnings.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		values: make(map[string]Value),
		blobs:  make(map[string][]byte),
		log:    logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func checkKey(key string) error {
	if key == "" {
		return domain.ErrInvalidKey.WithDetails("empty key")
	}
	return nil
}

// Set stores v under key. v must be one of the supported kinds; integer
// and float widths are normalized.
func (s *Store) Set(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	val, err := ValueOf(v)
	if err != nil {
		return err
	}
	if err := val.validate(); err != nil {
		return err
	}
	s.values[key] = val
	return nil
}

func (s *Store) SetInt(key string, v int64) error { return s.Set(key, IntValue(v)) }
func (s *Store) SetFloat(key string, v float64) error { return s.Set(key, FloatValue(v)) }
func (s *Store) SetString(key string, v string) error { return s.Set(key, StringValue(v)) }
func (s *Store) SetBool(key string, v bool) error { return s.Set(key, BoolValue(v)) }
func (s *Store) SetTime(key string, v time.Time) error { return s.Set(key, TimeValue(v)) }
func (s *Store) SetStrings(key string, v []string) error { return s.Set(key, StringsValue(v)) }

// Get returns the value under key. It fails with ErrInvalidKey on an
// empty key and ErrNotFound when the key is absent.
func (s *Store) Get(key string) (Value, error) {
	if err := checkKey(key); err != nil {
		return Value{}, err
	}
	v, ok := s.values[key]
	if !ok {
		return Value{}, domain.ErrNotFound.WithDetailsf("payload key %q", key)
	}
	return v, nil
}

// Lookup returns the value under key and whether it exists.
func (s *Store) Lookup(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Int returns the integer under key. Any other kind reports absent.
func (s *Store) Int(key string) (int64, bool) {
	v, ok := s.values[key]
	if !ok || v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float returns the float under key, widening integers.
func (s *Store) Float(key string) (float64, bool) {
	v, ok := s.values[key]
	if !ok {
		return 0, false
	}
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (s *Store) String(key string) (string, bool) {
	v, ok := s.values[key]
	if !ok || v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (s *Store) Bool(key string) (bool, bool) {
	v, ok := s.values[key]
	if !ok || v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (s *Store) Time(key string) (time.Time, bool) {
	v, ok := s.values[key]
	if !ok || v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// Strings returns a copy of the string list under key.
func (s *Store) Strings(key string) ([]string, bool) {
	v, ok := s.values[key]
	if !ok || v.kind != KindStrings {
		return nil, false
	}
	return cloneStrings(v.list), true
}

// Bytes returns a copy of the byte value under key. Blobs live in a
// separate namespace; see Blob.
func (s *Store) Bytes(key string) ([]byte, bool) {
	v, ok := s.values[key]
	if !ok || v.kind != KindBytes {
		return nil, false
	}
	return cloneBytes(v.raw), true
}

func (s *Store) IntOr(key string, def int64) int64 {
	if v, ok := s.Int(key); ok {
		return v
	}
	return def
}

func (s *Store) FloatOr(key string, def float64) float64 {
	if v, ok := s.Float(key); ok {
		return v
	}
	return def
}

func (s *Store) StringOr(key, def string) string {
	if v, ok := s.String(key); ok {
		return v
	}
	return def
}

func (s *Store) BoolOr(key string, def bool) bool {
	if v, ok := s.Bool(key); ok {
		return v
	}
	return def
}

func (s *Store) TimeOr(key string, def time.Time) time.Time {
	if v, ok := s.Time(key); ok {
		return v
	}
	return def
}

// SetBlob stores a copy of p under key.
func (s *Store) SetBlob(key string, p []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if p == nil {
		return domain.ErrInvalidValue.WithDetails("nil blob")
	}
	s.blobs[key] = cloneBytes(p)
	return nil
}

// Blob returns a copy of the blob under key.
func (s *Store) Blob(key string) ([]byte, bool) {
	p, ok := s.blobs[key]
	if !ok {
		return nil, false
	}
	return cloneBytes(p), true
}

// Delete removes the value under key and reports whether it existed.
func (s *Store) Delete(key string) bool {
	_, ok := s.values[key]
	delete(s.values, key)
	return ok
}

// DeleteBlob removes the blob under key and reports whether it existed.
func (s *Store) DeleteBlob(key string) bool {
	_, ok := s.blobs[key]
	delete(s.blobs, key)
	return ok
}

// Clear empties both values and blobs.
func (s *Store) Clear() {
	clear(s.values)
	clear(s.blobs)
}

// Len returns the number of values.
func (s *Store) Len() int { return len(s.values) }

// BlobLen returns the number of blobs.
func (s *Store) BlobLen() int { return len(s.blobs) }

// Keys returns the value keys in sorted order.
func (s *Store) Keys() []string {
	return sortedKeys(s.values)
}

// BlobKeys returns the blob keys in sorted order.
func (s *Store) BlobKeys() []string {
	return sortedKeys(s.blobs)
}

// Clone returns a deep copy sharing the logger.
func (s *Store) Clone() *Store {
	c := New(WithLogger(s.log))
	for k, v := range s.values {
		c.values[k] = v
	}
	for k, p := range s.blobs {
		c.blobs[k] = cloneBytes(p)
	}
	return c
}

// ReplaceWith moves the contents of other into s. other must not be used
// afterwards.
func (s *Store) ReplaceWith(other *Store) {
	s.values = other.values
	s.blobs = other.blobs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
