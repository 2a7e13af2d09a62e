package payload

import (
	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/pkg/binio"
)

// Version is the only payload stream version this package reads or writes.
const Version int32 = 1

// MarshalBinary encodes the store.
func (s *Store) MarshalBinary() ([]byte, error) {
	w := binio.NewWriter()
	w.WriteInt32(Version)

	keys := s.Keys()
	w.WriteInt32(int32(len(keys)))
	for _, k := range keys {
		v := s.values[k]
		data, err := v.marshalJSON()
		if err != nil {
			return nil, domain.ErrInvalidValue.WithDetailsf("payload key %q", k).Wrap(err)
		}
		w.WriteString(k)
		w.WriteString(string(data))
		w.WriteString(v.kind.TypeName())
	}

	blobKeys := s.BlobKeys()
	w.WriteInt32(int32(len(blobKeys)))
	for _, k := range blobKeys {
		w.WriteString(k)
		w.WriteBytes(s.blobs[k])
	}

	if err := w.Err(); err != nil {
		return nil, domain.ErrInvalidValue.WithDetails("payload").Wrap(err)
	}
	return w.Bytes(), nil
}

// UnmarshalBinary replaces the store's contents with the decoded stream.
// On any error the store is left unchanged. Entries with an unknown type
// name are dropped with a warning.
func (s *Store) UnmarshalBinary(data []byte) error {
	r := binio.NewReader(data)

	version := r.ReadInt32()
	if err := r.Err(); err != nil {
		return domain.ErrCorrupted.WithDetails("payload header").Wrap(err)
	}
	if version != Version {
		return domain.ErrVersionMismatch.WithDetailsf("payload version %d, want %d", version, Version)
	}

	count := r.ReadInt32()
	if count < 0 {
		return domain.ErrCorrupted.WithDetailsf("negative entry count %d", count)
	}
	values := make(map[string]Value, min(int(count), r.Remaining()))
	for i := int32(0); i < count; i++ {
		key := r.ReadString()
		raw := r.ReadString()
		typeName := r.ReadString()
		if err := r.Err(); err != nil {
			return domain.ErrCorrupted.WithDetailsf("payload entry %d", i).Wrap(err)
		}
		if key == "" {
			return domain.ErrCorrupted.WithDetailsf("payload entry %d has empty key", i)
		}
		if _, dup := values[key]; dup {
			return domain.ErrCorrupted.WithDetailsf("duplicate payload key %q", key)
		}

		kind, ok := kindForTypeName(typeName)
		if !ok {
			s.log.Warn("dropping payload entry with unknown type", "entry", key, "type", typeName)
			continue
		}
		v, err := decodeValue(kind, raw)
		if err != nil {
			return domain.ErrCorrupted.WithDetailsf("payload key %q", key).Wrap(err)
		}
		values[key] = v
	}

	blobCount := r.ReadInt32()
	if blobCount < 0 {
		return domain.ErrCorrupted.WithDetailsf("negative blob count %d", blobCount)
	}
	blobs := make(map[string][]byte, min(int(blobCount), r.Remaining()))
	for i := int32(0); i < blobCount; i++ {
		key := r.ReadString()
		p := r.ReadBytes()
		if err := r.Err(); err != nil {
			return domain.ErrCorrupted.WithDetailsf("payload blob %d", i).Wrap(err)
		}
		if key == "" {
			return domain.ErrCorrupted.WithDetailsf("payload blob %d has empty key", i)
		}
		if _, dup := blobs[key]; dup {
			return domain.ErrCorrupted.WithDetailsf("duplicate blob key %q", key)
		}
		blobs[key] = p
	}

	if err := r.Err(); err != nil {
		return domain.ErrCorrupted.WithDetails("payload").Wrap(err)
	}
	if n := r.Remaining(); n != 0 {
		return domain.ErrCorrupted.WithDetailsf("%d trailing bytes", n)
	}

	s.values = values
	s.blobs = blobs
	return nil
}
