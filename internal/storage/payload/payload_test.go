package payload

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/yndnr/savekeep-go/internal/core/domain"
	"github.com/yndnr/savekeep-go/internal/telemetry/logger"
	"github.com/yndnr/savekeep-go/pkg/binio"
)

func newStore() *Store {
	return New(WithLogger(logger.NewNop()))
}

func populated(t *testing.T) *Store {
	t.Helper()
	s := newStore()
	at := time.Date(2024, 3, 4, 5, 6, 7, 890, time.UTC)

	sets := []struct {
		key string
		v   any
	}{
		{"PlayerLevel", 5},
		{"Gold", int64(-12345678901)},
		{"Speed", 1.25},
		{"Ratio", float32(0.5)},
		{"Name", "Alice"},
		{"Tutorial", true},
		{"Seed", []byte{0, 1, 2, 255}},
		{"LastSeen", at},
		{"Inventory", []string{"sword", "shield"}},
		{"EmptyList", []string{}},
	}
	for _, s2 := range sets {
		if err := s.Set(s2.key, s2.v); err != nil {
			t.Fatalf("Set(%q) error = %v", s2.key, err)
		}
	}
	if err := s.SetBlob("Screenshot", []byte("png-bytes")); err != nil {
		t.Fatalf("SetBlob() error = %v", err)
	}
	if err := s.SetBlob("Empty", []byte{}); err != nil {
		t.Fatalf("SetBlob() error = %v", err)
	}
	return s
}

func TestStore_RoundTripEveryKind(t *testing.T) {
	in := populated(t)

	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}

	out := newStore()
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}

	if got, want := out.Keys(), in.Keys(); !equalStrings(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for _, k := range in.Keys() {
		a, _ := in.Lookup(k)
		b, _ := out.Lookup(k)
		if !a.Equal(b) {
			t.Errorf("key %q: got %v (%s), want %v (%s)", k, b, b.Kind(), a, a.Kind())
		}
	}
	if got, want := out.BlobKeys(), in.BlobKeys(); !equalStrings(got, want) {
		t.Fatalf("BlobKeys() = %v, want %v", got, want)
	}
	for _, k := range in.BlobKeys() {
		a, _ := in.Blob(k)
		b, ok := out.Blob(k)
		if !ok || !bytes.Equal(a, b) {
			t.Errorf("blob %q = %v, want %v", k, b, a)
		}
	}
}

func TestStore_RoundTripTextAndTimeBounds(t *testing.T) {
	in := newStore()
	if err := in.SetString("name", "Ælfrida 勇者 🗡"); err != nil {
		t.Fatalf("SetString() error = %v", err)
	}
	if err := in.SetStrings("list", []string{"ok", "é", ""}); err != nil {
		t.Fatalf("SetStrings() error = %v", err)
	}
	if err := in.SetTime("first", time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SetTime(year 0) error = %v", err)
	}
	if err := in.SetTime("last", time.Date(9999, 12, 31, 23, 59, 59, 999, time.UTC)); err != nil {
		t.Fatalf("SetTime(year 9999) error = %v", err)
	}
	if err := in.SetString("bad", "\xff\xfeabc"); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("SetString(invalid utf8) error = %v, want ErrInvalidValue", err)
	}

	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	out := newStore()
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if out.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", out.Len())
	}
	for _, k := range in.Keys() {
		a, _ := in.Lookup(k)
		b, _ := out.Lookup(k)
		if !a.Equal(b) {
			t.Errorf("key %q: got %q, want %q", k, b, a)
		}
	}
}

func TestStore_RoundTripEmpty(t *testing.T) {
	data, err := newStore().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if len(data) != 12 {
		t.Errorf("empty payload = %d bytes, want 12", len(data))
	}

	out := populated(t)
	if err := out.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if out.Len() != 0 || out.BlobLen() != 0 {
		t.Errorf("store not replaced: %d values, %d blobs", out.Len(), out.BlobLen())
	}
}

func TestStore_MarshalIsDeterministic(t *testing.T) {
	a, err := populated(t).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	b, err := populated(t).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("equal stores encoded to different bytes")
	}
}

func TestStore_VersionMismatch(t *testing.T) {
	good, err := populated(t).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		version int32
		tail    []byte
	}{
		{"zero no tail", 0, nil},
		{"two valid tail", 2, good[4:]},
		{"negative garbage tail", -1, []byte{0xde, 0xad}},
		{"large", math.MaxInt32, good},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := binio.NewWriter()
			w.WriteInt32(tt.version)
			w.WriteRaw(tt.tail)

			s := populated(t)
			before := s.Len()
			err := s.UnmarshalBinary(w.Bytes())
			if !errors.Is(err, domain.ErrVersionMismatch) {
				t.Fatalf("UnmarshalBinary() error = %v, want ErrVersionMismatch", err)
			}
			if s.Len() != before {
				t.Error("store modified after version mismatch")
			}
		})
	}
}

func TestStore_UnmarshalTruncated(t *testing.T) {
	data, err := populated(t).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range []int{0, 2, 5, 9, len(data) / 3, len(data) - 1} {
		s := newStore()
		_ = s.SetInt("Keep", 1)

		err := s.UnmarshalBinary(data[:n])
		if !errors.Is(err, domain.ErrCorrupted) {
			t.Errorf("UnmarshalBinary(%d bytes) error = %v, want ErrCorrupted", n, err)
		}
		if v, ok := s.Int("Keep"); !ok || v != 1 {
			t.Errorf("store modified after failed decode at %d bytes", n)
		}
	}
}

func TestStore_UnmarshalTrailingBytes(t *testing.T) {
	data, err := populated(t).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	err = newStore().UnmarshalBinary(append(data, 0))
	if !errors.Is(err, domain.ErrCorrupted) {
		t.Errorf("UnmarshalBinary() error = %v, want ErrCorrupted", err)
	}
}

func TestStore_UnknownTypeIsDropped(t *testing.T) {
	w := binio.NewWriter()
	w.WriteInt32(Version)
	w.WriteInt32(3)
	w.WriteString("Level")
	w.WriteString("7")
	w.WriteString("int64")
	w.WriteString("Vector")
	w.WriteString(`{"x":1,"y":2}`)
	w.WriteString("UnityEngine.Vector2")
	w.WriteString("Legacy")
	w.WriteString("3")
	w.WriteString("System.Int32")
	w.WriteInt32(0)

	s := newStore()
	if err := s.UnmarshalBinary(w.Bytes()); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	if _, ok := s.Lookup("Vector"); ok {
		t.Error("entry with unknown type should be absent")
	}
	if v, ok := s.Int("Level"); !ok || v != 7 {
		t.Errorf("Int(Level) = %d, %v", v, ok)
	}
	if v, ok := s.Int("Legacy"); !ok || v != 3 {
		t.Errorf("Int(Legacy) = %d, %v", v, ok)
	}
}

func TestStore_EmptyKey(t *testing.T) {
	s := newStore()

	checks := map[string]error{
		"Set":     s.Set("", 1),
		"SetInt":  s.SetInt("", 1),
		"SetBlob": s.SetBlob("", []byte{1}),
	}
	_, getErr := s.Get("")
	checks["Get"] = getErr

	for name, err := range checks {
		if !errors.Is(err, domain.ErrInvalidKey) {
			t.Errorf("%s(\"\") error = %v, want ErrInvalidKey", name, err)
		}
	}
}

func TestStore_SetRejects(t *testing.T) {
	s := newStore()

	tests := []struct {
		name string
		v    any
		want error
	}{
		{"nil", nil, domain.ErrInvalidValue},
		{"struct", struct{ X int }{1}, domain.ErrUnsupportedKind},
		{"map", map[string]int{}, domain.ErrUnsupportedKind},
		{"nan", math.NaN(), domain.ErrInvalidValue},
		{"inf", math.Inf(1), domain.ErrInvalidValue},
		{"uint64 overflow", uint64(math.MaxUint64), domain.ErrInvalidValue},
		{"nil bytes", []byte(nil), domain.ErrInvalidValue},
		{"invalid utf8 string", "\xff\xfeabc", domain.ErrInvalidValue},
		{"invalid utf8 in strings", []string{"ok", "\xc3"}, domain.ErrInvalidValue},
		{"time after year 9999", time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), domain.ErrInvalidValue},
		{"time before year 0", time.Date(-1, 12, 31, 0, 0, 0, 0, time.UTC), domain.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Set("k", tt.v); !errors.Is(err, tt.want) {
				t.Errorf("Set() error = %v, want %v", err, tt.want)
			}
			if s.Len() != 0 {
				t.Error("rejected value was stored")
			}
		})
	}

	if err := s.SetBlob("b", nil); !errors.Is(err, domain.ErrInvalidValue) {
		t.Errorf("SetBlob(nil) error = %v, want ErrInvalidValue", err)
	}
}

func TestStore_Accessors(t *testing.T) {
	s := populated(t)

	if v, ok := s.Int("PlayerLevel"); !ok || v != 5 {
		t.Errorf("Int(PlayerLevel) = %d, %v", v, ok)
	}
	if v, ok := s.Float("PlayerLevel"); !ok || v != 5 {
		t.Errorf("Float(PlayerLevel) = %v, %v; int should widen", v, ok)
	}
	if _, ok := s.Int("Speed"); ok {
		t.Error("Int(Speed) should report absent for a float")
	}
	if _, ok := s.String("PlayerLevel"); ok {
		t.Error("String(PlayerLevel) should report absent for an int")
	}
	if v, ok := s.Float("Ratio"); !ok || v != 0.5 {
		t.Errorf("Float(Ratio) = %v, %v", v, ok)
	}
	if v, ok := s.Bool("Tutorial"); !ok || !v {
		t.Errorf("Bool(Tutorial) = %v, %v", v, ok)
	}
	if v, ok := s.Strings("Inventory"); !ok || !equalStrings(v, []string{"sword", "shield"}) {
		t.Errorf("Strings(Inventory) = %v, %v", v, ok)
	}
	if v, ok := s.Bytes("Seed"); !ok || !bytes.Equal(v, []byte{0, 1, 2, 255}) {
		t.Errorf("Bytes(Seed) = %v, %v", v, ok)
	}

	if got := s.IntOr("Missing", 9); got != 9 {
		t.Errorf("IntOr() = %d, want 9", got)
	}
	if got := s.StringOr("PlayerLevel", "fallback"); got != "fallback" {
		t.Errorf("StringOr() on kind mismatch = %q, want fallback", got)
	}
	if got := s.FloatOr("PlayerLevel", 0); got != 5 {
		t.Errorf("FloatOr() = %v, want 5", got)
	}
	if got := s.BoolOr("Missing", true); !got {
		t.Error("BoolOr() should return the default")
	}

	if _, err := s.Get("Missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get(Missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_CopySemantics(t *testing.T) {
	s := newStore()
	src := []byte{1, 2, 3}
	if err := s.SetBlob("b", src); err != nil {
		t.Fatal(err)
	}
	src[0] = 9

	got, _ := s.Blob("b")
	if got[0] != 1 {
		t.Error("SetBlob should copy its input")
	}
	got[1] = 9
	again, _ := s.Blob("b")
	if again[1] != 2 {
		t.Error("Blob should return a copy")
	}

	c := s.Clone()
	_ = c.SetBlob("b", []byte{7})
	if v, _ := s.Blob("b"); v[0] != 1 {
		t.Error("Clone shares blobs with the original")
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := populated(t)

	if !s.Delete("Name") || s.Delete("Name") {
		t.Error("Delete should report existence once")
	}
	if !s.DeleteBlob("Screenshot") {
		t.Error("DeleteBlob should report an existing blob")
	}

	s.Clear()
	if s.Len() != 0 || s.BlobLen() != 0 {
		t.Errorf("Clear left %d values, %d blobs", s.Len(), s.BlobLen())
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		kind    string
		text    string
		want    Value
		wantErr bool
	}{
		{"int", "42", IntValue(42), false},
		{"INT", "x", Value{}, true},
		{"float", "2.5", FloatValue(2.5), false},
		{"bool", "true", BoolValue(true), false},
		{"string", "hello", StringValue("hello"), false},
		{"strings", "a,b", StringsValue([]string{"a", "b"}), false},
		{"time", "2024-01-02T03:04:05Z", TimeValue(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), false},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.text, func(t *testing.T) {
			k, err := ParseKind(tt.kind)
			if err != nil {
				t.Fatalf("ParseKind() error = %v", err)
			}
			got, err := ParseValue(k, tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseValue() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ParseKind("vector"); !errors.Is(err, domain.ErrUnsupportedKind) {
		t.Errorf("ParseKind(vector) error = %v, want ErrUnsupportedKind", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
