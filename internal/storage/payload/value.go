package payload

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yndnr/savekeep-go/internal/core/domain"
)

// Kind enumerates the value types a store accepts.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindBytes
	KindTime
	KindStrings
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindBool:    "bool",
	KindBytes:   "bytes",
	KindTime:    "time",
	KindStrings: "strings",
}

// Wire type names. Each kind writes its canonical name; the legacy
// aliases are accepted on read.
var (
	typeNames = [...]string{
		KindInt:     "int64",
		KindFloat:   "float64",
		KindString:  "string",
		KindBool:    "bool",
		KindBytes:   "[]byte",
		KindTime:    "time.Time",
		KindStrings: "[]string",
	}

	typeAliases = map[string]Kind{
		"System.Int16":    KindInt,
		"System.Int32":    KindInt,
		"System.Int64":    KindInt,
		"System.UInt16":   KindInt,
		"System.UInt32":   KindInt,
		"System.Byte":     KindInt,
		"System.Single":   KindFloat,
		"System.Double":   KindFloat,
		"System.String":   KindString,
		"System.Boolean":  KindBool,
		"System.Byte[]":   KindBytes,
		"System.DateTime": KindTime,
		"System.String[]": KindStrings,
	}
)

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// TypeName returns the name written to the wire for k.
func (k Kind) TypeName() string {
	if k == KindInvalid || int(k) >= len(typeNames) {
		return ""
	}
	return typeNames[k]
}

// ParseKind resolves a kind name ("int", "float", ...) as used on the
// command line.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if k != int(KindInvalid) && strings.EqualFold(s, name) {
			return Kind(k), nil
		}
	}
	return KindInvalid, domain.ErrUnsupportedKind.WithDetailsf("kind %q", s)
}

func kindForTypeName(name string) (Kind, bool) {
	for k, n := range typeNames {
		if n != "" && n == name {
			return Kind(k), true
		}
	}
	k, ok := typeAliases[name]
	return k, ok
}

// Value is an immutable tagged value of one Kind.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	raw  []byte
	t    time.Time
	list []string
}

func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }
func TimeValue(v time.Time) Value { return Value{kind: KindTime, t: v} }
func BytesValue(v []byte) Value { return Value{kind: KindBytes, raw: cloneBytes(v)} }
func StringsValue(v []string) Value { return Value{kind: KindStrings, list: cloneStrings(v)} }

// FloatValue returns a float value. NaN and infinities cannot be
// encoded and are rejected when the value is stored.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// ValueOf normalizes a Go value into a Value. All integer widths become
// KindInt and both float widths become KindFloat.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{}, domain.ErrInvalidValue.WithDetails("nil value")
	case Value:
		if x.kind == KindInvalid {
			return Value{}, domain.ErrInvalidValue.WithDetails("zero Value")
		}
		return x, nil
	case int:
		return IntValue(int64(x)), nil
	case int8:
		return IntValue(int64(x)), nil
	case int16:
		return IntValue(int64(x)), nil
	case int32:
		return IntValue(int64(x)), nil
	case int64:
		return IntValue(x), nil
	case uint8:
		return IntValue(int64(x)), nil
	case uint16:
		return IntValue(int64(x)), nil
	case uint32:
		return IntValue(int64(x)), nil
	case uint:
		return uintValue(uint64(x))
	case uint64:
		return uintValue(x)
	case float32:
		return FloatValue(float64(x)), nil
	case float64:
		return FloatValue(x), nil
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case []byte:
		if x == nil {
			return Value{}, domain.ErrInvalidValue.WithDetails("nil byte slice")
		}
		return BytesValue(x), nil
	case time.Time:
		return TimeValue(x), nil
	case []string:
		return StringsValue(x), nil
	default:
		return Value{}, domain.ErrUnsupportedKind.WithDetailsf("type %T", v)
	}
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, domain.ErrInvalidValue.WithDetailsf("%d overflows int64", u)
	}
	return IntValue(int64(u)), nil
}

// ParseValue parses text into a value of the given kind. Strings lists
// are comma separated and times use RFC 3339.
func ParseValue(kind Kind, text string) (Value, error) {
	switch kind {
	case KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, domain.ErrInvalidValue.WithDetailsf("int %q", text).Wrap(err)
		}
		return IntValue(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, domain.ErrInvalidValue.WithDetailsf("float %q", text).Wrap(err)
		}
		return FloatValue(f), nil
	case KindString:
		return StringValue(text), nil
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, domain.ErrInvalidValue.WithDetailsf("bool %q", text).Wrap(err)
		}
		return BoolValue(b), nil
	case KindTime:
		t, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return Value{}, domain.ErrInvalidValue.WithDetailsf("time %q", text).Wrap(err)
		}
		return TimeValue(t), nil
	case KindStrings:
		if text == "" {
			return StringsValue([]string{}), nil
		}
		return StringsValue(strings.Split(text, ",")), nil
	case KindBytes:
		return BytesValue([]byte(text)), nil
	default:
		return Value{}, domain.ErrUnsupportedKind.WithDetailsf("kind %s", kind)
	}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Any returns the value as its Go type.
func (v Value) Any() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindBytes:
		return cloneBytes(v.raw)
	case KindTime:
		return v.t
	case KindStrings:
		return cloneStrings(v.list)
	}
	return nil
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindBytes:
		return fmt.Sprintf("<%d bytes>", len(v.raw))
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindStrings:
		return strings.Join(v.list, ",")
	}
	return "<invalid>"
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindBytes:
		return string(v.raw) == string(o.raw)
	case KindTime:
		return v.t.Equal(o.t)
	case KindStrings:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return true
}

func (v Value) validate() error {
	if v.kind == KindFloat && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return domain.ErrInvalidValue.WithDetailsf("float %v cannot be encoded", v.f)
	}
	if v.kind == KindInvalid {
		return domain.ErrInvalidValue.WithDetails("zero Value")
	}
	switch v.kind {
	case KindString:
		if !utf8.ValidString(v.s) {
			return domain.ErrInvalidValue.WithDetails("string is not valid UTF-8")
		}
	case KindStrings:
		for i, s := range v.list {
			if !utf8.ValidString(s) {
				return domain.ErrInvalidValue.WithDetailsf("strings[%d] is not valid UTF-8", i)
			}
		}
	case KindTime:
		// JSON time text only covers four-digit years.
		if y := v.t.Year(); y < 0 || y > 9999 {
			return domain.ErrInvalidValue.WithDetailsf("time year %d outside [0,9999]", y)
		}
	}
	return nil
}

func (v Value) marshalJSON() ([]byte, error) {
	switch v.kind {
	case KindStrings:
		if v.list == nil {
			return []byte("[]"), nil
		}
	case KindBytes:
		if v.raw == nil {
			return []byte(`""`), nil
		}
	}
	return json.Marshal(v.Any())
}

func decodeValue(kind Kind, data string) (Value, error) {
	switch kind {
	case KindInt:
		var n json.Number
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return Value{}, err
		}
		i, err := n.Int64()
		if err != nil {
			return Value{}, err
		}
		return IntValue(i), nil
	case KindFloat:
		var f float64
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	case KindString:
		var s string
		if err := json.Unmarshal([]byte(data), &s); err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case KindBool:
		var b bool
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case KindBytes:
		var p []byte
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return Value{}, err
		}
		if p == nil {
			p = []byte{}
		}
		return Value{kind: KindBytes, raw: p}, nil
	case KindTime:
		var t time.Time
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return Value{}, err
		}
		return TimeValue(t), nil
	case KindStrings:
		var list []string
		if err := json.Unmarshal([]byte(data), &list); err != nil {
			return Value{}, err
		}
		if list == nil {
			list = []string{}
		}
		return Value{kind: KindStrings, list: list}, nil
	}
	return Value{}, fmt.Errorf("kind %s", kind)
}

func cloneBytes(p []byte) []byte {
	if p == nil {
		return nil
	}
	return append([]byte{}, p...)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
