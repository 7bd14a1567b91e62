package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
)

// Value is one cell of a raw external record: null, string, number or bool.
// Nested JSON is flattened to its compact text and kept as a string.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

func Null() Value { return Value{Kind: KindNull} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func (v Value) IsNull() bool { return v.Kind == KindNull }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// FromAny converts a decoded Go value into a Value.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case json.Number:
		if n, err := t.Float64(); err == nil {
			return Number(n)
		}
		return String(t.String())
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Number(cast.ToFloat64(t))
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return Null()
		}
		return String(string(raw))
	default:
		s, err := cast.ToStringE(t)
		if err != nil {
			return Null()
		}
		return String(s)
	}
}

// String renders the value the way a spreadsheet cell would show it.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return cast.ToString(v.Num)
	case KindBool:
		return cast.ToString(v.Bool)
	default:
		return ""
	}
}

// Trimmed is String with surrounding whitespace removed.
func (v Value) Trimmed() string {
	return strings.TrimSpace(v.String())
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	*v = FromAny(x)
	return nil
}

// RawRecord is an arbitrary external record keyed by whatever field names the
// source happens to use.
type RawRecord map[string]Value

// RecordFromMap builds a RawRecord from a decoded JSON object or similar map.
func RecordFromMap(m map[string]any) RawRecord {
	rec := make(RawRecord, len(m))
	for k, v := range m {
		rec[k] = FromAny(v)
	}
	return rec
}

// RecordFromAny accepts any decoded JSON item. Anything that is not an object
// becomes an empty record.
func RecordFromAny(x any) RawRecord {
	if m, ok := x.(map[string]any); ok {
		return RecordFromMap(m)
	}
	return RawRecord{}
}

// Keys returns the record's field names in sorted order.
func (r RawRecord) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	*r = RecordFromAny(x)
	return nil
}
