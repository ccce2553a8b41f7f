// Package kgr implements the RPC wire value (spec.md §3 "KgrValue"): a
// closed sum type over null, int64, float64, bool, string, array and an
// order-preserving object map, plus JSON and compact binary codecs for it.
//
// The type itself is modeled the way minicli models a command Value: one
// concrete struct with a Kind discriminator and typed accessors, rather
// than an interface{}-based variant — callers never type-switch on Go's
// dynamic type, only on Kind.
package kgr

import "fmt"

type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is the dynamic wire value. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	arr  []Value
	obj  *OrderedMap
}

func Null() Value             { return Value{kind: KindNull} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func String(s string) Value   { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: append([]Value(nil), items...)}
}
func Object(om *OrderedMap) Value {
	if om == nil {
		om = NewOrderedMap()
	}
	return Value{kind: KindObject, obj: om}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsInt() bool    { return v.kind == KindInt }
func (v Value) IsFloat() bool  { return v.kind == KindFloat }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsArray() bool  { return v.kind == KindArray }
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsInt returns the int payload. Panics if Kind is not KindInt; callers in
// RPC handlers should check Kind (or use the Type-checked helpers in
// params.go) before calling.
func (v Value) AsInt() int64 {
	v.mustBe(KindInt)
	return v.i
}

func (v Value) AsFloat() float64 {
	v.mustBe(KindFloat)
	return v.f
}

// Number returns the value as a float64 regardless of whether it was
// stored as KindInt or KindFloat, matching the JSON codec's habit of
// treating the two interchangeably at the call site.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

func (v Value) AsBool() bool {
	v.mustBe(KindBool)
	return v.b
}

func (v Value) AsString() string {
	v.mustBe(KindString)
	return v.s
}

func (v Value) AsArray() []Value {
	v.mustBe(KindArray)
	return v.arr
}

func (v Value) AsObject() *OrderedMap {
	v.mustBe(KindObject)
	return v.obj
}

func (v Value) mustBe(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("kgr: value is %v, not %v", v.kind, k))
	}
}

// Equal reports whether v and other are structurally equal: same Kind,
// same scalar payload, element-wise equal arrays, and objects with the
// same key set and values (order does not affect equality, only wire
// encoding of the binary codec observes it).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.equal(other.obj)
	}
	return false
}

// OrderedMap is a string-keyed map that preserves insertion order, used
// as the payload of KindObject. Duplicate Set calls overwrite the value
// in place without moving the key's position, so an object decoded with
// a repeated key keeps the last occurrence's value at the first
// occurrence's position (spec.md §4.1).
type OrderedMap struct {
	keys []string
	vals map[string]Value
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{vals: make(map[string]Value)}
}

func (m *OrderedMap) Set(key string, v Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

func (m *OrderedMap) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *OrderedMap) Len() int { return len(m.keys) }

// Keys returns keys in insertion order.
func (m *OrderedMap) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Range calls fn for every entry in insertion order.
func (m *OrderedMap) Range(fn func(key string, v Value) bool) {
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

func (m *OrderedMap) equal(other *OrderedMap) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, k := range m.keys {
		ov, ok := other.vals[k]
		if !ok || !m.vals[k].Equal(ov) {
			return false
		}
	}
	return true
}
