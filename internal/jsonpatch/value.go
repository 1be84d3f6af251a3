// Package jsonpatch implements RFC 6902 JSON Patch over an explicit document tree.
//
// Documents are decoded into Value trees (null, bool, number, string, array, object).
// A Patch is always applied to a deep copy of its input, so a failed operation never
// leaves a partially modified document behind.
package jsonpatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a node of a JSON document tree.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []*Value
	obj  map[string]*Value
}

// Null returns a new null value.
func Null() *Value { return &Value{kind: KindNull} }

// Bool returns a new boolean value.
func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// String returns a new string value.
func String(s string) *Value { return &Value{kind: KindString, str: s} }

// Number returns a new number value. n must be a valid JSON number literal.
func Number(n json.Number) *Value { return &Value{kind: KindNumber, num: n} }

// Array returns a new array value holding items.
func Array(items ...*Value) *Value { return &Value{kind: KindArray, arr: items} }

// Object returns a new empty object value.
func Object() *Value { return &Value{kind: KindObject, obj: make(map[string]*Value)} }

// Kind reports the variant held by v.
func (v *Value) Kind() Kind { return v.kind }

// Len returns the number of elements of an array or members of an object.
func (v *Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	}
	return 0
}

// Member returns the object member named key.
func (v *Value) Member(key string) (*Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	m, ok := v.obj[key]
	return m, ok
}

// Set stores an object member. It panics if v is not an object.
func (v *Value) Set(key string, m *Value) {
	if v.kind != KindObject {
		panic("jsonpatch: Set on " + v.kind.String())
	}
	v.obj[key] = m
}

// Parse decodes a single JSON document into a Value tree.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("jsonpatch: trailing data after document")
	}
	return fromInterface(raw)
}

func fromInterface(raw any) (*Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case []any:
		items := make([]*Value, 0, len(t))
		for _, item := range t {
			v, err := fromInterface(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return Array(items...), nil
	case map[string]any:
		obj := Object()
		for k, item := range t {
			v, err := fromInterface(item)
			if err != nil {
				return nil, err
			}
			obj.obj[k] = v
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("jsonpatch: unsupported value of type %T", raw)
	}
}

// Interface converts v back into plain Go values (nil, bool, json.Number, string,
// []any, map[string]any).
func (v *Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler. Object members are emitted in key order.
func (v *Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := &Value{kind: v.kind, b: v.b, num: v.num, str: v.str}
	switch v.kind {
	case KindArray:
		c.arr = make([]*Value, len(v.arr))
		for i, item := range v.arr {
			c.arr[i] = item.Clone()
		}
	case KindObject:
		c.obj = make(map[string]*Value, len(v.obj))
		for k, item := range v.obj {
			c.obj[k] = item.Clone()
		}
	}
	return c
}

// Equal reports whether two documents are equal in the RFC 6902 "test" sense:
// numbers compare by numeric value, objects ignore member order, arrays compare
// element-wise.
func Equal(a, b *Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.str == b.str
	case KindNumber:
		return numbersEqual(a.num, b.num)
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	ra, okA := new(big.Rat).SetString(string(a))
	rb, okB := new(big.Rat).SetString(string(b))
	if !okA || !okB {
		return false
	}
	return ra.Cmp(rb) == 0
}
