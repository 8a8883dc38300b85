// Package jsontree models JSON documents as order-preserving trees and
// implements the traversal primitives of the translation pipeline: leaf
// extraction, deduplication, translated-tree reconstruction, and structural
// diff/patch generation.
package jsontree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Node is a decoded JSON value: *Object, Array, string, json.Number, bool,
// or nil. Object key order follows the source document, which is what makes
// extraction order deterministic.
type Node interface{}

// Array is a JSON array.
type Array []Node

// Object is a JSON object with stable, insertion-ordered keys.
type Object struct {
	keys   []string
	values map[string]Node
}

func NewObject() *Object {
	return &Object{values: make(map[string]Node)}
}

// Set inserts or replaces a key. New keys append to the key order.
func (o *Object) Set(key string, value Node) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *Object) Get(key string) (Node, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in document order. Callers must not mutate the slice.
func (o *Object) Keys() []string {
	return o.keys
}

func (o *Object) Len() int {
	return len(o.keys)
}

// MarshalJSON encodes the object preserving key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valueJSON, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse decodes a JSON document into a Node, preserving object key order and
// keeping numbers as json.Number so re-encoding is lossless.
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := parseValue(dec)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected content after top-level value")
	}
	return node, nil
}

// Marshal encodes a Node back to indented JSON.
func Marshal(node Node) ([]byte, error) {
	return json.MarshalIndent(node, "", "  ")
}

func parseValue(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t.String())
		}
	case string:
		return t, nil
	case json.Number:
		return t, nil
	case bool:
		return t, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func parseObject(dec *json.Decoder) (Node, error) {
	obj := NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is not a string: %v", keyTok)
		}
		value, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		obj.Set(key, value)
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func parseArray(dec *json.Decoder) (Node, error) {
	arr := make(Array, 0)
	for dec.More() {
		value, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, value)
	}
	// closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// Clone returns a deep copy of node. Scalars are immutable and shared.
func Clone(node Node) Node {
	switch n := node.(type) {
	case *Object:
		out := NewObject()
		for _, key := range n.keys {
			out.Set(key, Clone(n.values[key]))
		}
		return out
	case Array:
		out := make(Array, len(n))
		for i, item := range n {
			out[i] = Clone(item)
		}
		return out
	default:
		return node
	}
}

// JoinPath encodes path segments as a JSON Pointer (RFC 6901), so paths with
// "/" or "~" inside keys stay unambiguous map keys.
func JoinPath(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	for _, seg := range segments {
		b.WriteByte('/')
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(seg, "~", "~0"), "/", "~1"))
	}
	return b.String()
}
