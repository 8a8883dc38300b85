package jsontree

import (
	"strconv"

	"github.com/khiemphamm/translate-json/internal/classify"
)

// Occurrence is one translatable leaf string found during extraction. Path
// addresses the leaf within the original tree; several occurrences may carry
// the same value.
type Occurrence struct {
	Path  []string
	Value string
}

// Extract walks the tree depth-first and returns every leaf string the
// classifier accepts, in document order. Repeated calls on the same tree
// yield the same sequence.
func Extract(root Node) []Occurrence {
	occs := make([]Occurrence, 0)
	extract(root, nil, &occs)
	return occs
}

func extract(node Node, path []string, out *[]Occurrence) {
	switch n := node.(type) {
	case *Object:
		for _, key := range n.Keys() {
			value, _ := n.Get(key)
			extract(value, append(path, key), out)
		}
	case Array:
		for i, item := range n {
			extract(item, append(path, strconv.Itoa(i)), out)
		}
	case string:
		if classify.ShouldTranslate(n) {
			*out = append(*out, Occurrence{
				Path:  append([]string(nil), path...),
				Value: n,
			})
		}
	}
}

// Apply rebuilds the tree with leaves substituted from translations, keyed by
// JoinPath of the leaf's path. The input tree is never mutated; paths absent
// from the map keep their original value, so partial maps (mid-run snapshots)
// are safe.
func Apply(root Node, translations map[string]string) Node {
	return apply(root, nil, translations)
}

func apply(node Node, path []string, translations map[string]string) Node {
	switch n := node.(type) {
	case *Object:
		out := NewObject()
		for _, key := range n.Keys() {
			value, _ := n.Get(key)
			out.Set(key, apply(value, append(path, key), translations))
		}
		return out
	case Array:
		out := make(Array, len(n))
		for i, item := range n {
			out[i] = apply(item, append(path, strconv.Itoa(i)), translations)
		}
		return out
	case string:
		if replacement, ok := translations[JoinPath(path)]; ok {
			return replacement
		}
		return n
	default:
		return node
	}
}
