package jsontree

import (
	"encoding/json"
	"strconv"
)

type DiffKind string

const (
	DiffAdded     DiffKind = "added"
	DiffRemoved   DiffKind = "removed"
	DiffChanged   DiffKind = "changed"
	DiffUnchanged DiffKind = "unchanged"
)

// DiffRecord describes one leaf, or one structurally mismatched subtree, of
// the original/translated comparison.
type DiffRecord struct {
	Path            []string `json:"path"`
	OriginalValue   Node     `json:"originalValue,omitempty"`
	TranslatedValue Node     `json:"translatedValue,omitempty"`
	Kind            DiffKind `json:"kind"`
}

// Diff structurally compares two trees. Arrays are compared index-by-index
// with added/removed tails, objects over the union of keys, and a type
// mismatch yields a single changed record without recursing.
func Diff(original, translated Node) []DiffRecord {
	records := make([]DiffRecord, 0)
	diff(original, translated, nil, &records)
	return records
}

func diff(original, translated Node, path []string, out *[]DiffRecord) {
	origObj, origIsObj := original.(*Object)
	transObj, transIsObj := translated.(*Object)
	origArr, origIsArr := original.(Array)
	transArr, transIsArr := translated.(Array)

	switch {
	case origIsObj && transIsObj:
		diffObjects(origObj, transObj, path, out)
	case origIsArr && transIsArr:
		diffArrays(origArr, transArr, path, out)
	case origIsObj || origIsArr || transIsObj || transIsArr:
		// Type mismatch: report the whole subtree as changed.
		*out = append(*out, DiffRecord{
			Path:            copyPath(path),
			OriginalValue:   original,
			TranslatedValue: translated,
			Kind:            DiffChanged,
		})
	default:
		kind := DiffUnchanged
		if !scalarEqual(original, translated) {
			kind = DiffChanged
		}
		*out = append(*out, DiffRecord{
			Path:            copyPath(path),
			OriginalValue:   original,
			TranslatedValue: translated,
			Kind:            kind,
		})
	}
}

func diffObjects(original, translated *Object, path []string, out *[]DiffRecord) {
	for _, key := range original.Keys() {
		origValue, _ := original.Get(key)
		transValue, inTranslated := translated.Get(key)
		childPath := append(path, key)
		if !inTranslated {
			*out = append(*out, DiffRecord{
				Path:          copyPath(childPath),
				OriginalValue: origValue,
				Kind:          DiffRemoved,
			})
			continue
		}
		diff(origValue, transValue, childPath, out)
	}
	for _, key := range translated.Keys() {
		if _, inOriginal := original.Get(key); inOriginal {
			continue
		}
		transValue, _ := translated.Get(key)
		*out = append(*out, DiffRecord{
			Path:            copyPath(append(path, key)),
			TranslatedValue: transValue,
			Kind:            DiffAdded,
		})
	}
}

func diffArrays(original, translated Array, path []string, out *[]DiffRecord) {
	longest := len(original)
	if len(translated) > longest {
		longest = len(translated)
	}
	for i := 0; i < longest; i++ {
		childPath := append(path, strconv.Itoa(i))
		switch {
		case i >= len(original):
			*out = append(*out, DiffRecord{
				Path:            copyPath(childPath),
				TranslatedValue: translated[i],
				Kind:            DiffAdded,
			})
		case i >= len(translated):
			*out = append(*out, DiffRecord{
				Path:          copyPath(childPath),
				OriginalValue: original[i],
				Kind:          DiffRemoved,
			})
		default:
			diff(original[i], translated[i], childPath, out)
		}
	}
}

// CreatePatch walks keys and indices present in both trees and returns a
// minimal tree mirroring the original nesting that contains only the changed
// leaves. Paths present only in translated are omitted; the patch assumes
// structural parity with the original. In array patches, unchanged slots
// before the last changed index hold nil placeholders so indices line up.
// Returns nil when nothing changed.
func CreatePatch(original, translated Node) Node {
	patch, changed := createPatch(original, translated)
	if !changed {
		return nil
	}
	return patch
}

func createPatch(original, translated Node) (Node, bool) {
	origObj, origIsObj := original.(*Object)
	transObj, transIsObj := translated.(*Object)
	origArr, origIsArr := original.(Array)
	transArr, transIsArr := translated.(Array)

	switch {
	case origIsObj && transIsObj:
		out := NewObject()
		for _, key := range origObj.Keys() {
			transValue, inTranslated := transObj.Get(key)
			if !inTranslated {
				continue
			}
			origValue, _ := origObj.Get(key)
			if child, changed := createPatch(origValue, transValue); changed {
				out.Set(key, child)
			}
		}
		return out, out.Len() > 0
	case origIsArr && transIsArr:
		shortest := len(origArr)
		if len(transArr) < shortest {
			shortest = len(transArr)
		}
		out := make(Array, shortest)
		lastChanged := -1
		for i := 0; i < shortest; i++ {
			if child, changed := createPatch(origArr[i], transArr[i]); changed {
				out[i] = child
				lastChanged = i
			}
		}
		// Unchanged slots stay nil; trailing unchanged slots are dropped.
		return out[:lastChanged+1], lastChanged >= 0
	case origIsObj || origIsArr || transIsObj || transIsArr:
		// Type mismatch counts as a changed leaf.
		return translated, true
	default:
		if scalarEqual(original, translated) {
			return nil, false
		}
		return translated, true
	}
}

// scalarEqual compares scalar nodes. Numbers compare by their literal text,
// which Parse preserves via json.Number.
func scalarEqual(a, b Node) bool {
	if an, ok := a.(json.Number); ok {
		bn, ok := b.(json.Number)
		return ok && an.String() == bn.String()
	}
	return a == b
}

func copyPath(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	return append([]string(nil), path...)
}
