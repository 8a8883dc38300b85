package jsontree

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) Node {
	t.Helper()
	node, err := Parse([]byte(doc))
	require.NoError(t, err)
	return node
}

func TestDiff_IdenticalTreesAllUnchanged(t *testing.T) {
	tree := mustParse(t, `{"a": "Hello", "b": ["Hello", "World"], "n": 3, "ok": true}`)

	records := Diff(tree, tree)
	require.NotEmpty(t, records)
	for _, rec := range records {
		assert.Equal(t, DiffUnchanged, rec.Kind, "path %v", rec.Path)
	}
}

func TestDiff_ChangedLeaves(t *testing.T) {
	original := mustParse(t, `{"a": "Hello", "b": ["Hello", "World"]}`)
	translated := mustParse(t, `{"a": "Bonjour", "b": ["Bonjour", "Monde"]}`)

	records := Diff(original, translated)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, DiffChanged, rec.Kind)
	}
	assert.Equal(t, []string{"a"}, records[0].Path)
	assert.Equal(t, "Bonjour", records[0].TranslatedValue)
}

func TestDiff_AddedAndRemovedKeys(t *testing.T) {
	original := mustParse(t, `{"keep": "Same text", "gone": "Removed text"}`)
	translated := mustParse(t, `{"keep": "Same text", "fresh": "New text"}`)

	records := Diff(original, translated)

	kinds := make(map[string]DiffKind)
	for _, rec := range records {
		kinds[JoinPath(rec.Path)] = rec.Kind
	}
	assert.Equal(t, DiffUnchanged, kinds["/keep"])
	assert.Equal(t, DiffRemoved, kinds["/gone"])
	assert.Equal(t, DiffAdded, kinds["/fresh"])
}

func TestDiff_ArrayLengthMismatch(t *testing.T) {
	original := mustParse(t, `["One item", "Two items", "Three items"]`)
	translated := mustParse(t, `["Un element"]`)

	records := Diff(original, translated)
	require.Len(t, records, 3)
	assert.Equal(t, DiffChanged, records[0].Kind)
	assert.Equal(t, DiffRemoved, records[1].Kind)
	assert.Equal(t, DiffRemoved, records[2].Kind)
}

func TestDiff_TypeMismatchSingleRecord(t *testing.T) {
	original := mustParse(t, `{"node": {"inner": "Some text"}}`)
	translated := mustParse(t, `{"node": "Collapsed text"}`)

	records := Diff(original, translated)
	require.Len(t, records, 1)
	assert.Equal(t, DiffChanged, records[0].Kind)
	assert.Equal(t, []string{"node"}, records[0].Path)
}

func TestCreatePatch_EveryLeafChanged(t *testing.T) {
	original := mustParse(t, `{"a": "Hello", "b": ["Hello", "World"]}`)
	translated := mustParse(t, `{"a": "Bonjour", "b": ["Bonjour", "Monde"]}`)

	patch := CreatePatch(original, translated)
	require.NotNil(t, patch)

	patchJSON, err := Marshal(patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "Bonjour", "b": ["Bonjour", "Monde"]}`, string(patchJSON))
}

func TestCreatePatch_OnlyChangedLeaves(t *testing.T) {
	original := mustParse(t, `{"a": "Hello", "b": "Keep me", "c": {"d": "Deep text", "e": "Stays"}}`)
	translated := mustParse(t, `{"a": "Bonjour", "b": "Keep me", "c": {"d": "Texte profond", "e": "Stays"}}`)

	patch := CreatePatch(original, translated)
	require.NotNil(t, patch)

	patchJSON, err := Marshal(patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "Bonjour", "c": {"d": "Texte profond"}}`, string(patchJSON))
}

func TestCreatePatch_IgnoresTranslatedOnlyKeys(t *testing.T) {
	original := mustParse(t, `{"a": "Hello"}`)
	translated := mustParse(t, `{"a": "Bonjour", "extra": "Should vanish"}`)

	patch := CreatePatch(original, translated)
	require.NotNil(t, patch)

	patchJSON, err := Marshal(patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "Bonjour"}`, string(patchJSON))
}

func TestCreatePatch_NoChanges(t *testing.T) {
	tree := mustParse(t, `{"a": "Hello", "b": [1, 2]}`)
	assert.Nil(t, CreatePatch(tree, tree))
}

// applyPatch overlays a patch onto a tree, the inverse operation the patch
// contract promises: overwriting only patched paths reconstructs the
// translated tree when it has no paths absent from the original.
func applyPatch(base, patch Node) Node {
	patchObj, patchIsObj := patch.(*Object)
	patchArr, patchIsArr := patch.(Array)

	switch b := base.(type) {
	case *Object:
		if !patchIsObj {
			return patch
		}
		out := NewObject()
		for _, key := range b.Keys() {
			baseValue, _ := b.Get(key)
			if patchValue, ok := patchObj.Get(key); ok {
				out.Set(key, applyPatch(baseValue, patchValue))
			} else {
				out.Set(key, Clone(baseValue))
			}
		}
		return out
	case Array:
		if !patchIsArr {
			return patch
		}
		out := make(Array, len(b))
		for i, item := range b {
			if i < len(patchArr) && patchArr[i] != nil {
				out[i] = applyPatch(item, patchArr[i])
			} else {
				out[i] = Clone(item)
			}
		}
		return out
	default:
		return patch
	}
}

func TestCreatePatch_AppliedToOriginalReconstructsTranslated(t *testing.T) {
	original := mustParse(t, `{
		"title": "Welcome home",
		"nested": {"body": "Long body text", "keep": "Untouched text"},
		"items": ["First entry", "Second entry", "Third entry"]
	}`)
	translated := mustParse(t, `{
		"title": "Bienvenue chez vous",
		"nested": {"body": "Corps du texte", "keep": "Untouched text"},
		"items": ["First entry", "Deuxieme entree", "Third entry"]
	}`)

	patch := CreatePatch(original, translated)
	require.NotNil(t, patch)

	reconstructed := applyPatch(original, patch)

	translatedJSON, err := Marshal(translated)
	require.NoError(t, err)
	reconstructedJSON, err := Marshal(reconstructed)
	require.NoError(t, err)
	assert.Equal(t, string(translatedJSON), string(reconstructedJSON))
}

func TestDiff_LargeFlatArray(t *testing.T) {
	original := make(Array, 0, 50)
	translated := make(Array, 0, 50)
	for i := 0; i < 50; i++ {
		original = append(original, "Entry number "+strconv.Itoa(i))
		translated = append(translated, "Entry number "+strconv.Itoa(i))
	}
	translated[17] = "Changed entry"

	records := Diff(original, translated)
	require.Len(t, records, 50)

	changed := 0
	for _, rec := range records {
		if rec.Kind == DiffChanged {
			changed++
			assert.Equal(t, []string{"17"}, rec.Path)
		}
	}
	assert.Equal(t, 1, changed)
}
