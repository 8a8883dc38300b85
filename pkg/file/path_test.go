package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "locales/app.patch.json", ReplaceExt("locales/app.json", "patch.json"))
	assert.Equal(t, "app.yaml", ReplaceExt("app.json", ".yaml"))
	assert.Equal(t, "noext.json", ReplaceExt("noext", "json"))
	assert.Equal(t, "", ReplaceExt("", "json"))
}

func TestInsertSuffix(t *testing.T) {
	assert.Equal(t, "locales/app.translated.json", InsertSuffix("locales/app.json", "translated"))
	assert.Equal(t, "noext.translated", InsertSuffix("noext", "translated"))
	assert.Equal(t, "app.json", InsertSuffix("app.json", ""))
}
