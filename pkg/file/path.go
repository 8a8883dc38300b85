// Package file has small path helpers for deriving output file names.
package file

import (
	"path/filepath"
	"strings"
)

// ReplaceExt swaps the extension of path for ext, adding the dot when the
// caller leaves it off. A path without an extension gets ext appended.
func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filepath.Join(dir, filename+ext)
	}
	return filepath.Join(dir, filename[:lastDot]+ext)
}

// InsertSuffix places suffix between the file name and its extension, so
// "locales/app.json" with suffix "translated" becomes
// "locales/app.translated.json".
func InsertSuffix(path, suffix string) string {
	if path == "" || suffix == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filepath.Join(dir, filename+"."+suffix)
	}
	return filepath.Join(dir, filename[:lastDot]+"."+suffix+filename[lastDot:])
}
