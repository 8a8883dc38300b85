// Package classify decides which JSON leaf strings are worth sending to the
// translation backend. Classification is conservative: any structural-looking
// value (URL, identifier, color, placeholder soup) is skipped, because a
// skipped sentence is cheaper than a mistranslated token.
package classify

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	urlPattern    = regexp.MustCompile(`^(?:https?|ftp)://\S+$|^www\.\S+$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	hexColor      = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	pureNumber    = regexp.MustCompile(`^[+-]?\d+(?:[.,]\d+)?$`)
	allCapsIdent  = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)
	camelCase     = regexp.MustCompile(`^[a-z]+(?:[A-Z][a-zA-Z0-9]*)+$`)
	kebabCase     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)+$`)
	snakeCase     = regexp.MustCompile(`^[a-z0-9]+(?:_[a-z0-9]+)+$`)
	isoDate       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?(?:Z|[+-]\d{2}:?\d{2})?)?$`)
	cssLength     = regexp.MustCompile(`^-?\d+(?:\.\d+)?(?:px|em|rem|vh|vw|vmin|vmax|pt|pc|cm|mm|in|ex|ch|fr|deg|s|ms|%)$`)
	cssColorFunc  = regexp.MustCompile(`^(?:rgb|rgba|hsl|hsla|hwb|lab|lch|oklab|oklch)\([^)]*\)$`)
	placeholderRe = regexp.MustCompile(`\{\{[^{}]*\}\}|\$\{[^{}]*\}|\{[^{}]*\}|%[^%\s]+%`)
	htmlTagRe     = regexp.MustCompile(`<[^<>]+>`)
)

// fullMatch patterns reject a string outright when they cover the whole value.
var fullMatch = []*regexp.Regexp{
	urlPattern,
	emailPattern,
	hexColor,
	pureNumber,
	allCapsIdent,
	camelCase,
	kebabCase,
	snakeCase,
	isoDate,
	cssLength,
	cssColorFunc,
}

// ShouldTranslate reports whether text is human-readable content that should
// be sent to the backend. All checks are pure; any match short-circuits to
// "do not translate".
func ShouldTranslate(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < 2 {
		return false
	}

	for _, re := range fullMatch {
		if re.MatchString(trimmed) {
			return false
		}
	}

	if ratioOf(placeholderRe, trimmed) > 0.5 {
		return false
	}
	if ratioOf(htmlTagRe, trimmed) > 0.7 {
		return false
	}

	return true
}

// ratioOf returns the share of the string covered by matches of re.
func ratioOf(re *regexp.Regexp, s string) float64 {
	matched := 0
	for _, loc := range re.FindAllStringIndex(s, -1) {
		matched += loc[1] - loc[0]
	}
	return float64(matched) / float64(len(s))
}
