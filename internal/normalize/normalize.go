// Package normalize holds the string cleanups shared across the keyword
// pipeline: model labels, keyword lists and snapshot file names all need
// the same treatment of invisible characters.
package normalize

import (
	"strings"
	"unicode"
)

// Token prepares a string for case-insensitive matching: zero-width
// characters are removed, surrounding whitespace is trimmed and the
// result is lowercased. Models occasionally wrap single-word answers in
// zero-width characters; those must not defeat category matching.
func Token(s string) string {
	return strings.ToLower(strings.TrimSpace(stripZeroWidth(s)))
}

// Keyword trims a keyword for pipeline use without changing its case.
// Only edge characters are touched, the interior is the search query.
func Keyword(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || isZeroWidth(r)
	})
}

// FileStem converts a keyword into a snapshot file stem. Forward slashes
// become underscores so multi-segment keywords like "AC/DC converter"
// stay one path element.
func FileStem(keyword string) string {
	return strings.ReplaceAll(Keyword(keyword), "/", "_")
}

func stripZeroWidth(s string) string {
	return strings.Map(func(r rune) rune {
		if isZeroWidth(r) {
			return -1
		}
		return r
	}, s)
}

// isZeroWidth reports the invisible characters that survive copy-paste:
// ZWSP, ZWNJ, ZWJ and the byte order mark.
func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\ufeff':
		return true
	}
	return false
}
