package worldinfo

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

type MatchOptions struct {
	CaseSensitive   bool
	MatchWholeWords bool
}

// Match reports whether any primary key occurs in window and, when secondary keys are
// given, whether at least one of them occurs as well. Blank keys are ignored.
func Match(window string, primary, secondary []string, opts MatchOptions) bool {
	if window == "" {
		return false
	}
	haystack := window
	if !opts.CaseSensitive {
		haystack = fold(window)
	}
	if !anyKey(haystack, primary, opts) {
		return false
	}
	if len(usableKeys(secondary)) == 0 {
		return true
	}
	return anyKey(haystack, secondary, opts)
}

// MatchedKey returns the first primary key found in window, or "" when none matches.
func MatchedKey(window string, keys []string, opts MatchOptions) string {
	haystack := window
	if !opts.CaseSensitive {
		haystack = fold(window)
	}
	for _, key := range usableKeys(keys) {
		if containsKey(haystack, key, opts) {
			return key
		}
	}
	return ""
}

func anyKey(haystack string, keys []string, opts MatchOptions) bool {
	for _, key := range usableKeys(keys) {
		if containsKey(haystack, key, opts) {
			return true
		}
	}
	return false
}

func containsKey(haystack, key string, opts MatchOptions) bool {
	needle := strings.TrimSpace(key)
	if !opts.CaseSensitive {
		needle = fold(needle)
	}
	if !opts.MatchWholeWords {
		return strings.Contains(haystack, needle)
	}

	first, _ := utf8.DecodeRuneInString(needle)
	last, _ := utf8.DecodeLastRuneInString(needle)
	checkStart := isWordRune(first)
	checkEnd := isWordRune(last)

	offset := 0
	for offset <= len(haystack) {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(needle)
		startOK := true
		if checkStart && start > 0 {
			prev, _ := utf8.DecodeLastRuneInString(haystack[:start])
			startOK = !isWordRune(prev)
		}
		endOK := true
		if checkEnd && end < len(haystack) {
			next, _ := utf8.DecodeRuneInString(haystack[end:])
			endOK = !isWordRune(next)
		}
		if startOK && endOK {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
	return false
}

// HasUsableKeys reports whether keys contains at least one non-blank key.
func HasUsableKeys(keys []string) bool {
	return len(usableKeys(keys)) > 0
}

func usableKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		out = append(out, key)
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func fold(s string) string {
	return cases.Fold().String(s)
}
