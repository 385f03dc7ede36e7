package validation

import "strings"

// IsValidIdentifierChar checks if a character is valid for identifiers
// (alphanumeric, hyphen, or underscore).
//
// Valid characters:
//   - Lowercase letters: a-z
//   - Uppercase letters: A-Z
//   - Digits: 0-9
//   - Hyphen: -
//   - Underscore: _
func IsValidIdentifierChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '_'
}

// IsValidIdentifier reports whether s is a non-empty identifier
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if !IsValidIdentifierChar(ch) {
			return false
		}
	}
	return true
}

// IsValidKey reports whether key is a slash-separated list of identifiers,
// e.g. "pages/5b0c9b1e-...". Empty segments are rejected.
func IsValidKey(key string) bool {
	if key == "" {
		return false
	}
	for _, segment := range strings.Split(key, "/") {
		if !IsValidIdentifier(segment) {
			return false
		}
	}
	return true
}
