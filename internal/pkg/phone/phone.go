// Package phone validates and normalizes Uzbek phone numbers, the only
// regional format the service accepts.
package phone

import (
	"regexp"
	"strings"
)

var uzPhone = regexp.MustCompile(`^\+998\d{9}$`)

// Normalize trims surrounding whitespace. Numbers are stored exactly as
// dialed (+998XXXXXXXXX), so no further canonicalization is needed.
func Normalize(s string) string {
	return strings.TrimSpace(s)
}

// Valid reports whether s is a well-formed +998 number.
func Valid(s string) bool {
	return uzPhone.MatchString(s)
}
