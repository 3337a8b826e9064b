package stringutils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeText drops NUL, C0/C1 control characters (except tab, newline and carriage return)
// and invalid UTF-8 from user supplied text before it is stored or sent to a model.
func SanitizeText(s string) string {
	if utf8.ValidString(s) && strings.IndexFunc(s, isControl) < 0 {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))

	for _, r := range s {
		if r == utf8.RuneError || isControl(r) {
			continue
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// IsBlank reports whether s has nothing but whitespace once sanitized.
func IsBlank(s string) bool {
	return strings.TrimSpace(SanitizeText(s)) == ""
}

func isControl(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 32, r == 127:
		return true
	case r >= 128 && r <= 159:
		return true
	}
	return false
}
