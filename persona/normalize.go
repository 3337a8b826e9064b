package persona

import (
	"regexp"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9_]`)

// Normalize turns a persona or thread name into its stored form: lower-cased, trimmed,
// inner spaces replaced by underscores and everything outside [a-z0-9_] removed.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "_")
	return unsafeNameChars.ReplaceAllString(name, "")
}
