package render

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// FileName builds a collision-resistant document name from the project,
// template, and generation time.
func FileName(projectName, template, format string, at time.Time) string {
	slug := slugify(projectName)
	if slug == "" {
		slug = "walkthrough"
	}
	return fmt.Sprintf("%s-%s-scope-%s.%s", slug, template, at.UTC().Format("20060102-150405"), format)
}

// slugify lowercases and collapses everything outside [a-z0-9] into single
// hyphens, capped at 48 runes.
func slugify(name string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if r > unicode.MaxASCII {
				continue
			}
			b.WriteRune(r)
			hyphen = false
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
		if b.Len() >= 48 {
			break
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
