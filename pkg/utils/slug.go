package utils

import (
	"strings"
	"unicode"
)

// Slugify lower-cases s and joins runs of letters and digits with single dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false

	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}

	return b.String()
}
