package store

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// CanonicalName converts an operator-typed person name into its canonical
// form: diacritics removed, lowercased, whitespace collapsed to underscores,
// and anything outside [a-z0-9_-] dropped. The canonical form is the person's
// identity everywhere: store keys, directory names and the label map. Keeping
// a single form makes the sorted-name labeling stable across restarts.
func CanonicalName(name string) (string, error) {
	name = removeDiacritics(name)
	name = strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case unicode.IsSpace(r), r == '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	result := strings.TrimRight(b.String(), "_")
	if result == "" {
		return "", errors.New("person name has no usable characters")
	}
	return result, nil
}
