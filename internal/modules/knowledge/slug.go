package knowledge

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	slugMaxLen   = 80
	slugFallback = "untitled"
)

// Slugify maps a title to lowercase ASCII words joined by '-'. Accented
// letters are folded to their base letter; everything else that is not a
// letter or digit separates words.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return trimSlug(b.String(), slugMaxLen)
}

// slugCandidate returns the slug tried on the given 1-based attempt.
func slugCandidate(base string, attempt int) string {
	if attempt <= 1 {
		return base
	}
	suffix := "-" + strconv.Itoa(attempt)
	return trimSlug(base, slugMaxLen-len(suffix)) + suffix
}

func trimSlug(s string, max int) string {
	if len(s) > max {
		s = s[:max]
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return slugFallback
	}
	return s
}
