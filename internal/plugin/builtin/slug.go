package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugTransformer strips combining marks after NFKD decomposition, so
// accented latin titles slug to plain ASCII. CJK characters pass through.
var slugTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives an output slug from a post title. Letters and digits are
// kept (lowercased), runs of anything else collapse into a single dash.
func Slugify(title string) string {
	normalized, _, err := transform.String(slugTransformer, title)
	if err != nil {
		normalized = title
	}

	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
