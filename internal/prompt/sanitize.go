package prompt

import (
	"strings"

	"github.com/wasilibs/go-re2"
	"golang.org/x/text/unicode/norm"
)

var (
	invisible  = re2.MustCompile(`[\x{200B}-\x{200F}\x{202A}-\x{202E}\x{2066}-\x{2069}\x{FEFF}\x{00AD}]`)
	blankLines = re2.MustCompile(`\n{3,}`)
)

// Sanitize prepares remote text for terminal display: NFC normalization,
// no control characters or bidi/zero-width marks, at most one blank line in a row.
func Sanitize(s string) string {
	s = norm.NFC.String(s)
	s = invisible.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\r':
			continue
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 32 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(blankLines.ReplaceAllString(b.String(), "\n\n"))
}
