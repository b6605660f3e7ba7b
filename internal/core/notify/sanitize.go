package notify

import "strings"

// Sanitize neutralizes record text for display. Titles and messages carry
// peer- and network-supplied strings; this is the mandatory step at the
// rendering boundary that keeps them data rather than markup or terminal
// escape sequences. Adapters and the store never call it: only renderers.
//
// Markup metacharacters are escaped because desktop notification daemons
// render an HTML subset; control characters are dropped so ANSI sequences
// cannot restyle or rewrite terminal output.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '\n' || r == '\t':
			b.WriteRune(' ')
		case r < 0x20 || r == 0x7f:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
