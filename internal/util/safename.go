package util

import "strings"

// SafeName replaces every rune outside [A-Za-z0-9._^=-] with '-', which keeps
// market symbols such as "BRK.B", "^GSPC" or "EURUSD=X" readable while
// removing path separators, whitespace and control characters. A name that
// would consist only of dots is prefixed with '-' so it can never resolve to
// "." or "..".
func SafeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '^', r == '=', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := b.String()
	if out != "" && strings.Trim(out, ".") == "" {
		out = "-" + out
	}
	return out
}
