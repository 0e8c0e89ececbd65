package transcoder

import (
	"errors"
	"strconv"
	"strings"
)

// CastTextToInteger applies the SQL CAST rules for a TEXT operand cast to
// INTEGER, as documented in https://sqlite.org/lang_expr.html#castexpr
func CastTextToInteger(s string) int64 {
	const digits = "0123456789"
	s = strings.TrimSpace(s)
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[:1+len(longestPrefix(s[1:], digits))]
	} else {
		s = longestPrefix(s, digits)
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// CastTextToReal applies the SQL CAST rules for a TEXT operand cast to
// REAL, as documented in https://sqlite.org/lang_expr.html#castexpr
func CastTextToReal(s string) float64 {
	s = strings.TrimSpace(s)
	for ; len(s) > 0; s = s[:len(s)-1] {
		n, err := strconv.ParseFloat(s, 64)
		if !errors.Is(err, strconv.ErrSyntax) {
			return n
		}
	}
	return 0
}

func longestPrefix(s string, allowSet string) string {
sloop:
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(allowSet); j++ {
			if s[i] == allowSet[j] {
				continue sloop
			}
		}
		return s[:i]
	}
	return s
}
