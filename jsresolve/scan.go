package jsresolve

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}

// skipString returns the index just past the string literal starting at s[i].
// Unterminated strings run to the end of the input.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

// matchClose returns the index of the bracket closing the one at s[open],
// skipping brackets inside string literals. It returns -1 when unbalanced.
func matchClose(s string, open int) int {
	depth := 0
	for i := open; i < len(s); {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipString(s, i)
			continue
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

// splitTopLevel splits on commas that are outside strings and brackets
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipString(s, i)
			continue
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' || c == ']' || c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
		i++
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" || len(parts) > 0 {
		parts = append(parts, tail)
	}
	return parts
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func prevNonSpace(s string, i int) byte {
	for i--; i >= 0; i-- {
		if c := s[i]; c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return c
		}
	}
	return 0
}

// isObjectKey reports whether the identifier s[start:end] is a key in an object literal
func isObjectKey(s string, start, end int) bool {
	next := skipSpace(s, end)
	if next >= len(s) || s[next] != ':' {
		return false
	}
	prev := prevNonSpace(s, start)
	return prev == '{' || prev == ','
}

// unquote decodes a single, double or backtick quoted JavaScript string literal
func unquote(lit string) string {
	if len(lit) < 2 || !isQuote(lit[0]) {
		return lit
	}
	quote := lit[0]
	body := lit[1:]
	if body[len(body)-1] == quote {
		body = body[:len(body)-1]
	}

	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'x':
			if r, ok := hexRune(body, i+1, 2); ok {
				sb.WriteRune(r)
				i += 2
			} else {
				sb.WriteByte('x')
			}
		case 'u':
			if r, ok := hexRune(body, i+1, 4); ok {
				sb.WriteRune(r)
				i += 4
			} else {
				sb.WriteByte('u')
			}
		case '\n':
			// line continuation
		default:
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}

func hexRune(s string, start, n int) (rune, bool) {
	if start+n > len(s) {
		return utf8.RuneError, false
	}
	v, err := strconv.ParseUint(s[start:start+n], 16, 32)
	if err != nil {
		return utf8.RuneError, false
	}
	return rune(v), true
}
