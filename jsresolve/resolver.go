// Package jsresolve recovers structured data from pages that boot from an
// immediately-invoked function such as
//
//	window.__NUXT__=(function(a,b){return {rent:[{city:a,price:b}]}}("Breda","950"));
//
// where the data references the closure parameters instead of literal values.
package jsresolve

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

var (
	// ErrNoInvocation is returned when the script holds no function invocation
	ErrNoInvocation = errors.New("jsresolve: no function invocation found")
	// ErrKeyNotFound is returned when the requested key is not in the script
	ErrKeyNotFound = errors.New("jsresolve: key not found")
)

var keywords = map[string]bool{
	"true":      true,
	"false":     true,
	"null":      true,
	"undefined": true,
}

// Literal is one argument of an invoked function. Text holds the decoded
// contents of a string literal, or the JSON form of any other literal
// (null, true, false, a number, an array or object literal).
type Literal struct {
	Text   string
	Quoted bool
}

// JSON returns the literal as it is substituted into an object literal
func (l Literal) JSON() string {
	if l.Quoted {
		return quote(l.Text)
	}
	return l.Text
}

// parseLiteral classifies one argument as written in the argument list
func parseLiteral(arg string) Literal {
	arg = strings.TrimSpace(arg)
	if arg != "" && isQuote(arg[0]) {
		return Literal{Text: unquote(arg), Quoted: true}
	}
	switch strings.Join(strings.Fields(arg), " ") {
	case "null", "undefined", "void 0":
		return Literal{Text: "null"}
	case "true", "!0":
		return Literal{Text: "true"}
	case "false", "!1":
		return Literal{Text: "false"}
	}
	if isNumber(arg) {
		return Literal{Text: arg}
	}
	if arg != "" && (arg[0] == '[' || arg[0] == '{') {
		return Literal{Text: arg}
	}
	// Anything else (calls, references) cannot be represented; keep it as text
	return Literal{Text: arg, Quoted: true}
}

func isNumber(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	_, err := strconv.ParseInt(s, 0, 64)
	return err == nil
}

// ParseInvocation maps the parameter names of the first invoked function in
// script to the argument literals it is called with.
func ParseInvocation(script string) (map[string]Literal, error) {
	fn := strings.Index(script, "function(")
	if fn < 0 {
		return nil, ErrNoInvocation
	}
	paramsOpen := fn + len("function")
	paramsClose := strings.IndexByte(script[paramsOpen:], ')')
	if paramsClose < 0 {
		return nil, ErrNoInvocation
	}
	paramsClose += paramsOpen

	bodyOpen := skipSpace(script, paramsClose+1)
	if bodyOpen >= len(script) || script[bodyOpen] != '{' {
		return nil, ErrNoInvocation
	}
	bodyClose := matchClose(script, bodyOpen)
	if bodyClose < 0 {
		return nil, fmt.Errorf("jsresolve: unbalanced function body")
	}

	// Both "}(args))" and "})(args)" call styles are used in the wild
	argsOpen := skipSpace(script, bodyClose+1)
	if argsOpen < len(script) && script[argsOpen] == ')' {
		argsOpen = skipSpace(script, argsOpen+1)
	}
	if argsOpen >= len(script) || script[argsOpen] != '(' {
		return nil, ErrNoInvocation
	}
	argsClose := matchClose(script, argsOpen)
	if argsClose < 0 {
		return nil, fmt.Errorf("jsresolve: unbalanced argument list")
	}

	params := splitTopLevel(script[paramsOpen+1 : paramsClose])
	args := splitTopLevel(script[argsOpen+1 : argsClose])

	mapping := make(map[string]Literal, len(params))
	for i := 0; i < len(params) && i < len(args); i++ {
		name := strings.TrimSpace(params[i])
		if name == "" {
			continue
		}
		mapping[name] = parseLiteral(args[i])
	}
	return mapping, nil
}

// Substitute replaces every identifier in text that is a parameter in mapping
// with its literal: string arguments as double-quoted strings, other
// arguments in their JSON form. String literals, object keys, property names
// and the literals true, false, null and undefined are copied unchanged.
func Substitute(text string, mapping map[string]Literal) string {
	return rewriteIdentifiers(text, func(word string) (string, bool) {
		if keywords[word] {
			return "", false
		}
		value, ok := mapping[word]
		if !ok {
			return "", false
		}
		return value.JSON(), true
	})
}

func rewriteIdentifiers(text string, replace func(word string) (string, bool)) string {
	var sb strings.Builder
	sb.Grow(len(text))

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case isQuote(c):
			end := skipString(text, i)
			sb.WriteString(text[i:end])
			i = end
		case isIdentStart(c):
			end := i + 1
			for end < len(text) && isIdentPart(text[end]) {
				end++
			}
			word := text[i:end]
			if isObjectKey(text, i, end) || prevNonSpace(text, i) == '.' {
				sb.WriteString(word)
			} else if replacement, ok := replace(word); ok {
				sb.WriteString(replacement)
			} else {
				sb.WriteString(word)
			}
			i = end
		case c >= '0' && c <= '9':
			// Keep numbers like 1e5 or 0x1F whole so their letters are not read as identifiers
			end := i + 1
			for end < len(text) && (isIdentPart(text[end]) || text[end] == '.') {
				end++
			}
			sb.WriteString(text[i:end])
			i = end
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

func quote(value string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// ParseObject decodes a JavaScript object or array literal into v. Unquoted
// keys, single quotes and trailing commas are accepted. undefined, void 0 and
// the minifier forms !0 and !1 are read as null, true and false.
func ParseObject(text string, v any) error {
	literal := normalizeLiterals(text)
	literal = rewriteIdentifiers(literal, func(word string) (string, bool) {
		if word == "undefined" {
			return "null", true
		}
		return "", false
	})

	if err := json5.Unmarshal([]byte(literal), v); err != nil {
		return fmt.Errorf("jsresolve: failed to parse object literal: %w", err)
	}
	return nil
}

// normalizeLiterals rewrites single-quoted and backtick strings as JSON strings,
// and outside strings the minified booleans !0 and !1 and void 0
func normalizeLiterals(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '"':
			end := skipString(text, i)
			sb.WriteString(text[i:end])
			i = end
		case c == '\'' || c == '`':
			end := skipString(text, i)
			sb.WriteString(quote(unquote(text[i:end])))
			i = end
		case c == '!' && i+1 < len(text) && (text[i+1] == '0' || text[i+1] == '1') &&
			(i+2 >= len(text) || !isIdentPart(text[i+2])):
			if text[i+1] == '0' {
				sb.WriteString("true")
			} else {
				sb.WriteString("false")
			}
			i += 2
		case c == 'v' && (i == 0 || !isIdentPart(text[i-1])):
			if end, ok := voidZero(text, i); ok {
				sb.WriteString("null")
				i = end
				continue
			}
			sb.WriteByte(c)
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

// voidZero reports whether "void 0" starts at text[i] and returns the index past it
func voidZero(text string, i int) (int, bool) {
	if !strings.HasPrefix(text[i:], "void") {
		return 0, false
	}
	j := skipSpace(text, i+len("void"))
	if j == i+len("void") || j >= len(text) || text[j] != '0' {
		return 0, false
	}
	if j+1 < len(text) && (isIdentPart(text[j+1]) || text[j+1] == '.') {
		return 0, false
	}
	return j + 1, true
}

// ExtractValue returns the literal assigned to key (as in "key:[...]" or
// "key:{...}") outside of any string, up to its balanced closing bracket.
func ExtractValue(script, key string) (string, bool) {
	for i := 0; i < len(script); {
		c := script[i]
		switch {
		case isQuote(c):
			i = skipString(script, i)
			continue
		case isIdentStart(c):
			end := i + 1
			for end < len(script) && isIdentPart(script[end]) {
				end++
			}
			if script[i:end] == key {
				colon := skipSpace(script, end)
				if colon < len(script) && script[colon] == ':' {
					open := skipSpace(script, colon+1)
					if open < len(script) && (script[open] == '[' || script[open] == '{') {
						if close := matchClose(script, open); close > 0 {
							return script[open : close+1], true
						}
					}
				}
			}
			i = end
			continue
		}
		i++
	}
	return "", false
}

// Resolve extracts the literal assigned to key inside the invoked function of
// script, substitutes the closure parameters and decodes the result into v.
func Resolve(script, key string, v any) error {
	mapping, err := ParseInvocation(script)
	if err != nil {
		return err
	}
	raw, ok := ExtractValue(script, key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return ParseObject(Substitute(raw, mapping), v)
}
