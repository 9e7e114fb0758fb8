package query

import (
	"strings"
	"unicode"
)

// Normalize rewrites sql into the canonical form used for content hashing:
// runs of whitespace outside literals collapse to a single space, comments
// are removed (each acting as a whitespace joint), and leading/trailing
// whitespace is trimmed. Bytes inside string literals, quoted identifiers,
// and dollar-quoted blocks are preserved exactly, including escaped quotes
// and backslash escapes.
//
// Normalize is idempotent and is never used to build text for execution,
// only for hashing. An unterminated literal or comment is not an error
// here; the database will reject the query, but hashing must still be
// deterministic, so the remainder is passed through as-is.
func Normalize(sql string) string {
	runes := []rune(sql)
	var out strings.Builder
	out.Grow(len(sql))

	// pendingSpace records that whitespace or a comment was seen since the
	// last emitted rune. It is flushed as one space before the next token,
	// which collapses runs and trims both ends for free.
	pendingSpace := false
	emit := func(r rune) {
		if pendingSpace && out.Len() > 0 {
			out.WriteByte(' ')
		}
		pendingSpace = false
		out.WriteRune(r)
	}

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			i++
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			i = skipLineComment(runes, i+2)
			pendingSpace = true
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i = skipBlockComment(runes, i+2)
			pendingSpace = true
		case r == '\'' || r == '"' || r == '`':
			i = copyQuoted(runes, i, r, emit)
		case r == '[':
			i = copyBracketed(runes, i, emit)
		case r == '$':
			if end, ok := dollarQuoteEnd(runes, i); ok {
				for _, q := range runes[i:end] {
					emit(q)
				}
				i = end
			} else {
				emit(r)
				i++
			}
		default:
			emit(r)
			i++
		}
	}
	return out.String()
}

// skipLineComment consumes to the end of line. The newline itself is left
// for the whitespace path so it folds into the pending space.
func skipLineComment(runes []rune, i int) int {
	for i < len(runes) && runes[i] != '\n' {
		i++
	}
	return i
}

// skipBlockComment consumes a block comment, honoring nesting the way
// Postgres does. An unterminated comment runs to the end of input.
func skipBlockComment(runes []rune, i int) int {
	depth := 1
	for i < len(runes) {
		if runes[i] == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			depth++
			i += 2
			continue
		}
		if runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/' {
			depth--
			i += 2
			if depth == 0 {
				return i
			}
			continue
		}
		i++
	}
	return i
}

// copyQuoted copies a quoted region verbatim: the opening quote, the body
// with doubled-quote and backslash escapes intact, and the closing quote.
// Works for single-quote strings and double-quote or backtick identifiers.
func copyQuoted(runes []rune, i int, quote rune, emit func(rune)) int {
	emit(runes[i])
	i++
	for i < len(runes) {
		r := runes[i]
		emit(r)
		i++
		switch {
		case r == '\\' && i < len(runes):
			emit(runes[i])
			i++
		case r == quote:
			if i < len(runes) && runes[i] == quote {
				// doubled quote stays inside the literal
				emit(runes[i])
				i++
				continue
			}
			return i
		}
	}
	return i
}

// copyBracketed copies a [bracketed] identifier verbatim.
func copyBracketed(runes []rune, i int, emit func(rune)) int {
	emit(runes[i])
	i++
	for i < len(runes) {
		r := runes[i]
		emit(r)
		i++
		if r == ']' {
			return i
		}
	}
	return i
}

// dollarQuoteEnd reports whether a dollar-quoted block starts at i and, if
// so, the index just past its closing tag (or end of input when
// unterminated). A '$' followed by a digit is a positional parameter, never
// a quote tag.
func dollarQuoteEnd(runes []rune, i int) (int, bool) {
	j := i + 1
	for j < len(runes) && isDollarTagRune(runes[j]) {
		j++
	}
	if j >= len(runes) || runes[j] != '$' {
		return 0, false
	}
	if j > i+1 && unicode.IsDigit(runes[i+1]) {
		return 0, false
	}
	tag := string(runes[i : j+1])
	rest := string(runes[j+1:])
	if end := strings.Index(rest, tag); end >= 0 {
		return j + 1 + len([]rune(rest[:end])) + len([]rune(tag)), true
	}
	return len(runes), true
}

func isDollarTagRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
