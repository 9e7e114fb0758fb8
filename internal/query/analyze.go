package query

import (
	"strings"
	"unicode"
)

// HasOuterJoin reports whether sql contains a LEFT, RIGHT, or FULL join
// outside literals and comments. Columns from the inner side of an outer
// join can be NULL even when their table declares NOT NULL, so the
// introspector downgrades proven non-null to unknown when this reports
// true. Erring toward true is safe; unknown nullability never claims
// anything.
func HasOuterJoin(sql string) bool {
	runes := []rune(sql)
	discard := func(rune) {}

	var word strings.Builder
	prev := ""
	endWord := func() bool {
		if word.Len() == 0 {
			return false
		}
		w := strings.ToLower(word.String())
		word.Reset()
		if w == "join" && (prev == "left" || prev == "right" || prev == "full" || prev == "outer") {
			return true
		}
		prev = w
		return false
	}

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
			i++
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			if endWord() {
				return true
			}
			i = skipLineComment(runes, i+2)
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			if endWord() {
				return true
			}
			i = skipBlockComment(runes, i+2)
		case r == '\'' || r == '"' || r == '`':
			if endWord() {
				return true
			}
			i = copyQuoted(runes, i, r, discard)
			prev = ""
		case r == '[':
			if endWord() {
				return true
			}
			i = copyBracketed(runes, i, discard)
			prev = ""
		case r == '$':
			if endWord() {
				return true
			}
			if end, ok := dollarQuoteEnd(runes, i); ok {
				i = end
				prev = ""
			} else {
				i++
			}
		default:
			if endWord() {
				return true
			}
			i++
		}
	}
	return endWord()
}
