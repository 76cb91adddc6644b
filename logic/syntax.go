package logic

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func firstRune(s string) (rune, bool) {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size < 2 {
		return 0, false
	}
	return r, true
}

func isIdent(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func isIdents(text string) bool {
	for _, ch := range text {
		if !isIdent(ch) {
			return false
		}
	}
	return true
}

func isVarFirst(ch rune) bool {
	return ch == '_' || unicode.IsUpper(ch)
}

// IsVar returns whether text is a valid variable name.
func IsVar(text string) bool {
	ch, ok := firstRune(text)
	if !ok {
		return false
	}
	if !isVarFirst(ch) {
		return false
	}
	return isIdents(text)
}

// IsInt returns whether text is a sequence of digits.
func IsInt(text string) bool {
	if text == "" {
		return false
	}
	for _, ch := range text {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

const symbolicChars = "+-*/\\^<>=~:.?@#&$"

func isSymbolic(text string) bool {
	if text == "" {
		return false
	}
	for _, ch := range text {
		if !strings.ContainsRune(symbolicChars, ch) {
			return false
		}
	}
	return true
}

var soloAtoms = map[string]struct{}{
	"[]": {}, "{}": {}, "!": {}, ";": {}, ",": {},
}

// NeedsQuotes returns whether an atom with this text must be quoted
// when printed.
func NeedsQuotes(text string) bool {
	if _, ok := soloAtoms[text]; ok {
		return false
	}
	if isSymbolic(text) {
		return false
	}
	ch, ok := firstRune(text)
	if !ok {
		return true
	}
	if isVarFirst(ch) || unicode.IsDigit(ch) {
		return true
	}
	return !isIdents(text)
}

var atomEscapes = map[rune]string{
	'\n': `\n`,
	'\t': `\t`,
	'\v': `\v`,
	'\f': `\f`,
	'\r': `\r`,
	'\'': `\'`,
	'\\': `\\`,
}

// FormatAtom renders an atom's text, quoting it when necessary.
func FormatAtom(text string) string {
	if !NeedsQuotes(text) {
		return text
	}
	var b strings.Builder
	b.WriteRune('\'')
	for _, ch := range text {
		if exp, ok := atomEscapes[ch]; ok {
			b.WriteString(exp)
		} else {
			b.WriteRune(ch)
		}
	}
	b.WriteRune('\'')
	return b.String()
}

// FormatString renders a string term with double quotes.
func FormatString(text string) string {
	var b strings.Builder
	b.WriteRune('"')
	for _, ch := range text {
		switch ch {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(ch)
		}
	}
	b.WriteRune('"')
	return b.String()
}
