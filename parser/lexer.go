package parser

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenAtom
	tokenVar
	tokenInt
	tokenFloat
	tokenStr
	tokenPunct
	tokenEnd
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of input"
	case tokenAtom:
		return "atom"
	case tokenVar:
		return "variable"
	case tokenInt:
		return "integer"
	case tokenFloat:
		return "float"
	case tokenStr:
		return "string"
	case tokenPunct:
		return "punctuation"
	case tokenEnd:
		return "end of clause"
	}
	return fmt.Sprintf("tokenKind(%d)", int(k))
}

type token struct {
	kind tokenKind
	text string
	ival *big.Int
	fval float64
	// glued marks a token that immediately follows the previous one,
	// with no layout in between. 'f(' opens a compound, 'f (' doesn't.
	glued     bool
	line, col int
}

func (t token) String() string {
	if t.kind == tokenEOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.text)
}

// symbolChars compose unquoted symbolic atoms, e.g. '=..' and '\+'.
const symbolChars = `#$&*+-./:<=>?@^~\`

func isSymbolChar(r rune) bool {
	return strings.ContainsRune(symbolChars, r)
}

func isSoloChar(r rune) bool {
	return r == '!' || r == ';' || r == ','
}

func isAlnumChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type lexer struct {
	src       []rune
	pos       int
	line, col int
}

func newLexer(text string) *lexer {
	return &lexer{src: []rune(text), line: 1, col: 1}
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	return errors.Errorf("%d:%d: "+format, append([]interface{}{l.line, l.col}, args...)...)
}

func (l *lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) peekRuneAt(offset int) (rune, bool) {
	if l.pos+offset >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos+offset], true
}

func (l *lexer) nextRune() (rune, bool) {
	r, ok := l.peekRune()
	if !ok {
		return 0, false
	}
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r, true
}

// skipLayout consumes whitespace and comments, and reports whether any
// layout was present.
func (l *lexer) skipLayout() (bool, error) {
	skipped := false
	for {
		r, ok := l.peekRune()
		if !ok {
			return skipped, nil
		}
		switch {
		case unicode.IsSpace(r):
			l.nextRune()
			skipped = true
		case r == '%':
			for {
				r, ok := l.nextRune()
				if !ok || r == '\n' {
					break
				}
			}
			skipped = true
		case r == '/':
			if r2, ok := l.peekRuneAt(1); !ok || r2 != '*' {
				return skipped, nil
			}
			l.nextRune()
			l.nextRune()
			closed := false
			for {
				r, ok := l.nextRune()
				if !ok {
					break
				}
				if r == '*' {
					if r2, ok := l.peekRune(); ok && r2 == '/' {
						l.nextRune()
						closed = true
						break
					}
				}
			}
			if !closed {
				return skipped, l.errorf("unterminated block comment")
			}
			skipped = true
		default:
			return skipped, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	skipped, err := l.skipLayout()
	if err != nil {
		return token{}, err
	}
	tok := token{glued: !skipped, line: l.line, col: l.col}
	r, ok := l.peekRune()
	if !ok {
		tok.kind = tokenEOF
		return tok, nil
	}
	switch {
	case r == '(' || r == ')' || r == '[' || r == ']' || r == '{' || r == '}' || r == '|':
		l.nextRune()
		tok.kind = tokenPunct
		tok.text = string(r)
		return tok, nil
	case isSoloChar(r):
		l.nextRune()
		tok.kind = tokenAtom
		tok.text = string(r)
		return tok, nil
	case r == '_' || unicode.IsUpper(r):
		tok.kind = tokenVar
		tok.text = l.takeWhile(isAlnumChar)
		return tok, nil
	case unicode.IsLower(r):
		tok.kind = tokenAtom
		tok.text = l.takeWhile(isAlnumChar)
		return tok, nil
	case unicode.IsDigit(r):
		return l.lexNumber(tok)
	case r == '\'':
		text, err := l.lexQuoted('\'')
		if err != nil {
			return token{}, err
		}
		tok.kind = tokenAtom
		tok.text = text
		return tok, nil
	case r == '"':
		text, err := l.lexQuoted('"')
		if err != nil {
			return token{}, err
		}
		tok.kind = tokenStr
		tok.text = text
		return tok, nil
	case isSymbolChar(r):
		text := l.takeWhile(isSymbolChar)
		if text == "." {
			if r, ok := l.peekRune(); !ok || unicode.IsSpace(r) || r == '%' {
				tok.kind = tokenEnd
				tok.text = "."
				return tok, nil
			}
		}
		tok.kind = tokenAtom
		tok.text = text
		return tok, nil
	}
	return token{}, l.errorf("unexpected character %q", r)
}

func (l *lexer) takeWhile(pred func(rune) bool) string {
	var b strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !pred(r) {
			break
		}
		l.nextRune()
		b.WriteRune(r)
	}
	return b.String()
}

func (l *lexer) lexNumber(tok token) (token, error) {
	if r, _ := l.peekRune(); r == '0' {
		if r2, ok := l.peekRuneAt(1); ok {
			switch r2 {
			case '\'':
				l.nextRune()
				l.nextRune()
				return l.lexCharCode(tok)
			case 'x', 'o', 'b':
				return l.lexRadix(tok, r2)
			}
		}
	}
	intPart := l.takeWhile(unicode.IsDigit)
	// A fraction needs a digit right after the dot; '2.' ends a clause.
	if r, ok := l.peekRune(); ok && r == '.' {
		if r2, ok := l.peekRuneAt(1); ok && unicode.IsDigit(r2) {
			l.nextRune()
			frac := l.takeWhile(unicode.IsDigit)
			exp, err := l.lexExponent()
			if err != nil {
				return token{}, err
			}
			return l.makeFloat(tok, intPart+"."+frac+exp)
		}
	}
	if r, ok := l.peekRune(); ok && (r == 'e' || r == 'E') {
		if exp, err := l.lexExponent(); err != nil {
			return token{}, err
		} else if exp != "" {
			return l.makeFloat(tok, intPart+".0"+exp)
		}
	}
	i, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return token{}, l.errorf("malformed integer %q", intPart)
	}
	tok.kind = tokenInt
	tok.text = intPart
	tok.ival = i
	return tok, nil
}

func (l *lexer) lexExponent() (string, error) {
	r, ok := l.peekRune()
	if !ok || (r != 'e' && r != 'E') {
		return "", nil
	}
	offset := 1
	sign := ""
	if r2, ok := l.peekRuneAt(1); ok && (r2 == '+' || r2 == '-') {
		sign = string(r2)
		offset = 2
	}
	if r2, ok := l.peekRuneAt(offset); !ok || !unicode.IsDigit(r2) {
		return "", nil
	}
	l.nextRune()
	if sign != "" {
		l.nextRune()
	}
	return "e" + sign + l.takeWhile(unicode.IsDigit), nil
}

func (l *lexer) makeFloat(tok token, text string) (token, error) {
	f, ok := new(big.Float).SetString(text)
	if !ok {
		return token{}, l.errorf("malformed float %q", text)
	}
	val, _ := f.Float64()
	tok.kind = tokenFloat
	tok.text = text
	tok.fval = val
	return tok, nil
}

func (l *lexer) lexRadix(tok token, marker rune) (token, error) {
	base := 16
	pred := func(r rune) bool {
		return unicode.IsDigit(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
	}
	switch marker {
	case 'o':
		base = 8
		pred = func(r rune) bool { return '0' <= r && r <= '7' }
	case 'b':
		base = 2
		pred = func(r rune) bool { return r == '0' || r == '1' }
	}
	if r, ok := l.peekRuneAt(2); !ok || !pred(r) {
		// Not a radix literal after all; lex '0' alone.
		l.nextRune()
		tok.kind = tokenInt
		tok.text = "0"
		tok.ival = big.NewInt(0)
		return tok, nil
	}
	l.nextRune()
	l.nextRune()
	digits := l.takeWhile(pred)
	i, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return token{}, l.errorf("malformed 0%c literal", marker)
	}
	tok.kind = tokenInt
	tok.text = fmt.Sprintf("0%c%s", marker, digits)
	tok.ival = i
	return tok, nil
}

// lexCharCode reads the remainder of a 0'c literal.
func (l *lexer) lexCharCode(tok token) (token, error) {
	r, ok := l.nextRune()
	if !ok {
		return token{}, l.errorf("unterminated character code")
	}
	if r == '\\' {
		esc, err := l.lexEscape('\'')
		if err != nil {
			return token{}, err
		}
		r = esc
	} else if r == '\'' {
		// 0''' is the code of the quote char.
		r2, ok := l.nextRune()
		if !ok || r2 != '\'' {
			return token{}, l.errorf("unterminated character code")
		}
	}
	tok.kind = tokenInt
	tok.text = fmt.Sprintf("0'%c", r)
	tok.ival = big.NewInt(int64(r))
	return tok, nil
}

func (l *lexer) lexQuoted(delim rune) (string, error) {
	l.nextRune()
	var b strings.Builder
	for {
		r, ok := l.nextRune()
		if !ok {
			return "", l.errorf("unterminated quoted token")
		}
		switch r {
		case delim:
			if r2, ok := l.peekRune(); ok && r2 == delim {
				l.nextRune()
				b.WriteRune(delim)
				continue
			}
			return b.String(), nil
		case '\\':
			if r2, ok := l.peekRune(); ok && r2 == '\n' {
				l.nextRune()
				continue
			}
			esc, err := l.lexEscape(delim)
			if err != nil {
				return "", err
			}
			b.WriteRune(esc)
		case '\n':
			return "", l.errorf("newline in quoted token")
		default:
			b.WriteRune(r)
		}
	}
}

func (l *lexer) lexEscape(delim rune) (rune, error) {
	r, ok := l.nextRune()
	if !ok {
		return 0, l.errorf("unterminated escape sequence")
	}
	switch r {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case '0':
		return 0, nil
	case '\\', '\'', '"', '`':
		return r, nil
	case 'x':
		digits := l.takeWhile(func(r rune) bool {
			return unicode.IsDigit(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
		})
		code, ok := new(big.Int).SetString(digits, 16)
		if !ok || !code.IsInt64() {
			return 0, l.errorf(`malformed \x escape`)
		}
		if r2, ok := l.peekRune(); ok && r2 == '\\' {
			l.nextRune()
		}
		return rune(code.Int64()), nil
	}
	return 0, l.errorf("unknown escape sequence \\%c", r)
}
