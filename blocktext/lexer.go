package blocktext

import (
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for block text
// ---------------------------------------------------------------------------

// Lexer tokenizes block text.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int
	col     int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
	l.col++
}

func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) atEOF() bool { return l.pos >= len(l.input) }

// Tokenize returns every token of input up to and including EOF, or up to
// the first error token.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var out []Token
	for {
		tok := l.NextToken()
		out = append(out, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return out
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	for !l.atEOF() && (l.ch == ' ' || l.ch == '\t' || l.ch == '\r') {
		l.readChar()
	}
	pos := l.position()
	if l.atEOF() {
		return Token{Type: TokenEOF, Pos: pos}
	}

	switch {
	case l.ch == '\n':
		l.readChar()
		return Token{Type: TokenNewline, Literal: "\n", Raw: "\n", Pos: pos}
	case l.ch == '/' && l.peekChar() == '/':
		return l.readComment(pos)
	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Raw: "(", Pos: pos}
	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Raw: ")", Pos: pos}
	case l.ch == '<':
		l.readChar()
		return Token{Type: TokenLAngle, Literal: "<", Raw: "<", Pos: pos}
	case l.ch == '>':
		l.readChar()
		return Token{Type: TokenRAngle, Literal: ">", Raw: ">", Pos: pos}
	case l.ch == '[':
		return l.readLiteral(pos)
	case l.ch == ']':
		l.readChar()
		return Token{Type: TokenError, Literal: "unexpected ]", Raw: "]", Pos: pos}
	case l.ch == '-' && isDigit(l.peekChar()):
		return l.readWordOrNumber(pos)
	case isOpChar(l.ch) && isDelimiter(l.peekChar()):
		op := string(l.ch)
		l.readChar()
		return Token{Type: TokenOp, Literal: op, Raw: op, Pos: pos}
	}
	return l.readWordOrNumber(pos)
}

func (l *Lexer) readComment(pos Position) Token {
	start := l.pos
	for !l.atEOF() && l.ch != '\n' {
		l.readChar()
	}
	raw := l.input[start:l.pos]
	text := strings.TrimSpace(strings.TrimPrefix(raw, "//"))
	return Token{Type: TokenComment, Literal: text, Raw: raw, Pos: pos}
}

// readWordOrNumber reads up to the next delimiter. The run is a number when
// all of it has number syntax, so "10s" is a word.
func (l *Lexer) readWordOrNumber(pos Position) Token {
	start := l.pos
	for !l.atEOF() && !isDelimiter(l.ch) {
		l.readChar()
	}
	raw := l.input[start:l.pos]
	if isNumber(raw) {
		return Token{Type: TokenNumber, Literal: raw, Raw: raw, Pos: pos}
	}
	return Token{Type: TokenWord, Literal: raw, Raw: raw, Pos: pos}
}

// readLiteral reads a bracketed literal. The raw content decides the kind:
// "#rgb" and "#rrggbb" are colors, content ending in " v" is a dropdown.
func (l *Lexer) readLiteral(pos Position) Token {
	start := l.pos
	l.readChar() // [
	var (
		text strings.Builder
		raw  strings.Builder
	)
	for {
		if l.atEOF() || l.ch == '\n' {
			return Token{Type: TokenError, Literal: "unterminated literal", Raw: l.input[start:l.pos], Pos: pos}
		}
		if l.ch == ']' {
			l.readChar()
			break
		}
		if l.ch == '[' {
			return Token{Type: TokenError, Literal: "unescaped [ in literal", Raw: l.input[start:l.pos], Pos: l.position()}
		}
		if l.ch == '\\' {
			escPos := l.position()
			l.readChar()
			switch l.ch {
			case ']', '[', '\\':
				text.WriteRune(l.ch)
				raw.WriteRune('\\')
				raw.WriteRune(l.ch)
				l.readChar()
				continue
			}
			return Token{Type: TokenError, Literal: "invalid escape in literal", Raw: l.input[start:l.pos], Pos: escPos}
		}
		text.WriteRune(l.ch)
		raw.WriteRune(l.ch)
		l.readChar()
	}

	src := l.input[start:l.pos]
	content := raw.String()
	switch {
	case isHexColor(content):
		return Token{Type: TokenColor, Literal: content, Raw: src, Pos: pos}
	case strings.HasSuffix(content, " v"):
		s := text.String()
		return Token{Type: TokenDropdown, Literal: s[:len(s)-2], Raw: src, Pos: pos}
	}
	return Token{Type: TokenString, Literal: text.String(), Raw: src, Pos: pos}
}

// ---------------------------------------------------------------------------
// Character classes
// ---------------------------------------------------------------------------

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isOpChar(ch rune) bool {
	switch ch {
	case '+', '-', '*', '/', '=':
		return true
	}
	return false
}

// isDelimiter reports whether ch ends a word. EOF is a delimiter.
func isDelimiter(ch rune) bool {
	switch ch {
	case 0, ' ', '\t', '\r', '\n', '(', ')', '[', ']', '<', '>':
		return true
	}
	return false
}

// isNumber reports whether s is a decimal number: an optional minus, digits
// with an optional point (".5" and "5." included), and an optional exponent.
func isNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	mant, exp, hasExp := strings.Cut(strings.ToLower(s), "e")
	if hasExp {
		if exp != "" && (exp[0] == '+' || exp[0] == '-') {
			exp = exp[1:]
		}
		if !allDigits(exp) {
			return false
		}
	}
	intPart, frac, hasDot := strings.Cut(mant, ".")
	if intPart == "" && frac == "" {
		return false
	}
	if !hasDot {
		return allDigits(intPart)
	}
	return (intPart == "" || allDigits(intPart)) && (frac == "" || allDigits(frac))
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(rune(s[i])) {
			return false
		}
	}
	return true
}

func isHexColor(s string) bool {
	if len(s) != 4 && len(s) != 7 || s[0] != '#' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isDigit(rune(c)) && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
