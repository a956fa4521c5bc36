package blocktext

import "fmt"

// ---------------------------------------------------------------------------
// Token types for block text
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenNewline
	TokenComment // // to end of line

	TokenWord     // move, steps, x:
	TokenNumber   // 10, -3.5
	TokenString   // [hello]
	TokenColor    // [#f00]
	TokenDropdown // [space v]

	TokenLParen // (
	TokenRParen // )
	TokenLAngle // <
	TokenRAngle // >
	TokenOp     // + - * / = standing alone
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "EOF",
	TokenError:    "ERROR",
	TokenNewline:  "NEWLINE",
	TokenComment:  "COMMENT",
	TokenWord:     "WORD",
	TokenNumber:   "NUMBER",
	TokenString:   "STRING",
	TokenColor:    "COLOR",
	TokenDropdown: "DROPDOWN",
	TokenLParen:   "(",
	TokenRParen:   ")",
	TokenLAngle:   "<",
	TokenRAngle:   ">",
	TokenOp:       "OP",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// Position is a 1-based line and column; columns count runes.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a lexical token. For bracketed literals Literal holds the
// unescaped content; for dropdowns the trailing " v" is removed.
type Token struct {
	Type    TokenType
	Literal string
	Raw     string // source text of the token
	Pos     Position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenNewline:
		return "end of line"
	}
	return fmt.Sprintf("%q", t.Raw)
}

// IsOperand reports whether t can begin an operand.
func (t Token) IsOperand() bool {
	switch t.Type {
	case TokenWord, TokenNumber, TokenString, TokenColor, TokenDropdown, TokenLParen, TokenLAngle:
		return true
	}
	return false
}
