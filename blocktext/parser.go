package blocktext

import (
	"fmt"
	"strings"

	"github.com/chazu/scratchkit/blocks"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// Error is a parse failure at a source position. Expected lists what would
// have been accepted at that point, when known.
type Error struct {
	Line     int
	Column   int
	Token    string
	Expected []string
	Msg      string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// ---------------------------------------------------------------------------
// Parser: block text to scripts
// ---------------------------------------------------------------------------

// Options configures parsing and emitting.
type Options struct {
	// Catalog resolves block text; nil means blocks.Default().
	Catalog *blocks.Catalog
	// Scope decides whether a bare name in (...) reads a variable or a
	// list, and supplies menu options.
	Scope *blocks.Scope
}

func (o Options) catalog() *blocks.Catalog {
	if o.Catalog == nil {
		return blocks.Default()
	}
	return o.Catalog
}

// Operator binding powers.
const (
	precCompare = 10 // < = >
	precSum     = 20 // + -
	precProduct = 30 // * /
)

type exprContext int

const (
	ctxLine exprContext = iota
	ctxParen
	ctxAngle
)

// Parser parses block text.
type Parser struct {
	cat    *blocks.Catalog
	scope  *blocks.Scope
	tokens []Token
	pos    int
}

// NewParser creates a parser over src.
func NewParser(src string, opts Options) *Parser {
	return &Parser{
		cat:    opts.catalog(),
		scope:  opts.Scope,
		tokens: Tokenize(src),
	}
}

// Parse parses src into scripts. Scripts are separated by blank lines.
func Parse(src string, opts Options) ([]*blocks.Script, error) {
	return NewParser(src, opts).ParseScripts()
}

// ParseScripts parses the whole input.
func (p *Parser) ParseScripts() ([]*blocks.Script, error) {
	if last := p.tokens[len(p.tokens)-1]; last.Type == TokenError {
		return nil, p.errorAt(last, last.Literal)
	}
	var scripts []*blocks.Script
	for {
		for p.cur().Type == TokenNewline || p.cur().Type == TokenComment {
			p.advance()
		}
		if p.cur().Type == TokenEOF {
			return scripts, nil
		}
		stack, _, err := p.parseStack(true)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, &blocks.Script{Blocks: stack})
	}
}

func (p *Parser) cur() Token { return p.tokens[p.pos] }

func (p *Parser) peek() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) errorAt(tok Token, msg string, expected ...string) *Error {
	return &Error{
		Line:     tok.Pos.Line,
		Column:   tok.Pos.Column,
		Token:    tok.String(),
		Expected: expected,
		Msg:      msg,
	}
}

// ---------------------------------------------------------------------------
// Stacks and statements
// ---------------------------------------------------------------------------

func atLineEnd(t Token) bool {
	return t.Type == TokenNewline || t.Type == TokenEOF || t.Type == TokenComment
}

// isTerminator reports whether the current line is a bare "end" or "else".
func (p *Parser) isTerminator() bool {
	tok := p.cur()
	return tok.Type == TokenWord && (tok.Literal == "end" || tok.Literal == "else") && atLineEnd(p.peek())
}

// skipLine consumes the rest of the current line including its newline.
func (p *Parser) skipLine() {
	for p.cur().Type != TokenNewline && p.cur().Type != TokenEOF {
		p.advance()
	}
	if p.cur().Type == TokenNewline {
		p.advance()
	}
}

// parseStack reads blocks until a blank line (top level only), EOF, or an
// end/else line, and returns the token that stopped it.
func (p *Parser) parseStack(top bool) (blocks.Stack, Token, error) {
	var stack blocks.Stack
	for {
		tok := p.cur()
		switch {
		case tok.Type == TokenEOF:
			return stack, tok, nil
		case tok.Type == TokenNewline:
			if top {
				return stack, tok, nil
			}
			p.advance()
			continue
		case tok.Type == TokenComment:
			if len(stack) > 0 {
				attachComment(stack[len(stack)-1], tok.Literal)
			}
			p.skipLine()
			continue
		case p.isTerminator():
			if top {
				return nil, tok, p.errorAt(tok, fmt.Sprintf("unexpected %s", tok.Literal))
			}
			p.skipLine()
			return stack, tok, nil
		}

		blk, err := p.parseStatement()
		if err != nil {
			return nil, tok, err
		}
		if err := checkPlacement(stack, blk, top); err != nil {
			return nil, tok, p.errorAt(tok, err.Error())
		}
		if blk.Type.IsC() {
			if err := p.parseMouths(blk, tok); err != nil {
				return nil, tok, err
			}
		}
		stack = append(stack, blk)
	}
}

func attachComment(b *blocks.Block, text string) {
	if b.Comment == "" {
		b.Comment = text
		return
	}
	b.Comment += "\n" + text
}

// checkPlacement enforces where a block of each shape may appear.
func checkPlacement(stack blocks.Stack, blk *blocks.Block, top bool) error {
	shape := blk.Shape()
	if len(stack) > 0 {
		prev := stack[len(stack)-1]
		switch {
		case prev.Shape() == blocks.ShapeCap:
			return fmt.Errorf("nothing can follow %q", prev.Type.Text)
		case prev.Shape().IsExpression():
			return fmt.Errorf("nothing can follow a %s block", prev.Shape())
		}
	}
	switch {
	case shape == blocks.ShapeHat && (!top || len(stack) > 0):
		return fmt.Errorf("hat block %q must start a script", blk.Type.Text)
	case shape.IsExpression() && (!top || len(stack) > 0):
		return fmt.Errorf("%s block %q cannot be stacked", shape, blk.Type.Text)
	}
	return nil
}

// parseStatement parses one line holding a block and consumes its newline.
// A trailing comment attaches to the block.
func (p *Parser) parseStatement() (*blocks.Block, error) {
	start := p.cur()
	n, err := p.parseExpr(0, ctxLine)
	if err != nil {
		return nil, err
	}
	if n.kind != nodeBlock {
		return nil, p.errorAt(start, fmt.Sprintf("block expected, got %s", n.shapeName()))
	}
	tok := p.cur()
	if tok.Type == TokenComment {
		attachComment(n.block, tok.Literal)
		p.advance()
		tok = p.cur()
	}
	switch tok.Type {
	case TokenNewline:
		p.advance()
	case TokenEOF:
	default:
		return nil, p.errorAt(tok, fmt.Sprintf("unexpected %s", tok), "end of line")
	}
	return n.block, nil
}

// parseMouths fills the stack arguments of a C block. An "else" line
// switches a one-mouth block to its two-mouth variant.
func (p *Parser) parseMouths(blk *blocks.Block, start Token) error {
	first := len(blk.Type.Inserts)
	body, term, err := p.parseStack(false)
	if err != nil {
		return err
	}
	if term.Type == TokenEOF {
		return p.errorAt(term, fmt.Sprintf("missing end for %q at line %d", blk.Type.Text, start.Pos.Line), "end")
	}
	blk.Args[first] = body
	if term.Literal == "end" {
		return nil
	}

	if blk.Type.Mouths < 2 {
		v := p.cat.Variant(blk.Type, 2)
		if v == nil {
			return p.errorAt(term, fmt.Sprintf("%q has no else", blk.Type.Text), "end")
		}
		blk.Type = v
		blk.Command = v.Command
		for len(blk.Args) < v.Arity() {
			blk.Args = append(blk.Args, blocks.Stack(nil))
		}
	}
	body, term, err = p.parseStack(false)
	if err != nil {
		return err
	}
	if term.Type == TokenEOF || term.Literal != "end" {
		return p.errorAt(term, fmt.Sprintf("missing end for %q at line %d", blk.Type.Text, start.Pos.Line), "end")
	}
	blk.Args[first+1] = body
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// parseExpr is a Pratt loop over runs joined by infix operators.
func (p *Parser) parseExpr(minPrec int, ctx exprContext) (*node, error) {
	left, err := p.parseRun(ctx)
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := p.peekOperator(ctx)
		if !ok || prec <= minPrec {
			return left, nil
		}
		op := p.advance()
		right, err := p.parseExpr(prec, ctx)
		if err != nil {
			return nil, err
		}
		left, err = p.binary(op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

// peekOperator reports whether the current token is an infix operator and
// its binding power. Between < and >, a ">" is the comparison only when an
// operand literal follows it.
func (p *Parser) peekOperator(ctx exprContext) (int, bool) {
	tok := p.cur()
	switch tok.Type {
	case TokenOp:
		switch tok.Literal {
		case "*", "/":
			return precProduct, true
		case "+", "-":
			return precSum, true
		case "=":
			return precCompare, true
		}
	case TokenLAngle:
		return precCompare, true
	case TokenRAngle:
		if ctx != ctxAngle {
			return precCompare, true
		}
		switch p.peek().Type {
		case TokenLParen, TokenNumber, TokenString, TokenDropdown:
			return precCompare, true
		}
	}
	return 0, false
}

// runPart is a word or an operand inside a run.
type runPart struct {
	word Token
	arg  *node
}

// parseRun reads words and operands up to an operator, a closer or the end
// of the line. A lone operand is returned as is; anything else resolves to
// a block.
func (p *Parser) parseRun(ctx exprContext) (*node, error) {
	start := p.cur()
	var parts []runPart
loop:
	for {
		tok := p.cur()
		switch tok.Type {
		case TokenWord:
			parts = append(parts, runPart{word: p.advance()})
		case TokenNumber:
			p.advance()
			parts = append(parts, runPart{arg: &node{kind: nodeNumber, value: parseNumber(tok.Literal), tok: tok}})
		case TokenString:
			p.advance()
			parts = append(parts, runPart{arg: &node{kind: nodeString, value: tok.Literal, tok: tok}})
		case TokenDropdown:
			p.advance()
			parts = append(parts, runPart{arg: &node{kind: nodeDropdown, value: tok.Literal, tok: tok}})
		case TokenColor:
			p.advance()
			parts = append(parts, runPart{arg: &node{kind: nodeColor, color: parseColor(tok.Literal), tok: tok}})
		case TokenLParen:
			n, err := p.parseGroup(ctxParen)
			if err != nil {
				return nil, err
			}
			parts = append(parts, runPart{arg: n})
		case TokenLAngle:
			if len(parts) > 0 && parts[len(parts)-1].arg != nil {
				break loop // comparison
			}
			n, err := p.parseGroup(ctxAngle)
			if err != nil {
				return nil, err
			}
			parts = append(parts, runPart{arg: n})
		default:
			break loop
		}
	}

	switch {
	case len(parts) == 0:
		return nil, p.errorAt(start, fmt.Sprintf("unexpected %s", start), "block", "value")
	case len(parts) == 1 && parts[0].arg != nil:
		return parts[0].arg, nil
	}
	return p.resolve(parts, ctx, start)
}

// parseGroup parses "( ... )" or "< ... >".
func (p *Parser) parseGroup(ctx exprContext) (*node, error) {
	open := p.advance()
	closer, closeText := TokenRParen, ")"
	if ctx == ctxAngle {
		closer, closeText = TokenRAngle, ">"
	}
	if p.cur().Type == closer {
		p.advance()
		return &node{kind: nodeEmpty, tok: open, angle: ctx == ctxAngle}, nil
	}
	n, err := p.parseExpr(0, ctx)
	if err != nil {
		return nil, err
	}
	if p.cur().Type != closer {
		return nil, p.errorAt(p.cur(), fmt.Sprintf("unexpected %s", p.cur()), closeText)
	}
	p.advance()
	n.tok = open
	n.angle = ctx == ctxAngle
	return n, nil
}

// ---------------------------------------------------------------------------
// Block resolution
// ---------------------------------------------------------------------------

// runPattern renders parts as "w" for each group of words and "#" for each
// operand. Words themselves are compared through the lookup key.
func runPattern(parts []runPart) string {
	var b strings.Builder
	for i, part := range parts {
		switch {
		case part.arg != nil:
			b.WriteByte('#')
		case i == 0 || parts[i-1].arg != nil:
			b.WriteByte('w')
		}
	}
	return b.String()
}

func typePattern(bt *blocks.BlockType) string {
	var b strings.Builder
	for i, part := range bt.Parts {
		switch {
		case part.IsInsert():
			b.WriteByte('#')
		case i == 0 || bt.Parts[i-1].IsInsert():
			b.WriteByte('w')
		}
	}
	return b.String()
}

// resolve matches a run against the catalog. Candidates are tried in
// catalog order and the first whose inserts accept every operand wins.
func (p *Parser) resolve(parts []runPart, ctx exprContext, start Token) (*node, error) {
	var (
		words []string
		args  []*node
	)
	for _, part := range parts {
		if part.arg != nil {
			args = append(args, part.arg)
		} else {
			words = append(words, part.word.Literal)
		}
	}
	pattern := runPattern(parts)

	var firstErr *Error
	for _, bt := range p.cat.ByText(blocks.NormalizeWords(words)) {
		if pattern != typePattern(bt) {
			continue
		}
		blk, err := p.build(bt, args, start)
		if err == nil {
			return &node{kind: nodeBlock, block: blk, tok: start}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	if ctx == ctxParen && len(parts) == 2 && parts[0].arg != nil && parts[0].arg.kind == nodeNumber &&
		parts[1].arg == nil && parts[1].word.Literal == "v" {
		return &node{kind: nodeMenuDropdown, value: parts[0].arg.value, tok: start}, nil
	}
	if ctx == ctxParen && len(args) == 0 {
		if n := len(words); n >= 2 && words[n-1] == "v" {
			return &node{kind: nodeMenuDropdown, value: strings.Join(words[:n-1], " "), tok: start}, nil
		}
		blk, err := p.reader(strings.Join(words, " "), start)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeBlock, block: blk, tok: start}, nil
	}
	return nil, p.errorAt(start, fmt.Sprintf("unknown block %q", strings.Join(words, " ")), p.suggest(words)...)
}

// build instantiates bt with args, or reports the first operand it rejects.
func (p *Parser) build(bt *blocks.BlockType, args []*node, at Token) (*blocks.Block, *Error) {
	if len(args) != len(bt.Inserts) {
		return nil, p.errorAt(at, fmt.Sprintf("%q takes %d arguments", bt.Text, len(bt.Inserts)))
	}
	blk := &blocks.Block{Type: bt, Command: bt.Command, Args: make([]any, 0, bt.Arity())}
	for i, in := range bt.Inserts {
		v, ok := accept(in, args[i], p.scope)
		if !ok {
			msg := fmt.Sprintf("argument of shape %s expected, got %s", in.Shape(), args[i].shapeName())
			return nil, p.errorAt(args[i].tok, msg, in.Shape().String())
		}
		blk.Args = append(blk.Args, v)
	}
	for i := 0; i < bt.Mouths; i++ {
		blk.Args = append(blk.Args, blocks.Stack(nil))
	}
	return blk, nil
}

// reader returns a variable or list reporter for a bare name. Names declared
// only as lists read the list; everything else reads a variable.
func (p *Parser) reader(name string, at Token) (*blocks.Block, error) {
	command := "readVariable"
	if p.scope.HasList(name) && !p.scope.HasVariable(name) {
		command = "contentsOfList:"
	}
	bt := p.cat.Command(command)
	if bt == nil {
		return nil, p.errorAt(at, fmt.Sprintf("catalog has no %s block for %q", command, name))
	}
	return &blocks.Block{Type: bt, Command: command, Args: []any{name}}, nil
}

// binary builds the operator block for "left op right".
func (p *Parser) binary(op Token, left, right *node) (*node, error) {
	var firstErr *Error
	for _, bt := range p.cat.ByText(blocks.Normalize(op.Literal)) {
		if typePattern(bt) != "#w#" {
			continue
		}
		blk, err := p.build(bt, []*node{left, right}, op)
		if err == nil {
			return &node{kind: nodeBlock, block: blk, tok: left.tok}, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, p.errorAt(op, fmt.Sprintf("unknown operator %s", op.Literal))
}

// suggest lists block texts starting with the run's first word.
func (p *Parser) suggest(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	prefix := strings.ToLower(words[0])
	var out []string
	for _, bt := range p.cat.Types() {
		if bt.Obsolete || !strings.HasPrefix(bt.Key(), prefix) {
			continue
		}
		out = append(out, bt.Text)
		if len(out) == 8 {
			break
		}
	}
	return out
}

// parseColor reads "#rgb" or "#rrggbb"; the lexer has checked the form.
func parseColor(s string) blocks.Color {
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	var c [3]uint8
	for i := range c {
		c[i] = hexByte(hex[2*i])<<4 | hexByte(hex[2*i+1])
	}
	return blocks.Color{R: c[0], G: c[1], B: c[2]}
}

func hexByte(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
