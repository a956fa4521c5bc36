package blocktext

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/scratchkit/blocks"
)

// ---------------------------------------------------------------------------
// Emitter: scripts to block text
// ---------------------------------------------------------------------------

// Emitter renders scripts as block text. The output parses back to the same
// blocks with the same Options.
type Emitter struct {
	Options
	// AllowObsolete renders obsolete and opaque blocks instead of failing.
	// Such output does not parse back.
	AllowObsolete bool
	// Indent is prepended once per nesting level; "" means a tab.
	Indent string
}

// Emit renders scripts with a default emitter.
func Emit(scripts []*blocks.Script, opts Options) (string, error) {
	e := &Emitter{Options: opts}
	return e.EmitScripts(scripts)
}

// EmitScripts renders scripts separated by blank lines. Empty scripts are
// skipped.
func (e *Emitter) EmitScripts(scripts []*blocks.Script) (string, error) {
	var out []string
	for _, s := range scripts {
		if len(s.Blocks) == 0 {
			continue
		}
		text, err := e.EmitStack(s.Blocks)
		if err != nil {
			return "", err
		}
		out = append(out, text)
	}
	return strings.Join(out, "\n"), nil
}

// EmitStack renders one script body. Each line ends in a newline.
func (e *Emitter) EmitStack(s blocks.Stack) (string, error) {
	var b strings.Builder
	top := len(s) == 1 && s[0].Shape().IsExpression()
	if err := e.writeStack(&b, s, 0, top); err != nil {
		return "", err
	}
	return b.String(), nil
}

// EmitBlock renders a single block without mouths or comments.
func (e *Emitter) EmitBlock(blk *blocks.Block) (string, error) {
	return e.blockText(blk)
}

func (e *Emitter) indent(depth int) string {
	unit := e.Indent
	if unit == "" {
		unit = "\t"
	}
	return strings.Repeat(unit, depth)
}

func (e *Emitter) writeStack(b *strings.Builder, s blocks.Stack, depth int, lone bool) error {
	for _, blk := range s {
		if blk == nil {
			return fmt.Errorf("nil block in stack")
		}
		text, err := e.blockText(blk)
		if err != nil {
			return err
		}
		if lone {
			text = wrap(blk, text)
		}
		comment, more, _ := strings.Cut(blk.Comment, "\n")
		b.WriteString(e.indent(depth))
		b.WriteString(text)
		if comment != "" {
			b.WriteString(" // ")
			b.WriteString(comment)
		}
		b.WriteByte('\n')

		if blk.Type != nil && blk.Type.IsC() {
			first := len(blk.Type.Inserts)
			for i := 0; i < blk.Type.Mouths; i++ {
				if i > 0 {
					b.WriteString(e.indent(depth))
					b.WriteString("else\n")
				}
				mouth, _ := blk.Args[first+i].(blocks.Stack)
				if err := e.writeStack(b, mouth, depth+1, false); err != nil {
					return err
				}
			}
			b.WriteString(e.indent(depth))
			b.WriteString("end\n")
		}
		for _, line := range strings.Split(more, "\n") {
			if line == "" {
				continue
			}
			b.WriteString(e.indent(depth))
			b.WriteString("// ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return nil
}

// wrap puts an expression block in the brackets of its shape.
func wrap(blk *blocks.Block, text string) string {
	if blk.Shape() == blocks.ShapeBoolean {
		return "<" + text + ">"
	}
	return "(" + text + ")"
}

// blockText renders the parts of blk on one line.
func (e *Emitter) blockText(blk *blocks.Block) (string, error) {
	bt := blk.Type
	if bt == nil {
		if e.AllowObsolete {
			return blk.Command, nil
		}
		return "", fmt.Errorf("block %s has no text form", blk.Command)
	}
	if bt.Obsolete && !e.AllowObsolete {
		return "", fmt.Errorf("block %s is obsolete", bt.Command)
	}
	if len(blk.Args) != bt.Arity() {
		return "", fmt.Errorf("%w: %s takes %d, got %d", blocks.ErrArity, bt.Command, bt.Arity(), len(blk.Args))
	}

	var b strings.Builder
	for i, part := range bt.Parts {
		if i > 0 && !part.Glue {
			b.WriteByte(' ')
		}
		if !part.IsInsert() {
			b.WriteString(part.Text)
			continue
		}
		s, err := e.arg(blk, bt.Inserts[part.Insert], blk.Args[part.Insert])
		if err != nil {
			return "", fmt.Errorf("%s argument %d: %w", bt.Command, part.Insert+1, err)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// arg renders one insert value.
func (e *Emitter) arg(blk *blocks.Block, in blocks.Insert, v any) (string, error) {
	shape := in.Shape()
	switch a := v.(type) {
	case *blocks.Block:
		text, err := e.blockText(a)
		if err != nil {
			return "", err
		}
		return wrap(a, text), nil

	case nil:
		switch shape {
		case blocks.InsertNumber, blocks.InsertNumberMenu:
			return "()", nil
		case blocks.InsertString:
			return "[]", nil
		case blocks.InsertBoolean:
			return "<>", nil
		case blocks.InsertReadonlyMenu:
			return "[ v]", nil
		}

	case bool:
		if shape == blocks.InsertBoolean && !a {
			return "<>", nil
		}

	case int64:
		return e.number(in, strconv.FormatInt(a, 10))

	case float64:
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return "", fmt.Errorf("number %v has no text form", a)
		}
		s := strconv.FormatFloat(a, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return e.number(in, s)

	case string:
		return e.text(blk, in, a)

	case blocks.Color:
		if shape == blocks.InsertColor {
			return "[" + a.String() + "]", nil
		}
	}
	return "", fmt.Errorf("%w: %T in %s insert", blocks.ErrArgShape, v, shape)
}

func (e *Emitter) number(in blocks.Insert, s string) (string, error) {
	switch in.Shape() {
	case blocks.InsertNumber, blocks.InsertNumberMenu, blocks.InsertString:
		return "(" + s + ")", nil
	case blocks.InsertReadonlyMenu:
		if !in.Kind.ClosedOptions() {
			return "(" + s + ")", nil
		}
	}
	return "", fmt.Errorf("%w: number in %s insert", blocks.ErrArgShape, in.Shape())
}

func (e *Emitter) text(blk *blocks.Block, in blocks.Insert, s string) (string, error) {
	if strings.ContainsAny(s, "\n\r") {
		return "", fmt.Errorf("text %q spans lines", s)
	}
	esc := escape(s)
	switch in.Shape() {
	case blocks.InsertNumber:
		if s == "" {
			return "()", nil
		}
		if isNumeric(s) && !isHexColor(esc) {
			return "[" + esc + "]", nil
		}
		return "", fmt.Errorf("%w: text %q in number insert", blocks.ErrArgShape, s)

	case blocks.InsertNumberMenu:
		switch {
		case s == "":
			return "()", nil
		case isNumeric(s) && !isHexColor(esc):
			return "[" + esc + "]", nil
		case !in.Kind.HasOption(s, e.Scope):
			return "", fmt.Errorf("%q is not a %s option", s, in.Kind)
		case isPlainName(s) && !e.isBlockText(s+" v"):
			return "(" + s + " v)", nil
		case plainLiteral(esc):
			return "[" + esc + "]", nil
		}
		return "", fmt.Errorf("menu value %q has no text form", s)

	case blocks.InsertString:
		if !plainLiteral(esc) {
			return "", fmt.Errorf("text %q has no text form", s)
		}
		return "[" + esc + "]", nil

	case blocks.InsertReadonlyMenu:
		if in.Kind.ClosedOptions() && !in.Kind.HasOption(s, e.Scope) {
			return "", fmt.Errorf("%q is not a %s option", s, in.Kind)
		}
		return "[" + esc + " v]", nil

	case blocks.InsertInline:
		return e.readerName(blk, s)
	}
	return "", fmt.Errorf("%w: text in %s insert", blocks.ErrArgShape, in.Shape())
}

// readerName renders the name of a variable or list reporter. The name must
// read back as the same reporter.
func (e *Emitter) readerName(blk *blocks.Block, name string) (string, error) {
	if !isPlainName(name) || e.isBlockText(name) {
		return "", fmt.Errorf("name %q has no text form", name)
	}
	if words := strings.Fields(name); len(words) > 1 && words[len(words)-1] == "v" {
		return "", fmt.Errorf("name %q reads as a dropdown", name)
	}
	listOnly := e.Scope.HasList(name) && !e.Scope.HasVariable(name)
	switch {
	case blk.Command == "contentsOfList:" && !listOnly:
		return "", fmt.Errorf("list %q is not declared as a list", name)
	case blk.Command != "contentsOfList:" && listOnly:
		return "", fmt.Errorf("variable %q is declared as a list", name)
	}
	return name, nil
}

func (e *Emitter) isBlockText(s string) bool {
	return len(e.catalog().Lookup(s)) > 0
}

// isPlainName reports whether s lexes as single-spaced words only.
func isPlainName(s string) bool {
	words := strings.Split(s, " ")
	for _, w := range words {
		if w == "" || strings.HasPrefix(w, "//") || isNumber(w) {
			return false
		}
		if len(w) == 1 && isOpChar(rune(w[0])) {
			return false
		}
		for _, r := range w {
			if isDelimiter(r) {
				return false
			}
		}
	}
	return true
}

// plainLiteral reports whether escaped content reads back as a string
// literal rather than a color or dropdown.
func plainLiteral(esc string) bool {
	return !isHexColor(esc) && !strings.HasSuffix(esc, " v")
}

func escape(s string) string {
	if !strings.ContainsAny(s, `[]\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '[' || r == ']' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
