package scratch14

import (
	"fmt"

	"github.com/chazu/scratchkit/blocks"
	"github.com/chazu/scratchkit/objtable"
	"github.com/chazu/scratchkit/project"
)

// ---------------------------------------------------------------------------
// Scripts: blocksBin arrays <-> block trees
// ---------------------------------------------------------------------------
//
// A script is [Point, [block...]]. A block is [#command, arg...] where an
// argument is a scalar, a nested block array or, in a mouth, an array of
// blocks or nil.

// rawScript is a blocksBin entry that is not a script. It is kept as the
// Source of an empty Script so it is written back in place.
type rawScript struct {
	value objtable.Value
}

// Commands the legacy editor stores in blocksBin that are not blocks. They
// are kept opaque without a warning.
var quietOpaque = map[string]bool{
	"scratchComment": true,
}

type scriptReader struct {
	cat  *blocks.Catalog
	warn func(format string, args ...any)
	// owner names the scriptable in warnings.
	owner string
}

func (r *scriptReader) scripts(bin objtable.Value) []*blocks.Script {
	var out []*blocks.Script
	for i, entry := range items(bin) {
		sc, err := r.script(entry)
		if err != nil {
			r.warn("%s: script %d kept undecoded: %v", r.owner, i+1, err)
			out = append(out, &blocks.Script{Source: rawScript{value: entry}})
			continue
		}
		out = append(out, sc)
	}
	return out
}

func (r *scriptReader) script(entry objtable.Value) (*blocks.Script, error) {
	pair := items(entry)
	if len(pair) != 2 {
		return nil, fmt.Errorf("want [position, blocks], got %s", describe(entry))
	}
	pos, ok := pair[0].(*objtable.Point)
	if !ok {
		return nil, fmt.Errorf("position is %s", describe(pair[0]))
	}
	stack, err := r.stack(pair[1])
	if err != nil {
		return nil, err
	}
	x, y := pos.XY()
	return &blocks.Script{X: x, Y: y, Blocks: stack, Source: entry}, nil
}

func (r *scriptReader) stack(v objtable.Value) (blocks.Stack, error) {
	if objtable.IsNil(v) {
		return nil, nil
	}
	list, ok := v.(*objtable.Collection)
	if !ok {
		return nil, fmt.Errorf("stack is %s", describe(v))
	}
	out := make(blocks.Stack, 0, len(list.Items))
	for _, item := range list.Items {
		b, err := r.block(item)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// isBlock reports whether v looks like a block array: a non-empty array
// starting with a symbol.
func isBlock(v objtable.Value) bool {
	list := items(v)
	if len(list) == 0 {
		return false
	}
	s, ok := list[0].(*objtable.String)
	return ok && s.IsSymbol()
}

func (r *scriptReader) block(v objtable.Value) (*blocks.Block, error) {
	if !isBlock(v) {
		return nil, fmt.Errorf("block is %s", describe(v))
	}
	list := items(v)
	command := text(list[0])
	fileArgs := make([]any, len(list)-1)
	for i, a := range list[1:] {
		if s, ok := a.(*objtable.String); ok {
			fileArgs[i] = s.Text()
		} else {
			fileArgs[i] = a
		}
	}

	bt := r.cat.ForFile(command, fileArgs)
	if bt == nil {
		if !quietOpaque[command] {
			r.warn("%s: unknown block %q with %d arguments kept opaque", r.owner, command, len(fileArgs))
		}
		raw := make([]any, len(list)-1)
		for i, a := range list[1:] {
			raw[i] = a
		}
		return &blocks.Block{Command: command, Args: raw, Source: v}, nil
	}

	// positions of the file arguments that survive SplitFileArgs
	visible := make([]objtable.Value, 0, bt.Arity())
	for i, a := range list[1:] {
		if !isHiddenAt(bt, i) {
			visible = append(visible, a)
		}
	}
	args := make([]any, bt.Arity())
	for i, a := range visible {
		if i < len(bt.Inserts) {
			arg, err := r.arg(a)
			if err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", command, i+1, err)
			}
			args[i] = arg
			continue
		}
		mouth, err := r.stack(a)
		if err != nil {
			return nil, fmt.Errorf("%s mouth %d: %w", command, i-len(bt.Inserts)+1, err)
		}
		args[i] = mouth
	}
	return &blocks.Block{Type: bt, Command: command, Args: args, Source: v}, nil
}

func isHiddenAt(bt *blocks.BlockType, i int) bool {
	for _, h := range bt.Hidden {
		if h.At == i {
			return true
		}
	}
	return false
}

// arg converts an insert value. Nested block arrays become blocks; colors
// become blocks.Color; sprite references read as the sprite's name.
// Anything else stays a raw file value.
func (r *scriptReader) arg(v objtable.Value) (any, error) {
	if isBlock(v) {
		return r.block(v)
	}
	switch x := v.(type) {
	case *objtable.Color:
		red, green, blue := x.RGB8()
		return blocks.Color{R: red, G: green, B: blue}, nil
	case *objtable.UserObject:
		if name, ok := morphName(x); ok {
			return name, nil
		}
		return x, nil
	}
	return scalar(v), nil
}

func morphName(o *objtable.UserObject) (string, bool) {
	if !o.Is("ScratchSpriteMorph") && !o.Is("ScratchStageMorph") {
		return "", false
	}
	return text(o.Get("objName")), true
}

func describe(v objtable.Value) string {
	if objtable.IsNil(v) {
		return "nil"
	}
	if o, ok := v.(objtable.Object); ok {
		return o.Class().String()
	}
	return fmt.Sprintf("%T", v)
}

// ---------------------------------------------------------------------------
// Writing scripts back
// ---------------------------------------------------------------------------

type scriptWriter struct{}

func (w *scriptWriter) scripts(old objtable.Value, scripts []*blocks.Script) *objtable.Collection {
	out := make([]objtable.Value, 0, len(scripts))
	for _, sc := range scripts {
		if raw, ok := sc.Source.(rawScript); ok && len(sc.Blocks) == 0 {
			out = append(out, raw.value)
			continue
		}
		out = append(out, w.script(sc))
	}
	return keepItems(old, objtable.ClassArray, out)
}

func (w *scriptWriter) script(sc *blocks.Script) *objtable.Collection {
	src, _ := sc.Source.(objtable.Value)
	var pos, body objtable.Value
	pair := items(src)
	if len(pair) == 2 {
		pos, body = pair[0], pair[1]
		pos = keepPoint(pos, project.Point{X: sc.X, Y: sc.Y})
	} else {
		// A new script always carries a position; nil is only kept when
		// the file stored it.
		pos = objtable.NewPoint(sc.X, sc.Y)
	}
	body = w.stack(body, sc.Blocks)
	if len(pair) != 2 && objtable.IsNil(body) {
		body = objtable.NewArray()
	}
	return keepItems(src, objtable.ClassArray, []objtable.Value{pos, body})
}

func (w *scriptWriter) stack(old objtable.Value, s blocks.Stack) objtable.Value {
	if s == nil {
		if _, ok := old.(*objtable.Collection); !ok {
			return objtable.Nil
		}
	}
	out := make([]objtable.Value, len(s))
	for i, b := range s {
		out[i] = w.block(b)
	}
	return keepItems(old, objtable.ClassArray, out)
}

// block writes b, reusing the array it was read from.
func (w *scriptWriter) block(b *blocks.Block) objtable.Value {
	old, _ := b.Source.(objtable.Value)
	prev := items(old)
	if !isBlock(old) || text(prev[0]) != b.Command {
		old, prev = nil, nil
	}
	var command objtable.Value
	if len(prev) > 0 {
		command = prev[0]
	}
	out := []objtable.Value{keepSymbol(command, b.Command)}

	if b.IsOpaque() {
		for _, a := range b.Args {
			out = append(out, fromScalar(a))
		}
		return keepItems(old, objtable.ClassArray, out)
	}

	fileArgs := b.Type.JoinFileArgs(b.Args)
	for i, a := range fileArgs {
		var o objtable.Value
		if i+1 < len(prev) {
			o = prev[i+1]
		}
		out = append(out, w.arg(o, a))
	}
	return keepItems(old, objtable.ClassArray, out)
}

func (w *scriptWriter) arg(old objtable.Value, a any) objtable.Value {
	switch x := a.(type) {
	case blocks.Hidden:
		if x.Symbol {
			return keepSymbol(old, x.Value)
		}
		return keepString(old, x.Value)
	case *blocks.Block:
		return w.block(x)
	case blocks.Stack:
		return w.stack(old, x)
	case blocks.Color:
		if c, ok := old.(*objtable.Color); ok {
			if r, g, b := c.RGB8(); r == x.R && g == x.G && b == x.B {
				return c
			}
		}
		return objtable.NewColorRGB8(x.R, x.G, x.B)
	case string:
		// sprite references keep pointing at the sprite
		if o, ok := old.(*objtable.UserObject); ok {
			if name, ok := morphName(o); ok && name == x {
				return o
			}
		}
		return keepString(old, x)
	}
	return keep(old, a)
}

