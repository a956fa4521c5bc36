package blocks

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Blocks, stacks, scripts
// ---------------------------------------------------------------------------

var (
	ErrArity      = errors.New("wrong number of arguments")
	ErrArgShape   = errors.New("argument shape mismatch")
	ErrOpaque     = errors.New("block has no catalog type")
	ErrSharedNode = errors.New("block appears twice")
)

// Block is an instance of a block type. Args holds one value per insert
// followed by one Stack per mouth. Argument values are int64, float64,
// string, bool, nil, Color, *Block or Stack.
//
// A block whose command is not in the catalog has a nil Type; its Args then
// hold the undecoded file values.
type Block struct {
	Type    *BlockType
	Command string
	Args    []any
	Comment string
	// Source is the format-specific object the block was read from.
	Source any
}

// Stack is a sequence of blocks filling one mouth or forming a script body.
// A nil Stack and an empty one both read as "no blocks"; formats that can
// tell them apart keep the difference.
type Stack []*Block

// Script is a stack anchored at a position in the scripts area.
type Script struct {
	X, Y   float64
	Blocks Stack
	Source any
}

// Color is an RGB color argument.
type Color struct {
	R, G, B uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Scope lists the names menus and variable references resolve against.
type Scope struct {
	Variables  []string
	Lists      []string
	Sprites    []string
	Costumes   []string
	Sounds     []string
	Broadcasts []string
}

// HasVariable reports whether name is a variable in scope.
func (s *Scope) HasVariable(name string) bool { return s != nil && contains(s.Variables, name) }

// HasList reports whether name is a list in scope.
func (s *Scope) HasList(name string) bool { return s != nil && contains(s.Lists, name) }

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

// IsOpaque reports whether b was kept without a catalog type.
func (b *Block) IsOpaque() bool { return b.Type == nil }

// Shape returns the block's shape; opaque blocks count as stack blocks.
func (b *Block) Shape() Shape {
	if b.Type == nil {
		return ShapeStack
	}
	return b.Type.Shape
}

// Mouth returns the i-th stack argument.
func (b *Block) Mouth(i int) Stack {
	if b.Type == nil || i >= b.Type.Mouths {
		return nil
	}
	s, _ := b.Args[len(b.Type.Inserts)+i].(Stack)
	return s
}

// Validate checks arity and argument shapes of b and everything nested in
// it, and that no block is reachable twice.
func (b *Block) Validate() error {
	return b.validate(make(map[*Block]bool))
}

func (b *Block) validate(seen map[*Block]bool) error {
	if seen[b] {
		return fmt.Errorf("%w: %s", ErrSharedNode, b.Command)
	}
	seen[b] = true
	if b.Type == nil {
		return nil
	}
	bt := b.Type
	if len(b.Args) != bt.Arity() {
		return fmt.Errorf("%w: %s takes %d, got %d", ErrArity, bt.Command, bt.Arity(), len(b.Args))
	}
	for i, in := range bt.Inserts {
		if err := checkArg(in, b.Args[i], seen); err != nil {
			return fmt.Errorf("%s argument %d: %w", bt.Command, i+1, err)
		}
	}
	for i := 0; i < bt.Mouths; i++ {
		s, ok := b.Args[len(bt.Inserts)+i].(Stack)
		if !ok && b.Args[len(bt.Inserts)+i] != nil {
			return fmt.Errorf("%w: %s mouth %d holds %T", ErrArgShape, bt.Command, i+1, b.Args[len(bt.Inserts)+i])
		}
		if err := s.validate(seen); err != nil {
			return err
		}
	}
	return nil
}

func checkArg(in Insert, arg any, seen map[*Block]bool) error {
	switch a := arg.(type) {
	case *Block:
		if in.Shape() == InsertStack || in.Shape() == InsertColor {
			return fmt.Errorf("%w: %s insert holds a block", ErrArgShape, in.Shape())
		}
		if !a.IsOpaque() && !a.Shape().IsExpression() {
			return fmt.Errorf("%w: %s block %s in %s insert", ErrArgShape, a.Shape(), a.Command, in.Shape())
		}
		if in.Shape() == InsertBoolean && !a.IsOpaque() && a.Shape() != ShapeBoolean {
			return fmt.Errorf("%w: %s block %s in boolean insert", ErrArgShape, a.Shape(), a.Command)
		}
		return a.validate(seen)
	case Stack:
		return fmt.Errorf("%w: stack in %s insert", ErrArgShape, in.Shape())
	case nil:
		return nil
	case Color:
		if in.Shape() != InsertColor {
			return fmt.Errorf("%w: color in %s insert", ErrArgShape, in.Shape())
		}
	case bool:
		if in.Shape() != InsertBoolean {
			return fmt.Errorf("%w: boolean in %s insert", ErrArgShape, in.Shape())
		}
	case int64, float64, string:
		if in.Shape() == InsertBoolean || in.Shape() == InsertColor {
			return fmt.Errorf("%w: %T in %s insert", ErrArgShape, arg, in.Shape())
		}
	}
	return nil
}

// Validate checks every block of s.
func (s Stack) Validate() error {
	return s.validate(make(map[*Block]bool))
}

func (s Stack) validate(seen map[*Block]bool) error {
	for _, b := range s {
		if b == nil {
			return fmt.Errorf("%w: nil block in stack", ErrArgShape)
		}
		if err := b.validate(seen); err != nil {
			return err
		}
	}
	return nil
}

// WalkBlocks calls fn for every block in s, depth first, nested arguments
// and mouths included.
func (s Stack) WalkBlocks(fn func(*Block)) {
	for _, b := range s {
		b.walk(fn)
	}
}

func (b *Block) walk(fn func(*Block)) {
	if b == nil {
		return
	}
	fn(b)
	for _, a := range b.Args {
		switch x := a.(type) {
		case *Block:
			x.walk(fn)
		case Stack:
			x.WalkBlocks(fn)
		}
	}
}

// WalkBlocks calls fn for b and everything nested in it.
func (b *Block) WalkBlocks(fn func(*Block)) { b.walk(fn) }
