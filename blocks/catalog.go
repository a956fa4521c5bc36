package blocks

import (
	_ "embed"
	"fmt"
	"sync"
)

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

//go:embed blockspecs.toml
var builtinSpecs []byte

// Catalog indexes block types by command and by normalized text. A catalog
// is immutable once built and safe for concurrent readers.
type Catalog struct {
	types     []*BlockType
	byCommand map[string][]*BlockType
	byText    map[string][]*BlockType
	variants  map[string][]*BlockType
}

// NewCatalog indexes types in the given order. Types sharing a command are
// kept in that order, which decides ties during lookup.
func NewCatalog(types []*BlockType) (*Catalog, error) {
	c := &Catalog{
		byCommand: make(map[string][]*BlockType),
		byText:    make(map[string][]*BlockType),
		variants:  make(map[string][]*BlockType),
	}
	for _, bt := range types {
		if err := c.add(bt); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(bt *BlockType) error {
	if bt.Command == "" {
		return fmt.Errorf("block %q has no command", bt.Text)
	}
	for _, h := range bt.Hidden {
		if h.At < 0 || h.At >= bt.FileArity() {
			return fmt.Errorf("block %s: hidden argument at %d outside %d file arguments", bt.Command, h.At, bt.FileArity())
		}
	}
	c.types = append(c.types, bt)
	c.byCommand[bt.Command] = append(c.byCommand[bt.Command], bt)
	c.variants[bt.key] = append(c.variants[bt.key], bt)
	if bt.Obsolete || isInline(bt) {
		return nil
	}
	c.byText[bt.key] = append(c.byText[bt.key], bt)
	for _, alias := range bt.Aliases {
		key := Normalize(alias)
		if key != bt.key {
			c.byText[key] = append(c.byText[key], bt)
		}
	}
	return nil
}

func isInline(bt *BlockType) bool {
	for _, p := range bt.Parts {
		if !p.IsInsert() {
			return false
		}
	}
	return len(bt.Inserts) == 1 && bt.Inserts[0].Shape() == InsertInline
}

// Extend returns a new catalog holding c's types followed by more.
func (c *Catalog) Extend(more ...*BlockType) (*Catalog, error) {
	all := make([]*BlockType, 0, len(c.types)+len(more))
	all = append(all, c.types...)
	all = append(all, more...)
	return NewCatalog(all)
}

// Types returns every type in catalog order.
func (c *Catalog) Types() []*BlockType {
	out := make([]*BlockType, len(c.types))
	copy(out, c.types)
	return out
}

// ByCommand returns the types sharing a command, in catalog order.
func (c *Catalog) ByCommand(command string) []*BlockType {
	return c.byCommand[command]
}

// ByText returns the selectable types whose normalized text or alias is
// key. Obsolete types and bare variable/list readers are never returned.
func (c *Catalog) ByText(key string) []*BlockType {
	return c.byText[key]
}

// Lookup normalizes text and returns the matching selectable types.
func (c *Catalog) Lookup(text string) []*BlockType {
	return c.byText[Normalize(text)]
}

// Variant returns the type with the same text as bt but the given number of
// mouths, e.g. the two-mouth form of "if".
func (c *Catalog) Variant(bt *BlockType, mouths int) *BlockType {
	for _, v := range c.variants[bt.key] {
		if v.Mouths == mouths && v.Shape == bt.Shape {
			return v
		}
	}
	return nil
}

// ForFile picks the type for a block read from a file. Candidates share the
// command and match the argument count; among those whose hidden arguments
// all match, the one with the most hidden arguments wins, catalog order
// breaking ties. It returns nil for unknown commands.
func (c *Catalog) ForFile(command string, fileArgs []any) *BlockType {
	var (
		best  *BlockType
		score = -1
	)
	for _, bt := range c.byCommand[command] {
		n, ok := bt.HiddenMatches(fileArgs)
		if ok && n > score {
			best, score = bt, n
		}
	}
	return best
}

// Command returns the first type registered for command. Use ForFile when
// the arguments are known.
func (c *Catalog) Command(command string) *BlockType {
	if types := c.byCommand[command]; len(types) > 0 {
		return types[0]
	}
	return nil
}

// ---------------------------------------------------------------------------
// Built-in catalog
// ---------------------------------------------------------------------------

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog of the legacy block set. It is built
// on first use and shared.
func Default() *Catalog {
	defaultOnce.Do(func() {
		types, err := ParseSpecs(builtinSpecs)
		if err != nil {
			panic(fmt.Sprintf("blocks: built-in block specs: %v", err))
		}
		c, err := NewCatalog(types)
		if err != nil {
			panic(fmt.Sprintf("blocks: built-in catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
