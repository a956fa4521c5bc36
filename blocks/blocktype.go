package blocks

import (
	"fmt"
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// BlockType: one catalog entry
// ---------------------------------------------------------------------------

// Insert is a typed placeholder in a block's text.
type Insert struct {
	Kind    InsertKind
	Default any
}

// Shape returns the family of values the insert accepts.
func (in Insert) Shape() InsertShape { return in.Kind.Shape() }

// Part is one element of a block's text: a literal word or an insert.
type Part struct {
	Text   string
	Insert int // index into Inserts, or -1 for a literal word
	Glue   bool
}

// IsInsert reports whether p is a placeholder.
func (p Part) IsInsert() bool { return p.Insert >= 0 }

// Hidden is a fixed argument present in the file form of a block but not in
// its text. Several types may share a command and differ only in hidden
// values, e.g. the green-flag hat and the broadcast hat.
type Hidden struct {
	At     int // position in the file argument list
	Value  string
	Symbol bool
}

// BlockType describes a kind of block.
type BlockType struct {
	Command  string
	Text     string // spec text with %X placeholders
	Shape    Shape
	Category string
	Parts    []Part
	Inserts  []Insert
	Mouths   int
	Hidden   []Hidden
	Aliases  []string
	Obsolete bool

	key string
}

// NewBlockType parses text and returns a block type with the given
// positional defaults.
func NewBlockType(command, text string, shape Shape, category string, defaults ...any) (*BlockType, error) {
	bt := &BlockType{Command: command, Text: text, Shape: shape, Category: category}
	parts, inserts, err := parseSpecText(text)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", command, err)
	}
	if len(defaults) > len(inserts) {
		return nil, fmt.Errorf("block %s: %d defaults for %d inserts", command, len(defaults), len(inserts))
	}
	for i, d := range defaults {
		inserts[i].Default = d
	}
	bt.Parts = parts
	bt.Inserts = inserts
	bt.key = Normalize(text)
	return bt, nil
}

// parseSpecText splits spec text into words and inserts. "%X" is an insert
// when X names a kind; any other "%" is literal.
func parseSpecText(text string) ([]Part, []Insert, error) {
	var (
		parts   []Part
		inserts []Insert
		word    strings.Builder
		glue    bool
	)
	flush := func() {
		if word.Len() > 0 {
			parts = append(parts, Part{Text: word.String(), Insert: -1, Glue: glue})
			word.Reset()
			glue = false
		}
	}
	spaced := true
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\t' {
			flush()
			spaced = true
			continue
		}
		if c == '%' && i+1 < len(text) {
			if kind, ok := KindForChar(text[i+1]); ok {
				flush()
				parts = append(parts, Part{Insert: len(inserts), Glue: !spaced})
				inserts = append(inserts, Insert{Kind: kind})
				i++
				spaced = false
				continue
			}
		}
		if word.Len() == 0 {
			glue = !spaced
		}
		word.WriteByte(c)
		spaced = false
	}
	flush()
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("empty block text")
	}
	if len(parts) > 0 {
		parts[0].Glue = false
	}
	return parts, inserts, nil
}

// Normalize returns the lookup key for spec text: placeholders and
// whitespace removed, lower-cased.
func Normalize(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '%' && i+1 < len(text) {
			if _, ok := KindForChar(text[i+1]); ok {
				i++
				continue
			}
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		b.WriteByte(c)
	}
	return strings.Map(unicode.ToLower, b.String())
}

// NormalizeWords returns the lookup key for a sequence of literal words as
// they appear in block text.
func NormalizeWords(words []string) string {
	return strings.ToLower(strings.Join(words, ""))
}

// Key returns the normalized text of bt.
func (bt *BlockType) Key() string { return bt.key }

// Arity returns the number of arguments a block of this type carries.
func (bt *BlockType) Arity() int { return len(bt.Inserts) + bt.Mouths }

// FileArity returns the number of arguments in the file form.
func (bt *BlockType) FileArity() int { return bt.Arity() + len(bt.Hidden) }

// IsC reports whether the block has at least one stack mouth.
func (bt *BlockType) IsC() bool { return bt.Mouths > 0 }

// HiddenMatches reports whether every hidden argument of bt is present in
// fileArgs, and how many there are. String arguments are compared by text.
func (bt *BlockType) HiddenMatches(fileArgs []any) (int, bool) {
	if len(fileArgs) != bt.FileArity() {
		return 0, false
	}
	for _, h := range bt.Hidden {
		s, ok := fileArgs[h.At].(string)
		if !ok || s != h.Value {
			return 0, false
		}
	}
	return len(bt.Hidden), true
}

// SplitFileArgs drops hidden positions from a file argument list.
func (bt *BlockType) SplitFileArgs(fileArgs []any) []any {
	if len(bt.Hidden) == 0 {
		return fileArgs
	}
	out := make([]any, 0, len(fileArgs))
	for i, a := range fileArgs {
		if !bt.isHidden(i) {
			out = append(out, a)
		}
	}
	return out
}

// JoinFileArgs inserts hidden values into args. Hidden positions hold a
// Hidden value so the caller can encode symbol and string alike.
func (bt *BlockType) JoinFileArgs(args []any) []any {
	if len(bt.Hidden) == 0 {
		return args
	}
	out := make([]any, 0, len(args)+len(bt.Hidden))
	next := 0
	for i := 0; next < len(args) || i < bt.FileArity(); i++ {
		if h, ok := bt.hiddenAt(i); ok {
			out = append(out, h)
			continue
		}
		if next >= len(args) {
			break
		}
		out = append(out, args[next])
		next++
	}
	return out
}

func (bt *BlockType) isHidden(i int) bool {
	_, ok := bt.hiddenAt(i)
	return ok
}

func (bt *BlockType) hiddenAt(i int) (Hidden, bool) {
	for _, h := range bt.Hidden {
		if h.At == i {
			return h, true
		}
	}
	return Hidden{}, false
}

// DefaultArgs returns the arguments of a freshly created block: insert
// defaults followed by empty mouths.
func (bt *BlockType) DefaultArgs() []any {
	out := make([]any, 0, bt.Arity())
	for _, in := range bt.Inserts {
		out = append(out, in.Default)
	}
	for i := 0; i < bt.Mouths; i++ {
		out = append(out, Stack(nil))
	}
	return out
}

// New returns a block of this type with default arguments.
func (bt *BlockType) New() *Block {
	return &Block{Type: bt, Command: bt.Command, Args: bt.DefaultArgs()}
}

func (bt *BlockType) String() string {
	return bt.Command + " \"" + bt.Text + "\""
}
