package blocks

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Spec text parsing
// ---------------------------------------------------------------------------

func TestNewBlockTypeParts(t *testing.T) {
	bt, err := NewBlockType("gotoX:y:", "go to x: %n y: %n", ShapeStack, "motion", int64(0), int64(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(bt.Inserts) != 2 {
		t.Fatalf("inserts: got %d, want 2", len(bt.Inserts))
	}
	var words []string
	for _, p := range bt.Parts {
		if !p.IsInsert() {
			words = append(words, p.Text)
		}
	}
	if got := strings.Join(words, "|"); got != "go|to|x:|y:" {
		t.Errorf("words: got %s", got)
	}
	if bt.Key() != "gotox:y:" {
		t.Errorf("key: got %q", bt.Key())
	}
}

func TestSpecTextGlue(t *testing.T) {
	bt, err := NewBlockType("touching:", "touching %m?", ShapeBoolean, "sensing")
	if err != nil {
		t.Fatal(err)
	}
	last := bt.Parts[len(bt.Parts)-1]
	if last.Text != "?" || !last.Glue {
		t.Errorf("last part: got %+v, want glued ?", last)
	}

	bt, err = NewBlockType("setSizeTo:", "set size to %n%", ShapeStack, "looks")
	if err != nil {
		t.Fatal(err)
	}
	last = bt.Parts[len(bt.Parts)-1]
	if last.Text != "%" || !last.Glue {
		t.Errorf("last part: got %+v, want glued %%", last)
	}
	if bt.Key() != "setsizeto%" {
		t.Errorf("key: got %q", bt.Key())
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"move %n steps", "movesteps"},
		{"When  Green Flag clicked", "whengreenflagclicked"},
		{"%n + %n", "+"},
		{"%a of %m", "of"},
		{"say %s for %n secs", "sayforsecs"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Built-in catalog
// ---------------------------------------------------------------------------

func TestDefaultCatalogLookups(t *testing.T) {
	c := Default()
	if c != Default() {
		t.Error("Default should return the shared catalog")
	}

	tests := []struct {
		text    string
		command string
	}{
		{"move %n steps", "forward:"},
		{"when gf clicked", "EventHatMorph"},
		{"when green flag clicked", "EventHatMorph"},
		{"forever", "doForever"},
		{"if %b", "doIf"},
		{"set %v to %s", "changeVariable"},
		{"change %v by %n", "changeVariable"},
		{"%n mod %n", `\\`},
	}
	for _, tt := range tests {
		types := c.Lookup(tt.text)
		if len(types) == 0 {
			t.Errorf("Lookup(%q): no match", tt.text)
			continue
		}
		if types[0].Command != tt.command {
			t.Errorf("Lookup(%q): got %s, want %s", tt.text, types[0].Command, tt.command)
		}
	}

	if got := c.Lookup("say nothing"); len(got) != 0 {
		t.Errorf("obsolete block selectable by text: %v", got)
	}
	if got := c.ByCommand("sayNothing"); len(got) != 1 {
		t.Errorf("obsolete block missing from ByCommand")
	}
	if got := c.ByText(""); len(got) != 0 {
		t.Errorf("inline readers selectable by text: %v", got)
	}
}

func TestCatalogVariant(t *testing.T) {
	c := Default()
	doIf := c.Command("doIf")
	ifElse := c.Variant(doIf, 2)
	if ifElse == nil || ifElse.Command != "doIfElse" {
		t.Fatalf("Variant(doIf, 2): got %v", ifElse)
	}
	if back := c.Variant(ifElse, 1); back != doIf {
		t.Errorf("Variant(doIfElse, 1): got %v", back)
	}
	if c.Variant(c.Command("forward:"), 1) != nil {
		t.Error("move has no C variant")
	}
}

func TestForFileHiddenDiscriminant(t *testing.T) {
	c := Default()
	tests := []struct {
		command string
		args    []any
		want    string // text of the expected type, "" for no match
	}{
		{"EventHatMorph", []any{"Scratch-StartClicked"}, "when green flag clicked"},
		{"EventHatMorph", []any{"go"}, "when I receive %e"},
		{"changeVariable", []any{"vx", "setVar:to:", int64(5)}, "set %v to %s"},
		{"changeVariable", []any{"vx", "changeVar:by:", int64(1)}, "change %v by %n"},
		{"changeVariable", []any{"vx", "bogus", int64(1)}, ""},
		{"forward:", []any{int64(10)}, "move %n steps"},
		{"forward:", []any{}, ""},
		{"fooBarBaz", []any{}, ""},
	}
	for _, tt := range tests {
		bt := c.ForFile(tt.command, tt.args)
		switch {
		case tt.want == "" && bt != nil:
			t.Errorf("ForFile(%s, %v): got %s, want none", tt.command, tt.args, bt.Text)
		case tt.want != "" && (bt == nil || bt.Text != tt.want):
			t.Errorf("ForFile(%s, %v): got %v, want %q", tt.command, tt.args, bt, tt.want)
		}
	}
}

func TestFileArgsSplitJoin(t *testing.T) {
	bt := Default().ForFile("changeVariable", []any{"x", "setVar:to:", int64(0)})
	args := bt.SplitFileArgs([]any{"x", "setVar:to:", int64(0)})
	if len(args) != 2 || args[0] != "x" || args[1] != int64(0) {
		t.Fatalf("SplitFileArgs: got %v", args)
	}
	file := bt.JoinFileArgs(args)
	if len(file) != 3 {
		t.Fatalf("JoinFileArgs: got %v", file)
	}
	h, ok := file[1].(Hidden)
	if !ok || h.Value != "setVar:to:" || !h.Symbol {
		t.Errorf("hidden slot: got %#v", file[1])
	}

	flag := Default().Lookup("when gf clicked")[0]
	file = flag.JoinFileArgs(nil)
	if len(file) != 1 {
		t.Fatalf("green flag file args: got %v", file)
	}
	if h, ok := file[0].(Hidden); !ok || h.Value != "Scratch-StartClicked" || h.Symbol {
		t.Errorf("green flag hidden: got %#v", file[0])
	}
}

func TestCatalogCommandOrderStable(t *testing.T) {
	a, _ := NewBlockType("x", "first", ShapeStack, "test")
	b, _ := NewBlockType("x", "second", ShapeStack, "test")
	for i := 0; i < 5; i++ {
		c, err := NewCatalog([]*BlockType{a, b})
		if err != nil {
			t.Fatal(err)
		}
		got := c.ByCommand("x")
		if len(got) != 2 || got[0] != a || got[1] != b {
			t.Fatalf("ByCommand order changed: %v", got)
		}
	}
}

func TestEveryBuiltinTypeHasArgs(t *testing.T) {
	for _, bt := range Default().Types() {
		blk := bt.New()
		if err := blk.Validate(); err != nil {
			t.Errorf("%s: default block invalid: %v", bt.Command, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Extension spec files
// ---------------------------------------------------------------------------

func TestLoadSpecFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.toml")
	src := `
[[block]]
command = "wiggle:"
text = "wiggle %n times"
shape = "stack"
category = "motion"
defaults = [3]
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	bt := c.Command("wiggle:")
	if bt == nil {
		t.Fatal("extension block missing")
	}
	if bt.Inserts[0].Default != int64(3) {
		t.Errorf("default: got %#v", bt.Inserts[0].Default)
	}
	if c.Command("forward:") == nil {
		t.Error("built-in blocks missing from extended catalog")
	}
}

func TestValidateSpecsRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad shape", `
[[block]]
command = "x"
text = "x"
shape = "round"
category = "c"
`},
		{"unknown key", `
[[block]]
command = "x"
text = "x"
shape = "stack"
category = "c"
colour = "red"
`},
		{"too many mouths", `
[[block]]
command = "x"
text = "x"
shape = "stack"
category = "c"
mouths = 3
`},
		{"missing command", `
[[block]]
text = "x"
shape = "stack"
category = "c"
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateSpecs([]byte(tt.src)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Block validation
// ---------------------------------------------------------------------------

func TestBlockValidate(t *testing.T) {
	c := Default()
	move := c.Command("forward:")
	forever := c.Command("doForever")
	doIf := c.Command("doIf")
	touching := c.Command("touching:")
	plus := c.Command("+")

	shared := move.New()
	tests := []struct {
		name string
		blk  *Block
		want error
	}{
		{"ok", &Block{Type: move, Command: "forward:", Args: []any{int64(10)}}, nil},
		{"arity", &Block{Type: move, Command: "forward:", Args: nil}, ErrArity},
		{"reporter in number", &Block{Type: move, Command: "forward:", Args: []any{plus.New()}}, nil},
		{"stack block in number", &Block{Type: move, Command: "forward:", Args: []any{move.New()}}, ErrArgShape},
		{"reporter in boolean", &Block{Type: doIf, Command: "doIf", Args: []any{plus.New(), Stack(nil)}}, ErrArgShape},
		{"boolean in boolean", &Block{Type: doIf, Command: "doIf", Args: []any{touching.New(), Stack(nil)}}, nil},
		{"shared block", &Block{Type: forever, Command: "doForever", Args: []any{Stack{shared, shared}}}, ErrSharedNode},
		{"opaque", &Block{Command: "fooBarBaz", Args: []any{"anything"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.blk.Validate()
			if tt.want == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWalkBlocks(t *testing.T) {
	c := Default()
	inner := c.Command("forward:").New()
	inner.Args[0] = c.Command("+").New()
	loop := c.Command("doForever").New()
	loop.Args[0] = Stack{inner}

	var commands []string
	Stack{loop}.WalkBlocks(func(b *Block) { commands = append(commands, b.Command) })
	if got := strings.Join(commands, " "); got != "doForever forward: +" {
		t.Errorf("walk order: got %s", got)
	}
}
