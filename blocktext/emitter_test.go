package blocktext

import (
	"strings"
	"testing"

	"github.com/chazu/scratchkit/blocks"
)

// sameBlock compares two block trees by command and argument values.
func sameBlock(t *testing.T, path string, a, b *blocks.Block) {
	t.Helper()
	if a.Command != b.Command || a.Type != b.Type {
		t.Errorf("%s: command %s, want %s", path, b.Command, a.Command)
		return
	}
	if a.Comment != b.Comment {
		t.Errorf("%s: comment %q, want %q", path, b.Comment, a.Comment)
	}
	if len(a.Args) != len(b.Args) {
		t.Errorf("%s: %d args, want %d", path, len(b.Args), len(a.Args))
		return
	}
	for i := range a.Args {
		switch x := a.Args[i].(type) {
		case *blocks.Block:
			y, ok := b.Args[i].(*blocks.Block)
			if !ok {
				t.Errorf("%s arg %d: got %#v, want a block", path, i, b.Args[i])
				continue
			}
			sameBlock(t, path+"/"+x.Command, x, y)
		case blocks.Stack:
			y, ok := b.Args[i].(blocks.Stack)
			if !ok || len(x) != len(y) {
				t.Errorf("%s arg %d: got %#v, want %d blocks", path, i, b.Args[i], len(x))
				continue
			}
			for j := range x {
				sameBlock(t, path+"/"+x[j].Command, x[j], y[j])
			}
		default:
			if a.Args[i] != b.Args[i] {
				t.Errorf("%s arg %d: got %#v, want %#v", path, i, b.Args[i], a.Args[i])
			}
		}
	}
}

func TestEmitParseRoundTrip(t *testing.T) {
	scope := &blocks.Scope{Variables: []string{"score"}, Lists: []string{"items"}}
	opts := Options{Scope: scope}
	sources := []string{
		"when gf clicked\nforever\n\tmove (10) steps\nend\n",
		"when I receive [go v]\nif <(score) > (10)>\n\tsay [big]\nelse\n\tsay (join [a] (score))\nend\n",
		"set pen color to [#ff0080]\nset size to (50)%\nmove (-1.5) steps\nmove [12] steps\n",
		"(x position)\n",
		"<mouse down?>\n",
		"add [thing] to [items v]\nsay (items) // a list\n",
		"point in direction (-90 v)\nrepeat (3)\n\tturn cw (15) degrees\nend\n",
		"say ([sqrt v] of ((2) * ((score) + (1))))\n",
		"if <>\nend\n",
		"add [a] to [items v]\nsay (item (last v) of [items v])\nmove (.5) steps\n",
	}
	for _, src := range sources {
		scripts := mustParse(t, src, opts)
		out, err := Emit(scripts, opts)
		if err != nil {
			t.Errorf("Emit(%q): %v", src, err)
			continue
		}
		again := mustParse(t, out, opts)
		if len(again) != len(scripts) {
			t.Errorf("%q: %d scripts after round trip, want %d", src, len(again), len(scripts))
			continue
		}
		for i := range scripts {
			if len(again[i].Blocks) != len(scripts[i].Blocks) {
				t.Errorf("%q: script %d has %d blocks, want %d", src, i, len(again[i].Blocks), len(scripts[i].Blocks))
				continue
			}
			for j := range scripts[i].Blocks {
				sameBlock(t, src, scripts[i].Blocks[j], again[i].Blocks[j])
			}
		}
		out2, err := Emit(again, opts)
		if err != nil {
			t.Errorf("second Emit(%q): %v", src, err)
			continue
		}
		if out2 != out {
			t.Errorf("emit not idempotent:\n%s\nthen\n%s", out, out2)
		}
	}
}

func TestEmitFormatting(t *testing.T) {
	c := blocks.Default()
	move := c.Command("forward:").New()
	move.Args[0] = 2.0
	forever := c.Command("doForever").New()
	forever.Args[0] = blocks.Stack{move}
	say := c.Command("say:").New()
	say.Args[0] = `a]b`
	say.Comment = "hi"

	out, err := Emit([]*blocks.Script{{Blocks: blocks.Stack{forever}}, {Blocks: blocks.Stack{say}}}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := "forever\n\tmove (2.0) steps\nend\n\nsay [a\\]b] // hi\n"
	if out != want {
		t.Errorf("got\n%q\nwant\n%q", out, want)
	}
}

func TestEmitCanonicalText(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"when gf clicked\n", "when green flag clicked\n"},
		{"when flag clicked\nshow\n", "when green flag clicked\nshow\n"},
		{"when green flag clicked\n", "when green flag clicked\n"},
	}
	for _, tt := range tests {
		out, err := Emit(mustParse(t, tt.src, Options{}), Options{})
		if err != nil {
			t.Errorf("Emit(%q): %v", tt.src, err)
			continue
		}
		if out != tt.want {
			t.Errorf("Emit(%q) = %q, want %q", tt.src, out, tt.want)
		}
	}
}

func TestEmitIndent(t *testing.T) {
	c := blocks.Default()
	forever := c.Command("doForever").New()
	forever.Args[0] = blocks.Stack{c.Command("show").New()}
	e := &Emitter{Indent: "  "}
	out, err := e.EmitStack(blocks.Stack{forever})
	if err != nil {
		t.Fatal(err)
	}
	if out != "forever\n  show\nend\n" {
		t.Errorf("got %q", out)
	}
}

func TestEmitRejects(t *testing.T) {
	c := blocks.Default()
	sayNothing := c.Command("sayNothing")
	tests := []struct {
		name string
		blk  *blocks.Block
		msg  string
	}{
		{"opaque", &blocks.Block{Command: "fooBarBaz"}, "no text form"},
		{"obsolete", sayNothing.New(), "obsolete"},
		{"text in number slot", &blocks.Block{Type: c.Command("forward:"), Command: "forward:", Args: []any{"abc"}}, "number insert"},
		{"string that reads as a color", &blocks.Block{Type: c.Command("say:"), Command: "say:", Args: []any{"#fff"}}, "no text form"},
		{"variable named like a block", &blocks.Block{Type: c.Command("readVariable"), Command: "readVariable", Args: []any{"timer"}}, "no text form"},
		{"closed menu value", &blocks.Block{Type: c.Command("keyPressed:"), Command: "keyPressed:", Args: []any{"banana"}}, "not a key option"},
		{"number menu value", &blocks.Block{Type: c.Command("heading:"), Command: "heading:", Args: []any{"left"}}, "not a direction option"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Emit([]*blocks.Script{{Blocks: blocks.Stack{tc.blk}}}, Options{})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Errorf("got %q, want it to contain %q", err, tc.msg)
			}
		})
	}
}

func TestEmitAllowObsolete(t *testing.T) {
	c := blocks.Default()
	e := &Emitter{AllowObsolete: true}
	out, err := e.EmitStack(blocks.Stack{c.Command("sayNothing").New(), {Command: "fooBarBaz"}})
	if err != nil {
		t.Fatal(err)
	}
	if out != "say nothing\nfooBarBaz\n" {
		t.Errorf("got %q", out)
	}
}
