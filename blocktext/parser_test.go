package blocktext

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/scratchkit/blocks"
)

func mustParse(t *testing.T, src string, opts Options) []*blocks.Script {
	t.Helper()
	scripts, err := Parse(src, opts)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return scripts
}

// parseOne parses src and returns the first block of its only script.
func parseOne(t *testing.T, src string, opts Options) *blocks.Block {
	t.Helper()
	scripts := mustParse(t, src, opts)
	if len(scripts) != 1 || len(scripts[0].Blocks) == 0 {
		t.Fatalf("Parse(%q): got %d scripts, want 1", src, len(scripts))
	}
	return scripts[0].Blocks[0]
}

func TestParseHatAndForever(t *testing.T) {
	src := "when gf clicked\nforever\n  move (10) steps\nend\n"
	scripts := mustParse(t, src, Options{})
	if len(scripts) != 1 {
		t.Fatalf("got %d scripts, want 1", len(scripts))
	}
	stack := scripts[0].Blocks
	if len(stack) != 2 {
		t.Fatalf("got %d top-level blocks, want 2", len(stack))
	}
	if stack[0].Command != "EventHatMorph" || len(stack[0].Args) != 0 {
		t.Errorf("hat: got %s %v", stack[0].Command, stack[0].Args)
	}
	if stack[1].Command != "doForever" {
		t.Fatalf("second block: got %s, want doForever", stack[1].Command)
	}
	body := stack[1].Mouth(0)
	if len(body) != 1 || body[0].Command != "forward:" {
		t.Fatalf("forever body: got %v", body)
	}
	if body[0].Args[0] != int64(10) {
		t.Errorf("move argument: got %#v, want 10", body[0].Args[0])
	}
}

func TestParseArgumentShapeError(t *testing.T) {
	_, err := Parse("move [abc] steps", Options{})
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("got %v, want *Error", err)
	}
	if perr.Msg != "argument of shape number expected, got string" {
		t.Errorf("message: got %q", perr.Msg)
	}
	if perr.Line != 1 || perr.Column != 6 {
		t.Errorf("position: got %d:%d, want 1:6", perr.Line, perr.Column)
	}
	if got := err.Error(); got != "line 1, column 6: argument of shape number expected, got string" {
		t.Errorf("Error(): got %q", got)
	}
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"move (10) steps", int64(10)},
		{"move (-2.5) steps", -2.5},
		{"move (2.0) steps", 2.0},
		{"move [12] steps", "12"},
		{"move () steps", ""},
		{"move 7 steps", int64(7)},
		{"say [hello]", "hello"},
		{"say (5)", int64(5)},
		{`say [a\]b]`, "a]b"},
		{"set pen color to [#f00]", blocks.Color{R: 255}},
		{"set pen color to [#00ff80]", blocks.Color{G: 255, B: 128}},
		{"point in direction (-90 v)", int64(-90)},
		{"point in direction (90 v)", int64(90)},
		{"move (.5) steps", 0.5},
		{"move (5.) steps", 5.0},
		{"move (1e3) steps", 1000.0},
		{"switch to costume [costume2 v]", "costume2"},
		{"switch to costume (2)", int64(2)},
	}
	for _, tc := range tests {
		blk := parseOne(t, tc.src, Options{})
		if got := blk.Args[0]; got != tc.want {
			t.Errorf("Parse(%q): argument %#v, want %#v", tc.src, got, tc.want)
		}
	}
}

func TestParseVariablesAndLists(t *testing.T) {
	scope := &blocks.Scope{Variables: []string{"score", "both"}, Lists: []string{"items", "both"}}
	tests := []struct {
		src     string
		command string
		name    string
	}{
		{"say (score)", "readVariable", "score"},
		{"say (items)", "contentsOfList:", "items"},
		{"say (both)", "readVariable", "both"},
		{"say (unknown thing)", "readVariable", "unknown thing"},
	}
	for _, tc := range tests {
		blk := parseOne(t, tc.src, Options{Scope: scope})
		arg, ok := blk.Args[0].(*blocks.Block)
		if !ok {
			t.Errorf("Parse(%q): argument %#v, want a reporter", tc.src, blk.Args[0])
			continue
		}
		if arg.Command != tc.command || arg.Args[0] != tc.name {
			t.Errorf("Parse(%q): got %s %v, want %s %q", tc.src, arg.Command, arg.Args, tc.command, tc.name)
		}
	}
}

func TestParseOperators(t *testing.T) {
	blk := parseOne(t, "say ((1) + ((2) * (3)))", Options{})
	plus, ok := blk.Args[0].(*blocks.Block)
	if !ok || plus.Command != "+" {
		t.Fatalf("got %#v, want +", blk.Args[0])
	}
	if times, ok := plus.Args[1].(*blocks.Block); !ok || times.Command != "*" {
		t.Errorf("right operand: got %#v, want *", plus.Args[1])
	}

	// precedence without inner brackets
	blk = parseOne(t, "say ((1) + (2) * (3))", Options{})
	plus = blk.Args[0].(*blocks.Block)
	if plus.Command != "+" {
		t.Fatalf("got %s, want + at the root", plus.Command)
	}
	if times, ok := plus.Args[1].(*blocks.Block); !ok || times.Command != "*" {
		t.Errorf("* should bind tighter: got %#v", plus.Args[1])
	}

	// left associativity
	blk = parseOne(t, "say ((8) - (2) - (1))", Options{})
	minus := blk.Args[0].(*blocks.Block)
	if inner, ok := minus.Args[0].(*blocks.Block); !ok || inner.Command != "-" || minus.Args[1] != int64(1) {
		t.Errorf("- should associate left: got %v", minus.Args)
	}
}

func TestParseComparisons(t *testing.T) {
	tests := []struct {
		src     string
		command string
	}{
		{"if <(x position) > (10)>\nend", ">"},
		{"if <(x position) < (10)>\nend", "<"},
		{"if <(answer) = [yes]>\nend", "="},
		{"if <<mouse down?> and <(1) < (2)>>\nend", "&"},
		{"if <not <mouse down?>>\nend", "not"},
		{"if <touching [edge v]?>\nend", "touching:"},
		{"if <key [space v] pressed?>\nend", "keyPressed:"},
	}
	for _, tc := range tests {
		blk := parseOne(t, tc.src, Options{})
		cond, ok := blk.Args[0].(*blocks.Block)
		if !ok || cond.Command != tc.command {
			t.Errorf("Parse(%q): condition %#v, want %s", tc.src, blk.Args[0], tc.command)
		}
	}
}

func TestParseAmbiguousOf(t *testing.T) {
	blk := parseOne(t, "say ([sqrt v] of (9))", Options{})
	if got := blk.Args[0].(*blocks.Block).Command; got != "computeFunction:of:" {
		t.Errorf("function of: got %s", got)
	}
	blk = parseOne(t, "say ([x position v] of [Sprite1 v])", Options{})
	if got := blk.Args[0].(*blocks.Block).Command; got != "getAttribute:of:" {
		t.Errorf("attribute of: got %s", got)
	}
}

func TestParseIfElse(t *testing.T) {
	src := "if <mouse down?>\n\tshow\nelse\n\thide\nend\n"
	blk := parseOne(t, src, Options{})
	if blk.Command != "doIfElse" {
		t.Fatalf("got %s, want doIfElse", blk.Command)
	}
	if m := blk.Mouth(0); len(m) != 1 || m[0].Command != "show" {
		t.Errorf("then: got %v", m)
	}
	if m := blk.Mouth(1); len(m) != 1 || m[0].Command != "hide" {
		t.Errorf("else: got %v", m)
	}

	blk = parseOne(t, "if <>\nend", Options{})
	if blk.Command != "doIf" || blk.Args[0] != false {
		t.Errorf("empty if: got %s %#v", blk.Command, blk.Args)
	}
	if m, ok := blk.Args[1].(blocks.Stack); !ok || m != nil {
		t.Errorf("empty mouth: got %#v, want Stack(nil)", blk.Args[1])
	}
}

func TestParseScriptsAndComments(t *testing.T) {
	src := "when gf clicked\nshow // appear\n// and stay\n\n\nmove (1) steps\n"
	scripts := mustParse(t, src, Options{})
	if len(scripts) != 2 {
		t.Fatalf("got %d scripts, want 2", len(scripts))
	}
	show := scripts[0].Blocks[1]
	if show.Comment != "appear\nand stay" {
		t.Errorf("comment: got %q", show.Comment)
	}
	if got := scripts[1].Blocks[0].Command; got != "forward:" {
		t.Errorf("second script: got %s", got)
	}
}

func TestParseLoneReporter(t *testing.T) {
	blk := parseOne(t, "(x position)", Options{})
	if blk.Command != "xpos" {
		t.Errorf("got %s, want xpos", blk.Command)
	}
	blk = parseOne(t, "(a) + (1)", Options{})
	if blk.Command != "+" {
		t.Errorf("got %s, want +", blk.Command)
	}
}

func TestParseNumberMenus(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"play drum (48 v) for (1) beats", int64(48)},
		{"point in direction (180 v)", int64(180)},
		{"delete (all v) of [items v]", "all"},
		{"delete [last] of [items v]", "last"},
	}
	for _, tc := range tests {
		blk := parseOne(t, tc.src, Options{})
		if got := blk.Args[0]; got != tc.want {
			t.Errorf("Parse(%q): argument %#v, want %#v", tc.src, got, tc.want)
		}
	}

	blk := parseOne(t, "say (item (last v) of [items v])", Options{})
	item, ok := blk.Args[0].(*blocks.Block)
	if !ok || item.Args[0] != "last" {
		t.Errorf("item index: %#v", blk.Args[0])
	}
}

func TestParseStructureErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"hat in stack", "move (10) steps\nwhen gf clicked", "must start a script"},
		{"hat in mouth", "forever\nwhen gf clicked\nend", "must start a script"},
		{"after cap", "forever\nend\nmove (1) steps", "nothing can follow"},
		{"stacked reporter", "move (1) steps\n(x position)", "cannot be stacked"},
		{"missing end", "forever\nmove (1) steps\n", "missing end"},
		{"stray end", "end", "unexpected end"},
		{"else without if", "forever\nelse\nend", "has no else"},
		{"unknown block", "dance wildly", "unknown block"},
		{"boolean slot", "if (1)\nend", "argument of shape boolean expected, got number"},
		{"literal statement", "(10)", "block expected"},
		{"unclosed paren", "move (10", "unexpected end of input"},
		{"bad escape", `say [a\qb]`, "invalid escape"},
		{"closed menu", "when [banana v] key pressed", "argument of shape readonly-menu"},
		{"number menu option", "say (item (bogus v) of [items v])", "argument of shape number-menu"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src, Options{})
			if err == nil {
				t.Fatal("expected an error")
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("got %T, want *Error", err)
			}
			if !strings.Contains(perr.Msg, tc.msg) {
				t.Errorf("message: got %q, want it to contain %q", perr.Msg, tc.msg)
			}
		})
	}
}

func TestParseUnknownBlockSuggestions(t *testing.T) {
	_, err := Parse("move quickly", Options{})
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("got %v", err)
	}
	found := false
	for _, e := range perr.Expected {
		if e == "move %n steps" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected set %v lacks move %%n steps", perr.Expected)
	}
}
