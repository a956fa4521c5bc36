package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/scratchkit/blocks"
	"github.com/chazu/scratchkit/project"
)

func openTest(t *testing.T) *Index {
	t.Helper()
	x, err := Open(filepath.Join(t.TempDir(), "db", "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { x.Close() })
	return x
}

// sample has a stage script with one move and a sprite script with a
// forever loop around two moves.
func sample(t *testing.T) *project.Project {
	t.Helper()
	c := blocks.Default()
	p := project.New()
	p.Info.Author = "someone"

	move := func() *blocks.Block {
		b := c.Command("forward:").New()
		b.Args[0] = int64(10)
		return b
	}
	p.Stage.AddScript(0, 0, blocks.Stack{move()})

	s, err := p.AddSprite("Cat")
	if err != nil {
		t.Fatal(err)
	}
	forever := c.Command("doForever").New()
	forever.Args[0] = blocks.Stack{move(), move()}
	s.AddScript(0, 0, blocks.Stack{c.Lookup("when green flag clicked")[0].New(), forever})
	s.AddScript(0, 0, nil)
	return p
}

func TestAddAndFind(t *testing.T) {
	ctx := context.Background()
	x := openTest(t)
	if err := x.Add(ctx, "a.sb", sample(t), "d1"); err != nil {
		t.Fatal(err)
	}

	rec, err := x.Lookup(ctx, "a.sb")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Digest != "d1" || rec.Author != "someone" || rec.Sprites != 1 || rec.Scripts != 2 {
		t.Errorf("record: %+v", rec)
	}

	uses, err := x.FindCommand(ctx, "forward:")
	if err != nil {
		t.Fatal(err)
	}
	want := []Usage{
		{Path: "a.sb", Target: "Cat", Command: "forward:", Count: 2},
		{Path: "a.sb", Target: "Stage", Command: "forward:", Count: 1},
	}
	if len(uses) != len(want) {
		t.Fatalf("got %v, want %v", uses, want)
	}
	for i := range want {
		if uses[i] != want[i] {
			t.Errorf("use %d: got %+v, want %+v", i, uses[i], want[i])
		}
	}

	if none, err := x.FindCommand(ctx, "say:"); err != nil || len(none) != 0 {
		t.Errorf("say: got %v, %v", none, err)
	}
}

func TestAddReplaces(t *testing.T) {
	ctx := context.Background()
	x := openTest(t)
	if err := x.Add(ctx, "a.sb", sample(t), "d1"); err != nil {
		t.Fatal(err)
	}
	if err := x.Add(ctx, "a.sb", project.New(), "d2"); err != nil {
		t.Fatal(err)
	}

	projects, err := x.Projects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Digest != "d2" {
		t.Errorf("projects: %+v", projects)
	}
	if uses, _ := x.FindCommand(ctx, "forward:"); len(uses) != 0 {
		t.Errorf("stale usage rows: %v", uses)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	x := openTest(t)
	if err := x.Add(ctx, "a.sb", sample(t), "d1"); err != nil {
		t.Fatal(err)
	}
	if err := x.Remove(ctx, "a.sb"); err != nil {
		t.Fatal(err)
	}
	if _, err := x.Lookup(ctx, "a.sb"); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("Lookup after Remove: %v", err)
	}
	if err := x.Remove(ctx, "a.sb"); !errors.Is(err, ErrNotIndexed) {
		t.Errorf("second Remove: %v", err)
	}
	if uses, _ := x.FindCommand(ctx, "forward:"); len(uses) != 0 {
		t.Errorf("usage rows survived: %v", uses)
	}
}
