package objtable

import (
	"bytes"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Flatten / Link
// ---------------------------------------------------------------------------

func TestFlattenPreOrder(t *testing.T) {
	a := NewString("a")
	b := NewString("b")
	inner := NewArray(b, a)
	root := NewArray(a, inner, ShortInt(1), b)

	tbl, err := Flatten(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []Object{root, a, inner, b}
	if tbl.Len() != len(want) {
		t.Fatalf("len: got %d, want %d", tbl.Len(), len(want))
	}
	for i, obj := range want {
		if tbl.Entries[i] != obj {
			t.Errorf("entry %d: got %#v, want %#v", i+1, tbl.Entries[i], obj)
		}
	}
}

func TestSharedIdentity(t *testing.T) {
	color := NewColorRGB8(10, 20, 30)
	s1, _ := NewUserObjectNamed("ScratchSpriteMorph")
	s2, _ := NewUserObjectNamed("ScratchSpriteMorph")
	s1.MustSet("color", color)
	s2.MustSet("color", color)
	root := NewArray(s1, s2)

	data, err := Encode(root)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := ReadTable(data)
	if err != nil {
		t.Fatal(err)
	}
	colors := 0
	for _, obj := range tbl.Entries {
		if obj.Class() == ClassColor {
			colors++
		}
	}
	if colors != 1 {
		t.Errorf("got %d Color entries, want 1", colors)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	arr := got.(*Collection)
	c1 := arr.Items[0].(*UserObject).Get("color")
	c2 := arr.Items[1].(*UserObject).Get("color")
	if c1 != c2 {
		t.Error("shared color decoded as two objects")
	}
}

func TestCycles(t *testing.T) {
	stage, _ := NewUserObjectNamed("ScratchStageMorph")
	sprite, _ := NewUserObjectNamed("ScratchSpriteMorph")
	sprite.MustSet("owner", stage)
	stage.MustSet("submorphs", NewArray(sprite))
	stage.MustSet("sprites", NewOrderedCollection(sprite))

	got := roundTrip(t, stage).(*UserObject)
	subs := got.Get("submorphs").(*Collection)
	sp := subs.Items[0].(*UserObject)
	if sp.Get("owner") != Value(got) {
		t.Error("sprite owner does not point back at the stage")
	}
	if got.Get("sprites").(*Collection).Items[0] != Value(sp) {
		t.Error("sprites and submorphs hold different objects")
	}
}

func TestFlattenLikeKeepsOrder(t *testing.T) {
	// Entries 2 and 3 are in the reverse of discovery order.
	data := newTableBuilder(3).
		tag(ClassArray).u32(2).ref(3).ref(2).
		str(ClassString, "second").
		str(ClassString, "first").
		bytes()
	tbl, err := ReadTable(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := tbl.Link(); err != nil {
		t.Fatal(err)
	}

	plain, err := Encode(tbl.Root())
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(plain, data) {
		t.Fatal("expected discovery order to differ from stored order")
	}

	again, err := FlattenLike(tbl.Root(), tbl)
	if err != nil {
		t.Fatal(err)
	}
	out, err := again.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("FlattenLike:\n got % x\nwant % x", out, data)
	}

	// A new object goes after the surviving ones; a dropped one disappears.
	root := tbl.Root().(*Collection)
	added := NewString("new")
	root.Items[1] = added
	again, err = FlattenLike(root, tbl)
	if err != nil {
		t.Fatal(err)
	}
	if again.Len() != 3 || again.Entries[2] != Object(added) {
		t.Errorf("entries: got %v", again.Entries)
	}
}

func TestTableEncodeUnlinked(t *testing.T) {
	data := newTableBuilder(2).
		tag(ClassPoint).ref(2).ref(2).
		tag(ClassColor).u32(0x3FF).
		bytes()
	tbl, err := ReadTable(data)
	if err != nil {
		t.Fatal(err)
	}
	out, err := tbl.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("got % x, want % x", out, data)
	}
}

func TestEncodeForeignObject(t *testing.T) {
	tbl := &Table{Entries: []Object{NewArray(NewString("not in table"))}}
	_, err := tbl.Encode()
	if !errors.Is(err, ErrDanglingRef) {
		t.Errorf("got %v, want dangling reference", err)
	}
}

func TestWalkVisitsOnce(t *testing.T) {
	shared := NewPoint(1, 1)
	root := NewArray(shared, shared, NewArray(shared))
	seen := map[Object]int{}
	err := Walk(root, func(o Object) error {
		seen[o]++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 3 {
		t.Errorf("visited %d objects, want 3", len(seen))
	}
	for o, n := range seen {
		if n != 1 {
			t.Errorf("%s visited %d times", o.Class(), n)
		}
	}

	stop := errors.New("stop")
	if err := Walk(root, func(Object) error { return stop }); err != stop {
		t.Errorf("got %v, want stop", err)
	}
}

// ---------------------------------------------------------------------------
// User objects
// ---------------------------------------------------------------------------

func TestUserObjectExcessFields(t *testing.T) {
	b := newTableBuilder(1).u8(103).u8(1).u8(10)
	for i := 0; i < 8; i++ {
		b.nilValue()
	}
	b.short(7).short(8)
	data := b.bytes()

	root, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	u := root.(*UserObject)
	if u.ClassName() != "EllipseMorph" {
		t.Errorf("class: got %s", u.ClassName())
	}
	extra := u.Extra()
	if len(extra) != 2 {
		t.Fatalf("extra: got %d, want 2", len(extra))
	}
	if n, _ := IntValue(extra[1]); n != 8 {
		t.Errorf("extra[1]: got %#v", extra[1])
	}
	out, err := Encode(root)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("re-encode:\n got % x\nwant % x", out, data)
	}
}

func TestUserObjectShortFieldsPadded(t *testing.T) {
	s, _ := Schemas().ByName("SoundMedia")
	u := &UserObject{Schema: s, Version: s.Version, Fields: []Value{NewString("pop")}}
	got := roundTrip(t, u).(*UserObject)
	if len(got.Fields) != len(s.Fields) {
		t.Fatalf("fields: got %d, want %d", len(got.Fields), len(s.Fields))
	}
	if n, _ := IntValue(got.Get("volume")); n != 100 {
		t.Errorf("volume: got %#v, want default 100", got.Get("volume"))
	}
}

func TestUserObjectGetSet(t *testing.T) {
	u, err := NewUserObjectNamed("ScratchSpriteMorph")
	if err != nil {
		t.Fatal(err)
	}
	if err := u.Set("objName", NewString("Cat")); err != nil {
		t.Fatal(err)
	}
	if text, _ := TextOf(u.Get("objName")); text != "Cat" {
		t.Errorf("objName: got %q", text)
	}
	if err := u.Set("nope", Nil); !errors.Is(err, ErrUnknownField) {
		t.Errorf("got %v, want unknown field", err)
	}
	if !IsNil(u.Get("nope")) {
		t.Error("unknown field should read as nil")
	}
	if _, err := NewUserObjectNamed("MediaItem"); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("abstract class: got %v", err)
	}
}
