package objtable

import (
	"bytes"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Table decoding
// ---------------------------------------------------------------------------

func TestDecodeArrayWithString(t *testing.T) {
	data := newTableBuilder(2).
		tag(ClassArray).u32(3).ref(2).nilValue().short(3).
		str(ClassString, "hi").
		bytes()

	root, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	arr, ok := root.(*Collection)
	if !ok || arr.ClassID != ClassArray {
		t.Fatalf("root: got %T", root)
	}
	if arr.Len() != 3 {
		t.Fatalf("len: got %d, want 3", arr.Len())
	}
	if text, ok := TextOf(arr.Items[0]); !ok || text != "hi" {
		t.Errorf("item 0: got %#v", arr.Items[0])
	}
	if !IsNil(arr.Items[1]) {
		t.Errorf("item 1: got %#v, want nil", arr.Items[1])
	}
	if n, _ := IntValue(arr.Items[2]); n != 3 {
		t.Errorf("item 2: got %#v, want 3", arr.Items[2])
	}

	out, err := Encode(root)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("re-encode:\n got % x\nwant % x", out, data)
	}
}

func TestDecodeNoRefsRemain(t *testing.T) {
	data := newTableBuilder(3).
		tag(ClassOrderedCollection).u32(2).ref(2).ref(3).
		tag(ClassPoint).ref(3).short(1).
		tag(ClassRectangle).short(0).short(0).short(10).ref(1).
		bytes()

	root, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	err = Walk(root, func(obj Object) error {
		for _, slot := range obj.slots() {
			if _, isRef := (*slot).(Ref); isRef {
				t.Errorf("%s still holds a reference", obj.Class())
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		want  error
		entry int
	}{
		{"empty", nil, ErrBadMagic, 0},
		{"wrong magic", []byte("ObjS\x01Stch\x02\x00\x00\x00\x00"), ErrBadMagic, 0},
		{"count too large", newTableBuilder(1000).nilValue().bytes(), ErrBadCount, 0},
		{"truncated count", Magic, ErrUnexpectedEOF, 0},
		{"truncated string",
			newTableBuilder(1).tag(ClassString).u32(10).u8('a').u8('b').bytes(),
			ErrUnexpectedEOF, 1},
		{"unknown fixed class",
			newTableBuilder(1).u8(50).u32(0).bytes(),
			ErrUnknownClass, 1},
		{"inline tag as entry",
			newTableBuilder(1).short(1).bytes(),
			ErrUnknownClass, 1},
		{"unknown user class",
			newTableBuilder(1).u8(200).u8(1).u8(0).bytes(),
			ErrUnknownClass, 1},
		{"bad version",
			newTableBuilder(1).u8(100).u8(9).u8(0).bytes(),
			ErrBadVersion, 1},
		{"bad value tag",
			newTableBuilder(1).tag(ClassPoint).u8(42).nilValue().bytes(),
			ErrInvalidValue, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("got %T, want *FormatError", err)
			}
			if fe.Entry != tt.entry {
				t.Errorf("entry: got %d, want %d", fe.Entry, tt.entry)
			}
		})
	}
}

func TestDecodeShortUserObject(t *testing.T) {
	// A Morph stored with only bounds and owner.
	data := newTableBuilder(1).u8(100).u8(1).u8(2).nilValue().nilValue().bytes()
	d := NewDecoder(data)
	tbl, err := d.ReadTable()
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if d.Padded() != 1 {
		t.Errorf("padded: got %d, want 1", d.Padded())
	}
	u, ok := tbl.Root().(*UserObject)
	if !ok {
		t.Fatalf("root: got %T", tbl.Root())
	}
	if len(u.Fields) != len(u.Schema.Fields) {
		t.Fatalf("fields: got %d, want %d", len(u.Fields), len(u.Schema.Fields))
	}
	if n, ok := IntValue(u.Get("flags")); !ok || n != 0 {
		t.Errorf("flags: got %#v, want default 0", u.Get("flags"))
	}
	if !IsNil(u.Get("submorphs")) {
		t.Errorf("submorphs: got %#v, want nil", u.Get("submorphs"))
	}
	if len(u.Extra()) != 0 {
		t.Errorf("extra: got %d fields", len(u.Extra()))
	}
}

func TestDecodeDanglingRef(t *testing.T) {
	tests := []struct {
		name string
		ref  uint32
	}{
		{"zero", 0},
		{"past end", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := newTableBuilder(2).
				tag(ClassArray).u32(1).ref(2).
				tag(ClassArray).u32(1).ref(tt.ref).
				bytes()
			root, err := Decode(data)
			if root != nil {
				t.Error("a graph was returned alongside an error")
			}
			var ge *GraphError
			if !errors.As(err, &ge) || !errors.Is(err, ErrDanglingRef) {
				t.Fatalf("got %v, want dangling reference", err)
			}
			if ge.Entry != 2 {
				t.Errorf("entry: got %d, want 2", ge.Entry)
			}
		})
	}
}

func TestFormatErrorOffset(t *testing.T) {
	data := newTableBuilder(1).u8(77).u8(0).u8(0).bytes()
	_, err := ReadTable(data)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v", err)
	}
	if fe.Offset != len(Magic)+4 {
		t.Errorf("offset: got %d, want %d", fe.Offset, len(Magic)+4)
	}
}

// ---------------------------------------------------------------------------
// Boundary cases
// ---------------------------------------------------------------------------

func TestEmptyCollections(t *testing.T) {
	for _, c := range []ClassID{ClassArray, ClassOrderedCollection, ClassSet, ClassIdentitySet} {
		root := &Collection{ClassID: c, Items: []Value{}}
		got := roundTrip(t, root).(*Collection)
		if got.ClassID != c || got.Len() != 0 {
			t.Errorf("%s: got %s with %d items", c, got.ClassID, got.Len())
		}
	}
	d := roundTrip(t, NewDictionary()).(*Dictionary)
	if len(d.Pairs) != 0 {
		t.Errorf("dictionary: got %d pairs", len(d.Pairs))
	}
}

func TestDictionaryNonStringKeys(t *testing.T) {
	pt := NewPoint(1, 2)
	d := &Dictionary{ClassID: ClassIdentityDictionary, Pairs: []Pair{
		{Key: ShortInt(1), Value: NewString("one")},
		{Key: pt, Value: Bool(true)},
		{Key: NewSymbol("name"), Value: NewString("x")},
	}}
	got := roundTrip(t, d).(*Dictionary)
	if got.ClassID != ClassIdentityDictionary || len(got.Pairs) != 3 {
		t.Fatalf("got %s with %d pairs", got.ClassID, len(got.Pairs))
	}
	if n, _ := IntValue(got.Pairs[0].Key); n != 1 {
		t.Errorf("key 0: got %#v", got.Pairs[0].Key)
	}
	if p, ok := got.Pairs[1].Key.(*Point); !ok {
		t.Errorf("key 1: got %T", got.Pairs[1].Key)
	} else if x, y := p.XY(); x != 1 || y != 2 {
		t.Errorf("key 1: got (%v, %v)", x, y)
	}
	if v, ok := got.Lookup("name"); !ok {
		t.Error("Lookup(name) failed")
	} else if text, _ := TextOf(v); text != "x" {
		t.Errorf("Lookup(name): got %q", text)
	}
}

func TestFormWithBitmapRef(t *testing.T) {
	bits := &Bitmap{Words: []uint32{0xFFFFFFFF, 0, 0x12345678}}
	palette := NewArray(NewColorRGB8(0, 0, 0), NewColorRGB8(255, 255, 255))
	form := &Form{
		Width: ShortInt(3), Height: ShortInt(1), Depth: ShortInt(32), Offset: Nil,
		Bits: bits, Colors: palette, Indexed: true,
	}
	got := roundTrip(t, form).(*Form)
	if got.Class() != ClassColorForm {
		t.Errorf("class: got %s", got.Class())
	}
	if w, h := got.Size(); w != 3 || h != 1 {
		t.Errorf("size: got %dx%d", w, h)
	}
	gotBits, ok := got.Bits.(*Bitmap)
	if !ok {
		t.Fatalf("bits: got %T", got.Bits)
	}
	if len(gotBits.Words) != 3 || gotBits.Words[2] != 0x12345678 {
		t.Errorf("bits: got %x", gotBits.Words)
	}
	if colors, ok := got.Colors.(*Collection); !ok || colors.Len() != 2 {
		t.Errorf("colors: got %#v", got.Colors)
	}
}

func TestSymbolStaysSymbol(t *testing.T) {
	arr := NewArray(NewSymbol("forward:"), NewString("forward:"), NewUTF8("forward:"))
	got := roundTrip(t, arr).(*Collection)
	want := []ClassID{ClassSymbol, ClassString, ClassUTF8}
	for i, c := range want {
		if got.Items[i].(*String).Class() != c {
			t.Errorf("item %d: got %s, want %s", i, got.Items[i].(*String).Class(), c)
		}
	}
}

func TestSoundBufferAndByteArray(t *testing.T) {
	arr := NewArray(
		&SoundBuffer{Data: []byte{0x00, 0x01, 0xFF, 0xFE}},
		&ByteArray{Data: []byte{1, 2, 3}},
	)
	got := roundTrip(t, arr).(*Collection)
	sb := got.Items[0].(*SoundBuffer)
	if sb.Samples() != 2 || !bytes.Equal(sb.Data, []byte{0x00, 0x01, 0xFF, 0xFE}) {
		t.Errorf("sound buffer: got % x", sb.Data)
	}
	if ba := got.Items[1].(*ByteArray); !bytes.Equal(ba.Data, []byte{1, 2, 3}) {
		t.Errorf("byte array: got % x", ba.Data)
	}
}

func TestTranslucentColor(t *testing.T) {
	c := &Color{RGB: 0x12345678 & 0x3FFFFFFF, Alpha: 128, Translucent: true}
	got := roundTrip(t, c).(*Color)
	if *got != *c {
		t.Errorf("got %+v, want %+v", got, c)
	}
}

func TestLargeIntsInTable(t *testing.T) {
	arr := NewArray(NewInt(1<<40), NewInt(-(1 << 40)), NewInt(-1<<30-1))
	got := roundTrip(t, arr).(*Collection)
	for i, want := range []int64{1 << 40, -(1 << 40), -1<<30 - 1} {
		if n, ok := IntValue(got.Items[i]); !ok || n != want {
			t.Errorf("item %d: got %#v, want %d", i, got.Items[i], want)
		}
	}
}

// roundTrip encodes root, decodes the result and checks that re-encoding
// reproduces the same bytes.
func roundTrip(t *testing.T, root Object) Object {
	t.Helper()
	data, err := Encode(root)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	again, err := Encode(got)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatalf("re-encode differs:\n got % x\nwant % x", again, data)
	}
	return got
}
