package objtable

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ---------------------------------------------------------------------------
// Fixed objects: strings, byte/word arrays, colors, geometry, forms
// ---------------------------------------------------------------------------

// String holds the bytes of a String, Symbol or UTF8 entry. The three
// classes differ only in tag and text encoding; the tag is preserved so a
// symbol never comes back as a string.
type String struct {
	ClassID ClassID
	Data    []byte
}

// NewString returns a String-class object for s. Use NewText when s may
// contain characters outside Mac Roman.
func NewString(s string) *String {
	return &String{ClassID: ClassString, Data: encodeMacRoman(s)}
}

// NewSymbol returns a Symbol-class object for s.
func NewSymbol(s string) *String {
	return &String{ClassID: ClassSymbol, Data: encodeMacRoman(s)}
}

// NewUTF8 returns a UTF8-class object for s.
func NewUTF8(s string) *String {
	return &String{ClassID: ClassUTF8, Data: []byte(s)}
}

// NewText returns a String when s is representable in Mac Roman and a UTF8
// object otherwise.
func NewText(s string) *String {
	if _, ok := macRomanBytes(s); ok {
		return NewString(s)
	}
	return NewUTF8(s)
}

func (s *String) Class() ClassID  { return s.ClassID }
func (s *String) slots() []*Value { return nil }
func (s *String) isValue()        {}

// Text decodes the stored bytes.
func (s *String) Text() string {
	if s.ClassID == ClassUTF8 {
		return string(s.Data)
	}
	out, err := charmap.Macintosh.NewDecoder().Bytes(s.Data)
	if err != nil {
		return string(s.Data)
	}
	return string(out)
}

// IsSymbol reports whether s is a Symbol.
func (s *String) IsSymbol() bool { return s.ClassID == ClassSymbol }

func macRomanBytes(s string) ([]byte, bool) {
	if !utf8.ValidString(s) {
		return nil, false
	}
	out, err := charmap.Macintosh.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, false
	}
	return out, true
}

func encodeMacRoman(s string) []byte {
	if b, ok := macRomanBytes(s); ok {
		return b
	}
	return []byte(s)
}

// TextOf returns the text of a String, Symbol or UTF8 value.
func TextOf(v Value) (string, bool) {
	if s, ok := v.(*String); ok {
		return s.Text(), true
	}
	return "", false
}

// ByteArray is a length-prefixed run of raw bytes (class 11).
type ByteArray struct {
	Data []byte
}

func (b *ByteArray) Class() ClassID  { return ClassByteArray }
func (b *ByteArray) slots() []*Value { return nil }
func (b *ByteArray) isValue()        {}

// SoundBuffer holds 16-bit samples exactly as stored (two bytes each).
type SoundBuffer struct {
	Data []byte
}

func (s *SoundBuffer) Class() ClassID  { return ClassSoundBuffer }
func (s *SoundBuffer) slots() []*Value { return nil }
func (s *SoundBuffer) isValue()        {}

// Samples returns the number of 16-bit samples.
func (s *SoundBuffer) Samples() int { return len(s.Data) / 2 }

// Bitmap is a length-prefixed array of 32-bit pixel words (class 13).
type Bitmap struct {
	Words []uint32
}

func (b *Bitmap) Class() ClassID  { return ClassBitmap }
func (b *Bitmap) slots() []*Value { return nil }
func (b *Bitmap) isValue()        {}

// Color is a Color (class 30) or TranslucentColor (class 31). RGB packs
// three 10-bit channels as r<<20 | g<<10 | b.
type Color struct {
	RGB         uint32
	Alpha       uint8
	Translucent bool
}

// NewColorRGB8 builds an opaque Color from 8-bit channels.
func NewColorRGB8(r, g, b uint8) *Color {
	return &Color{RGB: to10(r)<<20 | to10(g)<<10 | to10(b)}
}

// to10 and from10 round to nearest, so 8-bit channels survive a round trip.
func to10(c uint8) uint32 { return (uint32(c)*1023 + 127) / 255 }

func from10(c uint32) uint8 { return uint8(((c&0x3FF)*255 + 511) / 1023) }

// RGB8 returns the color as 8-bit channels.
func (c *Color) RGB8() (r, g, b uint8) {
	return from10(c.RGB >> 20), from10(c.RGB >> 10), from10(c.RGB)
}

func (c *Color) Class() ClassID {
	if c.Translucent {
		return ClassTranslucentColor
	}
	return ClassColor
}
func (c *Color) slots() []*Value { return nil }
func (c *Color) isValue()        {}

// Point is a pair of values (class 32).
type Point struct {
	X, Y Value
}

// NewPoint builds a point from two numbers using the narrowest encodings.
func NewPoint(x, y float64) *Point {
	return &Point{X: Number(x), Y: Number(y)}
}

func (p *Point) Class() ClassID  { return ClassPoint }
func (p *Point) slots() []*Value { return []*Value{&p.X, &p.Y} }
func (p *Point) isValue()        {}

// XY returns the coordinates as floats; non-numeric coordinates read as 0.
func (p *Point) XY() (float64, float64) {
	x, _ := FloatValue(p.X)
	y, _ := FloatValue(p.Y)
	return x, y
}

// Rectangle is four values: left, top, right, bottom (class 33).
type Rectangle struct {
	Left, Top, Right, Bottom Value
}

func (r *Rectangle) Class() ClassID { return ClassRectangle }
func (r *Rectangle) slots() []*Value {
	return []*Value{&r.Left, &r.Top, &r.Right, &r.Bottom}
}
func (r *Rectangle) isValue() {}

// Form is a bitmap image (class 34) or, with Colors set, a ColorForm
// (class 35). Bits usually references a Bitmap or ByteArray.
type Form struct {
	Width, Height, Depth, Offset, Bits Value
	Colors                             Value
	Indexed                            bool
}

func (f *Form) Class() ClassID {
	if f.Indexed {
		return ClassColorForm
	}
	return ClassForm
}

func (f *Form) slots() []*Value {
	s := []*Value{&f.Width, &f.Height, &f.Depth, &f.Offset, &f.Bits}
	if f.Indexed {
		s = append(s, &f.Colors)
	}
	return s
}
func (f *Form) isValue() {}

// Size returns width and height when both are integers.
func (f *Form) Size() (int, int) {
	w, _ := IntValue(f.Width)
	h, _ := IntValue(f.Height)
	return int(w), int(h)
}

// Number returns the narrowest value for x: an integer variant when x is
// integral, a Float otherwise.
func Number(x float64) Value {
	if x == float64(int64(x)) && x >= -1<<53 && x <= 1<<53 {
		return NewInt(int64(x))
	}
	return Float(x)
}
