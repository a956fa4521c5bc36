package objtable

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
)

// ---------------------------------------------------------------------------
// Class IDs
// ---------------------------------------------------------------------------

// ClassID is the one-byte class tag that starts every value and table entry.
type ClassID uint8

// Inline classes. These never occupy a table slot.
const (
	ClassNil      ClassID = 1
	ClassTrue     ClassID = 2
	ClassFalse    ClassID = 3
	ClassSmallInt ClassID = 4
	ClassShortInt ClassID = 5
	ClassLargePos ClassID = 6
	ClassLargeNeg ClassID = 7
	ClassFloat    ClassID = 8
	ClassRef      ClassID = 99
)

// Fixed classes. Their byte layout is fully determined by the tag.
const (
	ClassString             ClassID = 9
	ClassSymbol             ClassID = 10
	ClassByteArray          ClassID = 11
	ClassSoundBuffer        ClassID = 12
	ClassBitmap             ClassID = 13
	ClassUTF8               ClassID = 14
	ClassArray              ClassID = 20
	ClassOrderedCollection  ClassID = 21
	ClassSet                ClassID = 22
	ClassIdentitySet        ClassID = 23
	ClassDictionary         ClassID = 24
	ClassIdentityDictionary ClassID = 25
	ClassColor              ClassID = 30
	ClassTranslucentColor   ClassID = 31
	ClassPoint              ClassID = 32
	ClassRectangle          ClassID = 33
	ClassForm               ClassID = 34
	ClassColorForm          ClassID = 35
)

// FirstUserClass is the lowest tag routed to the user-object codec.
const FirstUserClass ClassID = 100

var classNames = map[ClassID]string{
	ClassNil:                "nil",
	ClassTrue:               "true",
	ClassFalse:              "false",
	ClassSmallInt:           "SmallInteger",
	ClassShortInt:           "SmallInteger16",
	ClassLargePos:           "LargePositiveInteger",
	ClassLargeNeg:           "LargeNegativeInteger",
	ClassFloat:              "Float",
	ClassRef:                "ObjectRef",
	ClassString:             "String",
	ClassSymbol:             "Symbol",
	ClassByteArray:          "ByteArray",
	ClassSoundBuffer:        "SoundBuffer",
	ClassBitmap:             "Bitmap",
	ClassUTF8:               "UTF8",
	ClassArray:              "Array",
	ClassOrderedCollection:  "OrderedCollection",
	ClassSet:                "Set",
	ClassIdentitySet:        "IdentitySet",
	ClassDictionary:         "Dictionary",
	ClassIdentityDictionary: "IdentityDictionary",
	ClassColor:              "Color",
	ClassTranslucentColor:   "TranslucentColor",
	ClassPoint:              "Point",
	ClassRectangle:          "Rectangle",
	ClassForm:               "Form",
	ClassColorForm:          "ColorForm",
}

func (c ClassID) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	if c >= FirstUserClass {
		if s, ok := Schemas().ByID(c); ok {
			return s.Name
		}
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// IsFixed reports whether c is a known fixed (primitive) class.
func (c ClassID) IsFixed() bool {
	return c >= ClassString && c <= ClassColorForm && classNames[c] != ""
}

// IsUser reports whether c is routed to the user-object codec.
func (c ClassID) IsUser() bool {
	return c >= FirstUserClass
}

// ---------------------------------------------------------------------------
// Value: inline scalars and composite objects
// ---------------------------------------------------------------------------

// Value is anything that can sit in a field slot: an inline scalar, a
// reference (before linking) or a composite Object (after linking).
type Value interface {
	isValue()
}

// Object is a composite value. Composite values always occupy one table
// entry; identity is pointer identity.
type Object interface {
	Value
	Class() ClassID
	// slots returns pointers to every field that may hold a reference.
	slots() []*Value
}

// NilValue is the inline nil.
type NilValue struct{}

// Nil is the canonical nil value.
var Nil Value = NilValue{}

// Bool is an inline boolean.
type Bool bool

// SmallInt is an inline 32-bit integer (tag 4).
type SmallInt int32

// ShortInt is an inline 16-bit integer (tag 5).
type ShortInt int16

// Float is an inline 64-bit float (tag 8).
type Float float64

// Ref is a 1-based reference into the object table (tag 99).
type Ref uint32

// MaxRef is the largest index expressible in the 24-bit reference encoding.
const MaxRef = 1<<24 - 1

// LargeInt is an integer outside the small-integer range (tags 6 and 7).
// Magnitude is little-endian and kept verbatim so leading zero bytes survive
// a round trip.
type LargeInt struct {
	Negative  bool
	Magnitude []byte
}

func (NilValue) isValue() {}
func (Bool) isValue()     {}
func (SmallInt) isValue() {}
func (ShortInt) isValue() {}
func (Float) isValue()    {}
func (Ref) isValue()      {}
func (LargeInt) isValue() {}

// Big returns the integer value of l.
func (l LargeInt) Big() *big.Int {
	be := make([]byte, len(l.Magnitude))
	for i, b := range l.Magnitude {
		be[len(be)-1-i] = b
	}
	n := new(big.Int).SetBytes(be)
	if l.Negative {
		n.Neg(n)
	}
	return n
}

// Small-integer range of the legacy runtime (31-bit signed).
const (
	minSmallInt = -1 << 30
	maxSmallInt = 1<<30 - 1
)

// NewInt returns the narrowest inline encoding for n, matching the legacy
// writer: 16 bits when possible, then a small integer, then a large integer.
func NewInt(n int64) Value {
	switch {
	case n >= math.MinInt16 && n <= math.MaxInt16:
		return ShortInt(n)
	case n >= minSmallInt && n <= maxSmallInt:
		return SmallInt(n)
	}
	return NewLargeInt(big.NewInt(n))
}

// NewLargeInt encodes n as a LargeInt with a minimal magnitude.
func NewLargeInt(n *big.Int) LargeInt {
	be := new(big.Int).Abs(n).Bytes()
	mag := make([]byte, len(be))
	for i, b := range be {
		mag[len(mag)-1-i] = b
	}
	return LargeInt{Negative: n.Sign() < 0, Magnitude: mag}
}

// IntValue returns the integer held by v, if v is an integer variant that
// fits in an int64.
func IntValue(v Value) (int64, bool) {
	switch x := v.(type) {
	case ShortInt:
		return int64(x), true
	case SmallInt:
		return int64(x), true
	case LargeInt:
		b := x.Big()
		if b.IsInt64() {
			return b.Int64(), true
		}
	}
	return 0, false
}

// FloatValue returns v as a float64 for any numeric variant.
func FloatValue(v Value) (float64, bool) {
	switch x := v.(type) {
	case Float:
		return float64(x), true
	case LargeInt:
		f, _ := new(big.Float).SetInt(x.Big()).Float64()
		return f, true
	}
	if n, ok := IntValue(v); ok {
		return float64(n), true
	}
	return 0, false
}

// IsNil reports whether v is nil (or absent).
func IsNil(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(NilValue)
	return ok
}

// IsInline reports whether v is encoded inline rather than as a table entry.
func IsInline(v Value) bool {
	switch v.(type) {
	case NilValue, Bool, SmallInt, ShortInt, Float, Ref, LargeInt:
		return true
	}
	return v == nil
}

// Equal reports whether two values are the same: inline values compare by
// tag and payload, composites by identity.
func Equal(a, b Value) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	switch x := a.(type) {
	case LargeInt:
		y, ok := b.(LargeInt)
		return ok && x.Negative == y.Negative && bytes.Equal(x.Magnitude, y.Magnitude)
	case Float:
		y, ok := b.(Float)
		return ok && math.Float64bits(float64(x)) == math.Float64bits(float64(y))
	case Bool, SmallInt, ShortInt, Ref:
		return a == b
	}
	if _, ok := b.(LargeInt); ok {
		return false
	}
	return a == b
}
