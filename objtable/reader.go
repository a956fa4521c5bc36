package objtable

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Magic is the ten-byte header of every object table.
var Magic = []byte("ObjS\x01Stch\x01")

// minEntrySize is the smallest possible entry: a tag followed by two
// one-byte values (a Point of nils) or a version and a zero field count.
const minEntrySize = 3

// ---------------------------------------------------------------------------
// Decoder: reads an object table from a byte slice
// ---------------------------------------------------------------------------

// Decoder reads object tables from a fully buffered byte slice. It reads
// sequentially, so a container holding several tables can be decoded by
// calling ReadTable repeatedly.
type Decoder struct {
	data   []byte
	offset int
	entry  int // 1-based entry being read, 0 outside entries
	start  int // offset the failing read started at
	padded int
}

// Padded returns how many user objects were stored with fewer fields than
// their schema. Such tables re-encode longer than they were read.
func (d *Decoder) Padded() int { return d.padded }

// NewDecoder returns a decoder positioned at the start of data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Offset returns the current read position.
func (d *Decoder) Offset() int { return d.offset }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.data) - d.offset }

func (d *Decoder) fail(err error) error {
	return &FormatError{Offset: d.start, Entry: d.entry, Err: err}
}

// ReadTable reads one complete table. Entries are returned unlinked: fields
// still hold Ref values.
func (d *Decoder) ReadTable() (*Table, error) {
	d.entry = 0
	d.start = d.offset
	if d.Remaining() < len(Magic) || !bytes.Equal(d.data[d.offset:d.offset+len(Magic)], Magic) {
		return nil, d.fail(ErrBadMagic)
	}
	d.offset += len(Magic)

	count, err := d.u32()
	if err != nil {
		return nil, err
	}
	if count > MaxRef || int64(count)*minEntrySize > int64(d.Remaining()) {
		return nil, d.fail(ErrBadCount)
	}

	t := &Table{Entries: make([]Object, 0, count)}
	for i := 1; i <= int(count); i++ {
		d.entry = i
		obj, err := d.readEntry()
		if err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, obj)
	}
	d.entry = 0
	return t, nil
}

// ---------------------------------------------------------------------------
// Primitive reads
// ---------------------------------------------------------------------------

func (d *Decoder) need(n int) error {
	if n < 0 || d.Remaining() < n {
		return d.fail(ErrUnexpectedEOF)
	}
	return nil
}

func (d *Decoder) u8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.data[d.offset]
	d.offset++
	return b, nil
}

func (d *Decoder) u16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(d.data[d.offset:])
	d.offset += 2
	return v, nil
}

func (d *Decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.data[d.offset:])
	d.offset += 4
	return v, nil
}

func (d *Decoder) bytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, d.data[d.offset:d.offset+n])
	d.offset += n
	return out, nil
}

// length reads a u32 element count and checks that at least unit bytes per
// element remain.
func (d *Decoder) length(unit int) (int, error) {
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	if int64(n)*int64(unit) > int64(d.Remaining()) {
		return 0, d.fail(ErrUnexpectedEOF)
	}
	return int(n), nil
}

// ReadValue reads one inline value or reference.
func (d *Decoder) ReadValue() (Value, error) {
	d.start = d.offset
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	switch ClassID(tag) {
	case ClassNil:
		return Nil, nil
	case ClassTrue:
		return Bool(true), nil
	case ClassFalse:
		return Bool(false), nil
	case ClassSmallInt:
		v, err := d.u32()
		return SmallInt(int32(v)), err
	case ClassShortInt:
		v, err := d.u16()
		return ShortInt(int16(v)), err
	case ClassLargePos, ClassLargeNeg:
		n, err := d.u16()
		if err != nil {
			return nil, err
		}
		mag, err := d.bytes(int(n))
		if err != nil {
			return nil, err
		}
		return LargeInt{Negative: ClassID(tag) == ClassLargeNeg, Magnitude: mag}, nil
	case ClassFloat:
		if err := d.need(8); err != nil {
			return nil, err
		}
		bits := binary.BigEndian.Uint64(d.data[d.offset:])
		d.offset += 8
		return Float(math.Float64frombits(bits)), nil
	case ClassRef:
		hi, err := d.u8()
		if err != nil {
			return nil, err
		}
		lo, err := d.u16()
		if err != nil {
			return nil, err
		}
		return Ref(uint32(hi)<<16 | uint32(lo)), nil
	}
	return nil, d.fail(ErrInvalidValue)
}

func (d *Decoder) values(n int) ([]Value, error) {
	out := make([]Value, n)
	for i := range out {
		v, err := d.ReadValue()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Entry reads
// ---------------------------------------------------------------------------

func (d *Decoder) readEntry() (Object, error) {
	d.start = d.offset
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	class := ClassID(tag)
	switch {
	case class.IsFixed():
		return d.readFixed(class)
	case class.IsUser():
		return d.readUser(class)
	}
	d.start = d.offset - 1
	return nil, d.fail(ErrUnknownClass)
}

func (d *Decoder) readFixed(class ClassID) (Object, error) {
	switch class {
	case ClassString, ClassSymbol, ClassUTF8, ClassByteArray:
		n, err := d.length(1)
		if err != nil {
			return nil, err
		}
		data, err := d.bytes(n)
		if err != nil {
			return nil, err
		}
		if class == ClassByteArray {
			return &ByteArray{Data: data}, nil
		}
		return &String{ClassID: class, Data: data}, nil

	case ClassSoundBuffer:
		n, err := d.length(2)
		if err != nil {
			return nil, err
		}
		data, err := d.bytes(2 * n)
		if err != nil {
			return nil, err
		}
		return &SoundBuffer{Data: data}, nil

	case ClassBitmap:
		n, err := d.length(4)
		if err != nil {
			return nil, err
		}
		words := make([]uint32, n)
		for i := range words {
			if words[i], err = d.u32(); err != nil {
				return nil, err
			}
		}
		return &Bitmap{Words: words}, nil

	case ClassArray, ClassOrderedCollection, ClassSet, ClassIdentitySet:
		n, err := d.length(1)
		if err != nil {
			return nil, err
		}
		items, err := d.values(n)
		if err != nil {
			return nil, err
		}
		return &Collection{ClassID: class, Items: items}, nil

	case ClassDictionary, ClassIdentityDictionary:
		n, err := d.length(2)
		if err != nil {
			return nil, err
		}
		dict := &Dictionary{ClassID: class, Pairs: make([]Pair, n)}
		for i := range dict.Pairs {
			if dict.Pairs[i].Key, err = d.ReadValue(); err != nil {
				return nil, err
			}
			if dict.Pairs[i].Value, err = d.ReadValue(); err != nil {
				return nil, err
			}
		}
		return dict, nil

	case ClassColor, ClassTranslucentColor:
		rgb, err := d.u32()
		if err != nil {
			return nil, err
		}
		c := &Color{RGB: rgb}
		if class == ClassTranslucentColor {
			c.Translucent = true
			if c.Alpha, err = d.u8(); err != nil {
				return nil, err
			}
		}
		return c, nil

	case ClassPoint:
		v, err := d.values(2)
		if err != nil {
			return nil, err
		}
		return &Point{X: v[0], Y: v[1]}, nil

	case ClassRectangle:
		v, err := d.values(4)
		if err != nil {
			return nil, err
		}
		return &Rectangle{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil

	case ClassForm, ClassColorForm:
		n := 5
		if class == ClassColorForm {
			n = 6
		}
		v, err := d.values(n)
		if err != nil {
			return nil, err
		}
		f := &Form{Width: v[0], Height: v[1], Depth: v[2], Offset: v[3], Bits: v[4]}
		if class == ClassColorForm {
			f.Indexed = true
			f.Colors = v[5]
		}
		return f, nil
	}
	return nil, d.fail(ErrUnknownClass)
}

func (d *Decoder) readUser(class ClassID) (Object, error) {
	schema, ok := Schemas().ByID(class)
	if !ok {
		d.start = d.offset - 1
		return nil, d.fail(ErrUnknownClass)
	}
	version, err := d.u8()
	if err != nil {
		return nil, err
	}
	if version != schema.Version {
		d.start = d.offset - 1
		return nil, d.fail(ErrBadVersion)
	}
	count, err := d.u8()
	if err != nil {
		return nil, err
	}
	fields, err := d.values(int(count))
	if err != nil {
		return nil, err
	}
	// Fields the file did not store take their schema defaults.
	o := &UserObject{Schema: schema, Version: version, Fields: fields}
	if len(fields) < len(schema.Fields) {
		o.pad()
		d.padded++
	}
	return o, nil
}
