package objtable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Encoder: writes object tables
// ---------------------------------------------------------------------------

// Encoder serializes tables into an in-memory buffer. Several tables may be
// written in sequence.
type Encoder struct {
	buf   bytes.Buffer
	index map[Object]uint32
	entry int
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns everything written so far.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return e.buf.Len() }

// WriteTable writes t. Composite field values are written as references to
// their position in t; a composite missing from t is a GraphError. Ref
// values are written unchanged, so unlinked tables re-encode as read.
func (e *Encoder) WriteTable(t *Table) error {
	if len(t.Entries) > MaxRef {
		return fmt.Errorf("%w: %d entries", ErrTooManyObjects, len(t.Entries))
	}
	e.index = make(map[Object]uint32, len(t.Entries))
	for i, obj := range t.Entries {
		e.index[obj] = uint32(i + 1)
	}

	e.buf.Write(Magic)
	e.u32(uint32(len(t.Entries)))
	for i, obj := range t.Entries {
		e.entry = i + 1
		if err := e.writeEntry(obj); err != nil {
			return err
		}
	}
	e.entry = 0
	e.index = nil
	return nil
}

// ---------------------------------------------------------------------------
// Primitive writes
// ---------------------------------------------------------------------------

func (e *Encoder) u8(v uint8) { e.buf.WriteByte(v) }

func (e *Encoder) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) length(n int) error {
	if uint64(n) > math.MaxUint32 {
		return &GraphError{Entry: e.entry, Err: fmt.Errorf("%w: length %d", ErrInvalidValue, n)}
	}
	e.u32(uint32(n))
	return nil
}

func (e *Encoder) ref(r uint32) {
	e.u8(uint8(ClassRef))
	e.u8(uint8(r >> 16))
	e.u16(uint16(r))
}

// WriteValue writes one field value. Go nil is written as Nil.
func (e *Encoder) WriteValue(v Value) error {
	switch x := v.(type) {
	case nil, NilValue:
		e.u8(uint8(ClassNil))
	case Bool:
		if x {
			e.u8(uint8(ClassTrue))
		} else {
			e.u8(uint8(ClassFalse))
		}
	case SmallInt:
		e.u8(uint8(ClassSmallInt))
		e.u32(uint32(x))
	case ShortInt:
		e.u8(uint8(ClassShortInt))
		e.u16(uint16(x))
	case LargeInt:
		if len(x.Magnitude) > math.MaxUint16 {
			return &GraphError{Entry: e.entry, Err: fmt.Errorf("%w: large integer of %d bytes", ErrInvalidValue, len(x.Magnitude))}
		}
		if x.Negative {
			e.u8(uint8(ClassLargeNeg))
		} else {
			e.u8(uint8(ClassLargePos))
		}
		e.u16(uint16(len(x.Magnitude)))
		e.buf.Write(x.Magnitude)
	case Float:
		e.u8(uint8(ClassFloat))
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(float64(x)))
		e.buf.Write(b[:])
	case Ref:
		if x > MaxRef {
			return &GraphError{Entry: e.entry, Err: fmt.Errorf("%w: reference %d", ErrTooManyObjects, x)}
		}
		e.ref(uint32(x))
	case Object:
		idx, ok := e.index[x]
		if !ok {
			return &GraphError{Entry: e.entry, Err: fmt.Errorf("%w: %T not in table", ErrDanglingRef, x)}
		}
		e.ref(idx)
	default:
		return &GraphError{Entry: e.entry, Err: fmt.Errorf("%w: %T", ErrInvalidValue, v)}
	}
	return nil
}

func (e *Encoder) values(vs ...Value) error {
	for _, v := range vs {
		if err := e.WriteValue(v); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Entry writes
// ---------------------------------------------------------------------------

func (e *Encoder) writeEntry(obj Object) error {
	if u, ok := obj.(*UserObject); ok && (u.Schema == nil || u.Schema.IsAbstract()) {
		return &GraphError{Entry: e.entry, Err: ErrUnknownClass}
	}
	e.u8(uint8(obj.Class()))
	switch o := obj.(type) {
	case *String:
		if err := e.length(len(o.Data)); err != nil {
			return err
		}
		e.buf.Write(o.Data)
	case *ByteArray:
		if err := e.length(len(o.Data)); err != nil {
			return err
		}
		e.buf.Write(o.Data)
	case *SoundBuffer:
		if err := e.length(len(o.Data) / 2); err != nil {
			return err
		}
		e.buf.Write(o.Data[:len(o.Data)/2*2])
	case *Bitmap:
		if err := e.length(len(o.Words)); err != nil {
			return err
		}
		for _, w := range o.Words {
			e.u32(w)
		}
	case *Collection:
		if err := e.length(len(o.Items)); err != nil {
			return err
		}
		return e.values(o.Items...)
	case *Dictionary:
		if err := e.length(len(o.Pairs)); err != nil {
			return err
		}
		for _, p := range o.Pairs {
			if err := e.values(p.Key, p.Value); err != nil {
				return err
			}
		}
	case *Color:
		e.u32(o.RGB)
		if o.Translucent {
			e.u8(o.Alpha)
		}
	case *Point:
		return e.values(o.X, o.Y)
	case *Rectangle:
		return e.values(o.Left, o.Top, o.Right, o.Bottom)
	case *Form:
		if err := e.values(o.Width, o.Height, o.Depth, o.Offset, o.Bits); err != nil {
			return err
		}
		if o.Indexed {
			return e.WriteValue(o.Colors)
		}
	case *UserObject:
		o.pad()
		if len(o.Fields) > math.MaxUint8 {
			return &GraphError{Entry: e.entry, Err: fmt.Errorf("%w: %d fields", ErrInvalidValue, len(o.Fields))}
		}
		e.u8(o.Version)
		e.u8(uint8(len(o.Fields)))
		return e.values(o.Fields...)
	default:
		return &GraphError{Entry: e.entry, Err: fmt.Errorf("%w: %T", ErrUnknownClass, obj)}
	}
	return nil
}
