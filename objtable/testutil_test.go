package objtable

import (
	"bytes"
	"encoding/binary"
)

// ---------------------------------------------------------------------------
// Test Helpers: Building raw tables
// ---------------------------------------------------------------------------

// tableBuilder assembles object table bytes by hand so decoder tests do not
// depend on the encoder.
type tableBuilder struct {
	buf bytes.Buffer
}

func newTableBuilder(count uint32) *tableBuilder {
	b := &tableBuilder{}
	b.buf.Write(Magic)
	b.u32(count)
	return b
}

func (b *tableBuilder) u8(v uint8) *tableBuilder {
	b.buf.WriteByte(v)
	return b
}

func (b *tableBuilder) u16(v uint16) *tableBuilder {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	b.buf.Write(buf[:])
	return b
}

func (b *tableBuilder) u32(v uint32) *tableBuilder {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.buf.Write(buf[:])
	return b
}

func (b *tableBuilder) tag(c ClassID) *tableBuilder { return b.u8(uint8(c)) }

func (b *tableBuilder) nilValue() *tableBuilder { return b.tag(ClassNil) }

func (b *tableBuilder) short(v int16) *tableBuilder {
	return b.tag(ClassShortInt).u16(uint16(v))
}

func (b *tableBuilder) ref(i uint32) *tableBuilder {
	return b.tag(ClassRef).u8(uint8(i >> 16)).u16(uint16(i))
}

// str writes a complete String-like entry.
func (b *tableBuilder) str(c ClassID, s string) *tableBuilder {
	b.tag(c).u32(uint32(len(s)))
	b.buf.WriteString(s)
	return b
}

func (b *tableBuilder) bytes() []byte { return b.buf.Bytes() }
