package scratch14

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/chazu/scratchkit/objtable"
	"github.com/chazu/scratchkit/project"
)

// ---------------------------------------------------------------------------
// Scalar conversion
// ---------------------------------------------------------------------------

// scalar returns the Go form of an inline value or string: nil, bool,
// int64, float64 or string. Anything else comes back unchanged.
func scalar(v objtable.Value) any {
	switch x := v.(type) {
	case nil, objtable.NilValue:
		return nil
	case objtable.Bool:
		return bool(x)
	case objtable.Float:
		return float64(x)
	case *objtable.String:
		return x.Text()
	}
	if n, ok := objtable.IntValue(v); ok {
		return n
	}
	if f, ok := objtable.FloatValue(v); ok {
		return f
	}
	return v
}

func formatScalar(x any) string {
	switch y := x.(type) {
	case int64:
		return strconv.FormatInt(y, 10)
	case float64:
		return strconv.FormatFloat(y, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(y)
	case string:
		return y
	}
	return ""
}

// fromScalar is the inverse of scalar for new values.
func fromScalar(x any) objtable.Value {
	switch y := x.(type) {
	case nil:
		return objtable.Nil
	case bool:
		return objtable.Bool(y)
	case int:
		return objtable.NewInt(int64(y))
	case int64:
		return objtable.NewInt(y)
	case float64:
		return objtable.Float(y)
	case string:
		return objtable.NewText(y)
	case objtable.Value:
		return y
	}
	return objtable.Nil
}

// same reports whether two Go-side values are equal. Raw file values are
// compared with objtable.Equal so uncomparable payloads never reach ==.
func same(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool, int64, string:
		return a == b
	case float64:
		y, ok := b.(float64)
		return ok && math.Float64bits(x) == math.Float64bits(y)
	case objtable.Value:
		y, ok := b.(objtable.Value)
		return ok && objtable.Equal(x, y)
	}
	return false
}

// keep returns old when it already reads as x, and a new value otherwise.
// Reusing the stored value keeps its original encoding.
func keep(old objtable.Value, x any) objtable.Value {
	if old != nil && same(scalar(old), x) {
		return old
	}
	return fromScalar(x)
}

// keepString is keep for names, which the legacy writer stores as String.
// A missing name stays missing while it reads as empty.
func keepString(old objtable.Value, s string) objtable.Value {
	if text, ok := objtable.TextOf(old); ok && text == s {
		return old
	}
	if s == "" && objtable.IsNil(old) {
		return objtable.Nil
	}
	return objtable.NewText(s)
}

// keepSymbol is keep for selectors and enumerations.
func keepSymbol(old objtable.Value, s string) objtable.Value {
	if text, ok := objtable.TextOf(old); ok && text == s {
		return old
	}
	return objtable.NewSymbol(s)
}

// keepNumber and keepBool leave a missing value missing while the model
// holds the zero value.
func keepNumber(old objtable.Value, f float64) objtable.Value {
	if g, ok := objtable.FloatValue(old); ok && g == f {
		return old
	}
	if f == 0 && objtable.IsNil(old) {
		return objtable.Nil
	}
	return objtable.Number(f)
}

func keepBool(old objtable.Value, b bool) objtable.Value {
	if x, ok := old.(objtable.Bool); ok && bool(x) == b {
		return old
	}
	if !b && objtable.IsNil(old) {
		return objtable.Nil
	}
	return objtable.Bool(b)
}

func keepPoint(old objtable.Value, p project.Point) objtable.Value {
	if p == (project.Point{}) && objtable.IsNil(old) {
		return objtable.Nil
	}
	if op, ok := old.(*objtable.Point); ok {
		if x, y := op.XY(); x == p.X && y == p.Y {
			return op
		}
	}
	return objtable.NewPoint(p.X, p.Y)
}

func keepBytes(old objtable.Value, data []byte) objtable.Value {
	if data == nil {
		if objtable.IsNil(old) {
			return old
		}
		return objtable.Nil
	}
	if b, ok := old.(*objtable.ByteArray); ok && bytes.Equal(b.Data, data) {
		return b
	}
	return &objtable.ByteArray{Data: data}
}

// keepItems stores items into the collection old when old is one, so the
// collection keeps its identity and table position. Otherwise it makes a
// new collection of class.
func keepItems(old objtable.Value, class objtable.ClassID, items []objtable.Value) *objtable.Collection {
	if items == nil {
		items = []objtable.Value{}
	}
	if c, ok := old.(*objtable.Collection); ok {
		if !sameItems(c.Items, items) {
			c.Items = items
		}
		return c
	}
	return &objtable.Collection{ClassID: class, Items: items}
}

func sameItems(a, b []objtable.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !objtable.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func items(v objtable.Value) []objtable.Value {
	if c, ok := v.(*objtable.Collection); ok {
		return c.Items
	}
	return nil
}

func text(v objtable.Value) string {
	s, _ := objtable.TextOf(v)
	return s
}

func number(v objtable.Value) float64 {
	f, _ := objtable.FloatValue(v)
	return f
}

func integer(v objtable.Value) int {
	n, _ := objtable.IntValue(v)
	return int(n)
}

func point(v objtable.Value) project.Point {
	if p, ok := v.(*objtable.Point); ok {
		x, y := p.XY()
		return project.Point{X: x, Y: y}
	}
	return project.Point{}
}

// ---------------------------------------------------------------------------
// Bitmaps
// ---------------------------------------------------------------------------

// pixelBytes returns the raw pixel data a form's bits field holds.
func pixelBytes(v objtable.Value) []byte {
	switch b := v.(type) {
	case *objtable.ByteArray:
		return b.Data
	case *objtable.Bitmap:
		out := make([]byte, 4*len(b.Words))
		for i, w := range b.Words {
			binary.BigEndian.PutUint32(out[4*i:], w)
		}
		return out
	}
	return nil
}

func formImage(f *objtable.Form) *project.Image {
	w, h := f.Size()
	return &project.Image{
		Format: project.ImageForm,
		Width:  w,
		Height: h,
		Depth:  integer(f.Depth),
		Data:   pixelBytes(f.Bits),
		Source: f,
	}
}

// keepForm returns old when it still describes img, and a new form
// otherwise. New forms store their pixels as a ByteArray.
func keepForm(old objtable.Value, img *project.Image) objtable.Value {
	if img == nil {
		return objtable.Nil
	}
	if f, ok := old.(*objtable.Form); ok {
		w, h := f.Size()
		if w == img.Width && h == img.Height && integer(f.Depth) == img.Depth && bytes.Equal(pixelBytes(f.Bits), img.Data) {
			return f
		}
	}
	var bits objtable.Value = objtable.Nil
	if img.Data != nil {
		bits = &objtable.ByteArray{Data: img.Data}
	}
	return &objtable.Form{
		Width:  objtable.NewInt(int64(img.Width)),
		Height: objtable.NewInt(int64(img.Height)),
		Depth:  objtable.NewInt(int64(img.Depth)),
		Offset: objtable.Nil,
		Bits:   bits,
	}
}
