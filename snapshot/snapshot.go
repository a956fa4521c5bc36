// Package snapshot renders a linked object graph as canonical CBOR. Two
// graphs with the same shape and contents produce the same bytes however
// they were built, so the encoding doubles as a content digest.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/scratchkit/objtable"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Entry is one object of the graph in table order, numbered from 1.
// Exactly one of Fields, Data and Words is set for a given class.
type Entry struct {
	Index   int      `cbor:"index"`
	Class   uint8    `cbor:"class"`
	Name    string   `cbor:"name,omitempty"`
	Version uint8    `cbor:"version,omitempty"`
	Fields  []any    `cbor:"fields,omitempty"`
	Data    []byte   `cbor:"data,omitempty"`
	Words   []uint32 `cbor:"words,omitempty"`
}

// Ref stands for a field that points at another entry.
type Ref struct {
	Ref int `cbor:"ref"`
}

// Snapshot is the decoded form of Marshal's output.
type Snapshot struct {
	Entries []Entry `cbor:"entries"`
}

// Build numbers the graph reachable from root and describes each entry.
func Build(root objtable.Object) (*Snapshot, error) {
	t, err := objtable.Flatten(root)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	index := make(map[objtable.Object]int, t.Len())
	for i, obj := range t.Entries {
		index[obj] = i + 1
	}

	s := &Snapshot{Entries: make([]Entry, 0, t.Len())}
	for i, obj := range t.Entries {
		e, err := entry(obj, index)
		if err != nil {
			return nil, fmt.Errorf("snapshot: entry %d: %w", i+1, err)
		}
		e.Index = i + 1
		s.Entries = append(s.Entries, e)
	}
	return s, nil
}

// Marshal returns the canonical CBOR encoding of the graph under root.
func Marshal(root objtable.Object) ([]byte, error) {
	s, err := Build(root)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(s)
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return &s, nil
}

// Digest returns the hex SHA-256 of Marshal(root).
func Digest(root objtable.Object) (string, error) {
	data, err := Marshal(root)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func entry(obj objtable.Object, index map[objtable.Object]int) (Entry, error) {
	e := Entry{Class: uint8(obj.Class())}
	var fields []objtable.Value

	switch o := obj.(type) {
	case *objtable.String:
		e.Data = o.Data
	case *objtable.ByteArray:
		e.Data = o.Data
	case *objtable.SoundBuffer:
		e.Data = o.Data
	case *objtable.Bitmap:
		e.Words = o.Words
	case *objtable.Color:
		e.Fields = []any{o.RGB, o.Alpha}
		return e, nil
	case *objtable.Point:
		fields = []objtable.Value{o.X, o.Y}
	case *objtable.Rectangle:
		fields = []objtable.Value{o.Left, o.Top, o.Right, o.Bottom}
	case *objtable.Form:
		fields = []objtable.Value{o.Width, o.Height, o.Depth, o.Offset, o.Bits}
		if o.Indexed {
			fields = append(fields, o.Colors)
		}
	case *objtable.Collection:
		fields = o.Items
	case *objtable.Dictionary:
		for _, p := range o.Pairs {
			fields = append(fields, p.Key, p.Value)
		}
	case *objtable.UserObject:
		e.Name = o.ClassName()
		e.Version = o.Version
		fields = o.Fields
	default:
		return e, fmt.Errorf("unsupported object %T", obj)
	}

	if fields != nil {
		e.Fields = make([]any, len(fields))
		for i, v := range fields {
			x, err := value(v, index)
			if err != nil {
				return e, err
			}
			e.Fields[i] = x
		}
	}
	return e, nil
}

func value(v objtable.Value, index map[objtable.Object]int) (any, error) {
	switch x := v.(type) {
	case nil, objtable.NilValue:
		return nil, nil
	case objtable.Bool:
		return bool(x), nil
	case objtable.ShortInt:
		return int64(x), nil
	case objtable.SmallInt:
		return int64(x), nil
	case objtable.Float:
		return float64(x), nil
	case objtable.LargeInt:
		return x.Big(), nil
	case objtable.Ref:
		return nil, fmt.Errorf("%w: unlinked reference %d", objtable.ErrInvalidValue, x)
	case objtable.Object:
		n, ok := index[x]
		if !ok {
			return nil, fmt.Errorf("%w: object outside the graph", objtable.ErrDanglingRef)
		}
		return Ref{Ref: n}, nil
	}
	return nil, fmt.Errorf("%w: %T", objtable.ErrInvalidValue, v)
}
