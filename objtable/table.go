package objtable

import "fmt"

// ---------------------------------------------------------------------------
// Table: the flat entry list
// ---------------------------------------------------------------------------

// Table is an ordered list of composite entries; entry i (1-based) is
// Entries[i-1]. Before Link, fields refer to other entries through Ref
// values; after Link they hold the entries themselves.
type Table struct {
	Entries []Object
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.Entries) }

// Root returns entry 1, or nil for an empty table.
func (t *Table) Root() Object {
	if len(t.Entries) == 0 {
		return nil
	}
	return t.Entries[0]
}

// Encode writes the table as a standalone byte sequence.
func (t *Table) Encode() ([]byte, error) {
	e := NewEncoder()
	if err := e.WriteTable(t); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// ReadTable decodes a single unlinked table from the start of data.
func ReadTable(data []byte) (*Table, error) {
	return NewDecoder(data).ReadTable()
}

// Decode reads and links the table in data and returns its root. No graph
// is returned when any entry fails to decode or link.
func Decode(data []byte) (Object, error) {
	t, err := ReadTable(data)
	if err != nil {
		return nil, err
	}
	if err := t.Link(); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, &FormatError{Offset: len(Magic), Err: fmt.Errorf("%w: empty table", ErrBadCount)}
	}
	return t.Root(), nil
}

// Encode flattens the graph reachable from root and writes it.
func Encode(root Object) ([]byte, error) {
	t, err := Flatten(root)
	if err != nil {
		return nil, err
	}
	return t.Encode()
}
