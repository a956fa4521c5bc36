package objtable

import "fmt"

// ---------------------------------------------------------------------------
// Graph linker
// ---------------------------------------------------------------------------

// Link replaces every Ref field with the entry it names. Every entry already
// exists, so a single pass over the fields resolves forward and backward
// references alike and cycles need no special handling. After a successful
// Link no Ref remains in the table.
func (t *Table) Link() error {
	for i, obj := range t.Entries {
		for _, slot := range obj.slots() {
			r, ok := (*slot).(Ref)
			if !ok {
				continue
			}
			if r == 0 || int(r) > len(t.Entries) {
				return &GraphError{Entry: i + 1, Err: fmt.Errorf("%w: %d of %d", ErrDanglingRef, r, len(t.Entries))}
			}
			*slot = t.Entries[r-1]
		}
	}
	return nil
}

// Flatten numbers the graph reachable from root in pre-order, depth first,
// following fields in their stored order. The root is entry 1 and every
// composite appears once however many fields share it. Short user objects
// are padded with schema defaults first.
func Flatten(root Object) (*Table, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrInvalidValue)
	}
	seen := make(map[Object]bool)
	var entries []Object

	stack := []Object{root}
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[obj] {
			continue
		}
		seen[obj] = true
		entries = append(entries, obj)
		if len(entries) > MaxRef {
			return nil, fmt.Errorf("%w: more than %d entries", ErrTooManyObjects, MaxRef)
		}
		if u, ok := obj.(*UserObject); ok {
			u.pad()
		}

		slots := obj.slots()
		for i := len(slots) - 1; i >= 0; i-- {
			child, ok := (*slots[i]).(Object)
			if ok && !seen[child] {
				stack = append(stack, child)
			}
		}
	}
	return &Table{Entries: entries}, nil
}

// FlattenLike flattens root but keeps objects that appear in prev at their
// relative positions from prev. Objects new to the graph follow in
// discovery order. A graph decoded from prev and left unchanged therefore
// re-encodes to the same bytes whatever order its writer used.
func FlattenLike(root Object, prev *Table) (*Table, error) {
	t, err := Flatten(root)
	if err != nil || prev == nil {
		return t, err
	}
	reachable := make(map[Object]bool, len(t.Entries))
	for _, obj := range t.Entries {
		reachable[obj] = true
	}

	placed := make(map[Object]bool, len(t.Entries))
	entries := make([]Object, 0, len(t.Entries))
	place := func(obj Object) {
		if reachable[obj] && !placed[obj] {
			placed[obj] = true
			entries = append(entries, obj)
		}
	}
	place(root)
	for _, obj := range prev.Entries {
		place(obj)
	}
	for _, obj := range t.Entries {
		place(obj)
	}
	return &Table{Entries: entries}, nil
}

// Walk calls fn for every composite reachable from root, once each, in
// Flatten order. It stops at the first error fn returns.
func Walk(root Object, fn func(Object) error) error {
	t, err := Flatten(root)
	if err != nil {
		return err
	}
	for _, obj := range t.Entries {
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}
