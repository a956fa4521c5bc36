package objtable

// ---------------------------------------------------------------------------
// Collections and dictionaries
// ---------------------------------------------------------------------------

// Collection is an Array, OrderedCollection, Set or IdentitySet. Elements
// keep their stored order for every kind, sets included.
type Collection struct {
	ClassID ClassID
	Items   []Value
}

// NewArray returns an Array holding items.
func NewArray(items ...Value) *Collection {
	if items == nil {
		items = []Value{}
	}
	return &Collection{ClassID: ClassArray, Items: items}
}

// NewOrderedCollection returns an OrderedCollection holding items.
func NewOrderedCollection(items ...Value) *Collection {
	if items == nil {
		items = []Value{}
	}
	return &Collection{ClassID: ClassOrderedCollection, Items: items}
}

func (c *Collection) Class() ClassID { return c.ClassID }

func (c *Collection) slots() []*Value {
	out := make([]*Value, len(c.Items))
	for i := range c.Items {
		out[i] = &c.Items[i]
	}
	return out
}

func (c *Collection) isValue() {}

// Len returns the number of elements.
func (c *Collection) Len() int { return len(c.Items) }

// Pair is one dictionary association. Keys may be any value.
type Pair struct {
	Key, Value Value
}

// Dictionary is a Dictionary or IdentityDictionary with pairs in stored
// order.
type Dictionary struct {
	ClassID ClassID
	Pairs   []Pair
}

// NewDictionary returns an empty Dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{ClassID: ClassDictionary, Pairs: []Pair{}}
}

func (d *Dictionary) Class() ClassID { return d.ClassID }

func (d *Dictionary) slots() []*Value {
	out := make([]*Value, 0, 2*len(d.Pairs))
	for i := range d.Pairs {
		out = append(out, &d.Pairs[i].Key, &d.Pairs[i].Value)
	}
	return out
}

func (d *Dictionary) isValue() {}

// Lookup finds the value stored under a textual key. String and Symbol keys
// match by text.
func (d *Dictionary) Lookup(key string) (Value, bool) {
	if i := d.indexOf(key); i >= 0 {
		return d.Pairs[i].Value, true
	}
	return nil, false
}

// Put replaces the value under a textual key, or appends a new pair with a
// Symbol key.
func (d *Dictionary) Put(key string, v Value) {
	if i := d.indexOf(key); i >= 0 {
		d.Pairs[i].Value = v
		return
	}
	d.Pairs = append(d.Pairs, Pair{Key: NewSymbol(key), Value: v})
}

// Delete removes the pair under a textual key.
func (d *Dictionary) Delete(key string) bool {
	i := d.indexOf(key)
	if i < 0 {
		return false
	}
	d.Pairs = append(d.Pairs[:i], d.Pairs[i+1:]...)
	return true
}

func (d *Dictionary) indexOf(key string) int {
	for i, p := range d.Pairs {
		if text, ok := TextOf(p.Key); ok && text == key {
			return i
		}
	}
	return -1
}
