package objtable

import "fmt"

// ---------------------------------------------------------------------------
// User objects
// ---------------------------------------------------------------------------

// UserObject is an instance of a schema class. Fields are positional in the
// schema's effective layout; entries past the layout are preserved as
// anonymous trailing fields.
type UserObject struct {
	Schema  *Schema
	Version uint8
	Fields  []Value
}

// NewUserObject returns an instance of s with every field at its default.
func NewUserObject(s *Schema) *UserObject {
	o := &UserObject{Schema: s, Version: s.Version, Fields: make([]Value, len(s.Fields))}
	for i := range o.Fields {
		o.Fields[i] = s.Default(i)
	}
	return o
}

// NewUserObjectNamed returns a default instance of the named built-in class.
func NewUserObjectNamed(name string) (*UserObject, error) {
	s, ok := Schemas().ByName(name)
	if !ok || s.IsAbstract() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	return NewUserObject(s), nil
}

func (o *UserObject) Class() ClassID { return o.Schema.ID }

func (o *UserObject) slots() []*Value {
	out := make([]*Value, len(o.Fields))
	for i := range o.Fields {
		out[i] = &o.Fields[i]
	}
	return out
}

func (o *UserObject) isValue() {}

// ClassName returns the schema class name.
func (o *UserObject) ClassName() string { return o.Schema.Name }

// Is reports whether o is an instance of the named class.
func (o *UserObject) Is(name string) bool { return o.Schema.Name == name }

// Get returns the named field, or Nil when the field is missing from the
// stored data.
func (o *UserObject) Get(name string) Value {
	i, ok := o.Schema.FieldIndex(name)
	if !ok || i >= len(o.Fields) || o.Fields[i] == nil {
		return Nil
	}
	return o.Fields[i]
}

// Set stores v in the named field, padding with defaults if the stored
// field list was short.
func (o *UserObject) Set(name string, v Value) error {
	i, ok := o.Schema.FieldIndex(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, o.Schema.Name, name)
	}
	for len(o.Fields) <= i {
		o.Fields = append(o.Fields, o.Schema.Default(len(o.Fields)))
	}
	o.Fields[i] = v
	return nil
}

// MustSet is Set for field names known to exist in the schema.
func (o *UserObject) MustSet(name string, v Value) {
	if err := o.Set(name, v); err != nil {
		panic(err)
	}
}

// Extra returns the anonymous fields stored past the schema layout.
func (o *UserObject) Extra() []Value {
	if len(o.Fields) <= len(o.Schema.Fields) {
		return nil
	}
	return o.Fields[len(o.Schema.Fields):]
}

// pad fills a short field list with schema defaults.
func (o *UserObject) pad() {
	for i := len(o.Fields); i < len(o.Schema.Fields); i++ {
		o.Fields = append(o.Fields, o.Schema.Default(i))
	}
}
