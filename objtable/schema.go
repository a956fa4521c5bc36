package objtable

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// ---------------------------------------------------------------------------
// Schema table: user-class field layouts
// ---------------------------------------------------------------------------

//go:embed classes.toml
var classesTOML []byte

// Schema is the flattened field layout of one user class.
type Schema struct {
	Name    string
	ID      ClassID
	Version uint8
	Super   string
	// Fields is the effective layout: ancestors first, then own fields.
	Fields []string

	index    map[string]int
	defaults []any
}

// FieldIndex returns the position of name in the effective layout.
func (s *Schema) FieldIndex(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Default returns a fresh default for field i. Composite defaults (strings,
// symbols) are newly allocated on every call so instances never share them.
func (s *Schema) Default(i int) Value {
	if i < 0 || i >= len(s.defaults) {
		return Nil
	}
	switch d := s.defaults[i].(type) {
	case nil:
		return Nil
	case bool:
		return Bool(d)
	case int64:
		return NewInt(d)
	case float64:
		return Float(d)
	case string:
		if sym, ok := strings.CutPrefix(d, "#"); ok {
			return NewSymbol(sym)
		}
		return NewString(d)
	}
	return Nil
}

// IsAbstract reports whether the class only contributes fields.
func (s *Schema) IsAbstract() bool { return s.ID == 0 }

// SchemaTable indexes schemas by class tag and by name. It is immutable once
// built.
type SchemaTable struct {
	byID   map[ClassID]*Schema
	byName map[string]*Schema
	order  []*Schema
}

// ByID returns the schema for a concrete user class.
func (t *SchemaTable) ByID(id ClassID) (*Schema, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// ByName returns the schema with the given class name, abstract or not.
func (t *SchemaTable) ByName(name string) (*Schema, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// All returns every schema in declaration order.
func (t *SchemaTable) All() []*Schema {
	out := make([]*Schema, len(t.order))
	copy(out, t.order)
	return out
}

type classFile struct {
	Class []classDecl `toml:"class"`
}

type classDecl struct {
	Name     string         `toml:"name"`
	ID       int            `toml:"id"`
	Version  int            `toml:"version"`
	Super    string         `toml:"super"`
	Fields   []string       `toml:"fields"`
	Defaults map[string]any `toml:"defaults"`
}

// ParseSchemas builds a schema table from TOML class declarations. A class
// may only name a superclass declared before it.
func ParseSchemas(data []byte) (*SchemaTable, error) {
	var f classFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("parsing class declarations: %w", err)
	}

	t := &SchemaTable{
		byID:   make(map[ClassID]*Schema),
		byName: make(map[string]*Schema),
	}
	for _, decl := range f.Class {
		if decl.Name == "" {
			return nil, fmt.Errorf("class declaration without name")
		}
		if _, dup := t.byName[decl.Name]; dup {
			return nil, fmt.Errorf("class %s declared twice", decl.Name)
		}
		if decl.ID != 0 && (decl.ID < int(FirstUserClass) || decl.ID > 255) {
			return nil, fmt.Errorf("class %s: id %d outside user range", decl.Name, decl.ID)
		}
		if decl.Version < 0 || decl.Version > 255 {
			return nil, fmt.Errorf("class %s: version %d out of range", decl.Name, decl.Version)
		}

		s := &Schema{
			Name:    decl.Name,
			ID:      ClassID(decl.ID),
			Version: uint8(decl.Version),
			Super:   decl.Super,
			index:   make(map[string]int),
		}
		if decl.Super != "" {
			parent, ok := t.byName[decl.Super]
			if !ok {
				return nil, fmt.Errorf("class %s: unknown superclass %s", decl.Name, decl.Super)
			}
			s.Fields = append(s.Fields, parent.Fields...)
			s.defaults = append(s.defaults, parent.defaults...)
		}
		s.Fields = append(s.Fields, decl.Fields...)
		for len(s.defaults) < len(s.Fields) {
			s.defaults = append(s.defaults, nil)
		}
		for i, name := range s.Fields {
			if _, dup := s.index[name]; dup {
				return nil, fmt.Errorf("class %s: field %s declared twice", decl.Name, name)
			}
			s.index[name] = i
		}
		for name, d := range decl.Defaults {
			i, ok := s.index[name]
			if !ok {
				return nil, fmt.Errorf("class %s: default for unknown field %s", decl.Name, name)
			}
			switch d.(type) {
			case bool, int64, float64, string:
			default:
				return nil, fmt.Errorf("class %s: default for %s must be a scalar", decl.Name, name)
			}
			s.defaults[i] = d
		}

		if s.ID != 0 {
			if other, dup := t.byID[s.ID]; dup {
				return nil, fmt.Errorf("class %s: id %d already used by %s", decl.Name, s.ID, other.Name)
			}
			t.byID[s.ID] = s
		}
		t.byName[s.Name] = s
		t.order = append(t.order, s)
	}
	return t, nil
}

var (
	schemasOnce sync.Once
	schemas     *SchemaTable
)

// Schemas returns the built-in schema table, parsed on first use.
func Schemas() *SchemaTable {
	schemasOnce.Do(func() {
		t, err := ParseSchemas(classesTOML)
		if err != nil {
			panic(fmt.Sprintf("objtable: built-in class table: %v", err))
		}
		schemas = t
	})
	return schemas
}
