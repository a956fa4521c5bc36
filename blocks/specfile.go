package blocks

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
)

// ---------------------------------------------------------------------------
// Block spec files
// ---------------------------------------------------------------------------

// specSchema constrains extension files before they are turned into block
// types. Definitions are closed, so misspelt keys are rejected.
const specSchema = `
#Hidden: {
	at:      int & >=0
	string?: string
	symbol?: string
}

#Block: {
	command:   string & !=""
	text:      string & !=""
	shape:     "stack" | "reporter" | "boolean" | "hat" | "cap"
	category:  string
	defaults?: [...(number | string | bool)]
	mouths?:   int & >=0 & <=2
	hidden?:   [...#Hidden]
	aliases?:  [...string]
	obsolete?: bool
}

#File: {
	block: [...#Block]
}
`

type specFile struct {
	Block []specDecl `toml:"block"`
}

type specDecl struct {
	Command  string       `toml:"command"`
	Text     string       `toml:"text"`
	Shape    string       `toml:"shape"`
	Category string       `toml:"category"`
	Defaults []any        `toml:"defaults"`
	Mouths   int          `toml:"mouths"`
	Hidden   []hiddenDecl `toml:"hidden"`
	Aliases  []string     `toml:"aliases"`
	Obsolete bool         `toml:"obsolete"`
}

type hiddenDecl struct {
	At     int    `toml:"at"`
	String string `toml:"string"`
	Symbol string `toml:"symbol"`
}

// ParseSpecs builds block types from TOML block records.
func ParseSpecs(data []byte) ([]*BlockType, error) {
	var f specFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("parsing block specs: %w", err)
	}
	types := make([]*BlockType, 0, len(f.Block))
	for _, d := range f.Block {
		bt, err := d.blockType()
		if err != nil {
			return nil, err
		}
		types = append(types, bt)
	}
	return types, nil
}

func (d specDecl) blockType() (*BlockType, error) {
	shape, err := ParseShape(d.Shape)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", d.Command, err)
	}
	defaults := make([]any, len(d.Defaults))
	for i, v := range d.Defaults {
		defaults[i] = normalizeDefault(v)
	}
	bt, err := NewBlockType(d.Command, d.Text, shape, d.Category, defaults...)
	if err != nil {
		return nil, err
	}
	bt.Mouths = d.Mouths
	bt.Aliases = d.Aliases
	bt.Obsolete = d.Obsolete
	for _, h := range d.Hidden {
		switch {
		case h.Symbol != "" && h.String == "":
			bt.Hidden = append(bt.Hidden, Hidden{At: h.At, Value: h.Symbol, Symbol: true})
		case h.String != "" && h.Symbol == "":
			bt.Hidden = append(bt.Hidden, Hidden{At: h.At, Value: h.String})
		default:
			return nil, fmt.Errorf("block %s: hidden argument at %d needs exactly one of string or symbol", d.Command, h.At)
		}
	}
	return bt, nil
}

// normalizeDefault maps TOML scalars onto block argument values.
func normalizeDefault(v any) any {
	switch x := v.(type) {
	case int64, float64, string, bool:
		return x
	case int:
		return int64(x)
	}
	return nil
}

// ValidateSpecs checks TOML block records against the block spec schema.
func ValidateSpecs(data []byte) error {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return fmt.Errorf("parsing block specs: %w", err)
	}
	if _, ok := doc["block"]; !ok {
		doc["block"] = []any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(specSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling spec schema: %w", err)
	}
	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encoding block specs: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#File")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid block specs: %w", err)
	}
	return nil
}

// LoadSpecFile reads, validates and parses an extension spec file.
func LoadSpecFile(path string) ([]*BlockType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := ValidateSpecs(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	types, err := ParseSpecs(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return types, nil
}

// LoadCatalog returns the built-in catalog extended with the given spec
// files. With no files it returns Default.
func LoadCatalog(paths ...string) (*Catalog, error) {
	if len(paths) == 0 {
		return Default(), nil
	}
	var more []*BlockType
	for _, p := range paths {
		types, err := LoadSpecFile(p)
		if err != nil {
			return nil, err
		}
		more = append(more, types...)
	}
	return Default().Extend(more...)
}
