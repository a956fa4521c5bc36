// Package scratch14 reads and writes the legacy binary project format: a
// "ScratchV02" header followed by an info object table and a stage object
// table.
package scratch14

import (
	"fmt"
	"io"

	"github.com/chazu/scratchkit/blocks"
	"github.com/chazu/scratchkit/project"
)

func init() {
	project.RegisterFormat(&Format{})
}

// Format is the legacy format plugin. The zero value uses the built-in
// block catalog.
type Format struct {
	Catalog *blocks.Catalog
}

func (f *Format) Name() string        { return "scratch14" }
func (f *Format) DisplayName() string { return "Scratch 1.4" }
func (f *Format) Extension() string   { return ".sb" }

// HasStageSpecificVariables is false: the stage's variables are the
// project's variables.
func (f *Format) HasStageSpecificVariables() bool { return false }

// Load decodes a project. Unknown blocks and unreadable scripts do not fail
// the load; they are kept and reported in the project's Warnings.
func (f *Format) Load(r io.Reader) (*project.Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return f.Decode(data)
}

// Decode is Load over a byte slice.
func (f *Format) Decode(data []byte) (*project.Project, error) {
	c, err := ReadContainer(data)
	if err != nil {
		return nil, err
	}
	p := Convert(c, f.Catalog)
	if n := len(p.Warnings); n > 0 {
		log.Infof("loaded %q with %d warnings", p.Stage.Name, n)
	}
	return p, nil
}

// Save encodes p.
func (f *Format) Save(w io.Writer, p *project.Project) error {
	data, err := f.Encode(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Encode is Save into a byte slice.
func (f *Format) Encode(p *project.Project) ([]byte, error) {
	c, err := Build(p)
	if err != nil {
		return nil, fmt.Errorf("scratch14: %w", err)
	}
	return c.Bytes()
}
