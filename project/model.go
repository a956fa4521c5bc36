package project

import (
	"fmt"

	"github.com/chazu/scratchkit/blocks"
)

// ---------------------------------------------------------------------------
// Scriptables
// ---------------------------------------------------------------------------

// Target is the stage or a sprite.
type Target interface {
	Base() *Scriptable
	IsStage() bool
}

// Scriptable holds what the stage and sprites have in common.
type Scriptable struct {
	Name         string
	Variables    []*Variable
	Lists        []*List
	Costumes     []*Costume
	CostumeIndex int // index into Costumes of the current costume
	Sounds       []*Sound
	Scripts      []*blocks.Script
	Color        *Color
	Volume       float64
	Tempo        float64
	// Source is the format-specific object the scriptable was read from.
	Source any
}

// Base returns s itself.
func (s *Scriptable) Base() *Scriptable { return s }

// Variable returns the variable with the given name.
func (s *Scriptable) Variable(name string) *Variable { return findVariable(s.Variables, name) }

// List returns the list with the given name.
func (s *Scriptable) List(name string) *List { return findList(s.Lists, name) }

// Costume returns the current costume, or nil.
func (s *Scriptable) Costume() *Costume {
	if s.CostumeIndex < 0 || s.CostumeIndex >= len(s.Costumes) {
		return nil
	}
	return s.Costumes[s.CostumeIndex]
}

// AddVariable declares a variable local to s.
func (s *Scriptable) AddVariable(name string, value any) (*Variable, error) {
	if s.Variable(name) != nil {
		return nil, fmt.Errorf("%w: variable %q", ErrDuplicateName, name)
	}
	v := &Variable{Name: name, Value: value}
	s.Variables = append(s.Variables, v)
	return v, nil
}

// AddList declares a list local to s.
func (s *Scriptable) AddList(name string, items ...string) (*List, error) {
	if s.List(name) != nil {
		return nil, fmt.Errorf("%w: list %q", ErrDuplicateName, name)
	}
	l := &List{Name: name, Items: items}
	s.Lists = append(s.Lists, l)
	return l, nil
}

// AddScript appends a script at the given position.
func (s *Scriptable) AddScript(x, y float64, stack blocks.Stack) *blocks.Script {
	sc := &blocks.Script{X: x, Y: y, Blocks: stack}
	s.Scripts = append(s.Scripts, sc)
	return sc
}

// Stage is the backdrop and owner of the sprites.
type Stage struct {
	Scriptable
}

// NewStage returns a stage with default settings.
func NewStage(name string) *Stage {
	return &Stage{Scriptable{Name: name, Volume: 100, Tempo: 60}}
}

func (s *Stage) IsStage() bool { return true }

// RotationStyle is how a sprite's costume follows its direction.
type RotationStyle string

const (
	RotateNormal    RotationStyle = "normal"
	RotateLeftRight RotationStyle = "leftRight"
	RotateNone      RotationStyle = "none"
)

// Sprite is a movable scriptable on the stage.
type Sprite struct {
	Scriptable
	Position      Point
	Rotation      float64 // degrees
	Scale         Point   // 1 is 100%
	RotationStyle RotationStyle
	Draggable     bool
	Hidden        bool
}

// NewSprite returns a visible sprite at the origin.
func NewSprite(name string) *Sprite {
	return &Sprite{
		Scriptable:    Scriptable{Name: name, Volume: 100, Tempo: 60},
		Scale:         Point{X: 1, Y: 1},
		RotationStyle: RotateNormal,
	}
}

func (s *Sprite) IsStage() bool { return false }
func (s *Sprite) actor()        {}

// ---------------------------------------------------------------------------
// Variables, lists, media
// ---------------------------------------------------------------------------

// Variable is a named value. Watchers refer to variables by identity.
type Variable struct {
	Name string
	// Value is int64, float64, string, bool or nil.
	Value  any
	Source any
}

// List is a named list of strings.
type List struct {
	Name   string
	Items  []string
	Source any
}

func findVariable(vars []*Variable, name string) *Variable {
	for _, v := range vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func findList(lists []*List, name string) *List {
	for _, l := range lists {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Costume is a named image with a rotation center.
type Costume struct {
	Name           string
	RotationCenter Point
	Image          *Image
	Source         any
}

// Sound is a named sound. Samples and Compressed are opaque to the model.
type Sound struct {
	Name          string
	Rate          int
	Samples       []byte // 16-bit samples as stored
	Compressed    []byte
	BitsPerSample int
	Source        any
}

// Color is a color with 10-bit channels as the legacy format stores them.
type Color struct {
	R, G, B     uint16
	Alpha       uint8
	Translucent bool
}

// RGB builds an opaque color from 8-bit channels.
func RGB(r, g, b uint8) *Color {
	return &Color{R: to10(r), G: to10(g), B: to10(b), Alpha: 255}
}

func to10(c uint8) uint16 { return uint16((uint32(c)*1023 + 127) / 255) }

// RGB8 returns the color with 8-bit channels.
func (c *Color) RGB8() (r, g, b uint8) {
	from := func(x uint16) uint8 { return uint8((uint32(x&0x3FF)*255 + 511) / 1023) }
	return from(c.R), from(c.G), from(c.B)
}

// Point is a 2D position or scale.
type Point struct {
	X, Y float64
}

// ---------------------------------------------------------------------------
// Actors
// ---------------------------------------------------------------------------

// Actor is something shown on the stage: a *Sprite, a *Watcher or an
// *OpaqueActor.
type Actor interface {
	actor()
}

// WatcherStyle is how a watcher displays its value.
type WatcherStyle int

const (
	WatcherNormal WatcherStyle = iota
	WatcherLarge
	WatcherSlider
)

func (s WatcherStyle) String() string {
	switch s {
	case WatcherLarge:
		return "large"
	case WatcherSlider:
		return "slider"
	}
	return "normal"
}

// Watcher shows a variable, a list or a reporter of Target on the stage.
// Variable and List are references by identity into Target's or the
// project's declarations.
type Watcher struct {
	Target    Target
	Variable  *Variable
	List      *List
	Command   string // reporter command when neither Variable nor List is set
	Label     string
	Position  Point
	Style     WatcherStyle
	SliderMin float64
	SliderMax float64
	Hidden    bool
	Source    any
}

func (w *Watcher) actor() {}

// OpaqueActor is a stage morph the model does not interpret. Formats keep
// it so it survives a save.
type OpaqueActor struct {
	Class  string
	Source any
}

func (o *OpaqueActor) actor() {}
