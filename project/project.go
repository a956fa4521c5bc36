package project

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/scratchkit/blocks"
)

var log = commonlog.GetLogger("scratchkit.project")

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrNoStage        = errors.New("project has no stage")
	ErrDuplicateName  = errors.New("duplicate name")
	ErrSharedBlock    = errors.New("block belongs to more than one script")
	ErrForeignWatcher = errors.New("watcher refers to an object its target does not own")
	ErrNotFound       = errors.New("not found")
)

// ---------------------------------------------------------------------------
// Project
// ---------------------------------------------------------------------------

// Project is a loaded or newly built project.
type Project struct {
	Info  Info
	Stage *Stage
	// Sprites is the sprite library order.
	Sprites []*Sprite
	// Actors are the stage's visible morphs front to back: sprites,
	// watchers and anything the model does not interpret.
	Actors []Actor
	// Variables and Lists are project-wide.
	Variables []*Variable
	Lists     []*List
	// Warnings collects non-fatal problems found while loading.
	Warnings []string
	// Source is the format-specific root the project was read from.
	Source any
}

// Info is the project metadata.
type Info struct {
	Author         string
	Comment        string
	History        string
	Language       string
	Platform       string
	OSVersion      string
	ScratchVersion string
	// Thumbnail is an *Image or a *Costume, whichever the file carried.
	Thumbnail any
}

// New returns an empty project with a stage named "Stage".
func New() *Project {
	return &Project{Stage: NewStage("Stage")}
}

// Warnf records a load-time warning and logs it.
func (p *Project) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.Warnings = append(p.Warnings, msg)
	log.Warning(msg)
}

// Targets returns the stage followed by the sprites.
func (p *Project) Targets() []Target {
	out := make([]Target, 0, 1+len(p.Sprites))
	if p.Stage != nil {
		out = append(out, p.Stage)
	}
	for _, s := range p.Sprites {
		out = append(out, s)
	}
	return out
}

// Target returns the stage or sprite with the given name.
func (p *Project) Target(name string) Target {
	for _, t := range p.Targets() {
		if t.Base().Name == name {
			return t
		}
	}
	return nil
}

// Sprite returns the sprite with the given name.
func (p *Project) Sprite(name string) *Sprite {
	for _, s := range p.Sprites {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// AddSprite creates a sprite and puts it on the stage in front.
func (p *Project) AddSprite(name string) (*Sprite, error) {
	if p.Target(name) != nil {
		return nil, fmt.Errorf("%w: sprite %q", ErrDuplicateName, name)
	}
	s := NewSprite(name)
	p.Sprites = append(p.Sprites, s)
	p.Actors = append([]Actor{s}, p.Actors...)
	return s, nil
}

// RemoveSprite removes s with its watchers.
func (p *Project) RemoveSprite(s *Sprite) bool {
	i := indexOf(p.Sprites, s)
	if i < 0 {
		return false
	}
	p.Sprites = append(p.Sprites[:i], p.Sprites[i+1:]...)
	p.dropActors(func(a Actor) bool {
		if a == Actor(s) {
			return true
		}
		w, ok := a.(*Watcher)
		return ok && w.Target == Target(s)
	})
	return true
}

// Global returns the project variable with the given name.
func (p *Project) Global(name string) *Variable { return findVariable(p.Variables, name) }

// GlobalList returns the project list with the given name.
func (p *Project) GlobalList(name string) *List { return findList(p.Lists, name) }

// AddGlobal declares a project variable.
func (p *Project) AddGlobal(name string, value any) (*Variable, error) {
	if p.Global(name) != nil {
		return nil, fmt.Errorf("%w: variable %q", ErrDuplicateName, name)
	}
	v := &Variable{Name: name, Value: value}
	p.Variables = append(p.Variables, v)
	return v, nil
}

// AddGlobalList declares a project list.
func (p *Project) AddGlobalList(name string, items ...string) (*List, error) {
	if p.GlobalList(name) != nil {
		return nil, fmt.Errorf("%w: list %q", ErrDuplicateName, name)
	}
	l := &List{Name: name, Items: items}
	p.Lists = append(p.Lists, l)
	return l, nil
}

// RemoveVariable deletes v from owner, or from the project globals when
// owner is nil, and drops every watcher showing it.
func (p *Project) RemoveVariable(owner Target, v *Variable) bool {
	vars := &p.Variables
	if owner != nil {
		vars = &owner.Base().Variables
	}
	i := indexOf(*vars, v)
	if i < 0 {
		return false
	}
	*vars = append((*vars)[:i], (*vars)[i+1:]...)
	p.dropActors(func(a Actor) bool {
		w, ok := a.(*Watcher)
		return ok && w.Variable == v
	})
	return true
}

// RemoveList deletes l from owner, or from the project globals when owner
// is nil, and drops every watcher showing it.
func (p *Project) RemoveList(owner Target, l *List) bool {
	lists := &p.Lists
	if owner != nil {
		lists = &owner.Base().Lists
	}
	i := indexOf(*lists, l)
	if i < 0 {
		return false
	}
	*lists = append((*lists)[:i], (*lists)[i+1:]...)
	p.dropActors(func(a Actor) bool {
		w, ok := a.(*Watcher)
		return ok && w.List == l
	})
	return true
}

func (p *Project) dropActors(drop func(Actor) bool) {
	kept := p.Actors[:0]
	for _, a := range p.Actors {
		if !drop(a) {
			kept = append(kept, a)
		}
	}
	for i := len(kept); i < len(p.Actors); i++ {
		p.Actors[i] = nil
	}
	p.Actors = kept
}

// Watchers returns the watcher actors in stage order.
func (p *Project) Watchers() []*Watcher {
	var out []*Watcher
	for _, a := range p.Actors {
		if w, ok := a.(*Watcher); ok {
			out = append(out, w)
		}
	}
	return out
}

// AddWatcher puts w on the stage after checking what it refers to.
func (p *Project) AddWatcher(w *Watcher) error {
	if err := p.checkWatcher(w); err != nil {
		return err
	}
	p.Actors = append(p.Actors, w)
	return nil
}

// Owns reports whether v is declared by t or globally.
func (p *Project) Owns(t Target, v *Variable) bool {
	if indexOf(p.Variables, v) >= 0 {
		return true
	}
	return t != nil && indexOf(t.Base().Variables, v) >= 0
}

// OwnsList reports whether l is declared by t or globally.
func (p *Project) OwnsList(t Target, l *List) bool {
	if indexOf(p.Lists, l) >= 0 {
		return true
	}
	return t != nil && indexOf(t.Base().Lists, l) >= 0
}

// Lookup finds a variable visible from t: its own first, then globals.
func (p *Project) Lookup(t Target, name string) *Variable {
	if t != nil {
		if v := t.Base().Variable(name); v != nil {
			return v
		}
	}
	return p.Global(name)
}

// LookupList finds a list visible from t: its own first, then globals.
func (p *Project) LookupList(t Target, name string) *List {
	if t != nil {
		if l := t.Base().List(name); l != nil {
			return l
		}
	}
	return p.GlobalList(name)
}

// Scope returns the names block text resolves against inside t.
func (p *Project) Scope(t Target) *blocks.Scope {
	s := &blocks.Scope{}
	for _, v := range p.Variables {
		s.Variables = append(s.Variables, v.Name)
	}
	for _, l := range p.Lists {
		s.Lists = append(s.Lists, l.Name)
	}
	if t != nil {
		b := t.Base()
		for _, v := range b.Variables {
			s.Variables = append(s.Variables, v.Name)
		}
		for _, l := range b.Lists {
			s.Lists = append(s.Lists, l.Name)
		}
		for _, c := range b.Costumes {
			s.Costumes = append(s.Costumes, c.Name)
		}
		for _, snd := range b.Sounds {
			s.Sounds = append(s.Sounds, snd.Name)
		}
	}
	for _, sp := range p.Sprites {
		s.Sprites = append(s.Sprites, sp.Name)
	}
	s.Broadcasts = p.Broadcasts()
	return s
}

// Broadcasts returns the sorted message names used by any script.
func (p *Project) Broadcasts() []string {
	seen := make(map[string]bool)
	for _, t := range p.Targets() {
		for _, sc := range t.Base().Scripts {
			sc.Blocks.WalkBlocks(func(b *blocks.Block) {
				if b.Type == nil {
					return
				}
				for i, in := range b.Type.Inserts {
					if in.Kind != blocks.KindBroadcast {
						continue
					}
					if name, ok := b.Args[i].(string); ok && name != "" {
						seen[name] = true
					}
				}
			})
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks the structural invariants a format relies on when
// saving: a stage exists, names are unique, every block is well formed and
// belongs to exactly one script, and every watcher refers to an object its
// target owns.
func (p *Project) Validate() error {
	if p.Stage == nil {
		return ErrNoStage
	}
	names := make(map[string]bool)
	for _, t := range p.Targets() {
		name := t.Base().Name
		if names[name] {
			return fmt.Errorf("%w: target %q", ErrDuplicateName, name)
		}
		names[name] = true
	}

	owner := make(map[*blocks.Block]string)
	for _, t := range p.Targets() {
		b := t.Base()
		for i, sc := range b.Scripts {
			where := fmt.Sprintf("%s script %d", b.Name, i+1)
			if err := sc.Blocks.Validate(); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
			var shared error
			sc.Blocks.WalkBlocks(func(blk *blocks.Block) {
				if prev, ok := owner[blk]; ok && shared == nil {
					shared = fmt.Errorf("%w: %s in %s and %s", ErrSharedBlock, blk.Command, prev, where)
				}
				owner[blk] = where
			})
			if shared != nil {
				return shared
			}
		}
	}

	for _, w := range p.Watchers() {
		if err := p.checkWatcher(w); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) checkWatcher(w *Watcher) error {
	switch {
	case w.Variable != nil && !p.Owns(w.Target, w.Variable):
		return fmt.Errorf("%w: variable %q", ErrForeignWatcher, w.Variable.Name)
	case w.List != nil && !p.OwnsList(w.Target, w.List):
		return fmt.Errorf("%w: list %q", ErrForeignWatcher, w.List.Name)
	case w.Target != nil && p.Target(w.Target.Base().Name) != w.Target:
		return fmt.Errorf("%w: target %q is not in the project", ErrForeignWatcher, w.Target.Base().Name)
	}
	return nil
}

func indexOf[T comparable](list []T, x T) int {
	for i, y := range list {
		if y == x {
			return i
		}
	}
	return -1
}
