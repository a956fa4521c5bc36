package scratch14

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/scratchkit/blocks"
	"github.com/chazu/scratchkit/objtable"
	"github.com/chazu/scratchkit/project"
)

var log = commonlog.GetLogger("scratchkit.scratch14")

// info dictionary keys in the order new files carry them
var infoKeys = []string{"author", "comment", "history", "language", "platform", "os-version", "scratch-version"}

// ---------------------------------------------------------------------------
// Loading: object graph -> project
// ---------------------------------------------------------------------------

type loader struct {
	p       *project.Project
	cat     *blocks.Catalog
	colors  map[*objtable.Color]*project.Color
	targets map[*objtable.UserObject]project.Target
}

// Convert builds a project from a decoded container. The project keeps c as
// its Source; saving it writes back into the same graph.
func Convert(c *Container, cat *blocks.Catalog) *project.Project {
	if cat == nil {
		cat = blocks.Default()
	}
	l := &loader{
		p:       &project.Project{Source: c},
		cat:     cat,
		colors:  make(map[*objtable.Color]*project.Color),
		targets: make(map[*objtable.UserObject]project.Target),
	}
	l.info(c.Info)
	l.stage(c.Stage)
	return l.p
}

func (l *loader) info(d *objtable.Dictionary) {
	fields := map[string]*string{
		"author":          &l.p.Info.Author,
		"comment":         &l.p.Info.Comment,
		"history":         &l.p.Info.History,
		"language":        &l.p.Info.Language,
		"platform":        &l.p.Info.Platform,
		"os-version":      &l.p.Info.OSVersion,
		"scratch-version": &l.p.Info.ScratchVersion,
	}
	for _, pair := range d.Pairs {
		key, ok := objtable.TextOf(pair.Key)
		if !ok {
			continue
		}
		if f, ok := fields[key]; ok {
			*f = text(pair.Value)
			continue
		}
		if key != "thumbnail" {
			continue
		}
		switch t := pair.Value.(type) {
		case *objtable.Form:
			l.p.Info.Thumbnail = formImage(t)
		case *objtable.UserObject:
			if t.Is("ImageMedia") {
				l.p.Info.Thumbnail = l.costume(t)
			}
		}
	}
}

func (l *loader) stage(o *objtable.UserObject) {
	st := &project.Stage{}
	l.p.Stage = st
	l.targets[o] = st
	l.scriptable(o, &st.Scriptable)

	// the legacy format keeps project variables on the stage
	l.p.Variables, st.Variables = st.Variables, nil
	l.p.Lists, st.Lists = st.Lists, nil

	for _, item := range items(o.Get("sprites")) {
		so, ok := item.(*objtable.UserObject)
		if !ok || !so.Is("ScratchSpriteMorph") {
			l.p.Warnf("stage sprite list holds %s, skipped", describe(item))
			continue
		}
		l.sprite(so)
	}
	for _, item := range items(o.Get("submorphs")) {
		if a := l.actor(item); a != nil {
			l.p.Actors = append(l.p.Actors, a)
		}
	}
}

func (l *loader) sprite(o *objtable.UserObject) *project.Sprite {
	if t, ok := l.targets[o]; ok {
		if s, ok := t.(*project.Sprite); ok {
			return s
		}
	}
	s := &project.Sprite{}
	l.targets[o] = s
	l.scriptable(o, &s.Scriptable)
	l.p.Sprites = append(l.p.Sprites, s)

	if r, ok := o.Get("bounds").(*objtable.Rectangle); ok {
		s.Position = project.Point{X: number(r.Left), Y: number(r.Top)}
	}
	s.Scale = project.Point{X: 1, Y: 1}
	if _, ok := o.Get("scalePoint").(*objtable.Point); ok {
		s.Scale = point(o.Get("scalePoint"))
	}
	s.Rotation = number(o.Get("rotationDegrees"))
	s.RotationStyle = project.RotationStyle(text(o.Get("rotationStyle")))
	if s.RotationStyle == "" {
		s.RotationStyle = project.RotateNormal
	}
	if b, ok := o.Get("draggable").(objtable.Bool); ok {
		s.Draggable = bool(b)
	}
	s.Hidden = integer(o.Get("flags"))&1 != 0
	return s
}

func (l *loader) scriptable(o *objtable.UserObject, s *project.Scriptable) {
	s.Name = text(o.Get("objName"))
	s.Source = o
	s.Color = l.color(o.Get("color"))
	s.Volume = number(o.Get("volume"))
	s.Tempo = number(o.Get("tempoBPM"))
	s.Variables = l.variables(o.Get("vars"))
	s.Lists = l.lists(o.Get("lists"))

	s.CostumeIndex = -1
	current := o.Get("costume")
	for _, item := range items(o.Get("media")) {
		m, ok := item.(*objtable.UserObject)
		if !ok {
			continue
		}
		switch {
		case m.Is("ImageMedia"):
			if m == current {
				s.CostumeIndex = len(s.Costumes)
			}
			s.Costumes = append(s.Costumes, l.costume(m))
		case m.Is("SoundMedia"):
			s.Sounds = append(s.Sounds, l.sound(m))
		}
	}

	r := &scriptReader{cat: l.cat, warn: l.p.Warnf, owner: s.Name}
	s.Scripts = r.scripts(o.Get("blocksBin"))
}

func (l *loader) color(v objtable.Value) *project.Color {
	oc, ok := v.(*objtable.Color)
	if !ok {
		return nil
	}
	if c, ok := l.colors[oc]; ok {
		return c
	}
	c := &project.Color{
		R:           uint16(oc.RGB >> 20 & 0x3FF),
		G:           uint16(oc.RGB >> 10 & 0x3FF),
		B:           uint16(oc.RGB & 0x3FF),
		Alpha:       255,
		Translucent: oc.Translucent,
	}
	if oc.Translucent {
		c.Alpha = oc.Alpha
	}
	l.colors[oc] = c
	return c
}

func (l *loader) variables(v objtable.Value) []*project.Variable {
	d, ok := v.(*objtable.Dictionary)
	if !ok {
		return nil
	}
	out := make([]*project.Variable, 0, len(d.Pairs))
	for _, pair := range d.Pairs {
		name, ok := objtable.TextOf(pair.Key)
		if !ok {
			l.p.Warnf("variable with %s name skipped", describe(pair.Key))
			continue
		}
		out = append(out, &project.Variable{Name: name, Value: scalar(pair.Value), Source: pair.Key})
	}
	return out
}

func (l *loader) lists(v objtable.Value) []*project.List {
	d, ok := v.(*objtable.Dictionary)
	if !ok {
		return nil
	}
	out := make([]*project.List, 0, len(d.Pairs))
	for _, pair := range d.Pairs {
		name, _ := objtable.TextOf(pair.Key)
		m, ok := pair.Value.(*objtable.UserObject)
		if !ok || !m.Is("ScratchListMorph") {
			l.p.Warnf("list %q holds %s, skipped", name, describe(pair.Value))
			continue
		}
		list := &project.List{Name: name, Source: m}
		for _, item := range items(m.Get("strings")) {
			list.Items = append(list.Items, itemText(item))
		}
		out = append(out, list)
	}
	return out
}

// itemText reads a list element; the legacy editor stores numbers as
// numbers once they have been computed.
func itemText(v objtable.Value) string {
	switch x := scalar(v).(type) {
	case string:
		return x
	case int64, float64, bool:
		return formatScalar(x)
	}
	return ""
}

func (l *loader) costume(m *objtable.UserObject) *project.Costume {
	c := &project.Costume{
		Name:           text(m.Get("mediaName")),
		RotationCenter: point(m.Get("rotationCenter")),
		Source:         m,
	}
	form, _ := m.Get("form").(*objtable.Form)
	if jpeg, ok := m.Get("jpegBytes").(*objtable.ByteArray); ok {
		c.Image = &project.Image{Format: project.ImageJPEG, Data: jpeg.Data, Depth: 32}
		if form != nil {
			c.Image.Width, c.Image.Height = form.Size()
			c.Image.Source = form
		}
	} else if form != nil {
		c.Image = formImage(form)
	}
	return c
}

func (l *loader) sound(m *objtable.UserObject) *project.Sound {
	s := &project.Sound{Name: text(m.Get("mediaName")), Source: m}
	if orig, ok := m.Get("originalSound").(*objtable.UserObject); ok {
		if buf, ok := orig.Get("samples").(*objtable.SoundBuffer); ok {
			s.Samples = buf.Data
		}
		s.Rate = integer(orig.Get("originalSamplingRate"))
		s.BitsPerSample = 16
	}
	if data, ok := m.Get("compressedData").(*objtable.ByteArray); ok {
		s.Compressed = data.Data
		s.Rate = integer(m.Get("compressedSampleRate"))
		s.BitsPerSample = integer(m.Get("compressedBitsPerSample"))
	}
	return s
}

// ---------------------------------------------------------------------------
// Actors
// ---------------------------------------------------------------------------

func (l *loader) actor(v objtable.Value) project.Actor {
	o, ok := v.(*objtable.UserObject)
	if !ok {
		return &project.OpaqueActor{Class: describe(v), Source: v}
	}
	switch {
	case o.Is("ScratchSpriteMorph"):
		return l.sprite(o)
	case o.Is("WatcherMorph"):
		if w := l.watcher(o); w != nil {
			return w
		}
	case o.Is("ScratchListMorph"):
		if w := l.listWatcher(o); w != nil {
			return w
		}
	}
	return &project.OpaqueActor{Class: o.ClassName(), Source: o}
}

func (l *loader) target(v objtable.Value) project.Target {
	if o, ok := v.(*objtable.UserObject); ok {
		if o.Is("ScratchSpriteMorph") {
			return l.sprite(o)
		}
		return l.targets[o]
	}
	return nil
}

func (l *loader) watcher(o *objtable.UserObject) *project.Watcher {
	readout, ok := o.Get("readout").(*objtable.UserObject)
	if !ok {
		l.p.Warnf("watcher without readout kept opaque")
		return nil
	}
	w := &project.Watcher{
		Target:    l.target(readout.Get("target")),
		Label:     l.label(o.Get("titleMorph")),
		SliderMin: number(o.Get("sliderMin")),
		SliderMax: number(o.Get("sliderMax")),
		Source:    o,
	}
	if w.Target == nil {
		l.p.Warnf("watcher %q has no target, kept opaque", w.Label)
		return nil
	}
	if r, ok := o.Get("bounds").(*objtable.Rectangle); ok {
		w.Position = project.Point{X: number(r.Left), Y: number(r.Top)}
	}
	switch {
	case o.Get("isLarge") == objtable.Bool(true):
		w.Style = project.WatcherLarge
	case !objtable.IsNil(o.Get("scratchSlider")):
		w.Style = project.WatcherSlider
	}

	selector := text(readout.Get("getSelector"))
	if selector != "getVar:" {
		w.Command = selector
		return w
	}
	name := text(readout.Get("parameter"))
	w.Variable = l.p.Lookup(w.Target, name)
	if w.Variable == nil {
		l.p.Warnf("watcher on unknown variable %q of %s kept opaque", name, w.Target.Base().Name)
		return nil
	}
	return w
}

func (l *loader) listWatcher(o *objtable.UserObject) *project.Watcher {
	t := l.target(o.Get("target"))
	if t == nil {
		t = l.p.Stage
	}
	name := text(o.Get("listName"))
	list := l.p.LookupList(t, name)
	if list == nil {
		l.p.Warnf("list watcher on unknown list %q kept opaque", name)
		return nil
	}
	w := &project.Watcher{Target: t, List: list, Label: name, Source: o}
	if r, ok := o.Get("bounds").(*objtable.Rectangle); ok {
		w.Position = project.Point{X: number(r.Left), Y: number(r.Top)}
	}
	return w
}

func (l *loader) label(v objtable.Value) string {
	if m, ok := v.(*objtable.UserObject); ok && m.Is("StringMorph") {
		return text(m.Get("contents"))
	}
	return ""
}
