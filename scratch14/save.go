package scratch14

import (
	"bytes"
	"fmt"

	"github.com/chazu/scratchkit/objtable"
	"github.com/chazu/scratchkit/project"
)

// ---------------------------------------------------------------------------
// Saving: project -> object graph
// ---------------------------------------------------------------------------
//
// Every entity that was loaded keeps the user object it came from in its
// Source field. Saving writes the model back into those objects, keeping
// each stored value that still reads the same, so an unchanged project
// re-encodes to the bytes it was read from. Entities without a Source get
// fresh objects built from schema defaults.

type writer struct {
	p      *project.Project
	colors map[*project.Color]*objtable.Color
	morphs map[project.Target]*objtable.UserObject
	lists  map[*project.List]*objtable.UserObject
	sw     scriptWriter
}

// Build writes p into a container ready for encoding. When p was loaded by
// this package the container is the one it was loaded from.
func Build(p *project.Project) (*Container, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	c, _ := p.Source.(*Container)
	if c == nil {
		c = &Container{Version: string(Header)}
	}
	w := &writer{
		p:      p,
		colors: make(map[*project.Color]*objtable.Color),
		morphs: make(map[project.Target]*objtable.UserObject),
		lists:  make(map[*project.List]*objtable.UserObject),
	}
	info, err := w.info(c.Info, p.Info)
	if err != nil {
		return nil, err
	}
	stage, err := w.stage()
	if err != nil {
		return nil, err
	}
	c.Info, c.Stage = info, stage
	p.Source = c
	return c, nil
}

func newObject(class string) *objtable.UserObject {
	o, err := objtable.NewUserObjectNamed(class)
	if err != nil {
		// class names here are fixed and present in the built-in schema
		panic(err)
	}
	return o
}

// source returns v as a user object of class, or nil.
func source(v any, class string) *objtable.UserObject {
	o, ok := v.(*objtable.UserObject)
	if !ok || !o.Is(class) {
		return nil
	}
	return o
}

// ---------------------------------------------------------------------------
// Info
// ---------------------------------------------------------------------------

func (w *writer) info(d *objtable.Dictionary, info project.Info) (*objtable.Dictionary, error) {
	fresh := d == nil
	if fresh {
		d = objtable.NewDictionary()
	}
	values := []string{info.Author, info.Comment, info.History, info.Language, info.Platform, info.OSVersion, info.ScratchVersion}
	for i, key := range infoKeys {
		val := values[i]
		old, ok := d.Lookup(key)
		switch {
		case ok:
			if v := keepString(old, val); v != old {
				d.Put(key, v)
			}
		case val != "" || fresh && key == "comment":
			d.Pairs = append(d.Pairs, objtable.Pair{Key: objtable.NewString(key), Value: objtable.NewText(val)})
		}
	}

	old, _ := d.Lookup("thumbnail")
	var thumb objtable.Value
	switch t := info.Thumbnail.(type) {
	case nil:
		d.Delete("thumbnail")
		return d, nil
	case *project.Image:
		thumb = keepForm(old, t)
	case *project.Costume:
		thumb = w.costume(t)
	default:
		return nil, fmt.Errorf("thumbnail is %T, want *project.Image or *project.Costume", t)
	}
	if thumb != old {
		if old == nil {
			d.Pairs = append(d.Pairs, objtable.Pair{Key: objtable.NewString("thumbnail"), Value: thumb})
		} else {
			d.Put("thumbnail", thumb)
		}
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Stage and sprites
// ---------------------------------------------------------------------------

func (w *writer) stage() (*objtable.UserObject, error) {
	st := w.p.Stage
	o := source(st.Source, "ScratchStageMorph")
	if o == nil {
		o = newObject("ScratchStageMorph")
		o.MustSet("submorphs", objtable.NewArray())
		o.MustSet("sprites", objtable.NewOrderedCollection())
		o.MustSet("bounds", &objtable.Rectangle{Left: objtable.NewInt(0), Top: objtable.NewInt(0), Right: objtable.NewInt(480), Bottom: objtable.NewInt(360)})
	}
	st.Source = o
	w.morphs[st] = o

	// stage-specific declarations share the project's slot in this format
	vars := append(append([]*project.Variable{}, w.p.Variables...), st.Variables...)
	lists := append(append([]*project.List{}, w.p.Lists...), st.Lists...)
	w.scriptable(o, &st.Scriptable, vars, lists)

	sprites := make([]objtable.Value, 0, len(w.p.Sprites))
	for _, s := range w.p.Sprites {
		sprites = append(sprites, w.sprite(s, o))
	}
	o.MustSet("sprites", keepItems(o.Get("sprites"), objtable.ClassOrderedCollection, sprites))

	actors := make([]objtable.Value, 0, len(w.p.Actors))
	for _, a := range w.p.Actors {
		v, err := w.actor(a, o)
		if err != nil {
			return nil, err
		}
		actors = append(actors, v)
	}
	o.MustSet("submorphs", keepItems(o.Get("submorphs"), objtable.ClassArray, actors))
	return o, nil
}

func (w *writer) sprite(s *project.Sprite, stage *objtable.UserObject) *objtable.UserObject {
	if o, ok := w.morphs[s]; ok {
		return o
	}
	o := source(s.Source, "ScratchSpriteMorph")
	if o == nil {
		o = newObject("ScratchSpriteMorph")
		o.MustSet("owner", stage)
		o.MustSet("submorphs", objtable.NewArray())
		o.MustSet("scalePoint", objtable.NewPoint(1, 1))
	}
	s.Source = o
	w.morphs[s] = o
	w.scriptable(o, &s.Scriptable, s.Variables, s.Lists)

	o.MustSet("bounds", moveBounds(o.Get("bounds"), s.Position, costumeSize(s.Costume())))
	if scale := o.Get("scalePoint"); !objtable.IsNil(scale) || s.Scale != (project.Point{X: 1, Y: 1}) {
		o.MustSet("scalePoint", keepPoint(scale, s.Scale))
	}
	o.MustSet("rotationDegrees", keepNumber(o.Get("rotationDegrees"), s.Rotation))
	style := s.RotationStyle
	if style == "" {
		style = project.RotateNormal
	}
	o.MustSet("rotationStyle", keepSymbol(o.Get("rotationStyle"), string(style)))
	o.MustSet("draggable", keepBool(o.Get("draggable"), s.Draggable))

	flags := integer(o.Get("flags"))
	if s.Hidden {
		flags |= 1
	} else {
		flags &^= 1
	}
	o.MustSet("flags", keepNumber(o.Get("flags"), float64(flags)))
	return o
}

func costumeSize(c *project.Costume) project.Point {
	if c == nil || c.Image == nil {
		return project.Point{}
	}
	return project.Point{X: float64(c.Image.Width), Y: float64(c.Image.Height)}
}

// moveBounds puts the top-left corner of old at pos, keeping its size. A
// missing rectangle gets the given size.
func moveBounds(old objtable.Value, pos, size project.Point) objtable.Value {
	if pos == (project.Point{}) && objtable.IsNil(old) {
		return objtable.Nil
	}
	if r, ok := old.(*objtable.Rectangle); ok {
		left, top := number(r.Left), number(r.Top)
		if left == pos.X && top == pos.Y {
			return r
		}
		size = project.Point{X: number(r.Right) - left, Y: number(r.Bottom) - top}
	}
	return &objtable.Rectangle{
		Left:   objtable.Number(pos.X),
		Top:    objtable.Number(pos.Y),
		Right:  objtable.Number(pos.X + size.X),
		Bottom: objtable.Number(pos.Y + size.Y),
	}
}

func (w *writer) scriptable(o *objtable.UserObject, s *project.Scriptable, vars []*project.Variable, lists []*project.List) {
	o.MustSet("objName", keepString(o.Get("objName"), s.Name))
	o.MustSet("color", w.color(o.Get("color"), s.Color))
	o.MustSet("volume", keepNumber(o.Get("volume"), s.Volume))
	o.MustSet("tempoBPM", keepNumber(o.Get("tempoBPM"), s.Tempo))
	o.MustSet("vars", w.variables(o.Get("vars"), vars))
	o.MustSet("lists", w.listDict(o.Get("lists"), lists, o))
	o.MustSet("blocksBin", w.sw.scripts(o.Get("blocksBin"), s.Scripts))
	w.media(o, s)
}

func (w *writer) color(old objtable.Value, c *project.Color) objtable.Value {
	if c == nil {
		if objtable.IsNil(old) {
			return old
		}
		return objtable.Nil
	}
	if oc, ok := w.colors[c]; ok {
		return oc
	}
	rgb := uint32(c.R&0x3FF)<<20 | uint32(c.G&0x3FF)<<10 | uint32(c.B&0x3FF)
	if oc, ok := old.(*objtable.Color); ok && oc.RGB == rgb && oc.Translucent == c.Translucent &&
		(!c.Translucent || oc.Alpha == c.Alpha) {
		w.colors[c] = oc
		return oc
	}
	oc := &objtable.Color{RGB: rgb, Alpha: c.Alpha, Translucent: c.Translucent}
	w.colors[c] = oc
	return oc
}

// ---------------------------------------------------------------------------
// Variables and lists
// ---------------------------------------------------------------------------

func findPair(pairs []objtable.Pair, match func(objtable.Pair) bool) (objtable.Pair, bool) {
	for _, p := range pairs {
		if match(p) {
			return p, true
		}
	}
	return objtable.Pair{}, false
}

func samePairs(a, b []objtable.Pair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !objtable.Equal(a[i].Key, b[i].Key) || !objtable.Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func keepPairs(old objtable.Value, pairs []objtable.Pair) *objtable.Dictionary {
	if pairs == nil {
		pairs = []objtable.Pair{}
	}
	d, ok := old.(*objtable.Dictionary)
	if !ok {
		return &objtable.Dictionary{ClassID: objtable.ClassDictionary, Pairs: pairs}
	}
	if !samePairs(d.Pairs, pairs) {
		d.Pairs = pairs
	}
	return d
}

func (w *writer) variables(old objtable.Value, vars []*project.Variable) *objtable.Dictionary {
	var prev []objtable.Pair
	if d, ok := old.(*objtable.Dictionary); ok {
		prev = d.Pairs
	}
	pairs := make([]objtable.Pair, 0, len(vars))
	for _, v := range vars {
		key, _ := v.Source.(objtable.Value)
		var value objtable.Value
		if p, ok := findPair(prev, func(p objtable.Pair) bool { return key != nil && objtable.Equal(p.Key, key) }); ok {
			value = p.Value
		}
		key = keepString(key, v.Name)
		v.Source = key
		pairs = append(pairs, objtable.Pair{Key: key, Value: keep(value, v.Value)})
	}
	return keepPairs(old, pairs)
}

func (w *writer) listDict(old objtable.Value, lists []*project.List, owner *objtable.UserObject) *objtable.Dictionary {
	var prev []objtable.Pair
	if d, ok := old.(*objtable.Dictionary); ok {
		prev = d.Pairs
	}
	pairs := make([]objtable.Pair, 0, len(lists))
	for _, l := range lists {
		m := w.list(l, owner)
		var key objtable.Value
		if p, ok := findPair(prev, func(p objtable.Pair) bool { return objtable.Equal(p.Value, m) }); ok {
			key = p.Key
		}
		pairs = append(pairs, objtable.Pair{Key: keepString(key, l.Name), Value: m})
	}
	return keepPairs(old, pairs)
}

func (w *writer) list(l *project.List, owner *objtable.UserObject) *objtable.UserObject {
	if o, ok := w.lists[l]; ok {
		return o
	}
	o := source(l.Source, "ScratchListMorph")
	if o == nil {
		o = newObject("ScratchListMorph")
		o.MustSet("target", owner)
		o.MustSet("submorphs", objtable.NewArray())
	}
	l.Source = o
	w.lists[l] = o

	o.MustSet("listName", keepString(o.Get("listName"), l.Name))
	prev := items(o.Get("strings"))
	out := make([]objtable.Value, len(l.Items))
	for i, s := range l.Items {
		if i < len(prev) && itemText(prev[i]) == s {
			out[i] = prev[i]
			continue
		}
		out[i] = objtable.NewText(s)
	}
	o.MustSet("strings", keepItems(o.Get("strings"), objtable.ClassArray, out))
	return o
}

// ---------------------------------------------------------------------------
// Media
// ---------------------------------------------------------------------------

func isMedia(v objtable.Value) bool {
	o, ok := v.(*objtable.UserObject)
	return ok && (o.Is("ImageMedia") || o.Is("SoundMedia"))
}

// media writes costumes and sounds. Stored media keep their order when the
// model's order agrees with it; media the model does not know are kept.
func (w *writer) media(o *objtable.UserObject, s *project.Scriptable) {
	costumes := make([]objtable.Value, len(s.Costumes))
	for i, c := range s.Costumes {
		costumes[i] = w.costume(c)
	}
	sounds := make([]objtable.Value, len(s.Sounds))
	for i, snd := range s.Sounds {
		sounds[i] = w.sound(snd)
	}

	stored := items(o.Get("media"))
	all := append(append([]objtable.Value{}, costumes...), sounds...)
	var out []objtable.Value
	if sameOrder(stored, costumes) && sameOrder(stored, sounds) {
		want := make(map[objtable.Object]bool)
		for _, m := range all {
			want[m.(objtable.Object)] = true
		}
		placed := make(map[objtable.Object]bool)
		for _, m := range stored {
			obj, ok := m.(objtable.Object)
			if !ok || want[obj] || !isMedia(m) {
				out = append(out, m)
				if ok {
					placed[obj] = true
				}
			}
		}
		for _, m := range all {
			if !placed[m.(objtable.Object)] {
				out = append(out, m)
			}
		}
	} else {
		out = all
		for _, m := range stored {
			if !isMedia(m) {
				out = append(out, m)
			}
		}
	}
	o.MustSet("media", keepItems(o.Get("media"), objtable.ClassOrderedCollection, out))

	if c := s.Costume(); c != nil {
		o.MustSet("costume", costumes[s.CostumeIndex])
	} else if len(costumes) > 0 && objtable.IsNil(o.Get("costume")) {
		o.MustSet("costume", costumes[0])
	}
}

// sameOrder reports whether the objects of want that appear in stored
// appear there in want's order.
func sameOrder(stored, want []objtable.Value) bool {
	in := make(map[objtable.Object]bool, len(want))
	for _, m := range want {
		in[m.(objtable.Object)] = true
	}
	i := 0
	for _, m := range stored {
		obj, ok := m.(objtable.Object)
		if !ok || !in[obj] {
			continue
		}
		for i < len(want) && want[i] != m {
			i++
		}
		if i == len(want) {
			return false
		}
		i++
	}
	return true
}

func (w *writer) costume(c *project.Costume) objtable.Value {
	o := source(c.Source, "ImageMedia")
	if o == nil {
		o = newObject("ImageMedia")
	}
	c.Source = o
	o.MustSet("mediaName", keepString(o.Get("mediaName"), c.Name))
	o.MustSet("rotationCenter", keepPoint(o.Get("rotationCenter"), c.RotationCenter))

	img := c.Image
	switch {
	case img == nil:
	case img.Format == project.ImageJPEG:
		o.MustSet("jpegBytes", keepBytes(o.Get("jpegBytes"), img.Data))
		if f, ok := o.Get("form").(*objtable.Form); ok {
			if fw, fh := f.Size(); fw == img.Width && fh == img.Height {
				break
			}
		}
		o.MustSet("form", keepForm(nil, &project.Image{Width: img.Width, Height: img.Height, Depth: 32}))
	default:
		o.MustSet("form", keepForm(o.Get("form"), img))
		o.MustSet("jpegBytes", keepBytes(o.Get("jpegBytes"), nil))
	}
	return o
}

func (w *writer) sound(s *project.Sound) objtable.Value {
	o := source(s.Source, "SoundMedia")
	if o == nil {
		o = newObject("SoundMedia")
	}
	s.Source = o
	o.MustSet("mediaName", keepString(o.Get("mediaName"), s.Name))

	orig := source(o.Get("originalSound"), "SampledSound")
	if orig == nil && (s.Samples != nil || s.Compressed == nil) {
		orig = newObject("SampledSound")
		o.MustSet("originalSound", orig)
	}
	if orig != nil {
		buf, ok := orig.Get("samples").(*objtable.SoundBuffer)
		if !ok || !bytes.Equal(buf.Data, s.Samples) {
			buf = &objtable.SoundBuffer{Data: s.Samples}
			orig.MustSet("samples", buf)
		}
		if s.Compressed == nil {
			orig.MustSet("originalSamplingRate", keepNumber(orig.Get("originalSamplingRate"), float64(s.Rate)))
		}
	}

	o.MustSet("compressedData", keepBytes(o.Get("compressedData"), s.Compressed))
	if s.Compressed != nil {
		o.MustSet("compressedSampleRate", keepNumber(o.Get("compressedSampleRate"), float64(s.Rate)))
		o.MustSet("compressedBitsPerSample", keepNumber(o.Get("compressedBitsPerSample"), float64(s.BitsPerSample)))
	}
	return o
}

// ---------------------------------------------------------------------------
// Actors
// ---------------------------------------------------------------------------

func (w *writer) actor(a project.Actor, stage *objtable.UserObject) (objtable.Value, error) {
	switch x := a.(type) {
	case *project.Sprite:
		return w.sprite(x, stage), nil
	case *project.Watcher:
		return w.watcher(x, stage)
	case *project.OpaqueActor:
		v, ok := x.Source.(objtable.Value)
		if !ok {
			return nil, fmt.Errorf("opaque actor %s has no stored object", x.Class)
		}
		return v, nil
	}
	return nil, fmt.Errorf("actor %T cannot be saved", a)
}

func (w *writer) targetMorph(t project.Target) (*objtable.UserObject, error) {
	if o, ok := w.morphs[t]; ok {
		return o, nil
	}
	return nil, fmt.Errorf("%w: watcher target %q", project.ErrNotFound, t.Base().Name)
}

func (w *writer) watcher(wt *project.Watcher, stage *objtable.UserObject) (objtable.Value, error) {
	target, err := w.targetMorph(wt.Target)
	if err != nil {
		return nil, err
	}
	if wt.List != nil {
		m := w.list(wt.List, target)
		m.MustSet("bounds", moveBounds(m.Get("bounds"), wt.Position, project.Point{X: 100, Y: 200}))
		return m, nil
	}

	o := source(wt.Source, "WatcherMorph")
	if o == nil {
		o = newObject("WatcherMorph")
		o.MustSet("owner", stage)
		o.MustSet("submorphs", objtable.NewArray())
		title := newObject("StringMorph")
		readout := newObject("UpdatingStringMorph")
		readout.MustSet("floatPrecision", objtable.NewInt(1))
		o.MustSet("titleMorph", title)
		o.MustSet("readout", readout)
	}
	wt.Source = o

	o.MustSet("bounds", moveBounds(o.Get("bounds"), wt.Position, project.Point{X: 80, Y: 20}))
	if title := source(o.Get("titleMorph"), "StringMorph"); title != nil {
		title.MustSet("contents", keepString(title.Get("contents"), wt.Label))
	}
	if readout, ok := o.Get("readout").(*objtable.UserObject); ok {
		readout.MustSet("target", target)
		selector, param := wt.Command, readout.Get("parameter")
		if wt.Variable != nil {
			selector = "getVar:"
			param = keepString(param, wt.Variable.Name)
		}
		readout.MustSet("getSelector", keepSymbol(readout.Get("getSelector"), selector))
		readout.MustSet("parameter", param)
	}

	local := wt.Variable != nil && !wt.Target.IsStage() && wt.Target.Base().Variable(wt.Variable.Name) == wt.Variable
	o.MustSet("isSpriteSpecificVar", keepBool(o.Get("isSpriteSpecificVar"), local))
	o.MustSet("sliderMin", keepNumber(o.Get("sliderMin"), wt.SliderMin))
	o.MustSet("sliderMax", keepNumber(o.Get("sliderMax"), wt.SliderMax))
	o.MustSet("isLarge", keepBool(o.Get("isLarge"), wt.Style == project.WatcherLarge))
	switch {
	case wt.Style == project.WatcherSlider && objtable.IsNil(o.Get("scratchSlider")):
		o.MustSet("scratchSlider", newObject("WatcherSliderMorph"))
	case wt.Style != project.WatcherSlider && !objtable.IsNil(o.Get("scratchSlider")):
		o.MustSet("scratchSlider", objtable.Nil)
	}
	return o, nil
}
