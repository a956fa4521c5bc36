package project

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Formats
// ---------------------------------------------------------------------------

var ErrUnknownFormat = errors.New("unknown project format")

// Format reads and writes projects in one container format.
type Format interface {
	// Name is the registry key, e.g. "scratch14".
	Name() string
	DisplayName() string
	// Extension includes the dot, e.g. ".sb".
	Extension() string
	// HasStageSpecificVariables reports whether the format keeps stage
	// variables apart from project variables. When false the format maps
	// one onto the other.
	HasStageSpecificVariables() bool
	Load(r io.Reader) (*Project, error)
	Save(w io.Writer, p *Project) error
}

var (
	formatsMu sync.RWMutex
	formats   = make(map[string]Format)
)

// RegisterFormat makes f available by name and extension. It panics if the
// name is already taken.
func RegisterFormat(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	if f == nil {
		panic("project: RegisterFormat with nil format")
	}
	if _, dup := formats[f.Name()]; dup {
		panic("project: RegisterFormat called twice for " + f.Name())
	}
	formats[f.Name()] = f
}

// FormatByName returns the registered format with the given name.
func FormatByName(name string) (Format, bool) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	f, ok := formats[name]
	return f, ok
}

// FormatByExtension returns the format for a file extension, with or
// without the leading dot, ignoring case.
func FormatByExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, f := range Formats() {
		if strings.ToLower(f.Extension()) == ext {
			return f, true
		}
	}
	return nil, false
}

// Formats returns the registered formats sorted by name.
func Formats() []Format {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	out := make([]Format, 0, len(formats))
	for _, f := range formats {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func formatForPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	f, ok := FormatByExtension(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// Load reads the project at path with the format its extension selects.
func Load(path string) (*Project, error) {
	f, err := formatForPath(path)
	if err != nil {
		return nil, err
	}
	return LoadWith(f, path)
}

// LoadWith reads the project at path with f.
func LoadWith(f Format, path string) (*Project, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	p, err := f.Load(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return p, nil
}

// Save writes p to path with the format its extension selects.
func Save(path string, p *Project) error {
	f, err := formatForPath(path)
	if err != nil {
		return err
	}
	return SaveWith(f, path, p)
}

// SaveWith writes p to a temporary file next to path and renames it into
// place, so path holds either the old or the new project.
func SaveWith(f Format, path string, p *Project) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := f.Save(tmp, p); err != nil {
		cleanup()
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// Image formats a format plugin may report.
const (
	ImageForm = "form" // legacy bitmap: Depth bits per pixel, Data is the raw bits
	ImageJPEG = "jpeg"
	ImagePNG  = "png"
)

// Image is an opaque image payload with a format hint.
type Image struct {
	Format string
	Width  int
	Height int
	Depth  int
	Data   []byte
	Source any
}

// ImagePlugin converts Image payloads to and from pixels. Implementations
// are supplied by the application; the model never decodes images itself.
type ImagePlugin interface {
	Decode(img *Image) (image.Image, error)
	Encode(m image.Image, format string) (*Image, error)
}
