// Package config handles scratchkit.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/scratchkit/blocks"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "scratchkit.toml"

// Config represents a scratchkit.toml configuration.
type Config struct {
	Log     Log     `toml:"log"`
	Catalog Catalog `toml:"catalog"`
	Text    Text    `toml:"text"`
	Index   Index   `toml:"index"`

	// Dir is the directory containing the scratchkit.toml file (set at load
	// time). Relative paths in the file are resolved against it.
	Dir string `toml:"-"`
}

// Log configures logging.
type Log struct {
	// Level is one of "error", "warning", "notice", "info", "debug".
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Catalog lists block spec files extending the built-in catalog.
type Catalog struct {
	Specs []string `toml:"specs"`
}

// Text configures block text output.
type Text struct {
	AllowObsolete bool   `toml:"allow-obsolete"`
	Indent        string `toml:"indent"`
}

// Index configures the project index.
type Index struct {
	Database string `toml:"database"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "warning"
	}
	if c.Index.Database == "" {
		c.Index.Database = filepath.Join(".scratchkit", "index.db")
	}
}

// Load parses a scratchkit.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if _, err := Verbosity(c.Log.Level); c.Log.Level != "" && err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a scratchkit.toml file, then
// loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Write stores c as scratchkit.toml in dir.
func Write(dir string, c *Config) error {
	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	enc := toml.NewEncoder(f)
	enc.Indent = ""
	if err := enc.Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// SpecPaths returns absolute paths for the configured spec files.
func (c *Config) SpecPaths() []string {
	var paths []string
	for _, s := range c.Catalog.Specs {
		paths = append(paths, c.resolve(s))
	}
	return paths
}

// LoadCatalog returns the built-in catalog extended with the configured
// spec files.
func (c *Config) LoadCatalog() (*blocks.Catalog, error) {
	return blocks.LoadCatalog(c.SpecPaths()...)
}

// DatabasePath returns the index database path.
func (c *Config) DatabasePath() string { return c.resolve(c.Index.Database) }

// LogFile returns the log file path, or "" for stderr.
func (c *Config) LogFile() string { return c.resolve(c.Log.File) }

var levels = []string{"error", "warning", "notice", "info", "debug"}

// Verbosity maps a level name to a commonlog verbosity, where 0 is
// "notice": "error" is -2, "debug" is 2.
func Verbosity(level string) (int, error) {
	for i, l := range levels {
		if strings.EqualFold(level, l) {
			return i - 2, nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q (want one of %s)", level, strings.Join(levels, ", "))
}
