package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[log]
level = "debug"
file = "sk.log"

[catalog]
specs = ["extra.toml", "/abs/more.toml"]

[text]
allow-obsolete = true
indent = "  "

[index]
database = "projects.db"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", c.Log.Level)
	}
	if got := c.LogFile(); got != filepath.Join(c.Dir, "sk.log") {
		t.Errorf("log file = %q", got)
	}
	paths := c.SpecPaths()
	if len(paths) != 2 || paths[0] != filepath.Join(c.Dir, "extra.toml") || paths[1] != "/abs/more.toml" {
		t.Errorf("spec paths = %v", paths)
	}
	if !c.Text.AllowObsolete || c.Text.Indent != "  " {
		t.Errorf("text = %+v", c.Text)
	}
	if got := c.DatabasePath(); got != filepath.Join(c.Dir, "projects.db") {
		t.Errorf("database = %q", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Log.Level != "warning" {
		t.Errorf("default level = %q, want warning", c.Log.Level)
	}
	if c.LogFile() != "" {
		t.Errorf("default log file = %q, want stderr", c.LogFile())
	}
	if c.DatabasePath() != filepath.Join(c.Dir, ".scratchkit", "index.db") {
		t.Errorf("default database = %q", c.DatabasePath())
	}
}

func TestLoadConfigBadLevel(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[log]\nlevel = \"loud\"\n")
	if _, err := Load(dir); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, "[index]\ndatabase = \"found.db\"\n")

	c, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if c.Index.Database != "found.db" {
		t.Errorf("database = %q, want found.db", c.Index.Database)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if c != nil {
		t.Error("expected nil config when no scratchkit.toml exists")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := Default()
	c.Catalog.Specs = []string{"mine.toml"}
	c.Text.AllowObsolete = true
	if err := Write(dir, c); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Catalog.Specs) != 1 || loaded.Catalog.Specs[0] != "mine.toml" {
		t.Errorf("specs = %v", loaded.Catalog.Specs)
	}
	if !loaded.Text.AllowObsolete || loaded.Log.Level != "warning" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestVerbosity(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"error", -2},
		{"Warning", -1},
		{"notice", 0},
		{"info", 1},
		{"DEBUG", 2},
	}
	for _, tt := range tests {
		got, err := Verbosity(tt.level)
		if err != nil || got != tt.want {
			t.Errorf("Verbosity(%q) = %d, %v; want %d", tt.level, got, err, tt.want)
		}
	}
	if _, err := Verbosity("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoadCatalogWithoutSpecs(t *testing.T) {
	cat, err := Default().LoadCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if cat.Command("forward:") == nil {
		t.Error("default catalog missing forward:")
	}
}
