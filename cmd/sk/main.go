// sk - command-line front end for legacy block-based project files
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/scratchkit/blocks"
	"github.com/chazu/scratchkit/config"
	"github.com/chazu/scratchkit/project"
	"github.com/chazu/scratchkit/scratch14"
	"github.com/chazu/scratchkit/server"
)

var log = commonlog.GetLogger("scratchkit.cmd")

// errUsage makes run print the usage text and exit with status 2.
var errUsage = errors.New("usage")

// env is what every subcommand gets: configuration, catalog and output.
type env struct {
	cfg     *config.Config
	cat     *blocks.Catalog
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "Verbose output (debug logging)")
	configDir := fs.String("config", "", "Directory holding scratchkit.toml (default: search upwards from .)")

	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	if err := configureLogging(cfg, *verbose); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	cat, err := cfg.LoadCatalog()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading block specs: %v\n", err)
		return 1
	}
	e := &env{cfg: cfg, cat: cat, stdout: stdout, stderr: stderr, verbose: *verbose}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr, fs)
		return 2
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "info":
		err = handleInfoCommand(e, cmdArgs)
	case "scripts":
		err = handleScriptsCommand(e, cmdArgs)
	case "roundtrip":
		err = handleRoundtripCommand(e, cmdArgs)
	case "dump":
		err = handleDumpCommand(e, cmdArgs)
	case "parse":
		err = handleParseCommand(e, cmdArgs)
	case "index":
		err = handleIndexCommand(e, cmdArgs)
	case "init":
		err = handleInitCommand(e, cmdArgs)
	case "lsp":
		log.Info("starting language server on stdio")
		err = server.NewLSP(e.cat).Run()
	case "help":
		usage(stdout, fs)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", cmd)
		usage(stderr, fs)
		return 2
	}

	var ex exitError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		usage(stderr, fs)
		return 2
	case errors.As(err, &ex):
		return int(ex)
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

// exitError ends a command with a status and no further message.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: sk [options] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Reads, checks and converts legacy project files (.sb) and block text.\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, "\nCommands:\n")
	fmt.Fprintf(w, "  info <file>...              Summarize projects\n")
	fmt.Fprintf(w, "  scripts <file> [target]     Print scripts as block text\n")
	fmt.Fprintf(w, "  roundtrip [-o out] <file>   Load and re-save; report whether bytes match\n")
	fmt.Fprintf(w, "  dump [--digest] <file>      Write the object graph as canonical CBOR\n")
	fmt.Fprintf(w, "  parse [--check] <file>...   Parse block text and print it canonically\n")
	fmt.Fprintf(w, "  index add <file>...         Record projects in the index\n")
	fmt.Fprintf(w, "  index find <command>        List projects using a block command\n")
	fmt.Fprintf(w, "  index list                  List indexed projects\n")
	fmt.Fprintf(w, "  init                        Write a default scratchkit.toml here\n")
	fmt.Fprintf(w, "  lsp                         Start the block text language server on stdio\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  sk scripts game.sb Sprite1\n")
	fmt.Fprintf(w, "  sk -v roundtrip -o copy.sb game.sb\n")
	fmt.Fprintf(w, "  sk dump game.sb > game.cbor\n")
}

func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil || cfg != nil {
		return cfg, err
	}
	return config.Default(), nil
}

func configureLogging(cfg *config.Config, verbose bool) error {
	level, err := config.Verbosity(cfg.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		level, _ = config.Verbosity("debug")
	}
	var path *string
	if f := cfg.LogFile(); f != "" {
		path = &f
	}
	commonlog.Configure(level, path)
	return nil
}

// format picks the plugin for path. Legacy files use the configured
// catalog.
func (e *env) format(path string) (project.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == (&scratch14.Format{}).Extension() {
		return &scratch14.Format{Catalog: e.cat}, nil
	}
	f, ok := project.FormatByExtension(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", project.ErrUnknownFormat, path)
	}
	return f, nil
}

func (e *env) load(path string) (*project.Project, error) {
	f, err := e.format(path)
	if err != nil {
		return nil, err
	}
	p, err := project.LoadWith(f, path)
	if err != nil {
		return nil, err
	}
	if e.verbose {
		for _, w := range p.Warnings {
			fmt.Fprintf(e.stderr, "%s: warning: %s\n", path, w)
		}
	}
	return p, nil
}
