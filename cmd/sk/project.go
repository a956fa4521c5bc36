package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/chazu/scratchkit/blocktext"
	"github.com/chazu/scratchkit/objtable"
	"github.com/chazu/scratchkit/project"
	"github.com/chazu/scratchkit/scratch14"
	"github.com/chazu/scratchkit/snapshot"
)

// handleInfoCommand prints a summary of each project.
func handleInfoCommand(e *env, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	for i, path := range args {
		p, err := e.load(path)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(e.stdout)
		}
		printInfo(e, path, p)
	}
	return nil
}

func printInfo(e *env, path string, p *project.Project) {
	scripts := 0
	for _, t := range p.Targets() {
		scripts += len(t.Base().Scripts)
	}
	fmt.Fprintf(e.stdout, "%s\n", path)
	if p.Info.Author != "" {
		fmt.Fprintf(e.stdout, "  author:    %s\n", p.Info.Author)
	}
	if p.Info.ScratchVersion != "" {
		fmt.Fprintf(e.stdout, "  saved by:  %s\n", p.Info.ScratchVersion)
	}
	fmt.Fprintf(e.stdout, "  sprites:   %d\n", len(p.Sprites))
	for _, s := range p.Sprites {
		fmt.Fprintf(e.stdout, "    %s (%d scripts, %d costumes, %d sounds)\n",
			s.Name, len(s.Scripts), len(s.Costumes), len(s.Sounds))
	}
	fmt.Fprintf(e.stdout, "  scripts:   %d\n", scripts)
	fmt.Fprintf(e.stdout, "  variables: %d\n", len(p.Variables))
	fmt.Fprintf(e.stdout, "  lists:     %d\n", len(p.Lists))
	if n := len(p.Warnings); n > 0 {
		fmt.Fprintf(e.stdout, "  warnings:  %d\n", n)
	}
}

// handleScriptsCommand prints the scripts of every target, or of the named
// one, as block text.
func handleScriptsCommand(e *env, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage
	}
	p, err := e.load(args[0])
	if err != nil {
		return err
	}

	targets := p.Targets()
	if len(args) == 2 {
		t := p.Target(args[1])
		if t == nil {
			return fmt.Errorf("no sprite or stage named %q", args[1])
		}
		targets = []project.Target{t}
	}

	for i, t := range targets {
		em := &blocktext.Emitter{
			Options:       blocktext.Options{Catalog: e.cat, Scope: p.Scope(t)},
			AllowObsolete: e.cfg.Text.AllowObsolete,
			Indent:        e.cfg.Text.Indent,
		}
		text, err := em.EmitScripts(t.Base().Scripts)
		if err != nil {
			return fmt.Errorf("%s: %w", t.Base().Name, err)
		}
		if len(targets) > 1 {
			if i > 0 {
				fmt.Fprintln(e.stdout)
			}
			fmt.Fprintf(e.stdout, "// %s\n", t.Base().Name)
		}
		fmt.Fprint(e.stdout, text)
		if text != "" && !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(e.stdout)
		}
	}
	return nil
}

// handleRoundtripCommand loads a project, saves it again and compares the
// bytes. With -o the re-saved project is also written out.
func handleRoundtripCommand(e *env, args []string) error {
	var out, path string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires a file name", args[i])
			}
			i++
			out = args[i]
		default:
			if path != "" {
				return errUsage
			}
			path = args[i]
		}
	}
	if path == "" {
		return errUsage
	}

	f, err := e.format(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p, err := f.Load(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := f.Save(&buf, p); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}

	if out != "" {
		if err := project.SaveWith(f, out, p); err != nil {
			return err
		}
	}

	if bytes.Equal(data, buf.Bytes()) {
		fmt.Fprintf(e.stdout, "%s: identical (%d bytes)\n", path, len(data))
		return nil
	}
	fmt.Fprintf(e.stdout, "%s: differs: read %d bytes, wrote %d bytes, first difference at byte %d\n",
		path, len(data), buf.Len(), firstDifference(data, buf.Bytes()))
	return exitError(1)
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// handleDumpCommand writes the stage object graph of a legacy file as a
// canonical CBOR snapshot. It refuses to write binary to a terminal unless
// forced. --digest prints the snapshot digest instead.
func handleDumpCommand(e *env, args []string) error {
	var path string
	digest, force, info := false, false, false
	for _, a := range args {
		switch a {
		case "--digest":
			digest = true
		case "-f", "--force":
			force = true
		case "--info":
			info = true
		default:
			if path != "" || strings.HasPrefix(a, "-") {
				return errUsage
			}
			path = a
		}
	}
	if path == "" {
		return errUsage
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c, err := scratch14.ReadContainer(data)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var root objtable.Object = c.Stage
	if info {
		root = c.Info
	}

	if digest {
		d, err := snapshot.Digest(root)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%s  %s\n", d, path)
		return nil
	}

	if f, ok := e.stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) && !force {
		return fmt.Errorf("refusing to write CBOR to a terminal (redirect the output or use --force)")
	}
	out, err := snapshot.Marshal(root)
	if err != nil {
		return err
	}
	log.Debugf("dumped %s: %d bytes", path, len(out))
	_, err = e.stdout.Write(out)
	return err
}
