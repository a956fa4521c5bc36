package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/scratchkit/config"
	"github.com/chazu/scratchkit/index"
	"github.com/chazu/scratchkit/scratch14"
	"github.com/chazu/scratchkit/snapshot"
)

// handleIndexCommand dispatches "sk index add|find|list|remove".
func handleIndexCommand(e *env, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	ctx := context.Background()

	x, err := index.Open(e.cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer x.Close()

	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		if len(rest) == 0 {
			return errUsage
		}
		for _, path := range rest {
			if err := indexProject(ctx, e, x, path); err != nil {
				return err
			}
		}
		return nil

	case "find":
		if len(rest) != 1 {
			return errUsage
		}
		command := rest[0]
		if len(e.cat.ByCommand(command)) == 0 {
			// Accept block text too: "move steps" finds forward:.
			if types := e.cat.Lookup(command); len(types) > 0 {
				command = types[0].Command
			}
		}
		uses, err := x.FindCommand(ctx, command)
		if err != nil {
			return err
		}
		if len(uses) == 0 {
			fmt.Fprintf(e.stderr, "no indexed project uses %s\n", command)
			return exitError(1)
		}
		for _, u := range uses {
			fmt.Fprintf(e.stdout, "%s\t%s\t%d\n", u.Path, u.Target, u.Count)
		}
		return nil

	case "list":
		projects, err := x.Projects(ctx)
		if err != nil {
			return err
		}
		for _, p := range projects {
			digest := p.Digest
			if len(digest) > 12 {
				digest = digest[:12]
			}
			fmt.Fprintf(e.stdout, "%s\t%d sprites\t%d scripts\t%s\n", p.Path, p.Sprites, p.Scripts, digest)
		}
		return nil

	case "remove":
		if len(rest) == 0 {
			return errUsage
		}
		for _, path := range rest {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			if err := x.Remove(ctx, abs); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown index command %q", sub)
}

// indexProject records path under its absolute name. The digest is taken
// over the stage graph, so it changes only when the project content does.
func indexProject(ctx context.Context, e *env, x *index.Index, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return err
	}
	c, err := scratch14.ReadContainer(data)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	digest, err := snapshot.Digest(c.Stage)
	if err != nil {
		return err
	}
	p := scratch14.Convert(c, e.cat)

	if rec, err := x.Lookup(ctx, abs); err == nil && rec.Digest == digest {
		log.Debugf("%s unchanged", path)
		fmt.Fprintf(e.stdout, "%s: unchanged\n", path)
		return nil
	}
	if err := x.Add(ctx, abs, p, digest); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s: indexed\n", path)
	return nil
}

// handleInitCommand writes a default scratchkit.toml in the current
// directory unless one exists.
func handleInitCommand(e *env, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	} else if len(args) > 1 {
		return errUsage
	}
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}
	if err := config.Write(dir, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "wrote %s\n", filepath.Join(dir, config.FileName))
	return nil
}
