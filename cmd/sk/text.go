package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/scratchkit/blocktext"
)

// ---------------------------------------------------------------------------
// sk parse: check block text and print it canonically
// ---------------------------------------------------------------------------

func handleParseCommand(e *env, args []string) error {
	checkMode := false
	var files []string
	for _, arg := range args {
		switch arg {
		case "--check":
			checkMode = true
		case "--help", "-h":
			fmt.Fprintf(e.stderr, "Usage: sk parse [--check] <files...>\n\n")
			fmt.Fprintf(e.stderr, "Parse block text and print it in canonical form.\n\n")
			fmt.Fprintf(e.stderr, "Options:\n")
			fmt.Fprintf(e.stderr, "  --check   Only report files whose text is not canonical.\n")
			fmt.Fprintf(e.stderr, "            Exits with code 1 if any file would change.\n\n")
			fmt.Fprintf(e.stderr, "A file name of - reads standard input.\n")
			return nil
		default:
			files = append(files, arg)
		}
	}
	if len(files) == 0 {
		return errUsage
	}

	failed, changed := false, false
	for _, path := range files {
		src, err := readSource(path)
		if err != nil {
			return err
		}
		out, err := canonical(e, src)
		if err != nil {
			var perr *blocktext.Error
			if !errors.As(err, &perr) {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintln(e.stderr, describeParseError(path, perr))
			failed = true
			continue
		}
		if checkMode {
			if out != src {
				fmt.Fprintf(e.stdout, "would format: %s\n", path)
				changed = true
			}
			continue
		}
		fmt.Fprint(e.stdout, out)
	}

	if failed || changed {
		return exitError(1)
	}
	return nil
}

func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// canonical parses src and emits it again with the configured layout.
func canonical(e *env, src string) (string, error) {
	opts := blocktext.Options{Catalog: e.cat}
	scripts, err := blocktext.Parse(src, opts)
	if err != nil {
		return "", err
	}
	em := &blocktext.Emitter{
		Options:       opts,
		AllowObsolete: e.cfg.Text.AllowObsolete,
		Indent:        e.cfg.Text.Indent,
	}
	return em.EmitScripts(scripts)
}

func describeParseError(path string, err *blocktext.Error) string {
	msg := fmt.Sprintf("%s:%d:%d: %s", path, err.Line, err.Column, err.Msg)
	if len(err.Expected) > 0 {
		msg += " (expected " + strings.Join(err.Expected, ", ") + ")"
	}
	return msg
}
