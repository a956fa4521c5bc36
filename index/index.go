// Package index keeps a SQLite record of loaded projects and the block
// commands their scripts use.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/scratchkit/blocks"
	"github.com/chazu/scratchkit/project"
)

var log = commonlog.GetLogger("scratchkit.index")

// ErrNotIndexed indicates the requested project has no rows.
var ErrNotIndexed = errors.New("project not indexed")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id      INTEGER PRIMARY KEY,
	path    TEXT NOT NULL UNIQUE,
	digest  TEXT NOT NULL,
	author  TEXT NOT NULL,
	sprites INTEGER NOT NULL,
	scripts INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS block_usage (
	project INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	target  TEXT NOT NULL,
	command TEXT NOT NULL,
	count   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS block_usage_command ON block_usage(command);
`

// Index is an open index database. It is safe for concurrent use.
type Index struct {
	db *sql.DB
}

// Project is one indexed project.
type Project struct {
	Path    string
	Digest  string
	Author  string
	Sprites int
	Scripts int
}

// Usage is how often one target of a project uses a command.
type Usage struct {
	Path    string
	Target  string
	Command string
	Count   int
}

// Open opens or creates the index at path.
func Open(path string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// Add records p under path, replacing anything recorded for path before.
func (x *Index) Add(ctx context.Context, path string, p *project.Project, digest string) error {
	usage, scripts := countCommands(p)

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE path = ?", path); err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO projects (path, digest, author, sprites, scripts) VALUES (?, ?, ?, ?, ?)",
		path, digest, p.Info.Author, len(p.Sprites), scripts)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO block_usage (project, target, command, count) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	defer stmt.Close()
	for _, u := range usage {
		if _, err := stmt.ExecContext(ctx, id, u.Target, u.Command, u.Count); err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}
	log.Infof("indexed %s: %d scripts, %d distinct uses", path, scripts, len(usage))
	return nil
}

// Remove drops path from the index.
func (x *Index) Remove(ctx context.Context, path string) error {
	res, err := x.db.ExecContext(ctx, "DELETE FROM projects WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotIndexed, path)
	}
	return nil
}

// Lookup returns the record for path.
func (x *Index) Lookup(ctx context.Context, path string) (*Project, error) {
	var p Project
	err := x.db.QueryRowContext(ctx,
		"SELECT path, digest, author, sprites, scripts FROM projects WHERE path = ?", path,
	).Scan(&p.Path, &p.Digest, &p.Author, &p.Sprites, &p.Scripts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotIndexed, path)
		}
		return nil, fmt.Errorf("querying %s: %w", path, err)
	}
	return &p, nil
}

// Projects lists every indexed project by path.
func (x *Index) Projects(ctx context.Context) ([]Project, error) {
	rows, err := x.db.QueryContext(ctx, "SELECT path, digest, author, sprites, scripts FROM projects ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Path, &p.Digest, &p.Author, &p.Sprites, &p.Scripts); err != nil {
			return nil, fmt.Errorf("listing projects: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindCommand lists the targets using command, by project path and target
// name.
func (x *Index) FindCommand(ctx context.Context, command string) ([]Usage, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT p.path, u.target, u.command, u.count
		FROM block_usage u JOIN projects p ON p.id = u.project
		WHERE u.command = ?
		ORDER BY p.path, u.target`, command)
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", command, err)
	}
	defer rows.Close()

	var out []Usage
	for rows.Next() {
		var u Usage
		if err := rows.Scan(&u.Path, &u.Target, &u.Command, &u.Count); err != nil {
			return nil, fmt.Errorf("finding %s: %w", command, err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// countCommands tallies block commands per target, nested blocks included,
// and counts scripts with at least one block.
func countCommands(p *project.Project) ([]Usage, int) {
	var (
		out     []Usage
		scripts int
	)
	for _, t := range p.Targets() {
		s := t.Base()
		counts := make(map[string]int)
		for _, sc := range s.Scripts {
			if len(sc.Blocks) > 0 {
				scripts++
			}
			sc.Blocks.WalkBlocks(func(b *blocks.Block) { counts[b.Command]++ })
		}
		commands := make([]string, 0, len(counts))
		for c := range counts {
			commands = append(commands, c)
		}
		sort.Strings(commands)
		for _, c := range commands {
			out = append(out, Usage{Target: s.Name, Command: c, Count: counts[c]})
		}
	}
	return out, scripts
}
