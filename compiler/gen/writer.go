package gen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"

	"github.com/syssam/entgen/dialect/sql/schema"
)

// Render renders f and formats the result with goimports. name is used for
// import resolution and error messages.
func Render(f *jen.File, name string) ([]byte, error) {
	out, _, err := render(f, name)
	return out, err
}

// render is Render that also returns the source before formatting, when
// jennifer produced any. Formatting is left to goimports so the raw source
// survives a syntax error.
func render(f *jen.File, name string) (out, raw []byte, err error) {
	noFormat := f.NoFormat
	f.NoFormat = true
	defer func() { f.NoFormat = noFormat }()

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, nil, fmt.Errorf("render %s: %w", name, err)
	}
	raw = buf.Bytes()
	out, err = imports.Process(name, raw, nil)
	if err != nil {
		return nil, raw, fmt.Errorf("format %s: %w", name, err)
	}
	return out, raw, nil
}

// writeGoFile renders f into dir/name. On a formatting failure the
// unformatted source is kept as name.error.
func writeGoFile(f *jen.File, dir, name string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory for %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	out, raw, err := render(f, path)
	if err != nil {
		if raw == nil {
			return 0, err
		}
		_ = os.WriteFile(path+".error", raw, 0o644)
		return 0, fmt.Errorf("%w (unformatted written to %s.error)", err, path)
	}
	_ = os.Remove(path + ".error")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	return len(out), nil
}

// MigrationTable pairs an entity table with its migration version.
type MigrationTable struct {
	Version uint
	Table   *schema.Table
}

// WriteMigrations writes the versioned up/down files of every table into
// dir and seals the directory with a fresh atlas.sum. The tables are
// validated as a set first, so nothing is written when one is invalid.
func WriteMigrations(dir string, tables []MigrationTable) error {
	ts := make([]*schema.Table, len(tables))
	for i, mt := range tables {
		ts[i] = mt.Table
	}
	if err := schema.ValidateTables(ts).Err(); err != nil {
		return err
	}
	d, err := schema.OpenDir(dir)
	if err != nil {
		return err
	}
	for _, mt := range tables {
		if err := d.WriteTable(mt.Version, mt.Table); err != nil {
			return err
		}
	}
	if err := d.Seal(); err != nil {
		return err
	}
	return d.Verify()
}

// VerifyMigrations checks that the files of the migration directory dir
// still match its atlas.sum.
func VerifyMigrations(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migration directory: %w", err)
	}
	d, err := schema.OpenDir(dir)
	if err != nil {
		return err
	}
	if err := d.Verify(); err != nil {
		return fmt.Errorf("verify %s: %w", dir, err)
	}
	return nil
}
