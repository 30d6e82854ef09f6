package schema

import (
	"fmt"
	"os"

	"ariga.io/atlas/sql/migrate"
)

// Dir writes golang-migrate style files (<version>_<name>.up.sql and
// .down.sql) into a local directory and maintains an atlas.sum integrity
// file over them.
type Dir struct {
	dir *migrate.LocalDir
}

// OpenDir opens (creating it when missing) a migration directory.
func OpenDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("schema: create migration dir: %w", err)
	}
	d, err := migrate.NewLocalDir(path)
	if err != nil {
		return nil, fmt.Errorf("schema: open migration dir: %w", err)
	}
	return &Dir{dir: d}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string { return d.dir.Path() }

// FileNames returns the up and down file names for a table migration.
func FileNames(version uint, table string) (up, down string) {
	base := fmt.Sprintf("%06d_%s", version, table)
	return base + ".up.sql", base + ".down.sql"
}

// WriteTable writes the up and down migration of t under version.
// Existing files with the same name are overwritten.
func (d *Dir) WriteTable(version uint, t *Table) error {
	if err := ValidateTable(t).Err(); err != nil {
		return err
	}
	up, down := FileNames(version, t.Name)
	if err := d.dir.WriteFile(up, []byte(t.CreateSQL())); err != nil {
		return fmt.Errorf("schema: write %s: %w", up, err)
	}
	if err := d.dir.WriteFile(down, []byte(t.DropSQL())); err != nil {
		return fmt.Errorf("schema: write %s: %w", down, err)
	}
	return nil
}

// Seal recomputes and writes the atlas.sum file.
func (d *Dir) Seal() error {
	sum, err := d.dir.Checksum()
	if err != nil {
		return fmt.Errorf("schema: checksum: %w", err)
	}
	if err := migrate.WriteSumFile(d.dir, sum); err != nil {
		return fmt.Errorf("schema: write %s: %w", migrate.HashFileName, err)
	}
	return nil
}

// Verify reports migrate.ErrChecksumMismatch when files were changed after
// the last Seal.
func (d *Dir) Verify() error {
	return migrate.Validate(d.dir)
}
