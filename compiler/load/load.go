// Package load reads entity schema documents from YAML or JSON files.
//
// A file holds one entity per document; YAML files may hold several
// documents separated by `---`. JSON input is read through the same YAML
// decoder, so key order inside `attrs` is preserved for both formats.
package load

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extensions lists the file extensions picked up when loading a directory.
var Extensions = []string{".yaml", ".yml", ".json"}

// Config holds the loader configuration.
type Config struct {
	// Paths are files or directories. Directories are read recursively.
	Paths []string
	// Logger receives debug output; nil means slog.Default().
	Logger *slog.Logger
}

// Load reads every schema under the configured paths. Schemas are returned
// in a stable order: paths in the given order, files within a directory
// sorted lexically, documents in file order.
func (c *Config) Load() ([]*Schema, error) {
	if len(c.Paths) == 0 {
		return nil, errors.New("load: no schema path given")
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var (
		schemas []*Schema
		seen    = make(map[string]string)
	)
	for _, p := range c.Paths {
		files, err := SchemaFiles(p)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			ss, err := LoadFile(f)
			if err != nil {
				return nil, err
			}
			for _, s := range ss {
				if prev, ok := seen[s.Name]; ok {
					return nil, fmt.Errorf("load: entity %q declared twice (%s and %s)", s.Name, prev, s.Pos)
				}
				seen[s.Name] = s.Pos
			}
			logger.Debug("loaded schema file", "file", f, "entities", len(ss))
			schemas = append(schemas, ss...)
		}
	}
	return schemas, nil
}

// SchemaFiles resolves path into the list of schema files it denotes.
func SchemaFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(Extensions, strings.ToLower(filepath.Ext(p))) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load: walk %s: %w", path, err)
	}
	slices.Sort(files)
	return files, nil
}

// LoadFile reads every schema document in a file.
func LoadFile(path string) ([]*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return Parse(bytes.NewReader(b), path)
}

// Parse decodes every schema document read from r. name is used in
// positions and error messages.
func Parse(r io.Reader, name string) ([]*Schema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var out []*Schema
	for i := 0; ; i++ {
		s := &Schema{}
		err := dec.Decode(s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load: %s#%d: %w", name, i, err)
		}
		if s.Name == "" && s.Kind == "" && len(s.Fields) == 0 && len(s.Attrs) == 0 {
			// Empty document, e.g. a trailing `---`.
			continue
		}
		if s.Name == "" {
			return nil, fmt.Errorf("load: %s#%d: schema has no name", name, i)
		}
		if s.Kind == "" {
			s.Kind = KindStruct
		}
		s.Pos = fmt.Sprintf("%s#%d", name, i)
		out = append(out, s)
	}
	return out, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(b []byte, name string) ([]*Schema, error) {
	return Parse(bytes.NewReader(b), name)
}
