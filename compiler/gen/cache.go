package gen

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/entgen/compiler/load"
)

// cacheVersion invalidates every entry when the generated code changes shape.
const cacheVersion = 1

// Cache remembers the fingerprint of every entity generated in a previous
// run, so unchanged entities are not rendered again. It is stored as
// msgpack in a single file.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]CacheEntry
	dirty   bool
}

// CacheEntry is the cached state of one entity.
type CacheEntry struct {
	Fingerprint string   `msgpack:"fp"`
	Files       []string `msgpack:"files"`
}

type cacheFile struct {
	Version int                   `msgpack:"v"`
	Entries map[string]CacheEntry `msgpack:"entries"`
}

// OpenCache loads the cache stored at path. A missing file, or one written
// by another cache version, yields an empty cache.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]CacheEntry)}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gen: read cache: %w", err)
	}
	var cf cacheFile
	if err := msgpack.Unmarshal(b, &cf); err != nil {
		return nil, fmt.Errorf("gen: decode cache %s: %w", path, err)
	}
	if cf.Version == cacheVersion && cf.Entries != nil {
		c.entries = cf.Entries
	}
	return c, nil
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// fingerprint is the input that determines the output of one entity.
type fingerprint struct {
	Version  int
	Header   string
	Package  string
	Features []string
	Schema   *load.Schema
	// Targets records how relations resolved in the graph, since lookups
	// and foreign keys depend on it.
	Targets map[string]string
}

// Fingerprint returns the hex digest of everything the output of t
// depends on.
func Fingerprint(t *Type) (string, error) {
	fp := fingerprint{
		Version:  cacheVersion,
		Header:   t.header(),
		Package:  t.PackageName(),
		Features: t.Features(),
		Schema:   t.schema,
		Targets:  make(map[string]string),
	}
	for _, rel := range t.Relations {
		if rel.Resolved() && rel.Field != nil && rel.Type.HasBackend() {
			fp.Targets["has_many:"+rel.Target] = rel.Field.ColumnName()
		}
	}
	for _, f := range t.RelationFields() {
		s, table, col := f.BelongsTo.RefTable(t)
		fp.Targets["belongs_to:"+f.Name] = s + "." + table + "." + col
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&fp); err != nil {
		return "", fmt.Errorf("gen: fingerprint %s: %w", t.Name, err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// Unchanged reports whether name was generated with the same fingerprint
// and all of its files still exist under dir.
func (c *Cache) Unchanged(name, fp, dir string) bool {
	c.mu.Lock()
	e, ok := c.entries[name]
	c.mu.Unlock()
	if !ok || e.Fingerprint != fp {
		return false
	}
	for _, f := range e.Files {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return false
		}
	}
	return true
}

// Put records the fingerprint and output files of an entity.
func (c *Cache) Put(name, fp string, files []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = CacheEntry{Fingerprint: fp, Files: files}
	c.dirty = true
}

// Entry returns the cached state of an entity.
func (c *Cache) Entry(name string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	return e, ok
}

// Prune drops the entries of entities not in keep.
func (c *Cache) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range c.entries {
		if !keep[name] {
			delete(c.entries, name)
			c.dirty = true
		}
	}
}

// Save writes the cache back to its file if it changed.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	b, err := msgpack.Marshal(&cacheFile{Version: cacheVersion, Entries: c.entries})
	if err != nil {
		return fmt.Errorf("gen: encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("gen: write cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("gen: write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("gen: write cache: %w", err)
	}
	c.dirty = false
	return nil
}
