package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/syssam/entgen/compiler/gen"
)

// defaultConfigFile is read from the working directory when --config is
// not given. A missing default file is not an error.
const defaultConfigFile = "entgen.yaml"

// envPrefix prefixes the environment variables overriding the project file.
const envPrefix = "ENTGEN_"

// Config is the project configuration of the entgen command. Settings are
// layered: defaults, then the project file, then ENTGEN_* environment
// variables, then flags.
type Config struct {
	// Schema lists the schema files and directories.
	Schema       []string    `yaml:"schema"`
	Target       string      `yaml:"target"`
	Package      string      `yaml:"package"`
	Header       string      `yaml:"header"`
	Features     []string    `yaml:"features"`
	Workers      int         `yaml:"workers"`
	MigrationDir string      `yaml:"migration_dir"`
	Cache        string      `yaml:"cache"`
	LogFormat    string      `yaml:"log_format"`
	Verbose      bool        `yaml:"verbose"`
	Watch        WatchConfig `yaml:"watch"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Debounce is the quiet period after the last file event before a run.
	Debounce time.Duration `yaml:"debounce"`
	// MetricsAddr, when set, serves /metrics and /healthz.
	MetricsAddr string `yaml:"metrics_addr"`
}

func defaultConfig() *Config {
	return &Config{
		Schema:    []string{"schema"},
		Target:    "entity",
		LogFormat: "text",
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// settings are the names accepted by set, in flag form.
var settings = []string{
	"schema", "target", "package", "header", "features", "workers",
	"migration-dir", "cache", "log-format", "verbose", "debounce", "metrics-addr",
}

// set assigns one setting by its flag name. Unknown names are ignored.
func (c *Config) set(name, value string) error {
	var err error
	switch name {
	case "schema":
		c.Schema = splitList(value)
	case "target":
		c.Target = strings.TrimSpace(value)
	case "package":
		c.Package = strings.TrimSpace(value)
	case "header":
		c.Header = value
	case "features":
		c.Features = splitList(value)
	case "workers":
		c.Workers, err = cast.ToIntE(strings.TrimSpace(value))
	case "migration-dir":
		c.MigrationDir = strings.TrimSpace(value)
	case "cache":
		c.Cache = strings.TrimSpace(value)
	case "log-format":
		c.LogFormat = strings.ToLower(strings.TrimSpace(value))
	case "verbose":
		c.Verbose, err = cast.ToBoolE(strings.TrimSpace(value))
	case "debounce":
		c.Watch.Debounce, err = cast.ToDurationE(strings.TrimSpace(value))
	case "metrics-addr":
		c.Watch.MetricsAddr = strings.TrimSpace(value)
	}
	if err != nil {
		return gen.NewConfigError(name, value, err.Error())
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadFile merges the project file at path into c. A missing file is an
// error only when required is set.
func (c *Config) loadFile(path string, required bool) error {
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !required:
		return nil
	case err != nil:
		return fmt.Errorf("entgen: read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("entgen: parse config %s: %w", path, err)
	}
	return nil
}

// loadEnv applies the ENTGEN_* variables found by lookup.
func (c *Config) loadEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for _, name := range settings {
		key := envPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			errs = append(errs, c.set(name, v))
		}
	}
	return errors.Join(errs...)
}

// loadFlags applies the flags explicitly set on fs.
func (c *Config) loadFlags(fs *flag.FlagSet) error {
	var errs []error
	fs.Visit(func(f *flag.Flag) {
		errs = append(errs, c.set(f.Name, f.Value.String()))
	})
	return errors.Join(errs...)
}

// validate checks the merged configuration.
func (c *Config) validate() error {
	var errs []error
	if len(c.Schema) == 0 {
		errs = append(errs, gen.NewConfigError("schema", nil, "no schema path given"))
	}
	if c.Target == "" {
		errs = append(errs, gen.NewConfigError("target", nil, "missing target directory"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, gen.NewConfigError("log-format", c.LogFormat, "expected text or json"))
	}
	if c.Workers < 0 {
		errs = append(errs, gen.NewConfigError("workers", c.Workers, "must not be negative"))
	}
	return errors.Join(errs...)
}

// options returns the generator options of the configuration.
func (c *Config) options() []gen.Option {
	opts := []gen.Option{
		gen.WithTarget(c.Target),
		gen.WithWorkers(c.Workers),
		gen.WithFeatureNames(c.Features...),
	}
	if c.Package != "" {
		opts = append(opts, gen.WithPackage(c.Package))
	}
	if c.Header != "" {
		opts = append(opts, gen.WithHeader(c.Header))
	}
	if c.MigrationDir != "" {
		opts = append(opts, gen.WithMigrationDir(c.MigrationDir))
	}
	return opts
}

// commonFlags registers the flags shared by every command on fs. Their
// defaults are zero values: only flags set on the command line override
// the lower layers.
func commonFlags(fs *flag.FlagSet) *string {
	config := fs.String("config", "", "project file (default "+defaultConfigFile+")")
	fs.String("schema", "", "comma-separated schema files or directories")
	fs.String("target", "", "output directory")
	fs.String("package", "", "import path of the output package")
	fs.String("header", "", "header comment of generated files")
	fs.String("features", "", "comma-separated features enabled for every entity")
	fs.Int("workers", 0, "parallel file writers (0 means GOMAXPROCS)")
	fs.String("migration-dir", "", "directory receiving versioned SQL migrations")
	fs.String("cache", "", "fingerprint cache file; unchanged entities are skipped")
	fs.String("log-format", "", "log format: text or json")
	fs.Bool("verbose", false, "log at debug level")
	return config
}

// loadConfig builds the configuration of a command whose flags were parsed
// on fs. Positional arguments replace the schema paths.
func loadConfig(fs *flag.FlagSet, configPath string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := defaultConfig()
	path, required := configPath, true
	if path == "" {
		path, required = defaultConfigFile, false
	}
	if err := cfg.loadFile(path, required); err != nil {
		return nil, err
	}
	if err := cfg.loadEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.loadFlags(fs); err != nil {
		return nil, err
	}
	if args := fs.Args(); len(args) > 0 {
		cfg.Schema = args
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
