package main

import (
	"flag"
	"io"

	"github.com/syssam/entgen/compiler/gen"
)

// runVerify checks that the migration directory still matches the
// atlas.sum written by the last generate run.
func runVerify(args []string, stderr io.Writer, lookup func(string) (string, bool)) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg, err := parseCommand(fs, args, lookup)
	if err != nil {
		return err
	}
	if cfg.MigrationDir == "" {
		return gen.NewConfigError("migration-dir", "", "no migration directory to verify")
	}
	if err := gen.VerifyMigrations(cfg.MigrationDir); err != nil {
		return err
	}
	newLogger(cfg, stderr).Info("migrations verified", "dir", cfg.MigrationDir)
	return nil
}
