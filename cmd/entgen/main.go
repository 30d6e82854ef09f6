// Command entgen generates typed PostgreSQL repositories from entity schema
// files.
//
// Usage:
//
//	entgen generate [flags] [schema paths...]
//	entgen watch [flags] [schema paths...]
//	entgen verify [flags]
//
// Settings are read from entgen.yaml, then ENTGEN_* environment variables,
// then flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

const usage = `usage: entgen <command> [flags] [schema paths...]

commands:
  generate  generate code once
  watch     regenerate when schema files change
  verify    check the migration directory against its atlas.sum

run "entgen <command> -h" for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}

// run executes the command line args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup func(string) (string, bool)) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "generate":
		err = runGenerate(ctx, rest, stdout, stderr, lookup)
	case "watch":
		err = runWatch(ctx, rest, stdout, stderr, lookup)
	case "verify":
		err = runVerify(rest, stderr, lookup)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "entgen: unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	case err != nil:
		msg := err.Error()
		if !strings.HasPrefix(msg, "entgen: ") {
			msg = "entgen: " + msg
		}
		fmt.Fprintln(stderr, msg)
		return 1
	}
	return 0
}

// errUsage reports a command line the flag package rejected. The flag set
// has already printed the problem.
var errUsage = errors.New("entgen: invalid usage")

// parseCommand parses the flags of a command and loads its configuration.
func parseCommand(fs *flag.FlagSet, args []string, lookup func(string) (string, bool)) (*Config, error) {
	configPath := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, errUsage
	}
	return loadConfig(fs, *configPath, lookup)
}

// newLogger returns the logger of the configuration writing to w.
func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Verbose {
		opts.Level = slog.LevelDebug
	}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
