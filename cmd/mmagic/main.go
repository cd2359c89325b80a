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

	"github.com/japaniel/mmagic/pkg/config"
	"github.com/japaniel/mmagic/pkg/mmagic"
)

const usage = `Usage: mmagic [flags] <command> [arguments]

Commands:
  init                   create the database and download the dictionary
  add <word>             add and populate a note for word
  populate <id>          fill in the empty fields of note id
  add-missing <word>     add notes for everything word depends on
  export [-yes] <words>  print words in dependency order and tag their notes
  harvest -url <url>     list the Chinese words of a web page
  lookup <word>          show dictionary entries for word
  import-dict            download the dictionary if missing and report its size
  version                print the version

Flags:
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("mmagic", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Finish(); err != nil {
		return err
	}
	logger, err := newLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "mmagic %s\n", mmagic.Version())
		return nil
	case "init":
		return cmdInit(ctx, cfg, logger, stdout)
	case "import-dict":
		return cmdImportDict(ctx, cfg, stdout)
	case "harvest":
		return cmdHarvest(ctx, cfg, logger, rest, stdout)
	}

	switch cmd {
	case "add", "populate", "add-missing", "export", "lookup":
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "add":
		return a.cmdAdd(ctx, rest, stdout, stderr)
	case "populate":
		return a.cmdPopulate(ctx, rest, stdout, stderr)
	case "add-missing":
		return a.cmdAddMissing(ctx, rest, stdout, stderr)
	case "export":
		return a.cmdExport(ctx, rest, stdin, stdout, stderr)
	default:
		return a.cmdLookup(rest, stdout)
	}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
}
