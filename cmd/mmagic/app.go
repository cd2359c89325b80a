package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/japaniel/mmagic/pkg/batch"
	"github.com/japaniel/mmagic/pkg/config"
	"github.com/japaniel/mmagic/pkg/db"
	"github.com/japaniel/mmagic/pkg/decomp"
	"github.com/japaniel/mmagic/pkg/depgraph"
	"github.com/japaniel/mmagic/pkg/dictionary"
	"github.com/japaniel/mmagic/pkg/enrich"
	"github.com/japaniel/mmagic/pkg/errs"
	"github.com/japaniel/mmagic/pkg/fields"
	"github.com/japaniel/mmagic/pkg/harvest"
	"github.com/japaniel/mmagic/pkg/mmagic"
	"github.com/japaniel/mmagic/pkg/vocab"
)

// app wires the store, dictionary and decomposition source together.
type app struct {
	store *db.Store
	dict  *dictionary.Dictionary
	orch  *batch.Orchestrator
}

func loadDictionary(ctx context.Context, cfg *config.Config) (*dictionary.Dictionary, error) {
	if err := dictionary.EnsureDictionary(ctx, cfg.DictPath, cfg.DictURL); err != nil {
		return nil, fmt.Errorf("dictionary: %w", err)
	}
	start := time.Now()
	entries, err := dictionary.Load(cfg.DictPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("dictionary loaded", "entries", len(entries), "took", time.Since(start))
	return dictionary.New(entries), nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	dict, err := loadDictionary(ctx, cfg)
	if err != nil {
		return nil, err
	}

	table, err := decomp.LoadTable(cfg.DecompPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("decomposition table missing; characters will not be decomposed", "path", cfg.DecompPath)
	} else if err != nil {
		return nil, err
	}

	store, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	store.Logger = logger
	if _, err := store.EnsureModel(ctx, cfg.Model, db.ChineseFields, db.ChineseTemplates); err != nil {
		store.Close()
		return nil, err
	}

	resolver := fields.NewResolver(cfg.Roles)
	src := decomp.NewSource(table, mmagic.NewSegmenter(dict))
	enricher := enrich.New(resolver, dict, src, store)
	enricher.Logger = logger
	builder := depgraph.NewBuilder(store, resolver, src)
	builder.Logger = logger
	orch := batch.NewOrchestrator(store, resolver, enricher, builder, cfg.Model)
	orch.ExportTag = cfg.ExportTag
	orch.ChunkSize = cfg.ChunkSize
	orch.Logger = logger

	return &app{store: store, dict: dict, orch: orch}, nil
}

func (a *app) Close() error { return a.store.Close() }

// report prints collected problems as warnings. Anything else is returned.
func report(err error, stderr io.Writer) error {
	if err == nil {
		return nil
	}
	var problems *errs.Collection
	if !errors.As(err, &problems) {
		return err
	}
	fmt.Fprintln(stderr, "Warning:")
	fmt.Fprintln(stderr, problems.Error())
	return nil
}

func oneArg(cmd string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("usage: mmagic %s <word>", cmd)
	}
	return strings.TrimSpace(args[0]), nil
}

func (a *app) cmdAdd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	word, err := oneArg("add", args)
	if err != nil {
		return err
	}
	rec, err := a.orch.AddWord(ctx, word)
	if rec == nil {
		return err
	}
	fmt.Fprintf(stdout, "Added note %d for %s\n", rec.ID(), word)
	printRecord(stdout, rec)
	return report(err, stderr)
}

func (a *app) cmdPopulate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mmagic populate <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid note id %q", args[0])
	}
	perr := a.orch.Populate(ctx, id)
	var problems *errs.Collection
	if perr != nil && !errors.As(perr, &problems) {
		return perr
	}
	rec, err := a.store.Record(ctx, id)
	if err != nil {
		return err
	}
	printRecord(stdout, rec)
	return report(perr, stderr)
}

func (a *app) cmdAddMissing(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	word, err := oneArg("add-missing", args)
	if err != nil {
		return err
	}
	res, err := a.orch.AddMissingDependencies(ctx, word)
	if res != nil {
		fmt.Fprintf(stdout, "Dependencies of %s: %s\n", word, strings.Join(res.Order, " "))
		fmt.Fprintf(stdout, "Created %d notes\n", len(res.Created))
	}
	return report(err, stderr)
}

// terminalSink prints chunks to stdout and asks on stderr before continuing.
type terminalSink struct {
	out    io.Writer
	prompt io.Writer
	in     *bufio.Reader
	yes    bool
}

func (s *terminalSink) Emit(ctx context.Context, chunk string) error {
	_, err := fmt.Fprintln(s.out, chunk)
	return err
}

func (s *terminalSink) Confirm(ctx context.Context, done, total int) (bool, error) {
	if s.yes {
		return true, nil
	}
	fmt.Fprintf(s.prompt, "Exported %d of %d words. Continue? [y/N] ", done, total)
	line, err := s.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (a *app) cmdExport(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	yes := fs.Bool("yes", false, "Do not ask before each chunk")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in := bufio.NewReader(stdin)
	words := fs.Args()
	if len(words) == 0 {
		return fmt.Errorf("usage: mmagic export [-yes] <words...>")
	}
	sink := &terminalSink{out: stdout, prompt: stderr, in: in, yes: *yes}
	res, err := a.orch.ExportSelection(ctx, words, sink)
	if err != nil {
		return err
	}
	if res.Stopped {
		fmt.Fprintf(stderr, "Stopped after %d words\n", len(res.Exported))
	}
	return nil
}

func (a *app) cmdLookup(args []string, stdout io.Writer) error {
	word, err := oneArg("lookup", args)
	if err != nil {
		return err
	}
	entries := a.dict.Find(word, dictionary.ScriptBoth, true)
	if len(entries) == 0 {
		return errs.NoDictionaryEntry(word)
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "%s %s [%s] %s\n", e.Traditional, e.Simplified, e.Pronunciation(), strings.Join(e.Meanings, "; "))
	}
	return nil
}

func printRecord(w io.Writer, rec vocab.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		fmt.Fprintf(tw, "  %s:\t%s\n", k, v)
	}
	tw.Flush()
}

func cmdInit(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	store, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	id, err := store.EnsureModel(ctx, cfg.Model, db.ChineseFields, db.ChineseTemplates)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Database initialized at %s (note type %q, id %d)\n", cfg.DBPath, cfg.Model, id)
	if err := dictionary.EnsureDictionary(ctx, cfg.DictPath, cfg.DictURL); err != nil {
		logger.Warn("dictionary not available", "path", cfg.DictPath, "err", err)
	}
	return nil
}

func cmdImportDict(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	dict, err := loadDictionary(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Dictionary %s has %d entries\n", cfg.DictPath, dict.Len())
	return nil
}

func cmdHarvest(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("harvest", flag.ContinueOnError)
	urlFlag := fs.String("url", "", "URL to harvest")
	unknownOnly := fs.Bool("new", false, "Only list words without a note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *urlFlag == "" {
		return fmt.Errorf("usage: mmagic harvest -url <url>")
	}

	dict, err := loadDictionary(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("fetching", "url", *urlFlag)
	article, err := harvest.FetchArticle(ctx, nil, *urlFlag)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Title: %s\n", article.Title)

	h := harvest.NewHarvester(mmagic.NewSegmenter(dict), dict)
	h.Records = store
	h.HeadwordFields = cfg.Roles.Names(vocab.RoleMandarin)
	h.Logger = logger
	candidates, err := h.Harvest(ctx, mmagic.SplitSentences(article.Text))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORD\tCOUNT\tIN DICTIONARY\tHAS NOTE")
	for _, c := range candidates {
		if *unknownOnly && c.HasRecord {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%t\t%t\n", c.Word, c.Count, c.Known, c.HasRecord)
	}
	return tw.Flush()
}
