// Command jpmorph tokenizes Japanese text and builds the dictionaries it
// uses.
//
//	jpmorph tokenize [-mode A|B|C] [-wakati] [-a] [-furigana] [-json] [text ...]
//	jpmorph split [text ...]
//	jpmorph lookup headword ...
//	jpmorph compare [-ref ipa|uni] [-kmode normal|search|extended] [text ...]
//	jpmorph build -o system.dic -m matrix.def lex.csv ...
//	jpmorph ubuild -o user.dic -s system.dic lex.csv ...
//
// Text comes from the arguments or, line by line, from standard input.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"

	"jpmorph/analyze"
	"jpmorph/config"
	"jpmorph/dicbuild"
	"jpmorph/dictionary"
	"jpmorph/kana"
	"jpmorph/logger"
	"jpmorph/lookup"
	"jpmorph/model"
	"jpmorph/refcheck"
)

var commands = map[string]func(args []string) error{
	"tokenize": runTokenize,
	"split":    runSplit,
	"lookup":   runLookup,
	"compare":  runCompare,
	"build":    runBuild,
	"ubuild":   runUserBuild,
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: jpmorph tokenize|split|lookup|compare|build|ubuild [flags] [args]")
	fmt.Fprintln(os.Stderr, "run jpmorph <command> -h for the flags of a command")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}
	if err := run(os.Args[2:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(2)
		}
		log.Error().Err(err).Str("command", os.Args[1]).Msg("failed")
		os.Exit(1)
	}
}

// analyzerFlags are shared by the commands that load dictionaries.
type analyzerFlags struct {
	config    string
	dict      string
	user      string
	resources string
	logLevel  string
	logFormat string
}

func (f *analyzerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", os.Getenv("JPMORPH_CONFIG"), "configuration file (YAML or JSON)")
	fs.StringVar(&f.dict, "dict", "", "system dictionary, overrides the configuration")
	fs.StringVar(&f.user, "user", "", "comma-separated user dictionaries, override the configuration")
	fs.StringVar(&f.resources, "resources", "", "directory searched first for relative dictionary paths")
	fs.StringVar(&f.logLevel, "log-level", "", "trace, debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "console or json")
}

// setupLogging applies flags over the configuration file's log settings.
func (f *analyzerFlags) setupLogging() error {
	level, format := "warn", "console"
	if f.config != "" {
		conf, err := config.Load(f.config)
		if err != nil {
			return err
		}
		level, format = conf.LogLevel, conf.LogFormat
	}
	if f.logLevel != "" {
		level = f.logLevel
	}
	if f.logFormat != "" {
		format = f.logFormat
	}
	return logger.Setup(os.Stderr, level, format)
}

func (f *analyzerFlags) open(opts ...analyze.Option) (*analyze.Analyzer, error) {
	if err := f.setupLogging(); err != nil {
		return nil, err
	}
	if f.user != "" {
		opts = append(opts, analyze.WithUserDictionaries(strings.Split(f.user, ",")...))
	}
	return analyze.New(f.dict, f.resources, f.config, opts...)
}

// inputs yields the arguments joined as one text, or each line of stdin.
func inputs(args []string, fn func(string) error) error {
	if len(args) > 0 {
		return fn(strings.Join(args, " "))
	}
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

func runTokenize(args []string) error {
	fs := flag.NewFlagSet("tokenize", flag.ContinueOnError)
	var af analyzerFlags
	af.register(fs)
	modeName := fs.String("mode", "C", "split mode: A, B or C")
	wakati := fs.Bool("wakati", false, "print surfaces separated by spaces")
	all := fs.Bool("a", false, "print all fields")
	furigana := fs.Bool("furigana", false, "print each morpheme with bracketed kanji readings")
	kanjidic := fs.String("kanjidic", "", "KANJIDIC2 XML file used for furigana alignment")
	asJSON := fs.Bool("json", false, "analyze each input as a document and print JSON")
	logDir := fs.String("logs", "", "with -json, also write each result to this directory")
	workers := fs.Int("workers", 4, "with -json, number of documents analyzed in parallel")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mode, err := model.ParseMode(*modeName)
	if err != nil {
		return err
	}
	a, err := af.open()
	if err != nil {
		return err
	}
	defer a.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if *asJSON {
		return tokenizeJSON(a, fs.Args(), mode, *workers, *logDir, out)
	}

	var extra kana.ReadingSource
	if *kanjidic != "" {
		f, err := os.Open(*kanjidic)
		if err != nil {
			return err
		}
		k, err := kana.LoadKanjidic(f)
		f.Close()
		if err != nil {
			return err
		}
		log.Info().Str("component", "cli").Int("kanji", len(k)).Msg("loaded kanjidic")
		extra = k.Readings
	}
	return inputs(fs.Args(), func(text string) error {
		if !*furigana {
			s, err := a.TokenizeToString(text, mode, *wakati, *all)
			if err != nil {
				return err
			}
			if *wakati {
				s += "\n"
			}
			_, err = io.WriteString(out, s)
			return err
		}
		ms, err := a.Tokenize(text, mode)
		if err != nil {
			return err
		}
		return a.Do(func(d *dictionary.Dictionary) error {
			lk := lookup.New(d)
			for _, m := range ms {
				fmt.Fprintf(out, "%s\t%s\n", m.Surface, kana.FormatRuby(lk.Furigana(m, extra)))
			}
			_, err := io.WriteString(out, "EOS\n")
			return err
		})
	})
}

func tokenizeJSON(a *analyze.Analyzer, args []string, mode model.Mode, workers int, logDir string, out io.Writer) error {
	if logDir != "" {
		if err := logger.InitLogs(logDir); err != nil {
			return err
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	docs := make(chan analyze.Document)
	feedErr := make(chan error, 1)
	go func() {
		defer close(docs)
		feedErr <- inputs(args, func(text string) error {
			d, err := analyze.NewDocument(text)
			if err == analyze.ErrEmptyDocument {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case docs <- d:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	var firstErr error
	for res := range a.Pipeline(ctx, docs, mode, workers) {
		if res.Err != nil && firstErr == nil {
			firstErr = res.Err
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
		if logDir != "" {
			if err := logger.LogJSON(logDir, res.Document.ID, res); err != nil {
				return err
			}
		}
	}
	if err := <-feedErr; err != nil {
		return err
	}
	return firstErr
}

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	var af analyzerFlags
	af.register(fs)
	quote := fs.Bool("q", false, "quote sentences so whitespace stays visible")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := af.open()
	if err != nil {
		return err
	}
	defer a.Close()
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	return inputs(fs.Args(), func(text string) error {
		ss, err := a.SplitSentences(text)
		if err != nil {
			return err
		}
		for _, s := range ss {
			if *quote {
				fmt.Fprintf(out, "%q\n", s)
			} else {
				fmt.Fprintln(out, strings.TrimRight(s, " \t\r\n　"))
			}
		}
		return nil
	})
}

func runLookup(args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	var af analyzerFlags
	af.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := af.open(analyze.WithCacheSize(0))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	in := make(chan string)
	go func() {
		defer close(in)
		_ = inputs(fs.Args(), func(h string) error {
			for _, w := range strings.Fields(h) {
				select {
				case in <- w:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return a.Do(func(d *dictionary.Dictionary) error {
		results, errs := lookup.New(d).LookupStream(ctx, in)
		for r := range results {
			if err := enc.Encode(r); err != nil {
				stop()
				for range results {
				}
				return err
			}
		}
		return <-errs
	})
}

func runCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	var af analyzerFlags
	af.register(fs)
	modeName := fs.String("mode", "C", "split mode: A, B or C")
	refName := fs.String("ref", "ipa", "reference dictionary: ipa or uni")
	kmodeName := fs.String("kmode", "normal", "reference mode: normal, search or extended")
	verbose := fs.Bool("v", false, "print differing spans")
	if err := fs.Parse(args); err != nil {
		return err
	}
	mode, err := model.ParseMode(*modeName)
	if err != nil {
		return err
	}
	kmode, err := refcheck.ParseMode(*kmodeName)
	if err != nil {
		return err
	}
	ref, err := refcheck.New(*refName)
	if err != nil {
		return err
	}
	a, err := af.open()
	if err != nil {
		return err
	}
	defer a.Close()
	var ours []model.Morpheme
	var theirs []refcheck.Token
	offset := 0
	err = inputs(fs.Args(), func(text string) error {
		ms, err := a.Tokenize(text, mode)
		if err != nil {
			return err
		}
		for _, m := range ms {
			m.Begin += offset
			m.End += offset
			ours = append(ours, m)
		}
		for _, t := range ref.Segment(text, kmode) {
			t.Begin += offset
			t.End += offset
			theirs = append(theirs, t)
		}
		offset += len(text) + 1
		return nil
	})
	if err != nil {
		return err
	}
	agr := refcheck.Compare(ours, theirs)
	fmt.Printf("%s/%s vs mode %s: %s\n", ref.Name(), *kmodeName, mode, agr)
	if *verbose {
		for _, s := range agr.Diff {
			side := "ref "
			if s.Ours {
				side = "ours"
			}
			fmt.Printf("%s\t%d\t%d\t%s\n", side, s.Begin, s.End, s.Surface)
		}
	}
	return nil
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	out := fs.String("o", "system.dic", "output file")
	matrix := fs.String("m", "", "connection matrix (matrix.def)")
	charDef := fs.String("c", "", "character definition (char.def), built-in when empty")
	unkDef := fs.String("u", "", "unknown-word definition (unk.def), built-in when empty")
	desc := fs.String("d", "", "description stored in the header")
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := logger.Setup(os.Stderr, *logLevel, "console"); err != nil {
		return err
	}
	c := dicbuild.NewCompiler()
	c.SetDescription(*desc)
	c.SetMatrixFile(*matrix)
	c.SetCharDefinitionFile(*charDef)
	c.SetUnknownDefinitionFile(*unkDef)
	for _, f := range fs.Args() {
		c.AddLexiconFile(f)
	}
	report, err := c.CompileSystem(*out)
	if err != nil {
		return err
	}
	fmt.Print(report)
	return nil
}

func runUserBuild(args []string) error {
	fs := flag.NewFlagSet("ubuild", flag.ContinueOnError)
	out := fs.String("o", "user.dic", "output file")
	system := fs.String("s", "", "system dictionary the user dictionary extends")
	desc := fs.String("d", "", "description stored in the header")
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := logger.Setup(os.Stderr, *logLevel, "console"); err != nil {
		return err
	}
	if *system == "" {
		return fmt.Errorf("ubuild: -s is required")
	}
	c := dicbuild.NewCompiler()
	c.SetDescription(*desc)
	for _, f := range fs.Args() {
		c.AddLexiconFile(f)
	}
	report, err := c.CompileUser(*system, *out)
	if err != nil {
		return err
	}
	fmt.Print(report)
	return nil
}
