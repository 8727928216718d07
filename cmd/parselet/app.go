package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dekarrin/parselet"
	"github.com/dekarrin/parselet/internal/cache"
	"github.com/dekarrin/parselet/internal/config"
	"github.com/dekarrin/parselet/internal/source"
	"github.com/dekarrin/parselet/internal/version"
	"github.com/dekarrin/rosed"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// errSyntax is returned by commands after they have reported syntax errors
// themselves.
var errSyntax = errors.New("syntax errors found")

// stdinName is the file name that stands for stdin.
const stdinName = "-"

// app holds what every command shares: where it reads and writes, and the
// settings in effect.
type app struct {
	fs  afero.Fs
	in  io.Reader
	out io.Writer
	err io.Writer

	cfg config.Config
	log *logrus.Logger

	flagConfig    string
	flagLang      string
	flagIndent    string
	flagMaxErrors int
	flagPartial   bool
	flagCompress  bool
	flagCache     string
	flagLogLevel  string
	flagWrap      int
	flagNoColor   bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "parselet",
		Short:         "Parse, format, and inspect source files",
		Version:       version.Current,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.err)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flagConfig, "config", "c", "", "read settings from the given TOML file")
	pf.StringVarP(&a.flagLang, "lang", "l", "", "parse files as the language with the given extension")
	pf.StringVar(&a.flagIndent, "indent", "", "text used for one level of indentation when printing")
	pf.IntVar(&a.flagMaxErrors, "max-errors", 0, "how many equally good syntax errors to report")
	pf.BoolVar(&a.flagPartial, "partial", false, "keep the partial parse tree of files that fail to parse")
	pf.BoolVar(&a.flagCompress, "compress", false, "compress cache entries")
	pf.StringVar(&a.flagCache, "cache", "", "cache connection string")
	pf.StringVar(&a.flagLogLevel, "log-level", "", "lowest level of log messages to show")
	pf.IntVar(&a.flagWrap, "wrap", 0, "width to wrap messages and tables to")
	pf.BoolVar(&a.flagNoColor, "no-color", false, "do not color output")

	root.AddCommand(newParseCmd(a))
	root.AddCommand(newFmtCmd(a))
	root.AddCommand(newDumpCmd(a))
	root.AddCommand(newGrammarCmd(a))
	root.AddCommand(newLanguagesCmd(a))
	root.AddCommand(newCacheCmd(a))
	root.AddCommand(newReplCmd(a))

	return root
}

// setup loads the config and applies flag overrides to it.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.fs, a.flagConfig)
	if err != nil {
		return err
	}

	cfg = a.applyFlags(cmd.Flags(), cfg)
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	if a.flagNoColor {
		color.NoColor = true
	}

	a.log = logrus.New()
	a.log.SetOutput(a.err)
	a.log.SetLevel(cfg.Level())
	a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	return nil
}

// applyFlags gives cfg with every setting that was given as a flag replaced
// by the flag's value.
func (a *app) applyFlags(flags *pflag.FlagSet, cfg config.Config) config.Config {
	if flags.Changed("indent") {
		cfg.Indent = a.flagIndent
	}
	if flags.Changed("max-errors") {
		cfg.MaxErrors = a.flagMaxErrors
	}
	if flags.Changed("partial") {
		cfg.PartialValues = a.flagPartial
	}
	if flags.Changed("compress") {
		cfg.Compress = a.flagCompress
	}
	if flags.Changed("cache") {
		cfg.CacheConn = a.flagCache
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flagLogLevel
	}
	if flags.Changed("wrap") {
		cfg.WrapWidth = a.flagWrap
	}
	return cfg
}

func (a *app) parseOptions() parselet.ParseOptions {
	return parselet.ParseOptions{
		PartialValues: a.cfg.PartialValues,
		MaxErrors:     a.cfg.MaxErrors,
		Log:           a.log,
	}
}

// languageFor gives the language that file should be parsed with.
func (a *app) languageFor(file string) (*parselet.Language, error) {
	if a.flagLang != "" {
		return parselet.LookupLanguage(a.flagLang)
	}
	if file == stdinName {
		return nil, fmt.Errorf("--lang is required when reading from stdin")
	}
	ext := filepath.Ext(file)
	if ext == "" {
		return nil, fmt.Errorf("%s: no file extension to pick a language by; use --lang", file)
	}
	return parselet.LookupLanguage(ext)
}

// readSource reads the text of file, or of stdin if file is "-".
func (a *app) readSource(file string) (string, error) {
	var data []byte
	var err error
	if file == stdinName {
		data, err = io.ReadAll(a.in)
	} else {
		data, err = afero.ReadFile(a.fs, file)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(data), nil
}

// parseFile reads and parses file. Syntax errors are reported to the error
// stream and errSyntax is returned.
func (a *app) parseFile(file string, opts parselet.ParseOptions) (*parselet.Language, string, parselet.ParseNode, error) {
	lang, err := a.languageFor(file)
	if err != nil {
		return nil, "", nil, err
	}
	text, err := a.readSource(file)
	if err != nil {
		return nil, "", nil, err
	}

	a.log.WithFields(logrus.Fields{"file": file, "language": lang.Name}).Debug("parsing")
	pn, err := lang.ParseWith(parselet.NewStringInput(text), opts)
	if err != nil {
		var perr *parselet.ParseError
		if errors.As(err, &perr) {
			a.reportSyntaxError(file, text, perr)
			return lang, text, perr.PartialValue, errSyntax
		}
		return nil, "", nil, err
	}
	return lang, text, pn, nil
}

func (a *app) reportSyntaxError(file, text string, perr *parselet.ParseError) {
	name := file
	if name == stdinName {
		name = "<stdin>"
	}
	msg := perr.FullMessage(source.New(name, text))

	// the source line and caret come first and are never wrapped.
	lines := strings.Split(msg, "\n")
	fmt.Fprintln(a.err, color.New(color.FgRed).Sprint(strings.Join(lines[:2], "\n")))
	for _, l := range lines[2:] {
		fmt.Fprintln(a.err, rosed.Edit(l).Wrap(a.cfg.WrapWidth).String())
	}
}

func (a *app) connectCache() (cache.Store, error) {
	return a.cfg.Cache().Connect(a.fs, a.log)
}

func (a *app) table(data [][]string) string {
	return rosed.Edit("").
		InsertTableOpts(0, data, a.cfg.WrapWidth, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}
