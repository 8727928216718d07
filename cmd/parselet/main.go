/*
Parselet parses, formats, and inspects source files written in any of the
languages built into it, and keeps parse results in a cache so unchanged files
can be restored without parsing them again.

Usage:

	parselet [flags] COMMAND [args]

The language of a file is picked by its extension. Use --lang to give it
explicitly, which is required when reading from stdin with "-" as the file.

The commands are:

	parse FILE...
		Parse each file and report syntax errors. With --stats, give counters
		from the parse as well.

	fmt FILE
		Print the file back out in its canonical layout. With -w, overwrite the
		file instead of writing to stdout.

	dump FILE
		Show what a file parses to: its semantic value by default, the parse
		tree with --tree, or YAML with --yaml.

	grammar LANG
		List the parselets and node types of a language.

	languages
		List the languages that are built in.

	cache save FILE...
	cache load FILE
	cache ls
	cache rm FILE
		Store, restore, list, and remove cached parse results.

	repl LANG
		Start an interactive session that parses each input.

The flags are:

	-v, --version
		Give the current version of parselet and then exit.

	-c, --config FILE
		Read settings from the given TOML file. Defaults to "parselet.toml" in
		the current directory, if it exists.

	--cache DRIVER[:PARAMS]
		Use the given cache connection string. DRIVER must be one of inmem,
		sqlite, or fs. sqlite and fs need the path to a directory after the
		colon, such as sqlite:path/to/cache_dir.

	--indent TEXT, --max-errors N, --partial, --compress, --log-level LEVEL,
	--wrap N
		Override the matching setting of the config file.

	--no-color
		Do not color output.

Every setting can also be given with an environment variable named PARSELET_
followed by the setting's name in upper case, such as PARSELET_CACHE. Flags
take precedence over environment variables, which take precedence over the
config file.
*/
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	_ "github.com/dekarrin/parselet/lang/minic"
	_ "github.com/dekarrin/parselet/lang/sig"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitSyntaxError indicates that a file could not be parsed.
	ExitSyntaxError

	// ExitError indicates an unsuccessful program execution for any other
	// reason.
	ExitError
)

func main() {
	a := &app{
		fs:  afero.NewOsFs(),
		in:  os.Stdin,
		out: os.Stdout,
		err: os.Stderr,
	}

	cmd := newRootCmd(a)
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errSyntax) {
			os.Exit(ExitSyntaxError)
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("ERROR:"), err.Error())
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}
