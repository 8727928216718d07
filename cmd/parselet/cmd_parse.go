package main

import (
	"fmt"
	"strconv"

	"github.com/dekarrin/parselet"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newParseCmd(a *app) *cobra.Command {
	var showStats bool

	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Check files for syntax errors",
		Long: `Parse each file and report any syntax errors found in it.

A file of "-" reads from stdin, in which case --lang must be given. The exit
status is 1 if any file has syntax errors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed bool
			for _, file := range args {
				opts := a.parseOptions()
				var stats parselet.Stats
				opts.Stats = &stats

				_, text, _, err := a.parseFile(file, opts)
				if err == errSyntax {
					failed = true
				} else if err != nil {
					return err
				} else {
					fmt.Fprintf(a.out, "%s: %s\n", file, color.New(color.FgGreen).Sprint("ok"))
				}

				if showStats {
					fmt.Fprintln(a.out, a.table([][]string{
						{"Counter", "Value"},
						{"Characters", strconv.Itoa(len([]rune(text)))},
						{"Parselets tried", strconv.Itoa(stats.Attempts)},
						{"Errors recorded", strconv.Itoa(stats.ErrorsRecorded)},
						{"Errors overridden", strconv.Itoa(stats.ErrorsOverridden)},
						{"Left-recursion growths", strconv.Itoa(stats.Growths)},
						{"Furthest index", strconv.Itoa(stats.Furthest)},
					}))
				}
			}
			if failed {
				return errSyntax
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showStats, "stats", false, "show counters from each parse")

	return cmd
}
