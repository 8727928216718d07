package main

import (
	"fmt"

	"github.com/dekarrin/parselet"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newFmtCmd(a *app) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Print a file in its canonical layout",
		Long: `Parse a file and print it back out from what it parsed to, which gives
it the canonical spacing and indentation of its language. Comments are not
kept.

Use -w to overwrite the file in place instead of writing to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			if overwrite && file == stdinName {
				return fmt.Errorf("-w requires a file argument")
			}

			lang, text, pn, err := a.parseFile(file, a.parseOptions())
			if err != nil {
				return err
			}

			gen, err := lang.Generate(nil, pn.Semantic())
			if err != nil {
				return fmt.Errorf("format: %w", err)
			}
			output := parselet.FormatIndent(gen, a.cfg.Indent)

			if overwrite {
				if output == text {
					a.log.WithField("file", file).Debug("already formatted")
					return nil
				}
				return afero.WriteFile(a.fs, file, []byte(output), 0644)
			}
			_, err = fmt.Fprint(a.out, output)
			return err
		},
	}

	cmd.Flags().BoolVarP(&overwrite, "write", "w", false, "overwrite the file in place")

	return cmd
}
