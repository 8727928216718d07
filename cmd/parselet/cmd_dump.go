package main

import (
	"fmt"

	"github.com/dekarrin/parselet"
	"github.com/dekarrin/parselet/internal/valueyaml"
	"github.com/spf13/cobra"
)

func newDumpCmd(a *app) *cobra.Command {
	var asYAML bool
	var asTree bool

	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Show what a file parses to",
		Long: `Parse a file and show its semantic value. With --tree, show the whole
parse tree instead, including the spacing between tokens. With --yaml, show
the semantic value as a YAML document.

With --partial, a file with syntax errors still has the part of it that parsed
shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asYAML && asTree {
				return fmt.Errorf("--yaml and --tree cannot be used together")
			}

			_, _, pn, err := a.parseFile(args[0], a.parseOptions())
			if pn == nil {
				return err
			}
			// a partial tree is still shown before the error is returned.

			switch {
			case asTree:
				fmt.Fprintln(a.out, parselet.Dump(pn))
			case asYAML:
				data, yErr := valueyaml.Marshal(pn.Semantic(), 2)
				if yErr != nil {
					return yErr
				}
				fmt.Fprint(a.out, string(data))
			default:
				fmt.Fprintln(a.out, parselet.ValueString(pn.Semantic()))
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "show the semantic value as YAML")
	cmd.Flags().BoolVar(&asTree, "tree", false, "show the parse tree")

	return cmd
}
