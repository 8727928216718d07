package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dekarrin/parselet"
	"github.com/spf13/cobra"
)

func newGrammarCmd(a *app) *cobra.Command {
	var showTypes bool

	cmd := &cobra.Command{
		Use:   "grammar LANG",
		Short: "List the parselets of a language",
		Long: `List every parselet of the language with the given extension, in id
order, along with its kind and options. With --types, list the language's node
types and their properties instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := parselet.LookupLanguage(args[0])
			if err != nil {
				return err
			}
			if err := lang.Init(); err != nil {
				return err
			}

			if showTypes {
				data := [][]string{{"Type", "Properties", "Block"}}
				for _, nt := range lang.NodeTypes() {
					if nt.Anonymous() {
						continue
					}
					block := ""
					if nt.Block {
						block = "yes"
					}
					data = append(data, []string{nt.Name, strings.Join(nt.Props, ", "), block})
				}
				fmt.Fprintln(a.out, a.table(data))
				return nil
			}

			data := [][]string{{"ID", "Kind", "Parselet", "Options"}}
			for _, pl := range lang.Parselets() {
				opts := ""
				if pl.Options() != 0 {
					opts = pl.Options().String()
				}
				data = append(data, []string{strconv.Itoa(pl.ID()), parselet.KindOf(pl), pl.String(), opts})
			}
			fmt.Fprintf(a.out, "%s (.%s), fingerprint %s\n", lang.Name, lang.Extension, lang.Fingerprint())
			fmt.Fprintln(a.out, a.table(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTypes, "types", false, "list node types instead of parselets")

	return cmd
}

func newLanguagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the built-in languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := [][]string{{"Extension", "Name"}}
			for _, lang := range parselet.Languages() {
				data = append(data, []string{"." + lang.Extension, lang.Name})
			}
			fmt.Fprintln(a.out, a.table(data))
			return nil
		},
	}
}
