package main

import (
	"os"
	"path/filepath"

	"github.com/dekarrin/parselet"
	"github.com/dekarrin/parselet/internal/repl"
	"github.com/spf13/cobra"
)

func newReplCmd(a *app) *cobra.Command {
	var forceDirect bool
	var mode string

	cmd := &cobra.Command{
		Use:   "repl LANG",
		Short: "Parse input interactively",
		Long: `Start a session that parses each input typed at the prompt with the
language of the given extension and shows what it parsed to. Input that ends
too early is continued on the next line. Type :help in the session for its
commands and :quit to leave.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := parselet.LookupLanguage(args[0])
			if err != nil {
				return err
			}
			m, err := repl.ParseMode(mode)
			if err != nil {
				return err
			}

			opts := repl.Options{
				Width:       a.cfg.WrapWidth,
				Indent:      a.cfg.Indent,
				Mode:        m,
				ForceDirect: forceDirect,
				Parse:       a.parseOptions(),
			}
			if home, err := os.UserHomeDir(); err == nil {
				opts.HistoryFile = filepath.Join(home, ".parselet_history")
			}

			sess, err := repl.New(lang, a.in, a.out, opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			return sess.RunUntilQuit()
		},
	}

	cmd.Flags().BoolVarP(&forceDirect, "direct", "d", false, "read directly from stdin instead of going through GNU readline")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(repl.ModeValue), "what to show for parsed input: value, print, tree, or yaml")

	return cmd
}
