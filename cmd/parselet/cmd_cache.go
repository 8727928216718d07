package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dekarrin/parselet"
	"github.com/dekarrin/parselet/internal/cache"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached parse results",
		Long: `Store parse results in the configured cache and restore them later.

Entries are kept by file path. An entry is only restored while the file still
has the content it was made from; otherwise it is removed.`,
	}

	cmd.AddCommand(newCacheSaveCmd(a))
	cmd.AddCommand(newCacheLoadCmd(a))
	cmd.AddCommand(newCacheListCmd(a))
	cmd.AddCommand(newCacheRemoveCmd(a))

	return cmd
}

// cacheKey is the path an entry for file is kept under.
func cacheKey(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return filepath.Clean(file)
}

func newCacheSaveCmd(a *app) *cobra.Command {
	var model bool

	cmd := &cobra.Command{
		Use:   "save FILE...",
		Short: "Parse files and cache the results",
		Long: `Parse each file and store the result in the cache. By default the full
parse tree is kept so that the file's exact text can be restored. With
--model, only the semantic value is kept.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.connectCache()
			if err != nil {
				return err
			}
			defer store.Close()

			sv := cache.Saver{Store: store, Compress: a.cfg.Compress, Log: a.log}
			ctx := context.Background()

			var failed bool
			for _, file := range args {
				if file == stdinName {
					return fmt.Errorf("cannot cache stdin")
				}
				lang, text, pn, err := a.parseFile(file, a.parseOptions())
				if err == errSyntax {
					failed = true
					continue
				} else if err != nil {
					return err
				}

				var e cache.Entry
				if model {
					e, err = sv.SaveModel(ctx, cacheKey(file), lang, text, pn.Semantic())
				} else {
					e, err = sv.SaveParse(ctx, cacheKey(file), lang, text, pn)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				fmt.Fprintf(a.out, "%s: cached %s (%d bytes)\n", file, e.Kind, len(e.Data))
			}
			if failed {
				return errSyntax
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&model, "model", false, "cache only the semantic value")

	return cmd
}

func newCacheLoadCmd(a *app) *cobra.Command {
	var model bool

	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Restore a cached parse result",
		Long: `Restore the cached parse result for a file and print it. A cached parse
tree is printed as the text it was parsed from; a cached semantic value (with
--model) is printed the way dump prints it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			text, err := a.readSource(file)
			if err != nil {
				return err
			}

			store, err := a.connectCache()
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := context.Background()

			if model {
				v, err := cache.LoadModel(ctx, store, cacheKey(file), text, a.log)
				if err != nil {
					return cacheLoadError(file, err)
				}
				fmt.Fprintln(a.out, parselet.ValueString(v))
				return nil
			}

			pn, problems, err := cache.LoadParse(ctx, store, cacheKey(file), text, a.log)
			if err != nil {
				return cacheLoadError(file, err)
			}
			for _, p := range problems {
				fmt.Fprintf(a.err, "%s %s: %s\n", color.New(color.FgYellow).Sprint("WARN:"), file, p)
			}
			fmt.Fprint(a.out, parselet.Format(pn))
			return nil
		},
	}

	cmd.Flags().BoolVar(&model, "model", false, "restore a cached semantic value")

	return cmd
}

func cacheLoadError(file string, err error) error {
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return fmt.Errorf("%s: not in cache", file)
	case errors.Is(err, cache.ErrStale):
		return fmt.Errorf("%s: cache entry was out of date and has been removed", file)
	default:
		return fmt.Errorf("%s: %w", file, err)
	}
}

func newCacheListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cache entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.connectCache()
			if err != nil {
				return err
			}
			defer store.Close()

			all, err := store.GetAll(context.Background())
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Fprintf(a.out, "cache %s is empty\n", a.cfg.Cache())
				return nil
			}

			data := [][]string{{"Path", "Lang", "Kind", "Bytes", "Compressed", "Created"}}
			for _, e := range all {
				compressed := ""
				if e.Compressed {
					compressed = "yes"
				}
				data = append(data, []string{
					e.Path,
					e.Language,
					e.Kind.String(),
					strconv.Itoa(len(e.Data)),
					compressed,
					e.Created.Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(a.out, a.table(data))
			return nil
		},
	}
}

func newCacheRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm FILE...",
		Short: "Remove the cache entries of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.connectCache()
			if err != nil {
				return err
			}
			defer store.Close()
			ctx := context.Background()

			for _, file := range args {
				e, err := store.GetByPath(ctx, cacheKey(file))
				if err != nil {
					return cacheLoadError(file, err)
				}
				if _, err := store.Delete(ctx, e.ID); err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				fmt.Fprintf(a.out, "%s: removed\n", file)
			}
			return nil
		},
	}
}
