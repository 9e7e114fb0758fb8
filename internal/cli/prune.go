package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakerosado/preflight/internal/cache"
	"github.com/jakerosado/preflight/internal/query"
)

// PruneOptions holds flags for the prune command.
type PruneOptions struct {
	*RootOptions
	ConfigPath string
	CacheDir   string
	Queryset   string
	DryRun     bool
}

// PruneResult is the JSON payload for prune.
type PruneResult struct {
	Stale   []string `json:"stale"`
	Removed int      `json:"removed"`
	DryRun  bool     `json:"dry_run"`
}

// NewPruneCommand creates the prune command.
func NewPruneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PruneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cache records no query references anymore",
		Long: `List the cache records whose hash no query in the current queryset
produces, and remove them. A record becomes stale when its query is edited
or deleted; verification never removes records on its own, so stale ones
accumulate until pruned.

With --dry-run the stale records are listed and nothing is removed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to preflight.yaml")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "cache directory (overrides config)")
	cmd.Flags().StringVar(&opts.Queryset, "queryset", "", "queryset file (overrides config)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "list stale records without removing them")

	return cmd
}

func runPrune(opts *PruneOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, _, err := loadConfig(formatter, opts.ConfigPath, opts.CacheDir, opts.Queryset)
	if err != nil {
		return err
	}
	set, err := loadQueryset(formatter, cfg.Queryset)
	if err != nil {
		return err
	}

	live := make(map[string]bool, len(set.Queries))
	for _, q := range set.Queries {
		live[q.Hash(cfg.Engine)] = true
	}

	store := cache.New(cfg.CacheDir)
	stale, err := store.Stale(live)
	if err != nil {
		return commandError(formatter, ErrCodeCache, err.Error(), nil)
	}

	removed := 0
	if !opts.DryRun {
		for _, hash := range stale {
			if err := store.Remove(hash); err != nil {
				return commandError(formatter, ErrCodeCache, err.Error(), nil)
			}
			removed++
		}
	}

	if formatter.Format == "json" {
		result := PruneResult{Stale: stale, Removed: removed, DryRun: opts.DryRun}
		if result.Stale == nil {
			result.Stale = []string{}
		}
		return formatter.Success(result)
	}

	if len(stale) == 0 {
		fmt.Fprintln(formatter.Writer, "no stale records")
		return nil
	}
	verb := "removed"
	if opts.DryRun {
		verb = "stale"
	}
	for _, hash := range stale {
		fmt.Fprintf(formatter.Writer, "  %s %s\n", verb, query.ShortHash(hash))
	}
	if opts.DryRun {
		fmt.Fprintf(formatter.Writer, "%d stale record(s), nothing removed (dry run)\n", len(stale))
	} else {
		fmt.Fprintf(formatter.Writer, "%d stale record(s) removed\n", removed)
	}
	return nil
}
