package cli

import (
	"github.com/spf13/cobra"

	"github.com/jakerosado/preflight/internal/cache"
	"github.com/jakerosado/preflight/internal/verify"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	ConfigPath string
	CacheDir   string
	Queryset   string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify every query offline against the cache",
		Long: `Verify every query in the queryset against the cache, with no database
connection. A query whose record is missing fails and names the fix:
run "preflight prepare" against a live database to create its record.

Exit codes:
  0 - every query verified
  1 - at least one query mismatched or failed
  2 - command error (bad config, unreadable queryset)

Examples:
  preflight check
  preflight check --queryset build/queryset.json --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to preflight.yaml")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "cache directory (overrides config)")
	cmd.Flags().StringVar(&opts.Queryset, "queryset", "", "queryset file (overrides config)")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, _, err := loadConfig(formatter, opts.ConfigPath, opts.CacheDir, opts.Queryset)
	if err != nil {
		return err
	}
	set, err := loadQueryset(formatter, cfg.Queryset)
	if err != nil {
		return err
	}

	v, err := verify.New(cache.New(cfg.CacheDir), nil, verify.Options{
		Engine:  cfg.Engine,
		Mode:    verify.ModeCheck,
		Workers: cfg.MaxConnections,
	})
	if err != nil {
		return commandError(formatter, ErrCodeConfig, err.Error(), nil)
	}

	res, err := v.Run(cmd.Context(), set)
	if err != nil {
		return WrapExitError(ExitCommandError, "verification run failed", err)
	}
	return renderRun(formatter, res)
}
