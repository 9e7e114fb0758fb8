package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakerosado/preflight/internal/cache"
	"github.com/jakerosado/preflight/internal/introspect"
	"github.com/jakerosado/preflight/internal/verify"
)

// PrepareOptions holds flags for the prepare command.
type PrepareOptions struct {
	*RootOptions
	ConfigPath string
	CacheDir   string
	Queryset   string
	Revalidate bool

	// Describer allows overriding the database connection (for testing).
	// If nil, the command dials DATABASE_URL with the engine the config
	// names.
	Describer introspect.Describer
}

// NewPrepareCommand creates the prepare command.
func NewPrepareCommand(rootOpts *RootOptions) *cobra.Command {
	return newPrepareCommand(&PrepareOptions{RootOptions: rootOpts})
}

func newPrepareCommand(opts *PrepareOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Introspect queries against a live database and cache the answers",
		Long: `Ask the database named by DATABASE_URL to describe every query the cache
cannot already answer, and write one cache record per query. Commit the
cache directory so later check runs verify offline.

With --revalidate every query is introspected even when its record exists,
and a definite nullability flip between the record and the live schema is
reported as a mismatch.

Exit codes:
  0 - every query verified
  1 - at least one query mismatched or failed
  2 - command error (bad config, no DATABASE_URL, connection refused)

Examples:
  DATABASE_URL=postgres://localhost:5432/app preflight prepare
  DATABASE_URL=app.db preflight prepare --revalidate`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepare(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to preflight.yaml")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "cache directory (overrides config)")
	cmd.Flags().StringVar(&opts.Queryset, "queryset", "", "queryset file (overrides config)")
	cmd.Flags().BoolVar(&opts.Revalidate, "revalidate", false, "introspect every query even on a cache hit and report drift")

	return cmd
}

func runPrepare(opts *PrepareOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, env, err := loadConfig(formatter, opts.ConfigPath, opts.CacheDir, opts.Queryset)
	if err != nil {
		return err
	}
	set, err := loadQueryset(formatter, cfg.Queryset)
	if err != nil {
		return err
	}

	db := opts.Describer
	if db == nil {
		if env.DatabaseURL == "" {
			return commandError(formatter, ErrCodeDatabase,
				"DATABASE_URL is not set; prepare needs a database to introspect against", nil)
		}
		db, err = introspect.Open(cmd.Context(), cfg.Engine, env.DatabaseURL, cfg.MaxConnections)
		if err != nil {
			return commandError(formatter, ErrCodeDatabase, err.Error(), nil)
		}
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("closing database", "error", closeErr)
		}
	}()

	if db.Engine() != cfg.Engine {
		return commandError(formatter, ErrCodeConfig,
			fmt.Sprintf("config engine %q does not match database engine %q", cfg.Engine, db.Engine()), nil)
	}

	mode := verify.ModeRefresh
	if opts.Revalidate {
		mode = verify.ModeRevalidate
	}
	v, err := verify.New(cache.New(cfg.CacheDir), db, verify.Options{
		Engine:         cfg.Engine,
		Mode:           mode,
		Workers:        cfg.MaxConnections,
		RetryAttempts:  cfg.Retry.Attempts,
		RetryBaseDelay: time.Duration(cfg.Retry.BaseDelay),
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
