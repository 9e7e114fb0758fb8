package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakerosado/preflight/internal/config"
	"github.com/jakerosado/preflight/internal/queryset"
	"github.com/jakerosado/preflight/internal/verify"
)

// newFormatter builds the output formatter every command writes through.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadConfig resolves and loads the project file, then applies
// command-line overrides for the cache directory and queryset path.
func loadConfig(formatter *OutputFormatter, configFlag, cacheDir, querysetPath string) (*config.Config, config.Env, error) {
	e, err := config.ParseEnv()
	if err != nil {
		return nil, config.Env{}, commandError(formatter, ErrCodeConfig, err.Error(), nil)
	}
	path := config.ResolvePath(configFlag, e)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, config.Env{}, commandError(formatter, ErrCodeConfig, err.Error(), nil)
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if querysetPath != "" {
		cfg.Queryset = querysetPath
	}
	formatter.VerboseLog("config %s: engine=%s cache_dir=%s queryset=%s",
		path, cfg.Engine, cfg.CacheDir, cfg.Queryset)
	return cfg, e, nil
}

// loadQueryset reads the queryset file, reporting every load error rather
// than stopping at the first.
func loadQueryset(formatter *OutputFormatter, path string) (*queryset.Set, error) {
	set, errs := queryset.Load(path)
	if len(errs) > 0 {
		return nil, outputQuerysetErrors(formatter, path, errs)
	}
	formatter.VerboseLog("queryset %s: %d queries", path, len(set.Queries))
	return set, nil
}

// outputQuerysetErrors renders all queryset load errors in the configured
// format and returns the command-error exit.
func outputQuerysetErrors(f *OutputFormatter, path string, errs []error) error {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	message := fmt.Sprintf("queryset %s: %d error(s)", path, len(errs))

	if f.Format == "json" {
		_ = f.Error(ErrCodeQueryset, message, messages)
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", ErrCodeQueryset, message)
		for _, m := range messages {
			fmt.Fprintf(f.Writer, "  - %s\n", m)
		}
	}
	return NewExitError(ExitCommandError, message)
}

// renderRun prints the run report and maps the verdict to an exit code:
// success when everything verified, ExitFailure otherwise.
func renderRun(f *OutputFormatter, res *verify.RunResult) error {
	var data []byte
	if f.Format == "json" {
		var err error
		data, err = verify.RenderJSON(res)
		if err != nil {
			return WrapExitError(ExitCommandError, "encoding report", err)
		}
	} else {
		data = verify.RenderText(res)
	}
	if _, err := f.Writer.Write(data); err != nil {
		return WrapExitError(ExitCommandError, "writing report", err)
	}

	_, mismatched, failed := res.Counts()
	if n := mismatched + failed; n > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d queries failed verification", n, len(res.Outcomes)))
	}
	return nil
}
