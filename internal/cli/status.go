package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakerosado/preflight/internal/cache"
	"github.com/jakerosado/preflight/internal/query"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	ConfigPath string
	CacheDir   string
}

// StatusEntry is one cache record in the status listing.
type StatusEntry struct {
	Hash    string `json:"hash"`
	Engine  string `json:"db"`
	Params  int    `json:"params"`
	Columns int    `json:"columns"`
	Query   string `json:"query"`
}

// StatusResult is the JSON payload for status.
type StatusResult struct {
	CacheDir string        `json:"cache_dir"`
	Records  []StatusEntry `json:"records"`
	Issues   []string      `json:"issues,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List the cache records",
		Long: `List every record in the cache: hash prefix, engine, parameter and
column counts, and the start of the query text. Files that fail to load
are listed as issues. Works offline; the queryset is not consulted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to preflight.yaml")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "cache directory (overrides config)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, _, err := loadConfig(formatter, opts.ConfigPath, opts.CacheDir, "")
	if err != nil {
		return err
	}

	store := cache.New(cfg.CacheDir)
	records, issues, err := store.LoadAll(cmd.Context())
	if err != nil {
		return commandError(formatter, ErrCodeCache, err.Error(), nil)
	}

	hashes := make([]string, 0, len(records))
	for hash := range records {
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	if formatter.Format == "json" {
		result := StatusResult{CacheDir: cfg.CacheDir, Records: make([]StatusEntry, 0, len(hashes))}
		for _, hash := range hashes {
			rec := records[hash]
			result.Records = append(result.Records, StatusEntry{
				Hash:    hash,
				Engine:  rec.Engine,
				Params:  len(rec.Parameters),
				Columns: len(rec.Columns),
				Query:   queryPreview(rec.QueryText),
			})
		}
		for _, issue := range issues {
			result.Issues = append(result.Issues, issue.String())
		}
		return formatter.Success(result)
	}

	if len(hashes) == 0 {
		fmt.Fprintf(formatter.Writer, "cache %s: no records\n", cfg.CacheDir)
	} else {
		fmt.Fprintf(formatter.Writer, "cache %s: %d record(s)\n\n", cfg.CacheDir, len(hashes))
		for _, hash := range hashes {
			rec := records[hash]
			fmt.Fprintf(formatter.Writer, "  %s  %-8s  %d params  %d columns  %s\n",
				query.ShortHash(hash), rec.Engine, len(rec.Parameters), len(rec.Columns),
				queryPreview(rec.QueryText))
		}
	}

	if len(issues) > 0 {
		fmt.Fprintln(formatter.Writer, "\nissues:")
		for _, issue := range issues {
			fmt.Fprintf(formatter.Writer, "  - %s\n", issue)
		}
	}
	return nil
}

// queryPreview flattens a query to one line and truncates it for listings.
func queryPreview(sql string) string {
	flat := strings.Join(strings.Fields(sql), " ")
	const max = 60
	runes := []rune(flat)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return flat
}
