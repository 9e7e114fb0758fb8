package verify

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jakerosado/preflight/internal/query"
)

// RenderText renders a run as the human report: one line per query site
// in queryset order, diffs and errors indented beneath, cache issues and
// stale counts after, summary last.
func RenderText(res *RunResult) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "preflight %s (%s)\n", res.Mode, res.Engine)

	if len(res.Outcomes) > 0 {
		buf.WriteByte('\n')
	}
	for _, o := range res.Outcomes {
		label := o.Query.Location()
		if label == "" {
			label = "query " + query.ShortHash(o.Hash)
		}
		suffix := ""
		if o.State == StateVerified {
			if o.Via == StateCacheHit {
				suffix = "  (cached)"
			} else {
				suffix = "  (introspected)"
			}
		}
		fmt.Fprintf(&buf, "  %-10s  %s%s\n", o.State, label, suffix)
		for _, d := range o.Diffs {
			fmt.Fprintf(&buf, "      - %s\n", d)
		}
		if o.Err != nil {
			fmt.Fprintf(&buf, "      %s\n", o.Err)
		}
	}

	if len(res.Issues) > 0 {
		buf.WriteString("\ncache issues:\n")
		for _, issue := range res.Issues {
			fmt.Fprintf(&buf, "  - %s\n", issue)
		}
	}

	if n := len(res.Stale); n > 0 {
		word := "records"
		if n == 1 {
			word = "record"
		}
		fmt.Fprintf(&buf, "\n%d stale %s not referenced by any query (run \"preflight prune\")\n", n, word)
	}

	verified, mismatched, failed := res.Counts()
	fmt.Fprintf(&buf, "\n%d queries: %d verified, %d mismatched, %d failed\n",
		len(res.Outcomes), verified, mismatched, failed)
	return buf.Bytes()
}

type jsonReport struct {
	RunID       string        `json:"run_id"`
	Mode        string        `json:"mode"`
	Engine      string        `json:"engine"`
	Queries     []jsonOutcome `json:"queries"`
	Stale       []string      `json:"stale"`
	CacheIssues []string      `json:"cache_issues,omitempty"`
	Summary     jsonSummary   `json:"summary"`
}

type jsonOutcome struct {
	Location string `json:"location,omitempty"`
	Hash     string `json:"hash"`
	State    State  `json:"state"`
	Via      State  `json:"via"`
	Diffs    []Diff `json:"diffs,omitempty"`
	Error    string `json:"error,omitempty"`
}

type jsonSummary struct {
	Queries    int `json:"queries"`
	Verified   int `json:"verified"`
	Mismatched int `json:"mismatched"`
	Failed     int `json:"failed"`
	Stale      int `json:"stale"`
}

// RenderJSON renders a run as a machine-readable document, two-space
// indented with a trailing newline like every other JSON this tool
// writes.
func RenderJSON(res *RunResult) ([]byte, error) {
	verified, mismatched, failed := res.Counts()
	rep := jsonReport{
		RunID:   res.RunID,
		Mode:    res.Mode.String(),
		Engine:  res.Engine,
		Queries: make([]jsonOutcome, 0, len(res.Outcomes)),
		Stale:   res.Stale,
		Summary: jsonSummary{
			Queries:    len(res.Outcomes),
			Verified:   verified,
			Mismatched: mismatched,
			Failed:     failed,
			Stale:      len(res.Stale),
		},
	}
	if rep.Stale == nil {
		rep.Stale = []string{}
	}
	for _, o := range res.Outcomes {
		jo := jsonOutcome{
			Location: o.Query.Location(),
			Hash:     o.Hash,
			State:    o.State,
			Via:      o.Via,
			Diffs:    o.Diffs,
		}
		if o.Err != nil {
			jo.Error = o.Err.Error()
		}
		rep.Queries = append(rep.Queries, jo)
	}
	for _, issue := range res.Issues {
		rep.CacheIssues = append(rep.CacheIssues, issue.String())
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(data, '\n'), nil
}
