package reconciler

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// WriteText renders the report as console tables.
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Run %s", r.RunID)
	if r.DryRun {
		fmt.Fprint(w, " (dry run)")
	}
	fmt.Fprintln(w)

	summary := tablewriter.NewTable(w)
	summary.Header("Added", "Updated", "Removed", "Total", "Plugins")
	if err := summary.Append([]string{
		strconv.Itoa(r.Added),
		strconv.Itoa(r.Updated),
		strconv.Itoa(r.Removed),
		strconv.Itoa(r.Total),
		strconv.Itoa(r.TotalPlugins),
	}); err != nil {
		return err
	}
	if err := summary.Render(); err != nil {
		return err
	}

	if r.Truncated {
		fmt.Fprintf(w, "Search truncated: %s\n", r.TruncatedReason)
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(w, "\n%d validation failure(s):\n", len(r.Failures))
		failures := tablewriter.NewTable(w)
		failures.Header("Repository", "Stage", "Errors")
		for _, f := range r.Failures {
			if err := failures.Append([]string{f.Repo, f.Stage, strings.Join(f.Errors, "; ")}); err != nil {
				return err
			}
		}
		if err := failures.Render(); err != nil {
			return err
		}
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintf(w, "\n%d diagnostic(s):\n", len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	}

	return nil
}

// WriteJSON renders the report for machine consumption.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
