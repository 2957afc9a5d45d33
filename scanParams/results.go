package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	hillipop "github.com/next-exp/hillipop_go/pkg"
)

// ResultsCmd lists the evaluations stored for a scan.
type ResultsCmd struct {
	RunID    string        `arg:"" help:"Run identifier printed by the grid command"`
	Failed   bool          `name:"failed" help:"Include failed evaluations"`
	Database DatabaseFlags `embed:"" prefix:"db-"`
}

func (r *ResultsCmd) Run() error {
	if r.Database.DSN == "" {
		return fmt.Errorf("a database is needed, use --db-dsn")
	}
	db, err := r.Database.open()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := hillipop.LoadEvaluations(db, r.RunID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no evaluation stored for run %s", r.RunID)
	}
	return printEvaluations(os.Stdout, entries, r.Failed)
}

func printEvaluations(out io.Writer, entries []hillipop.EvaluationEntry, failed bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tCHI2\tPVALUE\tPARAMETERS")
	for _, e := range entries {
		if e.Failed != 0 && !failed {
			continue
		}
		values, err := e.Values()
		if err != nil {
			return err
		}
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		params := make([]string, len(names))
		for i, name := range names {
			params[i] = fmt.Sprintf("%s=%g", name, values[name])
		}

		chi2, pvalue := fmt.Sprintf("%.4f", e.Chi2), fmt.Sprintf("%.4g", e.PValue)
		if e.Failed != 0 {
			chi2, pvalue = "failed", "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Idx, chi2, pvalue, strings.Join(params, " "))
	}
	return w.Flush()
}
