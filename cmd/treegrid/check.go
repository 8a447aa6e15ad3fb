package main

import (
	"fmt"
	"io"

	"github.com/vanderheijden86/treegrid/internal/datasource"
)

// checkConsistency compares every pair of inputs and reports the pairs that
// disagree. It returns false when any pair differs.
func checkConsistency(w io.Writer, inputs []loaded) (bool, error) {
	sources := make([]datasource.DataSource, len(inputs))
	for i, in := range inputs {
		sources[i] = in.Source
	}
	report, err := datasource.GenerateInconsistencyReport(sources, datasource.DefaultDiffOptions())
	if err != nil {
		return false, err
	}
	if len(report.Diffs) == 0 {
		fmt.Fprintf(w, "%d sources agree\n", len(sources))
		return true, nil
	}
	for _, d := range report.Diffs {
		fmt.Fprint(w, d.Summary())
	}
	kind := "content"
	if report.HasStructuralInconsistencies {
		kind = "structural"
	}
	fmt.Fprintf(w, "%d %s inconsistencies\n", report.TotalInconsistencies, kind)
	return false, nil
}
