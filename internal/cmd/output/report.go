package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter/tw"

	syncpkg "github.com/suprameds/shopsync/pkg/sync"
)

// WriteReport renders a run report in the requested format. Table output
// prints a summary table followed by per-record failure and skip tables;
// JSON and YAML emit the report as-is.
func WriteReport(w io.Writer, format Format, report *syncpkg.RunReport) error {
	if format != FormatTable {
		return NewFormatter(format).Format(w, report)
	}

	formatter := &TableFormatter{}
	if err := formatter.Format(w, reportSummaryData(report)); err != nil {
		return err
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failures:")
		if err := formatter.Format(w, outcomesData(report.Failures)); err != nil {
			return err
		}
	}

	if len(report.Skips) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skipped records:")
		if err := formatter.Format(w, outcomesData(report.Skips)); err != nil {
			return err
		}
	}

	return nil
}

func reportSummaryData(report *syncpkg.RunReport) Data {
	rows := [][]string{
		{"Run ID", report.RunID},
		{"Started", report.StartedAt.String()},
		{"Finished", report.FinishedAt.String()},
		{"Dry run", strconv.FormatBool(report.DryRun)},
		{"Created", strconv.Itoa(report.Created)},
		{"Updated", strconv.Itoa(report.Updated)},
		{"Skipped", strconv.Itoa(report.Skipped)},
		{"Failed", strconv.Itoa(report.Failed)},
	}
	if report.Aborted {
		rows = append(rows, []string{"Aborted", report.AbortReason})
	}

	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []tw.Align{tw.AlignLeft, tw.AlignLeft},
	}
}

func outcomesData(outcomes []syncpkg.RecordOutcome) Data {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{o.ExternalID, o.Reason})
	}
	return Data{
		Headers: []string{"External ID", "Reason"},
		Rows:    rows,
	}
}
