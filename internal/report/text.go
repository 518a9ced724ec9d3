package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/runner"
)

// TextReporter writes human-readable reports.
//
// In split mode the report is itself a script: every statement is printed
// verbatim under a comment naming where it came from. The other modes list
// each script with its status and failures, followed by a summary.
type TextReporter struct {
	mode runner.Mode
}

// NewTextReporter creates a new text reporter
func NewTextReporter(mode runner.Mode) *TextReporter {
	return &TextReporter{mode: mode}
}

// Format writes the report to the writer
func (r *TextReporter) Format(runs []*runner.FileRun, writer io.Writer) error {
	var sb strings.Builder
	if r.mode == runner.ModeSplit {
		r.writeStatements(&sb, runs)
	} else {
		r.writeResults(&sb, runs)
	}
	_, err := io.WriteString(writer, sb.String())
	return err
}

// FormatString returns the report as a string
func (r *TextReporter) FormatString(runs []*runner.FileRun) (string, error) {
	var sb strings.Builder
	if err := r.Format(runs, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Name returns the name of this reporter
func (r *TextReporter) Name() string {
	return "text"
}

func (r *TextReporter) writeStatements(sb *strings.Builder, runs []*runner.FileRun) {
	for _, run := range runs {
		for _, stmt := range run.Statements {
			if stmt.Empty {
				continue
			}
			fmt.Fprintf(sb, "-- %s:%d statement %d (%s)\n", run.File.RelativePath, stmt.Line, stmt.Index, stmt.Type)
			sb.WriteString(stmt.Raw)
			if !strings.HasSuffix(stmt.Raw, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
}

func (r *TextReporter) writeResults(sb *strings.Builder, runs []*runner.FileRun) {
	for _, run := range runs {
		fmt.Fprintf(sb, "%-7s %s (%d statements, %v)\n",
			strings.ToUpper(run.Status.String()), run.File.RelativePath, len(run.Statements), run.Duration().Round(time.Millisecond))

		for _, stmt := range run.FailedStatements() {
			fmt.Fprintf(sb, "    %v\n", stmt.Err)
		}
		if run.Load != nil {
			for _, res := range run.Load.Statements {
				if res.Err != nil {
					fmt.Fprintf(sb, "    %v\n", res.Err)
				}
			}
		}
		if run.Error != nil && (run.Load == nil || run.Load.Failed == 0) {
			fmt.Fprintf(sb, "    %v\n", run.Error)
		}
	}

	s := runner.SummarizeRuns(runs)
	fmt.Fprintf(sb, "\n%d files: %d passed, %d failed, %d timed out; %d statements, %d failed\n",
		s.TotalFiles, s.PassedFiles, s.FailedFiles, s.TimedOutFiles, s.TotalStatements, s.FailedStatements)
}
