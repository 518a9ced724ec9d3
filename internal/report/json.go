package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cybertec-postgresql/pgsplit/internal/database"
	"github.com/cybertec-postgresql/pgsplit/internal/runner"
	"github.com/cybertec-postgresql/pgsplit/internal/scanner"
)

// JSONReporter formats script runs as JSON
type JSONReporter struct {
	mode runner.Mode
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(mode runner.Mode) *JSONReporter {
	return &JSONReporter{mode: mode}
}

// Document is the top-level JSON report
type Document struct {
	Mode    string     `json:"mode"`
	Summary Summary    `json:"summary"`
	Files   []FileJSON `json:"files"`
}

// Summary mirrors runner.Summary
type Summary struct {
	TotalFiles       int   `json:"total_files"`
	PassedFiles      int   `json:"passed_files"`
	FailedFiles      int   `json:"failed_files"`
	TimedOutFiles    int   `json:"timed_out_files"`
	TotalStatements  int   `json:"total_statements"`
	FailedStatements int   `json:"failed_statements"`
	DurationMS       int64 `json:"duration_ms"`
}

// FileJSON is one script
type FileJSON struct {
	Path       string          `json:"path"`
	Status     string          `json:"status"`
	DurationMS int64           `json:"duration_ms"`
	Scratch    string          `json:"scratch_database,omitempty"`
	Committed  bool            `json:"committed,omitempty"`
	Error      string          `json:"error,omitempty"`
	Statements []StatementJSON `json:"statements"`
}

// StatementJSON is one statement with its check and load results
type StatementJSON struct {
	Index      int      `json:"index"`
	Line       int      `json:"line"`
	EndLine    int      `json:"end_line"`
	Type       string   `json:"type"`
	Outcome    string   `json:"outcome"`
	SQL        string   `json:"sql"`
	Payload    *string  `json:"payload,omitempty"`
	Terminated bool     `json:"terminated"`
	Unclosed   string   `json:"unclosed,omitempty"`
	Error      string   `json:"error,omitempty"`
	Tag        string   `json:"tag,omitempty"`
	Rows       *int64   `json:"rows,omitempty"`
	Notices    []string `json:"notices,omitempty"`
}

// Format formats script runs as JSON and writes to the writer
func (r *JSONReporter) Format(runs []*runner.FileRun, writer io.Writer) error {
	data, err := json.MarshalIndent(r.document(runs), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	// Add newline
	_, err = writer.Write([]byte("\n"))
	return err
}

// FormatString returns script runs as a JSON string
func (r *JSONReporter) FormatString(runs []*runner.FileRun) (string, error) {
	data, err := json.MarshalIndent(r.document(runs), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	return string(data), nil
}

// Name returns the name of this reporter
func (r *JSONReporter) Name() string {
	return "json"
}

func (r *JSONReporter) document(runs []*runner.FileRun) *Document {
	s := runner.SummarizeRuns(runs)
	doc := &Document{
		Mode: r.mode.String(),
		Summary: Summary{
			TotalFiles:       s.TotalFiles,
			PassedFiles:      s.PassedFiles,
			FailedFiles:      s.FailedFiles,
			TimedOutFiles:    s.TimedOutFiles,
			TotalStatements:  s.TotalStatements,
			FailedStatements: s.FailedStatements,
			DurationMS:       s.TotalDuration.Milliseconds(),
		},
		Files: make([]FileJSON, 0, len(runs)),
	}
	for _, run := range runs {
		doc.Files = append(doc.Files, fileJSON(run))
	}
	return doc
}

func fileJSON(run *runner.FileRun) FileJSON {
	f := FileJSON{
		Path:       run.File.RelativePath,
		Status:     run.Status.String(),
		DurationMS: run.Duration().Milliseconds(),
		Scratch:    run.Scratch,
		Statements: make([]StatementJSON, 0, len(run.Statements)),
	}
	if run.Error != nil {
		f.Error = run.Error.Error()
	}

	loaded := make(map[int]*database.StatementResult)
	if run.Load != nil {
		f.Committed = run.Load.Committed
		for _, res := range run.Load.Statements {
			loaded[res.Index] = res
		}
	}

	for _, stmt := range run.Statements {
		sj := StatementJSON{
			Index:      stmt.Index,
			Line:       stmt.Line,
			EndLine:    stmt.EndLine,
			Type:       stmt.Type.String(),
			Outcome:    stmt.Outcome().String(),
			SQL:        stmt.SQL,
			Terminated: stmt.Terminated,
		}
		if stmt.HasPayload {
			payload := stmt.Payload
			sj.Payload = &payload
		}
		if stmt.Unclosed != scanner.ModeNormal {
			sj.Unclosed = stmt.Unclosed.String()
		}
		if stmt.Err != nil {
			sj.Error = stmt.Err.Error()
		}
		if res, ok := loaded[stmt.Index]; ok {
			rows := res.Rows
			sj.Tag, sj.Rows = res.Tag, &rows
			if res.Err != nil {
				sj.Error = res.Err.Error()
			}
			for _, n := range res.Notices {
				sj.Notices = append(sj.Notices, n.Severity+": "+n.Message)
			}
		}
		f.Statements = append(f.Statements, sj)
	}
	return f
}
