package runner

import (
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/database"
	"github.com/cybertec-postgresql/pgsplit/internal/discovery"
	"github.com/cybertec-postgresql/pgsplit/internal/parser"
)

// Mode selects what the executor does with each script
type Mode int

const (
	ModeSplit Mode = iota // print statements
	ModeCheck             // grammar-check statements
	ModeLoad              // execute statements
)

// String returns a string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeSplit:
		return "split"
	case ModeCheck:
		return "check"
	case ModeLoad:
		return "load"
	default:
		return "unknown"
	}
}

// FileRun represents the processing of a single script
type FileRun struct {
	File       *discovery.DiscoveredFile
	StartTime  time.Time
	EndTime    time.Time
	Status     RunStatus
	Statements []*parser.Statement
	Load       *database.LoadResult // ModeLoad only
	Scratch    string               // scratch database the script was loaded into
	Error      error                // Non-nil if the script could not be processed
}

// RunStatus represents the current state of a script
type RunStatus int

const (
	RunPending RunStatus = iota
	RunRunning
	RunPassed
	RunFailed
	RunTimeout
)

// String returns a string representation of RunStatus
func (rs RunStatus) String() string {
	switch rs {
	case RunPending:
		return "pending"
	case RunRunning:
		return "running"
	case RunPassed:
		return "passed"
	case RunFailed:
		return "failed"
	case RunTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Duration returns the processing duration
func (fr *FileRun) Duration() time.Duration {
	if fr.EndTime.IsZero() {
		return time.Since(fr.StartTime)
	}
	return fr.EndTime.Sub(fr.StartTime)
}

// FailedStatements returns the statements the grammar or the payload check rejected
func (fr *FileRun) FailedStatements() []*parser.Statement {
	var failed []*parser.Statement
	for _, stmt := range fr.Statements {
		if stmt.Err != nil {
			failed = append(failed, stmt)
		}
	}
	return failed
}

// Summary summarizes all script runs
type Summary struct {
	TotalFiles       int
	PassedFiles      int
	FailedFiles      int
	TimedOutFiles    int
	TotalStatements  int
	FailedStatements int
	TotalDuration    time.Duration
}

// AllPassed returns true if all scripts passed
func (s *Summary) AllPassed() bool {
	return s.FailedFiles == 0 && s.TimedOutFiles == 0
}

// ExitCode returns the appropriate exit code based on the results
func (s *Summary) ExitCode() int {
	if s.AllPassed() {
		return 0
	}
	return 1
}
