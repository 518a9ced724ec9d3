package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/database"
	"github.com/cybertec-postgresql/pgsplit/internal/discovery"
	"github.com/cybertec-postgresql/pgsplit/internal/errors"
	"github.com/cybertec-postgresql/pgsplit/internal/logger"
	"github.com/cybertec-postgresql/pgsplit/internal/parser"
	"github.com/cybertec-postgresql/pgsplit/internal/scanner"
	"github.com/cybertec-postgresql/pgsplit/internal/source"
	"github.com/jackc/pgx/v5/pgxpool"
)

// cleanupTimeout bounds dropping a scratch database after its script
const cleanupTimeout = 5 * time.Second

// Options controls how each script is processed
type Options struct {
	Timeout      time.Duration // per script, 0 means none
	ValidateCopy bool          // check CSV COPY data
	Scratch      bool          // load every script into its own scratch database
	Load         database.LoadOptions
	Source       *source.Config
}

// Executor processes scripts one at a time
type Executor struct {
	mode    Mode
	pool    *database.Pool // required for ModeLoad
	opts    Options
	tracker *ScratchTracker
}

// NewExecutor creates a new executor. pool may be nil unless mode is ModeLoad.
func NewExecutor(mode Mode, pool *database.Pool, opts Options) *Executor {
	return &Executor{
		mode:    mode,
		pool:    pool,
		opts:    opts,
		tracker: NewScratchTracker(),
	}
}

// Scratch returns the tracker of scratch databases created so far
func (e *Executor) Scratch() *ScratchTracker { return e.tracker }

// Execute processes a single script with grammar g, which may be nil
func (e *Executor) Execute(ctx context.Context, file *discovery.DiscoveredFile, g parser.Grammar) *FileRun {
	run := &FileRun{
		File:      file,
		StartTime: time.Now(),
		Status:    RunPending,
	}

	fileCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		fileCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	err := e.process(fileCtx, run, g)
	switch {
	case err != nil && stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		run.Status = RunTimeout
		run.Error = fmt.Errorf("%s: timed out after %v", file.RelativePath, e.opts.Timeout)
	case err != nil:
		run.Status = RunFailed
		run.Error = err
	case len(run.FailedStatements()) > 0:
		run.Status = RunFailed
	default:
		run.Status = RunPassed
	}
	if run.Error != nil {
		logger.Debugf("%s: %v", file.RelativePath, run.Error)
	}

	run.EndTime = time.Now()
	return run
}

// ExecuteBatch processes scripts sequentially, sharing g
func (e *Executor) ExecuteBatch(ctx context.Context, files []discovery.DiscoveredFile, g parser.Grammar) []*FileRun {
	var runs []*FileRun
	for i := range files {
		logger.Debugf("processing %s", files[i].RelativePath)
		runs = append(runs, e.Execute(ctx, &files[i], g))

		// Check if context was cancelled
		if ctx.Err() != nil {
			break
		}
	}
	return runs
}

// SummarizeRuns creates a summary of script results
func SummarizeRuns(runs []*FileRun) *Summary {
	summary := &Summary{
		TotalFiles: len(runs),
	}

	for _, run := range runs {
		summary.TotalDuration += run.Duration()
		summary.TotalStatements += len(run.Statements)
		summary.FailedStatements += len(run.FailedStatements())
		if run.Load != nil {
			summary.FailedStatements += run.Load.Failed
		}

		switch run.Status {
		case RunPassed:
			summary.PassedFiles++
		case RunFailed:
			summary.FailedFiles++
		case RunTimeout:
			summary.TimedOutFiles++
		}
	}
	return summary
}

// process implements the per-script workflow:
// 1. Read the script
// 2. Split and check every statement
// 3. Validate COPY data
// 4. Load, when the executor loads and nothing was rejected
func (e *Executor) process(ctx context.Context, run *FileRun, g parser.Grammar) error {
	content, err := source.ReadAll(ctx, run.File.Path, e.opts.Source)
	if err != nil {
		return err
	}
	run.Status = RunRunning

	sc := parser.NewStatementScanner(content, g)
	sc.File = run.File.RelativePath
	for stmt := range sc.All(ctx) {
		if stmt.Unclosed != scanner.ModeNormal {
			logger.Warnf("%s:%d: statement %d ends inside %s", run.File.RelativePath, stmt.Line, stmt.Index, stmt.Unclosed)
		}
		if e.opts.ValidateCopy && stmt.Err == nil {
			stmt.Err = parser.ValidatePayload(run.File.RelativePath, stmt)
		}
		run.Statements = append(run.Statements, stmt)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if e.mode != ModeLoad {
		return nil
	}
	if failed := run.FailedStatements(); len(failed) > 0 {
		return fmt.Errorf("%s: not loaded, %d statement(s) rejected", run.File.RelativePath, len(failed))
	}
	return e.load(ctx, run)
}

// load executes the statements of run, in a scratch database if configured
func (e *Executor) load(ctx context.Context, run *FileRun) error {
	if e.pool == nil {
		return stderrors.New("loading requires a database connection")
	}

	target := e.pool.Pool
	if e.opts.Scratch {
		scratch, err := database.CreateScratchDatabase(ctx, e.pool)
		if err != nil {
			return err
		}
		if err := e.tracker.Track(scratch.Name, scratch.CreatedAt); err != nil {
			logger.Errorf("%v", err)
		}
		run.Scratch = scratch.Name
		logger.Debugf("%s: loading into %s", run.File.RelativePath, scratch.Name)

		defer func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer cancel()
			if err := database.DestroyScratchDatabase(cleanupCtx, e.pool, scratch); err != nil {
				logger.Errorf("failed to drop %s: %v", scratch.Name, err)
				return
			}
			e.tracker.MarkCleaned(scratch.Name)
		}()
		target = scratch.Pool
	}

	conn, err := acquire(ctx, target)
	if err != nil {
		return err
	}
	defer conn.Release()

	loader := database.NewLoader(conn.Conn(), e.pool.Notices(), e.opts.Load)
	run.Load, err = loader.Load(ctx, run.File.RelativePath, slices.Values(run.Statements))
	if run.Load != nil {
		for _, res := range run.Load.Statements {
			for _, n := range res.Notices {
				logger.Infof("%s:%d: %s: %s", run.File.RelativePath, res.Line, n.Severity, n.Message)
			}
		}
		if run.Load.Failed > 0 && err == nil {
			err = fmt.Errorf("%s: %d statement(s) failed", run.File.RelativePath, run.Load.Failed)
		}
	}
	return err
}

func acquire(ctx context.Context, pool *pgxpool.Pool) (*pgxpool.Conn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errors.NewConnectionError(fmt.Sprintf("failed to acquire connection: %v", err), "", err)
	}
	return conn, nil
}
