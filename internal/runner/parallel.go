package runner

import (
	"context"
	"sync"
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/discovery"
	"github.com/cybertec-postgresql/pgsplit/internal/logger"
	"github.com/cybertec-postgresql/pgsplit/internal/parser"
)

// GrammarFactory builds the grammar a worker checks statements with. The
// returned release func is called when the worker is done with it. A nil
// grammar means statements are only split.
type GrammarFactory func(ctx context.Context) (g parser.Grammar, release func(), err error)

// NoGrammar is a GrammarFactory for splitting without checks
func NoGrammar(context.Context) (parser.Grammar, func(), error) {
	return nil, func() {}, nil
}

// WorkerPool manages parallel script processing
type WorkerPool struct {
	executor   *Executor
	grammars   GrammarFactory
	maxWorkers int
}

// NewWorkerPool creates a new worker pool. Grammars keep per-statement
// state, so every worker builds its own from grammars.
func NewWorkerPool(executor *Executor, grammars GrammarFactory, maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if grammars == nil {
		grammars = NoGrammar
	}
	return &WorkerPool{
		executor:   executor,
		grammars:   grammars,
		maxWorkers: maxWorkers,
	}
}

// ExecuteParallel processes scripts with the configured concurrency limit.
// Results are returned in input order.
func (wp *WorkerPool) ExecuteParallel(ctx context.Context, files []discovery.DiscoveredFile) ([]*FileRun, error) {
	numFiles := len(files)
	if numFiles == 0 {
		return nil, nil
	}

	// If only one worker or one script, fall back to sequential execution
	if wp.maxWorkers == 1 || numFiles == 1 {
		g, release, err := wp.grammars(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
		return wp.executor.ExecuteBatch(ctx, files, g), nil
	}

	workers := min(wp.maxWorkers, numFiles)
	logger.Debugf("starting parallel execution with %d workers for %d scripts", workers, numFiles)

	// Grammars are built up front so a broken factory fails the whole batch
	grammars := make([]parser.Grammar, workers)
	releases := make([]func(), 0, workers)
	defer func() {
		for _, release := range releases {
			release()
		}
	}()
	for i := range grammars {
		g, release, err := wp.grammars(ctx)
		if err != nil {
			return nil, err
		}
		grammars[i] = g
		releases = append(releases, release)
	}

	jobs := make(chan *fileJob, numFiles)
	results := make(chan *fileResult, numFiles)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go wp.worker(ctx, i, grammars[i], jobs, results, &wg)
	}

	for i := range files {
		jobs <- &fileJob{file: &files[i], index: i}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	runs := make([]*FileRun, numFiles)
	for result := range results {
		runs[result.index] = result.run
		logger.Debugf("[%s] %s (worker %d)", result.run.Status, result.run.File.RelativePath, result.workerID)
	}
	return runs, nil
}

// fileJob represents a single script to process
type fileJob struct {
	file  *discovery.DiscoveredFile
	index int
}

// fileResult represents the result of processing a script
type fileResult struct {
	run      *FileRun
	index    int
	workerID int
}

// worker is the goroutine that processes jobs with its own grammar
func (wp *WorkerPool) worker(ctx context.Context, workerID int, g parser.Grammar, jobs <-chan *fileJob, results chan<- *fileResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		// Check if context was cancelled before starting the script
		if ctx.Err() != nil {
			now := time.Now()
			results <- &fileResult{
				run: &FileRun{
					File:      job.file,
					StartTime: now,
					EndTime:   now,
					Status:    RunFailed,
					Error:     ctx.Err(),
				},
				index:    job.index,
				workerID: workerID,
			}
			continue
		}

		results <- &fileResult{
			run:      wp.executor.Execute(ctx, job.file, g),
			index:    job.index,
			workerID: workerID,
		}
	}
}
