package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/cybertec-postgresql/pgsplit/internal/database"
	"github.com/cybertec-postgresql/pgsplit/internal/discovery"
	"github.com/cybertec-postgresql/pgsplit/internal/logger"
	"github.com/cybertec-postgresql/pgsplit/internal/parser"
	"github.com/cybertec-postgresql/pgsplit/internal/report"
	"github.com/cybertec-postgresql/pgsplit/internal/runner"
	"github.com/cybertec-postgresql/pgsplit/internal/source"
	"github.com/cybertec-postgresql/pgsplit/pkg/types"
)

// Run processes the scripts named by inputs in the given mode and writes the
// report. It returns the process exit code.
func Run(ctx context.Context, config *Config, mode runner.Mode, inputs []string) (int, error) {
	startTime := time.Now()
	logger.SetVerbose(config.Verbose)
	srcConfig := source.FromConfig(config)

	if len(inputs) == 0 {
		inputs = []string{source.Stdio}
	}

	// Step 1: Resolve inputs to scripts
	files, err := discovery.Resolve(ctx, inputs, srcConfig)
	if err != nil {
		return 1, fmt.Errorf("failed to resolve inputs: %w", err)
	}
	if len(files) == 0 {
		logger.Info("No SQL scripts found")
		return 0, nil
	}
	logger.Debugf("found %d script(s)", len(files))

	// Step 2: Connect to PostgreSQL when something needs a server
	var pool *database.Pool
	if mode == runner.ModeLoad || config.Grammar == types.GrammarServer {
		pool, err = database.NewPool(ctx, config)
		if err != nil {
			return 1, fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()
		logger.Debugf("connected to PostgreSQL")
	}

	// Step 3: Process scripts
	executor := runner.NewExecutor(mode, pool, runner.Options{
		Timeout:      config.Timeout,
		ValidateCopy: config.ValidateCopy,
		Scratch:      config.Scratch,
		Load: database.LoadOptions{
			SingleTransaction: config.SingleTransaction,
			ContinueOnError:   config.ContinueOnError,
		},
		Source: srcConfig,
	})
	workerPool := runner.NewWorkerPool(executor, GrammarFactory(config.Grammar, pool), config.Parallelism)
	runs, err := workerPool.ExecuteParallel(ctx, files)
	if err != nil {
		return 1, fmt.Errorf("%s failed: %w", mode, err)
	}

	if mode == runner.ModeLoad && config.Scratch {
		if err := executor.Scratch().ValidateCleanup(); err != nil {
			logger.Warnf("%v", err)
		}
	}

	// Step 4: Write the report
	if err := WriteReport(ctx, runs, mode, config, srcConfig); err != nil {
		return 1, err
	}

	summary := runner.SummarizeRuns(runs)
	logger.Debugf("%s: %d files, %d statements, %d failed in %v", mode,
		summary.TotalFiles, summary.TotalStatements, summary.FailedStatements,
		time.Since(startTime).Round(time.Millisecond))

	return summary.ExitCode(), nil
}

// WriteReport formats runs and writes them to config.Output
func WriteReport(ctx context.Context, runs []*runner.FileRun, mode runner.Mode, config *Config, srcConfig *source.Config) error {
	if !report.ValidFormat(config.Format) {
		return fmt.Errorf("unsupported format: %s (supported: %v)", config.Format, report.SupportedFormats())
	}
	formatter, err := report.GetFormatter(report.FormatType(config.Format), mode)
	if err != nil {
		return err
	}

	writer, err := source.Create(ctx, config.Output, srcConfig)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := formatter.Format(runs, writer); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to format report: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if config.Output != source.Stdio {
		logger.Infof("Report written to %s", config.Output)
	}
	return nil
}

// GrammarFactory returns the factory for the named grammar. pool is only
// used by the server grammar.
func GrammarFactory(name string, pool *database.Pool) runner.GrammarFactory {
	switch name {
	case types.GrammarPgQuery:
		return func(context.Context) (parser.Grammar, func(), error) {
			return parser.NewPgQueryGrammar(), func() {}, nil
		}
	case types.GrammarServer:
		return func(ctx context.Context) (parser.Grammar, func(), error) {
			if pool == nil {
				return nil, nil, fmt.Errorf("grammar %s needs a database connection", name)
			}
			g, err := database.NewServerGrammar(ctx, pool)
			if err != nil {
				return nil, nil, err
			}
			return g, func() { g.Close(context.Background()) }, nil
		}
	default:
		return runner.NoGrammar
	}
}
