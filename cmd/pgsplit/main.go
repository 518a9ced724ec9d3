package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cybertec-postgresql/pgsplit/internal/cli"
	"github.com/cybertec-postgresql/pgsplit/internal/runner"
	"github.com/cybertec-postgresql/pgsplit/pkg/types"
	urfavecli "github.com/urfave/cli/v3"
)

const version = "1.0.0"

func main() {
	app := &urfavecli.Command{
		Name:    "pgsplit",
		Usage:   "Split, check and load PostgreSQL scripts",
		Version: version,
		Commands: []*urfavecli.Command{
			{
				Name:      "split",
				Usage:     "Print the statements of each script",
				ArgsUsage: "[PATH|URL|-]...",
				Action:    command(runner.ModeSplit),
				Flags:     commonFlags(types.GrammarNone),
			},
			{
				Name:      "check",
				Usage:     "Check every statement with a PostgreSQL grammar",
				ArgsUsage: "[PATH|URL|-]...",
				Action:    command(runner.ModeCheck),
				Flags:     commonFlags(types.GrammarPgQuery),
			},
			{
				Name:      "load",
				Usage:     "Execute scripts statement by statement",
				ArgsUsage: "[PATH|URL|-]...",
				Action:    command(runner.ModeLoad),
				Flags: append(commonFlags(types.GrammarNone),
					&urfavecli.BoolFlag{
						Name:    "single-transaction",
						Aliases: []string{"1"},
						Usage:   "Run each script in one transaction",
					},
					&urfavecli.BoolFlag{
						Name:  "continue-on-error",
						Usage: "Keep going after a failed statement",
					},
					&urfavecli.BoolFlag{
						Name:  "scratch",
						Usage: "Load each script into a throwaway database that is dropped afterwards",
					},
				),
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags returns the flags every command takes
func commonFlags(grammar string) []urfavecli.Flag {
	return []urfavecli.Flag{
		&urfavecli.StringFlag{
			Name:    "connection",
			Aliases: []string{"c"},
			Usage:   "PostgreSQL connection string (URI or key=value format). Supports standard PG* environment variables.",
		},
		&urfavecli.StringFlag{
			Name:  "grammar",
			Usage: "Statement checker (pgquery, server, or none)",
			Value: grammar,
		},
		&urfavecli.BoolFlag{
			Name:  "validate-copy",
			Usage: "Check the data of CSV COPY statements",
		},
		&urfavecli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-script timeout (0 = none)",
		},
		&urfavecli.IntFlag{
			Name:  "parallel",
			Usage: "Maximum concurrent scripts (1 = sequential)",
		},
		&urfavecli.StringFlag{
			Name:  "format",
			Usage: "Output format (text or json)",
			Value: types.FormatText,
		},
		&urfavecli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path or s3:// URL (use - for stdout)",
			Value:   "-",
		},
		&urfavecli.StringFlag{
			Name:    "s3-region",
			Usage:   "AWS region for s3:// locations",
			Sources: urfavecli.EnvVars("AWS_REGION"),
		},
		&urfavecli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "Custom S3 endpoint, e.g. for MinIO",
		},
		&urfavecli.StringFlag{
			Name:  "s3-access-key",
			Usage: "S3 access key (default: AWS credential chain)",
		},
		&urfavecli.StringFlag{
			Name:  "s3-secret-key",
			Usage: "S3 secret key",
		},
		&urfavecli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug output",
		},
	}
}

// command returns the action for one mode
func command(mode runner.Mode) urfavecli.ActionFunc {
	return func(ctx context.Context, cmd *urfavecli.Command) error {
		// Load configuration
		config := cli.DefaultConfig

		cli.ApplyFlagsToConfig(&config, cli.Flags{
			Connection:        cmd.String("connection"),
			Grammar:           cmd.String("grammar"),
			Timeout:           cmd.Duration("timeout"),
			Parallel:          int(cmd.Int("parallel")),
			Format:            cmd.String("format"),
			Output:            cmd.String("output"),
			ValidateCopy:      cmd.Bool("validate-copy"),
			SingleTransaction: cmd.Bool("single-transaction"),
			ContinueOnError:   cmd.Bool("continue-on-error"),
			Scratch:           cmd.Bool("scratch"),
			Verbose:           cmd.Bool("verbose"),
			S3Region:          cmd.String("s3-region"),
			S3Endpoint:        cmd.String("s3-endpoint"),
			S3AccessKey:       cmd.String("s3-access-key"),
			S3SecretKey:       cmd.String("s3-secret-key"),
		})

		// Validate configuration
		if err := config.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}

		exitCode, err := cli.Run(ctx, &config, mode, cmd.Args().Slice())
		if err != nil {
			return err
		}

		// Exit with appropriate code
		if exitCode != 0 {
			os.Exit(exitCode)
		}
		return nil
	}
}
