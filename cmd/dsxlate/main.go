package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/snonux/dsxlate/internal/cli"
	"codeberg.org/snonux/dsxlate/internal/logger"
	"codeberg.org/snonux/dsxlate/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command with one action per subcommand
	rootCmd := cli.CreateRootCommand(flags, cli.Actions{
		Translate: func(ctx context.Context, flags *cli.Flags) error {
			return withProcessor(ctx, flags, func(ctx context.Context, proc *processor.Processor) error {
				return proc.Translate(ctx, flags.SkipConsolidate)
			})
		},
		Consolidate: func(ctx context.Context, flags *cli.Flags) error {
			return withProcessor(ctx, flags, func(ctx context.Context, proc *processor.Processor) error {
				_, err := proc.Consolidate(ctx)
				return err
			})
		},
		Publish: func(ctx context.Context, flags *cli.Flags) error {
			return withProcessor(ctx, flags, func(ctx context.Context, proc *processor.Processor) error {
				_, err := proc.Publish(ctx, flags.FilePath, flags.RepoName)
				return err
			})
		},
		Models: func(ctx context.Context, flags *cli.Flags) error {
			return withProcessor(ctx, flags, func(ctx context.Context, proc *processor.Processor) error {
				return proc.ListModels(ctx)
			})
		},
		Archive: func(ctx context.Context, flags *cli.Flags) error {
			return withProcessor(ctx, flags, func(ctx context.Context, proc *processor.Processor) error {
				_, err := proc.Archive(ctx)
				return err
			})
		},
	})

	// Ctrl+C stops after the in-flight engine call; finished batches stay
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withProcessor loads the configuration, sets up logging and runs fn
func withProcessor(ctx context.Context, flags *cli.Flags, fn func(context.Context, *processor.Processor) error) error {
	if err := cli.InitConfig(flags.CfgFile, flags.EnvFile); err != nil {
		return err
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}

	log := logger.New(cfg.LoggerConfig())
	logger.SetDefault(log)

	proc := processor.NewProcessor(cfg)
	ctx = log.WithContext(ctx)
	return fn(ctx, proc)
}
