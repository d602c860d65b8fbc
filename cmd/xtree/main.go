package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/benz9527/xtree/internal/checker"
	"github.com/benz9527/xtree/internal/scenario"
	"github.com/benz9527/xtree/xlog"
)

type rootContext struct {
	logLevel  string
	logFormat string
	logger    xlog.XLogger
}

func rootCommand() *cobra.Command {
	ctx := &rootContext{}
	root := &cobra.Command{
		Use:           "xtree",
		Short:         "build, print and check red-black trees of integer keys",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// The logs go to stderr, stdout is kept for the tree output.
			logger, err := xlog.NewXLogger(
				xlog.WithXLoggerWriter(cmd.ErrOrStderr()),
				xlog.WithXLoggerLevel(xlog.ParseLogLevel(ctx.logLevel)),
				xlog.WithXLoggerEncoder(xlog.ParseLogEncoder(ctx.logFormat)),
				xlog.WithXLoggerContextFieldExtract(scenario.ContextKeyScenario, xlog.ContextKeyMapToOmitempty),
				xlog.WithXLoggerContextFieldExtract(checker.ContextKeyRound, xlog.ContextKeyMapToOmitempty),
			)
			if err != nil {
				return err
			}
			ctx.logger = logger
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if ctx.logger != nil {
				_ = ctx.logger.Sync()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&ctx.logFormat, "log-format", "text", "log format: json or text")

	root.AddCommand(
		printCommand(ctx),
		runCommand(ctx),
		checkCommand(ctx),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		stop()
		os.Exit(1)
	}
}
