package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/sketchlint/sketchlint/internal/analyzer"
	"github.com/sketchlint/sketchlint/internal/report"
	"github.com/sketchlint/sketchlint/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-lint sketches whenever they change on disk",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, store, err := setup()
			if err != nil {
				return err
			}

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			runner := &lintRunner{
				analyzer: analyzer.New(store, log, cfg.Lint.Rules),
				log:      log,
				printer:  report.NewPrinter(os.Stdout, !noColor),
			}
			runner.policy, err = loadPolicy(cfg.PolicyDir, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := watch.New(cfg, log, func(ctx context.Context, paths []string) {
				results, _, err := runner.run(ctx, paths, true)
				if err != nil {
					log.Errorw("lint pass failed", "error", err)
					return
				}
				runner.printer.Summary(len(paths), results)
			})

			err = w.Run(ctx, root)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}
