package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/reflow/internal/scenario"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <scenario.yaml>",
		Short: "Re-run a scenario whenever its file changes",
		Long: `Run a scenario, then run it again every time the file is written.

Load and run errors are reported without stopping the watch. Interrupt
to exit.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchScenario(opts, args[0], cmd)
		},
	}
}

func watchScenario(opts *RootOptions, path string, cmd *cobra.Command) error {
	cfg, logger, err := opts.setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create watcher", err)
	}
	defer watcher.Close()

	// editors often replace the file instead of writing it, watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return WrapExitError(ExitCommandError, "failed to watch scenario", err)
	}

	rtOpts := cfg.Options(logger)
	runner := &scenario.Runner{Phases: rtOpts.Phases, Logger: rtOpts.Logger}
	run := func() {
		res, err := runFile(runner, path)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return
		}
		if err := writeResult(cmd.OutOrStdout(), opts.Format, res); err != nil {
			logger.Error("failed to write result", "error", err)
		}
	}

	run()
	logger.Info("watching scenario", "path", path)

	return watchLoop(ctx, watcher.Events, watcher.Errors, path, run, logger)
}

// watchLoop calls run for every write or create of path until ctx is done
// or the channels close.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, path string, run func(), logger *slog.Logger) error {
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			logger.Debug("scenario changed", "path", ev.Name, "op", ev.Op.String())
			run()

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)
		}
	}
}
