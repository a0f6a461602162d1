package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnatoleLucet/reflow/internal/scenario"
)

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenarios and print their traces",
		Long: `Run one or more scenario files on a fresh runtime each.

Every step of a scenario is one transaction. Watched fields are traced in
the phase they are watched in, errors raised by computed fields are traced
in the "error" phase.

Example:
  reflow run testdata/scenarios/cart.yaml
  reflow run --format json -c reflow.yaml a.yaml b.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}
}

func runScenarios(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	cfg, logger, err := opts.setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	rtOpts := cfg.Options(logger)
	runner := &scenario.Runner{Phases: rtOpts.Phases, Logger: rtOpts.Logger}

	failed := 0
	for _, path := range paths {
		res, err := runFile(runner, path)
		if err != nil {
			return err
		}

		if err := writeResult(cmd.OutOrStdout(), opts.Format, res); err != nil {
			return WrapExitError(ExitCommandError, "failed to write result", err)
		}

		if errs := res.Errors(); len(errs) > 0 {
			logger.Debug("scenario raised errors", "scenario", res.Scenario, "errors", len(errs))
			failed++
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios raised errors", failed, len(paths)))
	}
	return nil
}

func runFile(runner *scenario.Runner, path string) (*scenario.Result, error) {
	s, err := scenario.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	res, err := runner.Run(s)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to run scenario %q", s.Name), err)
	}
	return res, nil
}
