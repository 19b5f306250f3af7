// cmd/renewal/main.go
//
// Entry point for the renewal tool. Run it from the tools/ directory of the
// app repository after the expiry spreadsheet for a release has been filled:
//
//	renewal 120 https://bugzilla.mozilla.org/show_bug.cgi?id=1234567
//
// Flow:
// 1. Validate the two positional arguments
// 2. Load configuration (defaults + optional renewal.yaml) and set up logging
// 3. Reconcile metrics.yaml against <version>_expiry_list.csv
// 4. Write the renewal request and new_metrics.yaml, print a summary

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/metrics-renewal/internal/config"
	"github.com/kingrea/metrics-renewal/internal/logging"
	"github.com/kingrea/metrics-renewal/internal/renewal"
)

const usageLine = "usage: renewal <version> <new data review URL>"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and maps its error to an exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "renewal: %v\n", err)
	if errors.Is(err, renewal.ErrUsage) {
		fmt.Fprintln(stderr, usageLine)
		return exitUsage
	}
	return exitFailure
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renewal <version> <new_data_review_url>",
		Short: "Apply data collection renewal decisions to metrics.yaml",
		Long: `renewal reads ../app/metrics.yaml and <version>_expiry_list.csv, removes
metrics marked "n", extends metrics marked "y" to expire at <version>+13 with
the new data review appended, and writes:

  <version>_filled_renewal_request.txt   the renewal request text
  new_metrics.yaml                       the updated metrics file

The keep(Y/N) column accepts only y, yes, n or no (any case). Any other
value, including an empty cell, aborts the run without writing anything.

Paths and the cadence offset can be overridden in renewal.yaml. Logs go to
stderr unless log_file: true is set there, which appends them to
.renewal/logs/renewal.log instead.`,
		Args:          exactArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRenewal(cmd.Context(), stdout, stderr, args[0], args[1])
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &renewal.Error{Kind: renewal.ErrUsage, Err: err}
	})
	return cmd
}

func exactArgs(_ *cobra.Command, args []string) error {
	if len(args) != 2 {
		return &renewal.Error{Kind: renewal.ErrUsage, Msg: fmt.Sprintf("expected 2 arguments, got %d", len(args))}
	}
	return nil
}

func runRenewal(ctx context.Context, stdout, stderr io.Writer, version, newDataReview string) error {
	if _, err := renewal.ParseVersion(version); err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer logger.Close()
	runLog := logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("version", version),
	)

	plan := renewal.PlanFromConfig(cfg, version, newDataReview)
	result, err := renewal.Run(ctx, plan, runLog)
	if err != nil {
		// On the console the error is already printed by execute.
		if logger.Path() != "" {
			runLog.Error("renewal failed", zap.Error(err))
		}
		return err
	}
	logger.Printf("renewal %s finished: %s", version, result.Summary())

	printSummary(stdout, plan, result)
	return nil
}

func newLogger(cfg *config.Config, stderr io.Writer) (*logging.Logger, error) {
	if cfg.LogFile() {
		return logging.New(cfg.LogsDir(), cfg.LogLevel())
	}
	return logging.NewConsole(stderr, cfg.LogLevel())
}
