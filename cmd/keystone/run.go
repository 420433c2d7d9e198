package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tobias/keystone/internal/orchestrator"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run <config>",
		Aliases: []string{"prove"},
		Short:   "Dispatch every scheduled proof task and wait for completion",
		Long: `Run the proof: bulk-transition every task pending→scheduled, dispatch
them against the configured job budget, and wait for every dispatched
task to reach a terminal or cancelled outcome.

A run interrupted with Ctrl+C leaves in-flight tasks at whatever status
the solver last reported; re-running picks up pending tasks where it
left off. --reset-schedule additionally re-dispatches tasks already
left scheduled or running by a prior interrupted run.

Examples:
  keystone run design.cfg                 Run (or resume) the proof
  keystone run --reset-schedule design.cfg  Also re-dispatch stuck tasks
  keystone run -j 4 design.cfg            Allow up to 4 concurrent solvers`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}
	cmd.Flags().Bool("reset-schedule", false, "Re-dispatch tasks left scheduled or running by a prior run")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "interrupted, cancelling in-flight tasks...")
			cancel()
		case <-ctx.Done():
		}
	}()
	defer signal.Stop(sigCh)

	resetSchedule, _ := cmd.Flags().GetBool("reset-schedule")
	opts := orchestrator.Options{
		ConfigPath:    args[0],
		Debug:         isDebug(cmd),
		DebugEvents:   isDebugEvents(cmd),
		JobCapacity:   jobCapacity(cmd),
		ResetSchedule: resetSchedule,
	}

	o, err := orchestrator.Prepare(ctx, opts, false)
	if err != nil {
		return err
	}
	defer o.Close()

	if err := o.Run(ctx); err != nil {
		return err
	}

	report, err := o.Status(ctx)
	if err != nil {
		return err
	}
	printReport(cmd, report)
	return nil
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}
