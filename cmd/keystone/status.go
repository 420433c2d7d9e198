package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tobias/keystone/internal/orchestrator"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <config>",
		Short: "Show proof status from the persisted store",
		Long: `Show the current proof status without dispatching anything.

Reports the status of every (entity, solver) task, plus the reduced
per-entity status, read entirely from the persisted store.

Examples:
  keystone status design.cfg            Show status in text form
  keystone status -o json design.cfg    Output in JSON form`,
		Args: cobra.ExactArgs(1),
		RunE: runStatus,
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(mustString(cmd, "output"))
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid output format %q: must be 'text' or 'json'", format)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	opts := orchestrator.Options{ConfigPath: args[0], Debug: isDebug(cmd)}
	o, err := orchestrator.Prepare(ctx, opts, false)
	if err != nil {
		return err
	}
	defer o.Close()

	report, err := o.Status(ctx)
	if err != nil {
		return err
	}

	if format == "json" {
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	printReport(cmd, report)
	return nil
}

// printReport renders a Report as aligned text, the shared formatting
// used by both `run`'s completion summary and `status`'s text output.
func printReport(cmd *cobra.Command, report orchestrator.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Tasks:")
	for _, t := range report.Tasks {
		fmt.Fprintf(out, "  %-40s %-20s %s\n", t.Name, t.Solver, t.Status)
	}
	fmt.Fprintln(out, "Entities:")
	for _, e := range report.Reduced {
		fmt.Fprintf(out, "  %-40s %s\n", e.Name, e.Status)
	}
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func init() {
	rootCmd.AddCommand(newStatusCmd())
}
