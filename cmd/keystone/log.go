package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tobias/keystone/internal/config"
	"github.com/tobias/keystone/internal/orchestrator"
	"github.com/tobias/keystone/internal/store"
	"github.com/tobias/keystone/internal/workdir"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <config>",
		Short: "Show the recorded history of status transitions",
		Long: `Display the append-only history of status transitions recorded in
the work directory's status store.

Each entry records the (entity, solver) pair, the status it
transitioned to, and when. Useful for seeing why a task ended up in a
given state across restarts.

Examples:
  keystone log design.cfg                 Show all recorded transitions
  keystone log --since 10 design.cfg      Show transitions after seq 10
  keystone log --reverse -n 20 design.cfg Show the 20 newest transitions
  keystone log -o json design.cfg         Output as JSON`,
		Args: cobra.ExactArgs(1),
		RunE: runLogCmd,
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().Int("since", 0, "Show transitions after sequence number N")
	cmd.Flags().IntP("limit", "n", 0, "Limit output to N entries (0 = unlimited)")
	cmd.Flags().Bool("reverse", false, "Show newest transitions first")
	return cmd
}

func runLogCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	dir := workdir.Open(configWorkDir(args[0]))
	if err := dir.RequireInitialized(); err != nil {
		return err
	}

	st, err := store.Open(dir.StorePath(), false, nil)
	if err != nil {
		return fmt.Errorf("opening status store: %w", err)
	}
	defer st.Close()

	since, _ := cmd.Flags().GetInt("since")
	limit, _ := cmd.Flags().GetInt("limit")
	reverse, _ := cmd.Flags().GetBool("reverse")
	format, _ := cmd.Flags().GetString("output")

	entries, err := st.History(ctx, since, limit, reverse)
	if err != nil {
		return err
	}

	if format == "json" {
		return outputLogJSON(cmd, entries)
	}
	return outputLogText(cmd, entries)
}

func outputLogJSON(cmd *cobra.Command, entries []store.HistoryEntry) error {
	type row struct {
		Seq        int    `json:"seq"`
		Name       string `json:"name"`
		Solver     string `json:"solver"`
		Status     string `json:"status"`
		RecordedAt string `json:"recorded_at"`
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, row{Seq: e.Seq, Name: e.Name.Display(), Solver: e.Solver, Status: e.Status.String(), RecordedAt: e.RecordedAt})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputLogText(cmd *cobra.Command, entries []store.HistoryEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded transitions.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "#%-5d  %-40s  %-20s  %-10s  %s\n",
			e.Seq, e.Name.Display(), e.Solver, e.Status, e.RecordedAt)
	}
	return nil
}

// configWorkDir mirrors orchestrator's unexported workDirPath so the log
// command can open the store without running Prepare's full export/model
// pipeline.
func configWorkDir(configPath string) string {
	return orchestrator.WorkDirPath(configPath)
}

func init() {
	rootCmd.AddCommand(newLogCmd())
}
