package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tobias/keystone/internal/orchestrator"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup <config>",
		Short: "Create the work directory for a proof run",
		Long: `Create (or, with --force, recreate) the work directory for config.

setup parses the config file, creates the work directory layout
(model/, tasks/, src/, the .gitignore, and the status store), and
stops there: no design export is obtained and nothing is scheduled.

Examples:
  keystone setup design.cfg          Create the work directory
  keystone setup -f design.cfg       Overwrite an existing one`,
		Args: cobra.ExactArgs(1),
		RunE: runSetup,
	}
	return cmd
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	opts := orchestrator.Options{
		ConfigPath: args[0],
		Force:      isForce(cmd),
		Debug:      isDebug(cmd),
	}
	o, err := orchestrator.Prepare(ctx, opts, true)
	if err != nil {
		return err
	}
	defer o.Close()
	return nil
}

func init() {
	rootCmd.AddCommand(newSetupCmd())
}
