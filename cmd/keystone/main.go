// Package main provides the entry point for the keystone CLI.
//
// keystone drives a formal-verification proof run for a hardware design:
// it ingests a design's JSON export, builds the proof/invariant status
// graph, schedules solver tasks against a configurable concurrency budget,
// and persists progress across interrupted runs.
package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tobias/keystone/internal/errors"
)

// Version is the current version of the keystone CLI.
const Version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		enhanced := enhanceUnknownCommandError(rootCmd, err)
		sanitized := errors.SanitizeError(enhanced)
		fmt.Fprintln(os.Stderr, sanitized)
		os.Exit(errors.ExitCode(enhanced))
	}
}

// suggestionPattern matches cobra's "Did you mean" suggestions.
var suggestionPattern = regexp.MustCompile(`Did you mean (?:this|one of these)\?\s*\n((?:\s*\w+\s*\n?)+)`)

// enhanceUnknownCommandError adds usage examples to cobra's unknown command errors.
func enhanceUnknownCommandError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()

	matches := suggestionPattern.FindStringSubmatch(errStr)
	if matches == nil {
		return err
	}
	suggestions := strings.Fields(matches[1])
	if len(suggestions) == 0 {
		return err
	}

	subCmds := make(map[string]*cobra.Command)
	for _, sub := range cmd.Commands() {
		if !sub.Hidden && sub.Name() != "help" && sub.Name() != "completion" {
			subCmds[sub.Name()] = sub
		}
	}

	var usageLines []string
	for _, s := range suggestions {
		if subCmd, ok := subCmds[s]; ok && subCmd.Use != "" {
			usageLines = append(usageLines, fmt.Sprintf("  %s %s", cmd.CommandPath(), subCmd.Use))
		}
	}
	if len(usageLines) == 0 {
		return err
	}

	return fmt.Errorf("%s\n\nUsage:\n%s", errStr, strings.Join(usageLines, "\n"))
}

var rootCmd = &cobra.Command{
	Use:           "keystone",
	Short:         "Proof orchestrator for hardware designs",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `keystone drives a formal-verification proof run for a hardware design.

It ingests the design's JSON export, builds the proof/invariant status
graph, schedules solver tasks against a concurrency budget, and persists
progress across interrupted runs in a per-project work directory.

Typical workflow:
  1. Create the work directory:
       keystone setup design.cfg

  2. Run the proof, dispatching every scheduled task:
       keystone run design.cfg

  3. Check progress without dispatching anything:
       keystone status design.cfg

  4. Inspect the recorded history of status transitions:
       keystone log design.cfg

Global flags:
  -f, --force     Overwrite an existing work directory on setup
  --debug         Raise log verbosity to debug
  --debug-events  Log every proof status event as it is recorded
  -j, --jobs N    Maximum number of solver tasks running concurrently`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("keystone version {{.Version}}\n")

	rootCmd.PersistentFlags().BoolP("force", "f", false, "Overwrite an existing work directory")
	rootCmd.PersistentFlags().Bool("debug", false, "Raise log verbosity to debug")
	rootCmd.PersistentFlags().Bool("debug-events", false, "Log every proof status event")
	rootCmd.PersistentFlags().Int64P("jobs", "j", 1, "Maximum concurrent solver tasks")
}

func jobCapacity(cmd *cobra.Command) int64 {
	n, _ := cmd.Flags().GetInt64("jobs")
	if n < 1 {
		return 1
	}
	return n
}

func isDebug(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("debug")
	return v
}

func isDebugEvents(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("debug-events")
	return v
}

func isForce(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("force")
	return v
}
