package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tobias/keystone/internal/fuzzy"
)

// unknownFlagPattern matches "unknown flag: --flagname" or "unknown shorthand flag: 'x' in -xyz".
var unknownFlagPattern = regexp.MustCompile(`unknown (?:shorthand )?flag: (?:'([^']+)' in )?-+(\w+)?`)

// AddFuzzyMatching configures a cobra command to suggest similar commands
// when an unknown command is entered, and similar flags when an unknown
// flag is used.
func AddFuzzyMatching(cmd *cobra.Command) {
	originalRunE := cmd.RunE
	cmd.RunE = func(c *cobra.Command, args []string) error {
		if originalRunE != nil {
			return originalRunE(c, args)
		}
		if len(args) > 0 {
			return unknownCommandError(c, args[0])
		}
		return c.Help()
	}
	cmd.SetFlagErrorFunc(flagErrorWithSuggestions)
}

func flagErrorWithSuggestions(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()

	matches := unknownFlagPattern.FindStringSubmatch(errStr)
	if matches == nil {
		return err
	}
	unknownFlag := matches[2]
	if unknownFlag == "" && matches[1] != "" {
		unknownFlag = matches[1]
	}
	if unknownFlag == "" {
		return err
	}

	candidates := collectFlags(cmd)
	if len(candidates) == 0 {
		return err
	}
	result := fuzzy.SuggestFlag(unknownFlag, candidates)

	var msg strings.Builder
	msg.WriteString(errStr)
	if len(result.Suggestions) > 0 {
		msg.WriteString("\n\nDid you mean")
		if len(result.Suggestions) == 1 {
			msg.WriteString(fmt.Sprintf(": --%s", result.Suggestions[0]))
		} else {
			msg.WriteString(" one of these?")
			for _, s := range result.Suggestions {
				msg.WriteString(fmt.Sprintf("\n  --%s", s))
			}
		}
	}
	return fmt.Errorf("%s", msg.String())
}

func collectFlags(cmd *cobra.Command) []string {
	flags := make(map[string]bool)
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags[f.Name] = true
		}
	})
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags[f.Name] = true
		}
	})
	result := make([]string, 0, len(flags))
	for name := range flags {
		result = append(result, name)
	}
	return result
}

func unknownCommandError(cmd *cobra.Command, unknown string) error {
	candidates := make([]string, 0)
	for _, sub := range cmd.Commands() {
		if !sub.Hidden && sub.Name() != "help" && sub.Name() != "completion" {
			candidates = append(candidates, sub.Name())
		}
	}
	result := fuzzy.SuggestCommand(unknown, candidates)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("unknown command %q for %q", unknown, cmd.Name()))
	if len(result.Suggestions) > 0 {
		msg.WriteString("\n\nDid you mean")
		if len(result.Suggestions) == 1 {
			msg.WriteString(fmt.Sprintf(": %s", result.Suggestions[0]))
		} else {
			msg.WriteString(" one of these?")
			for _, s := range result.Suggestions {
				msg.WriteString(fmt.Sprintf("\n  %s", s))
			}
		}
	}
	return fmt.Errorf("%s", msg.String())
}

func init() {
	AddFuzzyMatchingRecursive(rootCmd)
}

// AddFuzzyMatchingRecursive adds fuzzy matching to a command and all its subcommands.
func AddFuzzyMatchingRecursive(cmd *cobra.Command) {
	AddFuzzyMatching(cmd)
	for _, sub := range cmd.Commands() {
		AddFuzzyMatchingRecursive(sub)
	}
}
