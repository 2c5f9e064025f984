package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"promptloom/internal/validate"
)

func validateCmd() *cobra.Command {
	var presetName string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check stored world books and the preset for content that will never render",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(presetName)
		},
	}
	cmd.Flags().StringVar(&presetName, "preset", "", "Preset name (defaults to the project preset)")
	return cmd
}

func runValidate(presetName string) error {
	ctx := context.Background()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	if presetName == "" {
		presetName, err = p.defaultPreset()
		if err != nil {
			return err
		}
	}

	opts := validate.Options{
		Preset:           presetName,
		ScorerConfigured: p.cfg.Vector.Enabled(),
	}
	for _, layer := range p.cfg.Layers {
		opts.Books = append(opts.Books, layer.Name)
	}

	report, err := validate.Run(ctx, p.db, opts)
	if err != nil {
		return err
	}

	var errorIssues []validate.Issue
	var warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(os.Stdout, "No issues found.")
		return nil
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(os.Stdout, "Errors (%d):\n", len(errorIssues))
		printIssues(os.Stdout, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(os.Stdout, "")
		}
		fmt.Fprintf(os.Stdout, "Warnings (%d):\n", len(warnIssues))
		printIssues(os.Stdout, warnIssues)
	}

	if report.HasErrors() {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := issue.Scope
		if issue.Target != "" {
			location = fmt.Sprintf("%s/%s", issue.Scope, issue.Target)
		}
		if issue.FilePath != "" {
			location = fmt.Sprintf("%s (%s)", location, issue.FilePath)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
