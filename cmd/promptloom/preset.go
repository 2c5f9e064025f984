package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"promptloom/internal/config"
)

func presetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage stored presets",
	}
	cmd.AddCommand(presetImportCmd())
	cmd.AddCommand(presetShowCmd())
	return cmd
}

func presetImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Store a preset file, replacing any preset with the same name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPresetImport(args[0])
		},
	}
}

func runPresetImport(path string) error {
	ctx := context.Background()

	ps, err := config.LoadPreset(path)
	if err != nil {
		return err
	}

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	if err := p.db.UpsertPreset(ctx, *ps); err != nil {
		return fmt.Errorf("storing preset %s: %w", ps.Name, err)
	}
	fmt.Fprintf(os.Stdout, "Preset %q stored (%d items).\n", ps.Name, len(ps.Items))
	return nil
}

func presetShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored preset as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPresetShow(args[0])
		},
	}
}

func runPresetShow(name string) error {
	ctx := context.Background()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	ps, err := p.db.GetPreset(ctx, name)
	if err != nil {
		return fmt.Errorf("loading preset %s: %w", name, err)
	}
	data, err := config.MarshalPreset(*ps)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
