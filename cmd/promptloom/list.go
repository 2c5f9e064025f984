package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored world books and presets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "books",
		Short: "List world books",
		Args:  cobra.NoArgs,
		RunE:  runListBooks,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "presets",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE:  runListPresets,
	})
	return cmd
}

func runListBooks(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	books, err := p.db.ListWorldBooks(ctx)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Fprintln(os.Stdout, "No world books found.")
		return nil
	}
	for _, book := range books {
		state := "enabled"
		if !book.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(os.Stdout, "%s (%d entries, %s)\n", book.Name, book.Entries, state)
	}
	return nil
}

func runListPresets(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	presets, err := p.db.ListPresets(ctx)
	if err != nil {
		return err
	}
	if len(presets) == 0 {
		fmt.Fprintln(os.Stdout, "No presets found.")
		return nil
	}
	for _, ps := range presets {
		fmt.Fprintf(os.Stdout, "%s (%d items, updated %s)\n", ps.Name, ps.Items, ps.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}
