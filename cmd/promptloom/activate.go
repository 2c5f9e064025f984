package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"promptloom/internal/chat"
	"promptloom/internal/worldinfo"
)

func activateCmd() *cobra.Command {
	var book string
	cmd := &cobra.Command{
		Use:   "activate <text>",
		Short: "Show which world-book entries a piece of text activates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivate(book, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&book, "book", "", "World book (defaults to the first enabled layer)")
	return cmd
}

func runActivate(bookName, text string) error {
	ctx := context.Background()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	bookName = orDefault(bookName, p.defaultBook())
	if bookName == "" {
		return fmt.Errorf("--book is required")
	}
	book, err := p.db.GetWorldBook(ctx, bookName)
	if err != nil {
		return fmt.Errorf("loading world book %s: %w", bookName, err)
	}

	pipeline, err := p.pipeline()
	if err != nil {
		return err
	}
	history := []chat.Message{{Role: chat.RoleUser, Content: text}}
	act := pipeline.Activate(ctx, *book, history, p.cfg.Profile.Names())

	if act.Len() == 0 {
		fmt.Fprintln(os.Stdout, "No entries activated.")
	} else {
		fmt.Fprintf(os.Stdout, "Activated (%d, %d passes):\n", act.Len(), act.Passes)
		for _, rec := range act.Records {
			fmt.Fprintf(os.Stdout, "  - %s [%s]: %s\n", rec.EntryID, rec.Title, rec.Reason)
		}
	}
	if act.BudgetExhausted {
		fmt.Fprintln(os.Stdout, "Recursion budget exhausted.")
	}
	if len(act.Skipped) > 0 {
		fmt.Fprintf(os.Stdout, "\nSkipped (%d):\n", len(act.Skipped))
		for _, rec := range act.Skipped {
			fmt.Fprintf(os.Stdout, "  - %s: %s\n", rec.EntryID, rec.Reason)
		}
	}

	blocks := worldinfo.Assemble(*book, act)
	if blocks.Before != "" {
		fmt.Fprintf(os.Stdout, "\nWorld info before:\n%s\n", blocks.Before)
	}
	if blocks.After != "" {
		fmt.Fprintf(os.Stdout, "\nWorld info after:\n%s\n", blocks.After)
	}
	return nil
}
