package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"promptloom/internal/config"
	"promptloom/internal/ingest"
)

var (
	ingestFull  bool
	ingestWatch bool
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Synchronise world books and the project preset with their source files",
		RunE:  runIngest,
	}
	cmd.Flags().BoolVar(&ingestFull, "full", false, "Force full re-ingestion (ignore incremental hashes)")
	cmd.Flags().BoolVar(&ingestWatch, "watch", false, "Keep running and re-ingest when lore files change")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(context.Background())

	if err := importProjectPreset(ctx, p); err != nil {
		return err
	}

	options := ingest.Options{Full: ingestFull, Logger: p.logger.Named("ingest")}
	if ingestWatch {
		return ingest.Watch(ctx, p.cfg, p.db, ingest.WatchOptions{
			Options: options,
			OnResult: func(result *ingest.Result, err error) {
				if err != nil {
					p.logger.Error("ingestion failed", zap.Error(err))
					return
				}
				printIngestResult(result)
			},
		})
	}

	result, err := ingest.Run(ctx, p.cfg, p.db, options)
	if err != nil {
		return err
	}
	printIngestResult(result)
	if len(result.Errors) > 0 {
		return fmt.Errorf("ingestion completed with errors")
	}
	return nil
}

// importProjectPreset stores the preset file named in the config. A missing file is
// not an error; presets can also be imported one by one.
func importProjectPreset(ctx context.Context, p *project) error {
	ps, err := config.LoadPreset(p.cfg.Preset)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			p.logger.Debug("no project preset file", zap.String("path", p.cfg.Preset))
			return nil
		}
		return err
	}
	if err := p.db.UpsertPreset(ctx, *ps); err != nil {
		return fmt.Errorf("storing preset %s: %w", ps.Name, err)
	}
	fmt.Fprintf(os.Stdout, "Preset %q stored (%d items).\n", ps.Name, len(ps.Items))
	return nil
}

func printIngestResult(result *ingest.Result) {
	fmt.Fprintln(os.Stdout, "Ingestion complete.")
	fmt.Fprintf(os.Stdout, "  Books upserted:   %d\n", result.BooksUpserted)
	fmt.Fprintf(os.Stdout, "  Entries upserted: %d\n", result.EntriesUpserted)
	fmt.Fprintf(os.Stdout, "  Entries removed:  %d\n", result.EntriesRemoved)
	fmt.Fprintf(os.Stdout, "  Files skipped:    %d\n", result.FilesSkipped)

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
	}
}
