package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"promptloom/internal/chat"
	"promptloom/internal/prompt"
	"promptloom/internal/session"
)

type buildOptions struct {
	chatID    string
	book      string
	preset    string
	pending   string
	overrides map[string]string
	asJSON    bool
}

func buildCmd() *cobra.Command {
	var opts buildOptions
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble the message list for the next turn of a chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts)
		},
	}
	cmd.Flags().StringVar(&opts.chatID, "chat", "", "Chat id whose stored history is used")
	cmd.Flags().StringVar(&opts.book, "book", "", "World book (defaults to the first enabled layer)")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Preset name (defaults to the project preset)")
	cmd.Flags().StringVar(&opts.pending, "pending", "", "User message to append without storing it")
	cmd.Flags().StringToStringVar(&opts.overrides, "override", nil, "Content override for a preset item, as identifier=text")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func runBuild(opts buildOptions) error {
	ctx := context.Background()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	presetName := opts.preset
	if presetName == "" {
		presetName, err = p.defaultPreset()
		if err != nil {
			return err
		}
	}

	loader := session.NewLoader(p.db, p.logger.Named("session"))
	req, err := loader.Load(ctx, session.Params{
		ChatID:        opts.chatID,
		Book:          orDefault(opts.book, p.defaultBook()),
		Preset:        presetName,
		Profile:       p.cfg.Profile,
		HistoryLimit:  p.cfg.History.Limit,
		HistoryWindow: p.cfg.History.Window,
		Overrides:     opts.overrides,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(opts.pending) != "" {
		req.History = append(req.History, chat.Message{Role: chat.RoleUser, Content: opts.pending})
	}

	pipeline, err := p.pipeline()
	if err != nil {
		return err
	}
	result := pipeline.Run(ctx, *req)

	if opts.asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	printResult(result)
	return nil
}

func printResult(result *prompt.Result) {
	for i, msg := range result.Messages {
		header := fmt.Sprintf("--- %s", msg.Role)
		if i < len(result.Tokens) {
			header = fmt.Sprintf("%s (%d tokens)", header, result.Tokens[i])
		}
		fmt.Fprintln(os.Stdout, header)
		fmt.Fprintln(os.Stdout, msg.Content)
	}
	if result.TotalTokens > 0 {
		fmt.Fprintf(os.Stdout, "\nTotal tokens: %d\n", result.TotalTokens)
	}

	trace := result.Trace
	fmt.Fprintf(os.Stdout, "\nActivated entries (%d, %d passes):\n", len(trace.Activated), trace.Passes)
	for _, rec := range trace.Activated {
		fmt.Fprintf(os.Stdout, "  - %s: %s\n", rec.EntryID, rec.Reason)
	}
	if trace.BudgetExhausted {
		fmt.Fprintln(os.Stdout, "  recursion budget exhausted")
	}
	if len(trace.Fragments) > 0 {
		fmt.Fprintf(os.Stdout, "Fragment notes (%d):\n", len(trace.Fragments))
		for _, note := range trace.Fragments {
			fmt.Fprintf(os.Stdout, "  - %s: %s\n", note.Identifier, note.Reason)
		}
	}
}
