package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"promptloom/internal/chat"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage stored chat histories",
	}
	cmd.AddCommand(historyAddCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyClearCmd())
	return cmd
}

func historyAddCmd() *cobra.Command {
	var chatID, role, name string
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Append a message to a chat",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(chatID) == "" {
				return fmt.Errorf("--chat is required")
			}
			r := chat.Role(strings.ToLower(strings.TrimSpace(role)))
			if !r.Valid() {
				return fmt.Errorf("invalid role: %s", role)
			}
			msg := chat.Message{Role: r, Name: name, Content: strings.Join(args, " ")}
			return runHistoryAdd(chatID, msg)
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "Chat id")
	cmd.Flags().StringVar(&role, "role", "user", "Message role (user, assistant, system)")
	cmd.Flags().StringVar(&name, "name", "", "Speaker name, overriding the profile name for the role")
	return cmd
}

func runHistoryAdd(chatID string, msg chat.Message) error {
	ctx := context.Background()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	stored, err := p.db.AppendMessage(ctx, chatID, msg)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, stored.ID)
	return nil
}

func historyShowCmd() *cobra.Command {
	var chatID string
	var limit int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the messages of a chat, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(chatID) == "" {
				return fmt.Errorf("--chat is required")
			}
			return runHistoryShow(chatID, limit)
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "Chat id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the newest N messages (0 shows all)")
	return cmd
}

func runHistoryShow(chatID string, limit int) error {
	ctx := context.Background()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	history, err := p.db.GetHistory(ctx, chatID, limit)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(os.Stdout, "No messages found.")
		return nil
	}

	names := p.cfg.Profile.Names()
	for _, msg := range history {
		speaker := names.Speaker(msg)
		if speaker == "" {
			speaker = string(msg.Role)
		}
		fmt.Fprintf(os.Stdout, "[%s] %s: %s\n", msg.Role, speaker, msg.Content)
	}
	return nil
}

func historyClearCmd() *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every message of a chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(chatID) == "" {
				return fmt.Errorf("--chat is required")
			}
			return runHistoryClear(chatID)
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "Chat id")
	return cmd
}

func runHistoryClear(chatID string) error {
	ctx := context.Background()

	p, err := openProject(ctx)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	deleted, err := p.db.ClearHistory(ctx, chatID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted %d messages.\n", deleted)
	return nil
}
