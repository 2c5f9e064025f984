package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"promptloom/internal/chat"
	"promptloom/internal/prompt"
	"promptloom/internal/session"
	"promptloom/internal/store"
	"promptloom/internal/validate"
	"promptloom/internal/worldinfo"
)

type BuildPromptInput struct {
	ChatID    string            `json:"chat_id,omitempty" jsonschema:"stored chat whose history is used"`
	Book      string            `json:"book,omitempty" jsonschema:"world book name, defaults to the project book"`
	Preset    string            `json:"preset,omitempty" jsonschema:"preset name, defaults to the project preset"`
	Pending   string            `json:"pending,omitempty" jsonschema:"user message not yet stored, appended to the history"`
	Overrides map[string]string `json:"overrides,omitempty" jsonschema:"content overrides keyed by preset item identifier"`
}

type MessageOutput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Tokens  int    `json:"tokens,omitempty"`
}

type BuildPromptOutput struct {
	Messages    []MessageOutput `json:"messages"`
	Trace       prompt.Trace    `json:"trace"`
	TotalTokens int             `json:"total_tokens,omitempty"`
}

type ActivateInput struct {
	Book string `json:"book,omitempty" jsonschema:"world book name, defaults to the project book"`
	Text string `json:"text" jsonschema:"text to scan as if it were the latest user message"`
}

type ActivateOutput struct {
	Activated       []worldinfo.Record `json:"activated"`
	Skipped         []worldinfo.Record `json:"skipped"`
	Passes          int                `json:"passes"`
	BudgetExhausted bool               `json:"budget_exhausted"`
	Before          string             `json:"world_info_before"`
	After           string             `json:"world_info_after"`
}

type ListWorldBooksInput struct{}

type ListWorldBooksOutput struct {
	Books []store.BookSummary `json:"books"`
}

type ListPresetsInput struct{}

type PresetOutput struct {
	Name      string `json:"name"`
	Items     int    `json:"items"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type ListPresetsOutput struct {
	Presets []PresetOutput `json:"presets"`
}

type SearchEntriesInput struct {
	Query string `json:"query" jsonschema:"search terms"`
	Book  string `json:"book,omitempty" jsonschema:"restrict to a specific world book"`
}

type SearchEntriesOutput struct {
	Results []store.SearchResult `json:"results"`
}

type ValidateInput struct {
	Book   string `json:"book,omitempty" jsonschema:"world book name, defaults to the project book"`
	Preset string `json:"preset,omitempty" jsonschema:"preset name, defaults to the project preset"`
}

type ValidateOutput struct {
	Issues []validate.Issue `json:"issues"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "build_prompt",
		Description: "Assemble the message list for the next turn of a chat",
	}, s.handleBuildPrompt)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "activate_world_info",
		Description: "Show which world-book entries a piece of text activates and why",
	}, s.handleActivate)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_world_books",
		Description: "List stored world books",
	}, s.handleListWorldBooks)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_presets",
		Description: "List stored presets",
	}, s.handleListPresets)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_entries",
		Description: "Full-text search over world-book entries",
	}, s.handleSearchEntries)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate",
		Description: "Check a world book and preset for entries and fragments that will never render",
	}, s.handleValidate)
}

func (s *Server) handleBuildPrompt(ctx context.Context, req *sdk.CallToolRequest, input BuildPromptInput) (*sdk.CallToolResult, BuildPromptOutput, error) {
	params := session.Params{
		ChatID:        input.ChatID,
		Book:          orDefault(input.Book, s.defaults.Book),
		Preset:        orDefault(input.Preset, s.defaults.Preset),
		Profile:       s.defaults.Profile,
		HistoryLimit:  s.defaults.HistoryLimit,
		HistoryWindow: s.defaults.HistoryWindow,
		Overrides:     input.Overrides,
	}
	request, err := s.loader.Load(ctx, params)
	if err != nil {
		return nil, BuildPromptOutput{}, err
	}
	if strings.TrimSpace(input.Pending) != "" {
		request.History = append(request.History, chat.Message{Role: chat.RoleUser, Content: input.Pending})
	}

	result := s.pipeline.Run(ctx, *request)

	messages := make([]MessageOutput, 0, len(result.Messages))
	for i, msg := range result.Messages {
		out := MessageOutput{Role: string(msg.Role), Content: msg.Content}
		if i < len(result.Tokens) {
			out.Tokens = result.Tokens[i]
		}
		messages = append(messages, out)
	}
	return nil, BuildPromptOutput{Messages: messages, Trace: result.Trace, TotalTokens: result.TotalTokens}, nil
}

func (s *Server) handleActivate(ctx context.Context, req *sdk.CallToolRequest, input ActivateInput) (*sdk.CallToolResult, ActivateOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, ActivateOutput{}, fmt.Errorf("text is required")
	}
	name := orDefault(input.Book, s.defaults.Book)
	if name == "" {
		return nil, ActivateOutput{}, fmt.Errorf("book is required")
	}
	book, err := s.db.GetWorldBook(ctx, name)
	if err != nil {
		return nil, ActivateOutput{}, err
	}

	history := []chat.Message{{Role: chat.RoleUser, Content: input.Text}}
	act := s.pipeline.Activate(ctx, *book, history, s.defaults.Profile.Names())
	blocks := worldinfo.Assemble(*book, act)

	out := ActivateOutput{
		Activated:       append([]worldinfo.Record{}, act.Records...),
		Skipped:         append([]worldinfo.Record{}, act.Skipped...),
		Passes:          act.Passes,
		BudgetExhausted: act.BudgetExhausted,
		Before:          blocks.Before,
		After:           blocks.After,
	}
	return nil, out, nil
}

func (s *Server) handleListWorldBooks(ctx context.Context, req *sdk.CallToolRequest, input ListWorldBooksInput) (*sdk.CallToolResult, ListWorldBooksOutput, error) {
	books, err := s.db.ListWorldBooks(ctx)
	if err != nil {
		return nil, ListWorldBooksOutput{}, err
	}
	return nil, ListWorldBooksOutput{Books: append([]store.BookSummary{}, books...)}, nil
}

func (s *Server) handleListPresets(ctx context.Context, req *sdk.CallToolRequest, input ListPresetsInput) (*sdk.CallToolResult, ListPresetsOutput, error) {
	presets, err := s.db.ListPresets(ctx)
	if err != nil {
		return nil, ListPresetsOutput{}, err
	}
	output := make([]PresetOutput, 0, len(presets))
	for _, p := range presets {
		out := PresetOutput{Name: p.Name, Items: p.Items}
		if !p.UpdatedAt.IsZero() {
			out.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
		}
		output = append(output, out)
	}
	return nil, ListPresetsOutput{Presets: output}, nil
}

func (s *Server) handleSearchEntries(ctx context.Context, req *sdk.CallToolRequest, input SearchEntriesInput) (*sdk.CallToolResult, SearchEntriesOutput, error) {
	if input.Query == "" {
		return nil, SearchEntriesOutput{}, fmt.Errorf("query is required")
	}
	results, err := s.db.SearchEntries(ctx, input.Query, input.Book)
	if err != nil {
		return nil, SearchEntriesOutput{}, err
	}
	return nil, SearchEntriesOutput{Results: append([]store.SearchResult{}, results...)}, nil
}

func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, input ValidateInput) (*sdk.CallToolResult, ValidateOutput, error) {
	opts := validate.Options{
		Preset:           orDefault(input.Preset, s.defaults.Preset),
		ScorerConfigured: s.defaults.ScorerConfigured,
	}
	if book := orDefault(input.Book, s.defaults.Book); book != "" {
		opts.Books = []string{book}
	}
	report, err := validate.Run(ctx, s.db, opts)
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	return nil, ValidateOutput{Issues: report.Issues}, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
