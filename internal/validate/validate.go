package validate

import (
	"context"
	"fmt"
	"strings"

	"promptloom/internal/chat"
	"promptloom/internal/preset"
	"promptloom/internal/worldinfo"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeDuplicateEntryID    = "duplicate_entry_id"
	codeNoPrimaryKeys       = "no_primary_keys"
	codeNoScorer            = "no_scorer_configured"
	codeUnknownStrategy     = "unknown_strategy"
	codeUnknownPosition     = "unknown_position"
	codeEmptyContent        = "empty_content"
	codeDuplicateIdentifier = "duplicate_identifier"
	codePlaceholderNotImpl  = "placeholder_not_implemented"
	codeUnknownPlaceholder  = "unknown_placeholder"
	codeDefaultedInjection  = "defaulted_injection"
	codeInvalidRole         = "invalid_role"
	codeInvalidInjectionPos = "invalid_injection_position"
	codeDuplicateAnchor     = "duplicate_history_anchor"
)

// Issue describes one problem. Scope names the book or preset it belongs to and Target
// the entry id or item identifier.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Scope    string   `json:"scope"`
	Target   string   `json:"target,omitempty"`
	FilePath string   `json:"file_path,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r *Report) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Source is the read side of the store needed to validate stored books and presets.
type Source interface {
	GetWorldBook(ctx context.Context, name string) (*worldinfo.Book, error)
	GetPreset(ctx context.Context, name string) (*preset.Preset, error)
}

type Options struct {
	Books            []string
	Preset           string
	ScorerConfigured bool
}

// Run loads the named books and preset and reports configuration problems. Problems in
// the data are issues; only failures to load are errors.
func Run(ctx context.Context, src Source, opts Options) (*Report, error) {
	if src == nil {
		return nil, fmt.Errorf("source is required")
	}

	issues := make([]Issue, 0)
	for _, name := range opts.Books {
		book, err := src.GetWorldBook(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("get world book %s: %w", name, err)
		}
		issues = append(issues, CheckBook(*book, opts.ScorerConfigured)...)
	}

	if strings.TrimSpace(opts.Preset) != "" {
		p, err := src.GetPreset(ctx, opts.Preset)
		if err != nil {
			return nil, fmt.Errorf("get preset %s: %w", opts.Preset, err)
		}
		issues = append(issues, CheckPreset(*p)...)
	}

	return &Report{Issues: issues}, nil
}

func CheckBook(book worldinfo.Book, scorerConfigured bool) []Issue {
	var issues []Issue
	seen := make(map[string]string, len(book.Entries))

	for _, entry := range book.Entries {
		issue := func(severity Severity, code, message string) {
			issues = append(issues, Issue{
				Severity: severity,
				Code:     code,
				Message:  message,
				Scope:    book.Name,
				Target:   entry.ID,
				FilePath: entry.SourceFile,
			})
		}

		if other, ok := seen[entry.ID]; ok {
			issue(SeverityError, codeDuplicateEntryID, fmt.Sprintf("entry id also used by %s", other))
		} else {
			seen[entry.ID] = entryLabel(entry)
		}

		strategy, ok := worldinfo.ParseStrategy(string(entry.Strategy))
		if !ok {
			issue(SeverityError, codeUnknownStrategy, fmt.Sprintf("unknown strategy: %s", entry.Strategy))
		}
		if _, ok := worldinfo.ParsePosition(string(entry.Position)); !ok {
			issue(SeverityError, codeUnknownPosition, fmt.Sprintf("unknown position: %s", entry.Position))
		}

		if !entry.Enabled {
			continue
		}
		switch strategy {
		case worldinfo.StrategySelective:
			if !worldinfo.HasUsableKeys(entry.PrimaryKeys) {
				issue(SeverityWarn, codeNoPrimaryKeys, "selective entry has no usable primary keys and can never activate")
			}
		case worldinfo.StrategyVectorized:
			if !scorerConfigured {
				issue(SeverityWarn, codeNoScorer, "vectorized entry needs a similarity scorer")
			}
		}
		if strings.TrimSpace(entry.Content) == "" {
			issue(SeverityWarn, codeEmptyContent, "entry has no content")
		}
	}

	return issues
}

func CheckPreset(p preset.Preset) []Issue {
	var issues []Issue
	seen := make(map[string]struct{}, len(p.Items))
	anchored := false

	for _, item := range p.Items {
		issue := func(severity Severity, code, message string) {
			issues = append(issues, Issue{
				Severity: severity,
				Code:     code,
				Message:  message,
				Scope:    p.Name,
				Target:   item.Identifier,
			})
		}

		if _, ok := seen[item.Identifier]; ok {
			issue(SeverityError, codeDuplicateIdentifier, "identifier used by more than one item")
		}
		seen[item.Identifier] = struct{}{}

		if role := chat.Role(strings.ToLower(strings.TrimSpace(string(item.Role)))); role != "" && !role.Valid() {
			issue(SeverityError, codeInvalidRole, fmt.Sprintf("invalid role %q, system is used", item.Role))
		}
		if _, ok := preset.ParsePosition(string(item.InjectionPosition)); !ok {
			issue(SeverityError, codeInvalidInjectionPos, fmt.Sprintf("invalid injection_position %q, relative is used", item.InjectionPosition))
		}

		if !item.Enabled || item.Marker {
			continue
		}
		ph := item.Placeholder()
		if _, ok := ph.(preset.ChatHistory); ok && item.Implemented {
			if anchored {
				issue(SeverityWarn, codeDuplicateAnchor, "only the first chatHistory item places the history; this one is ignored")
			}
			anchored = true
			continue
		}
		if ph != nil {
			if _, unsupported := ph.(preset.Unsupported); unsupported {
				issue(SeverityWarn, codeUnknownPlaceholder, fmt.Sprintf("placeholder type %q is not supported and resolves to nothing", item.PlaceholderType))
			} else if !item.Implemented {
				issue(SeverityWarn, codePlaceholderNotImpl, fmt.Sprintf("placeholder %q is not implemented and resolves to nothing", ph.Tag()))
			}
		}
		if item.Position() == preset.PositionRelative {
			var missing []string
			if item.InjectionDepth == nil {
				missing = append(missing, fmt.Sprintf("injection_depth defaults to %d", preset.DefaultDepth))
			} else if *item.InjectionDepth < 0 {
				missing = append(missing, fmt.Sprintf("negative injection_depth treated as %d", preset.DefaultDepth))
			}
			if item.InjectionOrder == nil {
				missing = append(missing, fmt.Sprintf("injection_order defaults to %d", preset.DefaultOrder))
			}
			if len(missing) > 0 {
				issue(SeverityWarn, codeDefaultedInjection, strings.Join(missing, "; "))
			}
		}
	}

	return issues
}

func entryLabel(e worldinfo.Entry) string {
	if e.SourceFile != "" {
		return e.SourceFile
	}
	if e.Title != "" {
		return e.Title
	}
	return e.ID
}
