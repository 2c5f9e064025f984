package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"promptloom/internal/worldinfo"
)

// Document is one lore file: YAML frontmatter describing a world-book entry followed by
// the entry content.
type Document struct {
	Frontmatter map[string]any
	Entry       worldinfo.Entry
	SourceFile  string
}

var (
	ErrNoFrontmatter   = errors.New("no frontmatter found")
	ErrInvalidYAML     = errors.New("invalid YAML in frontmatter")
	ErrMissingTitle    = errors.New("frontmatter missing required 'title' field")
	ErrInvalidStrategy = errors.New("frontmatter has unknown 'strategy'")
	ErrInvalidPosition = errors.New("frontmatter has unknown 'position'")
)

type entryFields struct {
	ID               string `yaml:"id"`
	Strategy         string `yaml:"strategy"`
	Position         string `yaml:"position"`
	Enabled          *bool  `yaml:"enabled"`
	Order            int    `yaml:"order"`
	CaseSensitive    *bool  `yaml:"case_sensitive"`
	MatchWholeWords  *bool  `yaml:"match_whole_words"`
	ExcludeRecursion bool   `yaml:"exclude_recursion"`
	PreventRecursion bool   `yaml:"prevent_recursion"`
}

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.SourceFile = path
	doc.Entry.SourceFile = path
	return doc, nil
}

func Parse(content []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(content, "\ufeff\n\r\t ")
	trimmed = bytes.ReplaceAll(trimmed, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(trimmed, []byte("---\n")) {
		return nil, ErrNoFrontmatter
	}

	rest := trimmed[len("---\n"):]
	end := bytes.Index(rest, []byte("---\n"))
	if end == -1 {
		return nil, ErrNoFrontmatter
	}

	yamlBytes := rest[:end]
	body := string(rest[end+len("---\n"):])

	var frontmatter map[string]any
	if err := yaml.Unmarshal(yamlBytes, &frontmatter); err != nil {
		return nil, ErrInvalidYAML
	}
	var fields entryFields
	if err := yaml.Unmarshal(yamlBytes, &fields); err != nil {
		return nil, ErrInvalidYAML
	}

	title, ok := frontmatter["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return nil, ErrMissingTitle
	}

	strategy, ok := worldinfo.ParseStrategy(fields.Strategy)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStrategy, fields.Strategy)
	}
	position, ok := worldinfo.ParsePosition(fields.Position)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPosition, fields.Position)
	}

	primary, err := parseKeys("keys", frontmatter["keys"])
	if err != nil {
		return nil, err
	}
	secondary, err := parseKeys("secondary_keys", frontmatter["secondary_keys"])
	if err != nil {
		return nil, err
	}

	enabled := fields.Enabled == nil || *fields.Enabled

	return &Document{
		Frontmatter: frontmatter,
		Entry: worldinfo.Entry{
			ID:               strings.TrimSpace(fields.ID),
			Title:            strings.TrimSpace(title),
			Content:          strings.TrimSpace(body),
			Strategy:         strategy,
			PrimaryKeys:      primary,
			SecondaryKeys:    secondary,
			Position:         position,
			Enabled:          enabled,
			Order:            fields.Order,
			CaseSensitive:    fields.CaseSensitive,
			MatchWholeWords:  fields.MatchWholeWords,
			ExcludeRecursion: fields.ExcludeRecursion,
			PreventRecursion: fields.PreventRecursion,
		},
	}, nil
}

// parseKeys accepts a single key or a list of keys. Numbers are taken as written.
func parseKeys(field string, value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []any:
		keys := make([]string, 0, len(v))
		for _, item := range v {
			switch k := item.(type) {
			case string:
				if strings.TrimSpace(k) == "" {
					continue
				}
				keys = append(keys, k)
			case int, float64:
				keys = append(keys, fmt.Sprint(k))
			default:
				return nil, fmt.Errorf("%s must be strings", field)
			}
		}
		if len(keys) == 0 {
			return nil, nil
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("%s must be string or list of strings", field)
	}
}
