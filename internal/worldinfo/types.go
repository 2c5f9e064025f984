package worldinfo

import "strings"

type Strategy string

const (
	StrategyConstant   Strategy = "constant"
	StrategySelective  Strategy = "selective"
	StrategyVectorized Strategy = "vectorized"
)

func ParseStrategy(value string) (Strategy, bool) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case StrategyConstant:
		return StrategyConstant, true
	case StrategySelective, "":
		return StrategySelective, true
	case StrategyVectorized:
		return StrategyVectorized, true
	default:
		return "", false
	}
}

type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
)

func ParsePosition(value string) (Position, bool) {
	switch Position(strings.ToLower(strings.TrimSpace(value))) {
	case PositionBefore, "":
		return PositionBefore, true
	case PositionAfter:
		return PositionAfter, true
	default:
		return "", false
	}
}

type Entry struct {
	ID            string   `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	Content       string   `json:"content" yaml:"content"`
	Strategy      Strategy `json:"strategy" yaml:"strategy"`
	PrimaryKeys   []string `json:"primary_keys" yaml:"keys"`
	SecondaryKeys []string `json:"secondary_keys" yaml:"secondary_keys"`
	Position      Position `json:"position" yaml:"position"`
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	Order         int      `json:"order" yaml:"order"`

	// CaseSensitive and MatchWholeWords override the book defaults when set.
	CaseSensitive   *bool `json:"case_sensitive,omitempty" yaml:"case_sensitive"`
	MatchWholeWords *bool `json:"match_whole_words,omitempty" yaml:"match_whole_words"`

	ExcludeRecursion bool `json:"exclude_recursion,omitempty" yaml:"exclude_recursion"`
	PreventRecursion bool `json:"prevent_recursion,omitempty" yaml:"prevent_recursion"`

	SourceFile string `json:"source_file,omitempty" yaml:"-"`
	SourceHash string `json:"source_hash,omitempty" yaml:"-"`
}

type Settings struct {
	ScanDepth         int  `json:"scan_depth" yaml:"scan_depth"`
	MaxRecursionSteps int  `json:"max_recursion_steps" yaml:"max_recursion_steps"`
	IncludeNames      bool `json:"include_names" yaml:"include_names"`
	CaseSensitive     bool `json:"case_sensitive" yaml:"case_sensitive"`
	MatchWholeWords   bool `json:"match_whole_words" yaml:"match_whole_words"`
}

// Book is a named, ordered set of entries. Entry order is the source order used by Assemble.
type Book struct {
	Name     string   `json:"name"`
	Enabled  bool     `json:"enabled"`
	Settings Settings `json:"settings"`
	Entries  []Entry  `json:"entries"`
}

// MatchOptions resolves the effective matching flags for an entry under the book defaults.
func (s Settings) MatchOptions(e Entry) MatchOptions {
	opts := MatchOptions{
		CaseSensitive:   s.CaseSensitive,
		MatchWholeWords: s.MatchWholeWords,
	}
	if e.CaseSensitive != nil {
		opts.CaseSensitive = *e.CaseSensitive
	}
	if e.MatchWholeWords != nil {
		opts.MatchWholeWords = *e.MatchWholeWords
	}
	return opts
}

func (e Entry) label() string {
	if strings.TrimSpace(e.Title) != "" {
		return e.Title
	}
	return e.ID
}
