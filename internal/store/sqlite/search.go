package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"promptloom/internal/store"
)

// SearchEntries runs a full-text query over entry titles, primary keys and content.
// See ftsQuery for the accepted syntax.
func (c *Client) SearchEntries(ctx context.Context, query, book string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	match := ftsQuery(query)
	if match == "" {
		return nil, fmt.Errorf("query has no searchable terms: %q", query)
	}

	sqlQuery := `
	SELECT e.book, e.entry_id, e.title, e.strategy,
		   bm25(entries_fts, 10.0, 4.0, 1.0) AS score,
		   snippet(entries_fts, 2, '**', '**', '...', 50) AS snippet
	FROM entries_fts
	JOIN entries e ON entries_fts.rowid = e.id
	WHERE entries_fts MATCH ?
	  AND (? = '' OR e.book = ?)
	ORDER BY score ASC, e.book ASC, e.entry_id ASC
	LIMIT 50
	`

	rows, err := c.db.QueryContext(ctx, sqlQuery, match, book, book)
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		if err := rows.Scan(&r.Book, &r.EntryID, &r.Title, &r.Strategy, &r.Score, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		// bm25 ranks better matches lower.
		r.Score = -r.Score
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	return results, nil
}

// searchColumns maps the column qualifiers accepted in queries to entries_fts columns.
var searchColumns = map[string]string{
	"title":   "title",
	"key":     "primary_keys",
	"keys":    "primary_keys",
	"content": "content",
}

type queryTerm struct {
	text   string
	phrase bool
	negate bool
	column string
}

// ftsQuery rewrites web-search syntax into an FTS5 MATCH expression. Terms are ANDed
// unless joined by OR; "quoted phrases" stay phrases; -term and NOT term exclude;
// key:, title: and content: restrict a term to one column. Exclusions apply to the
// whole positive expression. It returns "" when nothing positive is left to match.
func ftsQuery(query string) string {
	var positive, negative []string
	operand := false
	pendingNot := false

	for _, term := range splitQuery(query) {
		if !term.phrase && term.column == "" && !term.negate {
			switch op := strings.ToUpper(term.text); op {
			case "AND", "OR":
				if operand {
					positive = append(positive, op)
					operand = false
				}
				continue
			case "NOT":
				pendingNot = true
				continue
			}
		}

		expr := term.expr()
		if term.negate || pendingNot {
			pendingNot = false
			negative = append(negative, expr)
			continue
		}
		if operand {
			positive = append(positive, "AND")
		}
		positive = append(positive, expr)
		operand = true
	}

	if n := len(positive); n > 0 && !operand {
		positive = positive[:n-1]
	}
	if len(positive) == 0 {
		return ""
	}

	match := strings.Join(positive, " ")
	if len(negative) > 0 && len(positive) > 1 {
		match = "(" + match + ")"
	}
	for _, expr := range negative {
		match += " NOT " + expr
	}
	return match
}

func splitQuery(query string) []queryTerm {
	var terms []queryTerm
	runes := []rune(query)
	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}

		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) && runes[i] != '"' {
			i++
		}
		word := string(runes[start:i])

		if i < len(runes) && runes[i] == '"' {
			// An unterminated quote runs to the end of the query.
			end := i + 1
			for end < len(runes) && runes[end] != '"' {
				end++
			}
			term := qualify(word)
			term.text = strings.TrimSpace(string(runes[i+1 : min(end, len(runes))]))
			term.phrase = true
			i = end + 1
			if term.text != "" {
				terms = append(terms, term)
			}
			continue
		}

		term := qualify(word)
		if term.text != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// qualify strips a leading "-" and a known "column:" qualifier from word.
func qualify(word string) queryTerm {
	var term queryTerm
	if rest, ok := strings.CutPrefix(word, "-"); ok {
		term.negate = true
		word = rest
	}
	if name, rest, ok := strings.Cut(word, ":"); ok {
		if column, known := searchColumns[strings.ToLower(name)]; known {
			term.column = column
			word = rest
		}
	}
	term.text = word
	return term
}

func (t queryTerm) expr() string {
	text := t.text
	prefix := ""
	if !t.phrase {
		if rest, ok := strings.CutSuffix(text, "*"); ok && rest != "" {
			text = rest
			prefix = "*"
		}
	}

	var expr string
	if !t.phrase && isBareword(text) {
		expr = text + prefix
	} else {
		expr = `"` + strings.ReplaceAll(text, `"`, `""`) + `"` + prefix
	}
	if t.column != "" {
		expr = t.column + ":" + expr
	}
	return expr
}

// isBareword reports whether s can appear unquoted in an FTS5 expression.
func isBareword(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r >= 0x80 || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
