package worldinfo

import "strings"

type Blocks struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

const blockSeparator = "\n\n"

// Assemble joins the content of the activated entries of book, grouped by position and
// kept in book order.
func Assemble(book Book, act *Activation) Blocks {
	var before, after []string
	for i, entry := range book.Entries {
		if !act.IsActive(i) || strings.TrimSpace(entry.Content) == "" {
			continue
		}
		if entry.Position == PositionAfter {
			after = append(after, entry.Content)
			continue
		}
		before = append(before, entry.Content)
	}
	return Blocks{
		Before: strings.Join(before, blockSeparator),
		After:  strings.Join(after, blockSeparator),
	}
}
