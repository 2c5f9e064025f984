package prompt

import (
	"sort"
	"strings"

	"promptloom/internal/chat"
	"promptloom/internal/preset"
)

const joinSeparator = "\n\n"

// Inject interleaves fragments with history. A relative fragment at depth d is placed so
// that d history messages follow it; depths beyond the history length land before the
// oldest message. Fragments positioned before or after bypass depth placement and wrap
// the whole sequence. A chatHistory anchor positioned before or after marks where the
// history sits among those wrapping fragments; the history is emitted only there.
func Inject(fragments []Fragment, history []chat.Message) []chat.Message {
	sorted := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		if !f.History && strings.TrimSpace(f.Content) == "" {
			continue
		}
		sorted = append(sorted, f)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Depth != sorted[j].Depth {
			return sorted[i].Depth < sorted[j].Depth
		}
		return sorted[i].Order < sorted[j].Order
	})

	var before, after []Fragment
	byDepth := make(map[int][]Fragment)
	var depths []int
	anchored := false
	for _, f := range sorted {
		if f.History {
			if anchored {
				continue
			}
			anchored = true
		}
		switch f.Position {
		case preset.PositionBefore:
			before = append(before, f)
		case preset.PositionAfter:
			after = append(after, f)
		default:
			if f.History {
				continue
			}
			if _, ok := byDepth[f.Depth]; !ok {
				depths = append(depths, f.Depth)
			}
			byDepth[f.Depth] = append(byDepth[f.Depth], f)
		}
	}

	n := len(history)
	slots := make(map[int][]int, len(depths))
	for i := len(depths) - 1; i >= 0; i-- {
		d := depths[i]
		at := n - d
		if at < 0 {
			at = 0
		}
		slots[at] = append(slots[at], d)
	}

	head, tail := splitAtAnchor(before, after)
	out := make([]chat.Message, 0, n+len(sorted))
	for _, f := range head {
		out = append(out, chat.Message{Role: f.Role, Content: f.Content})
	}
	for at := 0; at <= n; at++ {
		for _, d := range slots[at] {
			out = append(out, groupByRole(byDepth[d])...)
		}
		if at < n {
			out = append(out, history[at])
		}
	}
	for _, f := range tail {
		out = append(out, chat.Message{Role: f.Role, Content: f.Content})
	}
	return out
}

// splitAtAnchor returns the wrapping fragments emitted ahead of and behind the history.
func splitAtAnchor(before, after []Fragment) (head, tail []Fragment) {
	for i, f := range before {
		if f.History {
			tail = append(tail, before[i+1:]...)
			return before[:i], append(tail, after...)
		}
	}
	for i, f := range after {
		if f.History {
			head = append(head, before...)
			return append(head, after[:i]...), after[i+1:]
		}
	}
	return before, after
}

// groupByRole collapses fragments sharing a role into one message each, ordered by the
// first fragment of each role.
func groupByRole(fragments []Fragment) []chat.Message {
	var roles []chat.Role
	parts := make(map[chat.Role][]string)
	for _, f := range fragments {
		if _, ok := parts[f.Role]; !ok {
			roles = append(roles, f.Role)
		}
		parts[f.Role] = append(parts[f.Role], f.Content)
	}
	messages := make([]chat.Message, 0, len(roles))
	for _, role := range roles {
		messages = append(messages, chat.Message{Role: role, Content: strings.Join(parts[role], joinSeparator)})
	}
	return messages
}
