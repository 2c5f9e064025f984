package prompt

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"promptloom/internal/chat"
	"promptloom/internal/preset"
)

func msg(role chat.Role, content string) chat.Message {
	return chat.Message{Role: role, Content: content}
}

func frag(id string, role chat.Role, depth, order int, content string) Fragment {
	return Fragment{Identifier: id, Role: role, Depth: depth, Order: order, Content: content, Position: preset.PositionRelative}
}

func anchor(position preset.InjectionPosition, order int) Fragment {
	return Fragment{Identifier: "history", Role: chat.RoleUser, Order: order, Position: position, History: true}
}

func TestInject(t *testing.T) {
	history := []chat.Message{
		msg(chat.RoleUser, "u1"),
		msg(chat.RoleAssistant, "a1"),
		msg(chat.RoleUser, "u2"),
	}

	tests := []struct {
		name      string
		fragments []Fragment
		history   []chat.Message
		want      []chat.Message
	}{
		{
			name:      "no fragments keeps history",
			fragments: nil,
			history:   history,
			want:      history,
		},
		{
			name:      "depth zero goes after newest",
			fragments: []Fragment{frag("z", chat.RoleSystem, 0, 100, "Z")},
			history:   history,
			want: []chat.Message{
				msg(chat.RoleUser, "u1"),
				msg(chat.RoleAssistant, "a1"),
				msg(chat.RoleUser, "u2"),
				msg(chat.RoleSystem, "Z"),
			},
		},
		{
			name:      "depth one goes before newest",
			fragments: []Fragment{frag("d1", chat.RoleSystem, 1, 100, "D1")},
			history:   history,
			want: []chat.Message{
				msg(chat.RoleUser, "u1"),
				msg(chat.RoleAssistant, "a1"),
				msg(chat.RoleSystem, "D1"),
				msg(chat.RoleUser, "u2"),
			},
		},
		{
			name: "depth beyond history goes first, deepest first",
			fragments: []Fragment{
				frag("d4", chat.RoleSystem, 4, 100, "D4"),
				frag("d9", chat.RoleUser, 9, 100, "D9"),
				frag("d3", chat.RoleSystem, 3, 100, "D3"),
			},
			history: history,
			want: []chat.Message{
				msg(chat.RoleUser, "D9"),
				msg(chat.RoleSystem, "D4"),
				msg(chat.RoleSystem, "D3"),
				msg(chat.RoleUser, "u1"),
				msg(chat.RoleAssistant, "a1"),
				msg(chat.RoleUser, "u2"),
			},
		},
		{
			name: "same depth grouped by role in order",
			fragments: []Fragment{
				frag("late", chat.RoleSystem, 0, 5, "second"),
				frag("user", chat.RoleUser, 0, 3, "nudge"),
				frag("early", chat.RoleSystem, 0, 1, "first"),
				frag("tie", chat.RoleSystem, 0, 5, "third"),
			},
			history: nil,
			want: []chat.Message{
				msg(chat.RoleSystem, "first\n\nsecond\n\nthird"),
				msg(chat.RoleUser, "nudge"),
			},
		},
		{
			name: "before and after bypass depth",
			fragments: []Fragment{
				{Identifier: "tail", Role: chat.RoleSystem, Depth: 0, Order: 1, Content: "TAIL", Position: preset.PositionAfter},
				{Identifier: "head2", Role: chat.RoleSystem, Depth: 7, Order: 1, Content: "HEAD2", Position: preset.PositionBefore},
				{Identifier: "head1", Role: chat.RoleSystem, Depth: 0, Order: 9, Content: "HEAD1", Position: preset.PositionBefore},
				frag("mid", chat.RoleSystem, 1, 1, "MID"),
			},
			history: history,
			want: []chat.Message{
				msg(chat.RoleSystem, "HEAD1"),
				msg(chat.RoleSystem, "HEAD2"),
				msg(chat.RoleUser, "u1"),
				msg(chat.RoleAssistant, "a1"),
				msg(chat.RoleSystem, "MID"),
				msg(chat.RoleUser, "u2"),
				msg(chat.RoleSystem, "TAIL"),
			},
		},
		{
			name: "empty fragments never produce messages",
			fragments: []Fragment{
				frag("blank", chat.RoleSystem, 0, 1, "   "),
				frag("empty", chat.RoleUser, 1, 1, ""),
			},
			history: history,
			want:    history,
		},
		{
			name: "anchor splits before fragments",
			fragments: []Fragment{
				{Identifier: "tail", Role: chat.RoleSystem, Order: 1, Content: "TAIL", Position: preset.PositionAfter},
				{Identifier: "post", Role: chat.RoleSystem, Order: 90, Content: "POST", Position: preset.PositionBefore},
				anchor(preset.PositionBefore, 50),
				{Identifier: "head", Role: chat.RoleSystem, Order: 1, Content: "HEAD", Position: preset.PositionBefore},
				frag("mid", chat.RoleSystem, 1, 1, "MID"),
			},
			history: history,
			want: []chat.Message{
				msg(chat.RoleSystem, "HEAD"),
				msg(chat.RoleUser, "u1"),
				msg(chat.RoleAssistant, "a1"),
				msg(chat.RoleSystem, "MID"),
				msg(chat.RoleUser, "u2"),
				msg(chat.RoleSystem, "POST"),
				msg(chat.RoleSystem, "TAIL"),
			},
		},
		{
			name: "anchor splits after fragments",
			fragments: []Fragment{
				{Identifier: "head", Role: chat.RoleSystem, Order: 1, Content: "HEAD", Position: preset.PositionBefore},
				{Identifier: "first", Role: chat.RoleSystem, Order: 1, Content: "FIRST", Position: preset.PositionAfter},
				anchor(preset.PositionAfter, 5),
				{Identifier: "last", Role: chat.RoleSystem, Order: 9, Content: "LAST", Position: preset.PositionAfter},
			},
			history: history,
			want: []chat.Message{
				msg(chat.RoleSystem, "HEAD"),
				msg(chat.RoleSystem, "FIRST"),
				msg(chat.RoleUser, "u1"),
				msg(chat.RoleAssistant, "a1"),
				msg(chat.RoleUser, "u2"),
				msg(chat.RoleSystem, "LAST"),
			},
		},
		{
			name: "relative anchor and extra anchors add nothing",
			fragments: []Fragment{
				anchor(preset.PositionRelative, 1),
				frag("z", chat.RoleSystem, 0, 100, "Z"),
				anchor(preset.PositionBefore, 200),
			},
			history: history,
			want: []chat.Message{
				msg(chat.RoleUser, "u1"),
				msg(chat.RoleAssistant, "a1"),
				msg(chat.RoleUser, "u2"),
				msg(chat.RoleSystem, "Z"),
			},
		},
		{
			name: "empty history orders depth descending",
			fragments: []Fragment{
				frag("d0", chat.RoleSystem, 0, 1, "D0"),
				frag("d1", chat.RoleUser, 1, 1, "D1"),
			},
			history: nil,
			want: []chat.Message{
				msg(chat.RoleUser, "D1"),
				msg(chat.RoleSystem, "D0"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Inject(tt.fragments, tt.history)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Inject mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInject_DepthZeroCloserThanDepthOne(t *testing.T) {
	history := []chat.Message{
		msg(chat.RoleUser, "u1"),
		msg(chat.RoleAssistant, "a1"),
		msg(chat.RoleUser, "u2"),
	}
	for _, orders := range [][2]int{{1, 1}, {1, 100}, {100, 1}, {-5, 50}} {
		fragments := []Fragment{
			frag("deep", chat.RoleAssistant, 1, orders[1], "DEEP"),
			frag("shallow", chat.RoleAssistant, 0, orders[0], "SHALLOW"),
		}
		out := Inject(fragments, history)
		shallow, deep := -1, -1
		for i, m := range out {
			switch m.Content {
			case "SHALLOW":
				shallow = i
			case "DEEP":
				deep = i
			}
		}
		if shallow <= deep {
			t.Fatalf("orders %v: expected depth 0 after depth 1, got positions %d and %d", orders, shallow, deep)
		}
	}
}
