package worldinfo

import (
	"context"
	"testing"

	"promptloom/internal/chat"
)

func TestAssemble(t *testing.T) {
	book := testBook(Settings{ScanDepth: 1},
		Entry{ID: "1", Strategy: StrategyConstant, Content: "first before", Position: PositionBefore, Enabled: true},
		Entry{ID: "2", Strategy: StrategyConstant, Content: "first after", Position: PositionAfter, Enabled: true},
		Entry{ID: "3", Strategy: StrategySelective, PrimaryKeys: []string{"late"}, Content: "second before", Position: PositionBefore, Enabled: true},
		Entry{ID: "4", Strategy: StrategyConstant, Content: "  ", Position: PositionBefore, Enabled: true},
		Entry{ID: "5", Strategy: StrategyConstant, Content: "second after", Position: PositionAfter, Enabled: true},
	)

	act := NewActivator(nil, nil).Activate(context.Background(), book, userSays("late"), chat.Names{})
	blocks := Assemble(book, act)

	if blocks.Before != "first before\n\nsecond before" {
		t.Fatalf("unexpected before block %q", blocks.Before)
	}
	if blocks.After != "first after\n\nsecond after" {
		t.Fatalf("unexpected after block %q", blocks.After)
	}
}

func TestAssemble_EmptyActivation(t *testing.T) {
	blocks := Assemble(testBook(Settings{}), nil)
	if blocks.Before != "" || blocks.After != "" {
		t.Fatalf("expected empty blocks, got %+v", blocks)
	}
}
