package worldinfo

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"promptloom/internal/chat"
)

type stubScorer struct {
	ids     []string
	err     error
	calls   int
	queries []string
}

func (s *stubScorer) Score(ctx context.Context, query string, entries []Entry) ([]string, error) {
	s.calls++
	s.queries = append(s.queries, query)
	return s.ids, s.err
}

// flakyScorer fails its first call and then selects ids.
type flakyScorer struct {
	ids   []string
	calls int
}

func (s *flakyScorer) Score(ctx context.Context, query string, entries []Entry) ([]string, error) {
	s.calls++
	if s.calls == 1 {
		return nil, errors.New("boom")
	}
	return s.ids, nil
}

func userSays(texts ...string) []chat.Message {
	history := make([]chat.Message, 0, len(texts))
	for _, text := range texts {
		history = append(history, chat.Message{Role: chat.RoleUser, Content: text})
	}
	return history
}

func testBook(settings Settings, entries ...Entry) Book {
	return Book{Name: "test", Enabled: true, Settings: settings, Entries: entries}
}

func TestActivate_ConstantAndSelective(t *testing.T) {
	book := testBook(Settings{ScanDepth: 2},
		Entry{ID: "setting", Strategy: StrategyConstant, Content: "Setting: A medieval kingdom", Enabled: true},
		Entry{ID: "dragons", Strategy: StrategySelective, PrimaryKeys: []string{"dragon"}, Content: "Dragons are feared here", Enabled: true},
	)

	act := NewActivator(nil, nil).Activate(context.Background(), book, userSays("Tell me about dragons"), chat.Names{})
	if !reflect.DeepEqual(act.IDs(), []string{"setting", "dragons"}) {
		t.Fatalf("unexpected activation: %#v", act.IDs())
	}
	if act.Records[0].Reason != "constant" {
		t.Fatalf("unexpected reason %q", act.Records[0].Reason)
	}
	if act.Records[1].Reason != `primary key "dragon"` {
		t.Fatalf("unexpected reason %q", act.Records[1].Reason)
	}

	blocks := Assemble(book, act)
	if blocks.Before == "" {
		t.Fatalf("expected world info before block")
	}
}

func TestActivate_DisabledBook(t *testing.T) {
	book := testBook(Settings{ScanDepth: 2},
		Entry{ID: "setting", Strategy: StrategyConstant, Content: "always", Enabled: true},
	)
	book.Enabled = false

	act := NewActivator(nil, nil).Activate(context.Background(), book, userSays("hi"), chat.Names{})
	if act.Len() != 0 {
		t.Fatalf("expected nothing active, got %#v", act.IDs())
	}
}

func TestActivate_SkipsDisabledAndKeylessEntries(t *testing.T) {
	book := testBook(Settings{ScanDepth: 2},
		Entry{ID: "off", Strategy: StrategyConstant, Content: "x", Enabled: false},
		Entry{ID: "keyless", Strategy: StrategySelective, PrimaryKeys: []string{" "}, Content: "y", Enabled: true},
	)

	act := NewActivator(nil, nil).Activate(context.Background(), book, userSays("x y"), chat.Names{})
	if act.Len() != 0 {
		t.Fatalf("expected nothing active, got %#v", act.IDs())
	}
	if len(act.Skipped) != 2 {
		t.Fatalf("expected two skipped records, got %#v", act.Skipped)
	}
	if act.Skipped[0].Reason != "disabled" || act.Skipped[1].Reason != "no usable primary keys" {
		t.Fatalf("unexpected skip reasons: %#v", act.Skipped)
	}
}

func TestActivate_RecursionTerminatesOnCycle(t *testing.T) {
	book := testBook(Settings{ScanDepth: 1, MaxRecursionSteps: 2},
		Entry{ID: "a", Strategy: StrategySelective, PrimaryKeys: []string{"alpha"}, Content: "alpha is bound to beta", Enabled: true},
		Entry{ID: "b", Strategy: StrategySelective, PrimaryKeys: []string{"beta"}, Content: "beta answers to alpha", Enabled: true},
	)

	act := NewActivator(nil, nil).Activate(context.Background(), book, userSays("what is alpha?"), chat.Names{})
	if !reflect.DeepEqual(act.IDs(), []string{"a", "b"}) {
		t.Fatalf("expected both entries, got %#v", act.IDs())
	}
	if act.Records[1].Pass != 1 {
		t.Fatalf("expected b on recursion pass 1, got %d", act.Records[1].Pass)
	}
	if act.Passes > 3 {
		t.Fatalf("expected at most 3 passes, got %d", act.Passes)
	}
	if act.BudgetExhausted {
		t.Fatalf("expected fixed point before budget exhaustion")
	}
}

func TestActivate_RecursionBudget(t *testing.T) {
	chain := testBook(Settings{ScanDepth: 1, MaxRecursionSteps: 1},
		Entry{ID: "one", Strategy: StrategySelective, PrimaryKeys: []string{"one"}, Content: "leads to two", Enabled: true},
		Entry{ID: "two", Strategy: StrategySelective, PrimaryKeys: []string{"two"}, Content: "leads to three", Enabled: true},
		Entry{ID: "three", Strategy: StrategySelective, PrimaryKeys: []string{"three"}, Content: "the end", Enabled: true},
	)

	act := NewActivator(nil, nil).Activate(context.Background(), chain, userSays("one"), chat.Names{})
	if !reflect.DeepEqual(act.IDs(), []string{"one", "two"}) {
		t.Fatalf("expected budget to stop at two, got %#v", act.IDs())
	}
	if !act.BudgetExhausted {
		t.Fatalf("expected budget exhausted flag")
	}

	t.Run("no recursion when budget is zero", func(t *testing.T) {
		chain.Settings.MaxRecursionSteps = 0
		act := NewActivator(nil, nil).Activate(context.Background(), chain, userSays("one"), chat.Names{})
		if !reflect.DeepEqual(act.IDs(), []string{"one"}) {
			t.Fatalf("expected only the directly triggered entry, got %#v", act.IDs())
		}
	})
}

func TestActivate_RecursionControls(t *testing.T) {
	book := testBook(Settings{ScanDepth: 1, MaxRecursionSteps: 3},
		Entry{ID: "gate", Strategy: StrategyConstant, Content: "mentions tower and well", Enabled: true, PreventRecursion: true},
		Entry{ID: "hall", Strategy: StrategyConstant, Content: "mentions well", Enabled: true},
		Entry{ID: "tower", Strategy: StrategySelective, PrimaryKeys: []string{"tower"}, Content: "tower lore", Enabled: true},
		Entry{ID: "well", Strategy: StrategySelective, PrimaryKeys: []string{"well"}, Content: "well lore", Enabled: true, ExcludeRecursion: true},
	)

	act := NewActivator(nil, nil).Activate(context.Background(), book, userSays("hello"), chat.Names{})
	if !reflect.DeepEqual(act.IDs(), []string{"gate", "hall"}) {
		t.Fatalf("unexpected activation: %#v", act.IDs())
	}

	act = NewActivator(nil, nil).Activate(context.Background(), book, userSays("a well"), chat.Names{})
	if !reflect.DeepEqual(act.IDs(), []string{"gate", "hall", "well"}) {
		t.Fatalf("expected direct scan to activate well, got %#v", act.IDs())
	}
}

func TestActivate_Monotonic(t *testing.T) {
	book := testBook(Settings{ScanDepth: 1, MaxRecursionSteps: 5},
		Entry{ID: "self", Strategy: StrategySelective, PrimaryKeys: []string{"echo"}, Content: "echo echo", Enabled: true},
	)

	act := NewActivator(nil, nil).Activate(context.Background(), book, userSays("echo"), chat.Names{})
	if len(act.Records) != 1 {
		t.Fatalf("expected a single activation record, got %#v", act.Records)
	}
}

func TestActivate_Vectorized(t *testing.T) {
	book := testBook(Settings{ScanDepth: 1, MaxRecursionSteps: 1},
		Entry{ID: "v1", Strategy: StrategyVectorized, Content: "the sea is restless", Enabled: true},
		Entry{ID: "v2", Strategy: StrategyVectorized, Content: "mountains", Enabled: true},
		Entry{ID: "k", Strategy: StrategySelective, PrimaryKeys: []string{"restless"}, Content: "storms", Enabled: true},
	)

	t.Run("scorer selects entries", func(t *testing.T) {
		scorer := &stubScorer{ids: []string{"v1"}}
		act := NewActivator(scorer, nil).Activate(context.Background(), book, userSays("tell me about the ocean"), chat.Names{})
		if !reflect.DeepEqual(act.IDs(), []string{"v1", "k"}) {
			t.Fatalf("unexpected activation: %#v", act.IDs())
		}
		if act.Records[0].Reason != "vector similarity" {
			t.Fatalf("unexpected reason %q", act.Records[0].Reason)
		}
		if scorer.calls != 2 {
			t.Fatalf("expected scorer called on both passes, got %d", scorer.calls)
		}
	})

	t.Run("scorer error degrades", func(t *testing.T) {
		scorer := &stubScorer{err: errors.New("embedding service down")}
		act := NewActivator(scorer, nil).Activate(context.Background(), book, userSays("tell me about the ocean"), chat.Names{})
		if act.Len() != 0 {
			t.Fatalf("expected nothing active, got %#v", act.IDs())
		}
		if len(act.Skipped) != 2 {
			t.Fatalf("expected skipped vectorized entries, got %#v", act.Skipped)
		}
	})

	t.Run("scorer recovers on a later pass", func(t *testing.T) {
		recovering := testBook(Settings{ScanDepth: 1, MaxRecursionSteps: 1},
			Entry{ID: "c", Strategy: StrategyConstant, Content: "the tide turns", Enabled: true},
			Entry{ID: "v", Strategy: StrategyVectorized, Content: "the sea is restless", Enabled: true},
		)
		scorer := &flakyScorer{ids: []string{"v"}}
		act := NewActivator(scorer, nil).Activate(context.Background(), recovering, userSays("hello"), chat.Names{})
		if !reflect.DeepEqual(act.IDs(), []string{"c", "v"}) {
			t.Fatalf("unexpected activation: %#v", act.IDs())
		}
		if act.Records[1].Pass != 1 {
			t.Fatalf("expected v on recursion pass 1, got %d", act.Records[1].Pass)
		}
		if len(act.Skipped) != 0 {
			t.Fatalf("expected no skip for an active entry, got %#v", act.Skipped)
		}
	})

	t.Run("no scorer configured", func(t *testing.T) {
		act := NewActivator(nil, nil).Activate(context.Background(), book, userSays("ocean"), chat.Names{})
		if act.Len() != 0 {
			t.Fatalf("expected nothing active, got %#v", act.IDs())
		}
		if len(act.Skipped) != 2 {
			t.Fatalf("expected vectorized entries reported, got %#v", act.Skipped)
		}
	})
}

func TestActivate_UnsetStrategyScansAsSelective(t *testing.T) {
	book := testBook(Settings{ScanDepth: 1},
		Entry{ID: "dragons", PrimaryKeys: []string{"dragon"}, Content: "Dragons are feared here", Enabled: true},
		Entry{ID: "setting", Strategy: "Constant", Content: "A medieval kingdom", Enabled: true},
		Entry{ID: "keyless", Content: "never", Enabled: true},
		Entry{ID: "odd", Strategy: "sometimes", PrimaryKeys: []string{"dragon"}, Content: "odd", Enabled: true},
	)

	act := NewActivator(nil, nil).Activate(context.Background(), book, userSays("a dragon flew by"), chat.Names{})

	if !reflect.DeepEqual(act.IDs(), []string{"dragons", "setting"}) {
		t.Fatalf("unexpected activation: %#v", act.IDs())
	}
	want := []Record{
		{Index: 2, EntryID: "keyless", Title: "keyless", Reason: "no usable primary keys"},
		{Index: 3, EntryID: "odd", Title: "odd", Reason: `unknown strategy "sometimes"`},
	}
	if !reflect.DeepEqual(act.Skipped, want) {
		t.Fatalf("unexpected skips: %#v", act.Skipped)
	}
	if book.Entries[0].Strategy != "" || book.Entries[1].Strategy != "Constant" {
		t.Fatalf("expected caller's entries untouched, got %#v", book.Entries)
	}
}

func TestActivate_Deterministic(t *testing.T) {
	book := testBook(Settings{ScanDepth: 3, MaxRecursionSteps: 2},
		Entry{ID: "a", Strategy: StrategyConstant, Content: "the river flows", Enabled: true},
		Entry{ID: "b", Strategy: StrategySelective, PrimaryKeys: []string{"river"}, Content: "the bridge", Enabled: true},
		Entry{ID: "c", Strategy: StrategySelective, PrimaryKeys: []string{"bridge"}, Content: "trolls", Enabled: true},
	)
	history := userSays("hi", "where is the river")

	first := NewActivator(nil, nil).Activate(context.Background(), book, history, chat.Names{})
	second := NewActivator(nil, nil).Activate(context.Background(), book, history, chat.Names{})
	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Fatalf("activation not deterministic:\n%#v\n%#v", first.Records, second.Records)
	}
}
