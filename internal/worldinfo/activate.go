package worldinfo

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"promptloom/internal/chat"
)

// Scorer decides which vectorized entries are similar enough to the query to activate.
// It returns the ids of the entries to activate.
type Scorer interface {
	Score(ctx context.Context, query string, entries []Entry) ([]string, error)
}

type Record struct {
	Index   int    `json:"index"`
	EntryID string `json:"entry_id"`
	Title   string `json:"title"`
	Pass    int    `json:"pass"`
	Reason  string `json:"reason"`
}

type Activation struct {
	Records []Record `json:"records"`
	Skipped []Record `json:"skipped,omitempty"`
	// Passes counts the scans performed, the initial scan included.
	Passes          int  `json:"passes"`
	BudgetExhausted bool `json:"budget_exhausted,omitempty"`

	active map[int]int
}

// IsActive reports whether the entry at index i of the scanned book was activated.
func (a *Activation) IsActive(i int) bool {
	if a == nil {
		return false
	}
	_, ok := a.active[i]
	return ok
}

// IDs returns the activated entry ids in activation order.
func (a *Activation) IDs() []string {
	if a == nil {
		return nil
	}
	ids := make([]string, 0, len(a.Records))
	for _, rec := range a.Records {
		ids = append(ids, rec.EntryID)
	}
	return ids
}

func (a *Activation) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Records)
}

type Activator struct {
	scorer Scorer
	logger *zap.Logger
}

func NewActivator(scorer Scorer, logger *zap.Logger) *Activator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activator{scorer: scorer, logger: logger}
}

func (a *Activator) Activate(ctx context.Context, book Book, history []chat.Message, names chat.Names) *Activation {
	act := &Activation{active: make(map[int]int)}
	if !book.Enabled {
		a.logger.Debug("world book disabled", zap.String("book", book.Name))
		return act
	}
	book.Entries = normalizeStrategies(book.Entries)

	for i, entry := range book.Entries {
		switch {
		case !entry.Enabled:
			act.skip(i, entry, "disabled")
		case entry.Strategy == StrategySelective && !HasUsableKeys(entry.PrimaryKeys):
			act.skip(i, entry, "no usable primary keys")
		case entry.Strategy == StrategyVectorized && a.scorer == nil:
			act.skip(i, entry, "no similarity scorer configured")
		case entry.Strategy != StrategyConstant && entry.Strategy != StrategySelective && entry.Strategy != StrategyVectorized:
			act.skip(i, entry, fmt.Sprintf("unknown strategy %q", entry.Strategy))
		}
	}

	window := BuildWindow(history, book.Settings, names)
	newly := a.scan(ctx, book, window, 0, act)
	act.Passes = 1

	for step := 1; step <= book.Settings.MaxRecursionSteps; step++ {
		addition := recursionText(book.Entries, newly)
		if addition == "" {
			break
		}
		window = extendWindow(window, addition)
		newly = a.scan(ctx, book, window, step, act)
		act.Passes++
		if len(newly) == 0 {
			break
		}
		if step == book.Settings.MaxRecursionSteps {
			act.BudgetExhausted = true
		}
	}

	a.logger.Debug("world info activated",
		zap.String("book", book.Name),
		zap.Int("active", len(act.Records)),
		zap.Int("passes", act.Passes),
		zap.Bool("budget_exhausted", act.BudgetExhausted),
	)
	return act
}

// scan evaluates every not-yet-active entry against window and returns the indices
// activated during this pass, in book order.
func (a *Activator) scan(ctx context.Context, book Book, window string, pass int, act *Activation) []int {
	var newly []int
	var candidates []int

	for i, entry := range book.Entries {
		if !entry.Enabled || act.IsActive(i) {
			continue
		}
		if pass > 0 && entry.ExcludeRecursion {
			continue
		}
		switch entry.Strategy {
		case StrategyConstant:
			if pass == 0 {
				act.activate(i, entry, pass, "constant")
				newly = append(newly, i)
			}
		case StrategySelective:
			if reason, ok := keywordReason(window, entry, book.Settings.MatchOptions(entry)); ok {
				act.activate(i, entry, pass, reason)
				newly = append(newly, i)
			}
		case StrategyVectorized:
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 || a.scorer == nil || strings.TrimSpace(window) == "" {
		return newly
	}

	entries := make([]Entry, 0, len(candidates))
	for _, i := range candidates {
		entries = append(entries, book.Entries[i])
	}
	ids, err := a.scorer.Score(ctx, window, entries)
	if err != nil {
		a.logger.Warn("similarity scorer failed", zap.String("book", book.Name), zap.Int("pass", pass), zap.Error(err))
		for _, i := range candidates {
			act.skip(i, book.Entries[i], fmt.Sprintf("scorer error on pass %d: %v", pass, err))
		}
		return newly
	}

	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}
	for _, i := range candidates {
		if _, ok := selected[book.Entries[i].ID]; !ok {
			continue
		}
		act.activate(i, book.Entries[i], pass, "vector similarity")
		newly = append(newly, i)
	}
	return newly
}

func keywordReason(window string, entry Entry, opts MatchOptions) (string, bool) {
	if !Match(window, entry.PrimaryKeys, entry.SecondaryKeys, opts) {
		return "", false
	}
	reason := fmt.Sprintf("primary key %q", strings.TrimSpace(MatchedKey(window, entry.PrimaryKeys, opts)))
	if HasUsableKeys(entry.SecondaryKeys) {
		reason += fmt.Sprintf(" with secondary key %q", strings.TrimSpace(MatchedKey(window, entry.SecondaryKeys, opts)))
	}
	return reason, true
}

func recursionText(entries []Entry, indices []int) string {
	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		entry := entries[i]
		if entry.PreventRecursion || strings.TrimSpace(entry.Content) == "" {
			continue
		}
		parts = append(parts, entry.Content)
	}
	return strings.Join(parts, "\n")
}

// normalizeStrategies returns a copy of entries with every known strategy in canonical
// form, so an unset strategy scans as selective. Unknown strategies are kept as given.
func normalizeStrategies(entries []Entry) []Entry {
	out := slices.Clone(entries)
	for i := range out {
		if strategy, ok := ParseStrategy(string(out[i].Strategy)); ok {
			out[i].Strategy = strategy
		}
	}
	return out
}

// activate records entry i as active. A skip recorded on an earlier pass, such as a
// scorer failure, is dropped.
func (a *Activation) activate(i int, entry Entry, pass int, reason string) {
	if _, ok := a.active[i]; ok {
		return
	}
	a.Skipped = slices.DeleteFunc(a.Skipped, func(rec Record) bool { return rec.Index == i })
	a.active[i] = pass
	if pass > 0 {
		reason = fmt.Sprintf("%s (recursion pass %d)", reason, pass)
	}
	a.Records = append(a.Records, Record{
		Index:   i,
		EntryID: entry.ID,
		Title:   entry.label(),
		Pass:    pass,
		Reason:  reason,
	})
}

// skip records why entry i is inactive. A later skip for the same entry replaces the
// earlier one.
func (a *Activation) skip(i int, entry Entry, reason string) {
	rec := Record{
		Index:   i,
		EntryID: entry.ID,
		Title:   entry.label(),
		Reason:  reason,
	}
	for j := range a.Skipped {
		if a.Skipped[j].Index == i {
			a.Skipped[j] = rec
			return
		}
	}
	a.Skipped = append(a.Skipped, rec)
}
