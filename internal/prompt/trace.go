package prompt

import "promptloom/internal/worldinfo"

// Trace explains a turn: which entries activated and why, which were passed over, and
// which preset fragments were dropped.
type Trace struct {
	Activated       []worldinfo.Record `json:"activated"`
	Skipped         []worldinfo.Record `json:"skipped,omitempty"`
	Passes          int                `json:"passes"`
	BudgetExhausted bool               `json:"budget_exhausted,omitempty"`
	Fragments       []Note             `json:"fragments,omitempty"`
}

func newTrace(act *worldinfo.Activation, notes []Note) Trace {
	trace := Trace{Fragments: notes}
	if act == nil {
		return trace
	}
	trace.Activated = act.Records
	trace.Skipped = act.Skipped
	trace.Passes = act.Passes
	trace.BudgetExhausted = act.BudgetExhausted
	return trace
}

// Reasons maps activated entry ids to their activation reason.
func (t Trace) Reasons() map[string]string {
	reasons := make(map[string]string, len(t.Activated))
	for _, rec := range t.Activated {
		reasons[rec.EntryID] = rec.Reason
	}
	return reasons
}
