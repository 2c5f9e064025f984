package prompt

import (
	"context"

	"go.uber.org/zap"

	"promptloom/internal/chat"
	"promptloom/internal/preset"
	"promptloom/internal/worldinfo"
)

// Profile is the character and persona data supplied by the caller for one turn.
type Profile struct {
	UserName           string `json:"user_name" yaml:"user_name"`
	CharName           string `json:"char_name" yaml:"char_name"`
	CharDescription    string `json:"char_description" yaml:"char_description"`
	PersonaDescription string `json:"persona_description" yaml:"persona_description"`
}

func (p Profile) Names() chat.Names {
	return chat.Names{User: p.UserName, Char: p.CharName}
}

type Request struct {
	Book    worldinfo.Book
	Preset  preset.Preset
	History []chat.Message
	Profile Profile
	// HistoryWindow caps the history spliced at a chatHistory anchor to the newest
	// messages. Zero means all. Activation always scans the full history.
	HistoryWindow int
	Overrides     map[string]string
}

type TokenCounter interface {
	Count(text string) int
}

type Options struct {
	Scorer  worldinfo.Scorer
	Counter TokenCounter
	Logger  *zap.Logger
}

type Result struct {
	Messages []chat.Message   `json:"messages"`
	Blocks   worldinfo.Blocks `json:"world_info"`
	Trace    Trace            `json:"trace"`
	// Tokens holds one count per message when a counter is configured.
	Tokens      []int `json:"tokens,omitempty"`
	TotalTokens int   `json:"total_tokens,omitempty"`
}

// Pipeline assembles the message list for a turn. It holds no per-turn state, so one
// Pipeline may serve concurrent turns.
type Pipeline struct {
	activator *worldinfo.Activator
	counter   TokenCounter
	logger    *zap.Logger
}

func NewPipeline(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		activator: worldinfo.NewActivator(opts.Scorer, logger.Named("worldinfo")),
		counter:   opts.Counter,
		logger:    logger,
	}
}

// Activate runs world-info activation alone, for diagnostics.
func (p *Pipeline) Activate(ctx context.Context, book worldinfo.Book, history []chat.Message, names chat.Names) *worldinfo.Activation {
	return p.activator.Activate(ctx, book, history, names)
}

func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	names := req.Profile.Names()

	act := p.activator.Activate(ctx, req.Book, req.History, names)
	blocks := worldinfo.Assemble(req.Book, act)

	fragments, notes := Resolve(req.Preset.Items, ResolveInput{
		Names:              names,
		CharDescription:    req.Profile.CharDescription,
		PersonaDescription: req.Profile.PersonaDescription,
		WorldInfo:          blocks,
		Overrides:          req.Overrides,
	})
	history := req.History
	if hasAnchor(fragments) {
		history = newest(history, req.HistoryWindow)
	}
	messages := Merge(Inject(fragments, history))

	result := &Result{
		Messages: messages,
		Blocks:   blocks,
		Trace:    newTrace(act, notes),
	}
	if p.counter != nil {
		result.Tokens = make([]int, 0, len(messages))
		for _, msg := range messages {
			n := p.counter.Count(msg.Content)
			result.Tokens = append(result.Tokens, n)
			result.TotalTokens += n
		}
	}

	p.logger.Debug("prompt assembled",
		zap.String("book", req.Book.Name),
		zap.String("preset", req.Preset.Name),
		zap.Int("history", len(history)),
		zap.Int("fragments", len(fragments)),
		zap.Int("dropped", len(notes)),
		zap.Int("messages", len(messages)),
	)
	return result
}

func hasAnchor(fragments []Fragment) bool {
	for _, f := range fragments {
		if f.History {
			return true
		}
	}
	return false
}

// newest keeps the last window messages; window <= 0 keeps them all.
func newest(history []chat.Message, window int) []chat.Message {
	if window <= 0 || len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}
