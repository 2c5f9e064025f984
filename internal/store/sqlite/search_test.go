package sqlite

import "testing"

func TestFTSQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single term", input: "dragon", expected: "dragon"},
		{name: "implicit AND", input: "red dragon", expected: "red AND dragon"},
		{name: "explicit OR", input: "dragon OR wyrm", expected: "dragon OR wyrm"},
		{name: "lowercase operator", input: "dragon or wyrm", expected: "dragon OR wyrm"},
		{name: "dash negation", input: "dragon -fire", expected: "dragon NOT fire"},
		{name: "NOT keyword", input: "dragon NOT fire", expected: "dragon NOT fire"},
		{name: "leading negation", input: "-fire dragon", expected: "dragon NOT fire"},
		{name: "negation groups positives", input: "dragon OR wyrm -fire", expected: "(dragon OR wyrm) NOT fire"},
		{name: "phrase", input: `"black keep"`, expected: `"black keep"`},
		{name: "phrase with term", input: `"black keep" siege`, expected: `"black keep" AND siege`},
		{name: "negated phrase", input: `keep -"black keep"`, expected: `keep NOT "black keep"`},
		{name: "prefix", input: "drag*", expected: "drag*"},
		{name: "key column", input: "key:dragon", expected: "primary_keys:dragon"},
		{name: "title phrase", input: `title:"black keep"`, expected: `title:"black keep"`},
		{name: "unknown qualifier is quoted", input: "http:x", expected: `"http:x"`},
		{name: "punctuation is quoted", input: "half-elf", expected: `"half-elf"`},
		{name: "quoted prefix", input: "half-el*", expected: `"half-el"*`},
		{name: "unicode bareword", input: "drachenhöhle", expected: "drachenhöhle"},
		{name: "unterminated quote", input: `say "hello there`, expected: `say AND "hello there"`},
		{name: "dangling operator", input: "dragon OR", expected: "dragon"},
		{name: "only negation", input: "-fire", expected: ""},
		{name: "blank", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ftsQuery(tt.input)
			if got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
