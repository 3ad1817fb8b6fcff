package segment

import "testing"

func TestPatternClassifier(t *testing.T) {
	c := NewPatternClassifier()

	tests := []struct {
		name string
		text string
		want ContentKind
	}{
		{"standalone dialogue", `"Who are you?"`, KindDialogue},
		{"curly quotes", "“I am your nightmare.”", KindDialogue},
		{"attributed dialogue", `"Why not?" she asked with a smirk.`, KindDialogue},
		{"narration", "He stepped back, heart racing.", KindNarration},
		{"chapter header", "Chapter 12: The Long Road", KindHeader},
		{"volume header", "Volume 3", KindHeader},
		{"arc header", "Arc 2 - Ashes", KindHeader},
		{"lowercase chapter", "chapter 4", KindHeader},
		{"empty", "", KindUnknown},
		{"plain sentence mentioning chapters", "The final chapter was short.", KindNarration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestContentKindString(t *testing.T) {
	tests := []struct {
		kind ContentKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindNarration, "narration"},
		{KindDialogue, "dialogue"},
		{KindHeader, "header"},
		{ContentKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
